package storage

import (
	"fmt"
	"os"
	"syscall"
)

// lockExclusive takes an exclusive advisory lock (LOCK_EX) on f, blocking
// until other processes appending to the same log release theirs. The
// returned function releases the lock; closing f also releases it.
func lockExclusive(f *os.File) (unlock func() error, err error) {
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return nil, fmt.Errorf("locking %s: %w", f.Name(), err)
	}
	return func() error {
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}
