package core

// ChangeDetector compares each polled count to the previous one within a
// viewing session.
type ChangeDetector struct {
	previous *int
}

// NewChangeDetector returns a detector with no prior value.
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// Detect reports whether current differs from the previously observed
// count. The first call of a session always returns false. The stored value
// is updated on every call.
func (d *ChangeDetector) Detect(current int) bool {
	changed := d.previous != nil && *d.previous != current
	d.previous = &current
	return changed
}

// Peek reports what Detect would return for current without storing it.
func (d *ChangeDetector) Peek(current int) bool {
	return d.previous != nil && *d.previous != current
}

// Previous returns the last observed count, if any.
func (d *ChangeDetector) Previous() (int, bool) {
	if d.previous == nil {
		return 0, false
	}
	return *d.previous, true
}

// Reset forgets the previous value.
func (d *ChangeDetector) Reset() {
	d.previous = nil
}
