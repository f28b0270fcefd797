package core

import (
	"context"

	"github.com/straywatch/straywatch/pkg/models"
)

// LogAppender persists one observation to the observation log.
// This interface is defined locally in core to avoid importing storage.
type LogAppender interface {
	Append(ctx context.Context, obs models.Observation) error
}

// LogReader returns every row of the observation log. Row order is not
// guaranteed and rows may repeat between reads.
type LogReader interface {
	ReadAll(ctx context.Context) ([]models.Row, error)
}

// AppenderFunc adapts a function to LogAppender.
type AppenderFunc func(ctx context.Context, obs models.Observation) error

// Append calls f(ctx, obs).
func (f AppenderFunc) Append(ctx context.Context, obs models.Observation) error {
	return f(ctx, obs)
}
