package mongo

import (
	"context"
	"time"
)

// DefaultOpTimeout bounds a single repository call outside a transaction.
const DefaultOpTimeout = 5 * time.Second

// WithTimeout bounds ctx unless it belongs to a transaction, whose deadline
// is owned by the session.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if InTransaction(ctx) {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
