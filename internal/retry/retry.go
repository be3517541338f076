// Package retry runs an operation once more after a recovery step when it fails
// with a recoverable error.
package retry

import (
	"context"
	"fmt"
)

// WithRecovery calls op. If op fails and recoverable reports true for the error,
// recoverFn runs and op is attempted exactly one more time. A failed recovery
// returns both errors and op is not retried.
func WithRecovery[T any](
	ctx context.Context,
	op func(context.Context) (T, error),
	recoverable func(error) bool,
	recoverFn func(context.Context) error,
) (T, error) {
	v, err := op(ctx)
	if err == nil || !recoverable(err) {
		return v, err
	}
	if rerr := recoverFn(ctx); rerr != nil {
		var zero T
		return zero, fmt.Errorf("recovery failed: %w (after %w)", rerr, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		var zero T
		return zero, ctxErr
	}
	return op(ctx)
}
