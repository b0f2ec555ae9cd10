package utils

import (
	"context"

	"github.com/teivah/onecontext"
)

// MergeContexts returns a context that is done as soon as any of the supplied contexts is done.
func MergeContexts(ctx context.Context, ctxs ...context.Context) (context.Context, context.CancelFunc) {
	if len(ctxs) == 0 {
		return context.WithCancel(ctx)
	}
	return onecontext.Merge(ctx, ctxs...)
}
