package observe

import (
	"context"
)

// Context is handed to producers and stages. It is done once the subscription it belongs to has ended.
type Context struct {
	context.Context
	Activity      string
	ErrorStrategy ErrorStrategy
}

func NewContext(ctx context.Context, activity string) Context {
	return Context{
		Context:       ctx,
		Activity:      activity,
		ErrorStrategy: StopOnError,
	}
}
