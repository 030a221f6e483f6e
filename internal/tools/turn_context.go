package tools

import "context"

// CallContext carries who triggered a tool call through the context tree.
// The CLI and the cron service set it; the registry reads it for logging.
type CallContext struct {
	Source string // "cli" | "cron"
	JobID  string
}

type callKey struct{}

// WithCall returns a child context that carries cc.
func WithCall(ctx context.Context, cc CallContext) context.Context {
	return context.WithValue(ctx, callKey{}, cc)
}

// CallCtx extracts the CallContext from ctx.
// Returns a zero-value CallContext if none was set.
func CallCtx(ctx context.Context) CallContext {
	cc, _ := ctx.Value(callKey{}).(CallContext)
	return cc
}
