package framework

import "context"

type runContextKey struct{}

// RunContext carries run metadata through contexts so telemetry emitted by
// model clients can be correlated with the graph events of the same run.
type RunContext struct {
	ID       string
	Question string
}

// WithRunContext attaches run metadata to the context.
func WithRunContext(ctx context.Context, run RunContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runContextKey{}, run)
}

// RunContextFrom extracts run metadata, if present.
func RunContextFrom(ctx context.Context) (RunContext, bool) {
	if ctx == nil {
		return RunContext{}, false
	}
	run, ok := ctx.Value(runContextKey{}).(RunContext)
	return run, ok
}
