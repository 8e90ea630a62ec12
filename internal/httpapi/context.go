package httpapi

import "context"

// serverBaseCtx is the process-level context canceled on shutdown, so
// in-flight downloads and loads stop when the daemon does.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process-level context used by handlers. nil
// resets to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts derives a context from primary that is additionally canceled
// when secondary ends. Values and deadline come from primary. The returned
// cancel func must be called when the handler finishes.
func joinContexts(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
