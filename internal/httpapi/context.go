package httpapi

import (
	"context"
)

// serverBaseCtx is canceled when the daemon shuts down; blocking handlers and
// websocket streams end with it.
var serverBaseCtx = context.Background()

// SetBaseContext installs the shutdown context. nil restores Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// joinContexts derives from req (keeping its values) and additionally ends
// when base is done. cancel must be called when the handler returns.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// waitContext bounds a ?wait=1 style handler by shutdown, the client and
// waitTimeout, whichever comes first.
func waitContext(reqCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := joinContexts(serverBaseCtx, reqCtx)
	if waitTimeout <= 0 {
		return ctx, cancel
	}
	tctx, tcancel := context.WithTimeout(ctx, waitTimeout)
	return tctx, func() {
		tcancel()
		cancel()
	}
}
