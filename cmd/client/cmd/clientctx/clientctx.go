// Package clientctx carries the initialized *client.App from the root
// command's PersistentPreRunE down into subcommand packages (auth, block,
// task, settings, device, sync), which cannot import package cmd directly
// without creating an import cycle.
package clientctx

import (
	"context"

	"daylog/internal/app/client"
)

type key struct{}

// With returns a context carrying app, for cmd.SetContext in the root
// command's PersistentPreRunE.
func With(ctx context.Context, app *client.App) context.Context {
	return context.WithValue(ctx, key{}, app)
}

// From retrieves the app installed by With, or nil if none was installed.
func From(ctx context.Context) *client.App {
	app, _ := ctx.Value(key{}).(*client.App)
	return app
}
