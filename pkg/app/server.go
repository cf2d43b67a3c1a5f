package app

import (
	"context"

	"github.com/shashiranjanraj/shopkart/internal/server"
)

// Serve runs the HTTP and gRPC servers until ctx ends, then runs the
// shutdown hooks.
func (a *Application) Serve(ctx context.Context) error {
	defer func() {
		for i := len(a.shutdown) - 1; i >= 0; i-- {
			a.shutdown[i]()
		}
	}()
	return server.Run(ctx, a.Handler(), a.health)
}
