// Package app assembles the global HTTP middleware stack around the
// registered routes and runs the servers.
//
//	app.New().
//	    Routes(k.Routes).
//	    Health(k.Ping).
//	    OnShutdown(k.Close).
//	    Serve(ctx)
package app

import (
	"context"

	"github.com/shashiranjanraj/shopkart/pkg/router"
)

// Application collects route callbacks and lifecycle hooks.
type Application struct {
	routesFns []func(*router.Router)
	health    func(context.Context) error
	shutdown  []func()
}

func New() *Application {
	return &Application{}
}

// Routes registers a route-registration callback. Callbacks run in order.
func (a *Application) Routes(fn func(*router.Router)) *Application {
	a.routesFns = append(a.routesFns, fn)
	return a
}

// Health sets the readiness check reported by the gRPC health service.
func (a *Application) Health(fn func(context.Context) error) *Application {
	a.health = fn
	return a
}

// OnShutdown runs fn after the servers have stopped, in reverse order of
// registration.
func (a *Application) OnShutdown(fn func()) *Application {
	a.shutdown = append(a.shutdown, fn)
	return a
}

// RouteList returns every registered route without starting anything.
func (a *Application) RouteList() []router.Route {
	r := router.New()
	for _, fn := range a.routesFns {
		fn(r)
	}
	return r.Routes()
}
