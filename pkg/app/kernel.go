package app

import (
	"net/http"
	"time"

	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
	"github.com/shashiranjanraj/shopkart/pkg/middleware"
	"github.com/shashiranjanraj/shopkart/pkg/reqid"
	"github.com/shashiranjanraj/shopkart/pkg/router"
)

// Handler builds the HTTP handler: global middleware, then every route
// callback.
func (a *Application) Handler() http.Handler {
	r := router.New()

	// Outermost first:
	//  1. metrics, for total latency
	//  2. recovery, before anything can panic unobserved
	//  3. request ID, before anything logs
	//  4. logger
	//  5. CORS
	//  6. rate limiter
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.CORSOptionsFromConfig()))
	r.Use(middleware.RateLimit(config.RateLimitPerMinute(), time.Minute))

	for _, fn := range a.routesFns {
		fn(r)
	}
	return r.Handler()
}
