package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shashiranjanraj/shopkart/pkg/ctx"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

// Health reports 200 while check passes and 503 otherwise.
func Health(check func(context.Context) error) ctx.HandlerFunc {
	return func(c *ctx.Context) {
		cctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		if check != nil {
			if err := check(cctx); err != nil {
				logger.WithCtx(c.Context()).Warn("health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		c.Success(map[string]string{"status": "ok"})
	}
}
