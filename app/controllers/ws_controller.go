package controllers

import (
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
	"github.com/shashiranjanraj/shopkart/pkg/sse"
	"github.com/shashiranjanraj/shopkart/pkg/ws"
)

// Live upgrades an authenticated request to the order feed socket.
func Live(hub *ws.Hub) ctx.HandlerFunc {
	return func(c *ctx.Context) {
		p := c.Principal()
		if p == nil {
			c.Unauthorized()
			return
		}
		hub.Serve(c.W, c.R, p.UserID)
	}
}

// Stream serves the same order feed as Server-Sent Events.
func Stream(broker *sse.Broker) ctx.HandlerFunc {
	return func(c *ctx.Context) {
		p := c.Principal()
		if p == nil {
			c.Unauthorized()
			return
		}
		broker.Serve(c.W, c.R, p.UserID)
	}
}
