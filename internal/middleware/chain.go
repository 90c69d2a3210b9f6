// Package middleware provides chainable handlers for processing MCP
// messages, such as schema validation and metrics recording.
package middleware

// file: internal/middleware/chain.go

import "github.com/dkoosis/mcpclient/internal/mcptypes"

// middlewareChain implements mcptypes.Chain.
type middlewareChain struct {
	handler     mcptypes.MessageHandler
	middlewares []mcptypes.MiddlewareFunc
	finalized   bool
}

// NewChain creates a new middleware chain ending in finalHandler.
func NewChain(finalHandler mcptypes.MessageHandler) mcptypes.Chain {
	return &middlewareChain{
		handler:     finalHandler,
		middlewares: make([]mcptypes.MiddlewareFunc, 0),
	}
}

// Use adds a middleware function to the chain.
func (c *middlewareChain) Use(middleware mcptypes.MiddlewareFunc) mcptypes.Chain {
	if c.finalized {
		return NewChain(c.handler).Use(middleware)
	}
	c.middlewares = append(c.middlewares, middleware)
	return c
}

// Handler returns the final composed handler, applying middleware in the
// order added (first added wraps outermost).
func (c *middlewareChain) Handler() mcptypes.MessageHandler {
	if c.finalized {
		return c.handler
	}

	handler := c.handler
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}

	c.finalized = true
	c.handler = handler
	return handler
}
