// file: internal/mcptypes/interfaces.go
package mcptypes

import (
	"context"
)

// MessageHandler is a function type for handling MCP messages.
// It processes a message (as JSON bytes) and returns a response (as JSON bytes)
// or an error if processing fails.
type MessageHandler func(ctx context.Context, message []byte) ([]byte, error)

// MiddlewareFunc is a function that wraps a MessageHandler with additional functionality
// such as validation, logging, or metrics collection.
type MiddlewareFunc func(handler MessageHandler) MessageHandler

// Chain represents a middleware chain that can be built and executed.
// It allows for composing multiple middleware functions to process a message.
type Chain interface {
	// Use adds a middleware function to the chain.
	Use(middleware MiddlewareFunc) Chain

	// Handler returns the final composed handler function.
	Handler() MessageHandler
}

// ValidatorInterface defines common operations for a schema validator.
type ValidatorInterface interface {
	// Validate validates data against a schema definition.
	Validate(ctx context.Context, messageType string, data []byte) error

	// HasSchema checks if a schema exists for the given name.
	HasSchema(name string) bool

	// IsInitialized returns whether the validator has been initialized.
	IsInitialized() bool
}
