// file: internal/middleware/validation.go
package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/mcpclient/internal/logging"
	"github.com/dkoosis/mcpclient/internal/mcperror"
	"github.com/dkoosis/mcpclient/internal/mcptypes"
)

// ValidationOptions configures ValidationMiddleware's behavior.
type ValidationOptions struct {
	Enabled          bool
	SkipMethods      map[string]bool
	StrictMode       bool
	ValidateOutgoing bool
	StrictOutgoing   bool
}

// DefaultValidationOptions mirrors the defaults used for server-side
// validation: enabled, ping exempted, strict on inbound, lenient on
// outbound so a bug in our own encoder never blocks the send.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		Enabled:          true,
		SkipMethods:      map[string]bool{mcptypes.MethodPing: true},
		StrictMode:       true,
		ValidateOutgoing: true,
		StrictOutgoing:   false,
	}
}

// ValidationMiddleware validates inbound (and optionally outbound) wire
// bytes against the configured JSON schema before passing them on.
type ValidationMiddleware struct {
	validator mcptypes.ValidatorInterface
	options   ValidationOptions
	logger    logging.Logger
}

// NewValidationMiddleware builds a ValidationMiddleware bound to validator.
func NewValidationMiddleware(validator mcptypes.ValidatorInterface, options ValidationOptions, logger logging.Logger) *ValidationMiddleware {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &ValidationMiddleware{
		validator: validator,
		options:   options,
		logger:    logger.WithField("middleware", "validation"),
	}
}

// Inbound returns a mcptypes.MiddlewareFunc that validates every inbound
// message before handing it to next.
func (m *ValidationMiddleware) Inbound(next mcptypes.MessageHandler) mcptypes.MessageHandler {
	return func(ctx context.Context, message []byte) ([]byte, error) {
		if !m.options.Enabled || !m.validator.IsInitialized() {
			return next(ctx, message)
		}

		start := time.Now()
		messageType := classifyForValidation(message)
		if m.options.SkipMethods[messageType] {
			return next(ctx, message)
		}

		if err := m.validator.Validate(ctx, messageType, message); err != nil {
			m.logger.Debug("inbound message failed schema validation",
				"messageType", messageType, "duration", time.Since(start), "error", err)
			if m.options.StrictMode {
				return nil, errors.Wrapf(mcperror.InvalidMessage(err.Error()), "message type %q", messageType)
			}
			m.logger.Warn("continuing despite schema validation failure (non-strict mode)", "messageType", messageType)
		}

		return next(ctx, message)
	}
}

// ValidateOutgoing validates a message this client is about to send,
// honoring StrictOutgoing for whether a failure blocks the send.
func (m *ValidationMiddleware) ValidateOutgoing(ctx context.Context, message []byte) error {
	if !m.options.Enabled || !m.options.ValidateOutgoing || !m.validator.IsInitialized() {
		return nil
	}

	messageType := classifyForValidation(message)
	if m.options.SkipMethods[messageType] {
		return nil
	}

	if err := m.validator.Validate(ctx, messageType, message); err != nil {
		m.logger.Debug("outgoing message failed schema validation", "messageType", messageType, "error", err)
		if m.options.StrictOutgoing {
			return errors.Wrapf(mcperror.InvalidMessage(err.Error()), "message type %q", messageType)
		}
	}
	return nil
}

// classifyForValidation picks the schema lookup key for a raw envelope:
// the method name for requests/notifications, otherwise a generic
// response/error bucket the registry's fallback logic resolves.
func classifyForValidation(message []byte) string {
	var probe struct {
		Method *string `json:"method"`
		Error  *struct{ Code int `json:"code"` } `json:"error"`
	}
	if err := json.Unmarshal(message, &probe); err != nil {
		return "base"
	}
	if probe.Method != nil {
		return *probe.Method
	}
	if probe.Error != nil {
		return "error_response"
	}
	return "success_response"
}
