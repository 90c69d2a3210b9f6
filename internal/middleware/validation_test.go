// file: internal/middleware/validation_test.go
package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/mcpclient/internal/logging"
)

type fakeValidator struct {
	initialized bool
	failFor     map[string]bool
}

func (f *fakeValidator) Validate(_ context.Context, messageType string, _ []byte) error {
	if f.failFor[messageType] {
		return assertValidationErr
	}
	return nil
}

func (f *fakeValidator) HasSchema(string) bool { return true }
func (f *fakeValidator) IsInitialized() bool    { return f.initialized }

var assertValidationErr = errors.New("schema mismatch")

func TestValidationMiddleware_SkipsWhenDisabled(t *testing.T) {
	v := &fakeValidator{initialized: true, failFor: map[string]bool{"tools/call": true}}
	opts := DefaultValidationOptions()
	opts.Enabled = false
	mw := NewValidationMiddleware(v, opts, logging.GetNoopLogger())

	called := false
	next := func(ctx context.Context, message []byte) ([]byte, error) {
		called = true
		return []byte("ok"), nil
	}

	out, err := mw.Inbound(next)(context.Background(), []byte(`{"method":"tools/call"}`))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []byte("ok"), out)
}

func TestValidationMiddleware_StrictModeBlocksInvalidMessage(t *testing.T) {
	v := &fakeValidator{initialized: true, failFor: map[string]bool{"tools/call": true}}
	opts := DefaultValidationOptions()
	mw := NewValidationMiddleware(v, opts, logging.GetNoopLogger())

	called := false
	next := func(ctx context.Context, message []byte) ([]byte, error) {
		called = true
		return nil, nil
	}

	_, err := mw.Inbound(next)(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call"}`))
	require.Error(t, err)
	assert.False(t, called)
}

func TestValidationMiddleware_NonStrictModeContinuesOnFailure(t *testing.T) {
	v := &fakeValidator{initialized: true, failFor: map[string]bool{"tools/call": true}}
	opts := DefaultValidationOptions()
	opts.StrictMode = false
	mw := NewValidationMiddleware(v, opts, logging.GetNoopLogger())

	called := false
	next := func(ctx context.Context, message []byte) ([]byte, error) {
		called = true
		return []byte("ok"), nil
	}

	out, err := mw.Inbound(next)(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call"}`))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []byte("ok"), out)
}

func TestValidationMiddleware_SkippedMethodBypassesValidation(t *testing.T) {
	v := &fakeValidator{initialized: true, failFor: map[string]bool{"ping": true}}
	opts := DefaultValidationOptions() // ping is skipped by default
	mw := NewValidationMiddleware(v, opts, logging.GetNoopLogger())

	called := false
	next := func(ctx context.Context, message []byte) ([]byte, error) {
		called = true
		return []byte("pong"), nil
	}

	_, err := mw.Inbound(next)(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	require.NoError(t, err)
	assert.True(t, called)
}

func TestValidationMiddleware_ValidateOutgoingRespectsStrictOutgoing(t *testing.T) {
	v := &fakeValidator{initialized: true, failFor: map[string]bool{"success_response": true}}
	opts := DefaultValidationOptions()
	opts.StrictOutgoing = false
	mw := NewValidationMiddleware(v, opts, logging.GetNoopLogger())

	err := mw.ValidateOutgoing(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	assert.NoError(t, err, "non-strict outgoing validation should not block the send")

	opts.StrictOutgoing = true
	mw = NewValidationMiddleware(v, opts, logging.GetNoopLogger())
	err = mw.ValidateOutgoing(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	assert.Error(t, err, "strict outgoing validation should block the send")
}

func TestClassifyForValidation(t *testing.T) {
	assert.Equal(t, "tools/call", classifyForValidation([]byte(`{"method":"tools/call"}`)))
	assert.Equal(t, "error_response", classifyForValidation([]byte(`{"error":{"code":-32600}}`)))
	assert.Equal(t, "success_response", classifyForValidation([]byte(`{"result":{}}`)))
	assert.Equal(t, "base", classifyForValidation([]byte(`not json`)))
}
