package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name           string
		err            *Error
		expectedType   ErrorType
		expectedStatus int
	}{
		{
			name:           "Malformed Request",
			err:            NewMalformedRequestError("parse_head", fmt.Errorf("bad request line")),
			expectedType:   ErrorTypeMalformedRequest,
			expectedStatus: 400,
		},
		{
			name:           "Payload Too Large",
			err:            NewPayloadTooLargeError("read_body", 1_000_000),
			expectedType:   ErrorTypePayloadTooLarge,
			expectedStatus: 413,
		},
		{
			name:           "Not Found",
			err:            NewNotFoundError("/missing.html"),
			expectedType:   ErrorTypeNotFound,
			expectedStatus: 404,
		},
		{
			name:           "Forbidden",
			err:            NewForbiddenError("/../etc/passwd"),
			expectedType:   ErrorTypeForbidden,
			expectedStatus: 403,
		},
		{
			name:           "Upstream Unavailable",
			err:            NewUpstreamUnavailableError("up:9000", fmt.Errorf("connection refused")),
			expectedType:   ErrorTypeUpstreamUnavailable,
			expectedStatus: 502,
		},
		{
			name:           "IO Error",
			err:            NewIOError("write", fmt.Errorf("broken pipe")),
			expectedType:   ErrorTypeIO,
			expectedStatus: 0,
		},
		{
			name:           "Handler Panic",
			err:            NewHandlerPanicError(fmt.Errorf("nil pointer")),
			expectedType:   ErrorTypeHandlerPanic,
			expectedStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedType, tt.err.Type)
			assert.Equal(t, tt.expectedStatus, tt.err.Status())
			assert.NotEmpty(t, tt.err.Error())
			assert.False(t, tt.err.Timestamp.IsZero(), "timestamp should be set")
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := NewUpstreamUnavailableError("up:9000", cause)

	assert.Equal(t, cause, err.Unwrap())
}

func TestErrorIs(t *testing.T) {
	err1 := NewNotFoundError("/a")
	err2 := &Error{Type: ErrorTypeNotFound}
	assert.True(t, err1.Is(err2), "errors with same type should match")

	err3 := &Error{Type: ErrorTypeForbidden}
	assert.False(t, err1.Is(err3), "errors with different types should not match")
}

func TestGetErrorType(t *testing.T) {
	err := NewForbiddenError("/../etc/passwd")
	assert.Equal(t, ErrorTypeForbidden, GetErrorType(err))

	regularErr := fmt.Errorf("regular error")
	assert.Equal(t, ErrorType(""), GetErrorType(regularErr))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 404, StatusFor(NewNotFoundError("/a")))
	assert.Equal(t, 500, StatusFor(fmt.Errorf("plain")), "non-structured error should map to 500")
	assert.Equal(t, 500, StatusFor(NewIOError("write", nil)), "IO error should fall back to 500")
}
