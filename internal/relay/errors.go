package relay

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported marks operations a station adapter does not provide.
var ErrUnsupported = errors.New("not supported for custom configurations")

// ErrInvalidInput marks requests rejected before any upstream call is made.
var ErrInvalidInput = errors.New("invalid input")

// UpstreamError reports a failed response from a station management API.
type UpstreamError struct {
	StatusCode int
	Message    string
}

// Error returns the upstream failure message.
func (e *UpstreamError) Error() string {
	if e == nil {
		return "relay: upstream error"
	}
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return fmt.Sprintf("relay: unexpected status %d", e.StatusCode)
}

func upstreamf(statusCode int, format string, args ...any) error {
	return &UpstreamError{StatusCode: statusCode, Message: fmt.Sprintf(format, args...)}
}
