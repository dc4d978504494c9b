package github

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport matches network, HTTP status and decode failures.
	ErrTransport = errors.New("github transport error")

	// ErrProtocol matches GraphQL error lists and responses whose shape
	// cannot be interpreted.
	ErrProtocol = errors.New("github protocol error")

	// ErrUnexpectedResponse is a protocol error for a malformed response.
	ErrUnexpectedResponse = fmt.Errorf("%w: unexpected response", ErrProtocol)
)

// TransportError wraps a failure to exchange a request with the API.
type TransportError struct {
	Op         string // e.g. "send request"
	StatusCode int    // HTTP status, 0 when none was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("github: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("github: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// GraphQLError is one entry of a GraphQL "errors" list.
type GraphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Path    []any  `json:"path,omitempty"`
}

// ResponseErrors is the "errors" list of a GraphQL response.
type ResponseErrors []GraphQLError

func (e ResponseErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ge := range e {
		if ge.Type != "" {
			msgs = append(msgs, ge.Type+": "+ge.Message)
		} else {
			msgs = append(msgs, ge.Message)
		}
	}
	return "github: graphql errors: " + strings.Join(msgs, "; ")
}

func (e ResponseErrors) Is(target error) bool {
	return target == ErrProtocol
}

// unexpected returns an ErrUnexpectedResponse with detail.
func unexpected(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedResponse, fmt.Sprintf(format, args...))
}
