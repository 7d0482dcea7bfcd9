package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a request failure. Every kind maps to a stable HTTP status
// and a client-safe message; causes stay in the logs.
type Kind string

const (
	KindInvalidUpload        Kind = "invalid_upload"
	KindInvalidWeightSpec    Kind = "invalid_weight_spec"
	KindInvalidParams        Kind = "invalid_params"
	KindExtractionEmpty      Kind = "extraction_empty"
	KindInferenceUnavailable Kind = "inference_unavailable"
	KindInternal             Kind = "internal_error"
)

// Error is the stable failure shape every pipeline exit maps to. Message is
// safe to return to clients; the wrapped cause carries the detail and is for
// logging only.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the failure onto the response status. A backend failure
// caused by a deadline is a gateway timeout rather than a bad gateway.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidUpload, KindInvalidWeightSpec, KindInvalidParams:
		return http.StatusBadRequest
	case KindExtractionEmpty:
		return http.StatusUnprocessableEntity
	case KindInferenceUnavailable:
		if errors.Is(e.cause, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsError extracts the pipeline error from err. Anything unanticipated
// becomes an internal error with a generic message, so no detail of an
// unexpected failure ever reaches a client.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: "internal error", cause: err}
}
