// Package apperror defines the error taxonomy shared by every layer of the
// service. Each error carries a stable machine-readable kind (mapped to an
// HTTP status at the edge) and a human-readable message; stock errors also
// name the offending product.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable error classification exposed to callers.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindAuthentication    Kind = "authentication_error"
	KindAuthorization     Kind = "authorization_error"
	KindNotFound          Kind = "not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInvalidTransition Kind = "invalid_state_transition"
	KindInternal          Kind = "internal_error"
)

// Error is the structured error type propagated between layers.
type Error struct {
	Kind    Kind
	Message string
	// ProductID identifies the offending product for stock/availability
	// errors. Empty otherwise.
	ProductID string
	// Err is the wrapped cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a 400-class input error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Authentication returns a 401-class error.
func Authentication(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

// Authorization returns a 403-class error.
func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// NotFound returns a 404-class error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock returns a stock error naming the product.
func InsufficientStock(productID, name string) *Error {
	label := name
	if label == "" {
		label = productID
	}
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for %s", label),
		ProductID: productID,
	}
}

// InvalidTransition returns an order lifecycle error.
func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot transition order from %s to %s", from, to),
	}
}

// Internal wraps an unexpected failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the Kind from any error in the chain. Unclassified errors
// report KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError returns the *Error in the chain, or a synthetic internal one so the
// HTTP layer always has a kind and message to render.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// HTTPStatus maps an error kind to its response status code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation, KindInsufficientStock, KindInvalidTransition:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
