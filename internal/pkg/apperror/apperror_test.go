package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	if got := KindOf(NotFound("gone")); got != KindNotFound {
		t.Errorf("KindOf = %v, want not_found", got)
	}
	wrapped := fmt.Errorf("placing order: %w", InsufficientStock("p1", "Rye"))
	if got := KindOf(wrapped); got != KindInsufficientStock {
		t.Errorf("KindOf(wrapped) = %v, want insufficient_stock", got)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %v, want internal_error", got)
	}
}

func TestAsErrorSynthesizesInternal(t *testing.T) {
	e := AsError(errors.New("db down"))
	if e.Kind != KindInternal {
		t.Errorf("kind = %v, want internal_error", e.Kind)
	}
	if e.Message == "db down" {
		t.Error("synthetic message must not echo the raw cause")
	}
	if !errors.Is(e, e.Err) && e.Err == nil {
		t.Error("cause must be preserved for logging")
	}
}

func TestInsufficientStockCarriesProduct(t *testing.T) {
	e := InsufficientStock("p1", "Croissant")
	if e.ProductID != "p1" {
		t.Errorf("product = %q, want p1", e.ProductID)
	}
	if e.Message != "insufficient stock for Croissant" {
		t.Errorf("message = %q", e.Message)
	}
	// Falls back to the ID when the name is unknown.
	e = InsufficientStock("p2", "")
	if e.Message != "insufficient stock for p2" {
		t.Errorf("message = %q", e.Message)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	e := Internal("query failed", cause)
	if !errors.Is(e, cause) {
		t.Error("errors.Is must see through the wrapper")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindInsufficientStock, http.StatusBadRequest},
		{KindInvalidTransition, http.StatusBadRequest},
		{KindAuthentication, http.StatusUnauthorized},
		{KindAuthorization, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindInternal, http.StatusInternalServerError},
		{Kind("mystery"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := HTTPStatus(tc.kind); got != tc.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tc.kind, got, tc.want)
		}
	}
}
