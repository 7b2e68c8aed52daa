package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ovenworks/bakehouse/internal/pkg/apperror"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders any error as the stable {error, message} envelope,
// mapping the error kind to its HTTP status. Internal causes are logged, not
// leaked.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperror.AsError(err)
	if e.Kind == apperror.KindInternal {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, apperror.HTTPStatus(e.Kind), ErrorResponse{
		Error:   string(e.Kind),
		Message: e.Message,
		Product: e.ProductID,
	})
}
