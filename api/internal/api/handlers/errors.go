package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/irgordon/vigil/api/internal/core/domain"
)

// HandleError maps domain errors onto HTTP semantics.
// 🛡️ Internal errors are logged, never echoed to the caller.
func HandleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingField):
		http.Error(w, "Unprocessable form: "+err.Error(), http.StatusUnprocessableEntity)

	default:
		logger.Error("Unhandled request error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
