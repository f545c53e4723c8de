package handlers

import (
	"log/slog"
	"net/http"
)

// HealthBody is the fixed liveness response shared by both listeners.
const HealthBody = "Healthy"

// HealthHandler answers liveness probes. It has no dependencies that can fail.
type HealthHandler struct {
	Listener string
	Logger   *slog.Logger
}

func NewHealthHandler(listener string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{Listener: listener, Logger: logger}
}

// Check handles GET /api/health and GET /status
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("Health probe",
		slog.String("listener", h.Listener),
		slog.String("remote", r.RemoteAddr),
	)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(HealthBody))
}
