package handlers

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// MetricsHandler serves a Gatherer in the Prometheus text exposition format.
type MetricsHandler struct {
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

func NewMetricsHandler(g prometheus.Gatherer, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{Gatherer: g, Logger: logger}
}

// Serve handles GET /api/metrics
func (h *MetricsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	families, err := h.Gatherer.Gather()
	if err != nil {
		h.Logger.Error("Metrics gather failed", slog.String("error", err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// 🛡️ Encode into a buffer first: a mid-stream failure must still produce
	// a clean 500 instead of a truncated 200.
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			h.Logger.Error("Metrics encoding failed",
				slog.String("family", mf.GetName()),
				slog.String("error", err.Error()),
			)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", string(format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
