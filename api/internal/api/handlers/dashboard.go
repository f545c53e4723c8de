package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/irgordon/vigil/api/internal/core/domain"
)

const dashboardPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Vigil Agent</title>
</head>
<body>
  <h1>System Configuration</h1>
  <form action="/dashboard/save" method="post">
    <label>Variable Name: <input type="text" name="name"></label><br>
    <label>Value: <input type="text" name="value"></label><br>
    <input type="submit" value="Save">
  </form>
  <p><a href="/api/sysinfo">System info</a> | <a href="/api/metrics">Metrics</a> | <a href="/api/logs">Logs</a></p>
</body>
</html>
`

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

// SaveConfigRequest binds the dashboard form. Pointers distinguish an absent
// field (rejected) from an empty one (accepted).
type SaveConfigRequest struct {
	Name  *string `form:"name" validate:"required"`
	Value *string `form:"value" validate:"required"`
}

func bindSaveConfig(form url.Values) SaveConfigRequest {
	var req SaveConfigRequest
	if vals, ok := form["name"]; ok && len(vals) > 0 {
		req.Name = &vals[0]
	}
	if vals, ok := form["value"]; ok && len(vals) > 0 {
		req.Value = &vals[0]
	}
	return req
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

// SnapshotRefresher triggers a guarded refresh of the shared snapshot.
type SnapshotRefresher interface {
	Refresh(ctx context.Context) (domain.SystemSnapshot, error)
}

// SaveRecorder counts accepted configuration entries.
type SaveRecorder interface {
	ConfigSaved()
}

type DashboardHandler struct {
	Snapshots SnapshotRefresher
	Recorder  SaveRecorder
	Logger    *slog.Logger
}

func NewDashboardHandler(snapshots SnapshotRefresher, recorder SaveRecorder, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		Snapshots: snapshots,
		Recorder:  recorder,
		Logger:    logger,
	}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// Page handles GET /dashboard
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(dashboardPage))
}

// Save handles POST /dashboard/save
func (h *DashboardHandler) Save(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Form payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Malformed form payload", http.StatusBadRequest)
		return
	}

	req := bindSaveConfig(r.PostForm)
	if err := validateForm(req); err != nil {
		HandleError(w, r, h.Logger, err)
		return
	}
	entry := domain.ConfigEntry{Name: *req.Name, Value: *req.Value}

	// 🛡️ SLA: The guard is acquired and released inside Refresh; nothing is
	// held across the response write below.
	if _, err := h.Snapshots.Refresh(r.Context()); err != nil {
		h.Logger.Warn("Snapshot refresh incomplete during save",
			slog.String("name", entry.Name),
			slog.String("error", err.Error()),
		)
	}
	if h.Recorder != nil {
		h.Recorder.ConfigSaved()
	}

	h.Logger.Info("Configuration entry saved", slog.String("name", entry.Name))

	// 🛡️ The echo is verbatim, so it must never be sniffed as HTML.
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Saved %s: %s", entry.Name, entry.Value)
}
