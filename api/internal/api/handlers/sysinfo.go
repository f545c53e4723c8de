package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/irgordon/vigil/api/internal/core/domain"
)

// SnapshotReader returns a consistent copy of the shared snapshot.
type SnapshotReader interface {
	Current() domain.SystemSnapshot
}

type SysInfoHandler struct {
	Snapshots SnapshotReader
}

func NewSysInfoHandler(snapshots SnapshotReader) *SysInfoHandler {
	return &SysInfoHandler{Snapshots: snapshots}
}

// Get handles GET /api/sysinfo
func (h *SysInfoHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Snapshots.Current())
}
