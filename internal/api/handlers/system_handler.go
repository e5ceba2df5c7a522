package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/okenna/dreamloom-be/internal/monitoring"
)

// StatsProvider exposes the latest host load snapshot.
type StatsProvider interface {
	Latest() monitoring.HostStats
}

// SystemHandler serves operational endpoints.
type SystemHandler struct {
	stats StatsProvider
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(stats StatsProvider) *SystemHandler {
	return &SystemHandler{stats: stats}
}

// GetStats returns the most recent host CPU/memory sample.
func (h *SystemHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.stats.Latest())
}
