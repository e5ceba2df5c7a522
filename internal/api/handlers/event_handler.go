package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/okenna/dreamloom-be/internal/models"
	"github.com/okenna/dreamloom-be/internal/services"
)

// EventHandler serves the activity event log.
type EventHandler struct {
	events services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events services.EventServiceProvider) *EventHandler {
	return &EventHandler{events: events}
}

// GetRecent returns the most recent events, capped at 200.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > 200 {
		limit = 200
	}

	events, err := h.events.GetRecentEvents(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch recent events")
		http.Error(w, "Failed to fetch events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []models.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
