package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/okenna/dreamloom-be/internal/apperrors"
	"github.com/okenna/dreamloom-be/internal/auth"
	"github.com/okenna/dreamloom-be/internal/models"
	"github.com/okenna/dreamloom-be/internal/services"
)

// DreamHandler handles the dream journal endpoints.
type DreamHandler struct {
	dreams services.DreamServiceProvider
}

// NewDreamHandler creates a new DreamHandler.
func NewDreamHandler(dreams services.DreamServiceProvider) *DreamHandler {
	return &DreamHandler{dreams: dreams}
}

// DreamPayload defines the structure for dream submissions.
type DreamPayload struct {
	Text string `json:"text"`
}

// Save restyles and stores a submitted dream.
func (h *DreamHandler) Save(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	var payload DreamPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		http.Error(w, "Dream text is required", http.StatusBadRequest)
		return
	}

	dream, err := h.dreams.SaveDream(r.Context(), email, payload.Text)
	if err != nil {
		log.Error().Err(err).Str("user", email).Msg("Failed to save dream")
		http.Error(w, "Failed to save dream", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"status": "saved", "dream_id": dream.ID})
}

// List returns the caller's dreams, newest first.
func (h *DreamHandler) List(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	dreams, err := h.dreams.ListDreams(r.Context(), email)
	if err != nil {
		log.Error().Err(err).Str("user", email).Msg("Failed to list dreams")
		http.Error(w, "Failed to fetch dreams", http.StatusInternalServerError)
		return
	}
	if dreams == nil {
		dreams = []models.Dream{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dreams)
}

// Narrative weaves the caller's dreams into one collective narrative.
func (h *DreamHandler) Narrative(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	digest, err := h.dreams.CollectiveNarrative(r.Context(), email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoDreams) {
			http.Error(w, "No dreams recorded for this user", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("user", email).Msg("Failed to weave collective narrative")
		http.Error(w, "Failed to generate narrative", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(digest)
}

// GenerateImage renders the caller's dreams into an image and attaches the
// URL to their latest dream.
func (h *DreamHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	imageURL, err := h.dreams.GenerateImage(r.Context(), email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoDreams) {
			http.Error(w, "No dreams recorded for this user", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("user", email).Msg("Failed to generate dream image")
		http.Error(w, "Failed to generate image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"image_url": imageURL})
}

// LatestDigest returns the caller's most recent stored digest.
func (h *DreamHandler) LatestDigest(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	digest, err := h.dreams.GetLatestDigest(r.Context(), email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoDreams) {
			http.Error(w, "No digest available for this user", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("user", email).Msg("Failed to fetch latest digest")
		http.Error(w, "Failed to fetch digest", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(digest)
}
