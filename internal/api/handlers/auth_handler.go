package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/okenna/dreamloom-be/internal/apperrors"
	"github.com/okenna/dreamloom-be/internal/auth"
	"github.com/okenna/dreamloom-be/internal/services"
)

// AuthHandler handles signup, login, and identity lookups.
type AuthHandler struct {
	users  services.UserServiceProvider
	tokens *auth.TokenIssuer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.UserServiceProvider, tokens *auth.TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// CredentialsPayload defines the structure for signup and login requests.
type CredentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the shared success body of signup and login.
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	Email     string `json:"email"`
}

func (p CredentialsPayload) validate() error {
	if !strings.Contains(p.Email, "@") || strings.TrimSpace(p.Email) == "" {
		return errors.New("a valid email is required")
	}
	if p.Password == "" {
		return errors.New("a password is required")
	}
	return nil
}

// Signup creates a new account and returns a bearer token for it.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload CredentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := payload.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.Signup(payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrEmailTaken) {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		log.Error().Err(err).Msg("Failed to sign up user")
		http.Error(w, "Signup failed", http.StatusInternalServerError)
		return
	}

	h.respondWithToken(w, user.Email, http.StatusCreated)
}

// Login verifies credentials and returns a bearer token. Every credential
// failure produces the same 401 so registered emails cannot be probed.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload CredentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := payload.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.Login(payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			log.Warn().Msg("Failed authentication attempt")
			http.Error(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Msg("Login lookup failed")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	h.respondWithToken(w, user.Email, http.StatusOK)
}

// GetMe returns the account record behind the presented token.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve identity from context")
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	user, err := h.users.GetUserByEmail(email)
	if err != nil {
		log.Error().Err(err).Msg("User from token not found in DB")
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, email string, status int) {
	token, err := h.tokens.Issue(email)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue token")
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(TokenResponse{Token: token, TokenType: "bearer", Email: email})
}
