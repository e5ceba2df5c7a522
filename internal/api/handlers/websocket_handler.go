package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/okenna/dreamloom-be/internal/auth"
	ws "github.com/okenna/dreamloom-be/internal/websocket"
)

// WebSocketHandler upgrades connections to the per-user dream event feed.
type WebSocketHandler struct {
	hub    *ws.Hub
	tokens *auth.TokenIssuer
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(hub *ws.Hub, tokens *auth.TokenIssuer) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, tokens: tokens}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (consider tightening this in production).
		return true
	},
}

// Serve authenticates the caller and upgrades the connection. Browsers
// cannot set an Authorization header during the websocket handshake, so the
// bearer token is taken from the `token` query parameter instead.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	email, err := h.tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "Invalid authentication credentials", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, email)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
