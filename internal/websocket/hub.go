package websocket

import "github.com/rs/zerolog/log"

// Hub maintains the set of active clients and routes dream events to the
// user each event belongs to.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Targeted messages produced by the services.
	deliveries chan delivery

	// A map of user emails to the set of clients subscribed to them. A user
	// may hold several connections (multiple tabs or devices).
	subscriptions map[string]map[*Client]bool
}

type delivery struct {
	email   string
	message []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		deliveries:    make(chan delivery, 64),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client)
			log.Info().Int("total_clients", len(h.clients)).Str("user", client.Email).Msg("Feed client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Str("user", client.Email).Msg("Feed client disconnected")
			}
		case d := <-h.deliveries:
			for client := range h.subscriptions[d.email] {
				select {
				case client.Send <- d.message:
				default:
					// Slow consumer; drop it rather than block the hub.
					h.drop(client)
				}
			}
		}
	}
}

// NotifyUser queues a message for every connection the user holds. Safe to
// call from any goroutine; messages are discarded if the hub's queue is full.
func (h *Hub) NotifyUser(email, action string, payload interface{}) {
	select {
	case h.deliveries <- delivery{email: email, message: NewEventMessage(action, payload)}:
	default:
		log.Warn().Str("user", email).Str("action", action).Msg("Feed delivery queue full, dropping message")
	}
}

func (h *Hub) addSubscription(client *Client) {
	if h.subscriptions[client.Email] == nil {
		h.subscriptions[client.Email] = make(map[*Client]bool)
	}
	h.subscriptions[client.Email][client] = true
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	if subs, ok := h.subscriptions[client.Email]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.Email)
		}
	}
}
