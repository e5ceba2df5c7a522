package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewEventMessage marshals an action/payload pair for the feed. Marshalling
// a Message never fails for the payload shapes the services produce; on the
// off chance it does, an empty frame is better than a dropped goroutine.
func NewEventMessage(action string, payload interface{}) []byte {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		return []byte(`{"action":"error","payload":"failed to encode message"}`)
	}
	return data
}
