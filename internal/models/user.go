package models

import "time"

// User represents a registered account. Email is the sole key and the
// identity claim embedded in bearer tokens; records are created once on
// signup and never updated or deleted.
type User struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	CreatedAt    time.Time `json:"createdAt"`
}
