package models

import "time"

// Dream is a single journal entry: the user's raw text plus the restyled
// first-person narrative produced by the language model.
type Dream struct {
	ID             string    `json:"id"`
	UserEmail      string    `json:"-"`
	Text           string    `json:"-"` // raw submission, never returned in listings
	StructuredText string    `json:"content"`
	ImageURL       *string   `json:"imageUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Digest is a stored collective narrative woven from every dream a user had
// recorded at generation time.
type Digest struct {
	ID         string    `json:"id"`
	UserEmail  string    `json:"-"`
	Narrative  string    `json:"narrative"`
	DreamCount int       `json:"dreamCount"`
	CreatedAt  time.Time `json:"createdAt"`
}
