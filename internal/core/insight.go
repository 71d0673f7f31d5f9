package core

import "time"

// Insight is a stored answer to a spending question, produced by the insight
// generator over the user's expense history.
type Insight struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Query     string    `json:"query"`
	Content   string    `json:"content"`
	Tags      string    `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Budget is a monthly spending limit. Month uses the "2006-01" form.
type Budget struct {
	UserID string  `json:"user_id,omitempty"`
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}
