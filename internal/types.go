package internal

import "time"

// RewriteRequest is one paper submitted for rewriting and/or humanizing.
type RewriteRequest struct {
	ID        string    `json:"id"`
	Paper     string    `json:"paper"`
	Strength  string    `json:"strength"`
	Timestamp time.Time `json:"timestamp"`
}
