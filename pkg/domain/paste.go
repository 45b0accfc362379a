package domain

import (
	"time"
)

const (
	DefaultTitle    = "Untitled"
	DefaultLanguage = "plaintext"
	MaxRecent       = 10
)

type Paste struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	Title     string     `json:"title"`
	Language  string     `json:"language,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Password  *string    `json:"-"`
}

// Protected reports whether reads must present a password.
func (p *Paste) Protected() bool {
	return p.Password != nil && *p.Password != ""
}

// Summary is the listing projection; content and password never leave the store through it.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateParams struct {
	Content  string
	Title    string
	Password string
	Language string
}
