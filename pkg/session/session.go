package session

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// Session is a reusable authenticated browsing context for one category.
// The pool exclusively owns and mutates its sessions; callers only pass
// them back into Navigate.
type Session struct {
	category string
	seedURL  string

	// http carries the authenticated cookie jar. One resty client per
	// session keeps cookies isolated between categories.
	http *resty.Client

	createdAt time.Time
	lastUsed  time.Time
	healthy   bool
	closed    bool
}

// Category returns the logical category this session serves.
func (s *Session) Category() string {
	return s.category
}

// Info is a read-only view of one live session, for metrics and debugging.
type Info struct {
	Category  string
	CreatedAt time.Time
	LastUsed  time.Time
	Healthy   bool
}

// Page is the outcome of one navigation: the rendered markup and the URL
// the request finally resolved to after redirects.
type Page struct {
	HTML     string
	FinalURL string
}
