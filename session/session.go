package session

import (
	"context"
	"errors"
	"time"

	"taskboard/models"
)

// ErrNoSession is returned by a Store when id is unknown or expired.
var ErrNoSession = errors.New("session not found")

// Session is the server-held state behind a session cookie.
type Session struct {
	ID       string `json:"id"`
	LoggedIn bool   `json:"logged_in"`
	UserID   *int64 `json:"user_id,omitempty"`
}

// Identity converts the session into the value the task and auth layers consume.
func (s Session) Identity() models.Identity {
	if !s.LoggedIn {
		return models.Identity{UserID: s.UserID}
	}
	return models.Identity{LoggedIn: true, UserID: s.UserID}
}

// Store keeps sessions by ID until their TTL runs out.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Close() error
}
