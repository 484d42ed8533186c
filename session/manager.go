package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"taskboard/utilities"
)

// Manager ties a Store to the session cookie.
type Manager struct {
	store      Store
	cookieName string
	secure     bool
	ttl        time.Duration
}

func NewManager(store Store, cookieName string, secure bool, ttl time.Duration) *Manager {
	return &Manager{store: store, cookieName: cookieName, secure: secure, ttl: ttl}
}

// Load returns the session named by the request cookie. A missing, unknown
// or expired session yields a fresh, logged-out Session with no ID.
func (m *Manager) Load(r *http.Request) (Session, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return Session{}, nil
	}
	s, err := m.store.Get(r.Context(), c.Value)
	if errors.Is(err, ErrNoSession) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// Save persists s, assigning an ID first if it has none, and refreshes the cookie.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if err := m.store.Save(ctx, *s, m.ttl); err != nil {
		return err
	}
	http.SetCookie(w, m.cookie(s.ID, int(m.ttl.Seconds())))
	return nil
}

// Login marks s as belonging to userID under a new ID, dropping the old one.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, s *Session, userID int64) error {
	if s.ID != "" {
		if err := m.store.Delete(ctx, s.ID); err != nil {
			utilities.LogWarn("dropping pre-login session: %v", err)
		}
	}
	id := userID
	*s = Session{ID: uuid.NewString(), LoggedIn: true, UserID: &id}
	return m.Save(ctx, w, s)
}

// Destroy deletes s from the store and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s.ID != "" {
		if err := m.store.Delete(ctx, s.ID); err != nil {
			return err
		}
	}
	*s = Session{}
	http.SetCookie(w, m.cookie("", -1))
	return nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
