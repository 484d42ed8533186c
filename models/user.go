package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the request-scoped view of the session that every core call receives.
type Identity struct {
	LoggedIn bool
	UserID   *int64
}

// Anonymous is the identity of a request with no session.
var Anonymous = Identity{}

// UserIdentity returns the identity of a logged-in user.
func UserIdentity(id int64) Identity {
	return Identity{LoggedIn: true, UserID: &id}
}
