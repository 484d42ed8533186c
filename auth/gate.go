package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"taskboard/models"
	"taskboard/utilities"
)

// UserStore is the persistence the gate needs. CreateUser must enforce email
// uniqueness itself and report a clash as models.ErrDuplicateEmail.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// maxEmailLength matches the width of the users.email column.
const maxEmailLength = 120

// Gate checks credentials and creates accounts.
type Gate struct {
	users  UserStore
	hasher Hasher
	now    func() time.Time
}

func NewGate(users UserStore, hasher Hasher) *Gate {
	return &Gate{users: users, hasher: hasher, now: time.Now}
}

// Authenticate returns the user owning email if password matches. Unknown
// emails and wrong passwords both yield models.ErrInvalidCredentials.
func (g *Gate) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.User{}, models.ErrInvalidCredentials
	}

	u, err := g.users.GetUserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		utilities.LogDebug("login for unknown email %s", email)
		return models.User{}, models.ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if !g.hasher.Verify(password, u.PasswordHash) {
		utilities.LogDebug("bad password for user %d", u.ID)
		return models.User{}, models.ErrInvalidCredentials
	}
	return u, nil
}

// Register validates the form, hashes the password and stores a new user.
func (g *Gate) Register(ctx context.Context, email, password, confirm string) (models.User, error) {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return models.User{}, &models.ValidationError{Field: "email", Message: "email is required"}
	case utf8.RuneCountInString(email) > maxEmailLength:
		return models.User{}, &models.ValidationError{Field: "email", Message: fmt.Sprintf("email must be at most %d characters", maxEmailLength)}
	case password == "":
		return models.User{}, &models.ValidationError{Field: "password", Message: "password is required"}
	case confirm == "":
		return models.User{}, &models.ValidationError{Field: "confirm", Message: "please confirm the password"}
	case password != confirm:
		return models.User{}, &models.ValidationError{Field: "confirm", Message: "passwords do not match"}
	case len(password) > maxPasswordBytes:
		return models.User{}, &models.ValidationError{Field: "password", Message: fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes)}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return models.User{}, &models.ValidationError{Field: "email", Message: "invalid email address"}
	}

	hash, err := g.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := models.User{Email: email, PasswordHash: hash, CreatedAt: g.now()}
	if err := g.users.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			return models.User{}, models.ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	utilities.LogInfo("Registered user %d", u.ID)
	return u, nil
}
