// Package identity signs sellers and buyers in and out and broadcasts who is signed in.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/artista-service/internal/model"
)

type Reason string

const (
	ReasonUserNotFound      Reason = "user-not-found"
	ReasonWrongPassword     Reason = "wrong-password"
	ReasonInvalidCredential Reason = "invalid-credential"
	ReasonEmailInUse        Reason = "email-already-in-use"
	ReasonInvalidEmail      Reason = "invalid-email"
	ReasonWeakPassword      Reason = "weak-password"
	ReasonTooManyRequests   Reason = "too-many-requests"
	ReasonNetwork           Reason = "network-request-failed"
	ReasonUnexpected        Reason = "unexpected"
)

// MessageID is the i18n key shown to the user for r. Credential failures share one
// message so the response does not reveal which accounts exist.
func (r Reason) MessageID() string {
	switch r {
	case ReasonUserNotFound, ReasonWrongPassword, ReasonInvalidCredential:
		return "auth.invalid_credentials"
	case ReasonEmailInUse:
		return "auth.email_in_use"
	case ReasonInvalidEmail:
		return "auth.invalid_email"
	case ReasonWeakPassword:
		return "auth.weak_password"
	case ReasonTooManyRequests:
		return "auth.too_many_requests"
	case ReasonNetwork:
		return "auth.network"
	default:
		return "auth.unexpected"
	}
}

// Error is an identity failure with its taxonomy reason.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Reason) + ": " + e.Err.Error()
	}
	return string(e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same reason.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == e.Reason
}

func Fail(reason Reason, err error) error {
	return &Error{Reason: reason, Err: err}
}

// ReasonOf extracts the reason of err, or ReasonUnexpected.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonUnexpected
}

var ErrEmailTaken = errors.New("email already registered")

type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type Repository interface {
	// CreateUser returns ErrEmailTaken when the email is registered.
	CreateUser(ctx context.Context, u *User) error
	// FindByEmail returns nil when no user has email.
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// Session is the result of a successful sign-in or sign-up.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Principal model.Principal `json:"principal"`
}

type UseCase interface {
	SignUp(ctx context.Context, email, password, name string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	// Verify resolves a bearer token into the signed-in principal.
	Verify(ctx context.Context, token string) (model.Principal, error)
}

// ProfileSeeder stores the profile of a new account.
type ProfileSeeder interface {
	SaveProfile(ctx context.Context, p *model.UserProfile) error
}
