package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultUserClass is the access tier assigned to every new account.
const DefaultUserClass = "base"

type User struct {
	ID         uuid.UUID
	Email      string
	FirstName  string
	LastName   string
	PassHash   string
	UserClass  string
	IsVerified bool
	CreatedAt  time.Time
}

// PublicUser is the user representation returned to clients.
// PassHash never leaves the service.
type PublicUser struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

// TokenPayload is the identity assertion carried inside an access token.
type TokenPayload struct {
	UserID string
	Scopes []string
}

const (
	PurposeVerification  = "email_verification"
	PurposePasswordReset = "password_reset"
)

// Message is the payload published to the mail queue.
type Message struct {
	Email     string `json:"to"`
	FirstName string `json:"first_name"`
	Code      string `json:"code"`
	Purpose   string `json:"purpose"`
}
