package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/wkoster/smhconnect/internal/email"
	"github.com/wkoster/smhconnect/internal/krypto"
)

// User contains the data for a user.
type User struct {
	ID           uuid.UUID
	Email        email.Address
	Name         string
	PasswordHash krypto.Argon2Hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Registration is the input needed to create a new user.
type Registration struct {
	Name     string
	Email    email.Address
	Password Password
}

// Credentials is the transient email/password pair used during login.
// It is never persisted.
type Credentials struct {
	Email    email.Address
	Password Password
}

// UserPatch describes a partial update of a user. Nil fields are left
// untouched.
type UserPatch struct {
	Name     *string
	Email    *email.Address
	Password *Password
}
