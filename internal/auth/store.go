package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/wkoster/smhconnect/internal/email"
)

// UserFilter is used to filter users.
// Returned users must match all the provided fields.
// If a field is empty, it's ignored.
type UserFilter struct {
	IDs    []uuid.UUID
	Emails []email.Address
}

// Store provides access to the user store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a transaction. If an error occurs on any of the Create/Update/
// Delete/Find methods, the transaction is considered to have failed and
// should be rolled back. Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateUser(u *User) error
	UpdateUser(u *User) error
	DeleteUser(id uuid.UUID) error
	FindUsers(filter *UserFilter) ([]User, error)
}
