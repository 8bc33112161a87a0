package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wkoster/smhconnect/internal/email"
	"github.com/wkoster/smhconnect/internal/errorz"
	"github.com/wkoster/smhconnect/internal/krypto"
)

var (
	// ErrDuplicateUser indicates a user with the same email already exists.
	ErrDuplicateUser = errors.New("duplicate user")
	// ErrNoSuchUser indicates no user matched the provided email.
	ErrNoSuchUser = errors.New("no such user")
	// ErrWrongPassword indicates the user exists but the password did not match.
	ErrWrongPassword = errors.New("wrong password")
)

// Service provides the main rules for user management and
// authentication.
type Service struct {
	store  Store
	tokens *Tokens

	// comparisonHash is used to compare passwords when no user was found.
	comparisonHash krypto.Argon2Hash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, tokens *Tokens) (*Service, error) {
	// Hash a random value once, so login attempts for unknown emails
	// still pay the cost of a password comparison.
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}

	hash, err := krypto.HashArgon2(buf)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:          s,
		tokens:         tokens,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}, nil
}

// RegisterUser creates a new user with the provided registration data.
// It returns ErrDuplicateUser if a user with the same email already
// exists. Emails are compared case-insensitively because addresses are
// lowercased on parse.
func (s *Service) RegisterUser(ctx context.Context, reg Registration) (User, error) {
	pwdHash, err := reg.Password.Hash()
	if err != nil {
		return User{}, err
	}

	now := s.NowFunc()

	user := User{
		ID:           uuid.New(),
		Email:        reg.Email,
		Name:         reg.Name,
		PasswordHash: pwdHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.inTx(ctx, func(tx Tx) error {
		users, txErr := tx.FindUsers(&UserFilter{
			Emails: []email.Address{user.Email},
		})
		if txErr != nil {
			return txErr
		}

		if len(users) > 0 {
			return ErrDuplicateUser
		}

		return tx.CreateUser(&user)
	})
	if err != nil {
		// Concurrent registrations for the same email race past the
		// FindUsers check, the unique index on the email column decides
		// the winner.
		if errors.Is(err, errorz.ErrConstraintViolated) {
			return User{}, ErrDuplicateUser
		}
		return User{}, err
	}

	return user, nil
}

// ListUsers returns all users ordered by creation time.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := s.inTx(ctx, func(tx Tx) error {
		var txErr error
		users, txErr = tx.FindUsers(&UserFilter{})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}

// GetUser returns the user with the provided ID. It returns
// errorz.ErrNotFound if no such user exists.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	var user User
	err := s.inTx(ctx, func(tx Tx) error {
		var txErr error
		user, txErr = findUser(tx, id)
		return txErr
	})
	if err != nil {
		return User{}, err
	}

	return user, nil
}

// UpdateUser applies the patch to the user with the provided ID. A
// password in the patch is re-hashed, the stored hash is left untouched
// otherwise. It returns errorz.ErrNotFound if no such user exists and
// ErrDuplicateUser if the patch email belongs to another user.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, patch UserPatch) (User, error) {
	var user User
	err := s.inTx(ctx, func(tx Tx) error {
		var txErr error
		user, txErr = findUser(tx, id)
		if txErr != nil {
			return txErr
		}

		if patch.Name != nil {
			user.Name = *patch.Name
		}

		if patch.Email != nil {
			user.Email = *patch.Email
		}

		if patch.Password != nil {
			hash, hashErr := patch.Password.Hash()
			if hashErr != nil {
				return hashErr
			}
			user.PasswordHash = hash
		}

		user.UpdatedAt = s.NowFunc()

		return tx.UpdateUser(&user)
	})
	if err != nil {
		if errors.Is(err, errorz.ErrConstraintViolated) {
			return User{}, ErrDuplicateUser
		}
		return User{}, err
	}

	return user, nil
}

// DeleteUser removes the user with the provided ID and returns the
// removed record. It returns errorz.ErrNotFound if no such user exists.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) (User, error) {
	var user User
	err := s.inTx(ctx, func(tx Tx) error {
		var txErr error
		user, txErr = findUser(tx, id)
		if txErr != nil {
			return txErr
		}

		return tx.DeleteUser(id)
	})
	if err != nil {
		return User{}, err
	}

	return user, nil
}

// Login checks the provided credentials and issues a session token on
// success. It returns ErrNoSuchUser when the email is unknown and
// ErrWrongPassword when the password does not match the stored hash.
func (s *Service) Login(ctx context.Context, c Credentials) (User, string, error) {
	var users []User
	err := s.inTx(ctx, func(tx Tx) error {
		var txErr error
		users, txErr = tx.FindUsers(&UserFilter{
			Emails: []email.Address{c.Email},
		})
		return txErr
	})
	if err != nil {
		return User{}, "", err
	}

	if len(users) != 1 {
		// Even if no user is found we compare to a hash to prevent timing
		// differences that could result in user enumeration attacks.
		_ = c.Password.Match(s.comparisonHash)
		return User{}, "", ErrNoSuchUser
	}

	user := users[0]

	if !c.Password.Match(user.PasswordHash) {
		return User{}, "", ErrWrongPassword
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return User{}, "", err
	}

	return user, token, nil
}

func findUser(tx Tx, id uuid.UUID) (User, error) {
	users, err := tx.FindUsers(&UserFilter{
		IDs: []uuid.UUID{id},
	})
	if err != nil {
		return User{}, err
	}

	if len(users) != 1 {
		return User{}, fmt.Errorf("user %s: %w", id, errorz.ErrNotFound)
	}

	return users[0], nil
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	return nil
}
