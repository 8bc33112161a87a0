package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wkoster/smhconnect/internal/krypto"
)

var (
	// ErrTokenMalformed indicates the token is not a JWT at all.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrTokenInvalid indicates the signature does not match the payload.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired indicates a well-signed token that is past its expiry.
	ErrTokenExpired = errors.New("expired token")
)

// Claims is the verified payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserID returns the subject of the claims as a user ID.
func (c Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Tokens issues and verifies signed session tokens. Tokens are HMAC
// signed JWTs, they carry no server side state and cannot be revoked
// before their expiry.
type Tokens struct {
	key krypto.Key
	ttl time.Duration

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

// NewTokens creates a Tokens with the given signing key and time-to-live.
// The key is process-wide configuration, it is loaded once at startup and
// never mutated afterwards.
func NewTokens(key krypto.Key, ttl time.Duration) *Tokens {
	return &Tokens{
		key:     key,
		ttl:     ttl,
		NowFunc: time.Now,
	}
}

// Issue creates a signed token asserting the identity of the given user.
// The token is valid from now until now + ttl.
func (t *Tokens) Issue(u User) (string, error) {
	now := t.NowFunc().UTC()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Email: string(u.Email),
		Name:  u.Name,
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key.SecretValue())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return raw, nil
}

// Verify checks the signature and expiry of a raw token. It reports
// ErrTokenExpired distinctly from ErrTokenInvalid so callers can tell
// "please log in again" apart from a tampered token.
func (t *Tokens) Verify(raw string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims, func(_ *jwt.Token) (any, error) {
		return t.key.SecretValue(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.NowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}

	return claims, nil
}
