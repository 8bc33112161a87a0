package krypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Default argon2id parameters. These follow the OWASP recommendation of
// one iteration with 46MiB of memory.
const (
	argonVariant     = "argon2id"
	argonMemoryKiB   = 47104
	argonIterations  = 1
	argonParallelism = 1
	argonSaltLen     = 16
	argonKeyLen      = 32
)

// ErrInvalidInput indicates the input could not be hashed or parsed.
var ErrInvalidInput = errors.New("invalid input")

// Argon2Hash is the parsed representation of an argon2id hash in the
// standard encoded form:
//
//	$argon2id$v=19$m=47104,t=1,p=1$<base64 salt>$<base64 hash>
//
// The salt and hash are encoded as raw (unpadded) standard base64.
type Argon2Hash struct {
	Variant     string
	Version     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte
}

// HashArgon2 hashes data using argon2id with a random salt and the
// default parameters.
func HashArgon2(data []byte) (Argon2Hash, error) {
	if len(data) == 0 {
		return Argon2Hash{}, fmt.Errorf("%w: no data to hash", ErrInvalidInput)
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return Argon2Hash{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey(data, salt, argonIterations, argonMemoryKiB, argonParallelism, argonKeyLen)

	return Argon2Hash{
		Variant:     argonVariant,
		Version:     argon2.Version,
		MemoryKiB:   argonMemoryKiB,
		Iterations:  argonIterations,
		Parallelism: argonParallelism,
		Salt:        salt,
		Hash:        hash,
	}, nil
}

// ParseArgon2Hash parses a hash in the standard encoded form. It only
// accepts the argon2id variant with a version matching the version of
// the underlying argon2 package.
func ParseArgon2Hash(raw string) (Argon2Hash, error) {
	parts := strings.Split(raw, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Argon2Hash{}, fmt.Errorf("%w: wrong number of segments", ErrInvalidInput)
	}

	if parts[1] != argonVariant {
		return Argon2Hash{}, fmt.Errorf("%w: unsupported variant %q", ErrInvalidInput, parts[1])
	}

	var h Argon2Hash
	h.Variant = parts[1]

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return Argon2Hash{}, fmt.Errorf("%w: missing version", ErrInvalidInput)
	}

	v, err := strconv.Atoi(version)
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: non-numeric version", ErrInvalidInput)
	}

	if v != argon2.Version {
		return Argon2Hash{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidInput, v)
	}
	h.Version = v

	for _, param := range strings.Split(parts[3], ",") {
		key, val, ok := strings.Cut(param, "=")
		if !ok {
			return Argon2Hash{}, fmt.Errorf("%w: malformed parameter %q", ErrInvalidInput, param)
		}

		n, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return Argon2Hash{}, fmt.Errorf("%w: non-numeric parameter %q", ErrInvalidInput, param)
		}

		switch key {
		case "m":
			h.MemoryKiB = uint32(n)
		case "t":
			h.Iterations = uint32(n)
		case "p":
			if n > 255 {
				return Argon2Hash{}, fmt.Errorf("%w: parallelism out of range", ErrInvalidInput)
			}
			h.Parallelism = uint8(n)
		default:
			return Argon2Hash{}, fmt.Errorf("%w: unknown parameter %q", ErrInvalidInput, key)
		}
	}

	h.Salt, err = base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: salt is not valid base64", ErrInvalidInput)
	}

	h.Hash, err = base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: hash is not valid base64", ErrInvalidInput)
	}

	return h, nil
}

// MatchBytes re-hashes data using the parameters and salt embedded in h
// and compares the result to the stored hash in constant time.
func (h Argon2Hash) MatchBytes(data []byte) bool {
	other := argon2.IDKey(data, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, uint32(len(h.Hash)))
	return subtle.ConstantTimeCompare(h.Hash, other) == 1
}

func (h Argon2Hash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		h.Variant,
		h.Version,
		h.MemoryKiB,
		h.Iterations,
		h.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Hash),
	)
}

func (h Argon2Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Argon2Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseArgon2Hash(string(text))
	if err != nil {
		return err
	}

	*h = parsed

	return nil
}

// Scan implements sql.Scanner so hashes can be read directly from
// database rows.
func (h *Argon2Hash) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return h.UnmarshalText([]byte(v))
	case []byte:
		return h.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Argon2Hash", src)
	}
}
