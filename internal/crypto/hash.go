package crypto

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAlgorithm  = errors.New("unknown password hash algorithm")
	ErrInvalidHashFormat = errors.New("invalid encoded hash format")
)

// Hasher produces and checks one-way password digests. A mismatch is
// reported as (false, nil); an error means the stored hash is unreadable.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// NewHasher returns a Hasher that creates new hashes with the named
// algorithm and verifies stored hashes of either supported algorithm.
func NewHasher(algorithm string) (Hasher, error) {
	var primary Hasher
	switch algorithm {
	case "bcrypt":
		primary = NewBcryptHasher()
	case "argon2id":
		primary = NewArgon2idHasher(DefaultArgon2Params())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}

	return &multiHasher{
		primary: primary,
		bcrypt:  NewBcryptHasher(),
		argon:   NewArgon2idHasher(DefaultArgon2Params()),
	}, nil
}

type multiHasher struct {
	primary Hasher
	bcrypt  Hasher
	argon   Hasher
}

func (m *multiHasher) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *multiHasher) Verify(password, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return m.argon.Verify(password, encodedHash)
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		return m.bcrypt.Verify(password, encodedHash)
	default:
		return false, ErrInvalidHashFormat
	}
}
