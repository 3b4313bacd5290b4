package crypto

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	MinPasswordLength = 12
	MaxPasswordLength = 72
)

var ErrPasswordLength = errors.New("generated password length must be between 12 and 72")

var passwordClasses = []string{
	"ABCDEFGHJKLMNPQRSTUVWXYZ",
	"abcdefghijkmnopqrstuvwxyz",
	"23456789",
	"!@#$%^&*-_=+?",
}

// RandomPassword returns a password of the given length drawn from
// crypto/rand with at least one character of every class. Look-alike
// characters (0/O, 1/l/I) are left out.
func RandomPassword(length int) (string, error) {
	if length < MinPasswordLength || length > MaxPasswordLength {
		return "", ErrPasswordLength
	}

	var pool string
	for _, class := range passwordClasses {
		pool += class
	}

	out := make([]byte, length)
	for i := range out {
		charset := pool
		if i < len(passwordClasses) {
			charset = passwordClasses[i]
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		out[i] = charset[n.Int64()]
	}

	// Fisher-Yates so the guaranteed characters are not always in front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}

	return string(out), nil
}
