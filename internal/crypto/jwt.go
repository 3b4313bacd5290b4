package crypto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "spendlog"
	tokenAudience = "spendlog-api"
)

// ErrInvalidToken matches every *TokenError.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenErrorKind says why a token was rejected.
type TokenErrorKind string

const (
	TokenMalformed TokenErrorKind = "malformed"
	TokenSignature TokenErrorKind = "signature"
	TokenExpired   TokenErrorKind = "expired"
	TokenClaims    TokenErrorKind = "claims"
)

// TokenError is returned by TokenService.Verify. Callers reject every kind
// the same way; the kind exists for logs.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	return "token " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *TokenError) Unwrap() error { return e.Err }

func (e *TokenError) Is(target error) bool { return target == ErrInvalidToken }

// TokenService issues and verifies HS256 bearer tokens. The secret and TTL
// are fixed for the life of the process.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token whose subject is userID.
func (s *TokenService) Issue(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   userID,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature, issuer, audience and expiry and returns the
// subject. Failures are *TokenError.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", &TokenError{Kind: classify(err), Err: err}
	}

	if claims.Subject == "" {
		return "", &TokenError{Kind: TokenClaims, Err: jwt.ErrTokenRequiredClaimMissing}
	}

	return claims.Subject, nil
}

func classify(err error) TokenErrorKind {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return TokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return TokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return TokenExpired
	default:
		return TokenClaims
	}
}
