package crypto

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty string")
	}

	subject, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if subject != "user-42" {
		t.Errorf("Verify() subject = %q, want %q", subject, "user-42")
	}
}

func TestIssueEmbedsExpiry(t *testing.T) {
	issued := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService("test-secret", 7*24*time.Hour)
	svc.now = func() time.Time { return issued }

	token, err := svc.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("ParseUnverified() unexpected error: %v", err)
	}
	if !claims.IssuedAt.Time.Equal(issued) {
		t.Errorf("iat = %v, want %v", claims.IssuedAt.Time, issued)
	}
	if want := issued.Add(7 * 24 * time.Hour); !claims.ExpiresAt.Time.Equal(want) {
		t.Errorf("exp = %v, want %v", claims.ExpiresAt.Time, want)
	}
}

func assertKind(t *testing.T, err error, want TokenErrorKind) {
	t.Helper()

	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("error = %v, want it to match ErrInvalidToken", err)
	}
	var tokenErr *TokenError
	if !errors.As(err, &tokenErr) {
		t.Fatalf("error = %T, want *TokenError", err)
	}
	if tokenErr.Kind != want {
		t.Errorf("kind = %q, want %q", tokenErr.Kind, want)
	}
}

func TestVerifyMalformed(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	for _, token := range []string{"", "not-a-valid-token", "a.b.c"} {
		_, err := svc.Verify(token)
		assertKind(t, err, TokenMalformed)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := NewTokenService("correct-secret", time.Hour).Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	_, err = NewTokenService("wrong-secret", time.Hour).Verify(token)
	assertKind(t, err, TokenSignature)
}

func TestVerifyTamperedPayload(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	victim, err := svc.Issue("user-a")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}
	other, err := svc.Issue("user-b")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	// Splice user-b's payload onto user-a's signature.
	v := strings.Split(victim, ".")
	o := strings.Split(other, ".")
	forged := v[0] + "." + o[1] + "." + v[2]

	_, err = svc.Verify(forged)
	assertKind(t, err, TokenSignature)
}

func TestVerifyUnsignedToken(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "user-1",
		Audience:  jwt.ClaimStrings{tokenAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() unexpected error: %v", err)
	}

	_, err = NewTokenService("test-secret", time.Hour).Verify(token)
	assertKind(t, err, TokenSignature)
}

func TestVerifyExpired(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	issued := time.Now()
	svc.now = func() time.Time { return issued }

	token, err := svc.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(time.Hour + time.Minute) }
	_, err = svc.Verify(token)
	assertKind(t, err, TokenExpired)
}

func TestVerifyWrongIssuerAndAudience(t *testing.T) {
	secret := "test-secret"

	tests := []struct {
		name     string
		issuer   string
		audience string
	}{
		{name: "issuer", issuer: "someone-else", audience: tokenAudience},
		{name: "audience", issuer: tokenIssuer, audience: "other-api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := jwt.RegisteredClaims{
				Issuer:    tt.issuer,
				Subject:   "user-1",
				Audience:  jwt.ClaimStrings{tt.audience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
			if err != nil {
				t.Fatalf("SignedString() unexpected error: %v", err)
			}

			_, err = NewTokenService(secret, time.Hour).Verify(token)
			assertKind(t, err, TokenClaims)
		})
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	token, err := NewTokenService("test-secret", time.Hour).Issue("")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	_, err = NewTokenService("test-secret", time.Hour).Verify(token)
	assertKind(t, err, TokenClaims)
}
