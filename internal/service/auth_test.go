package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendlog/spendlog-go/internal/crypto"
	"github.com/spendlog/spendlog-go/internal/events"
	"github.com/spendlog/spendlog-go/internal/model"
)

func TestRegister_Validation(t *testing.T) {
	svc := newAuth(t, openStore(t), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  model.CreateUserRequest
		want error
	}{
		{"empty email", model.CreateUserRequest{Email: "  ", Password: "pw"}, ErrEmailRequired},
		{"empty password", model.CreateUserRequest{Email: "a@example.com"}, ErrPasswordRequired},
		{"long name", model.CreateUserRequest{Email: "a@example.com", Password: "pw", Name: strings.Repeat("n", 101)}, ErrNameTooLong},
		{"long password", model.CreateUserRequest{Email: "a@example.com", Password: strings.Repeat("p", 73)}, ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegister_NormalizesAndIssuesToken(t *testing.T) {
	store := openStore(t)
	pub := &recorder{}
	svc := newAuth(t, store, pub)

	resp, err := svc.Register(context.Background(), model.CreateUserRequest{
		Name:     "  Alice  ",
		Email:    " Alice@Example.COM ",
		Password: "hunter22",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Alice", resp.User.Name)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.User.ID)

	stored, err := store.Users().GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", stored.PasswordHash)

	sub, err := crypto.NewTokenService("test-secret", time.Hour).Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, sub)

	assert.Equal(t, []string{events.UserRegistered}, pub.types())
}

func TestRegister_DuplicateIsCaseInsensitive(t *testing.T) {
	svc := newAuth(t, openStore(t), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, model.CreateUserRequest{Email: "bob@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, model.CreateUserRequest{Email: "BOB@example.com", Password: "other"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_PublishFailureIsIgnored(t *testing.T) {
	svc := newAuth(t, openStore(t), &recorder{err: errPublish})

	_, err := svc.Register(context.Background(), model.CreateUserRequest{Email: "c@example.com", Password: "pw"})
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc := newAuth(t, openStore(t), nil)
	ctx := context.Background()

	registered, err := svc.Register(ctx, model.CreateUserRequest{Name: "Dee", Email: "dee@example.com", Password: "correct"})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		resp, err := svc.Login(ctx, model.LoginRequest{Email: "DEE@example.com", Password: "correct"})
		require.NoError(t, err)
		assert.Equal(t, registered.User, resp.User)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, model.LoginRequest{Email: "dee@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, model.LoginRequest{Email: "nobody@example.com", Password: "correct"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Login(ctx, model.LoginRequest{Email: "dee@example.com"})
		assert.ErrorIs(t, err, ErrCredentialsRequired)

		_, err = svc.Login(ctx, model.LoginRequest{Password: "correct"})
		assert.ErrorIs(t, err, ErrCredentialsRequired)
	})
}

func TestResolveAndMe(t *testing.T) {
	svc := newAuth(t, openStore(t), nil)
	ctx := context.Background()

	resp, err := svc.Register(ctx, model.CreateUserRequest{Name: "Eve", Email: "eve@example.com", Password: "pw"})
	require.NoError(t, err)

	identity, err := svc.Resolve(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Identity{ID: resp.User.ID, Email: "eve@example.com", Name: "Eve"}, identity)

	me, err := svc.Me(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.User, me)

	_, err = svc.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Me(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
