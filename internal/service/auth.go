package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spendlog/spendlog-go/internal/crypto"
	"github.com/spendlog/spendlog-go/internal/events"
	"github.com/spendlog/spendlog-go/internal/logging"
	"github.com/spendlog/spendlog-go/internal/model"
	"github.com/spendlog/spendlog-go/internal/repository"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrCredentialsRequired = errors.New("email and password are required")
	ErrEmailRequired       = errors.New("email is required")
	ErrPasswordRequired    = errors.New("password is required")
	ErrPasswordTooLong     = errors.New("password is too long")
	ErrNameTooLong         = errors.New("name is too long")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUserNotFound        = errors.New("user not found")
)

// dummyPassword is hashed once and verified against when a login names an
// unknown email, so both failure paths pay for one verification.
const dummyPassword = "spendlog-timing-equalizer"

// AuthService handles registration, login and identity resolution.
type AuthService struct {
	users     repository.UserStore
	hasher    crypto.Hasher
	tokens    *crypto.TokenService
	publisher events.Publisher

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService. A nil publisher drops events.
func NewAuthService(users repository.UserStore, hasher crypto.Hasher, tokens *crypto.TokenService, publisher events.Publisher) *AuthService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		publisher: publisher,
	}
}

// Register creates a new user account and returns an auth token.
func (s *AuthService) Register(ctx context.Context, req model.CreateUserRequest) (model.AuthResponse, error) {
	email := model.NormalizeEmail(req.Email)
	if email == "" {
		return model.AuthResponse{}, ErrEmailRequired
	}
	if req.Password == "" {
		return model.AuthResponse{}, ErrPasswordRequired
	}
	name, ok := model.NormalizeName(req.Name)
	if !ok {
		return model.AuthResponse{}, ErrNameTooLong
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return model.AuthResponse{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return model.AuthResponse{}, fmt.Errorf("look up email: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooLong) {
			return model.AuthResponse{}, ErrPasswordTooLong
		}
		return model.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}

	// The lookup above races with concurrent registrations; the unique
	// index settles it.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, ErrEmailTaken
		}
		return model.AuthResponse{}, fmt.Errorf("create user: %w", err)
	}

	resp, err := s.authResponse(user)
	if err != nil {
		return model.AuthResponse{}, err
	}

	publish(ctx, s.publisher, events.New(events.UserRegistered, user.ID, user.ID), logging.FieldUserID, user.ID)
	return resp, nil
}

// Login authenticates a user and returns an auth token. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	email := model.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return model.AuthResponse{}, ErrCredentialsRequired
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.verifyDummy(req.Password)
			return model.AuthResponse{}, ErrInvalidCredentials
		}
		return model.AuthResponse{}, fmt.Errorf("look up email: %w", err)
	}

	match, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return model.AuthResponse{}, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	return s.authResponse(user)
}

// Resolve loads the identity behind a verified token subject.
func (s *AuthService) Resolve(ctx context.Context, userID string) (model.Identity, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.Identity{}, ErrUserNotFound
		}
		return model.Identity{}, fmt.Errorf("resolve user: %w", err)
	}
	return user.Identity(), nil
}

// Me returns the public view of a user.
func (s *AuthService) Me(ctx context.Context, userID string) (model.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, ErrUserNotFound
		}
		return model.UserResponse{}, err
	}
	return user.Public(), nil
}

func (s *AuthService) authResponse(user *model.User) (model.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return model.AuthResponse{}, fmt.Errorf("issue token: %w", err)
	}
	return model.AuthResponse{Token: token, User: user.Public()}, nil
}

func (s *AuthService) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			slog.Error("hash dummy password", logging.FieldComponent, logging.ComponentAuth, logging.FieldError, err)
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		s.hasher.Verify(password, s.dummyHash)
	}
}

// publish delivers event best-effort; a failure is logged only, tagged
// with attrs.
func publish(ctx context.Context, p events.Publisher, event events.Event, attrs ...any) {
	if err := p.Publish(ctx, event); err != nil {
		args := []any{
			logging.FieldComponent, logging.ComponentEvents,
			"event", event.Type,
			logging.FieldError, err,
		}
		slog.WarnContext(ctx, "publish event failed", append(args, attrs...)...)
	}
}
