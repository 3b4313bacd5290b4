// Package client is a Go client for the spendlog HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spendlog/spendlog-go/internal/model"
)

const (
	DefaultBaseURL = "http://localhost:3000/api/v2"
	DefaultTimeout = 10 * time.Second
)

var (
	ErrTimeout      = errors.New("Request timed out. Please try again.")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx response. A 401 also matches ErrUnauthorized.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Client calls the API with the bearer token from its TokenStore.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithTokenStore sets where the session token lives.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

// New creates a Client for baseURL, or DefaultBaseURL when it is empty.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		tokens:  &MemoryStore{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Count   int             `json:"count"`
	Data    json.RawMessage `json:"data"`
}

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, name, email, password string) (*model.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/register", model.CreateUserRequest{Name: name, Email: email, Password: password})
}

// Login signs in and stores the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", model.LoginRequest{Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if err := c.tokens.SetToken(resp.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return &resp, nil
}

// Logout forgets the session token. The server keeps no session state.
func (c *Client) Logout() error {
	return c.tokens.Clear()
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*model.UserResponse, error) {
	var user model.UserResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListExpenses returns the caller's expenses, newest first.
func (c *Client) ListExpenses(ctx context.Context) ([]model.Expense, error) {
	var expenses []model.Expense
	if err := c.do(ctx, http.MethodGet, "/expense", nil, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// CreateExpense stores a new expense.
func (c *Client) CreateExpense(ctx context.Context, req model.CreateExpenseRequest) (*model.Expense, error) {
	var expense model.Expense
	if err := c.do(ctx, http.MethodPost, "/expense", req, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

// UpdateExpense changes the supplied fields of an expense.
func (c *Client) UpdateExpense(ctx context.Context, id string, req model.UpdateExpenseRequest) (*model.Expense, error) {
	var expense model.Expense
	if err := c.do(ctx, http.MethodPut, "/expense/"+url.PathEscape(id), req, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

// DeleteExpense removes an expense.
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/expense/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return ErrTimeout
		}
		return err
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Message}
		if resp.StatusCode == http.StatusUnauthorized {
			// Any 401 ends the session.
			if err := c.tokens.Clear(); err != nil {
				return errors.Join(apiErr, fmt.Errorf("clear token: %w", err))
			}
		}
		return apiErr
	}

	if decodeErr != nil {
		if isTimeout(decodeErr) {
			return ErrTimeout
		}
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
