package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendlog/spendlog-go/internal/crypto"
	"github.com/spendlog/spendlog-go/internal/handler"
	"github.com/spendlog/spendlog-go/internal/repository"
	"github.com/spendlog/spendlog-go/internal/service"
)

type cli struct {
	t        *testing.T
	baseArgs []string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	store, err := repository.Open(context.Background(), repository.Options{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "spendctl.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	hasher, err := crypto.NewHasher("bcrypt")
	require.NoError(t, err)
	tokens := crypto.NewTokenService("spendctl-test-secret", time.Hour)

	srv := httptest.NewServer(handler.NewRouter(handler.Deps{
		Auth:     service.NewAuthService(store.Users(), hasher, tokens, nil),
		Expenses: service.NewExpenseService(store.Expenses(), nil),
		Tokens:   tokens,
	}))
	t.Cleanup(srv.Close)

	return &cli{
		t:        t,
		baseArgs: []string{"-url", srv.URL + "/api/v2", "-token-file", filepath.Join(t.TempDir(), "token")},
	}
}

func (c *cli) run(args ...string) (string, error) {
	stdout := new(bytes.Buffer)
	err := run(append(append([]string{}, c.baseArgs...), args...), new(bytes.Buffer), stdout, new(bytes.Buffer))
	return stdout.String(), err
}

func TestRun_Workflow(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("register", "-email", "alice@example.com", "-name", "Alice", "-password", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered and logged in as alice@example.com")

	out, err = c.run("list")
	require.NoError(t, err)
	assert.Contains(t, out, "No expenses")

	out, err = c.run("add", "-description", "Groceries", "-amount", "42.5", "-category", "Food", "-date", "2024-01-15")
	require.NoError(t, err)
	m := regexp.MustCompile(`Added (\S+) \(42\.50 Food\)`).FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	out, err = c.run("edit", id, "-amount", "40", "-notes", "discounted")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated "+id+" (40.00 Food)")

	out, err = c.run("list")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-01-15")
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "40.00")

	out, err = c.run("rm", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+id)

	_, err = c.run("rm", id)
	require.Error(t, err)
	assert.Equal(t, "Not Found", err.Error())

	_, err = c.run("logout")
	require.NoError(t, err)

	_, err = c.run("list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log in again")
}

func TestRun_ListCategoryAndSummary(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("register", "-email", "carol@example.com", "-password", "pw")
	require.NoError(t, err)

	for _, args := range [][]string{
		{"-description", "Groceries", "-amount", "42.50", "-category", "Food", "-date", "2024-01-15"},
		{"-description", "Train", "-amount", "100", "-category", "Travel", "-date", "2024-01-16"},
		{"-description", "Coffee", "-amount", "10.01", "-category", "Food", "-date", "2024-01-17"},
	} {
		_, err := c.run(append([]string{"add"}, args...)...)
		require.NoError(t, err)
	}

	out, err := c.run("list", "-category", "Food")
	require.NoError(t, err)
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "Coffee")
	assert.NotContains(t, out, "Train")
	assert.Regexp(t, `52\.51\s+TOTAL`, out)

	out, err = c.run("list", "-category", "Rent")
	require.NoError(t, err)
	assert.Contains(t, out, "No expenses")

	out, err = c.run("list", "-summary")
	require.NoError(t, err)
	assert.Regexp(t, `Travel\s+100\.00`, out)
	assert.Regexp(t, `Food\s+52\.51`, out)
	assert.Regexp(t, `COUNT\s+3`, out)
	assert.Regexp(t, `AVERAGE\s+50\.84`, out)
	assert.Regexp(t, `HIGHEST\s+100\.00`, out)
}

func TestRun_LoginWithPromptedPassword(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("register", "-email", "bob@example.com", "-password", "pw")
	require.NoError(t, err)
	_, err = c.run("logout")
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	args := append(append([]string{}, c.baseArgs...), "login", "-email", "bob@example.com")
	require.NoError(t, run(args, bytes.NewBufferString("pw\n"), stdout, new(bytes.Buffer)))
	assert.Contains(t, stdout.String(), "Password: ")
	assert.Contains(t, stdout.String(), "Logged in as bob@example.com")
}

func TestRun_InvalidCredentials(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("login", "-email", "nobody@example.com", "-password", "pw")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
}

func TestRun_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	args := []string{"-url", srv.URL, "-token-file", filepath.Join(t.TempDir(), "t"), "-timeout", "50ms", "list"}
	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Equal(t, "Request timed out. Please try again.", err.Error())
}

func TestRun_UnknownCommand(t *testing.T) {
	stderr := new(bytes.Buffer)
	err := run([]string{"-token-file", filepath.Join(t.TempDir(), "t"), "frobnicate"}, new(bytes.Buffer), new(bytes.Buffer), stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
	assert.Contains(t, stderr.String(), "Usage:")
}

func TestRun_MissingCommand(t *testing.T) {
	err := run([]string{}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	assert.Error(t, err)
}

func TestRun_EditRequiresID(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("edit", "-amount", "3")
	assert.Error(t, err)
}

func TestRun_URLFromEnv(t *testing.T) {
	t.Setenv("SPENDLOG_API_URL", "http://127.0.0.1:1/api/v2")
	err := run([]string{"-token-file", filepath.Join(t.TempDir(), "t"), "list"}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
