package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/spendlog/spendlog-go/internal/model"
)

// openTestStore opens a migrated sqlite store in a temp dir.
func openTestStore(t *testing.T) Store {
	t.Helper()
	store, err := Open(context.Background(), Options{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "data", "test.db"),
	})
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { store.Close() })
	return store
}

// UserStoreSuite runs user persistence tests against sqlite.
type UserStoreSuite struct {
	suite.Suite
	store Store
}

func (s *UserStoreSuite) SetupTest() {
	s.store = openTestStore(s.T())
}

func (s *UserStoreSuite) newUser(email string) *model.User {
	return &model.User{Name: "Alice", Email: email, PasswordHash: "$2a$10$hash"}
}

func (s *UserStoreSuite) TestCreateAssignsIDAndTimestamps() {
	user := s.newUser("alice@example.com")
	require.NoError(s.T(), s.store.Users().Create(context.Background(), user))

	assert.NotEmpty(s.T(), user.ID)
	assert.False(s.T(), user.CreatedAt.IsZero())
	assert.Equal(s.T(), user.CreatedAt, user.UpdatedAt)
}

func (s *UserStoreSuite) TestGetByEmailAndID() {
	ctx := context.Background()
	user := s.newUser("alice@example.com")
	require.NoError(s.T(), s.store.Users().Create(ctx, user))

	byEmail, err := s.store.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, byEmail.ID)
	assert.Equal(s.T(), "Alice", byEmail.Name)
	assert.Equal(s.T(), "$2a$10$hash", byEmail.PasswordHash)
	assert.True(s.T(), user.CreatedAt.Equal(byEmail.CreatedAt))

	byID, err := s.store.Users().GetByID(ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "alice@example.com", byID.Email)
}

func (s *UserStoreSuite) TestDuplicateEmail() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.Users().Create(ctx, s.newUser("alice@example.com")))

	err := s.store.Users().Create(ctx, s.newUser("alice@example.com"))
	assert.ErrorIs(s.T(), err, ErrDuplicateEmail)
}

func (s *UserStoreSuite) TestNotFound() {
	ctx := context.Background()

	_, err := s.store.Users().GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(s.T(), err, ErrUserNotFound)

	_, err = s.store.Users().GetByID(ctx, "not-an-id")
	assert.ErrorIs(s.T(), err, ErrUserNotFound)
}

func TestUserStoreSuite(t *testing.T) {
	suite.Run(t, new(UserStoreSuite))
}

func TestRebind(t *testing.T) {
	query := `UPDATE expenses SET notes = ? WHERE id = ? AND owner_id = ?`

	assert.Equal(t, query, sqliteDialect.rebind(query))
	assert.Equal(t, query, mysqlDialect.rebind(query))
	assert.Equal(t, `UPDATE expenses SET notes = $1 WHERE id = $2 AND owner_id = $3`, postgresDialect.rebind(query))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpenRejectsInMemorySQLite(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "sqlite", DSN: ":memory:"})
	assert.Error(t, err)
}

func TestMongoRequiresDatabaseName(t *testing.T) {
	_, err := OpenMongo(context.Background(), "mongodb://localhost:27017", "")
	assert.Error(t, err)
}

func TestMySQLDSNForcesParseTime(t *testing.T) {
	dsn, err := mysqlDSN("user:pass@tcp(localhost:3306)/spendlog")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
}
