package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Options selects and addresses a backend.
type Options struct {
	Driver   string // mysql, postgres, sqlite or mongo
	DSN      string
	Database string // mongo database name
}

// Open connects to the configured backend and brings its schema up to date.
// Any failure here is meant to abort start-up.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		store Store
		err   error
	)

	switch opts.Driver {
	case "mysql":
		var dsn string
		if dsn, err = mysqlDSN(opts.DSN); err == nil {
			store, err = OpenSQL(ctx, mysqlDialect, dsn)
		}
	case "postgres":
		store, err = OpenSQL(ctx, postgresDialect, opts.DSN)
	case "sqlite":
		var dsn string
		if dsn, err = sqliteDSN(opts.DSN); err == nil {
			store, err = OpenSQL(ctx, sqliteDialect, dsn)
		}
	case "mongo":
		store, err = OpenMongo(ctx, opts.DSN, opts.Database)
	default:
		err = fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	if err != nil {
		return nil, err
	}
	return store, nil
}

// SQLStore is a Store over database/sql.
type SQLStore struct {
	db       *sql.DB
	users    *UserRepository
	expenses *ExpenseRepository
}

// OpenSQL opens a connection pool, pings it and runs migrations.
func OpenSQL(ctx context.Context, d dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.name, err)
	}

	if d.name == "sqlite" {
		// One writer at a time; avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", d.name, err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLStore{
		db:       db,
		users:    NewUserRepository(db, d),
		expenses: NewExpenseRepository(db, d),
	}, nil
}

func (s *SQLStore) Users() UserStore       { return s.users }
func (s *SQLStore) Expenses() ExpenseStore { return s.expenses }

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// mysqlDSN forces the settings the repositories rely on: time columns
// scanned into time.Time, in UTC.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// sqliteDSN creates the database directory and adds the pragmas the
// repositories rely on.
func sqliteDSN(path string) (string, error) {
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		return "", fmt.Errorf("sqlite in-memory databases are not supported: migrations use a separate connection")
	}

	file, _, _ := strings.Cut(strings.TrimPrefix(path, "file:"), "?")
	if dir := filepath.Dir(file); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite", nil
}
