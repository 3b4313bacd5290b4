package repository

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect captures the differences between the SQL backends.
type dialect struct {
	name        string
	driver      string
	numbered    bool
	isDuplicate func(error) bool
}

var (
	mysqlDialect = dialect{
		name:   "mysql",
		driver: "mysql",
		isDuplicate: func(err error) bool {
			var myErr *mysql.MySQLError
			return errors.As(err, &myErr) && myErr.Number == 1062
		},
	}

	postgresDialect = dialect{
		name:     "postgres",
		driver:   "pgx",
		numbered: true,
		isDuplicate: func(err error) bool {
			var pgErr *pgconn.PgError
			return errors.As(err, &pgErr) && pgErr.Code == "23505"
		},
	}

	sqliteDialect = dialect{
		name:   "sqlite",
		driver: "sqlite",
		isDuplicate: func(err error) bool {
			var liteErr *sqlite.Error
			if !errors.As(err, &liteErr) {
				return false
			}
			switch liteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
				return true
			case sqlite3.SQLITE_CONSTRAINT:
				// Extended result codes disabled.
				return strings.Contains(liteErr.Error(), "UNIQUE")
			}
			return false
		},
	}
)

// rebind rewrites ? placeholders as $1, $2, ... for dialects that need it.
// Queries in this package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
