package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect captures what differs between the supported SQL engines.
type Dialect struct {
	Name        string
	DriverName  string
	GooseName   string
	Placeholder sq.PlaceholderFormat
	Isolation   sql.IsolationLevel
	// MaxOpenConns overrides the configured pool size when non-zero
	MaxOpenConns int

	translate func(error) error
}

// Postgres talks to PostgreSQL through pgx's database/sql adapter.
// Transactions run SERIALIZABLE so read-check-write sequences such as the
// last-admin guard cannot interleave.
var Postgres = Dialect{
	Name:        "postgres",
	DriverName:  "pgx",
	GooseName:   "postgres",
	Placeholder: sq.Dollar,
	Isolation:   sql.LevelSerializable,
	translate:   translatePostgres,
}

// SQLite uses the pure Go modernc driver. A single connection serializes writers.
var SQLite = Dialect{
	Name:         "sqlite",
	DriverName:   "sqlite",
	GooseName:    "sqlite3",
	Placeholder:  sq.Question,
	Isolation:    sql.LevelDefault,
	MaxOpenConns: 1,
	translate:    translateSQLite,
}

// DialectFor resolves a configured backend name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported sql dialect: %s", name)
}

// SQLiteDSN appends the pragmas the store relies on to a file path or URI.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
}

// like builds a substring match honoring the case sensitivity flag.
func (d Dialect) like(field, pattern string, caseSensitive bool, negate bool) sq.Sqlizer {
	pattern = "%" + strings.ReplaceAll(pattern, "%", "") + "%"
	switch {
	case d.Name == "postgres" && caseSensitive && negate:
		return sq.NotLike{field: pattern}
	case d.Name == "postgres" && caseSensitive:
		return sq.Like{field: pattern}
	case d.Name == "postgres" && negate:
		return sq.NotILike{field: pattern}
	case d.Name == "postgres":
		return sq.ILike{field: pattern}
	}

	// SQLite LIKE ignores ASCII case; instr() is the case-sensitive form
	if caseSensitive {
		needle := strings.Trim(pattern, "%")
		if negate {
			return sq.Expr("instr("+field+", ?) = 0", needle)
		}
		return sq.Expr("instr("+field+", ?) > 0", needle)
	}
	if negate {
		return sq.NotLike{field: pattern}
	}
	return sq.Like{field: pattern}
}

func translatePostgres(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case "23505":
		return interfaces.ErrUniqueConstraint
	case "23503":
		return interfaces.ErrForeignKeyConstraint
	case "40001", "40P01":
		return interfaces.ErrSerialization
	}
	return nil
}

func translateSQLite(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"):
		return interfaces.ErrUniqueConstraint
	case strings.Contains(msg, "foreign key constraint failed"):
		return interfaces.ErrForeignKeyConstraint
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "sqlite_busy"):
		return interfaces.ErrSerialization
	}
	return nil
}

// wrapError maps driver failures onto the storage sentinels.
func (d Dialect) wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return interfaces.ErrNotFound
	}
	if d.translate != nil {
		if sentinel := d.translate(err); sentinel != nil {
			return &interfaces.DatabaseError{Op: op, Err: fmt.Errorf("%w: %v", sentinel, err)}
		}
	}
	return &interfaces.DatabaseError{Op: op, Err: err}
}
