// Package sqlstore implements the storage interfaces on PostgreSQL and SQLite
// through sqlx and squirrel, with the schema owned by goose migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/db/migrations"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Options tunes the connection pool
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

// Database implements interfaces.Database on a SQL engine
type Database struct {
	dialect Dialect
	dsn     string
	opts    Options

	mu      sync.RWMutex
	db      *sqlx.DB
	schemas map[string]*interfaces.Schema

	logger *zap.SugaredLogger
}

type txKey struct{ db *Database }

// NewDatabase creates a database that connects lazily on Connect
func NewDatabase(dialect Dialect, dsn string, opts Options, logger *zap.SugaredLogger) *Database {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if dialect.Name == SQLite.Name {
		dsn = SQLiteDSN(dsn)
	}
	return &Database{
		dialect: dialect,
		dsn:     dsn,
		opts:    opts,
		schemas: make(map[string]*interfaces.Schema),
		logger:  logger.With("backend", dialect.Name),
	}
}

// NewWithDB wraps an already opened handle, used with sqlmock in tests
func NewWithDB(dialect Dialect, conn *sql.DB, logger *zap.SugaredLogger) *Database {
	d := NewDatabase(dialect, "", Options{}, logger)
	d.db = sqlx.NewDb(conn, dialect.DriverName)
	return d
}

// Connect opens the pool and verifies it with a ping
func (d *Database) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return nil
	}

	conn, err := sqlx.ConnectContext(ctx, d.dialect.DriverName, d.dsn)
	if err != nil {
		return d.dialect.wrapError("connect", err)
	}

	maxOpen := d.opts.MaxOpenConns
	if d.dialect.MaxOpenConns > 0 {
		maxOpen = d.dialect.MaxOpenConns
	}
	if maxOpen > 0 {
		conn.SetMaxOpenConns(maxOpen)
	}
	if d.opts.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(d.opts.MaxIdleConns)
	}

	d.db = conn
	d.logger.Infow("Connected to database", "max_open_conns", maxOpen)
	return nil
}

// Disconnect closes the pool
func (d *Database) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// IsHealthy pings the database
func (d *Database) IsHealthy(ctx context.Context) bool {
	conn := d.handle()
	if conn == nil {
		return false
	}
	return conn.PingContext(ctx) == nil
}

// DB exposes the underlying handle for migration tooling
func (d *Database) DB() *sql.DB {
	conn := d.handle()
	if conn == nil {
		return nil
	}
	return conn.DB
}

func (d *Database) handle() *sqlx.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// conn returns the transaction bound to ctx, or the pool
func (d *Database) conn(ctx context.Context) (sqlx.ExtContext, error) {
	if tx, ok := ctx.Value(txKey{d}).(*Transaction); ok && !tx.IsCompleted() {
		return tx.tx, nil
	}
	conn := d.handle()
	if conn == nil {
		return nil, interfaces.ErrDatabaseNotConnected
	}
	return conn, nil
}

// Transaction executes fn inside a database transaction; nested calls join the outer one
func (d *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	if outer, ok := ctx.Value(txKey{d}).(*Transaction); ok && !outer.IsCompleted() {
		return fn(ctx, outer)
	}

	conn := d.handle()
	if conn == nil {
		return interfaces.ErrDatabaseNotConnected
	}

	sqlTx, err := conn.BeginTxx(ctx, &sql.TxOptions{Isolation: d.dialect.Isolation})
	if err != nil {
		return d.dialect.wrapError("begin", err)
	}

	tx := &Transaction{tx: sqlTx, dialect: d.dialect}
	txCtx := context.WithValue(ctx, txKey{d}, tx)

	defer func() {
		if !tx.IsCompleted() {
			_ = tx.Rollback(txCtx)
		}
	}()

	if err := fn(txCtx, tx); err != nil {
		if rbErr := tx.Rollback(txCtx); rbErr != nil {
			d.logger.Warnw("Rollback failed", "error", rbErr)
		}
		return err
	}

	return tx.Commit(txCtx)
}

// Repository returns a repository for the given schema
func (d *Database) Repository(schema *interfaces.Schema) interfaces.Repository {
	d.mu.Lock()
	d.schemas[schema.TableName] = schema
	d.mu.Unlock()

	return NewRepository(d, schema)
}

// Migrate applies the embedded goose migrations. The schemas are only
// registered; the DDL lives in the migration files.
func (d *Database) Migrate(ctx context.Context, schemas []*interfaces.Schema) error {
	conn := d.handle()
	if conn == nil {
		return interfaces.ErrDatabaseNotConnected
	}

	d.mu.Lock()
	for _, schema := range schemas {
		d.schemas[schema.TableName] = schema
	}
	d.mu.Unlock()

	if err := d.MigrateUp(ctx); err != nil {
		return err
	}
	d.logger.Infow("Migration completed", "schemas", len(schemas))
	return nil
}

// Goose configures goose for this dialect and returns the migrations directory
func (d *Database) Goose() (string, error) {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{d.logger})
	if err := goose.SetDialect(d.dialect.GooseName); err != nil {
		return "", fmt.Errorf("set goose dialect: %w", err)
	}
	return d.dialect.Name, nil
}

// MigrateUp runs all pending migrations
func (d *Database) MigrateUp(ctx context.Context) error {
	dir, err := d.Goose()
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, d.DB(), dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration
func (d *Database) MigrateDown(ctx context.Context) error {
	dir, err := d.Goose()
	if err != nil {
		return err
	}
	if err := goose.DownContext(ctx, d.DB(), dir); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// MigrationStatus logs the state of every migration
func (d *Database) MigrationStatus(ctx context.Context) error {
	dir, err := d.Goose()
	if err != nil {
		return err
	}
	return goose.StatusContext(ctx, d.DB(), dir)
}

// Seed inserts initial data into the database
func (d *Database) Seed(ctx context.Context, schema *interfaces.Schema, data []interfaces.Record) error {
	repo := d.Repository(schema)

	seeded := 0
	for i, record := range data {
		if _, err := repo.Create(ctx, record); err != nil {
			d.logger.Warnw("Failed to seed record", "table", schema.TableName, "index", i, "error", err)
			continue
		}
		seeded++
	}

	d.logger.Infow("Seeded records", "table", schema.TableName, "count", seeded)
	return nil
}

// gooseLogger routes goose output through zap
type gooseLogger struct {
	logger *zap.SugaredLogger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatalf(format, v...)
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Infof(format, v...)
}
