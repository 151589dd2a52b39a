package memory

import (
	"context"
	"sync"

	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"go.uber.org/zap"
)

type table = map[string]interfaces.Record

// Database implements the Database interface for in-memory storage
type Database struct {
	mu        sync.RWMutex
	tables    map[string]table              // tableName -> recordID -> record
	schemas   map[string]*interfaces.Schema // tableName -> schema
	connected bool

	// txMu serializes transactions; a rollback restores a whole-database snapshot
	txMu sync.Mutex

	logger *zap.SugaredLogger
}

type txKey struct{ db *Database }

// NewDatabase creates a new in-memory database
func NewDatabase(logger *zap.SugaredLogger) *Database {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Database{
		tables:  make(map[string]table),
		schemas: make(map[string]*interfaces.Schema),
		logger:  logger,
	}
}

// Connect establishes a connection to the database
func (db *Database) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = true
	db.logger.Debugw("Connected to in-memory database")
	return nil
}

// Disconnect closes the database connection
func (db *Database) Disconnect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = false
	db.tables = make(map[string]table)
	db.schemas = make(map[string]*interfaces.Schema)
	db.logger.Debugw("Disconnected from in-memory database")
	return nil
}

// IsHealthy checks if the database connection is healthy
func (db *Database) IsHealthy(ctx context.Context) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.connected
}

// Transaction executes a function within a database transaction
func (db *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrDatabaseNotConnected
	}

	if outer, ok := ctx.Value(txKey{db}).(*Transaction); ok && !outer.IsCompleted() {
		return fn(ctx, outer)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	tx := NewTransaction(db)
	txCtx := context.WithValue(ctx, txKey{db}, tx)

	defer func() {
		if !tx.IsCompleted() {
			_ = tx.Rollback(txCtx)
		}
	}()

	if err := fn(txCtx, tx); err != nil {
		_ = tx.Rollback(txCtx)
		return err
	}

	return tx.Commit(txCtx)
}

// Repository returns a repository for the given schema
func (db *Database) Repository(schema *interfaces.Schema) interfaces.Repository {
	db.mu.Lock()
	db.schemas[schema.TableName] = schema
	db.mu.Unlock()

	return NewRepository(db, schema)
}

// Migrate creates tables and applies schema changes
func (db *Database) Migrate(ctx context.Context, schemas []*interfaces.Schema) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrDatabaseNotConnected
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, schema := range schemas {
		db.schemas[schema.TableName] = schema

		if _, exists := db.tables[schema.TableName]; !exists {
			db.tables[schema.TableName] = make(table)
			db.logger.Debugw("Created in-memory table", "table", schema.TableName)
		}
	}

	db.logger.Infow("Migration completed", "backend", "memory", "schemas", len(schemas))
	return nil
}

// Seed inserts initial data into the database
func (db *Database) Seed(ctx context.Context, schema *interfaces.Schema, data []interfaces.Record) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrDatabaseNotConnected
	}

	repo := db.Repository(schema)

	seeded := 0
	for i, record := range data {
		if _, err := repo.Create(ctx, record); err != nil {
			// Keep going; one bad fixture should not block the rest
			db.logger.Warnw("Failed to seed record", "table", schema.TableName, "index", i, "error", err)
			continue
		}
		seeded++
	}

	db.logger.Infow("Seeded records", "table", schema.TableName, "count", seeded)
	return nil
}

// GetTableData returns all data for a specific table (for debugging/testing)
func (db *Database) GetTableData(tableName string) map[string]interfaces.Record {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, exists := db.tables[tableName]
	if !exists {
		return nil
	}

	result := make(map[string]interfaces.Record, len(t))
	for id, record := range t {
		result[id] = copyRecord(record)
	}
	return result
}

// Clear removes all data from all tables (for testing)
func (db *Database) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()

	for tableName := range db.tables {
		db.tables[tableName] = make(table)
	}
}

func copyRecord(record interfaces.Record) interfaces.Record {
	out := make(interfaces.Record, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out
}
