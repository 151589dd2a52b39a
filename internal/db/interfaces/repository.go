package interfaces

import "context"

// Repository provides CRUD operations for a specific entity type
type Repository interface {
	// GetByID retrieves a single record by its ID
	GetByID(ctx context.Context, id ID) (Record, error)

	// FindOne retrieves the first record matching the query
	FindOne(ctx context.Context, query *Query) (Record, error)

	// FindMany retrieves multiple records matching the query with pagination
	FindMany(ctx context.Context, query *Query) (*ResultPage, error)

	// Create inserts a new record
	Create(ctx context.Context, data Record) (Record, error)

	// Update modifies an existing record by ID
	Update(ctx context.Context, id ID, data Record) (Record, error)

	// Upsert inserts or updates based on unique field constraints
	Upsert(ctx context.Context, uniqueFields Record, data Record) (Record, error)

	// Delete removes a record by ID, applying the ON DELETE action of every
	// foreign key that references it
	Delete(ctx context.Context, id ID) error

	// DeleteWhere removes every record matching filters and reports how many went
	DeleteWhere(ctx context.Context, filters *Filters) (int64, error)

	// Count returns the number of records matching the query
	Count(ctx context.Context, query *Query) (int64, error)

	// GetSchema returns the schema for this repository
	GetSchema() *Schema
}
