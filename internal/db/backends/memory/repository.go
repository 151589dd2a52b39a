package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/db/query"
)

// Repository implements the Repository interface for in-memory storage
type Repository struct {
	db        *Database
	schema    *interfaces.Schema
	builder   *query.Builder
	tableName string
}

// NewRepository creates a new in-memory repository
func NewRepository(db *Database, schema *interfaces.Schema) *Repository {
	return &Repository{
		db:        db,
		schema:    schema,
		builder:   query.NewBuilder(schema),
		tableName: schema.TableName,
	}
}

// GetByID retrieves a single record by its ID
func (r *Repository) GetByID(ctx context.Context, id interfaces.ID) (interfaces.Record, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	record, exists := r.db.tables[r.tableName][id.String()]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	return copyRecord(record), nil
}

// FindOne retrieves the first record matching the query
func (r *Repository) FindOne(ctx context.Context, q *interfaces.Query) (interfaces.Record, error) {
	one := interfaces.Query{}
	if q != nil {
		one = *q
	}
	limit := 1
	one.Limit = &limit

	result, err := r.FindMany(ctx, &one)
	if err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, interfaces.ErrNotFound
	}

	return result.Data[0], nil
}

// FindMany retrieves multiple records matching the query with pagination
func (r *Repository) FindMany(ctx context.Context, q *interfaces.Query) (*interfaces.ResultPage, error) {
	if q == nil {
		q = &interfaces.Query{}
	}
	if err := r.builder.ValidateQuery(q); err != nil {
		return nil, err
	}

	r.db.mu.RLock()
	records := make([]interfaces.Record, 0, len(r.db.tables[r.tableName]))
	for _, record := range r.db.tables[r.tableName] {
		if r.builder.MatchesFilters(record, q.Where) {
			records = append(records, copyRecord(record))
		}
	}
	r.db.mu.RUnlock()

	total := int64(len(records))

	// Map iteration order is random; fall back to insertion time for a stable listing
	orderBy := q.OrderBy
	if len(orderBy) == 0 && r.schema.HasField("created_at") {
		orderBy = []interfaces.OrderBy{{Field: "created_at", Direction: "asc"}}
	}
	records = r.builder.ApplySort(records, append(orderBy, interfaces.OrderBy{Field: "id", Direction: "asc"}))

	offset := 0
	if q.Offset != nil {
		offset = *q.Offset
	}
	pageSize := len(records)
	if q.Limit != nil {
		pageSize = *q.Limit
	}

	records = r.builder.ApplyPagination(records, q.Limit, q.Offset)

	if len(q.Select) > 0 {
		projected := make([]interfaces.Record, 0, len(records))
		for _, record := range records {
			projectedRecord := make(interfaces.Record, len(q.Select))
			for _, field := range q.Select {
				if value, exists := record[field]; exists {
					projectedRecord[field] = value
				}
			}
			projected = append(projected, projectedRecord)
		}
		records = projected
	}

	page := 1
	if pageSize > 0 {
		page = (offset / pageSize) + 1
	}

	return &interfaces.ResultPage{
		Data:     records,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Create inserts a new record
func (r *Repository) Create(ctx context.Context, data interfaces.Record) (interfaces.Record, error) {
	if err := r.builder.ValidateData(data); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	record := copyRecord(data)

	if id, _ := record["id"].(string); id == "" {
		record["id"] = uuid.New().String()
	}

	now := interfaces.Now()
	if _, exists := record["created_at"]; !exists && r.schema.HasField("created_at") {
		record["created_at"] = now
	}
	if r.schema.HasField("updated_at") {
		record["updated_at"] = now
	}

	for fieldName, fieldSchema := range r.schema.Fields {
		if _, exists := record[fieldName]; !exists {
			record[fieldName] = fieldSchema.DefaultValue
		}
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.tables[r.tableName]; !exists {
		r.db.tables[r.tableName] = make(table)
	}

	t := r.db.tables[r.tableName]
	id := record["id"].(string)

	if _, exists := t[id]; exists {
		return nil, fmt.Errorf("%w: record with id '%s' already exists", interfaces.ErrUniqueConstraint, id)
	}

	if err := r.validateUniqueConstraints(t, record, ""); err != nil {
		return nil, err
	}

	if err := r.validateForeignKeyConstraints(record); err != nil {
		return nil, err
	}

	t[id] = record

	return copyRecord(record), nil
}

// Update modifies an existing record by ID
func (r *Repository) Update(ctx context.Context, id interfaces.ID, data interfaces.Record) (interfaces.Record, error) {
	for fieldName, value := range data {
		fieldSchema, ok := r.schema.Fields[fieldName]
		if !ok {
			return nil, fmt.Errorf("validation error: unknown field '%s'", fieldName)
		}
		if value == nil {
			if !fieldSchema.Nullable {
				return nil, fmt.Errorf("validation error: field '%s' cannot be null", fieldName)
			}
			continue
		}
		if err := query.ValidateFieldType(fieldName, value, fieldSchema.Type); err != nil {
			return nil, fmt.Errorf("validation error: %w", err)
		}
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t := r.db.tables[r.tableName]
	existing, exists := t[id.String()]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	updated := copyRecord(existing)
	for k, v := range data {
		if k == "id" || k == "created_at" {
			continue
		}
		updated[k] = v
	}
	if r.schema.HasField("updated_at") {
		updated["updated_at"] = interfaces.Now()
	}

	if err := r.validateUniqueConstraints(t, updated, id.String()); err != nil {
		return nil, err
	}

	if err := r.validateForeignKeyConstraints(updated); err != nil {
		return nil, err
	}

	t[id.String()] = updated

	return copyRecord(updated), nil
}

// Upsert inserts or updates based on unique field constraints
func (r *Repository) Upsert(ctx context.Context, uniqueFields interfaces.Record, data interfaces.Record) (interfaces.Record, error) {
	existing, err := r.FindOne(ctx, &interfaces.Query{Where: interfaces.Where(uniqueFields)})
	if err != nil && err != interfaces.ErrNotFound {
		return nil, err
	}

	if existing != nil {
		id := existing["id"].(string)
		return r.Update(ctx, interfaces.StringID(id), data)
	}

	createData := copyRecord(data)
	for k, v := range uniqueFields {
		createData[k] = v
	}

	return r.Create(ctx, createData)
}

// Delete removes a record by ID
func (r *Repository) Delete(ctx context.Context, id interfaces.ID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.tables[r.tableName][id.String()]; !exists {
		return interfaces.ErrNotFound
	}

	if err := r.db.checkRestrict(r.tableName, id.String(), map[string]bool{}); err != nil {
		return err
	}
	r.db.deleteCascade(r.tableName, id.String())
	return nil
}

// DeleteWhere removes every record matching filters
func (r *Repository) DeleteWhere(ctx context.Context, filters *interfaces.Filters) (int64, error) {
	if err := r.builder.ValidateQuery(&interfaces.Query{Where: filters}); err != nil {
		return 0, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var ids []string
	for id, record := range r.db.tables[r.tableName] {
		if r.builder.MatchesFilters(record, filters) {
			if err := r.db.checkRestrict(r.tableName, id, map[string]bool{}); err != nil {
				return 0, err
			}
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		r.db.deleteCascade(r.tableName, id)
	}
	return int64(len(ids)), nil
}

// Count returns the number of records matching the query
func (r *Repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	if q == nil {
		r.db.mu.RLock()
		defer r.db.mu.RUnlock()
		return int64(len(r.db.tables[r.tableName])), nil
	}

	result, err := r.FindMany(ctx, &interfaces.Query{Where: q.Where})
	if err != nil {
		return 0, err
	}

	return result.Total, nil
}

// GetSchema returns the schema for this repository
func (r *Repository) GetSchema() *interfaces.Schema {
	return r.schema
}

func (r *Repository) validateUniqueConstraints(t table, record interfaces.Record, excludeID string) error {
	for fieldName, fieldSchema := range r.schema.Fields {
		if !fieldSchema.Unique || fieldName == "id" {
			continue
		}

		value, exists := record[fieldName]
		if !exists || value == nil {
			continue
		}

		for id, existing := range t {
			if id == excludeID {
				continue
			}
			if query.Equal(existing[fieldName], value) {
				return fmt.Errorf("%w: field '%s' value '%v'", interfaces.ErrUniqueConstraint, fieldName, value)
			}
		}
	}

	for _, index := range r.schema.Indexes {
		if !index.Unique {
			continue
		}

		for id, existing := range t {
			if id == excludeID {
				continue
			}
			match := true
			for _, column := range index.Columns {
				// NULLs never collide, as in SQL
				if record[column] == nil || !query.Equal(existing[column], record[column]) {
					match = false
					break
				}
			}
			if match {
				return fmt.Errorf("%w: unique index '%s'", interfaces.ErrUniqueConstraint, index.Name)
			}
		}
	}

	return nil
}

// must hold db.mu
func (r *Repository) validateForeignKeyConstraints(record interfaces.Record) error {
	for fieldName, fieldSchema := range r.schema.Fields {
		fk := fieldSchema.ForeignKey
		if fk == nil {
			continue
		}

		value, exists := record[fieldName]
		if !exists || value == nil {
			continue
		}

		refTable, exists := r.db.tables[fk.Table]
		if !exists {
			return fmt.Errorf("%w: referenced table '%s' does not exist", interfaces.ErrForeignKeyConstraint, fk.Table)
		}

		found := false
		for _, refRecord := range refTable {
			if query.Equal(refRecord[fk.Column], value) {
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("%w: field '%s' references non-existent record '%v'", interfaces.ErrForeignKeyConstraint, fieldName, value)
		}
	}

	return nil
}

type reference struct {
	table string
	field string
	fk    *interfaces.ForeignKey
}

// referencesTo lists every column declared as a foreign key into tableName.
// must hold db.mu
func (db *Database) referencesTo(tableName string) []reference {
	var refs []reference
	for name, schema := range db.schemas {
		for field, fs := range schema.Fields {
			if fs.ForeignKey != nil && fs.ForeignKey.Table == tableName {
				refs = append(refs, reference{table: name, field: field, fk: fs.ForeignKey})
			}
		}
	}
	return refs
}

// checkRestrict fails when deleting the row would orphan a RESTRICT reference,
// following CASCADE edges. must hold db.mu
func (db *Database) checkRestrict(tableName, id string, visited map[string]bool) error {
	key := tableName + "/" + id
	if visited[key] {
		return nil
	}
	visited[key] = true

	record := db.tables[tableName][id]
	for _, ref := range db.referencesTo(tableName) {
		target := record[ref.fk.Column]
		for refID, refRecord := range db.tables[ref.table] {
			if !query.Equal(refRecord[ref.field], target) {
				continue
			}
			switch ref.fk.OnDelete {
			case interfaces.OnDeleteCascade:
				if err := db.checkRestrict(ref.table, refID, visited); err != nil {
					return err
				}
			case interfaces.OnDeleteSetNull:
			default:
				return fmt.Errorf("%w: record is referenced by table '%s', field '%s'", interfaces.ErrForeignKeyConstraint, ref.table, ref.field)
			}
		}
	}
	return nil
}

// deleteCascade removes the row and applies ON DELETE actions. must hold db.mu
func (db *Database) deleteCascade(tableName, id string) {
	record, ok := db.tables[tableName][id]
	if !ok {
		return
	}
	delete(db.tables[tableName], id)

	for _, ref := range db.referencesTo(tableName) {
		target := record[ref.fk.Column]
		for refID, refRecord := range db.tables[ref.table] {
			if !query.Equal(refRecord[ref.field], target) {
				continue
			}
			switch ref.fk.OnDelete {
			case interfaces.OnDeleteCascade:
				db.deleteCascade(ref.table, refID)
			case interfaces.OnDeleteSetNull:
				refRecord[ref.field] = nil
			}
		}
	}
}
