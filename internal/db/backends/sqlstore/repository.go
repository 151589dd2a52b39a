package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/db/query"
)

// Repository implements interfaces.Repository with squirrel-built statements
type Repository struct {
	db        *Database
	schema    *interfaces.Schema
	validator *query.Builder
	sb        sq.StatementBuilderType
	columns   []string
}

// NewRepository creates a repository for schema
func NewRepository(db *Database, schema *interfaces.Schema) *Repository {
	columns := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	return &Repository{
		db:        db,
		schema:    schema,
		validator: query.NewBuilder(schema),
		sb:        sq.StatementBuilder.PlaceholderFormat(db.dialect.Placeholder),
		columns:   columns,
	}
}

// GetByID retrieves a single record by its ID
func (r *Repository) GetByID(ctx context.Context, id interfaces.ID) (interfaces.Record, error) {
	stmt := r.sb.Select(r.columns...).From(r.schema.TableName).Where(sq.Eq{"id": id.String()})

	records, err := r.selectRecords(ctx, "get", stmt)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return records[0], nil
}

// FindOne retrieves the first record matching the query
func (r *Repository) FindOne(ctx context.Context, q *interfaces.Query) (interfaces.Record, error) {
	one := interfaces.Query{}
	if q != nil {
		one = *q
	}
	limit := 1
	one.Limit = &limit

	stmt, err := r.selectStatement(&one)
	if err != nil {
		return nil, err
	}
	records, err := r.selectRecords(ctx, "find_one", stmt)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return records[0], nil
}

// FindMany retrieves multiple records matching the query with pagination
func (r *Repository) FindMany(ctx context.Context, q *interfaces.Query) (*interfaces.ResultPage, error) {
	if q == nil {
		q = &interfaces.Query{}
	}

	total, err := r.Count(ctx, q)
	if err != nil {
		return nil, err
	}

	stmt, err := r.selectStatement(q)
	if err != nil {
		return nil, err
	}
	records, err := r.selectRecords(ctx, "find_many", stmt)
	if err != nil {
		return nil, err
	}

	offset := 0
	if q.Offset != nil {
		offset = *q.Offset
	}
	pageSize := len(records)
	if q.Limit != nil {
		pageSize = *q.Limit
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
	if err := r.validator.ValidateData(data); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	record := make(interfaces.Record, len(r.schema.Fields))
	for name, field := range r.schema.Fields {
		record[name] = field.DefaultValue
	}
	for k, v := range data {
		record[k] = v
	}

	if id, _ := record["id"].(string); id == "" {
		record["id"] = uuid.New().String()
	}
	now := interfaces.Now()
	if r.schema.HasField("created_at") {
		if _, ok := record["created_at"].(time.Time); !ok {
			record["created_at"] = now
		}
	}
	if r.schema.HasField("updated_at") {
		record["updated_at"] = now
	}

	values := make([]interface{}, len(r.columns))
	for i, column := range r.columns {
		values[i] = record[column]
	}

	stmt := r.sb.Insert(r.schema.TableName).Columns(r.columns...).Values(values...)
	if err := r.exec(ctx, "create", stmt, nil); err != nil {
		return nil, err
	}

	return normalizeRecord(r.schema, record), nil
}

// Update modifies an existing record by ID
func (r *Repository) Update(ctx context.Context, id interfaces.ID, data interfaces.Record) (interfaces.Record, error) {
	set := make(map[string]interface{}, len(data)+1)
	for name, value := range data {
		field, ok := r.schema.Fields[name]
		if !ok {
			return nil, fmt.Errorf("validation error: unknown field '%s'", name)
		}
		if name == "id" || name == "created_at" {
			continue
		}
		if value == nil {
			if !field.Nullable {
				return nil, fmt.Errorf("validation error: field '%s' cannot be null", name)
			}
		} else if err := query.ValidateFieldType(name, value, field.Type); err != nil {
			return nil, fmt.Errorf("validation error: %w", err)
		}
		set[name] = value
	}
	if r.schema.HasField("updated_at") {
		set["updated_at"] = interfaces.Now()
	}

	if len(set) > 0 {
		var affected int64
		stmt := r.sb.Update(r.schema.TableName).SetMap(set).Where(sq.Eq{"id": id.String()})
		if err := r.exec(ctx, "update", stmt, &affected); err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, interfaces.ErrNotFound
		}
	}

	return r.GetByID(ctx, id)
}

// Upsert inserts or updates based on unique field constraints
func (r *Repository) Upsert(ctx context.Context, uniqueFields interfaces.Record, data interfaces.Record) (interfaces.Record, error) {
	existing, err := r.FindOne(ctx, &interfaces.Query{Where: interfaces.Where(uniqueFields)})
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		return r.Update(ctx, interfaces.StringID(existing["id"].(string)), data)
	}

	createData := make(interfaces.Record, len(data)+len(uniqueFields))
	for k, v := range data {
		createData[k] = v
	}
	for k, v := range uniqueFields {
		createData[k] = v
	}
	return r.Create(ctx, createData)
}

// Delete removes a record by ID. ON DELETE actions are enforced by the engine.
func (r *Repository) Delete(ctx context.Context, id interfaces.ID) error {
	var affected int64
	stmt := r.sb.Delete(r.schema.TableName).Where(sq.Eq{"id": id.String()})
	if err := r.exec(ctx, "delete", stmt, &affected); err != nil {
		return err
	}
	if affected == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// DeleteWhere removes every record matching filters
func (r *Repository) DeleteWhere(ctx context.Context, filters *interfaces.Filters) (int64, error) {
	if err := r.validator.ValidateQuery(&interfaces.Query{Where: filters}); err != nil {
		return 0, err
	}

	stmt := r.sb.Delete(r.schema.TableName)
	if cond := r.db.dialect.where(filters); cond != nil {
		stmt = stmt.Where(cond)
	}

	var affected int64
	if err := r.exec(ctx, "delete_where", stmt, &affected); err != nil {
		return 0, err
	}
	return affected, nil
}

// Count returns the number of records matching the query
func (r *Repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	stmt := r.sb.Select("COUNT(*)").From(r.schema.TableName)
	if q != nil {
		if err := r.validator.ValidateQuery(&interfaces.Query{Where: q.Where}); err != nil {
			return 0, err
		}
		if cond := r.db.dialect.where(q.Where); cond != nil {
			stmt = stmt.Where(cond)
		}
	}

	sqlText, args, err := stmt.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", interfaces.ErrInvalidQuery, err)
	}

	conn, err := r.db.conn(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := sqlx.GetContext(ctx, conn, &total, sqlText, args...); err != nil {
		return 0, r.db.dialect.wrapError("count", err)
	}
	return total, nil
}

// GetSchema returns the schema for this repository
func (r *Repository) GetSchema() *interfaces.Schema {
	return r.schema
}

func (r *Repository) selectStatement(q *interfaces.Query) (sq.SelectBuilder, error) {
	if err := r.validator.ValidateQuery(q); err != nil {
		return sq.SelectBuilder{}, err
	}

	columns := r.columns
	if len(q.Select) > 0 {
		for _, name := range q.Select {
			if !r.schema.HasField(name) {
				return sq.SelectBuilder{}, fmt.Errorf("%w: unknown select field '%s'", interfaces.ErrInvalidQuery, name)
			}
		}
		columns = q.Select
	}

	stmt := r.sb.Select(columns...).From(r.schema.TableName)
	if cond := r.db.dialect.where(q.Where); cond != nil {
		stmt = stmt.Where(cond)
	}

	orderBy := q.OrderBy
	if len(orderBy) == 0 && r.schema.HasField("created_at") {
		orderBy = []interfaces.OrderBy{{Field: "created_at", Direction: "asc"}}
	}
	for _, o := range append(orderBy, interfaces.OrderBy{Field: "id", Direction: "asc"}) {
		direction := "ASC"
		if o.Direction == "desc" || o.Direction == "DESC" {
			direction = "DESC"
		}
		stmt = stmt.OrderBy(o.Field + " " + direction)
	}

	if q.Limit != nil {
		stmt = stmt.Limit(uint64(*q.Limit))
	}
	if q.Offset != nil && *q.Offset > 0 {
		if q.Limit == nil {
			// Both engines need a LIMIT before OFFSET
			stmt = stmt.Limit(1 << 62)
		}
		stmt = stmt.Offset(uint64(*q.Offset))
	}

	return stmt, nil
}

func (r *Repository) selectRecords(ctx context.Context, op string, stmt sq.SelectBuilder) ([]interfaces.Record, error) {
	sqlText, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidQuery, err)
	}

	conn, err := r.db.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryxContext(ctx, sqlText, args...)
	if err != nil {
		return nil, r.db.dialect.wrapError(op, err)
	}
	defer rows.Close()

	records := make([]interfaces.Record, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, r.db.dialect.wrapError(op, err)
		}
		records = append(records, normalizeRecord(r.schema, row))
	}
	if err := rows.Err(); err != nil {
		return nil, r.db.dialect.wrapError(op, err)
	}
	return records, nil
}

func (r *Repository) exec(ctx context.Context, op string, stmt sq.Sqlizer, affected *int64) error {
	sqlText, args, err := stmt.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrInvalidQuery, err)
	}

	conn, err := r.db.conn(ctx)
	if err != nil {
		return err
	}

	res, err := conn.ExecContext(ctx, sqlText, args...)
	if err != nil {
		r.db.logger.Debugw("Statement failed", "op", op, "table", r.schema.TableName, "error", err)
		return r.db.dialect.wrapError(op, err)
	}
	if affected != nil {
		n, err := res.RowsAffected()
		if err != nil {
			return r.db.dialect.wrapError(op, err)
		}
		*affected = n
	}
	return nil
}
