package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*Database, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewWithDB(Postgres, conn, nil), mock
}

var categoryColumns = []string{"created_at", "description", "id", "name", "parent_id", "slug", "updated_at"}

func TestPostgresGetByID(t *testing.T) {
	db, mock := newMockPostgres(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT created_at, description, id, name, parent_id, slug, updated_at FROM categories WHERE id = $1",
	)).WithArgs("c1").WillReturnRows(
		sqlmock.NewRows(categoryColumns).AddRow(now, "", "c1", "Tech", nil, "tech", now),
	)

	got, err := db.Repository(entities.CategorySchema).GetByID(context.Background(), interfaces.StringID("c1"))
	require.NoError(t, err)

	category := entities.CategoryFromRecord(got)
	assert.Equal(t, "tech", category.Slug)
	assert.Nil(t, category.ParentID)
	assert.True(t, now.Equal(category.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT .* FROM categories WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(categoryColumns))

	_, err := db.Repository(entities.CategorySchema).GetByID(context.Background(), interfaces.StringID("missing"))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUniqueViolation(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO categories (created_at,description,id,name,parent_id,slug,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7)",
	)).WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := db.Repository(entities.CategorySchema).Create(context.Background(), interfaces.Record{
		"name": "Tech",
		"slug": "tech",
	})
	assert.ErrorIs(t, err, interfaces.ErrUniqueConstraint)

	var dbErr *interfaces.DatabaseError
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, "create", dbErr.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteNotFound(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM posts WHERE id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.Repository(entities.PostSchema).Delete(context.Background(), interfaces.StringID("p1"))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCaseInsensitiveFilter(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM categories WHERE .*name ILIKE \$1`).
		WithArgs("%te%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`SELECT .* FROM categories WHERE .*name ILIKE \$1.* ORDER BY name DESC, id ASC LIMIT 5`).
		WithArgs("%te%").
		WillReturnRows(sqlmock.NewRows(categoryColumns))

	insensitive := false
	limit := 5
	page, err := db.Repository(entities.CategorySchema).FindMany(context.Background(), &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{{
			Field:    "name",
			Operator: &interfaces.FilterOperator{Like: "te", CaseSensitive: &insensitive},
		}}},
		OrderBy: []interfaces.OrderBy{{Field: "name", Direction: "desc"}},
		Limit:   &limit,
	})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSerializationFailureOnCommit(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})

	err := db.Transaction(context.Background(), func(ctx context.Context, tx interfaces.Transaction) error {
		return db.Repository(entities.UserSchema).Delete(ctx, interfaces.StringID("u1"))
	})
	assert.ErrorIs(t, err, interfaces.ErrSerialization)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRollbackOnError(t *testing.T) {
	db, mock := newMockPostgres(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.Transaction(context.Background(), func(ctx context.Context, tx interfaces.Transaction) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("postgresql")
	require.NoError(t, err)
	assert.Equal(t, "pgx", d.DriverName)

	d, err = DialectFor("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, 1, d.MaxOpenConns)

	_, err = DialectFor("oracle")
	assert.Error(t, err)
}
