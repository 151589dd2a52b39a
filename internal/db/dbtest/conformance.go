// Package dbtest provides conformance tests for interfaces.Database implementations
package dbtest

import (
	"context"
	"errors"
	"testing"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DatabaseFactory returns a connected, migrated and empty database
type DatabaseFactory func(t *testing.T) interfaces.Database

// RunConformanceTests runs all conformance tests against a Database implementation
func RunConformanceTests(t *testing.T, factory DatabaseFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, db interfaces.Database)
	}{
		{"CRUD", testCRUD},
		{"UniqueConstraint", testUniqueConstraint},
		{"ForeignKeyInsert", testForeignKeyInsert},
		{"DeleteRestrict", testDeleteRestrict},
		{"DeleteCascade", testDeleteCascade},
		{"DeleteSetNull", testDeleteSetNull},
		{"Filters", testFilters},
		{"SortAndPaginate", testSortAndPaginate},
		{"DeleteWhere", testDeleteWhere},
		{"Upsert", testUpsert},
		{"TransactionRollback", testTransactionRollback},
		{"TransactionNested", testTransactionNested},
		{"UnknownField", testUnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := factory(t)
			tt.test(t, db)
		})
	}
}

// CreateUser inserts a user row with the given username
func CreateUser(t *testing.T, db interfaces.Database, username, role string) interfaces.Record {
	t.Helper()
	user, err := db.Repository(entities.UserSchema).Create(context.Background(), interfaces.Record{
		"username":      username,
		"email":         username + "@example.com",
		"password_hash": "x",
		"role":          role,
	})
	require.NoError(t, err)
	return user
}

func createPost(t *testing.T, db interfaces.Database, authorID, title, slug, status string) interfaces.Record {
	t.Helper()
	post, err := db.Repository(entities.PostSchema).Create(context.Background(), interfaces.Record{
		"title":     title,
		"slug":      slug,
		"status":    status,
		"author_id": authorID,
	})
	require.NoError(t, err)
	return post
}

func createCategory(t *testing.T, db interfaces.Database, slug string, parentID interface{}) interfaces.Record {
	t.Helper()
	category, err := db.Repository(entities.CategorySchema).Create(context.Background(), interfaces.Record{
		"name":      slug,
		"slug":      slug,
		"parent_id": parentID,
	})
	require.NoError(t, err)
	return category
}

func testCRUD(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.UserSchema)

	created := CreateUser(t, db, "alice", entities.RoleAuthor)
	id := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "", created["full_name"])
	assert.Nil(t, created["reset_token_hash"])

	got, err := repo.GetByID(ctx, interfaces.StringID(id))
	require.NoError(t, err)
	user := entities.UserFromRecord(got)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, entities.RoleAuthor, user.Role)
	assert.False(t, user.CreatedAt.IsZero())

	updated, err := repo.Update(ctx, interfaces.StringID(id), interfaces.Record{"full_name": "Alice A."})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", updated["full_name"])
	assert.Equal(t, "alice", updated["username"])

	require.NoError(t, repo.Delete(ctx, interfaces.StringID(id)))

	_, err = repo.GetByID(ctx, interfaces.StringID(id))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = repo.Update(ctx, interfaces.StringID(id), interfaces.Record{"full_name": "x"})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, interfaces.StringID(id)), interfaces.ErrNotFound)
}

func testUniqueConstraint(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	repo := db.Repository(entities.UserSchema)

	first := CreateUser(t, db, "bob", entities.RoleAuthor)
	other := CreateUser(t, db, "carol", entities.RoleAuthor)

	_, err := repo.Create(ctx, interfaces.Record{
		"username":      "bob",
		"email":         "another@example.com",
		"password_hash": "x",
	})
	assert.ErrorIs(t, err, interfaces.ErrUniqueConstraint)

	_, err = repo.Update(ctx, interfaces.StringID(other["id"].(string)), interfaces.Record{"email": "bob@example.com"})
	assert.ErrorIs(t, err, interfaces.ErrUniqueConstraint)

	// Writing a row's own value back is not a clash
	_, err = repo.Update(ctx, interfaces.StringID(first["id"].(string)), interfaces.Record{"email": "bob@example.com"})
	assert.NoError(t, err)
}

func testForeignKeyInsert(t *testing.T, db interfaces.Database) {
	_, err := db.Repository(entities.PostSchema).Create(context.Background(), interfaces.Record{
		"title":     "Orphan",
		"slug":      "orphan",
		"author_id": "missing",
	})
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)
}

func testDeleteRestrict(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	author := CreateUser(t, db, "dave", entities.RoleAuthor)
	createPost(t, db, author["id"].(string), "Hello", "hello", entities.StatusDraft)

	err := db.Repository(entities.UserSchema).Delete(ctx, interfaces.StringID(author["id"].(string)))
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)

	_, err = db.Repository(entities.UserSchema).GetByID(ctx, interfaces.StringID(author["id"].(string)))
	assert.NoError(t, err)
}

func testDeleteCascade(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	author := CreateUser(t, db, "erin", entities.RoleAuthor)
	post := createPost(t, db, author["id"].(string), "Linked", "linked", entities.StatusDraft)
	category := createCategory(t, db, "news", nil)

	links := db.Repository(entities.PostCategorySchema)
	_, err := links.Create(ctx, interfaces.Record{"post_id": post["id"], "category_id": category["id"]})
	require.NoError(t, err)

	_, err = links.Create(ctx, interfaces.Record{"post_id": post["id"], "category_id": category["id"]})
	assert.ErrorIs(t, err, interfaces.ErrUniqueConstraint)

	require.NoError(t, db.Repository(entities.PostSchema).Delete(ctx, interfaces.StringID(post["id"].(string))))

	n, err := links.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func testDeleteSetNull(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	parent := createCategory(t, db, "parent", nil)
	child := createCategory(t, db, "child", parent["id"])

	categories := db.Repository(entities.CategorySchema)
	require.NoError(t, categories.Delete(ctx, interfaces.StringID(parent["id"].(string))))

	got, err := categories.GetByID(ctx, interfaces.StringID(child["id"].(string)))
	require.NoError(t, err)
	assert.Nil(t, got["parent_id"])

	uploader := CreateUser(t, db, "frank", entities.RoleAuthor)
	media := db.Repository(entities.MediaSchema)
	m, err := media.Create(ctx, interfaces.Record{
		"filename":          "1_a.png",
		"original_filename": "a.png",
		"file_size":         int64(3),
		"uploaded_by":       uploader["id"],
	})
	require.NoError(t, err)

	require.NoError(t, db.Repository(entities.UserSchema).Delete(ctx, interfaces.StringID(uploader["id"].(string))))

	got, err = media.GetByID(ctx, interfaces.StringID(m["id"].(string)))
	require.NoError(t, err)
	assert.Nil(t, got["uploaded_by"])
	assert.Equal(t, int64(3), entities.MediaFromRecord(got).FileSize)
}

func testFilters(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	author := CreateUser(t, db, "gina", entities.RoleAdmin)
	authorID := author["id"].(string)
	createPost(t, db, authorID, "Go Tips", "go-tips", entities.StatusPublished)
	createPost(t, db, authorID, "Rust Notes", "rust-notes", entities.StatusDraft)
	createPost(t, db, authorID, "More Go", "more-go", entities.StatusDraft)

	posts := db.Repository(entities.PostSchema)

	drafts, err := posts.FindMany(ctx, &interfaces.Query{Where: interfaces.Where(interfaces.Record{"status": entities.StatusDraft})})
	require.NoError(t, err)
	assert.Equal(t, int64(2), drafts.Total)

	in, err := posts.FindMany(ctx, &interfaces.Query{Where: interfaces.FieldIn("slug", "go-tips", "more-go", "absent")})
	require.NoError(t, err)
	assert.Len(t, in.Data, 2)

	insensitive := false
	like, err := posts.FindMany(ctx, &interfaces.Query{Where: &interfaces.Filters{
		Conditions: []interfaces.Filter{{Field: "title", Operator: &interfaces.FilterOperator{Like: "go", CaseSensitive: &insensitive}}},
	}})
	require.NoError(t, err)
	assert.Len(t, like.Data, 2)

	or, err := posts.Count(ctx, &interfaces.Query{Where: &interfaces.Filters{OR: []*interfaces.Filters{
		interfaces.Where(interfaces.Record{"slug": "go-tips"}),
		interfaces.Where(interfaces.Record{"slug": "rust-notes"}),
	}}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), or)

	admins, err := db.Repository(entities.UserSchema).Count(ctx, &interfaces.Query{
		Where: interfaces.Where(interfaces.Record{"role": entities.RoleAdmin}),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), admins)
}

func testSortAndPaginate(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	author := CreateUser(t, db, "hank", entities.RoleAuthor)
	for _, title := range []string{"Beta", "Alpha", "Gamma"} {
		createPost(t, db, author["id"].(string), title, title, entities.StatusDraft)
	}

	posts := db.Repository(entities.PostSchema)
	limit, offset := 2, 1
	page, err := posts.FindMany(ctx, &interfaces.Query{
		OrderBy: []interfaces.OrderBy{{Field: "title", Direction: "desc"}},
		Limit:   &limit,
		Offset:  &offset,
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, "Beta", page.Data[0]["title"])
	assert.Equal(t, "Alpha", page.Data[1]["title"])

	one, err := posts.FindOne(ctx, &interfaces.Query{OrderBy: []interfaces.OrderBy{{Field: "title", Direction: "asc"}}})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", one["title"])

	_, err = posts.FindOne(ctx, &interfaces.Query{Where: interfaces.Where(interfaces.Record{"slug": "nope"})})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func testDeleteWhere(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	createCategory(t, db, "one", nil)
	createCategory(t, db, "two", nil)
	createCategory(t, db, "three", nil)

	categories := db.Repository(entities.CategorySchema)
	n, err := categories.DeleteWhere(ctx, interfaces.FieldIn("slug", "one", "three"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := categories.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), left)
}

func testUpsert(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	settings := db.Repository(entities.SettingsSchema)

	created, err := settings.Upsert(ctx, interfaces.Record{"id": entities.SettingsID}, interfaces.Record{"site_name": "First"})
	require.NoError(t, err)
	assert.Equal(t, 10, entities.SettingsFromRecord(created).PostsPerPage)
	assert.True(t, entities.SettingsFromRecord(created).MailUseTLS)

	updated, err := settings.Upsert(ctx, interfaces.Record{"id": entities.SettingsID}, interfaces.Record{"site_name": "Second"})
	require.NoError(t, err)
	assert.Equal(t, "Second", updated["site_name"])

	n, err := settings.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testTransactionRollback(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		_, err := db.Repository(entities.CategorySchema).Create(ctx, interfaces.Record{"name": "tmp", "slug": "tmp"})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := db.Repository(entities.CategorySchema).Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	err = db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		_, err := db.Repository(entities.CategorySchema).Create(ctx, interfaces.Record{"name": "kept", "slug": "kept"})
		return err
	})
	require.NoError(t, err)

	n, err = db.Repository(entities.CategorySchema).Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testTransactionNested(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Transaction(ctx, func(ctx context.Context, outer interfaces.Transaction) error {
		if _, err := db.Repository(entities.CategorySchema).Create(ctx, interfaces.Record{"name": "a", "slug": "a"}); err != nil {
			return err
		}
		innerErr := db.Transaction(ctx, func(ctx context.Context, inner interfaces.Transaction) error {
			assert.Same(t, outer, inner)
			_, err := db.Repository(entities.CategorySchema).Create(ctx, interfaces.Record{"name": "b", "slug": "b"})
			return err
		})
		require.NoError(t, innerErr)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := db.Repository(entities.CategorySchema).Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func testUnknownField(t *testing.T, db interfaces.Database) {
	ctx := context.Background()
	_, err := db.Repository(entities.CategorySchema).FindMany(ctx, &interfaces.Query{
		OrderBy: []interfaces.OrderBy{{Field: "name; DROP TABLE users", Direction: "asc"}},
	})
	assert.ErrorIs(t, err, interfaces.ErrInvalidQuery)

	_, err = db.Repository(entities.CategorySchema).Create(ctx, interfaces.Record{"name": "x", "slug": "x", "bogus": 1})
	assert.Error(t, err)
}
