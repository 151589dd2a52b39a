package content

import (
	"context"
	"testing"

	"github.com/leafsii/leafsii-cms/internal/db"
	"github.com/leafsii/leafsii-cms/internal/db/dbtest"
	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T, opts Options) (*Service, *domain.Caller) {
	t.Helper()
	database := db.NewInMemoryDatabase()
	require.NoError(t, db.ConnectAndMigrate(context.Background(), database, db.AllSchemas()))

	author := dbtest.CreateUser(t, database, "writer", entities.RoleAuthor)
	caller := &domain.Caller{UserID: author["id"].(string), Username: "writer", Role: entities.RoleAuthor}
	return NewService(database, opts, nil, nil), caller
}

func titles(posts []*entities.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func TestPublishWorkflow(t *testing.T) {
	svc, caller := setupService(t, Options{})
	ctx := context.Background()

	tech, err := svc.CreateCategory(ctx, caller, CategoryInput{Name: "Tech", Slug: "tech"})
	require.NoError(t, err)

	post, err := svc.CreatePost(ctx, caller, PostInput{Title: "Post A", Slug: "post-a", Status: entities.StatusDraft}, []string{tech.ID})
	require.NoError(t, err)
	require.Len(t, post.Categories, 1)
	assert.Equal(t, "tech", post.Categories[0].Slug)
	require.NotNil(t, post.Author)
	assert.Equal(t, "writer", post.Author.Username)

	drafts, err := svc.ListPosts(ctx, ListFilter{Status: entities.StatusDraft})
	require.NoError(t, err)
	assert.Equal(t, []string{"Post A"}, titles(drafts))

	_, err = svc.SetStatus(ctx, caller, post.ID, entities.StatusPublished)
	require.NoError(t, err)

	published, err := svc.ListPosts(ctx, ListFilter{Status: entities.StatusPublished})
	require.NoError(t, err)
	assert.Equal(t, []string{"Post A"}, titles(published))

	drafts, err = svc.ListPosts(ctx, ListFilter{Status: entities.StatusDraft})
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestSetStatusIsIdempotent(t *testing.T) {
	svc, caller := setupService(t, Options{})
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, caller, PostInput{Title: "Toggle"}, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusDraft, post.Status)

	for i := 0; i < 2; i++ {
		p, err := svc.SetStatus(ctx, caller, post.ID, entities.StatusPublished)
		require.NoError(t, err)
		assert.Equal(t, entities.StatusPublished, p.Status)
	}

	p, err := svc.SetStatus(ctx, caller, post.ID, entities.StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusDraft, p.Status)

	_, err = svc.SetStatus(ctx, caller, post.ID, "archived")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.SetStatus(ctx, caller, "missing", entities.StatusPublished)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreatePostSlugUniqueness(t *testing.T) {
	svc, caller := setupService(t, Options{})
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, caller, PostInput{Title: "First", Slug: "post-a"}, nil)
	require.NoError(t, err)

	_, err = svc.CreatePost(ctx, caller, PostInput{Title: "Second", Slug: "post-a"}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, domain.UserMessage(err), "post-a")

	fresh, err := svc.CreatePost(ctx, caller, PostInput{Title: "Second", Slug: "post-b"}, nil)
	require.NoError(t, err)

	found, err := svc.GetPostBySlug(ctx, "post-b")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, found.ID)

	derived, err := svc.CreatePost(ctx, caller, PostInput{Title: "Hello, World!"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello-world", derived.Slug)

	_, err = svc.CreatePost(ctx, caller, PostInput{Title: "  "}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.GetPostBySlug(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreatePostRequiresCaller(t *testing.T) {
	svc, _ := setupService(t, Options{})

	_, err := svc.CreatePost(context.Background(), nil, PostInput{Title: "Anon"}, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestUpdatePostReplacesCategories(t *testing.T) {
	svc, caller := setupService(t, Options{})
	ctx := context.Background()

	tech, err := svc.CreateCategory(ctx, caller, CategoryInput{Name: "Tech"})
	require.NoError(t, err)
	news, err := svc.CreateCategory(ctx, caller, CategoryInput{Name: "News"})
	require.NoError(t, err)

	post, err := svc.CreatePost(ctx, caller, PostInput{Title: "Linked"}, []string{tech.ID, "unknown", tech.ID})
	require.NoError(t, err)
	require.Len(t, post.Categories, 1)

	updated, err := svc.UpdatePost(ctx, caller, post.ID, PostInput{Title: "Linked", Content: "body"}, []string{news.ID})
	require.NoError(t, err)
	require.Len(t, updated.Categories, 1)
	assert.Equal(t, news.ID, updated.Categories[0].ID)
	assert.Equal(t, "body", updated.Content)

	cleared, err := svc.UpdatePost(ctx, caller, post.ID, PostInput{Title: "Linked"}, nil)
	require.NoError(t, err)
	assert.Empty(t, cleared.Categories)

	_, err = svc.UpdatePost(ctx, caller, "missing", PostInput{Title: "X"}, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdatePostKeepsOwnSlug(t *testing.T) {
	svc, caller := setupService(t, Options{})
	ctx := context.Background()

	a, err := svc.CreatePost(ctx, caller, PostInput{Title: "A", Slug: "a"}, nil)
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, caller, PostInput{Title: "B", Slug: "b"}, nil)
	require.NoError(t, err)

	_, err = svc.UpdatePost(ctx, caller, a.ID, PostInput{Title: "A2", Slug: "a"}, nil)
	assert.NoError(t, err)

	_, err = svc.UpdatePost(ctx, caller, a.ID, PostInput{Title: "A2", Slug: "b"}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeletePost(t *testing.T) {
	svc, caller := setupService(t, Options{})
	ctx := context.Background()

	tech, err := svc.CreateCategory(ctx, caller, CategoryInput{Name: "Tech"})
	require.NoError(t, err)
	post, err := svc.CreatePost(ctx, caller, PostInput{Title: "Doomed"}, []string{tech.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, caller, post.ID))
	assert.ErrorIs(t, svc.DeletePost(ctx, caller, post.ID), domain.ErrNotFound)

	_, err = svc.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := svc.links.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListPostsSorting(t *testing.T) {
	svc, caller := setupService(t, Options{})
	ctx := context.Background()

	for _, title := range []string{"Charlie", "Alpha", "Bravo"} {
		_, err := svc.CreatePost(ctx, caller, PostInput{Title: title}, nil)
		require.NoError(t, err)
	}
	bravo, err := svc.GetPostBySlug(ctx, "bravo")
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, caller, bravo.ID, entities.StatusPublished)
	require.NoError(t, err)

	byTitle, err := svc.ListPosts(ctx, ListFilter{Sort: SortTitle})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, titles(byTitle))

	byStatus, err := svc.ListPosts(ctx, ListFilter{Status: StatusAll, Sort: SortStatus})
	require.NoError(t, err)
	require.Len(t, byStatus, 3)
	assert.Equal(t, entities.StatusDraft, byStatus[0].Status)
	assert.Equal(t, "Bravo", byStatus[2].Title)

	newest, err := svc.ListPosts(ctx, ListFilter{})
	require.NoError(t, err)
	oldest, err := svc.ListPosts(ctx, ListFilter{Sort: SortOldest})
	require.NoError(t, err)
	require.Len(t, newest, 3)
	require.Len(t, oldest, 3)
	assert.False(t, newest[0].CreatedAt.Before(newest[2].CreatedAt))
	assert.False(t, oldest[2].CreatedAt.Before(oldest[0].CreatedAt))

	_, err = svc.ListPosts(ctx, ListFilter{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	recent, err := svc.RecentPosts(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Posts: 3, Published: 1, Drafts: 2, Categories: 0}, stats)
}

func TestListPublishedPaginates(t *testing.T) {
	svc, caller := setupService(t, Options{})
	ctx := context.Background()

	for _, title := range []string{"One", "Two", "Three", "Four", "Five"} {
		_, err := svc.CreatePost(ctx, caller, PostInput{Title: title, Status: entities.StatusPublished}, nil)
		require.NoError(t, err)
	}
	_, err := svc.CreatePost(ctx, caller, PostInput{Title: "Hidden"}, nil)
	require.NoError(t, err)

	page, err := svc.ListPublished(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Posts, 2)
	assert.Equal(t, 2, page.Page)

	last, err := svc.ListPublished(ctx, 3, 2)
	require.NoError(t, err)
	assert.Len(t, last.Posts, 1)

	first, err := svc.ListPublished(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Page)
	assert.Len(t, first.Posts, 5)
	assert.NotContains(t, titles(first.Posts), "Hidden")
}

func TestCategoryLifecycle(t *testing.T) {
	svc, caller := setupService(t, Options{})
	ctx := context.Background()

	parent, err := svc.CreateCategory(ctx, caller, CategoryInput{Name: "Technology", Description: " all things tech "})
	require.NoError(t, err)
	assert.Equal(t, "technology", parent.Slug)
	assert.Equal(t, "all things tech", parent.Description)
	assert.Nil(t, parent.ParentID)

	child, err := svc.CreateCategory(ctx, caller, CategoryInput{Name: "Go", ParentID: parent.ID})
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)

	_, err = svc.CreateCategory(ctx, caller, CategoryInput{Name: "Other", Slug: "go"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateCategory(ctx, caller, CategoryInput{Name: "Orphan", ParentID: "missing"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	post, err := svc.CreatePost(ctx, caller, PostInput{Title: "Tagged"}, []string{parent.ID, child.ID})
	require.NoError(t, err)
	require.Len(t, post.Categories, 2)

	require.NoError(t, svc.DeleteCategory(ctx, caller, parent.ID))

	orphan, err := svc.GetCategory(ctx, child.ID)
	require.NoError(t, err)
	assert.Nil(t, orphan.ParentID)

	reloaded, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Categories, 1)
	assert.Equal(t, child.ID, reloaded.Categories[0].ID)

	all, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, svc.DeleteCategory(ctx, caller, parent.ID), domain.ErrNotFound)
}

func TestCategoryCycles(t *testing.T) {
	ctx := context.Background()

	build := func(t *testing.T, svc *Service, caller *domain.Caller) (a, b, c *entities.Category) {
		var err error
		a, err = svc.CreateCategory(ctx, caller, CategoryInput{Name: "A"})
		require.NoError(t, err)
		b, err = svc.CreateCategory(ctx, caller, CategoryInput{Name: "B", ParentID: a.ID})
		require.NoError(t, err)
		c, err = svc.CreateCategory(ctx, caller, CategoryInput{Name: "C", ParentID: b.ID})
		require.NoError(t, err)
		return a, b, c
	}

	t.Run("tolerated by default", func(t *testing.T) {
		svc, caller := setupService(t, Options{})
		a, _, c := build(t, svc, caller)

		updated, err := svc.UpdateCategory(ctx, caller, a.ID, CategoryInput{Name: "A", ParentID: c.ID})
		require.NoError(t, err)
		assert.Equal(t, c.ID, *updated.ParentID)
	})

	t.Run("rejected in strict mode", func(t *testing.T) {
		svc, caller := setupService(t, Options{StrictCategoryTree: true})
		a, b, c := build(t, svc, caller)

		_, err := svc.UpdateCategory(ctx, caller, a.ID, CategoryInput{Name: "A", ParentID: c.ID})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = svc.UpdateCategory(ctx, caller, b.ID, CategoryInput{Name: "B", ParentID: b.ID})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = svc.UpdateCategory(ctx, caller, c.ID, CategoryInput{Name: "C", ParentID: a.ID})
		assert.NoError(t, err)

		_, err = svc.UpdateCategory(ctx, caller, b.ID, CategoryInput{Name: "B"})
		assert.NoError(t, err)
	})
}

func TestCategoryRecordRoundTrip(t *testing.T) {
	svc, caller := setupService(t, Options{})
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, caller, CategoryInput{Name: "News"})
	require.NoError(t, err)

	record, err := svc.categories.GetByID(ctx, interfaces.StringID(c.ID))
	require.NoError(t, err)
	assert.Nil(t, record["parent_id"])
}

func TestStats(t *testing.T) {
	svc, caller := setupService(t, Options{})
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, caller, CategoryInput{Name: "News", Slug: "news"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, caller, PostInput{Title: "Draft", Status: entities.StatusDraft}, nil)
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, caller, PostInput{Title: "Live", Status: entities.StatusPublished}, nil)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Posts: 2, Published: 1, Drafts: 1, Categories: 1}, stats)
}
