package content

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/leafsii/leafsii-cms/internal/policy"
)

// PostInput carries the editable post fields. An empty Slug is derived
// from the title and an empty Status means draft.
type PostInput struct {
	Title         string
	Slug          string
	Content       string
	Excerpt       string
	FeaturedImage string
	Status        string
}

// List sort orders
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortTitle  = "title"
	SortStatus = "status"
)

// StatusAll disables the status filter
const StatusAll = "all"

type ListFilter struct {
	Status string
	Sort   string
}

// PostPage is one page of published posts
type PostPage struct {
	Posts   []*entities.Post `json:"posts"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

func validStatus(status string) bool {
	return status == entities.StatusDraft || status == entities.StatusPublished
}

func (in *PostInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.Invalid("title", "Title is required.")
	}
	source := in.Slug
	if strings.TrimSpace(source) == "" {
		source = in.Title
	}
	in.Slug = Slugify(source)
	if in.Slug == "" {
		return domain.Invalid("slug", "Slug must contain at least one letter or digit.")
	}
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	if in.Status == "" {
		in.Status = entities.StatusDraft
	}
	if !validStatus(in.Status) {
		return domain.Invalid("status", "Unknown status %q.", in.Status)
	}
	return nil
}

// CreatePost stores a new post authored by caller and links it to the
// categories in categoryIDs that exist. Unknown ids are ignored.
func (s *Service) CreatePost(ctx context.Context, caller *domain.Caller, in PostInput, categoryIDs []string) (*entities.Post, error) {
	if err := policy.RequireRole(caller, entities.RoleAuthor); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var post *entities.Post
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		taken, err := slugTaken(ctx, s.posts, in.Slug, "")
		if err != nil {
			return err
		}
		if taken {
			return domain.Invalid("slug", "Slug %q is already in use.", in.Slug)
		}

		p := &entities.Post{
			Title:         in.Title,
			Slug:          in.Slug,
			Content:       in.Content,
			Excerpt:       in.Excerpt,
			FeaturedImage: in.FeaturedImage,
			Status:        in.Status,
			AuthorID:      caller.UserID,
		}
		record, err := s.posts.Create(ctx, p.Record())
		if err != nil {
			return domain.FromStorage("create post", err)
		}
		post = entities.PostFromRecord(record)

		if err := s.replaceCategories(ctx, post.ID, categoryIDs); err != nil {
			return err
		}
		return s.hydrate(ctx, []*entities.Post{post})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMutation(ctx, "post", "create")
	s.logger.Infow("Post created", "post_id", post.ID, "slug", post.Slug, "by", caller.Username)
	return post, nil
}

// UpdatePost rewrites a post and replaces its category links wholesale
func (s *Service) UpdatePost(ctx context.Context, caller *domain.Caller, id string, in PostInput, categoryIDs []string) (*entities.Post, error) {
	if err := policy.RequireRole(caller, entities.RoleAuthor); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var post *entities.Post
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		if _, err := s.getPost(ctx, id); err != nil {
			return err
		}
		taken, err := slugTaken(ctx, s.posts, in.Slug, id)
		if err != nil {
			return err
		}
		if taken {
			return domain.Invalid("slug", "Slug %q is already in use.", in.Slug)
		}

		record, err := s.posts.Update(ctx, interfaces.StringID(id), interfaces.Record{
			"title":          in.Title,
			"slug":           in.Slug,
			"content":        in.Content,
			"excerpt":        in.Excerpt,
			"featured_image": in.FeaturedImage,
			"status":         in.Status,
		})
		if err != nil {
			return domain.FromStorage("update post", err)
		}
		post = entities.PostFromRecord(record)

		if err := s.replaceCategories(ctx, id, categoryIDs); err != nil {
			return err
		}
		return s.hydrate(ctx, []*entities.Post{post})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMutation(ctx, "post", "update")
	s.logger.Infow("Post updated", "post_id", id, "by", caller.Username)
	return post, nil
}

func (s *Service) DeletePost(ctx context.Context, caller *domain.Caller, id string) error {
	if err := policy.RequireRole(caller, entities.RoleAuthor); err != nil {
		return err
	}

	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		if err := s.posts.Delete(ctx, interfaces.StringID(id)); err != nil {
			return domain.FromStorage("delete post", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordMutation(ctx, "post", "delete")
	s.logger.Infow("Post deleted", "post_id", id, "by", caller.Username)
	return nil
}

// SetStatus moves a post to status. Setting the current status again is a no-op.
func (s *Service) SetStatus(ctx context.Context, caller *domain.Caller, id, status string) (*entities.Post, error) {
	if err := policy.RequireRole(caller, entities.RoleAuthor); err != nil {
		return nil, err
	}
	if !validStatus(status) {
		return nil, domain.Invalid("status", "Unknown status %q.", status)
	}

	var (
		post    *entities.Post
		changed bool
	)
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		current, err := s.getPost(ctx, id)
		if err != nil {
			return err
		}
		post = current
		if current.Status == status {
			return nil
		}
		record, err := s.posts.Update(ctx, interfaces.StringID(id), interfaces.Record{"status": status})
		if err != nil {
			return domain.FromStorage("set post status", err)
		}
		post = entities.PostFromRecord(record)
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.RecordMutation(ctx, "post", status)
		s.logger.Infow("Post status changed", "post_id", id, "status", status, "by", caller.Username)
	}
	return post, nil
}

func (s *Service) GetPost(ctx context.Context, id string) (*entities.Post, error) {
	var post *entities.Post
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		p, err := s.getPost(ctx, id)
		if err != nil {
			return err
		}
		post = p
		return s.hydrate(ctx, []*entities.Post{p})
	})
	return post, err
}

func (s *Service) GetPostBySlug(ctx context.Context, slug string) (*entities.Post, error) {
	var post *entities.Post
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		record, err := s.posts.FindOne(ctx, &interfaces.Query{
			Where: interfaces.Where(map[string]interface{}{"slug": slug}),
		})
		if err != nil {
			return domain.FromStorage("get post by slug", err)
		}
		post = entities.PostFromRecord(record)
		return s.hydrate(ctx, []*entities.Post{post})
	})
	return post, err
}

func (s *Service) getPost(ctx context.Context, id string) (*entities.Post, error) {
	record, err := s.posts.GetByID(ctx, interfaces.StringID(id))
	if err != nil {
		return nil, domain.FromStorage("get post", err)
	}
	return entities.PostFromRecord(record), nil
}

// ListPosts returns posts matching filter.Status ("all" or empty for every
// post) in filter.Sort order, newest first by default.
func (s *Service) ListPosts(ctx context.Context, filter ListFilter) ([]*entities.Post, error) {
	q := &interfaces.Query{OrderBy: postOrder(filter.Sort)}
	switch filter.Status {
	case "", StatusAll:
	case entities.StatusDraft, entities.StatusPublished:
		q.Where = interfaces.Where(map[string]interface{}{"status": filter.Status})
	default:
		return nil, domain.Invalid("status", "Unknown status filter %q.", filter.Status)
	}
	return s.findPosts(ctx, q)
}

// RecentPosts returns the n most recently created posts of any status
func (s *Service) RecentPosts(ctx context.Context, n int) ([]*entities.Post, error) {
	return s.findPosts(ctx, &interfaces.Query{OrderBy: postOrder(SortNewest), Limit: &n})
}

// ListPublished pages through published posts, newest first. Pages start at 1.
func (s *Service) ListPublished(ctx context.Context, page, perPage int) (*PostPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	offset := (page - 1) * perPage
	q := &interfaces.Query{
		Where:   interfaces.Where(map[string]interface{}{"status": entities.StatusPublished}),
		OrderBy: postOrder(SortNewest),
		Limit:   &perPage,
		Offset:  &offset,
	}

	result := &PostPage{Page: page, PerPage: perPage}
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		res, err := s.posts.FindMany(ctx, q)
		if err != nil {
			return domain.FromStorage("list published posts", err)
		}
		result.Total = res.Total
		result.Posts = postsFrom(res.Data)
		return s.hydrate(ctx, result.Posts)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) findPosts(ctx context.Context, q *interfaces.Query) ([]*entities.Post, error) {
	var posts []*entities.Post
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		res, err := s.posts.FindMany(ctx, q)
		if err != nil {
			return domain.FromStorage("list posts", err)
		}
		posts = postsFrom(res.Data)
		return s.hydrate(ctx, posts)
	})
	return posts, err
}

func postOrder(sort string) []interfaces.OrderBy {
	switch sort {
	case SortOldest:
		return []interfaces.OrderBy{{Field: "created_at", Direction: "asc"}}
	case SortTitle:
		return []interfaces.OrderBy{{Field: "title", Direction: "asc"}}
	case SortStatus:
		return []interfaces.OrderBy{
			{Field: "status", Direction: "asc"},
			{Field: "created_at", Direction: "desc"},
		}
	default:
		return []interfaces.OrderBy{{Field: "created_at", Direction: "desc"}}
	}
}

func postsFrom(records []interfaces.Record) []*entities.Post {
	posts := make([]*entities.Post, 0, len(records))
	for _, r := range records {
		posts = append(posts, entities.PostFromRecord(r))
	}
	return posts
}

// replaceCategories drops every link of postID and links it to the
// existing categories among ids
func (s *Service) replaceCategories(ctx context.Context, postID string, ids []string) error {
	if _, err := s.links.DeleteWhere(ctx, interfaces.Where(map[string]interface{}{"post_id": postID})); err != nil {
		return domain.FromStorage("clear post categories", err)
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		if _, err := s.categories.GetByID(ctx, interfaces.StringID(id)); err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				s.logger.Debugw("Skipping unknown category", "post_id", postID, "category_id", id)
				continue
			}
			return domain.FromStorage("get category", err)
		}
		_, err := s.links.Create(ctx, interfaces.Record{"post_id": postID, "category_id": id})
		if err != nil {
			return domain.FromStorage("link category", err)
		}
	}
	return nil
}

// hydrate loads the categories and author of each post
func (s *Service) hydrate(ctx context.Context, posts []*entities.Post) error {
	if len(posts) == 0 {
		return nil
	}

	postIDs := make([]interface{}, 0, len(posts))
	authorIDs := make([]interface{}, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		authorIDs = append(authorIDs, p.AuthorID)
	}

	links, err := s.links.FindMany(ctx, &interfaces.Query{Where: interfaces.FieldIn("post_id", postIDs...)})
	if err != nil {
		return domain.FromStorage("load post categories", err)
	}
	categoryIDs := make([]interface{}, 0, len(links.Data))
	for _, r := range links.Data {
		categoryIDs = append(categoryIDs, entities.PostCategoryFromRecord(r).CategoryID)
	}

	categories := make(map[string]*entities.Category)
	if len(categoryIDs) > 0 {
		res, err := s.categories.FindMany(ctx, &interfaces.Query{Where: interfaces.FieldIn("id", categoryIDs...)})
		if err != nil {
			return domain.FromStorage("load categories", err)
		}
		for _, r := range res.Data {
			c := entities.CategoryFromRecord(r)
			categories[c.ID] = c
		}
	}

	authors := make(map[string]*entities.User)
	res, err := s.users.FindMany(ctx, &interfaces.Query{Where: interfaces.FieldIn("id", authorIDs...)})
	if err != nil {
		return domain.FromStorage("load authors", err)
	}
	for _, r := range res.Data {
		u := entities.UserFromRecord(r)
		authors[u.ID] = u
	}

	byPost := make(map[string][]*entities.Category)
	for _, r := range links.Data {
		link := entities.PostCategoryFromRecord(r)
		if c, ok := categories[link.CategoryID]; ok {
			byPost[link.PostID] = append(byPost[link.PostID], c)
		}
	}
	for _, p := range posts {
		cats := byPost[p.ID]
		sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
		p.Categories = cats
		p.Author = authors[p.AuthorID]
	}
	return nil
}
