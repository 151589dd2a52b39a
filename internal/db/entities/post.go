package entities

import (
	"time"

	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
)

// Post statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Post represents a post entity
type Post struct {
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Slug          string    `json:"slug" db:"slug"`
	Content       string    `json:"content" db:"content"`
	Excerpt       string    `json:"excerpt" db:"excerpt"`
	FeaturedImage string    `json:"featured_image" db:"featured_image"`
	Status        string    `json:"status" db:"status"`
	AuthorID      string    `json:"author_id" db:"author_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`

	// Loaded from post_categories by the content service
	Categories []*Category `json:"categories,omitempty" db:"-"`
	Author     *User       `json:"author,omitempty" db:"-"`
}

// IsPublished reports whether the post is publicly visible.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// HasCategory reports whether the post is linked to the category id.
func (p *Post) HasCategory(id string) bool {
	for _, c := range p.Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// PostSchema defines the database schema for posts
var PostSchema = &interfaces.Schema{
	TableName: "posts",
	Fields: withTimestamps(map[string]interfaces.FieldSchema{
		"title": {
			Type: "string",
		},
		"slug": {
			Type:   "string",
			Unique: true,
		},
		"content": {
			Type:         "string",
			DefaultValue: "",
		},
		"excerpt": {
			Type:         "string",
			DefaultValue: "",
		},
		"featured_image": {
			Type:         "string",
			DefaultValue: "",
		},
		"status": {
			Type:         "string",
			DefaultValue: StatusDraft,
		},
		"author_id": {
			Type: "string",
			ForeignKey: &interfaces.ForeignKey{
				Table:    "users",
				Column:   "id",
				OnDelete: interfaces.OnDeleteRestrict,
			},
		},
	}),
	Indexes: []interfaces.Index{
		{
			Name:    "idx_posts_slug",
			Columns: []string{"slug"},
			Unique:  true,
		},
		{
			Name:    "idx_posts_author",
			Columns: []string{"author_id"},
		},
		{
			Name:    "idx_posts_status",
			Columns: []string{"status"},
		},
	},
}

// PostFromRecord maps a posts row.
func PostFromRecord(r interfaces.Record) *Post {
	return &Post{
		ID:            getString(r, "id"),
		Title:         getString(r, "title"),
		Slug:          getString(r, "slug"),
		Content:       getString(r, "content"),
		Excerpt:       getString(r, "excerpt"),
		FeaturedImage: getString(r, "featured_image"),
		Status:        getString(r, "status"),
		AuthorID:      getString(r, "author_id"),
		CreatedAt:     getTime(r, "created_at"),
		UpdatedAt:     getTime(r, "updated_at"),
	}
}

// Record returns the writable columns of the post.
func (p *Post) Record() interfaces.Record {
	return interfaces.Record{
		"title":          p.Title,
		"slug":           p.Slug,
		"content":        p.Content,
		"excerpt":        p.Excerpt,
		"featured_image": p.FeaturedImage,
		"status":         p.Status,
		"author_id":      p.AuthorID,
	}
}

// PostCategory links a post to a category.
type PostCategory struct {
	ID         string `json:"id" db:"id"`
	PostID     string `json:"post_id" db:"post_id"`
	CategoryID string `json:"category_id" db:"category_id"`
}

// PostCategorySchema defines the post/category join table
var PostCategorySchema = &interfaces.Schema{
	TableName: "post_categories",
	Fields: withTimestamps(map[string]interfaces.FieldSchema{
		"post_id": {
			Type: "string",
			ForeignKey: &interfaces.ForeignKey{
				Table:    "posts",
				Column:   "id",
				OnDelete: interfaces.OnDeleteCascade,
			},
		},
		"category_id": {
			Type: "string",
			ForeignKey: &interfaces.ForeignKey{
				Table:    "categories",
				Column:   "id",
				OnDelete: interfaces.OnDeleteCascade,
			},
		},
	}),
	Indexes: []interfaces.Index{
		{
			Name:    "idx_post_categories_pair",
			Columns: []string{"post_id", "category_id"},
			Unique:  true,
		},
		{
			Name:    "idx_post_categories_category",
			Columns: []string{"category_id"},
		},
	},
}

// PostCategoryFromRecord maps a post_categories row.
func PostCategoryFromRecord(r interfaces.Record) *PostCategory {
	return &PostCategory{
		ID:         getString(r, "id"),
		PostID:     getString(r, "post_id"),
		CategoryID: getString(r, "category_id"),
	}
}
