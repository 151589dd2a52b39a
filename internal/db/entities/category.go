package entities

import (
	"time"

	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
)

// Category represents a node of the category tree
type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	ParentID    *string   `json:"parent_id,omitempty" db:"parent_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CategorySchema defines the database schema for categories
var CategorySchema = &interfaces.Schema{
	TableName: "categories",
	Fields: withTimestamps(map[string]interfaces.FieldSchema{
		"name": {
			Type: "string",
		},
		"slug": {
			Type:   "string",
			Unique: true,
		},
		"description": {
			Type:         "string",
			DefaultValue: "",
		},
		"parent_id": {
			Type:     "string",
			Nullable: true,
			ForeignKey: &interfaces.ForeignKey{
				Table:    "categories",
				Column:   "id",
				OnDelete: interfaces.OnDeleteSetNull,
			},
		},
	}),
	Indexes: []interfaces.Index{
		{
			Name:    "idx_categories_slug",
			Columns: []string{"slug"},
			Unique:  true,
		},
		{
			Name:    "idx_categories_parent",
			Columns: []string{"parent_id"},
		},
	},
}

// CategoryFromRecord maps a categories row.
func CategoryFromRecord(r interfaces.Record) *Category {
	return &Category{
		ID:          getString(r, "id"),
		Name:        getString(r, "name"),
		Slug:        getString(r, "slug"),
		Description: getString(r, "description"),
		ParentID:    getStringPtr(r, "parent_id"),
		CreatedAt:   getTime(r, "created_at"),
		UpdatedAt:   getTime(r, "updated_at"),
	}
}

// Record returns the writable columns of the category.
func (c *Category) Record() interfaces.Record {
	return interfaces.Record{
		"name":        c.Name,
		"slug":        c.Slug,
		"description": c.Description,
		"parent_id":   nullable(c.ParentID),
	}
}
