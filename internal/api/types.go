package api

import (
	"time"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HealthDTO struct {
	Status  string   `json:"status"`
	Reasons []string `json:"reasons"`
}

type CategoryDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id"`
}

type AuthorDTO struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type PostDTO struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Slug          string        `json:"slug"`
	Excerpt       string        `json:"excerpt"`
	Content       string        `json:"content,omitempty"`
	FeaturedImage string        `json:"featured_image,omitempty"`
	Author        *AuthorDTO    `json:"author,omitempty"`
	Categories    []CategoryDTO `json:"categories"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type PostPageDTO struct {
	Posts      []PostDTO `json:"posts"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int64     `json:"total_pages"`
}

func categoryDTO(c *entities.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ParentID:    c.ParentID,
	}
}

// postDTO renders p for the public API. Content is only included for the
// single-post endpoint.
func postDTO(p *entities.Post, withContent bool) PostDTO {
	dto := PostDTO{
		ID:            p.ID,
		Title:         p.Title,
		Slug:          p.Slug,
		Excerpt:       p.Excerpt,
		FeaturedImage: p.FeaturedImage,
		Categories:    make([]CategoryDTO, 0, len(p.Categories)),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if withContent {
		dto.Content = p.Content
	}
	if p.Author != nil {
		dto.Author = &AuthorDTO{Username: p.Author.Username, FullName: p.Author.FullName}
	}
	for _, c := range p.Categories {
		dto.Categories = append(dto.Categories, categoryDTO(c))
	}
	return dto
}
