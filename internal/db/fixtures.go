package db

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"gopkg.in/yaml.v3"
)

// SeedFile describes categories and posts to load into an installation
type SeedFile struct {
	Categories []SeedCategory `yaml:"categories"`
	Posts      []SeedPost     `yaml:"posts"`
}

// SeedCategory is a category fixture; Parent is the slug of another fixture
type SeedCategory struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Parent      string `yaml:"parent"`
}

// SeedPost is a post fixture; Categories lists category slugs
type SeedPost struct {
	Title      string   `yaml:"title"`
	Slug       string   `yaml:"slug"`
	Content    string   `yaml:"content"`
	Excerpt    string   `yaml:"excerpt"`
	Status     string   `yaml:"status"`
	Categories []string `yaml:"categories"`
}

// SeedResult counts what ApplySeed wrote
type SeedResult struct {
	Categories int
	Posts      int
}

// DemoSeed provides sample content for a fresh installation
func DemoSeed() *SeedFile {
	return &SeedFile{
		Categories: []SeedCategory{
			{Name: "Technology", Slug: "technology", Description: "Software and hardware"},
			{Name: "Go", Slug: "go", Description: "The Go programming language", Parent: "technology"},
			{Name: "News", Slug: "news", Description: "Announcements"},
		},
		Posts: []SeedPost{
			{
				Title:      "Welcome",
				Slug:       "welcome",
				Content:    "Your new site is ready. Edit or delete this post, then start writing.",
				Excerpt:    "Your new site is ready.",
				Status:     entities.StatusPublished,
				Categories: []string{"news"},
			},
			{
				Title:      "Introduction to Go",
				Slug:       "introduction-to-go",
				Content:    "Go is a programming language developed at Google...",
				Status:     entities.StatusPublished,
				Categories: []string{"technology", "go"},
			},
			{
				Title:      "Advanced Go Techniques",
				Slug:       "advanced-go-techniques",
				Content:    "This post covers advanced Go programming techniques...",
				Status:     entities.StatusDraft,
				Categories: []string{"go"},
			},
		},
	}
}

// LoadSeedFile reads a YAML seed file
func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &seed, nil
}

// ApplySeed upserts the fixtures by slug in one transaction, attributing
// posts to authorID. Running it twice leaves the same content.
func ApplySeed(ctx context.Context, database interfaces.Database, authorID string, seed *SeedFile) (*SeedResult, error) {
	result := &SeedResult{}

	err := database.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		categories := database.Repository(entities.CategorySchema)
		posts := database.Repository(entities.PostSchema)
		links := database.Repository(entities.PostCategorySchema)

		ids := make(map[string]string, len(seed.Categories))
		for _, c := range seed.Categories {
			if c.Slug == "" || c.Name == "" {
				return errors.New("seed category needs a name and a slug")
			}
			row, err := categories.Upsert(ctx, interfaces.Record{"slug": c.Slug}, interfaces.Record{
				"name":        c.Name,
				"description": c.Description,
			})
			if err != nil {
				return fmt.Errorf("seed category %s: %w", c.Slug, err)
			}
			ids[c.Slug] = row["id"].(string)
			result.Categories++
		}

		// Parents are resolved once every fixture has an id
		for _, c := range seed.Categories {
			if c.Parent == "" {
				continue
			}
			parentID, ok := ids[c.Parent]
			if !ok {
				return fmt.Errorf("seed category %s: unknown parent %s", c.Slug, c.Parent)
			}
			if _, err := categories.Update(ctx, interfaces.StringID(ids[c.Slug]), interfaces.Record{"parent_id": parentID}); err != nil {
				return fmt.Errorf("seed category %s: %w", c.Slug, err)
			}
		}

		for _, p := range seed.Posts {
			if p.Slug == "" || p.Title == "" {
				return errors.New("seed post needs a title and a slug")
			}
			status := p.Status
			if status == "" {
				status = entities.StatusDraft
			}
			row, err := posts.Upsert(ctx, interfaces.Record{"slug": p.Slug}, interfaces.Record{
				"title":     p.Title,
				"content":   p.Content,
				"excerpt":   p.Excerpt,
				"status":    status,
				"author_id": authorID,
			})
			if err != nil {
				return fmt.Errorf("seed post %s: %w", p.Slug, err)
			}

			postID := row["id"].(string)
			if _, err := links.DeleteWhere(ctx, interfaces.Where(interfaces.Record{"post_id": postID})); err != nil {
				return err
			}
			for _, slug := range p.Categories {
				categoryID, ok := ids[slug]
				if !ok {
					continue
				}
				if _, err := links.Create(ctx, interfaces.Record{"post_id": postID, "category_id": categoryID}); err != nil {
					return fmt.Errorf("seed post %s: %w", p.Slug, err)
				}
			}
			result.Posts++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
