package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leafsii/leafsii-cms/internal/db/dbtest"
	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
)

func newSeededDatabase(t *testing.T) (interfaces.Database, string) {
	ctx := context.Background()

	db := NewInMemoryDatabase()
	if err := ConnectAndMigrate(ctx, db, AllSchemas()); err != nil {
		t.Fatalf("Failed to connect and migrate: %v", err)
	}
	t.Cleanup(func() { db.Disconnect(ctx) })

	author := dbtest.CreateUser(t, db, "admin", entities.RoleAdmin)
	return db, author["id"].(string)
}

func TestNewDatabase(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"nil config defaults to memory", nil, false},
		{"memory", &Config{Type: "memory"}, false},
		{"sqlite with dsn", &Config{Type: "sqlite", DSN: filepath.Join(t.TempDir(), "cms.db")}, false},
		{"postgres without dsn", &Config{Type: "postgres"}, true},
		{"unknown type", &Config{Type: "oracle", DSN: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := NewDatabase(tt.config, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if db == nil {
				t.Fatal("Expected a database")
			}
		})
	}
}

func TestApplyDemoSeed(t *testing.T) {
	ctx := context.Background()
	db, authorID := newSeededDatabase(t)

	result, err := ApplySeed(ctx, db, authorID, DemoSeed())
	if err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}
	if result.Categories != 3 || result.Posts != 3 {
		t.Errorf("Expected 3 categories and 3 posts, got %+v", result)
	}

	goCategory, err := db.Repository(entities.CategorySchema).FindOne(ctx, &interfaces.Query{
		Where: interfaces.Where(interfaces.Record{"slug": "go"}),
	})
	if err != nil {
		t.Fatalf("Failed to load seeded category: %v", err)
	}
	if entities.CategoryFromRecord(goCategory).ParentID == nil {
		t.Error("Expected the go category to have a parent")
	}

	links, err := db.Repository(entities.PostCategorySchema).Count(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to count links: %v", err)
	}
	if links != 4 {
		t.Errorf("Expected 4 post/category links, got %d", links)
	}

	// Seeding again updates in place
	if _, err := ApplySeed(ctx, db, authorID, DemoSeed()); err != nil {
		t.Fatalf("Failed to reseed: %v", err)
	}
	posts, err := db.Repository(entities.PostSchema).Count(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to count posts: %v", err)
	}
	if posts != 3 {
		t.Errorf("Expected 3 posts after reseed, got %d", posts)
	}
	links, _ = db.Repository(entities.PostCategorySchema).Count(ctx, nil)
	if links != 4 {
		t.Errorf("Expected 4 links after reseed, got %d", links)
	}
}

func TestApplySeedRollsBackOnUnknownParent(t *testing.T) {
	ctx := context.Background()
	db, authorID := newSeededDatabase(t)

	seed := &SeedFile{Categories: []SeedCategory{{Name: "Child", Slug: "child", Parent: "missing"}}}
	if _, err := ApplySeed(ctx, db, authorID, seed); err == nil {
		t.Fatal("Expected an error for an unknown parent")
	}

	n, err := db.Repository(entities.CategorySchema).Count(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to count categories: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected the failed seed to be rolled back, got %d categories", n)
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `categories:
  - name: Guides
    slug: guides
posts:
  - title: First steps
    slug: first-steps
    status: published
    categories: [guides, unknown]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}

	seed, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("Failed to load seed file: %v", err)
	}
	if len(seed.Categories) != 1 || len(seed.Posts) != 1 {
		t.Fatalf("Unexpected seed contents: %+v", seed)
	}
	if seed.Posts[0].Categories[1] != "unknown" {
		t.Errorf("Expected category slugs to be kept verbatim, got %v", seed.Posts[0].Categories)
	}

	ctx := context.Background()
	db, authorID := newSeededDatabase(t)
	if _, err := ApplySeed(ctx, db, authorID, seed); err != nil {
		t.Fatalf("Failed to apply seed file: %v", err)
	}

	links, _ := db.Repository(entities.PostCategorySchema).Count(ctx, nil)
	if links != 1 {
		t.Errorf("Expected unknown category slugs to be skipped, got %d links", links)
	}

	if _, err := LoadSeedFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
