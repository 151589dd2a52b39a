package content

import (
	"context"
	"errors"
	"strings"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/leafsii/leafsii-cms/internal/policy"
)

// CategoryInput carries the editable category fields. An empty ParentID
// makes the category a root.
type CategoryInput struct {
	Name        string
	Slug        string
	Description string
	ParentID    string
}

func (in *CategoryInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.Invalid("name", "Name is required.")
	}
	source := in.Slug
	if strings.TrimSpace(source) == "" {
		source = in.Name
	}
	in.Slug = Slugify(source)
	if in.Slug == "" {
		return domain.Invalid("slug", "Slug must contain at least one letter or digit.")
	}
	in.Description = strings.TrimSpace(in.Description)
	in.ParentID = strings.TrimSpace(in.ParentID)
	return nil
}

func (in *CategoryInput) parent() interface{} {
	if in.ParentID == "" {
		return nil
	}
	return in.ParentID
}

func (s *Service) CreateCategory(ctx context.Context, caller *domain.Caller, in CategoryInput) (*entities.Category, error) {
	if err := policy.RequireRole(caller, entities.RoleAuthor); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var category *entities.Category
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		if err := s.checkCategory(ctx, "", &in); err != nil {
			return err
		}
		record, err := s.categories.Create(ctx, interfaces.Record{
			"name":        in.Name,
			"slug":        in.Slug,
			"description": in.Description,
			"parent_id":   in.parent(),
		})
		if err != nil {
			return domain.FromStorage("create category", err)
		}
		category = entities.CategoryFromRecord(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMutation(ctx, "category", "create")
	s.logger.Infow("Category created", "category_id", category.ID, "slug", category.Slug, "by", caller.Username)
	return category, nil
}

func (s *Service) UpdateCategory(ctx context.Context, caller *domain.Caller, id string, in CategoryInput) (*entities.Category, error) {
	if err := policy.RequireRole(caller, entities.RoleAuthor); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var category *entities.Category
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		if _, err := s.getCategory(ctx, id); err != nil {
			return err
		}
		if err := s.checkCategory(ctx, id, &in); err != nil {
			return err
		}
		record, err := s.categories.Update(ctx, interfaces.StringID(id), interfaces.Record{
			"name":        in.Name,
			"slug":        in.Slug,
			"description": in.Description,
			"parent_id":   in.parent(),
		})
		if err != nil {
			return domain.FromStorage("update category", err)
		}
		category = entities.CategoryFromRecord(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMutation(ctx, "category", "update")
	s.logger.Infow("Category updated", "category_id", id, "by", caller.Username)
	return category, nil
}

// checkCategory validates slug uniqueness and the parent of the category
// identified by id ("" when creating)
func (s *Service) checkCategory(ctx context.Context, id string, in *CategoryInput) error {
	taken, err := slugTaken(ctx, s.categories, in.Slug, id)
	if err != nil {
		return err
	}
	if taken {
		return domain.Invalid("slug", "Slug %q is already in use.", in.Slug)
	}

	if in.ParentID == "" {
		return nil
	}
	if _, err := s.getCategory(ctx, in.ParentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalid("parent_id", "Parent category does not exist.")
		}
		return err
	}
	if s.opts.StrictCategoryTree && id != "" {
		return s.checkAncestors(ctx, id, in.ParentID)
	}
	return nil
}

// checkAncestors walks up from parentID and fails if it reaches id
func (s *Service) checkAncestors(ctx context.Context, id, parentID string) error {
	seen := map[string]bool{}
	for cur := parentID; cur != ""; {
		if cur == id {
			return domain.Invalid("parent_id", "A category cannot be nested under itself or one of its descendants.")
		}
		if seen[cur] {
			// pre-existing loop above id
			return nil
		}
		seen[cur] = true

		c, err := s.getCategory(ctx, cur)
		if err != nil {
			return err
		}
		if c.ParentID == nil {
			return nil
		}
		cur = *c.ParentID
	}
	return nil
}

// DeleteCategory removes a category. Its posts lose the link and its
// children become roots.
func (s *Service) DeleteCategory(ctx context.Context, caller *domain.Caller, id string) error {
	if err := policy.RequireRole(caller, entities.RoleAuthor); err != nil {
		return err
	}

	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		if err := s.categories.Delete(ctx, interfaces.StringID(id)); err != nil {
			return domain.FromStorage("delete category", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordMutation(ctx, "category", "delete")
	s.logger.Infow("Category deleted", "category_id", id, "by", caller.Username)
	return nil
}

func (s *Service) GetCategory(ctx context.Context, id string) (*entities.Category, error) {
	var category *entities.Category
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		c, err := s.getCategory(ctx, id)
		category = c
		return err
	})
	return category, err
}

func (s *Service) getCategory(ctx context.Context, id string) (*entities.Category, error) {
	record, err := s.categories.GetByID(ctx, interfaces.StringID(id))
	if err != nil {
		return nil, domain.FromStorage("get category", err)
	}
	return entities.CategoryFromRecord(record), nil
}

// ListCategories returns every category ordered by name
func (s *Service) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	var categories []*entities.Category
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		res, err := s.categories.FindMany(ctx, &interfaces.Query{
			OrderBy: []interfaces.OrderBy{{Field: "name", Direction: "asc"}},
		})
		if err != nil {
			return domain.FromStorage("list categories", err)
		}
		categories = make([]*entities.Category, 0, len(res.Data))
		for _, r := range res.Data {
			categories = append(categories, entities.CategoryFromRecord(r))
		}
		return nil
	})
	return categories, err
}
