// Package content manages posts, categories and the links between them.
package content

import (
	"context"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/leafsii/leafsii-cms/internal/metrics"
	"go.uber.org/zap"
)

type Options struct {
	// StrictCategoryTree rejects a parent assignment that would close a cycle
	StrictCategoryTree bool
}

type Service struct {
	db         interfaces.Database
	posts      interfaces.Repository
	categories interfaces.Repository
	links      interfaces.Repository
	users      interfaces.Repository
	metrics    *metrics.Metrics
	logger     *zap.SugaredLogger
	opts       Options
}

func NewService(database interfaces.Database, opts Options, m *metrics.Metrics, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		db:         database,
		posts:      database.Repository(entities.PostSchema),
		categories: database.Repository(entities.CategorySchema),
		links:      database.Repository(entities.PostCategorySchema),
		users:      database.Repository(entities.UserSchema),
		metrics:    m,
		logger:     logger,
		opts:       opts,
	}
}

// Stats are the dashboard counters
type Stats struct {
	Posts      int64
	Published  int64
	Drafts     int64
	Categories int64
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		var err error
		if stats.Posts, err = s.posts.Count(ctx, nil); err != nil {
			return domain.FromStorage("count posts", err)
		}
		if stats.Published, err = s.countByStatus(ctx, entities.StatusPublished); err != nil {
			return err
		}
		stats.Drafts = stats.Posts - stats.Published
		if stats.Categories, err = s.categories.Count(ctx, nil); err != nil {
			return domain.FromStorage("count categories", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) countByStatus(ctx context.Context, status string) (int64, error) {
	n, err := s.posts.Count(ctx, &interfaces.Query{
		Where: interfaces.Where(map[string]interface{}{"status": status}),
	})
	if err != nil {
		return 0, domain.FromStorage("count posts", err)
	}
	return n, nil
}

// slugTaken reports whether another row of repo already owns slug
func slugTaken(ctx context.Context, repo interfaces.Repository, slug, exceptID string) (bool, error) {
	filters := interfaces.Where(map[string]interface{}{"slug": slug})
	if exceptID != "" {
		filters.Conditions = append(filters.Conditions, interfaces.Filter{
			Field:    "id",
			Operator: &interfaces.FilterOperator{Ne: exceptID},
		})
	}
	n, err := repo.Count(ctx, &interfaces.Query{Where: filters})
	if err != nil {
		return false, domain.FromStorage("check slug", err)
	}
	return n > 0, nil
}
