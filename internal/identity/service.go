// Package identity owns user accounts: credential checks, password reset
// tokens and admin-managed user records.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/leafsii/leafsii-cms/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type Options struct {
	ResetTokenTTL time.Duration
	BcryptCost    int
}

type Service struct {
	db      interfaces.Database
	users   interfaces.Repository
	posts   interfaces.Repository
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
	opts    Options
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(database interfaces.Database, opts Options, m *metrics.Metrics, logger *zap.SugaredLogger) *Service {
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		db:      database,
		users:   database.Repository(entities.UserSchema),
		posts:   database.Repository(entities.PostSchema),
		metrics: m,
		logger:  logger,
		opts:    opts,
		now:     interfaces.Now,
	}
}

// Authenticate verifies a username/password pair. Unknown users and wrong
// passwords fail identically, and both paths pay for one bcrypt comparison.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entities.User, error) {
	var user *entities.User
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		u, err := s.findBy(ctx, "username", strings.TrimSpace(username))
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if user == nil {
		bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		s.metrics.RecordLogin(ctx, "failure")
		return nil, domain.ErrInvalidCredentials
	}
	if !s.checkPassword(user, password) {
		s.metrics.RecordLogin(ctx, "failure")
		s.logger.Infow("Login rejected", "username", user.Username)
		return nil, domain.ErrInvalidCredentials
	}

	s.metrics.RecordLogin(ctx, "success")
	return user, nil
}

func (s *Service) checkPassword(user *entities.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.opts.BcryptCost)
	})
	return s.dummyHash
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return "", &domain.StorageError{Op: "hash password", Err: err}
	}
	return string(hash), nil
}

// findBy returns domain.ErrNotFound when no user matches
func (s *Service) findBy(ctx context.Context, field string, value interface{}) (*entities.User, error) {
	record, err := s.users.FindOne(ctx, &interfaces.Query{
		Where: interfaces.Where(map[string]interface{}{field: value}),
	})
	if err != nil {
		return nil, domain.FromStorage("find user", err)
	}
	return entities.UserFromRecord(record), nil
}

// taken reports whether another user already uses value for field
func (s *Service) taken(ctx context.Context, field, value, exceptID string) (bool, error) {
	filters := interfaces.Where(map[string]interface{}{field: value})
	if exceptID != "" {
		filters.Conditions = append(filters.Conditions, interfaces.Filter{
			Field:    "id",
			Operator: &interfaces.FilterOperator{Ne: exceptID},
		})
	}
	n, err := s.users.Count(ctx, &interfaces.Query{Where: filters})
	if err != nil {
		return false, domain.FromStorage("check "+field, err)
	}
	return n > 0, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validPassword(password string) error {
	if len(password) < minPasswordLength {
		return domain.Invalid("password", "Password must be at least %d characters.", minPasswordLength)
	}
	return nil
}
