// Package settings owns the single site-wide settings row.
package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/leafsii/leafsii-cms/internal/metrics"
	"github.com/leafsii/leafsii-cms/internal/policy"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Defaults seeds the row the first time it is read
type Defaults struct {
	SiteName          string
	SiteDescription   string
	PostsPerPage      int
	MailServer        string
	MailPort          int
	MailUseTLS        bool
	MailUsername      string
	MailDefaultSender string
}

// SiteInput is a partial update; nil fields are left unchanged
type SiteInput struct {
	SiteName        *string
	SiteDescription *string
	PostsPerPage    *int
}

// MailInput is a partial update; nil fields are left unchanged and an empty
// Password keeps the stored secret
type MailInput struct {
	Server        *string
	Port          *int
	UseTLS        *bool
	Username      *string
	Password      string
	DefaultSender *string
}

type Service struct {
	db       interfaces.Database
	settings interfaces.Repository
	defaults Defaults
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger

	// loads coalesces concurrent reads so the first access creates the row once
	loads singleflight.Group
}

func NewService(database interfaces.Database, defaults Defaults, m *metrics.Metrics, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if defaults.PostsPerPage <= 0 {
		defaults.PostsPerPage = 10
	}
	return &Service{
		db:       database,
		settings: database.Repository(entities.SettingsSchema),
		defaults: defaults,
		metrics:  m,
		logger:   logger,
	}
}

// Get returns the settings, creating the row with defaults on first access.
// Callers get their own copy.
func (s *Service) Get(ctx context.Context) (*entities.Settings, error) {
	// the load is shared, so one caller going away must not fail the rest
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.loads.Do(entities.SettingsID, func() (interface{}, error) {
		var out *entities.Settings
		err := s.db.Transaction(shared, func(ctx context.Context, _ interfaces.Transaction) error {
			var err error
			out, err = s.load(ctx)
			return err
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	out := *v.(*entities.Settings)
	return &out, nil
}

func (s *Service) load(ctx context.Context) (*entities.Settings, error) {
	record, err := s.settings.GetByID(ctx, interfaces.StringID(entities.SettingsID))
	if err == nil {
		return entities.SettingsFromRecord(record), nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, domain.FromStorage("load settings", err)
	}

	row := &entities.Settings{
		SiteName:          s.defaults.SiteName,
		SiteDescription:   s.defaults.SiteDescription,
		PostsPerPage:      s.defaults.PostsPerPage,
		MailServer:        s.defaults.MailServer,
		MailPort:          s.defaults.MailPort,
		MailUseTLS:        s.defaults.MailUseTLS,
		MailUsername:      s.defaults.MailUsername,
		MailDefaultSender: s.defaults.MailDefaultSender,
	}
	data := row.Record()
	data["id"] = entities.SettingsID
	record, err = s.settings.Create(ctx, data)
	if err != nil {
		return nil, domain.FromStorage("create settings", err)
	}
	s.logger.Infow("Settings initialized with defaults")
	return entities.SettingsFromRecord(record), nil
}

func (s *Service) UpdateSite(ctx context.Context, caller *domain.Caller, in SiteInput) (*entities.Settings, error) {
	if err := policy.RequireRole(caller, entities.RoleAdmin); err != nil {
		return nil, err
	}

	changes := interfaces.Record{}
	if in.SiteName != nil {
		name := strings.TrimSpace(*in.SiteName)
		if name == "" {
			return nil, domain.Invalid("site_name", "Site name is required.")
		}
		changes["site_name"] = name
	}
	if in.SiteDescription != nil {
		changes["site_description"] = strings.TrimSpace(*in.SiteDescription)
	}
	if in.PostsPerPage != nil {
		if *in.PostsPerPage < 1 || *in.PostsPerPage > 100 {
			return nil, domain.Invalid("posts_per_page", "Posts per page must be between 1 and 100.")
		}
		changes["posts_per_page"] = *in.PostsPerPage
	}

	out, err := s.apply(ctx, changes)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordMutation(ctx, "settings", "site")
	s.logger.Infow("Site settings updated", "by", caller.Username)
	return out, nil
}

func (s *Service) UpdateMail(ctx context.Context, caller *domain.Caller, in MailInput) (*entities.Settings, error) {
	if err := policy.RequireRole(caller, entities.RoleAdmin); err != nil {
		return nil, err
	}

	changes := interfaces.Record{}
	if in.Server != nil {
		changes["mail_server"] = strings.TrimSpace(*in.Server)
	}
	if in.Port != nil {
		if *in.Port < 1 || *in.Port > 65535 {
			return nil, domain.Invalid("mail_port", "Mail port must be between 1 and 65535.")
		}
		changes["mail_port"] = *in.Port
	}
	if in.UseTLS != nil {
		changes["mail_use_tls"] = *in.UseTLS
	}
	if in.Username != nil {
		changes["mail_username"] = strings.TrimSpace(*in.Username)
	}
	if in.Password != "" {
		changes["mail_password"] = in.Password
	}
	if in.DefaultSender != nil {
		sender := strings.TrimSpace(*in.DefaultSender)
		if sender != "" && !strings.Contains(sender, "@") {
			return nil, domain.Invalid("mail_default_sender", "Default sender must be an email address.")
		}
		changes["mail_default_sender"] = sender
	}

	out, err := s.apply(ctx, changes)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordMutation(ctx, "settings", "mail")
	s.logger.Infow("Mail settings updated", "by", caller.Username, "password_changed", in.Password != "")
	return out, nil
}

func (s *Service) apply(ctx context.Context, changes interfaces.Record) (*entities.Settings, error) {
	var out *entities.Settings
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		current, err := s.load(ctx)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			out = current
			return nil
		}
		record, err := s.settings.Update(ctx, interfaces.StringID(entities.SettingsID), changes)
		if err != nil {
			return domain.FromStorage("update settings", err)
		}
		out = entities.SettingsFromRecord(record)
		return nil
	})
	return out, err
}
