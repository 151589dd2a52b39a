// Package media records uploaded files and keeps their blobs in a BlobStore.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/leafsii/leafsii-cms/internal/metrics"
	"github.com/leafsii/leafsii-cms/internal/policy"
	"go.uber.org/zap"
)

var allowedExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true, "svg": true,
	"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true, "ppt": true, "pptx": true,
	"txt": true, "csv": true, "zip": true, "mp3": true, "mp4": true,
}

// Allowed reports whether filename carries an accepted extension
func Allowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return allowedExtensions[ext]
}

type Options struct {
	// MaxBytes caps a single upload; zero means unlimited
	MaxBytes int64
}

type Service struct {
	db      interfaces.Database
	media   interfaces.Repository
	blobs   BlobStore
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
	opts    Options
	now     func() time.Time
}

func NewService(database interfaces.Database, blobs BlobStore, opts Options, m *metrics.Metrics, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		db:      database,
		media:   database.Repository(entities.MediaSchema),
		blobs:   blobs,
		metrics: m,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// Upload checks the file type, writes the blob under a timestamp-prefixed
// sanitized name and records its metadata. A rejected file writes nothing.
func (s *Service) Upload(ctx context.Context, caller *domain.Caller, originalName, mimeType string, r io.Reader) (*entities.Media, error) {
	if err := policy.RequireRole(caller, entities.RoleAuthor); err != nil {
		return nil, err
	}
	originalName = filepath.Base(strings.ReplaceAll(strings.TrimSpace(originalName), `\`, "/"))
	if originalName == "" || originalName == "." || originalName == "/" {
		return nil, domain.Invalid("file", "No file selected.")
	}
	if !Allowed(originalName) {
		return nil, domain.Invalid("file", "File type not allowed: %s", originalName)
	}
	safe := SanitizeFilename(originalName)
	if safe == "" || !Allowed(safe) {
		return nil, domain.Invalid("file", "Invalid file name: %s", originalName)
	}

	stored := s.now().UTC().Format("20060102_150405_") + safe
	src := r
	if s.opts.MaxBytes > 0 {
		src = io.LimitReader(r, s.opts.MaxBytes+1)
	}
	size, err := s.blobs.Put(ctx, stored, src)
	if errors.Is(err, ErrBlobExists) {
		stored = s.now().UTC().Format("20060102_150405.000000000_") + safe
		size, err = s.blobs.Put(ctx, stored, src)
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "write upload", Err: err}
	}
	if s.opts.MaxBytes > 0 && size > s.opts.MaxBytes {
		s.removeBlob(ctx, stored)
		return nil, domain.Invalid("file", "File is larger than %d bytes.", s.opts.MaxBytes)
	}

	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(safe))
	}
	m, err := s.RegisterUpload(ctx, caller, stored, originalName, mimeType, size)
	if err != nil {
		s.removeBlob(ctx, stored)
		return nil, err
	}
	return m, nil
}

// RegisterUpload records metadata for a blob that has already been written
func (s *Service) RegisterUpload(ctx context.Context, caller *domain.Caller, blobRef, originalName, mimeType string, size int64) (*entities.Media, error) {
	if err := policy.RequireRole(caller, entities.RoleAuthor); err != nil {
		return nil, err
	}
	if blobRef == "" {
		return nil, domain.Invalid("file", "Missing stored file name.")
	}
	if size < 0 {
		return nil, domain.Invalid("file", "Invalid file size.")
	}

	uploader := caller.UserID
	row := &entities.Media{
		Filename:         blobRef,
		OriginalFilename: originalName,
		FileType:         mimeType,
		FileSize:         size,
		UploadedBy:       &uploader,
	}

	var created *entities.Media
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		record, err := s.media.Create(ctx, row.Record())
		if err != nil {
			return domain.FromStorage("register upload", err)
		}
		created = entities.MediaFromRecord(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMutation(ctx, "media", "create")
	s.logger.Infow("Media uploaded", "media_id", created.ID, "filename", created.Filename, "size", created.FileSize, "by", caller.Username)
	return created, nil
}

// DeleteMedia removes the metadata row and then tries to remove the blob.
// A blob that cannot be removed is logged and otherwise ignored.
func (s *Service) DeleteMedia(ctx context.Context, caller *domain.Caller, id string) error {
	if err := policy.RequireRole(caller, entities.RoleAuthor); err != nil {
		return err
	}

	var filename string
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		m, err := s.getMedia(ctx, id)
		if err != nil {
			return err
		}
		filename = m.Filename
		if err := s.media.Delete(ctx, interfaces.StringID(id)); err != nil {
			return domain.FromStorage("delete media", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.removeBlob(ctx, filename)
	s.metrics.RecordMutation(ctx, "media", "delete")
	s.logger.Infow("Media deleted", "media_id", id, "filename", filename, "by", caller.Username)
	return nil
}

func (s *Service) removeBlob(ctx context.Context, name string) {
	if err := s.blobs.Delete(ctx, name); err != nil {
		s.logger.Warnw("Failed to remove blob", "filename", name, "error", err)
	}
}

func (s *Service) GetMedia(ctx context.Context, id string) (*entities.Media, error) {
	var m *entities.Media
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		var err error
		m, err = s.getMedia(ctx, id)
		return err
	})
	return m, err
}

func (s *Service) getMedia(ctx context.Context, id string) (*entities.Media, error) {
	record, err := s.media.GetByID(ctx, interfaces.StringID(id))
	if err != nil {
		return nil, domain.FromStorage("get media", err)
	}
	return entities.MediaFromRecord(record), nil
}

// ListMedia returns every upload, newest first
func (s *Service) ListMedia(ctx context.Context) ([]*entities.Media, error) {
	var items []*entities.Media
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		res, err := s.media.FindMany(ctx, &interfaces.Query{
			OrderBy: []interfaces.OrderBy{{Field: "created_at", Direction: "desc"}},
		})
		if err != nil {
			return domain.FromStorage("list media", err)
		}
		items = make([]*entities.Media, 0, len(res.Data))
		for _, r := range res.Data {
			items = append(items, entities.MediaFromRecord(r))
		}
		return nil
	})
	return items, err
}

func (s *Service) CountMedia(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.Transaction(ctx, func(ctx context.Context, _ interfaces.Transaction) error {
		var err error
		n, err = s.media.Count(ctx, nil)
		return domain.FromStorage("count media", err)
	})
	return n, err
}

// Open streams the blob behind a media row
func (s *Service) Open(ctx context.Context, m *entities.Media) (io.ReadCloser, error) {
	rc, err := s.blobs.Open(ctx, m.Filename)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", m.Filename, err)
	}
	return rc, nil
}
