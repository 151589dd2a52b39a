package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leafsii/leafsii-cms/internal/metrics"
)

// Session key prefixes
const (
	KeySession = "cms:session"
)

var ErrSessionNotFound = errors.New("session not found")

// Flash categories
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Session is the server-side state behind a session cookie. UserID is
// empty until the visitor logs in.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	CSRFToken string    `json:"csrf_token"`
	Flashes   []Flash   `json:"flashes,omitempty"`
	Remember  bool      `json:"remember,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) Authenticated() bool {
	return s.UserID != ""
}

func (s *Session) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
}

// PopFlashes returns and clears pending flashes. The caller saves the session.
func (s *Session) PopFlashes() []Flash {
	out := s.Flashes
	s.Flashes = nil
	return out
}

type SessionOptions struct {
	TTL         time.Duration
	RememberTTL time.Duration
}

// Sessions keeps sessions in the cache with a sliding expiry
type Sessions struct {
	cache   *Cache
	opts    SessionOptions
	metrics *metrics.Metrics
}

func NewSessions(cache *Cache, opts SessionOptions, m *metrics.Metrics) *Sessions {
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	if opts.RememberTTL < opts.TTL {
		opts.RememberTTL = opts.TTL
	}
	return &Sessions{cache: cache, opts: opts, metrics: m}
}

func sessionKey(id string) string {
	return fmt.Sprintf("%s:%s", KeySession, id)
}

// TTL is the lifetime of s from its last save
func (m *Sessions) TTL(s *Session) time.Duration {
	if s.Remember {
		return m.opts.RememberTTL
	}
	return m.opts.TTL
}

// New creates and stores an anonymous session
func (m *Sessions) New(ctx context.Context) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:        uuid.NewString(),
		CSRFToken: token,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Sessions) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		m.metrics.RecordSessionMiss(ctx)
		return nil, ErrSessionNotFound
	}
	var s Session
	if err := m.cache.Get(ctx, sessionKey(id), &s); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			m.metrics.RecordSessionMiss(ctx)
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	m.metrics.RecordSessionHit(ctx)
	return &s, nil
}

// Save writes s and restarts its expiry
func (m *Sessions) Save(ctx context.Context, s *Session) error {
	return m.cache.Set(ctx, sessionKey(s.ID), s, m.TTL(s))
}

// Login binds the visitor to userID under a fresh session id, so an id
// issued before authentication cannot be reused afterwards.
func (m *Sessions) Login(ctx context.Context, old *Session, userID string, remember bool) (*Session, error) {
	s, err := m.New(ctx)
	if err != nil {
		return nil, err
	}
	if old != nil {
		s.Flashes = old.Flashes
		if err := m.Destroy(ctx, old.ID); err != nil {
			return nil, err
		}
	}
	s.UserID = userID
	s.Remember = remember
	if err := m.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Sessions) Destroy(ctx context.Context, id string) error {
	return m.cache.Delete(ctx, sessionKey(id))
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
