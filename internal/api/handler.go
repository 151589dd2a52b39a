package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/leafsii/leafsii-cms/internal/config"
	"github.com/leafsii/leafsii-cms/internal/content"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/identity"
	"github.com/leafsii/leafsii-cms/internal/mail"
	"github.com/leafsii/leafsii-cms/internal/media"
	"github.com/leafsii/leafsii-cms/internal/settings"
	"github.com/leafsii/leafsii-cms/internal/store"
	"go.uber.org/zap"
)

// Deps groups what the HTTP layer is built from
type Deps struct {
	Config   *config.Config
	Database interfaces.Database
	Cache    *store.Cache
	Sessions *store.Sessions
	Throttle *store.LoginThrottle
	Identity *identity.Service
	Content  *content.Service
	Media    *media.Service
	Blobs    media.BlobStore
	Settings *settings.Service
	Mailer   mail.Sender
	Metrics  MetricsRecorder
	Logger   *zap.SugaredLogger
}

type Handler struct {
	config   *config.Config
	db       interfaces.Database
	cache    *store.Cache
	sessions *store.Sessions
	throttle *store.LoginThrottle
	identity *identity.Service
	content  *content.Service
	media    *media.Service
	blobs    media.BlobStore
	settings *settings.Service
	mailer   mail.Sender
	pages    *Renderer
	logger   *zap.SugaredLogger
	metrics  MetricsRecorder
}

func NewHandler(deps Deps) (*Handler, error) {
	pages, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{
		config:   deps.Config,
		db:       deps.Database,
		cache:    deps.Cache,
		sessions: deps.Sessions,
		throttle: deps.Throttle,
		identity: deps.Identity,
		content:  deps.Content,
		media:    deps.Media,
		blobs:    deps.Blobs,
		settings: deps.Settings,
		mailer:   deps.Mailer,
		pages:    pages,
		logger:   logger,
		metrics:  deps.Metrics,
	}, nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Readyz reports whether the database and the session store answer
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var reasons []string
	if !h.db.IsHealthy(ctx) {
		reasons = append(reasons, "database unavailable")
	}
	if err := h.cache.Ping(ctx); err != nil {
		reasons = append(reasons, "session store unavailable")
	}
	if len(reasons) > 0 {
		h.writeJSON(w, http.StatusServiceUnavailable, HealthDTO{Status: "unavailable", Reasons: reasons})
		return
	}
	h.writeJSON(w, http.StatusOK, HealthDTO{Status: "ready", Reasons: []string{}})
}

// Utility methods
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warnw("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
