package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/domain"
	cmslog "github.com/leafsii/leafsii-cms/internal/log"
	"github.com/leafsii/leafsii-cms/internal/store"
	"go.uber.org/zap"
)

const (
	sessionCookie = "cms_session"
	csrfField     = "csrf_token"
	csrfHeader    = "X-CSRF-Token"
)

type ctxKey int

const (
	sessionCtxKey ctxKey = iota
	userCtxKey
)

func sessionFrom(r *http.Request) *store.Session {
	s, _ := r.Context().Value(sessionCtxKey).(*store.Session)
	return s
}

func currentUser(r *http.Request) *entities.User {
	u, _ := r.Context().Value(userCtxKey).(*entities.User)
	return u
}

// callerFrom is nil for anonymous requests, which services reject
func callerFrom(r *http.Request) *domain.Caller {
	u := currentUser(r)
	if u == nil {
		return nil
	}
	return domain.CallerFromUser(u)
}

func (h *Handler) log(r *http.Request) *zap.SugaredLogger {
	return cmslog.FromContext(r.Context(), h.logger)
}

// LoadSession attaches the visitor's session, creating an anonymous one
// when the cookie is missing or stale, and the logged-in user if any.
func (h *Handler) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var sess *store.Session
		if c, err := r.Cookie(sessionCookie); err == nil {
			sess, err = h.sessions.Get(ctx, c.Value)
			if err != nil && !errors.Is(err, store.ErrSessionNotFound) {
				h.log(r).Errorw("Failed to load session", "error", err)
				h.errorPage(w, r, http.StatusInternalServerError, domain.UserMessage(err))
				return
			}
		}
		if sess == nil {
			created, err := h.sessions.New(ctx)
			if err != nil {
				h.log(r).Errorw("Failed to create session", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			sess = created
			h.setSessionCookie(w, sess)
		}
		ctx = context.WithValue(ctx, sessionCtxKey, sess)

		if sess.Authenticated() {
			user, err := h.identity.GetUser(ctx, sess.UserID)
			switch {
			case err == nil:
				ctx = context.WithValue(ctx, userCtxKey, user)
				ctx = cmslog.WithContext(ctx, cmslog.FromContext(ctx, h.logger).With("user", user.Username))
				// sliding expiry
				h.saveSession(r.WithContext(ctx), sess)
				if sess.Remember {
					h.setSessionCookie(w, sess)
				}
			case errors.Is(err, domain.ErrNotFound):
				sess.UserID = ""
				h.saveSession(r.WithContext(ctx), sess)
			default:
				h.log(r).Errorw("Failed to load session user", "error", err)
				h.errorPage(w, r.WithContext(ctx), http.StatusInternalServerError, domain.UserMessage(err))
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, s *store.Session) {
	c := &http.Cookie{
		Name:     sessionCookie,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.config.IsProd(),
		SameSite: http.SameSiteLaxMode,
	}
	if s.Remember {
		c.MaxAge = int(h.sessions.TTL(s).Seconds())
	}
	http.SetCookie(w, c)
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.IsProd(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) saveSession(r *http.Request, s *store.Session) {
	if err := h.sessions.Save(r.Context(), s); err != nil {
		h.log(r).Errorw("Failed to save session", "session", s.ID, "error", err)
	}
}

// RequireLogin sends anonymous visitors to the login page
func (h *Handler) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r) == nil {
			h.redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must run after RequireLogin
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := currentUser(r); u == nil || !u.IsAdmin() {
			h.redirectFlash(w, r, "/admin", store.FlashDanger, domain.UserMessage(domain.ErrPermissionDenied))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LimitBody caps request bodies at n bytes
func (h *Handler) LimitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && n > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// VerifyCSRF parses state-changing requests and checks their token against
// the session. Oversized bodies are answered with 413 here.
func (h *Handler) VerifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		var err error
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			err = r.ParseMultipartForm(8 << 20)
		} else {
			err = r.ParseForm()
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorPage(w, r, http.StatusRequestEntityTooLarge,
				"The upload is larger than "+humanBytes(tooLarge.Limit)+".")
			return
		}

		token := r.Header.Get(csrfHeader)
		if token == "" {
			token = r.PostFormValue(csrfField)
		}
		sess := sessionFrom(r)
		if sess == nil || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(sess.CSRFToken)) != 1 {
			h.log(r).Warnw("CSRF token mismatch", "path", r.URL.Path)
			h.errorPage(w, r, http.StatusBadRequest, "The form has expired. Please go back and try again.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := "/admin/login"
	if r.Method == http.MethodGet && r.URL.Path != "/admin/login" {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	h.redirectFlash(w, r, target, store.FlashInfo, domain.UserMessage(domain.ErrUnauthenticated))
}

// safeNext only allows same-site relative paths as login redirect targets
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") {
		return "/admin"
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/admin"
	}
	// browsers drop tabs and newlines from Location, so "/\t/x" turns into "//x"
	if strings.IndexFunc(next, unicode.IsControl) >= 0 {
		return "/admin"
	}
	return next
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
