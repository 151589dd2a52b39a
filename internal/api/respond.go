package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/leafsii/leafsii-cms/internal/store"
)

type errorData struct {
	Status     int
	StatusText string
	Message    string
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	h.renderForm(w, r, status, page, title, data, "")
}

// renderForm renders page with formErr shown above the form
func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, page, title string, data any, formErr string) {
	v := view{
		Title: title,
		User:  currentUser(r),
		Error: formErr,
		Data:  data,
	}
	if sess := sessionFrom(r); sess != nil {
		v.CSRF = sess.CSRFToken
		if len(sess.Flashes) > 0 {
			v.Flashes = sess.PopFlashes()
			h.saveSession(r, sess)
		}
	}
	if err := h.pages.Render(w, status, page, v); err != nil {
		h.log(r).Errorw("Failed to render page", "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, "error", http.StatusText(status), errorData{
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    message,
	})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		h.writeError(w, http.StatusNotFound, "not_found", domain.UserMessage(domain.ErrNotFound))
		return
	}
	h.errorPage(w, r, http.StatusNotFound, domain.UserMessage(domain.ErrNotFound))
}

// redirectFlash queues a flash on the session and redirects with 303
func (h *Handler) redirectFlash(w http.ResponseWriter, r *http.Request, target, category, message string) {
	if sess := sessionFrom(r); sess != nil {
		sess.AddFlash(category, message)
		h.saveSession(r, sess)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// fail maps a service error onto the admin UI. Validation failures go to
// invalid when it is set and are flashed on back otherwise.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, back string, invalid func(message string)) {
	message := domain.UserMessage(err)
	switch {
	case errors.Is(err, domain.ErrValidation):
		if invalid != nil {
			invalid(message)
			return
		}
		h.redirectFlash(w, r, back, store.FlashDanger, message)
	case errors.Is(err, domain.ErrLastAdmin):
		h.redirectFlash(w, r, back, store.FlashDanger, message)
	case errors.Is(err, domain.ErrNotFound):
		h.notFound(w, r)
	case errors.Is(err, domain.ErrPermissionDenied):
		h.redirectFlash(w, r, "/admin", store.FlashDanger, message)
	case errors.Is(err, domain.ErrUnauthenticated):
		h.redirectToLogin(w, r)
	default:
		h.log(r).Errorw("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.errorPage(w, r, http.StatusInternalServerError, message)
	}
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}
