package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/store"
)

type mediaListData struct {
	Media    []*entities.Media
	MaxBytes int64
}

func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	h.renderMedia(w, r, http.StatusOK, "")
}

func (h *Handler) renderMedia(w http.ResponseWriter, r *http.Request, status int, formErr string) {
	items, err := h.media.ListMedia(r.Context())
	if err != nil {
		h.fail(w, r, err, "/admin", nil)
		return
	}
	h.renderForm(w, r, status, "media", "Media", mediaListData{
		Media:    items,
		MaxBytes: h.config.Uploads.MaxBytes,
	}, formErr)
}

func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			h.renderMedia(w, r, http.StatusUnprocessableEntity, "No file selected.")
			return
		}
		h.fail(w, r, err, "/admin/media", nil)
		return
	}
	defer file.Close()

	item, err := h.media.Upload(r.Context(), callerFrom(r), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.fail(w, r, err, "/admin/media", func(message string) {
			h.renderMedia(w, r, http.StatusUnprocessableEntity, message)
		})
		return
	}
	h.redirectFlash(w, r, "/admin/media", store.FlashSuccess, "File \""+item.OriginalFilename+"\" uploaded successfully.")
}

func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	if err := h.media.DeleteMedia(r.Context(), callerFrom(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "/admin/media", nil)
		return
	}
	h.redirectFlash(w, r, "/admin/media", store.FlashSuccess, "File deleted successfully.")
}

// ServeUpload streams a stored blob by its stored name
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || strings.ContainsAny(name, `/\`) {
		h.notFound(w, r)
		return
	}
	rc, err := h.blobs.Open(r.Context(), name)
	if err != nil {
		h.notFound(w, r)
		return
	}
	defer rc.Close()

	if ctype := mime.TypeByExtension(filepath.Ext(name)); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, time.Time{}, rs)
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.log(r).Warnw("Failed to stream upload", "name", name, "error", err)
	}
}
