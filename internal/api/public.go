package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leafsii/leafsii-cms/internal/domain"
)

// ListPublishedPosts pages through published posts, sized by the site settings
func (h *Handler) ListPublishedPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
			return
		}
		page = n
	}

	site, err := h.settings.Get(ctx)
	if err != nil {
		h.apiFail(w, r, err)
		return
	}
	result, err := h.content.ListPublished(ctx, page, site.PostsPerPage)
	if err != nil {
		h.apiFail(w, r, err)
		return
	}

	dto := PostPageDTO{
		Posts:   make([]PostDTO, 0, len(result.Posts)),
		Total:   result.Total,
		Page:    result.Page,
		PerPage: result.PerPage,
	}
	if result.PerPage > 0 {
		dto.TotalPages = (result.Total + int64(result.PerPage) - 1) / int64(result.PerPage)
	}
	for _, p := range result.Posts {
		dto.Posts = append(dto.Posts, postDTO(p, false))
	}
	h.writeJSON(w, http.StatusOK, dto)
}

// GetPublishedPost returns one published post by slug; drafts are not found
func (h *Handler) GetPublishedPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.content.GetPostBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.apiFail(w, r, err)
		return
	}
	if !post.IsPublished() {
		h.apiFail(w, r, domain.ErrNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, postDTO(post, true))
}

func (h *Handler) ListPublicCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.content.ListCategories(r.Context())
	if err != nil {
		h.apiFail(w, r, err)
		return
	}
	out := make([]CategoryDTO, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryDTO(c))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) apiFail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", domain.UserMessage(err))
	case errors.Is(err, domain.ErrValidation):
		h.writeError(w, http.StatusBadRequest, "invalid_request", domain.UserMessage(err))
	default:
		h.log(r).Errorw("API request failed", "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error", domain.UserMessage(err))
	}
}
