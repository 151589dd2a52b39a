package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leafsii/leafsii-cms/internal/content"
	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/store"
)

type postListData struct {
	Posts  []*entities.Post
	Status string
	Sort   string
}

type postFormData struct {
	ID         string
	Input      content.PostInput
	Selected   map[string]bool
	Categories []*entities.Category
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	filter := content.ListFilter{
		Status: r.URL.Query().Get("status"),
		Sort:   r.URL.Query().Get("sort"),
	}
	if filter.Status == "" {
		filter.Status = content.StatusAll
	}
	if filter.Sort == "" {
		filter.Sort = content.SortNewest
	}
	posts, err := h.content.ListPosts(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "/admin/posts", nil)
		return
	}
	h.render(w, r, http.StatusOK, "posts", "Posts", postListData{
		Posts:  posts,
		Status: filter.Status,
		Sort:   filter.Sort,
	})
}

func postInput(r *http.Request) (content.PostInput, []string) {
	in := content.PostInput{
		Title:         formValue(r, "title"),
		Slug:          formValue(r, "slug"),
		Content:       r.PostFormValue("content"),
		Excerpt:       formValue(r, "excerpt"),
		FeaturedImage: formValue(r, "featured_image"),
		Status:        formValue(r, "status"),
	}
	return in, r.PostForm["categories"]
}

func selected(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func (h *Handler) renderPostForm(w http.ResponseWriter, r *http.Request, status int, data postFormData, formErr string) {
	cats, err := h.content.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err, "/admin/posts", nil)
		return
	}
	data.Categories = cats
	title := "New post"
	if data.ID != "" {
		title = "Edit post"
	}
	h.renderForm(w, r, status, "post_form", title, data, formErr)
}

func (h *Handler) NewPostPage(w http.ResponseWriter, r *http.Request) {
	h.renderPostForm(w, r, http.StatusOK, postFormData{
		Input:    content.PostInput{Status: entities.StatusDraft},
		Selected: map[string]bool{},
	}, "")
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	in, categoryIDs := postInput(r)
	post, err := h.content.CreatePost(r.Context(), callerFrom(r), in, categoryIDs)
	if err != nil {
		h.fail(w, r, err, "/admin/posts/create", func(message string) {
			h.renderPostForm(w, r, http.StatusUnprocessableEntity, postFormData{
				Input:    in,
				Selected: selected(categoryIDs),
			}, message)
		})
		return
	}
	h.redirectFlash(w, r, "/admin/posts", store.FlashSuccess, "Post \""+post.Title+"\" created successfully.")
}

func (h *Handler) EditPostPage(w http.ResponseWriter, r *http.Request) {
	post, err := h.content.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "/admin/posts", nil)
		return
	}
	ids := make([]string, 0, len(post.Categories))
	for _, c := range post.Categories {
		ids = append(ids, c.ID)
	}
	h.renderPostForm(w, r, http.StatusOK, postFormData{
		ID: post.ID,
		Input: content.PostInput{
			Title:         post.Title,
			Slug:          post.Slug,
			Content:       post.Content,
			Excerpt:       post.Excerpt,
			FeaturedImage: post.FeaturedImage,
			Status:        post.Status,
		},
		Selected: selected(ids),
	}, "")
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, categoryIDs := postInput(r)
	post, err := h.content.UpdatePost(r.Context(), callerFrom(r), id, in, categoryIDs)
	if err != nil {
		h.fail(w, r, err, "/admin/posts/"+id+"/edit", func(message string) {
			h.renderPostForm(w, r, http.StatusUnprocessableEntity, postFormData{
				ID:       id,
				Input:    in,
				Selected: selected(categoryIDs),
			}, message)
		})
		return
	}
	h.redirectFlash(w, r, "/admin/posts", store.FlashSuccess, "Post \""+post.Title+"\" updated successfully.")
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeletePost(r.Context(), callerFrom(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "/admin/posts", nil)
		return
	}
	h.redirectFlash(w, r, "/admin/posts", store.FlashSuccess, "Post deleted successfully.")
}

func (h *Handler) PublishPost(w http.ResponseWriter, r *http.Request) {
	h.setPostStatus(w, r, entities.StatusPublished, "published")
}

func (h *Handler) UnpublishPost(w http.ResponseWriter, r *http.Request) {
	h.setPostStatus(w, r, entities.StatusDraft, "moved to drafts")
}

func (h *Handler) setPostStatus(w http.ResponseWriter, r *http.Request, status, verb string) {
	post, err := h.content.SetStatus(r.Context(), callerFrom(r), chi.URLParam(r, "id"), status)
	if err != nil {
		h.fail(w, r, err, "/admin/posts", nil)
		return
	}
	h.redirectFlash(w, r, "/admin/posts", store.FlashSuccess, "Post \""+post.Title+"\" "+verb+".")
}
