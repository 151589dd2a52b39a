package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leafsii/leafsii-cms/internal/content"
	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/store"
)

type categoryFormData struct {
	ID      string
	Input   content.CategoryInput
	Parents []*entities.Category
}

type categoryListData struct {
	Categories []*entities.Category
	Names      map[string]string
	Form       categoryFormData
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	h.renderCategories(w, r, http.StatusOK, content.CategoryInput{}, "")
}

// renderCategories shows the list with the inline create form
func (h *Handler) renderCategories(w http.ResponseWriter, r *http.Request, status int, in content.CategoryInput, formErr string) {
	cats, err := h.content.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err, "/admin", nil)
		return
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	h.renderForm(w, r, status, "categories", "Categories", categoryListData{
		Categories: cats,
		Names:      names,
		Form:       categoryFormData{Input: in, Parents: cats},
	}, formErr)
}

func categoryInput(r *http.Request) content.CategoryInput {
	return content.CategoryInput{
		Name:        formValue(r, "name"),
		Slug:        formValue(r, "slug"),
		Description: formValue(r, "description"),
		ParentID:    formValue(r, "parent_id"),
	}
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	in := categoryInput(r)
	cat, err := h.content.CreateCategory(r.Context(), callerFrom(r), in)
	if err != nil {
		h.fail(w, r, err, "/admin/categories", func(message string) {
			h.renderCategories(w, r, http.StatusUnprocessableEntity, in, message)
		})
		return
	}
	h.redirectFlash(w, r, "/admin/categories", store.FlashSuccess, "Category \""+cat.Name+"\" created successfully.")
}

func (h *Handler) renderCategoryForm(w http.ResponseWriter, r *http.Request, status int, data categoryFormData, formErr string) {
	cats, err := h.content.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err, "/admin/categories", nil)
		return
	}
	for _, c := range cats {
		if c.ID != data.ID {
			data.Parents = append(data.Parents, c)
		}
	}
	h.renderForm(w, r, status, "category_form", "Edit category", data, formErr)
}

func (h *Handler) EditCategoryPage(w http.ResponseWriter, r *http.Request) {
	cat, err := h.content.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "/admin/categories", nil)
		return
	}
	in := content.CategoryInput{Name: cat.Name, Slug: cat.Slug, Description: cat.Description}
	if cat.ParentID != nil {
		in.ParentID = *cat.ParentID
	}
	h.renderCategoryForm(w, r, http.StatusOK, categoryFormData{ID: cat.ID, Input: in}, "")
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in := categoryInput(r)
	cat, err := h.content.UpdateCategory(r.Context(), callerFrom(r), id, in)
	if err != nil {
		h.fail(w, r, err, "/admin/categories/"+id+"/edit", func(message string) {
			h.renderCategoryForm(w, r, http.StatusUnprocessableEntity, categoryFormData{ID: id, Input: in}, message)
		})
		return
	}
	h.redirectFlash(w, r, "/admin/categories", store.FlashSuccess, "Category \""+cat.Name+"\" updated successfully.")
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeleteCategory(r.Context(), callerFrom(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "/admin/categories", nil)
		return
	}
	h.redirectFlash(w, r, "/admin/categories", store.FlashSuccess, "Category deleted successfully.")
}
