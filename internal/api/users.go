package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/identity"
	"github.com/leafsii/leafsii-cms/internal/store"
)

type userFormData struct {
	ID    string
	Input identity.UserInput
	Roles []string
}

var roles = []string{entities.RoleAuthor, entities.RoleAdmin}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, err, "/admin", nil)
		return
	}
	h.render(w, r, http.StatusOK, "users", "Users", users)
}

func userInput(r *http.Request) identity.UserInput {
	return identity.UserInput{
		Username: formValue(r, "username"),
		Email:    formValue(r, "email"),
		FullName: formValue(r, "full_name"),
		Role:     formValue(r, "role"),
		Password: r.PostFormValue("password"),
	}
}

func (h *Handler) renderUserForm(w http.ResponseWriter, r *http.Request, status int, data userFormData, formErr string) {
	data.Roles = roles
	data.Input.Password = ""
	title := "New user"
	if data.ID != "" {
		title = "Edit user"
	}
	h.renderForm(w, r, status, "user_form", title, data, formErr)
}

func (h *Handler) NewUserPage(w http.ResponseWriter, r *http.Request) {
	h.renderUserForm(w, r, http.StatusOK, userFormData{Input: identity.UserInput{Role: entities.RoleAuthor}}, "")
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	in := userInput(r)
	user, err := h.identity.CreateUser(r.Context(), callerFrom(r), in)
	if err != nil {
		h.fail(w, r, err, "/admin/users/create", func(message string) {
			h.renderUserForm(w, r, http.StatusUnprocessableEntity, userFormData{Input: in}, message)
		})
		return
	}
	h.redirectFlash(w, r, "/admin/users", store.FlashSuccess, "User \""+user.Username+"\" created successfully.")
}

func (h *Handler) EditUserPage(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "/admin/users", nil)
		return
	}
	h.renderUserForm(w, r, http.StatusOK, userFormData{
		ID: user.ID,
		Input: identity.UserInput{
			Username: user.Username,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
	}, "")
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in := userInput(r)
	user, err := h.identity.UpdateUser(r.Context(), callerFrom(r), id, in)
	if err != nil {
		h.fail(w, r, err, "/admin/users/"+id+"/edit", func(message string) {
			h.renderUserForm(w, r, http.StatusUnprocessableEntity, userFormData{ID: id, Input: in}, message)
		})
		return
	}
	h.redirectFlash(w, r, "/admin/users", store.FlashSuccess, "User \""+user.Username+"\" updated successfully.")
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.DeleteUser(r.Context(), callerFrom(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "/admin/users", nil)
		return
	}
	h.redirectFlash(w, r, "/admin/users", store.FlashSuccess, "User deleted successfully.")
}
