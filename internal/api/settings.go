package api

import (
	"net/http"
	"strconv"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/leafsii/leafsii-cms/internal/settings"
	"github.com/leafsii/leafsii-cms/internal/store"
)

func (h *Handler) SettingsPage(w http.ResponseWriter, r *http.Request) {
	h.renderSettings(w, r, http.StatusOK, nil, "")
}

// renderSettings shows the stored row, or override when re-rendering a rejected form
func (h *Handler) renderSettings(w http.ResponseWriter, r *http.Request, status int, override *entities.Settings, formErr string) {
	current := override
	if current == nil {
		var err error
		if current, err = h.settings.Get(r.Context()); err != nil {
			h.fail(w, r, err, "/admin", nil)
			return
		}
	}
	h.renderForm(w, r, status, "settings", "Settings", current, formErr)
}

func (h *Handler) UpdateSiteSettings(w http.ResponseWriter, r *http.Request) {
	name := formValue(r, "site_name")
	description := formValue(r, "site_description")
	in := settings.SiteInput{SiteName: &name, SiteDescription: &description}

	if raw := formValue(r, "posts_per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.settingsInvalid(w, r, domain.Invalid("posts_per_page", "Posts per page must be a number."))
			return
		}
		in.PostsPerPage = &n
	}

	if _, err := h.settings.UpdateSite(r.Context(), callerFrom(r), in); err != nil {
		h.settingsInvalid(w, r, err)
		return
	}
	h.redirectFlash(w, r, "/admin/settings", store.FlashSuccess, "Settings updated successfully.")
}

func (h *Handler) UpdateMailSettings(w http.ResponseWriter, r *http.Request) {
	server := formValue(r, "mail_server")
	username := formValue(r, "mail_username")
	sender := formValue(r, "mail_default_sender")
	useTLS := r.PostFormValue("mail_use_tls") != ""
	in := settings.MailInput{
		Server:        &server,
		UseTLS:        &useTLS,
		Username:      &username,
		Password:      r.PostFormValue("mail_password"),
		DefaultSender: &sender,
	}

	if raw := formValue(r, "mail_port"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			h.settingsInvalid(w, r, domain.Invalid("mail_port", "Mail port must be a number."))
			return
		}
		in.Port = &port
	}

	if _, err := h.settings.UpdateMail(r.Context(), callerFrom(r), in); err != nil {
		h.settingsInvalid(w, r, err)
		return
	}
	h.redirectFlash(w, r, "/admin/settings", store.FlashSuccess, "Email settings updated successfully.")
}

func (h *Handler) settingsInvalid(w http.ResponseWriter, r *http.Request, err error) {
	h.fail(w, r, err, "/admin/settings", func(message string) {
		h.renderSettings(w, r, http.StatusUnprocessableEntity, nil, message)
	})
}
