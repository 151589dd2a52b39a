package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/leafsii/leafsii-cms/internal/content"
	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/leafsii/leafsii-cms/internal/identity"
	"github.com/leafsii/leafsii-cms/internal/mail"
	"github.com/leafsii/leafsii-cms/internal/store"
)

const resetRequestedMessage = "If that email address is registered, a password reset link has been sent."

type loginData struct {
	Username string
	Next     string
	Remember bool
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if currentUser(r) != nil {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login", "Log in", loginData{Next: r.URL.Query().Get("next")})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := loginData{
		Username: formValue(r, "username"),
		Next:     r.PostFormValue("next"),
		Remember: r.PostFormValue("remember") != "",
	}
	if form.Next == "" {
		form.Next = r.URL.Query().Get("next")
	}

	key := form.Username + "|" + clientIP(r)
	allowed, err := h.throttle.Allow(ctx, key)
	if err != nil {
		h.log(r).Warnw("Login throttle unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		h.renderForm(w, r, http.StatusTooManyRequests, "login", "Log in", form,
			domain.UserMessage(domain.ErrInvalidCredentials))
		return
	}

	user, err := h.identity.Authenticate(ctx, form.Username, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			if _, ferr := h.throttle.Fail(ctx, key); ferr != nil {
				h.log(r).Warnw("Failed to record login failure", "error", ferr)
			}
			h.renderForm(w, r, http.StatusUnauthorized, "login", "Log in", form, domain.UserMessage(err))
			return
		}
		h.fail(w, r, err, "/admin/login", nil)
		return
	}
	if err := h.throttle.Reset(ctx, key); err != nil {
		h.log(r).Warnw("Failed to reset login throttle", "error", err)
	}

	sess, err := h.sessions.Login(ctx, sessionFrom(r), user.ID, form.Remember)
	if err != nil {
		h.fail(w, r, err, "/admin/login", nil)
		return
	}
	sess.AddFlash(store.FlashSuccess, "Welcome back, "+user.Username+"!")
	h.saveSession(r, sess)
	h.setSessionCookie(w, sess)

	h.log(r).Infow("User logged in", "user", user.Username, "remember", form.Remember)
	http.Redirect(w, r, safeNext(form.Next), http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if sess := sessionFrom(r); sess != nil {
		if err := h.sessions.Destroy(ctx, sess.ID); err != nil {
			h.log(r).Warnw("Failed to destroy session", "error", err)
		}
	}
	fresh, err := h.sessions.New(ctx)
	if err != nil {
		h.clearSessionCookie(w)
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	fresh.AddFlash(store.FlashInfo, "You have been logged out.")
	h.saveSession(r, fresh)
	h.setSessionCookie(w, fresh)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (h *Handler) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "forgot_password", "Forgot password", nil)
}

// ForgotPassword answers the same way whether or not the address is known
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := formValue(r, "email")
	if email == "" {
		h.renderForm(w, r, http.StatusUnprocessableEntity, "forgot_password", "Forgot password", nil,
			"Email is required.")
		return
	}

	token, user, err := h.identity.IssueResetToken(ctx, email)
	switch {
	case err == nil:
		link := strings.TrimRight(h.config.PublicURL, "/") + "/admin/reset-password/" + token
		if err := h.mailer.Send(ctx, mail.PasswordResetMessage(user.Email, user.Username, link)); err != nil {
			h.log(r).Errorw("Failed to send password reset email", "user", user.Username, "error", err)
		}
	case errors.Is(err, domain.ErrNotFound):
		h.log(r).Infow("Password reset requested for unknown email")
	default:
		h.fail(w, r, err, "/admin/forgot-password", nil)
		return
	}
	h.redirectFlash(w, r, "/admin/login", store.FlashInfo, resetRequestedMessage)
}

type resetData struct {
	Token string
}

func (h *Handler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if _, err := h.identity.ValidateResetToken(r.Context(), token); err != nil {
		h.resetFailed(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "reset_password", "Reset password", resetData{Token: token})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	data := resetData{Token: token}
	password := r.PostFormValue("password")
	if password != r.PostFormValue("confirm_password") {
		h.renderForm(w, r, http.StatusUnprocessableEntity, "reset_password", "Reset password", data,
			"Passwords do not match.")
		return
	}

	err := h.identity.ConsumeResetToken(r.Context(), token, password)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			h.renderForm(w, r, http.StatusUnprocessableEntity, "reset_password", "Reset password", data,
				domain.UserMessage(err))
			return
		}
		h.resetFailed(w, r, err)
		return
	}
	h.redirectFlash(w, r, "/admin/login", store.FlashSuccess, "Your password has been reset. Please log in.")
}

func (h *Handler) resetFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidToken) {
		h.redirectFlash(w, r, "/admin/forgot-password", store.FlashDanger, domain.UserMessage(err))
		return
	}
	h.fail(w, r, err, "/admin/forgot-password", nil)
}

type profileData struct {
	Username string
	Email    string
	FullName string
}

func (h *Handler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	h.render(w, r, http.StatusOK, "profile", "Profile", profileData{
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
	})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	in := identity.ProfileInput{
		Username:        formValue(r, "username"),
		Email:           formValue(r, "email"),
		FullName:        formValue(r, "full_name"),
		CurrentPassword: r.PostFormValue("current_password"),
		NewPassword:     r.PostFormValue("new_password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	_, err := h.identity.UpdateProfile(r.Context(), callerFrom(r), in)
	if err != nil {
		h.fail(w, r, err, "/admin/profile", func(message string) {
			h.renderForm(w, r, http.StatusUnprocessableEntity, "profile", "Profile", profileData{
				Username: in.Username,
				Email:    in.Email,
				FullName: in.FullName,
			}, message)
		})
		return
	}
	h.redirectFlash(w, r, "/admin/profile", store.FlashSuccess, "Profile updated successfully.")
}

type dashboardData struct {
	Stats       *content.Stats
	Users       int64
	Media       int64
	RecentPosts []*entities.Post
	RecentUsers []*entities.User
}

const dashboardRecent = 5

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var data dashboardData
	var err error
	if data.Stats, err = h.content.Stats(ctx); err != nil {
		h.fail(w, r, err, "/admin", nil)
		return
	}
	if data.Users, err = h.identity.CountUsers(ctx); err != nil {
		h.fail(w, r, err, "/admin", nil)
		return
	}
	if data.Media, err = h.media.CountMedia(ctx); err != nil {
		h.fail(w, r, err, "/admin", nil)
		return
	}
	if data.RecentPosts, err = h.content.RecentPosts(ctx, dashboardRecent); err != nil {
		h.fail(w, r, err, "/admin", nil)
		return
	}
	if data.RecentUsers, err = h.identity.RecentUsers(ctx, dashboardRecent); err != nil {
		h.fail(w, r, err, "/admin", nil)
		return
	}
	h.render(w, r, http.StatusOK, "dashboard", "Dashboard", data)
}
