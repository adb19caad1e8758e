package login

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockmaster/frontend/shared/respond"
	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/mail"
	"stockmaster/models"
)

const forgotPasswordMessage = "If the address belongs to an account, a reset link has been sent."

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ForgotPasswordCommandHandler always answers 200 with the same message.
func ForgotPasswordCommandHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in forgotPasswordRequest
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := d.requestReset(r.Context(), in.Email); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"message": forgotPasswordMessage})
	}
}

// ForgotPasswordFormHandler is the HTML form variant.
func ForgotPasswordFormHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err == nil {
			if err := d.requestReset(r.Context(), r.FormValue("email")); err != nil {
				slog.Error("password reset request", slog.Any("err", err))
			}
		}
		http.Redirect(w, r, "/forgot-password?sent=1", http.StatusSeeOther)
	}
}

// ResetPasswordCommandHandler consumes a reset token.
func ResetPasswordCommandHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in resetPasswordRequest
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := d.resetPassword(r.Context(), in.Token, in.Password); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"message": "password updated"})
	}
}

// ResetPasswordFormHandler is the HTML form variant.
func ResetPasswordFormHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, "/reset-password?error="+url.QueryEscape("invalid form data"), http.StatusSeeOther)
			return
		}
		token := r.FormValue("token")
		if err := d.resetPassword(r.Context(), token, r.FormValue("password")); err != nil {
			msg := "could not update password"
			if apperr.KindOf(err) != apperr.KindInternal {
				msg = err.Error()
			}
			http.Redirect(w, r, "/reset-password?token="+url.QueryEscape(token)+"&error="+url.QueryEscape(msg), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

func (d Deps) requestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	user, token, ok, err := IssueResetToken(ctx, d.DB, email, time.Now(), d.resetTTL())
	if err != nil || !ok {
		return err
	}

	if d.Mailer != nil {
		msg := mail.PasswordReset(user.Email, strings.TrimRight(d.BaseURL, "/"), token, d.resetTTL())
		if err := d.Mailer.Send(ctx, msg); err != nil {
			slog.Error("send password reset email", slog.Int64("user_id", user.ID), slog.Any("err", err))
		}
	}
	d.Audit.Emit(audit.Entry{
		Action:      audit.ActionPasswordForgot,
		Description: "Password reset requested for " + user.Email,
		Actor:       models.ActorFromUser(user),
	})
	return nil
}

func (d Deps) resetTTL() time.Duration {
	if d.ResetTTL <= 0 {
		return DefaultResetTokenTTL
	}
	return d.ResetTTL
}

func (d Deps) resetPassword(ctx context.Context, token, password string) error {
	user, err := ResetPassword(ctx, d.DB, token, password, time.Now())
	if err != nil {
		return err
	}
	d.SessionCache.DeleteSessionsByUserID(user.ID)
	d.UserCache.Forget(user.ID)
	d.Audit.Emit(audit.Entry{
		Action:      audit.ActionPasswordReset,
		Description: user.Name + " reset their password",
		Actor:       models.ActorFromUser(user),
		Level:       models.LevelWarning,
	})
	return nil
}
