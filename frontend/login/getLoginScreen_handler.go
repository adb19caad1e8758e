package login

import (
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
)

// GetLoginScreenHandler renders the login screen.
func GetLoginScreenHandler(w http.ResponseWriter, r *http.Request) {
	render(w, r, GetLoginScreen(r.URL.Query().Get("error")))
}

// GetForgotPasswordScreenHandler renders the reset request form.
func GetForgotPasswordScreenHandler(w http.ResponseWriter, r *http.Request) {
	render(w, r, GetForgotPasswordScreen(r.URL.Query().Get("sent") == "1"))
}

// GetResetPasswordScreenHandler renders the new-password form.
func GetResetPasswordScreenHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	render(w, r, GetResetPasswordScreen(q.Get("token"), q.Get("error")))
}

func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render page", slog.String("path", r.URL.Path), slog.Any("err", err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}
