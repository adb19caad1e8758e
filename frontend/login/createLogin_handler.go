package login

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockmaster/frontend/shared/respond"
	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/cache"
	"stockmaster/infrastructure/mail"
	sessioncookie "stockmaster/infrastructure/session"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/models"
)

// Deps groups what the login flows share.
type Deps struct {
	DB           *sqlite.DB
	SessionCache *cache.UserSessionCache
	UserCache    *cache.UserCache
	RbacCache    *cache.RbacRolesCache
	Cookies      sessioncookie.Cookies
	Audit        *audit.Service
	Mailer       mail.Mailer
	BaseURL      string
	ResetTTL     time.Duration
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type meResponse struct {
	User        models.User `json:"user"`
	Permissions []string    `json:"permissions"`
}

// LoginCommandHandler authenticates a JSON request and issues a session cookie.
func LoginCommandHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in credentials
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		if strings.TrimSpace(in.Email) == "" || in.Password == "" {
			respond.Error(w, r, apperr.Validation("email and password are required", nil))
			return
		}

		user, err := d.login(r.Context(), w, in.Email, in.Password)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, meResponse{User: user, Permissions: d.permissions(user, nil)})
	}
}

// CreateLoginHandler authenticates the login form and redirects to the dashboard.
func CreateLoginHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, "/login?error="+url.QueryEscape("invalid form data"), http.StatusSeeOther)
			return
		}

		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")
		if email == "" || password == "" {
			http.Redirect(w, r, "/login?error="+url.QueryEscape("email and password are required"), http.StatusSeeOther)
			return
		}

		if _, err := d.login(r.Context(), w, email, password); err != nil {
			msg := "authentication failed"
			var appErr *apperr.Error
			if errors.As(err, &appErr) && appErr.Kind != apperr.KindInternal {
				msg = appErr.Message
			}
			http.Redirect(w, r, "/login?error="+url.QueryEscape(msg), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

func (d Deps) login(ctx context.Context, w http.ResponseWriter, email, password string) (models.User, error) {
	user, err := authenticateUser(ctx, d.DB, email, password)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			d.Audit.Emit(audit.Entry{
				Action:      audit.ActionUserLoginFail,
				Description: "Failed login for " + strings.ToLower(strings.TrimSpace(email)),
				Level:       models.LevelWarning,
				Metadata:    map[string]any{"email": strings.ToLower(strings.TrimSpace(email)), "reason": err.Error()},
			})
		}
		return models.User{}, err
	}

	token, err := sessioncookie.NewToken()
	if err != nil {
		return models.User{}, err
	}
	session := models.Session{
		ID:        token,
		UserID:    user.ID,
		User:      user,
		UserRoles: []string{user.Role},
		ExpiresAt: d.Cookies.Expiry(),
	}
	if err := persistSession(ctx, d.DB, session); err != nil {
		return models.User{}, err
	}

	d.SessionCache.AddSession(session)
	d.UserCache.Add(user)
	http.SetCookie(w, d.Cookies.Issue(session.ID))

	d.Audit.Emit(audit.Entry{
		Action:      audit.ActionUserLogin,
		Description: user.Name + " signed in",
		Actor:       models.ActorFromUser(user),
	})
	return user, nil
}
