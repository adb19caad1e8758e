package login

import (
	"net/http"

	sessioncontext "stockmaster/frontend/shared/context"
	"stockmaster/frontend/shared/respond"
	"stockmaster/infrastructure/audit"
	sessioncookie "stockmaster/infrastructure/session"
	"stockmaster/models"
)

// LogoutHandler removes session state and redirects to the login page.
func LogoutHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.endSession(w, r)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

// LogoutCommandHandler is the JSON variant of LogoutHandler.
func LogoutCommandHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.endSession(w, r)
		respond.JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
	}
}

// LogExitCommandHandler records the logout in the system log, then ends the session.
func LogExitCommandHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if actor, ok := sessioncontext.ActorFromContext(r.Context()); ok {
			d.Audit.Emit(audit.Entry{
				Action:      audit.ActionUserLogout,
				Description: actor.Name + " signed out",
				Actor:       actor,
			})
		}
		d.endSession(w, r)
		respond.JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
	}
}

// MeQueryHandler returns the current user and their permission codes.
func MeQueryHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessioncontext.GetSessionFromContext(r.Context())
		if !ok {
			respond.JSON(w, http.StatusUnauthorized, respond.ErrorResponse{Error: "authentication required"})
			return
		}
		respond.JSON(w, http.StatusOK, meResponse{User: session.User, Permissions: d.permissions(session.User, session.UserRoles)})
	}
}

// permissions lists the route codes the roles may call. A protected admin
// additionally holds SYSTEM_RESET.
func (d Deps) permissions(user models.User, roles []string) []string {
	if len(roles) == 0 {
		roles = []string{user.Role}
	}
	perms := []string{}
	if d.RbacCache != nil {
		perms = append(perms, d.RbacCache.PermissionCodes(roles)...)
	}
	if user.Protected && user.IsAdmin() {
		perms = append(perms, "SYSTEM_RESET")
	}
	return perms
}

func (d Deps) endSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessioncookie.CookieName)
	if err == nil && cookie.Value != "" {
		d.SessionCache.DeleteSessionBySessionToken(cookie.Value)
		_ = DeleteSessionByToken(r.Context(), d.DB, cookie.Value)
	}
	http.SetCookie(w, d.Cookies.Clear())
}

