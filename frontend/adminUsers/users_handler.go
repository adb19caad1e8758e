package adminusers

import (
	"net/http"

	"stockmaster/frontend/shared/respond"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/cache"
	"stockmaster/infrastructure/sqlite"
)

func ListUsersQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := ListUsers(r.Context(), db)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, users)
	}
}

func CreateUserCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var in CreateInput
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		u, err := CreateUser(r.Context(), db, auditSvc, actor, in)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusCreated, u)
	}
}

func UpdateUserCommandHandler(db *sqlite.DB, auditSvc *audit.Service, sessionCache *cache.UserSessionCache, userCache *cache.UserCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		id, err := respond.PathID(r, "id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var in UpdateInput
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		u, _, err := UpdateUser(r.Context(), db, auditSvc, actor, id, in)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		// Cached sessions embed the user row; drop them so the next request reloads.
		sessionCache.DeleteSessionsByUserID(u.ID)
		userCache.Forget(u.ID)
		respond.JSON(w, http.StatusOK, u)
	}
}

func DeleteUserCommandHandler(db *sqlite.DB, auditSvc *audit.Service, sessionCache *cache.UserSessionCache, userCache *cache.UserCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		id, err := respond.PathID(r, "id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := DeleteUser(r.Context(), db, auditSvc, actor, id); err != nil {
			respond.Error(w, r, err)
			return
		}
		sessionCache.DeleteSessionsByUserID(id)
		userCache.Forget(id)
		respond.JSON(w, http.StatusOK, map[string]any{"deleted": id})
	}
}

func BatchDeleteUsersCommandHandler(db *sqlite.DB, auditSvc *audit.Service, sessionCache *cache.UserSessionCache, userCache *cache.UserCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var req batchDeleteRequest
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		deleted, err := DeleteUsers(r.Context(), db, auditSvc, actor, req.IDs)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		for _, id := range deleted {
			sessionCache.DeleteSessionsByUserID(id)
			userCache.Forget(id)
		}
		respond.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
	}
}
