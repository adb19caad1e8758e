package categories

import (
	"net/http"
	"strconv"

	"stockmaster/frontend/shared/respond"
	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/sqlite"
)

func ListCategoriesQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ListCategories(r.Context(), db)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, rows)
	}
}

func CreateCategoryCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var in Input
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		c, err := CreateCategory(r.Context(), db, auditSvc, actor, in)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusCreated, c)
	}
}

func UpdateCategoryCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
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
		var in Input
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		c, err := UpdateCategory(r.Context(), db, auditSvc, actor, id, in)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, c)
	}
}

// DeleteCategoryCommandHandler serves both /categories/{id} and /categories?id=.
func DeleteCategoryCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		id, err := idFromPathOrQuery(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := DeleteCategory(r.Context(), db, auditSvc, actor, id); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]any{"deleted": id})
	}
}

func idFromPathOrQuery(r *http.Request) (int64, error) {
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, apperr.Validation("invalid id", nil)
		}
		return id, nil
	}
	return respond.PathID(r, "id")
}
