package movements

import (
	"net/http"
	"strconv"
	"time"

	"stockmaster/frontend/shared/respond"
	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/ledger"
	"stockmaster/infrastructure/sqlite"
)

func ListMovementsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseFilter(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		rows, err := ListMovements(r.Context(), db, f)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, rows)
	}
}

func CreateMovementCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var in ledger.MovementInput
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		m, err := CreateMovement(r.Context(), db, auditSvc, actor, in)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusCreated, m)
	}
}

func parseFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	f := ListFilter{Kind: q.Get("kind")}
	var err error
	if raw := q.Get("product_id"); raw != "" {
		if f.ProductID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return f, apperr.Validation("invalid product_id", nil)
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if f.Limit, err = strconv.Atoi(raw); err != nil {
			return f, apperr.Validation("invalid limit", nil)
		}
	}
	if raw := q.Get("from"); raw != "" {
		if f.From, err = parseTime(raw); err != nil {
			return f, apperr.Validation("invalid from", nil)
		}
	}
	if raw := q.Get("to"); raw != "" {
		if f.To, err = parseTime(raw); err != nil {
			return f, apperr.Validation("invalid to", nil)
		}
	}
	return f, nil
}

// parseTime accepts RFC 3339 or a plain date.
func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
