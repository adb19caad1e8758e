package systemlogs

import (
	"fmt"
	"net/http"
	"strconv"

	"stockmaster/frontend/shared/respond"
	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/models"
)

// ConfirmationPhrase must be sent verbatim to run a destructive reset.
const ConfirmationPhrase = "RESET"

func ListLogsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := ListFilter{Level: q.Get("level"), Action: q.Get("action")}
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				respond.Error(w, r, apperr.Validation("invalid limit", nil))
				return
			}
			f.Limit = n
		}
		rows, err := ListLogs(r.Context(), db, f)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, rows)
	}
}

func CreateLogCommandHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var in ClientEvent
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		row, err := RecordClientEvent(r.Context(), db, actor, in)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusCreated, row)
	}
}

// ClearLogsCommandHandler wipes the log, then records the wipe as the first new entry.
func ClearLogsCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := RequireProtected(actor); err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := DecodeConfirmation(r); err != nil {
			respond.Error(w, r, err)
			return
		}
		// Pending entries must land before the wipe, not after it.
		auditSvc.Flush()
		n, err := ClearLogs(r.Context(), db, actor)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		auditSvc.Emit(audit.Entry{
			Action:      audit.ActionLogsReset,
			Description: fmt.Sprintf("%s cleared %d system log entries", actor.Name, n),
			Actor:       actor,
			Level:       models.LevelCritical,
			Metadata:    map[string]any{"deleted": n},
		})
		respond.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
	}
}

// DecodeConfirmation requires a {"confirmation":"RESET"} body.
func DecodeConfirmation(r *http.Request) error {
	var in resetRequest
	if err := respond.Decode(r, &in); err != nil {
		return err
	}
	if in.Confirmation != ConfirmationPhrase {
		return apperr.Validation(`confirmation must be "`+ConfirmationPhrase+`"`, map[string]string{"confirmation": "required"})
	}
	return nil
}
