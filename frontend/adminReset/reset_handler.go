package adminreset

import (
	"fmt"
	"net/http"

	"stockmaster/frontend/shared/respond"
	systemlogs "stockmaster/frontend/systemLogs"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/models"
)

func ResetHistoryCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := systemlogs.RequireProtected(actor); err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := systemlogs.DecodeConfirmation(r); err != nil {
			respond.Error(w, r, err)
			return
		}
		auditSvc.Flush()
		c, err := ResetHistory(r.Context(), db, actor)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		auditSvc.Emit(audit.Entry{
			Action:      audit.ActionHistoryReset,
			Description: fmt.Sprintf("%s wiped %d movements and %d log entries", actor.Name, c.Movements, c.SystemLogs),
			Actor:       actor,
			Level:       models.LevelCritical,
			Metadata:    map[string]any{"movements": c.Movements, "system_logs": c.SystemLogs},
		})
		respond.JSON(w, http.StatusOK, c)
	}
}

func ResetProductsCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := systemlogs.RequireProtected(actor); err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := systemlogs.DecodeConfirmation(r); err != nil {
			respond.Error(w, r, err)
			return
		}
		c, err := ResetProducts(r.Context(), db, actor)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		auditSvc.Emit(audit.Entry{
			Action:      audit.ActionProductsReset,
			Description: fmt.Sprintf("%s wiped %d products and %d movements", actor.Name, c.Products, c.Movements),
			Actor:       actor,
			Level:       models.LevelCritical,
			Metadata:    map[string]any{"products": c.Products, "movements": c.Movements},
		})
		respond.JSON(w, http.StatusOK, c)
	}
}
