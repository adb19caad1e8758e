package systemlogs

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"

	adminusers "stockmaster/frontend/adminUsers"
	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/infrastructure/validation"
	"stockmaster/models"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

var levels = []string{models.LevelInfo, models.LevelWarning, models.LevelCritical}

// ListLogs returns the newest entries first. Action matches a prefix, so
// "user." lists every user event.
func ListLogs(ctx context.Context, db *sqlite.DB, f ListFilter) ([]models.SystemLog, error) {
	if f.Level != "" {
		v := validation.Violations{}
		validation.OneOf("level", f.Level, levels, v)
		if err := v.Err(); err != nil {
			return nil, err
		}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows := make([]models.SystemLog, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(&rows)
		if f.Level != "" {
			q = q.Where("sl.level = ?", f.Level)
		}
		if action := strings.TrimSpace(f.Action); action != "" {
			q = q.Where("sl.action LIKE ? ESCAPE '\\'", escapeLike(action)+"%")
		}
		return q.Order("sl.created_at DESC", "sl.id DESC").Limit(limit).Scan(ctx)
	})
	return rows, err
}

// RecordClientEvent writes a browser-reported event synchronously so the
// caller learns whether it was stored.
func RecordClientEvent(ctx context.Context, db *sqlite.DB, actor models.Actor, in ClientEvent) (models.SystemLog, error) {
	in.Action = strings.TrimSpace(in.Action)
	in.Description = strings.TrimSpace(in.Description)
	if in.Level == "" {
		in.Level = models.LevelInfo
	}
	v := validation.Violations{}
	validation.Required("action", in.Action, v)
	validation.MaxLen("action", in.Action, 100, v)
	validation.MaxLen("description", in.Description, 1000, v)
	validation.OneOf("level", in.Level, levels, v)
	if err := v.Err(); err != nil {
		return models.SystemLog{}, err
	}

	entry := audit.Entry{
		Action:      in.Action,
		Description: in.Description,
		Actor:       actor,
		Level:       in.Level,
		Metadata:    in.Metadata,
		At:          time.Now().UTC(),
	}
	if err := audit.Write(ctx, db, entry); err != nil {
		return models.SystemLog{}, err
	}
	row := models.SystemLog{
		Action:      entry.Action,
		Description: entry.Description,
		UserName:    actor.Name,
		Level:       entry.Level,
		CreatedAt:   entry.At,
	}
	if actor.UserID > 0 {
		id := actor.UserID
		row.UserID = &id
	}
	return row, nil
}

// RequireProtected rejects anyone but the protected administrator.
func RequireProtected(actor models.Actor) error {
	if !adminusers.CanReset(actor) {
		return apperr.Forbidden("only the supreme administrator may do this")
	}
	return nil
}

// ClearLogs wipes the system log and returns how many rows were removed.
func ClearLogs(ctx context.Context, db *sqlite.DB, actor models.Actor) (int64, error) {
	if err := RequireProtected(actor); err != nil {
		return 0, err
	}
	var n int64
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*models.SystemLog)(nil)).Where("1 = 1").Exec(ctx)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
