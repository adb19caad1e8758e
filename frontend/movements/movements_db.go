package movements

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/ledger"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/models"
)

// ListFilter narrows the movement history.
type ListFilter struct {
	ProductID int64
	Kind      string
	From      time.Time
	To        time.Time
	Limit     int
}

const defaultLimit = 200

func ListMovements(ctx context.Context, db *sqlite.DB, f ListFilter) ([]models.Movement, error) {
	rows := make([]models.Movement, 0)
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = defaultLimit
	}
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(&rows)
		if f.ProductID > 0 {
			q = q.Where("m.product_id = ?", f.ProductID)
		}
		if f.Kind != "" {
			q = q.Where("m.kind = ?", f.Kind)
		}
		if !f.From.IsZero() {
			q = q.Where("m.created_at >= ?", f.From.UTC())
		}
		if !f.To.IsZero() {
			q = q.Where("m.created_at <= ?", f.To.UTC())
		}
		return q.Order("m.id DESC").Limit(limit).Scan(ctx)
	})
	return rows, err
}

func CreateMovement(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, in ledger.MovementInput) (models.Movement, error) {
	var m models.Movement
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		m, err = ledger.ApplyMovement(ctx, tx, actor, in)
		return err
	})
	if err != nil {
		return models.Movement{}, err
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionMovementCreate,
		Description: fmt.Sprintf("%s of %d units on %s (%d -> %d)", m.Kind, m.Quantity, m.ProductName, m.OldStock, m.NewStock),
		Actor:       actor,
		Metadata:    map[string]any{"movement_id": m.ID, "product_id": m.ProductID},
	})
	return m, nil
}
