package adminreset

import (
	"context"

	"github.com/uptrace/bun"

	systemlogs "stockmaster/frontend/systemLogs"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/models"
)

// Counts reports how many rows a reset removed per table.
type Counts struct {
	Products   int64 `json:"products"`
	Movements  int64 `json:"movements"`
	SystemLogs int64 `json:"system_logs"`
}

// ResetHistory wipes the movement ledger and the system log. Product
// quantities are left as they are.
func ResetHistory(ctx context.Context, db *sqlite.DB, actor models.Actor) (Counts, error) {
	if err := systemlogs.RequireProtected(actor); err != nil {
		return Counts{}, err
	}
	var c Counts
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if c.Movements, err = deleteAll(ctx, tx, (*models.Movement)(nil)); err != nil {
			return err
		}
		c.SystemLogs, err = deleteAll(ctx, tx, (*models.SystemLog)(nil))
		return err
	})
	return c, err
}

// ResetProducts wipes the catalogue together with its ledger.
func ResetProducts(ctx context.Context, db *sqlite.DB, actor models.Actor) (Counts, error) {
	if err := systemlogs.RequireProtected(actor); err != nil {
		return Counts{}, err
	}
	var c Counts
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if c.Movements, err = deleteAll(ctx, tx, (*models.Movement)(nil)); err != nil {
			return err
		}
		c.Products, err = deleteAll(ctx, tx, (*models.Product)(nil))
		return err
	})
	return c, err
}

func deleteAll(ctx context.Context, tx bun.Tx, model any) (int64, error) {
	res, err := tx.NewDelete().Model(model).Where("1 = 1").Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
