package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/ledger"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/models"
)

func ListProducts(ctx context.Context, db *sqlite.DB, f ListFilter) ([]models.Product, error) {
	rows := make([]models.Product, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(&rows)
		if s := strings.TrimSpace(f.Search); s != "" {
			like := "%" + strings.ToLower(s) + "%"
			q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("LOWER(p.name) LIKE ?", like).
					WhereOr("LOWER(p.sku) LIKE ?", like).
					WhereOr("p.barcode = ?", s)
			})
		}
		if c := strings.TrimSpace(f.Category); c != "" {
			q = q.Where("p.category = ?", c)
		}
		if f.SupplierID > 0 {
			q = q.Where("p.supplier_id = ?", f.SupplierID)
		}
		if f.LowStock {
			q = q.Where("p.quantity <= COALESCE(p.min_stock, ?)", models.DefaultMinStock)
		}
		return q.OrderExpr("p.name COLLATE NOCASE ASC").Scan(ctx)
	})
	return rows, err
}

func GetProduct(ctx context.Context, db *sqlite.DB, id int64) (models.Product, error) {
	var p models.Product
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&p).Where("p.id = ?", id).Limit(1).Scan(ctx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ledger.ErrProductNotFound
	}
	return p, err
}

func CreateProduct(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, in ledger.ProductInput) (models.Product, error) {
	var p models.Product
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		p, err = ledger.CreateProduct(ctx, tx, actor, in)
		return err
	})
	if err != nil {
		return models.Product{}, err
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionProductCreate,
		Description: fmt.Sprintf("Product %s (%s) created with quantity %d", p.Name, p.SKU, p.Quantity),
		Actor:       actor,
		Metadata:    map[string]any{"product_id": p.ID, "sku": p.SKU},
	})
	return p, nil
}

func UpdateProduct(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, id int64, patch ledger.ProductPatch) (models.Product, error) {
	var p models.Product
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		p, err = ledger.UpdateProduct(ctx, tx, actor, id, patch)
		return err
	})
	if err != nil {
		return models.Product{}, err
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionProductUpdate,
		Description: fmt.Sprintf("Product %s (%s) updated", p.Name, p.SKU),
		Actor:       actor,
		Metadata:    map[string]any{"product_id": p.ID, "quantity": p.Quantity},
	})
	return p, nil
}

func DeleteProduct(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, id int64) error {
	var p models.Product
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		p, err = ledger.DeleteProduct(ctx, tx, actor, id)
		return err
	})
	if err != nil {
		return err
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionProductDelete,
		Description: fmt.Sprintf("Product %s (%s) deleted, %d units liquidated", p.Name, p.SKU, p.Quantity),
		Actor:       actor,
		Level:       models.LevelWarning,
		Metadata:    map[string]any{"product_id": p.ID, "sku": p.SKU, "liquidated": p.Quantity},
	})
	return nil
}

func DeleteProducts(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, ids []int64) (ledger.BatchResult, error) {
	var res ledger.BatchResult
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		res, err = ledger.DeleteProducts(ctx, tx, actor, ids)
		return err
	})
	if err != nil {
		return ledger.BatchResult{}, err
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionProductBatch,
		Description: fmt.Sprintf("%d products deleted in batch", len(res.Deleted)),
		Actor:       actor,
		Level:       models.LevelWarning,
		Metadata:    map[string]any{"deleted": res.Deleted, "missing": res.Missing, "liquidated": res.Liquidated},
	})
	return res, nil
}
