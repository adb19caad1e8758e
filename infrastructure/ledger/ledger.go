// Package ledger keeps product quantities and the movement history in step.
// Every function runs inside the caller's write transaction, so a quantity
// change and its movement row commit or roll back together.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/infrastructure/validation"
	"stockmaster/models"
)

var (
	ErrProductNotFound   = apperr.NotFound("product")
	ErrProductExists     = apperr.Conflict("product with this SKU or barcode already exists")
	ErrInsufficientStock = apperr.Conflict("insufficient stock")
)

// ProductInput describes a new product.
type ProductInput struct {
	SKU        string          `json:"sku"`
	Barcode    *string         `json:"barcode"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	CategoryID *int64          `json:"category_id"`
	Quantity   *int64          `json:"quantity"`
	MinStock   *int64          `json:"min_stock"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	Price      decimal.Decimal `json:"price"`
	Location   string          `json:"location"`
	SupplierID *int64          `json:"supplier_id"`
}

// ProductPatch carries the fields to change; nil means unchanged. A category_id
// or supplier_id of 0 detaches the product.
type ProductPatch struct {
	SKU        *string          `json:"sku"`
	Barcode    *string          `json:"barcode"`
	Name       *string          `json:"name"`
	Category   *string          `json:"category"`
	CategoryID *int64           `json:"category_id"`
	Quantity   *int64           `json:"quantity"`
	MinStock   *int64           `json:"min_stock"`
	CostPrice  *decimal.Decimal `json:"cost_price"`
	Price      *decimal.Decimal `json:"price"`
	Location   *string          `json:"location"`
	SupplierID *int64           `json:"supplier_id"`
}

// MovementInput is a manual stock operation.
type MovementInput struct {
	ProductID int64  `json:"product_id"`
	Kind      string `json:"kind"`
	Quantity  int64  `json:"quantity"`
	Note      string `json:"note"`
}

// BatchResult reports a batch delete.
type BatchResult struct {
	Deleted    []int64 `json:"deleted"`
	Missing    []int64 `json:"missing"`
	Liquidated int64   `json:"liquidated_units"`
}

// ImportResult reports a bulk import.
type ImportResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// CreateProduct inserts the product and its creation movement. The movement is
// written even for an initial quantity of zero.
func CreateProduct(ctx context.Context, tx bun.Tx, actor models.Actor, in ProductInput) (models.Product, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)

	var qty int64
	if in.Quantity != nil {
		qty = *in.Quantity
	}

	v := validation.Violations{}
	validation.Required("sku", in.SKU, v)
	validation.Required("name", in.Name, v)
	validation.NonNegativeInt("quantity", qty, v)
	if in.MinStock != nil {
		validation.NonNegativeInt("min_stock", *in.MinStock, v)
	}
	validation.NonNegativeDecimal("cost_price", in.CostPrice, v)
	validation.NonNegativeDecimal("price", in.Price, v)
	if err := v.Err(); err != nil {
		return models.Product{}, err
	}

	in.CategoryID = nonZero(in.CategoryID)
	in.SupplierID = nonZero(in.SupplierID)
	category, err := resolveCategory(ctx, tx, in.CategoryID, in.Category)
	if err != nil {
		return models.Product{}, err
	}
	if err := resolveSupplier(ctx, tx, in.SupplierID); err != nil {
		return models.Product{}, err
	}

	now := time.Now().UTC()
	p := models.Product{
		SKU:        in.SKU,
		Barcode:    normalizeBarcode(in.Barcode),
		Name:       in.Name,
		Category:   category,
		CategoryID: in.CategoryID,
		Quantity:   qty,
		MinStock:   in.MinStock,
		CostPrice:  in.CostPrice,
		Price:      in.Price,
		Location:   strings.TrimSpace(in.Location),
		SupplierID: in.SupplierID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := tx.NewInsert().Model(&p).Returning("id").Exec(ctx); err != nil {
		if sqlite.IsUniqueViolation(err) {
			return models.Product{}, ErrProductExists
		}
		return models.Product{}, fmt.Errorf("insert product: %w", err)
	}

	if err := appendMovement(ctx, tx, actor, p, models.MovementCreation, qty, 0, qty, ""); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// UpdateProduct applies patch to the current row. A quantity change appends a
// stock-in or stock-out movement for the difference.
func UpdateProduct(ctx context.Context, tx bun.Tx, actor models.Actor, id int64, patch ProductPatch) (models.Product, error) {
	p, err := loadProduct(ctx, tx, id)
	if err != nil {
		return models.Product{}, err
	}

	v := validation.Violations{}
	if patch.SKU != nil {
		p.SKU = strings.TrimSpace(*patch.SKU)
		validation.Required("sku", p.SKU, v)
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
		validation.Required("name", p.Name, v)
	}
	if patch.Quantity != nil {
		validation.NonNegativeInt("quantity", *patch.Quantity, v)
	}
	if patch.MinStock != nil {
		validation.NonNegativeInt("min_stock", *patch.MinStock, v)
		p.MinStock = patch.MinStock
	}
	if patch.CostPrice != nil {
		validation.NonNegativeDecimal("cost_price", *patch.CostPrice, v)
		p.CostPrice = *patch.CostPrice
	}
	if patch.Price != nil {
		validation.NonNegativeDecimal("price", *patch.Price, v)
		p.Price = *patch.Price
	}
	if err := v.Err(); err != nil {
		return models.Product{}, err
	}

	if patch.Barcode != nil {
		p.Barcode = normalizeBarcode(patch.Barcode)
	}
	if patch.Location != nil {
		p.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.SupplierID != nil {
		p.SupplierID = nonZero(patch.SupplierID)
		if err := resolveSupplier(ctx, tx, p.SupplierID); err != nil {
			return models.Product{}, err
		}
	}
	if patch.CategoryID != nil || patch.Category != nil {
		label := p.Category
		if patch.Category != nil {
			label = *patch.Category
		}
		categoryID := p.CategoryID
		if patch.CategoryID != nil {
			categoryID = nonZero(patch.CategoryID)
			if categoryID == nil && patch.Category == nil {
				label = ""
			}
		}
		if p.Category, err = resolveCategory(ctx, tx, categoryID, label); err != nil {
			return models.Product{}, err
		}
		p.CategoryID = categoryID
	}

	oldQty := p.Quantity
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	p.UpdatedAt = time.Now().UTC()

	if _, err := tx.NewUpdate().Model(&p).WherePK().Exec(ctx); err != nil {
		if sqlite.IsUniqueViolation(err) {
			return models.Product{}, ErrProductExists
		}
		if sqlite.IsCheckViolation(err) {
			return models.Product{}, ErrInsufficientStock
		}
		return models.Product{}, fmt.Errorf("update product %d: %w", id, err)
	}

	switch diff := p.Quantity - oldQty; {
	case diff > 0:
		err = appendMovement(ctx, tx, actor, p, models.MovementStockIn, diff, oldQty, p.Quantity, "")
	case diff < 0:
		err = appendMovement(ctx, tx, actor, p, models.MovementStockOut, -diff, oldQty, p.Quantity, "")
	}
	if err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// DeleteProduct liquidates any remaining stock and removes the product.
func DeleteProduct(ctx context.Context, tx bun.Tx, actor models.Actor, id int64) (models.Product, error) {
	p, err := loadProduct(ctx, tx, id)
	if err != nil {
		return models.Product{}, err
	}
	if p.Quantity > 0 {
		if err := appendMovement(ctx, tx, actor, p, models.MovementLiquidation, p.Quantity, p.Quantity, 0, ""); err != nil {
			return models.Product{}, err
		}
	}
	if _, err := tx.NewDelete().Model((*models.Product)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return models.Product{}, fmt.Errorf("delete product %d: %w", id, err)
	}
	return p, nil
}

// DeleteProducts deletes each id with the same liquidation rule as
// DeleteProduct. Unknown ids are reported in Missing.
func DeleteProducts(ctx context.Context, tx bun.Tx, actor models.Actor, ids []int64) (BatchResult, error) {
	res := BatchResult{Deleted: []int64{}, Missing: []int64{}}
	if len(ids) == 0 {
		return res, apperr.Validation("no product ids given", nil)
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		p, err := DeleteProduct(ctx, tx, actor, id)
		if errors.Is(err, ErrProductNotFound) {
			res.Missing = append(res.Missing, id)
			continue
		}
		if err != nil {
			return BatchResult{}, err
		}
		res.Deleted = append(res.Deleted, id)
		res.Liquidated += p.Quantity
	}
	return res, nil
}

// ApplyMovement records a manual stock-in, stock-out or absolute adjustment.
func ApplyMovement(ctx context.Context, tx bun.Tx, actor models.Actor, in MovementInput) (models.Movement, error) {
	v := validation.Violations{}
	validation.OneOf("kind", in.Kind, []string{models.MovementStockIn, models.MovementStockOut, models.MovementAdjustment}, v)
	if in.Kind == models.MovementAdjustment {
		validation.NonNegativeInt("quantity", in.Quantity, v)
	} else {
		validation.PositiveInt("quantity", in.Quantity, v)
	}
	if err := v.Err(); err != nil {
		return models.Movement{}, err
	}

	p, err := loadProduct(ctx, tx, in.ProductID)
	if err != nil {
		return models.Movement{}, err
	}

	oldQty := p.Quantity
	var qty int64
	switch in.Kind {
	case models.MovementStockIn:
		p.Quantity += in.Quantity
		qty = in.Quantity
	case models.MovementStockOut:
		if in.Quantity > p.Quantity {
			return models.Movement{}, &apperr.Error{
				Kind:    apperr.KindConflict,
				Message: ErrInsufficientStock.Message,
				Details: map[string]int64{"available": p.Quantity, "requested": in.Quantity},
			}
		}
		p.Quantity -= in.Quantity
		qty = in.Quantity
	case models.MovementAdjustment:
		p.Quantity = in.Quantity
		qty = abs(p.Quantity - oldQty)
		if qty == 0 {
			return models.Movement{}, apperr.Validation("adjustment does not change the quantity", nil)
		}
	}

	p.UpdatedAt = time.Now().UTC()
	if _, err := tx.NewUpdate().Model(&p).Column("quantity", "updated_at").WherePK().Exec(ctx); err != nil {
		if sqlite.IsCheckViolation(err) {
			return models.Movement{}, ErrInsufficientStock
		}
		return models.Movement{}, fmt.Errorf("update product %d quantity: %w", p.ID, err)
	}

	m := newMovement(actor, p, in.Kind, qty, oldQty, p.Quantity, strings.TrimSpace(in.Note))
	if _, err := tx.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return models.Movement{}, fmt.Errorf("insert movement: %w", err)
	}
	return m, nil
}

// Import creates each row whose SKU is not yet known. Existing SKUs are
// skipped and keep their quantity and history.
func Import(ctx context.Context, tx bun.Tx, actor models.Actor, rows []ProductInput) (ImportResult, error) {
	res := ImportResult{Created: []string{}, Skipped: []string{}}
	for i, row := range rows {
		sku := strings.TrimSpace(row.SKU)
		exists, err := tx.NewSelect().Model((*models.Product)(nil)).Where("sku = ?", sku).Exists(ctx)
		if err != nil {
			return ImportResult{}, fmt.Errorf("check sku %q: %w", sku, err)
		}
		if exists {
			res.Skipped = append(res.Skipped, sku)
			continue
		}
		if _, err := CreateProduct(ctx, tx, actor, row); err != nil {
			var appErr *apperr.Error
			if errors.As(err, &appErr) {
				return ImportResult{}, &apperr.Error{
					Kind:    appErr.Kind,
					Message: fmt.Sprintf("row %d: %s", i+1, appErr.Message),
					Details: appErr.Details,
				}
			}
			return ImportResult{}, err
		}
		res.Created = append(res.Created, sku)
	}
	return res, nil
}

func loadProduct(ctx context.Context, tx bun.Tx, id int64) (models.Product, error) {
	var p models.Product
	err := tx.NewSelect().Model(&p).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("load product %d: %w", id, err)
	}
	return p, nil
}

// resolveCategory returns the label stored on the product. A category id wins
// over a free-text label.
func resolveCategory(ctx context.Context, tx bun.Tx, id *int64, label string) (string, error) {
	if id == nil {
		return strings.TrimSpace(label), nil
	}
	var c models.Category
	err := tx.NewSelect().Model(&c).Where("id = ?", *id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.Validation("category does not exist", map[string]string{"category_id": "unknown"})
	}
	if err != nil {
		return "", fmt.Errorf("load category %d: %w", *id, err)
	}
	return c.Name, nil
}

func resolveSupplier(ctx context.Context, tx bun.Tx, id *int64) error {
	if id == nil {
		return nil
	}
	exists, err := tx.NewSelect().Model((*models.Supplier)(nil)).Where("id = ?", *id).Exists(ctx)
	if err != nil {
		return fmt.Errorf("load supplier %d: %w", *id, err)
	}
	if !exists {
		return apperr.Validation("supplier does not exist", map[string]string{"supplier_id": "unknown"})
	}
	return nil
}

func nonZero(id *int64) *int64 {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}

func appendMovement(ctx context.Context, tx bun.Tx, actor models.Actor, p models.Product, kind string, qty, oldQty, newQty int64, note string) error {
	m := newMovement(actor, p, kind, qty, oldQty, newQty, note)
	if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return fmt.Errorf("insert %s movement for product %d: %w", kind, p.ID, err)
	}
	return nil
}

func newMovement(actor models.Actor, p models.Product, kind string, qty, oldQty, newQty int64, note string) models.Movement {
	m := models.Movement{
		ProductID:   p.ID,
		ProductName: p.Name,
		Kind:        kind,
		Quantity:    qty,
		OldStock:    oldQty,
		NewStock:    newQty,
		UnitCost:    p.CostPrice,
		UnitPrice:   p.Price,
		UserName:    actor.Name,
		Note:        note,
		CreatedAt:   time.Now().UTC(),
	}
	if actor.UserID != 0 {
		uid := actor.UserID
		m.UserID = &uid
	}
	return m
}

func normalizeBarcode(b *string) *string {
	if b == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*b)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
