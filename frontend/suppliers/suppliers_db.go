package suppliers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/infrastructure/validation"
	"stockmaster/models"
)

var (
	ErrSupplierNotFound = apperr.NotFound("supplier")
	ErrTaxIDExists      = apperr.Conflict("supplier with this tax id already exists")
)

type Input struct {
	Name        string  `json:"name"`
	TaxID       *string `json:"tax_id"`
	ContactName string  `json:"contact_name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Address     string  `json:"address"`
}

func (in *Input) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.TaxID != nil {
		tax := strings.TrimSpace(*in.TaxID)
		if tax == "" {
			in.TaxID = nil
		} else {
			in.TaxID = &tax
		}
	}
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.OptionalEmail("email", in.Email, v)
	return v.Err()
}

func (in Input) apply(s *models.Supplier) {
	s.Name = in.Name
	s.TaxID = in.TaxID
	s.ContactName = strings.TrimSpace(in.ContactName)
	s.Email = in.Email
	s.Phone = strings.TrimSpace(in.Phone)
	s.Address = strings.TrimSpace(in.Address)
}

func ListSuppliers(ctx context.Context, db *sqlite.DB) ([]models.Supplier, error) {
	rows := make([]models.Supplier, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&rows).OrderExpr("sp.name COLLATE NOCASE ASC").Scan(ctx)
	})
	return rows, err
}

func CreateSupplier(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, in Input) (models.Supplier, error) {
	if err := in.validate(); err != nil {
		return models.Supplier{}, err
	}
	now := time.Now().UTC()
	s := models.Supplier{CreatedAt: now, UpdatedAt: now}
	in.apply(&s)
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&s).Returning("id").Exec(ctx)
		return err
	})
	if sqlite.IsUniqueViolation(err) {
		return models.Supplier{}, ErrTaxIDExists
	}
	if err != nil {
		return models.Supplier{}, fmt.Errorf("insert supplier: %w", err)
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionSupplierCreate,
		Description: "Supplier " + s.Name + " created",
		Actor:       actor,
		Metadata:    map[string]any{"supplier_id": s.ID},
	})
	return s, nil
}

func UpdateSupplier(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, id int64, in Input) (models.Supplier, error) {
	if err := in.validate(); err != nil {
		return models.Supplier{}, err
	}
	var s models.Supplier
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&s).Where("sp.id = ?", id).Limit(1).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSupplierNotFound
			}
			return err
		}
		in.apply(&s)
		s.UpdatedAt = time.Now().UTC()
		_, err := tx.NewUpdate().Model(&s).WherePK().Exec(ctx)
		return err
	})
	if sqlite.IsUniqueViolation(err) {
		return models.Supplier{}, ErrTaxIDExists
	}
	if err != nil {
		return models.Supplier{}, err
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionSupplierUpdate,
		Description: "Supplier " + s.Name + " updated",
		Actor:       actor,
		Metadata:    map[string]any{"supplier_id": s.ID},
	})
	return s, nil
}

// DeleteSupplier refuses while any product references the supplier.
func DeleteSupplier(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, id int64) error {
	var s models.Supplier
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&s).Where("sp.id = ?", id).Limit(1).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSupplierNotFound
			}
			return err
		}
		n, err := tx.NewSelect().Model((*models.Product)(nil)).Where("supplier_id = ?", s.ID).Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return &apperr.Error{
				Kind:    apperr.KindConflict,
				Message: fmt.Sprintf("supplier is used by %d product(s)", n),
				Details: map[string]int{"products": n},
			}
		}
		_, err = tx.NewDelete().Model((*models.Supplier)(nil)).Where("id = ?", s.ID).Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionSupplierDelete,
		Description: "Supplier " + s.Name + " deleted",
		Actor:       actor,
		Level:       models.LevelWarning,
		Metadata:    map[string]any{"supplier_id": s.ID},
	})
	return nil
}
