package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
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
	ErrCategoryNotFound = apperr.NotFound("category")
	ErrCategoryExists   = apperr.Conflict("category with this name already exists")
)

type Input struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-"), "-")
}

func (in *Input) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 80, v)
	if in.Name != "" && Slugify(in.Name) == "" {
		v["name"] = "must_contain_letters_or_digits"
	}
	return v.Err()
}

func ListCategories(ctx context.Context, db *sqlite.DB) ([]models.Category, error) {
	rows := make([]models.Category, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&rows).OrderExpr("c.name COLLATE NOCASE ASC").Scan(ctx)
	})
	return rows, err
}

func CreateCategory(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, in Input) (models.Category, error) {
	if err := in.validate(); err != nil {
		return models.Category{}, err
	}
	now := time.Now().UTC()
	c := models.Category{Name: in.Name, Slug: Slugify(in.Name), Color: in.Color, CreatedAt: now, UpdatedAt: now}
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&c).Returning("id").Exec(ctx)
		return err
	})
	if sqlite.IsUniqueViolation(err) {
		return models.Category{}, ErrCategoryExists
	}
	if err != nil {
		return models.Category{}, fmt.Errorf("insert category: %w", err)
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionCategoryCreate,
		Description: "Category " + c.Name + " created",
		Actor:       actor,
		Metadata:    map[string]any{"category_id": c.ID},
	})
	return c, nil
}

// UpdateCategory renames the category and relabels its products in the same
// transaction so the denormalized name stays in step.
func UpdateCategory(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, id int64, in Input) (models.Category, error) {
	if err := in.validate(); err != nil {
		return models.Category{}, err
	}
	var c models.Category
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&c).Where("c.id = ?", id).Limit(1).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCategoryNotFound
			}
			return err
		}
		oldName := c.Name
		c.Name = in.Name
		c.Slug = Slugify(in.Name)
		c.Color = in.Color
		c.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&c).WherePK().Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().Model((*models.Product)(nil)).
			Set("category = ?", c.Name).
			Where("category_id = ?", c.ID).
			WhereOr("category = ? COLLATE NOCASE", oldName).
			Exec(ctx)
		return err
	})
	if sqlite.IsUniqueViolation(err) {
		return models.Category{}, ErrCategoryExists
	}
	if err != nil {
		return models.Category{}, err
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionCategoryUpdate,
		Description: "Category " + c.Name + " updated",
		Actor:       actor,
		Metadata:    map[string]any{"category_id": c.ID},
	})
	return c, nil
}

// DeleteCategory refuses while any product references the category by id or
// by name. The count and the delete share one write transaction.
func DeleteCategory(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, id int64) error {
	var c models.Category
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&c).Where("c.id = ?", id).Limit(1).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCategoryNotFound
			}
			return err
		}
		n, err := tx.NewSelect().Model((*models.Product)(nil)).
			Where("category_id = ?", c.ID).
			WhereOr("category = ? COLLATE NOCASE", c.Name).
			Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return &apperr.Error{
				Kind:    apperr.KindConflict,
				Message: fmt.Sprintf("category is used by %d product(s)", n),
				Details: map[string]int{"products": n},
			}
		}
		_, err = tx.NewDelete().Model((*models.Category)(nil)).Where("id = ?", c.ID).Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionCategoryDelete,
		Description: "Category " + c.Name + " deleted",
		Actor:       actor,
		Level:       models.LevelWarning,
		Metadata:    map[string]any{"category_id": c.ID},
	})
	return nil
}
