package adminusers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"stockmaster/frontend/login"
	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/argon"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/rbac"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/infrastructure/validation"
	"stockmaster/models"
)

var (
	ErrUserNotFound = apperr.NotFound("user")
	ErrEmailExists  = apperr.Conflict("a user with this email already exists")
)

func ListUsers(ctx context.Context, db *sqlite.DB) ([]models.User, error) {
	users := make([]models.User, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&users).Order("u.id ASC").Scan(ctx)
	})
	return users, err
}

func CreateUser(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, in CreateInput) (models.User, error) {
	if actor.Role != models.RoleAdmin {
		return models.User{}, ErrAdminRequired
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.TrimSpace(in.Role)
	if in.Role == "" {
		in.Role = models.RoleOperator
	}

	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.Email("email", in.Email, v)
	validation.OneOf("role", in.Role, rbac.Roles, v)
	if err := login.ValidatePasswordPolicy(in.Password); err != nil {
		v["password"] = err.Error()
	}
	if err := v.Err(); err != nil {
		return models.User{}, err
	}

	hash, err := argon.CreateHash(in.Password, argon.DefaultParams)
	if err != nil {
		return models.User{}, err
	}
	now := time.Now().UTC()
	u := models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&u).Returning("id").Exec(ctx)
		return err
	})
	if sqlite.IsUniqueViolation(err) {
		return models.User{}, ErrEmailExists
	}
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionUserCreate,
		Description: fmt.Sprintf("User %s (%s) created with role %s", u.Name, u.Email, u.Role),
		Actor:       actor,
		Metadata:    map[string]any{"user_id": u.ID, "role": u.Role},
	})
	return u, nil
}

// UpdateUser applies in after the protected-account checks. The returned flag
// is true when the user's sessions were revoked.
func UpdateUser(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, id int64, in UpdateInput) (models.User, bool, error) {
	v := validation.Violations{}
	if in.Name != nil {
		validation.Required("name", *in.Name, v)
	}
	if in.Email != nil {
		validation.Email("email", strings.TrimSpace(*in.Email), v)
	}
	if in.Role != nil {
		validation.OneOf("role", *in.Role, rbac.Roles, v)
	}
	if in.Password != nil {
		if err := login.ValidatePasswordPolicy(*in.Password); err != nil {
			v["password"] = err.Error()
		}
	}
	if err := v.Err(); err != nil {
		return models.User{}, false, err
	}

	var hash string
	if in.Password != nil {
		var err error
		if hash, err = argon.CreateHash(*in.Password, argon.DefaultParams); err != nil {
			return models.User{}, false, err
		}
	}

	var u models.User
	revoked := false
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if u, err = loadUser(ctx, tx, id); err != nil {
			return err
		}
		if err := CheckUpdate(actor, u, in); err != nil {
			return err
		}

		if in.Name != nil {
			u.Name = strings.TrimSpace(*in.Name)
		}
		if in.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
		}
		if in.Role != nil && *in.Role != u.Role {
			u.Role = *in.Role
			revoked = true
		}
		if in.Active != nil && *in.Active != u.Active {
			u.Active = *in.Active
			revoked = revoked || !u.Active
		}
		if in.Password != nil {
			u.PasswordHash = hash
			revoked = revoked || actor.UserID != u.ID
		}
		u.UpdatedAt = time.Now().UTC()

		if _, err := tx.NewUpdate().Model(&u).WherePK().Exec(ctx); err != nil {
			return err
		}
		if revoked {
			return login.DeleteSessionsForUser(ctx, tx, u.ID)
		}
		return nil
	})
	if sqlite.IsUniqueViolation(err) {
		return models.User{}, false, ErrEmailExists
	}
	if err != nil {
		return models.User{}, false, err
	}

	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionUserUpdate,
		Description: fmt.Sprintf("User %s (%s) updated", u.Name, u.Email),
		Actor:       actor,
		Metadata:    map[string]any{"user_id": u.ID, "role": u.Role, "active": u.Active, "sessions_revoked": revoked},
	})
	return u, revoked, nil
}

func DeleteUser(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, id int64) error {
	var u models.User
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if u, err = loadUser(ctx, tx, id); err != nil {
			return err
		}
		if err := CheckDelete(actor, u); err != nil {
			return err
		}
		_, err = tx.NewDelete().Model((*models.User)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionUserDelete,
		Description: fmt.Sprintf("User %s (%s) deleted", u.Name, u.Email),
		Actor:       actor,
		Level:       models.LevelWarning,
		Metadata:    map[string]any{"user_id": u.ID},
	})
	return nil
}

// DeleteUsers deletes every id or none: a missing, protected or own account
// rejects the whole batch.
func DeleteUsers(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actor models.Actor, ids []int64) ([]int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, apperr.Validation("no user ids given", nil)
	}
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		targets := make([]models.User, 0, len(ids))
		if err := tx.NewSelect().Model(&targets).Where("u.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
			return err
		}
		if len(targets) != len(ids) {
			return &apperr.Error{Kind: apperr.KindNotFound, Message: "one or more users not found", Details: map[string][]int64{"missing_ids": missingIDs(ids, targets)}}
		}
		if err := CheckBatchDelete(actor, targets); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*models.User)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	auditSvc.Emit(audit.Entry{
		Action:      audit.ActionUserBatch,
		Description: fmt.Sprintf("%d users deleted in batch", len(ids)),
		Actor:       actor,
		Level:       models.LevelWarning,
		Metadata:    map[string]any{"user_ids": ids},
	})
	return ids, nil
}

func loadUser(ctx context.Context, tx bun.Tx, id int64) (models.User, error) {
	var u models.User
	err := tx.NewSelect().Model(&u).Where("u.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return u, err
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func missingIDs(ids []int64, found []models.User) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, u := range found {
		have[u.ID] = struct{}{}
	}
	missing := make([]int64, 0)
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
