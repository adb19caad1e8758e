package login

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/argon"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/infrastructure/validation"
	"stockmaster/models"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "invalid email or password")
	ErrInactiveUser       = apperr.Forbidden("this account is inactive")
)

func findUserByEmail(ctx context.Context, tx bun.Tx, email string) (models.User, error) {
	var user models.User
	err := tx.NewSelect().
		Model(&user).
		Where("u.email = ? COLLATE NOCASE", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// authenticateUser checks credentials. Unknown emails and wrong passwords
// return the same error.
func authenticateUser(ctx context.Context, db *sqlite.DB, email, password string) (models.User, error) {
	var user models.User
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = findUserByEmail(ctx, tx, email)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}

	if err := argon.Verify(password, user.PasswordHash); err != nil {
		if errors.Is(err, argon.ErrMismatch) || errors.Is(err, argon.ErrInvalidHash) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if !user.Active {
		return models.User{}, ErrInactiveUser
	}

	if argon.NeedsRehash(user.PasswordHash, argon.DefaultParams) {
		if err := setPasswordHash(ctx, db, user.ID, password); err != nil {
			slog.Warn("password rehash failed", slog.Int64("user_id", user.ID), slog.Any("err", err))
		}
	}
	return user, nil
}

func setPasswordHash(ctx context.Context, db *sqlite.DB, userID int64, password string) error {
	hash, err := argon.CreateHash(password, argon.DefaultParams)
	if err != nil {
		return err
	}
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().Model((*models.User)(nil)).
			Set("password_hash = ?", hash).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", userID).
			Exec(ctx)
		return err
	})
}

func persistSession(ctx context.Context, db *sqlite.DB, session models.Session) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&models.Session{
			ID:        session.ID,
			UserID:    session.UserID,
			ExpiresAt: session.ExpiresAt.UTC(),
			CreatedAt: time.Now().UTC(),
		}).Exec(ctx)
		return err
	})
}

func DeleteSessionByToken(ctx context.Context, db *sqlite.DB, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model((*models.Session)(nil)).Where("id = ?", token).Exec(ctx)
		return err
	})
}

// DeleteSessionsForUser removes every stored session of a user inside tx.
func DeleteSessionsForUser(ctx context.Context, tx bun.Tx, userID int64) error {
	_, err := tx.NewDelete().Model((*models.Session)(nil)).Where("user_id = ?", userID).Exec(ctx)
	return err
}

// LoadSessionByToken returns a live session with its user. Expired sessions
// and sessions of inactive users are removed and reported as sql.ErrNoRows.
func LoadSessionByToken(ctx context.Context, db *sqlite.DB, token string) (models.Session, error) {
	var session models.Session
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().
			Model(&session).
			Relation("User").
			Where("s.id = ?", token).
			Limit(1).
			Scan(ctx)
	})
	if err != nil {
		return models.Session{}, err
	}
	if session.Expired() || !session.User.Active {
		_ = DeleteSessionByToken(ctx, db, token)
		return models.Session{}, sql.ErrNoRows
	}
	session.UserRoles = []string{session.User.Role}
	return session, nil
}

// UpsertAdmin creates or refreshes an administrator account, e.g. the
// protected account configured for this deployment.
func UpsertAdmin(ctx context.Context, db *sqlite.DB, name, email, rawPassword string, protected bool) (models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	v := validation.Violations{}
	validation.Required("name", name, v)
	validation.Email("email", email, v)
	if err := ValidatePasswordPolicy(rawPassword); err != nil {
		v["password"] = err.Error()
	}
	if err := v.Err(); err != nil {
		return models.User{}, err
	}
	hash, err := argon.CreateHash(rawPassword, argon.DefaultParams)
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC()
	var user models.User
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if protected {
			// Only one account carries the flag.
			if _, err := tx.NewUpdate().Model((*models.User)(nil)).
				Set("protected = ?", false).
				Where("protected = ?", true).
				Where("email <> ? COLLATE NOCASE", email).
				Exec(ctx); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO users (name, email, password_hash, role, active, protected, created_at, updated_at)
VALUES (?, ?, ?, ?, 1, ?, ?, ?)
ON CONFLICT(email) DO UPDATE SET
  name = excluded.name,
  password_hash = excluded.password_hash,
  role = excluded.role,
  active = 1,
  protected = excluded.protected,
  updated_at = excluded.updated_at`, name, email, hash, models.RoleAdmin, protected, now, now); err != nil {
			return fmt.Errorf("upsert admin %s: %w", email, err)
		}
		var err error
		user, err = findUserByEmail(ctx, tx, email)
		return err
	})
	return user, err
}

// EnsureProtectedAdmin marks the configured email as the protected account
// when it exists, creating it when a password is available.
func EnsureProtectedAdmin(ctx context.Context, db *sqlite.DB, name, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	var found bool
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		u, err := findUserByEmail(ctx, tx, email)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		if u.Protected && u.Role == models.RoleAdmin && u.Active {
			return nil
		}
		if _, err := tx.NewUpdate().Model((*models.User)(nil)).
			Set("protected = ?", false).
			Where("protected = ?", true).
			Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewUpdate().Model((*models.User)(nil)).
			Set("protected = ?", true).
			Set("role = ?", models.RoleAdmin).
			Set("active = ?", true).
			Where("id = ?", u.ID).
			Exec(ctx)
		return err
	})
	if err != nil || found {
		return err
	}
	if password == "" {
		slog.Warn("protected admin account missing and no password configured", slog.String("email", email))
		return nil
	}
	_, err = UpsertAdmin(ctx, db, name, email, password, true)
	return err
}
