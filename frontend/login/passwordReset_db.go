package login

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/argon"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/models"
)

// DefaultResetTokenTTL bounds how long a reset link stays usable.
const DefaultResetTokenTTL = time.Hour

var ErrInvalidResetToken = apperr.Validation("reset link is invalid or has expired", nil)

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IssueResetToken stores a fresh token hash for an active user. ok is false
// when the email is unknown or the account is inactive; callers must not
// reveal which.
func IssueResetToken(ctx context.Context, db *sqlite.DB, email string, now time.Time, ttl time.Duration) (user models.User, token string, ok bool, err error) {
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		u, err := findUserByEmail(ctx, tx, email)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if !u.Active {
			return nil
		}

		token = uuid.NewString()
		hash := hashResetToken(token)
		if ttl <= 0 {
			ttl = DefaultResetTokenTTL
		}
		expires := now.UTC().Add(ttl)
		if _, err := tx.NewUpdate().Model((*models.User)(nil)).
			Set("reset_token_hash = ?", hash).
			Set("reset_expires_at = ?", expires).
			Set("updated_at = ?", now.UTC()).
			Where("id = ?", u.ID).
			Exec(ctx); err != nil {
			return err
		}
		user, ok = u, true
		return nil
	})
	if err != nil {
		return models.User{}, "", false, err
	}
	return user, token, ok, nil
}

// ResetPassword consumes a token: it sets the new hash, clears the token and
// drops every session of the user.
func ResetPassword(ctx context.Context, db *sqlite.DB, token, password string, now time.Time) (models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.User{}, ErrInvalidResetToken
	}
	if err := ValidatePasswordPolicy(password); err != nil {
		return models.User{}, apperr.Validation("password does not meet policy", map[string]string{"password": err.Error()})
	}
	hash, err := argon.CreateHash(password, argon.DefaultParams)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(&user).
			Where("u.reset_token_hash = ?", hashResetToken(token)).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidResetToken
		}
		if err != nil {
			return err
		}
		if user.ResetExpiresAt == nil || !now.Before(*user.ResetExpiresAt) || !user.Active {
			return ErrInvalidResetToken
		}

		if _, err := tx.NewUpdate().Model((*models.User)(nil)).
			Set("password_hash = ?", hash).
			Set("reset_token_hash = NULL").
			Set("reset_expires_at = NULL").
			Set("updated_at = ?", now.UTC()).
			Where("id = ?", user.ID).
			Exec(ctx); err != nil {
			return err
		}
		return DeleteSessionsForUser(ctx, tx, user.ID)
	})
	if err != nil {
		return models.User{}, err
	}
	user.ResetTokenHash = nil
	user.ResetExpiresAt = nil
	return user, nil
}
