package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/uptrace/bun"
)

// BunPasswordResetTokenRepository implements PasswordResetTokenRepository using Bun ORM
type BunPasswordResetTokenRepository struct {
	db *bun.DB
}

// NewBunPasswordResetTokenRepository creates a new Bun-based reset token repository
func NewBunPasswordResetTokenRepository(db *bun.DB) *BunPasswordResetTokenRepository {
	return &BunPasswordResetTokenRepository{db: db}
}

// Issue invalidates outstanding tokens for the user and stores the new one.
// Used tokens are kept.
func (r *BunPasswordResetTokenRepository) Issue(ctx context.Context, token *models.PasswordResetToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.PasswordResetToken)(nil)).
			Where("user_id = ?", token.UserID).
			Where("used = ?", false).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete outstanding reset tokens: %w", err)
		}

		if _, err := tx.NewInsert().Model(token).Exec(ctx); err != nil {
			return fmt.Errorf("insert reset token: %w", err)
		}
		return nil
	})
}

// GetByToken looks a token up by its hash
func (r *BunPasswordResetTokenRepository) GetByToken(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	token := new(models.PasswordResetToken)
	err := r.db.NewSelect().
		Model(token).
		Where("token = ?", tokenHash).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reset token: %w", err)
	}
	return token, nil
}

// Redeem consumes the token and stores the new password hash together.
// The used flag is flipped with a guarded update so two concurrent
// redemptions cannot both succeed.
func (r *BunPasswordResetTokenRepository) Redeem(ctx context.Context, tokenID, userID int64, passwordHash string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.PasswordResetToken)(nil)).
			Set("used = ?", true).
			Where("id = ?", tokenID).
			Where("used = ?", false).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("mark reset token used: %w", err)
		}
		if err := requireRow(res); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrAlreadyUsed
			}
			return err
		}

		res, err = tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("password_hash = ?", passwordHash).
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("set password hash: %w", err)
		}
		return requireRow(res)
	})
}
