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

// BunSessionRepository implements SessionRepository using Bun ORM
type BunSessionRepository struct {
	db *bun.DB
}

// NewBunSessionRepository creates a new Bun-based session repository
func NewBunSessionRepository(db *bun.DB) *BunSessionRepository {
	return &BunSessionRepository{db: db}
}

// Create inserts a new session
func (r *BunSessionRepository) Create(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastUsedAt.IsZero() {
		session.LastUsedAt = now
	}
	_, err := r.db.NewInsert().
		Model(session).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash
// This is the primary lookup method for authentication
func (r *BunSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	session := new(models.Session)
	err := r.db.NewSelect().
		Model(session).
		Where("token_hash = ?", tokenHash).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return session, nil
}

// Touch updates last_used_at and slides expires_at forward
func (r *BunSessionRepository) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*models.Session)(nil)).
		Set("last_used_at = ?", time.Now().UTC()).
		Set("expires_at = ?", expiresAt.UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Revoke marks a session as revoked
func (r *BunSessionRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.NewUpdate().
		Model((*models.Session)(nil)).
		Set("revoked = ?", true).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeByUserID revokes all active sessions for a user
// Used after password changes and resets, and for manual sign-out of a user
func (r *BunSessionRepository) RevokeByUserID(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*models.Session)(nil)).
		Set("revoked = ?", true).
		Where("user_id = ?", userID).
		Where("revoked = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteExpired deletes expired and revoked sessions
// Should be run periodically by a cleanup job
func (r *BunSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*models.Session)(nil)).
		WhereOr("expires_at < ?", time.Now().UTC()).
		WhereOr("revoked = ?", true).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ListByUserID retrieves all sessions for a user
func (r *BunSessionRepository) ListByUserID(ctx context.Context, userID int64) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.NewSelect().
		Model(&sessions).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get user sessions: %w", err)
	}
	return sessions, nil
}
