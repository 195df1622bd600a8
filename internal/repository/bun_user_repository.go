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

// BunUserRepository implements UserRepository using Bun ORM
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository creates a new Bun-based user repository
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

func orderApps(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("ua.app_slug ASC")
}

// Create inserts a new user. Returns ErrDuplicate when the email is taken.
func (r *BunUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NewInsert().
		Model(user).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	if user.AllowedApps == nil {
		user.AllowedApps = []string{}
	}
	return nil
}

// GetByID retrieves a user by their ID
func (r *BunUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Relation("Apps", orderApps).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by ID: %w", err)
	}
	user.SyncAllowedApps()
	return user, nil
}

// GetByEmail retrieves a user by their normalized email address
func (r *BunUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Relation("Apps", orderApps).
		Where("u.email = ?", email).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	user.SyncAllowedApps()
	return user, nil
}

// List retrieves all users, newest first
func (r *BunUserRepository) List(ctx context.Context) ([]*models.User, error) {
	return r.list(ctx, nil)
}

// ListPending retrieves users awaiting approval, newest first
func (r *BunUserRepository) ListPending(ctx context.Context) ([]*models.User, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("u.approved = ?", false).Where("u.is_admin = ?", false)
	})
}

func (r *BunUserRepository) list(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]*models.User, error) {
	var users []*models.User
	q := r.db.NewSelect().
		Model(&users).
		Relation("Apps", orderApps).
		Order("u.created_at DESC", "u.id DESC")
	if filter != nil {
		q = filter(q)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		u.SyncAllowedApps()
	}
	return users, nil
}

// UpdateProfile replaces the profile fields of a user
func (r *BunUserRepository) UpdateProfile(ctx context.Context, id int64, fullName, jobTitle, phone string) error {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("full_name = ?", fullName).
		Set("job_title = ?", jobTitle).
		Set("phone = ?", phone).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return requireRow(res)
}

// SetPasswordHash stores a new password hash
func (r *BunUserRepository) SetPasswordHash(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return requireRow(res)
}

// SetApproved sets the approval flag
func (r *BunUserRepository) SetApproved(ctx context.Context, id int64, approved bool) error {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("approved = ?", approved).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set approved: %w", err)
	}
	return requireRow(res)
}

// SetAdmin sets the admin flag
func (r *BunUserRepository) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("is_admin = ?", isAdmin).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return requireRow(res)
}

// Promote marks the user as an approved administrator
func (r *BunUserRepository) Promote(ctx context.Context, id int64) error {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("is_admin = ?", true).
		Set("approved = ?", true).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("promote user: %w", err)
	}
	return requireRow(res)
}

// GetApps returns the user's entitled slugs in ascending order
func (r *BunUserRepository) GetApps(ctx context.Context, id int64) ([]string, error) {
	slugs := []string{}
	err := r.db.NewSelect().
		Model((*models.UserApp)(nil)).
		Column("app_slug").
		Where("user_id = ?", id).
		Order("app_slug ASC").
		Scan(ctx, &slugs)
	if err != nil {
		return nil, fmt.Errorf("get user apps: %w", err)
	}
	return slugs, nil
}

// ReplaceApps swaps the user's entitlements for slugs in one transaction
func (r *BunUserRepository) ReplaceApps(ctx context.Context, id int64, slugs []string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("id = ?", id).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return replaceApps(ctx, tx, id, slugs)
	})
}

// Approve rotates the password, marks the user approved and replaces
// entitlements. Nothing is written if any step fails.
func (r *BunUserRepository) Approve(ctx context.Context, id int64, passwordHash string, slugs []string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("password_hash = ?", passwordHash).
			Set("approved = ?", true).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("approve user: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}
		return replaceApps(ctx, tx, id, slugs)
	})
}

// Delete removes the user and every dependent row
func (r *BunUserRepository) Delete(ctx context.Context, id int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dependents := []any{
			(*models.UserApp)(nil),
			(*models.PasswordResetToken)(nil),
			(*models.Session)(nil),
		}
		for _, model := range dependents {
			if _, err := tx.NewDelete().Model(model).Where("user_id = ?", id).Exec(ctx); err != nil {
				return fmt.Errorf("delete user dependents: %w", err)
			}
		}

		res, err := tx.NewDelete().
			Model((*models.User)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return requireRow(res)
	})
}

// replaceApps runs the delete-then-insert entitlement swap on db, which is
// expected to be a transaction.
func replaceApps(ctx context.Context, db bun.IDB, userID int64, slugs []string) error {
	if _, err := db.NewDelete().
		Model((*models.UserApp)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return fmt.Errorf("clear user apps: %w", err)
	}
	if len(slugs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]models.UserApp, 0, len(slugs))
	for _, slug := range slugs {
		rows = append(rows, models.UserApp{UserID: userID, AppSlug: slug, CreatedAt: now})
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert user apps: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
