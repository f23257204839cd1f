package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/cuteforcute-bot/internal/database"
	"github.com/Proton-105/cuteforcute-bot/internal/domain"
)

// AdminRepository manages the admin allow-list.
type AdminRepository interface {
	IsActive(ctx context.Context, userID int64) (bool, error)
	Add(ctx context.Context, admin *domain.Admin) error
	Deactivate(ctx context.Context, userID int64) (bool, error)
	ListActive(ctx context.Context) ([]domain.Admin, error)
}

type adminRepository struct {
	db  database.DBTX
	log *slog.Logger
}

// NewAdminRepository creates a SQL-backed admin repository.
func NewAdminRepository(db database.DBTX, log *slog.Logger) AdminRepository {
	if log == nil {
		log = slog.Default()
	}
	return &adminRepository{db: db, log: log}
}

func (r *adminRepository) IsActive(ctx context.Context, userID int64) (bool, error) {
	const query = `SELECT is_active FROM admins WHERE user_id = $1`

	var active bool
	if err := database.Executor(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(&active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		r.log.Error("failed to check admin", slog.Int64("user_id", userID), slog.Any("error", err))
		return false, fmt.Errorf("select admin: %w", err)
	}

	return active, nil
}

// Add inserts the admin or reactivates an existing row.
func (r *adminRepository) Add(ctx context.Context, admin *domain.Admin) error {
	const query = `
		INSERT INTO admins (user_id, username, full_name, is_active, added_by)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), TRUE, NULLIF($4::BIGINT, 0))
		ON CONFLICT (user_id) DO UPDATE SET
			is_active = TRUE,
			added_by  = EXCLUDED.added_by
	`

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, admin.UserID, admin.Username, admin.FullName, admin.AddedBy); err != nil {
		r.log.Error("failed to add admin", slog.Int64("user_id", admin.UserID), slog.Any("error", err))
		return fmt.Errorf("insert admin: %w", err)
	}

	return nil
}

func (r *adminRepository) Deactivate(ctx context.Context, userID int64) (bool, error) {
	res, err := database.Executor(ctx, r.db).ExecContext(ctx, `UPDATE admins SET is_active = FALSE WHERE user_id = $1 AND is_active`, userID)
	if err != nil {
		return false, fmt.Errorf("deactivate admin: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivate admin rows: %w", err)
	}
	return n > 0, nil
}

func (r *adminRepository) ListActive(ctx context.Context) ([]domain.Admin, error) {
	const query = `
		SELECT user_id, COALESCE(username, ''), COALESCE(full_name, ''), is_active, COALESCE(added_by, 0), created_at
		FROM admins
		WHERE is_active
		ORDER BY created_at
	`

	rows, err := database.Executor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []domain.Admin
	for rows.Next() {
		var a domain.Admin
		if err := rows.Scan(&a.UserID, &a.Username, &a.FullName, &a.IsActive, &a.AddedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, a)
	}

	return admins, rows.Err()
}
