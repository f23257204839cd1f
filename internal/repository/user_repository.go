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

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Upsert creates the user or refreshes its display fields; empty fields keep stored values.
	Upsert(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	// ListIDs pages through user ids greater than afterID in ascending order.
	ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db  database.DBTX
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db database.DBTX, log *slog.Logger) UserRepository {
	if log == nil {
		log = slog.Default()
	}

	return &userRepository{
		db:  db,
		log: log,
	}
}

const userColumns = `user_id, COALESCE(username, ''), full_name, COALESCE(language_code, ''), created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FullName,
		&user.LanguageCode,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert registers the user idempotently.
func (r *userRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	const query = `
		INSERT INTO users (user_id, username, full_name, language_code)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''))
		ON CONFLICT (user_id) DO UPDATE SET
			username      = COALESCE(EXCLUDED.username, users.username),
			full_name     = COALESCE(NULLIF(EXCLUDED.full_name, ''), users.full_name),
			language_code = COALESCE(EXCLUDED.language_code, users.language_code),
			updated_at    = NOW()
		RETURNING ` + userColumns

	row := database.Executor(ctx, r.db).QueryRowContext(ctx, query, user.ID, user.Username, user.FullName, user.LanguageCode)

	stored, err := scanUser(row)
	if err != nil {
		r.log.Error("failed to upsert user", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	return stored, nil
}

// FindByID retrieves a user by their Telegram identifier.
func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(database.Executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		r.log.Error("failed to fetch user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// ListIDs returns up to limit user ids after afterID.
func (r *userRepository) ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	const query = `SELECT user_id FROM users WHERE user_id > $1 ORDER BY user_id LIMIT $2`

	rows, err := database.Executor(ctx, r.db).QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Count returns the number of registered users.
func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := database.Executor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
