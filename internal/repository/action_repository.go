package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Proton-105/cuteforcute-bot/internal/database"
	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	apperrors "github.com/Proton-105/cuteforcute-bot/internal/errors"
)

// ActionRepository is the persistent action catalogue.
type ActionRepository interface {
	// Create fails with errors.ErrDuplicateName when the exact name already exists.
	Create(ctx context.Context, draft domain.ActionDraft) (*domain.Action, error)
	GetByID(ctx context.Context, id int64) (*domain.Action, error)
	GetByName(ctx context.Context, name string) (*domain.Action, error)
	// Search matches query as a case-insensitive substring of active action names.
	Search(ctx context.Context, query string) ([]domain.Action, error)
	GetAllActive(ctx context.Context) ([]domain.Action, error)
	// IncrementUsage is a no-op for unknown names.
	IncrementUsage(ctx context.Context, name string) error
	Update(ctx context.Context, id int64, field domain.ActionField, value string) (bool, error)
	// Delete deactivates the action and reports whether the id exists.
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, offset, limit int) ([]domain.Action, error)
	Count(ctx context.Context) (int, error)
}

type actionRepository struct {
	db  database.DBTX
	log *slog.Logger
}

// NewActionRepository creates a SQL-backed catalogue store.
func NewActionRepository(db database.DBTX, log *slog.Logger) ActionRepository {
	if log == nil {
		log = slog.Default()
	}
	return &actionRepository{db: db, log: log}
}

const actionColumns = `id, name, emoji, infinitive, past_tense, genitive_noun, COALESCE(description, ''),
	usage_count, display_order, is_active, created_at, updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func scanAction(row rowScanner) (*domain.Action, error) {
	var a domain.Action
	if err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Emoji,
		&a.Infinitive,
		&a.PastTense,
		&a.GenitiveNoun,
		&a.Description,
		&a.UsageCount,
		&a.DisplayOrder,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *actionRepository) queryActions(ctx context.Context, op, query string, args ...any) ([]domain.Action, error) {
	rows, err := database.Executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to query actions", slog.String("operation", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	actions := make([]domain.Action, 0)
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		actions = append(actions, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return actions, nil
}

func (r *actionRepository) queryAction(ctx context.Context, op, query string, args ...any) (*domain.Action, error) {
	a, err := scanAction(database.Executor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Error("failed to fetch action", slog.String("operation", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func (r *actionRepository) Create(ctx context.Context, draft domain.ActionDraft) (*domain.Action, error) {
	const query = `
		INSERT INTO actions (name, emoji, infinitive, past_tense, genitive_noun, description, display_order)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), (SELECT COALESCE(MAX(display_order), 0) + 1 FROM actions))
		RETURNING ` + actionColumns

	a, err := scanAction(database.Executor(ctx, r.db).QueryRowContext(ctx, query,
		draft.Name, draft.Emoji, draft.Infinitive, draft.PastTense, draft.GenitiveNoun, draft.Description,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewDuplicateNameError(draft.Name, err)
		}
		r.log.Error("failed to create action", slog.String("name", draft.Name), slog.Any("error", err))
		return nil, fmt.Errorf("insert action: %w", err)
	}

	return a, nil
}

func (r *actionRepository) GetByID(ctx context.Context, id int64) (*domain.Action, error) {
	return r.queryAction(ctx, "select action by id", `SELECT `+actionColumns+` FROM actions WHERE id = $1`, id)
}

func (r *actionRepository) GetByName(ctx context.Context, name string) (*domain.Action, error) {
	return r.queryAction(ctx, "select action by name", `SELECT `+actionColumns+` FROM actions WHERE name = $1`, name)
}

func (r *actionRepository) Search(ctx context.Context, query string) ([]domain.Action, error) {
	const q = `
		SELECT ` + actionColumns + `
		FROM actions
		WHERE is_active AND name ILIKE '%' || $1 || '%'
		ORDER BY display_order, name
	`
	return r.queryActions(ctx, "search actions", q, likeEscaper.Replace(query))
}

func (r *actionRepository) GetAllActive(ctx context.Context) ([]domain.Action, error) {
	return r.queryActions(ctx, "select active actions",
		`SELECT `+actionColumns+` FROM actions WHERE is_active ORDER BY display_order, name`)
}

func (r *actionRepository) IncrementUsage(ctx context.Context, name string) error {
	const query = `UPDATE actions SET usage_count = usage_count + 1 WHERE name = $1`

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, name); err != nil {
		r.log.Error("failed to increment usage", slog.String("name", name), slog.Any("error", err))
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

func (r *actionRepository) Update(ctx context.Context, id int64, field domain.ActionField, value string) (bool, error) {
	if !field.Valid() {
		return false, apperrors.NewValidationError(fmt.Sprintf("field %q cannot be edited", field))
	}

	expr := "$1"
	if field == domain.FieldDescription {
		expr = "NULLIF($1, '')"
	}
	// field is whitelisted above, so it is safe to interpolate as a column name.
	query := fmt.Sprintf(`UPDATE actions SET %s = %s, updated_at = NOW() WHERE id = $2`, string(field), expr)

	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, value, id)
	if err != nil {
		if field == domain.FieldName && isUniqueViolation(err) {
			return false, apperrors.NewDuplicateNameError(value, err)
		}
		r.log.Error("failed to update action", slog.Int64("id", id), slog.String("field", string(field)), slog.Any("error", err))
		return false, fmt.Errorf("update action: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update action rows: %w", err)
	}
	return n > 0, nil
}

func (r *actionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const query = `UPDATE actions SET is_active = FALSE, updated_at = NOW() WHERE id = $1`

	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		r.log.Error("failed to deactivate action", slog.Int64("id", id), slog.Any("error", err))
		return false, fmt.Errorf("deactivate action: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivate action rows: %w", err)
	}
	return n > 0, nil
}

func (r *actionRepository) List(ctx context.Context, offset, limit int) ([]domain.Action, error) {
	return r.queryActions(ctx, "list actions",
		`SELECT `+actionColumns+` FROM actions ORDER BY is_active DESC, display_order, name OFFSET $1 LIMIT $2`,
		offset, limit)
}

func (r *actionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := database.Executor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return n, nil
}
