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

// InteractionRepository stores interaction records.
type InteractionRepository interface {
	// Create inserts in and fills its ID and timestamps.
	Create(ctx context.Context, in *domain.Interaction) error
	GetByID(ctx context.Context, id int64) (*domain.Interaction, error)
	// CompletePending moves a pending interaction to status; it reports false when the row is
	// missing or already terminal.
	CompletePending(ctx context.Context, id int64, status domain.InteractionStatus) (bool, error)
	// TopActions counts interactions per action, optionally limited to one sender.
	TopActions(ctx context.Context, senderID *int64, limit int) ([]domain.ActionCount, error)
	Count(ctx context.Context) (int64, error)
}

type interactionRepository struct {
	db  database.DBTX
	log *slog.Logger
}

// NewInteractionRepository creates a SQL-backed interaction store.
func NewInteractionRepository(db database.DBTX, log *slog.Logger) InteractionRepository {
	if log == nil {
		log = slog.Default()
	}
	return &interactionRepository{db: db, log: log}
}

func (r *interactionRepository) Create(ctx context.Context, in *domain.Interaction) error {
	const query = `
		INSERT INTO interactions (sender_id, receiver_id, action, status, message_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id, created_at, updated_at
	`

	status := in.Status
	if status == "" {
		status = domain.StatusPending
	}

	err := database.Executor(ctx, r.db).QueryRowContext(ctx, query,
		in.SenderID, in.ReceiverID, in.Action, string(status), in.MessageID,
	).Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		r.log.Error("failed to create interaction",
			slog.Int64("sender_id", in.SenderID),
			slog.Int64("receiver_id", in.ReceiverID),
			slog.String("action", in.Action),
			slog.Any("error", err),
		)
		return fmt.Errorf("insert interaction: %w", err)
	}

	in.Status = status
	return nil
}

func (r *interactionRepository) GetByID(ctx context.Context, id int64) (*domain.Interaction, error) {
	const query = `
		SELECT id, sender_id, receiver_id, action, status, COALESCE(message_id, ''), created_at, updated_at
		FROM interactions
		WHERE id = $1
	`

	var (
		in     domain.Interaction
		status string
	)
	err := database.Executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&in.ID, &in.SenderID, &in.ReceiverID, &in.Action, &status, &in.MessageID, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select interaction: %w", err)
	}

	in.Status = domain.InteractionStatus(status)
	return &in, nil
}

func (r *interactionRepository) CompletePending(ctx context.Context, id int64, status domain.InteractionStatus) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("complete interaction: %q is not a terminal status", status)
	}

	const query = `
		UPDATE interactions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`

	res, err := database.Executor(ctx, r.db).ExecContext(ctx, query, string(status), id)
	if err != nil {
		r.log.Error("failed to complete interaction", slog.Int64("id", id), slog.Any("error", err))
		return false, fmt.Errorf("update interaction status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update interaction status rows: %w", err)
	}
	return n > 0, nil
}

func (r *interactionRepository) TopActions(ctx context.Context, senderID *int64, limit int) ([]domain.ActionCount, error) {
	const query = `
		SELECT action, COUNT(*) AS total
		FROM interactions
		WHERE $1::BIGINT IS NULL OR sender_id = $1
		GROUP BY action
		ORDER BY total DESC, action ASC
		LIMIT $2
	`

	var sender sql.NullInt64
	if senderID != nil {
		sender = sql.NullInt64{Int64: *senderID, Valid: true}
	}

	rows, err := database.Executor(ctx, r.db).QueryContext(ctx, query, sender, limit)
	if err != nil {
		r.log.Error("failed to aggregate top actions", slog.Any("error", err))
		return nil, fmt.Errorf("top actions: %w", err)
	}
	defer rows.Close()

	result := make([]domain.ActionCount, 0, limit)
	for rows.Next() {
		var ac domain.ActionCount
		if err := rows.Scan(&ac.Action, &ac.Count); err != nil {
			return nil, fmt.Errorf("scan top action: %w", err)
		}
		result = append(result, ac)
	}

	return result, rows.Err()
}

func (r *interactionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := database.Executor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count interactions: %w", err)
	}
	return n, nil
}
