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

// Counter names one of the four action_stats counters.
type Counter string

const (
	CounterSent     Counter = "sent_count"
	CounterReceived Counter = "received_count"
	CounterAccepted Counter = "accepted_count"
	CounterDeclined Counter = "declined_count"
)

func (c Counter) valid() bool {
	switch c {
	case CounterSent, CounterReceived, CounterAccepted, CounterDeclined:
		return true
	}
	return false
}

// StatsRepository stores per-user action counters.
type StatsRepository interface {
	// Increment atomically adds one to counter, creating the row on first use.
	Increment(ctx context.Context, userID int64, actionName string, counter Counter) error
	Get(ctx context.Context, userID int64, actionName string) (*domain.ActionStat, error)
	UserTotals(ctx context.Context, userID int64) (*domain.UserStats, error)
	TopSent(ctx context.Context, userID int64, limit int) ([]domain.ActionCount, error)
	Global(ctx context.Context) (*domain.GlobalStats, error)
	TopUsers(ctx context.Context, limit int) ([]domain.UserTotal, error)
}

type statsRepository struct {
	db  database.DBTX
	log *slog.Logger
}

// NewStatsRepository creates a SQL-backed statistics store.
func NewStatsRepository(db database.DBTX, log *slog.Logger) StatsRepository {
	if log == nil {
		log = slog.Default()
	}
	return &statsRepository{db: db, log: log}
}

func (r *statsRepository) Increment(ctx context.Context, userID int64, actionName string, counter Counter) error {
	if !counter.valid() {
		return fmt.Errorf("increment stats: unknown counter %q", counter)
	}

	// counter is whitelisted above.
	query := fmt.Sprintf(`
		INSERT INTO action_stats (user_id, action_name, %[1]s)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, action_name) DO UPDATE SET
			%[1]s = action_stats.%[1]s + 1,
			updated_at = NOW()
	`, string(counter))

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, userID, actionName); err != nil {
		r.log.Error("failed to increment stats",
			slog.Int64("user_id", userID),
			slog.String("action", actionName),
			slog.String("counter", string(counter)),
			slog.Any("error", err),
		)
		return fmt.Errorf("increment %s: %w", counter, err)
	}

	return nil
}

func (r *statsRepository) Get(ctx context.Context, userID int64, actionName string) (*domain.ActionStat, error) {
	const query = `
		SELECT user_id, action_name, sent_count, received_count, accepted_count, declined_count
		FROM action_stats
		WHERE user_id = $1 AND action_name = $2
	`

	var s domain.ActionStat
	err := database.Executor(ctx, r.db).QueryRowContext(ctx, query, userID, actionName).Scan(
		&s.UserID, &s.ActionName, &s.SentCount, &s.ReceivedCount, &s.AcceptedCount, &s.DeclinedCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select action stat: %w", err)
	}
	return &s, nil
}

func (r *statsRepository) UserTotals(ctx context.Context, userID int64) (*domain.UserStats, error) {
	const query = `
		SELECT
			COALESCE(SUM(sent_count), 0),
			COALESCE(SUM(received_count), 0),
			COALESCE(SUM(accepted_count), 0),
			COALESCE(SUM(declined_count), 0)
		FROM action_stats
		WHERE user_id = $1
	`

	stats := &domain.UserStats{UserID: userID}
	err := database.Executor(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalSent, &stats.TotalReceived, &stats.TotalAccepted, &stats.TotalDeclined,
	)
	if err != nil {
		r.log.Error("failed to load user stats", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("sum user stats: %w", err)
	}
	return stats, nil
}

func (r *statsRepository) TopSent(ctx context.Context, userID int64, limit int) ([]domain.ActionCount, error) {
	const query = `
		SELECT action_name, sent_count
		FROM action_stats
		WHERE user_id = $1 AND sent_count > 0
		ORDER BY sent_count DESC, action_name ASC
		LIMIT $2
	`

	rows, err := database.Executor(ctx, r.db).QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("top sent: %w", err)
	}
	defer rows.Close()

	result := make([]domain.ActionCount, 0, limit)
	for rows.Next() {
		var ac domain.ActionCount
		if err := rows.Scan(&ac.Action, &ac.Count); err != nil {
			return nil, fmt.Errorf("scan top sent: %w", err)
		}
		result = append(result, ac)
	}
	return result, rows.Err()
}

func (r *statsRepository) Global(ctx context.Context) (*domain.GlobalStats, error) {
	const query = `
		SELECT
			COUNT(DISTINCT user_id),
			COALESCE(SUM(sent_count), 0),
			COALESCE(SUM(accepted_count), 0),
			COALESCE(SUM(declined_count), 0)
		FROM action_stats
	`

	var g domain.GlobalStats
	if err := database.Executor(ctx, r.db).QueryRowContext(ctx, query).Scan(&g.TotalUsers, &g.TotalActions, &g.Accepted, &g.Declined); err != nil {
		r.log.Error("failed to load global stats", slog.Any("error", err))
		return nil, fmt.Errorf("global stats: %w", err)
	}
	return &g, nil
}

func (r *statsRepository) TopUsers(ctx context.Context, limit int) ([]domain.UserTotal, error) {
	const query = `
		SELECT user_id, SUM(sent_count) AS total
		FROM action_stats
		GROUP BY user_id
		HAVING SUM(sent_count) > 0
		ORDER BY total DESC, user_id ASC
		LIMIT $1
	`

	rows, err := database.Executor(ctx, r.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	defer rows.Close()

	result := make([]domain.UserTotal, 0, limit)
	for rows.Next() {
		var ut domain.UserTotal
		if err := rows.Scan(&ut.UserID, &ut.TotalActions); err != nil {
			return nil, fmt.Errorf("scan top user: %w", err)
		}
		result = append(result, ut)
	}
	return result, rows.Err()
}
