// Package stats aggregates per-user and global interaction counters.
package stats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	"github.com/Proton-105/cuteforcute-bot/internal/repository"
)

// TopActionsLimit bounds UserStats.TopActions.
const TopActionsLimit = 5

// Service exposes counter increments and read-side summaries.
type Service struct {
	repo repository.StatsRepository
	log  *slog.Logger
}

// NewService constructs a stats service.
func NewService(repo repository.StatsRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log.With(slog.String("component", "stats"))}
}

// IncrementSent counts a proposal made by userID.
func (s *Service) IncrementSent(ctx context.Context, userID int64, actionName string) error {
	return s.repo.Increment(ctx, userID, actionName, repository.CounterSent)
}

// IncrementReceived counts a proposal answered by userID.
func (s *Service) IncrementReceived(ctx context.Context, userID int64, actionName string) error {
	return s.repo.Increment(ctx, userID, actionName, repository.CounterReceived)
}

func (s *Service) IncrementAccepted(ctx context.Context, userID int64, actionName string) error {
	return s.repo.Increment(ctx, userID, actionName, repository.CounterAccepted)
}

func (s *Service) IncrementDeclined(ctx context.Context, userID int64, actionName string) error {
	return s.repo.Increment(ctx, userID, actionName, repository.CounterDeclined)
}

// IncrementDecision bumps the accepted or declined counter according to d.
func (s *Service) IncrementDecision(ctx context.Context, userID int64, actionName string, d domain.Decision) error {
	if d == domain.Accept {
		return s.IncrementAccepted(ctx, userID, actionName)
	}
	return s.IncrementDeclined(ctx, userID, actionName)
}

// GetUserStats returns totals, the five most sent actions and the acceptance rate.
// A user without any rows gets zero totals.
func (s *Service) GetUserStats(ctx context.Context, userID int64) (*domain.UserStats, error) {
	totals, err := s.repo.UserTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user stats: %w", err)
	}

	top, err := s.repo.TopSent(ctx, userID, TopActionsLimit)
	if err != nil {
		return nil, fmt.Errorf("get user top actions: %w", err)
	}

	totals.UserID = userID
	totals.TopActions = top
	totals.AcceptanceRate = domain.AcceptanceRate(totals.TotalAccepted, totals.TotalSent)
	return totals, nil
}

// GetGlobalStats sums counters across all users.
func (s *Service) GetGlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	g, err := s.repo.Global(ctx)
	if err != nil {
		return nil, fmt.Errorf("get global stats: %w", err)
	}
	return g, nil
}

// GetTopUsers ranks users by sent actions, ties broken by user id.
func (s *Service) GetTopUsers(ctx context.Context, limit int) ([]domain.UserTotal, error) {
	if limit <= 0 {
		return []domain.UserTotal{}, nil
	}

	top, err := s.repo.TopUsers(ctx, limit)
	if err != nil {
		s.log.Error("failed to load top users", slog.Int("limit", limit), slog.Any("error", err))
		return nil, fmt.Errorf("get top users: %w", err)
	}
	return top, nil
}
