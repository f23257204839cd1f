// Package user registers participants and resolves their profiles.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	"github.com/Proton-105/cuteforcute-bot/internal/repository"
	"github.com/Proton-105/cuteforcute-bot/internal/usercache"
)

// Service provides business operations over users.
type Service struct {
	repo  repository.UserRepository
	cache *usercache.Cache
	log   *slog.Logger
}

// NewService constructs a new Service instance. cache may be nil.
func NewService(repo repository.UserRepository, cache *usercache.Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, cache: cache, log: log}
}

// Register upserts the user and drops the cached profile. It may run inside a transaction that
// later rolls back, so the cache is only filled from committed reads.
func (s *Service) Register(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u == nil || u.ID <= 0 {
		return nil, errors.New("register user: invalid identity")
	}

	stored, err := s.repo.Upsert(ctx, u)
	if err != nil {
		s.logError("register", u.ID, err)
		return nil, fmt.Errorf("register user: %w", err)
	}

	if err := s.cache.Invalidate(ctx, stored.ID); err != nil {
		s.log.Warn("failed to invalidate cached user", slog.Int64("user_id", stored.ID), slog.Any("error", err))
	}

	return stored, nil
}

// Get returns the registered user or repository.ErrNotFound. Misses are remembered briefly so
// repeated lookups of strangers stay off the database.
func (s *Service) Get(ctx context.Context, userID int64) (*domain.User, error) {
	cached, err := s.cache.Get(ctx, userID)
	switch {
	case errors.Is(err, usercache.ErrUnregistered):
		return nil, repository.ErrNotFound
	case err != nil:
		s.log.Warn("user cache read failed", slog.Int64("user_id", userID), slog.Any("error", err))
	case cached != nil:
		return cached, nil
	}

	u, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		if err := s.cache.MarkMissing(ctx, userID); err != nil {
			s.log.Warn("failed to cache missing user", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, err
	}
	if err != nil {
		s.logError("get", userID, err)
		return nil, err
	}

	if err := s.cache.Set(ctx, u); err != nil {
		s.log.Warn("failed to cache user", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return u, nil
}

// Count returns the number of registered users.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// IDs pages through registered user ids.
func (s *Service) IDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	return s.repo.ListIDs(ctx, afterID, limit)
}

func (s *Service) logError(operation string, userID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("user_id", userID),
		slog.Any("error", err),
	)
}
