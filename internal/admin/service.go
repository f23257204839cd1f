// Package admin decides who may manage the catalogue.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	"github.com/Proton-105/cuteforcute-bot/internal/repository"
)

var (
	// ErrOwnerOnly is returned when a non-owner tries to manage admins.
	ErrOwnerOnly = errors.New("admin: only the owner can manage admins")
	// ErrOwnerImmutable is returned when the owner is added or removed through the table.
	ErrOwnerImmutable = errors.New("admin: the owner is configured, not stored")
)

// Service answers admin checks from the configured owner and the admins table.
type Service struct {
	repo    repository.AdminRepository
	ownerID int64
	log     *slog.Logger
}

func NewService(repo repository.AdminRepository, ownerID int64, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, ownerID: ownerID, log: log.With(slog.String("component", "admin"))}
}

// IsOwner reports whether userID is the configured owner.
func (s *Service) IsOwner(userID int64) bool {
	return s.ownerID != 0 && userID == s.ownerID
}

// IsAdmin never fails: a store error is logged and treated as "not an admin".
func (s *Service) IsAdmin(ctx context.Context, userID int64) bool {
	if s.IsOwner(userID) {
		return true
	}

	active, err := s.repo.IsActive(ctx, userID)
	if err != nil {
		s.log.Error("admin check failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return false
	}
	return active
}

// Add grants admin rights to target on behalf of the owner.
func (s *Service) Add(ctx context.Context, by int64, target domain.User) error {
	if !s.IsOwner(by) {
		return ErrOwnerOnly
	}
	if s.IsOwner(target.ID) {
		return ErrOwnerImmutable
	}

	err := s.repo.Add(ctx, &domain.Admin{
		UserID:   target.ID,
		Username: target.Username,
		FullName: target.FullName,
		AddedBy:  by,
	})
	if err != nil {
		return fmt.Errorf("add admin %d: %w", target.ID, err)
	}

	s.log.Info("admin added", slog.Int64("user_id", target.ID), slog.Int64("added_by", by))
	return nil
}

// Remove revokes admin rights and reports whether target was an active admin.
func (s *Service) Remove(ctx context.Context, by, target int64) (bool, error) {
	if !s.IsOwner(by) {
		return false, ErrOwnerOnly
	}
	if s.IsOwner(target) {
		return false, ErrOwnerImmutable
	}

	ok, err := s.repo.Deactivate(ctx, target)
	if err != nil {
		return false, fmt.Errorf("remove admin %d: %w", target, err)
	}
	if ok {
		s.log.Info("admin removed", slog.Int64("user_id", target), slog.Int64("removed_by", by))
	}
	return ok, nil
}

// IDs returns the owner followed by every active admin.
func (s *Service) IDs(ctx context.Context) ([]int64, error) {
	admins, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}

	ids := make([]int64, 0, len(admins)+1)
	if s.ownerID != 0 {
		ids = append(ids, s.ownerID)
	}
	for _, a := range admins {
		ids = append(ids, a.UserID)
	}
	return ids, nil
}
