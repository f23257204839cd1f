// Package catalogue serves the action catalogue to the inline and admin surfaces.
//
// Reads go through the action cache; every mutation invalidates it before returning.
package catalogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Proton-105/cuteforcute-bot/internal/actioncache"
	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	apperrors "github.com/Proton-105/cuteforcute-bot/internal/errors"
	"github.com/Proton-105/cuteforcute-bot/internal/repository"
	"github.com/Proton-105/cuteforcute-bot/pkg/metrics"
)

// ErrNotFound is returned when an action is absent or inactive.
var ErrNotFound = repository.ErrNotFound

// SentCounter records proposals in the statistics aggregate.
type SentCounter interface {
	IncrementSent(ctx context.Context, userID int64, actionName string) error
}

// Service composes the catalogue store, the action cache and interaction history.
type Service struct {
	actions      repository.ActionRepository
	interactions repository.InteractionRepository
	cache        *actioncache.Cache
	stats        SentCounter
	validate     *validator.Validate
	log          *slog.Logger
}

// NewService wires the façade. cache may be nil, in which case every read hits the store.
func NewService(
	actions repository.ActionRepository,
	interactions repository.InteractionRepository,
	cache *actioncache.Cache,
	stats SentCounter,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		actions:      actions,
		interactions: interactions,
		cache:        cache,
		stats:        stats,
		validate:     validator.New(),
		log:          log.With(slog.String("component", "catalogue")),
	}
}

// GetAllActions returns the active catalogue. On store failure it returns an empty slice with the error.
func (s *Service) GetAllActions(ctx context.Context) ([]domain.Action, error) {
	if cached, ok := s.cache.GetAllActions(ctx); ok {
		return cached, nil
	}

	actions, err := s.actions.GetAllActive(ctx)
	if err != nil {
		s.log.Error("failed to load catalogue", slog.Any("error", err))
		return []domain.Action{}, fmt.Errorf("get all actions: %w", err)
	}

	s.cache.SetAllActions(ctx, actions)
	return actions, nil
}

// GetAction resolves an active action by exact name.
func (s *Service) GetAction(ctx context.Context, name string) (*domain.Action, error) {
	if name == "" {
		return nil, ErrNotFound
	}

	if cached, ok := s.cache.GetAction(ctx, name); ok && cached.IsActive {
		return cached, nil
	}

	action, err := s.actions.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get action %q: %w", name, err)
	}
	if !action.IsActive {
		return nil, ErrNotFound
	}

	s.cache.SetAction(ctx, action)
	return action, nil
}

// GetActionByID reads the store directly; inactive actions are returned as well.
func (s *Service) GetActionByID(ctx context.Context, id int64) (*domain.Action, error) {
	action, err := s.actions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get action %d: %w", id, err)
	}
	return action, nil
}

// SearchActions matches query against active action names. Search results are never cached.
func (s *Service) SearchActions(ctx context.Context, query string) ([]domain.Action, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.GetAllActions(ctx)
	}

	actions, err := s.actions.Search(ctx, query)
	if err != nil {
		s.log.Error("search failed", slog.String("query", query), slog.Any("error", err))
		return []domain.Action{}, fmt.Errorf("search actions: %w", err)
	}
	return actions, nil
}

// GetTopActionsForUser ranks actions by how often userID sent them.
func (s *Service) GetTopActionsForUser(ctx context.Context, userID int64, limit int) ([]domain.ActionCount, error) {
	return s.topActions(ctx, &userID, limit)
}

// GetGlobalTopActions ranks actions across all interactions.
func (s *Service) GetGlobalTopActions(ctx context.Context, limit int) ([]domain.ActionCount, error) {
	return s.topActions(ctx, nil, limit)
}

func (s *Service) topActions(ctx context.Context, senderID *int64, limit int) ([]domain.ActionCount, error) {
	if limit <= 0 {
		return []domain.ActionCount{}, nil
	}

	top, err := s.interactions.TopActions(ctx, senderID, limit)
	if err != nil {
		return []domain.ActionCount{}, fmt.Errorf("top actions: %w", err)
	}
	return top, nil
}

// GlobalTopCatalogue returns full records for the most used actions that are still active, in rank order.
func (s *Service) GlobalTopCatalogue(ctx context.Context, limit int) ([]domain.Action, error) {
	top, err := s.GetGlobalTopActions(ctx, limit)
	if err != nil {
		return []domain.Action{}, err
	}
	if len(top) == 0 {
		return []domain.Action{}, nil
	}

	all, err := s.GetAllActions(ctx)
	if err != nil {
		return []domain.Action{}, err
	}

	byName := make(map[string]domain.Action, len(all))
	for _, a := range all {
		byName[a.Name] = a
	}

	result := make([]domain.Action, 0, len(top))
	for _, t := range top {
		if a, ok := byName[t.Action]; ok {
			result = append(result, a)
		}
	}
	return result, nil
}

// RecordProposal counts a delivered proposal against the action and the sender.
func (s *Service) RecordProposal(ctx context.Context, senderID int64, actionName string) error {
	if err := s.actions.IncrementUsage(ctx, actionName); err != nil {
		return fmt.Errorf("record proposal usage: %w", err)
	}
	if s.stats != nil {
		if err := s.stats.IncrementSent(ctx, senderID, actionName); err != nil {
			return fmt.Errorf("record proposal sent: %w", err)
		}
	}

	metrics.RecordProposal()
	return nil
}

// ListActions pages through every action, inactive ones included.
func (s *Service) ListActions(ctx context.Context, page, perPage int) ([]domain.Action, int, error) {
	if perPage <= 0 {
		perPage = 10
	}
	if page < 0 {
		page = 0
	}

	total, err := s.actions.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count actions: %w", err)
	}

	actions, err := s.actions.List(ctx, page*perPage, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list actions: %w", err)
	}
	return actions, total, nil
}

// ValidateDraft normalizes draft and checks it against the catalogue constraints.
func (s *Service) ValidateDraft(draft *domain.ActionDraft) error {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Emoji = strings.TrimSpace(draft.Emoji)
	draft.Infinitive = strings.TrimSpace(draft.Infinitive)
	draft.PastTense = strings.TrimSpace(draft.PastTense)
	draft.GenitiveNoun = strings.TrimSpace(draft.GenitiveNoun)
	draft.Description = strings.TrimSpace(draft.Description)

	if err := s.validate.Struct(draft); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

// ValidateField checks a single edit wizard answer.
func (s *Service) ValidateField(field domain.ActionField, value string) error {
	if !field.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("field %q is not editable", field))
	}

	rule := "required,max=100"
	switch field {
	case domain.FieldEmoji:
		rule = "required,max=16"
	case domain.FieldDescription:
		rule = "max=500"
	}

	if err := s.validate.Var(strings.TrimSpace(value), rule); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("%s: %v", field, err))
	}
	return nil
}

// CreateAction validates and stores a new action.
func (s *Service) CreateAction(ctx context.Context, draft domain.ActionDraft) (*domain.Action, error) {
	if err := s.ValidateDraft(&draft); err != nil {
		return nil, err
	}

	action, err := s.actions.Create(ctx, draft)
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx)
	s.log.Info("action created", slog.Int64("action_id", action.ID), slog.String("name", action.Name))
	return action, nil
}

// UpdateAction changes one field of an action.
func (s *Service) UpdateAction(ctx context.Context, id int64, field domain.ActionField, value string) error {
	if err := s.ValidateField(field, value); err != nil {
		return err
	}

	ok, err := s.actions.Update(ctx, id, field, strings.TrimSpace(value))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	s.Invalidate(ctx)
	s.log.Info("action updated", slog.Int64("action_id", id), slog.String("field", string(field)))
	return nil
}

// DeleteAction deactivates an action and reports whether it existed.
func (s *Service) DeleteAction(ctx context.Context, id int64) (bool, error) {
	ok, err := s.actions.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete action %d: %w", id, err)
	}
	if !ok {
		return false, nil
	}

	s.Invalidate(ctx)
	s.log.Info("action deactivated", slog.Int64("action_id", id))
	return true, nil
}

// Invalidate drops every cached catalogue entry.
func (s *Service) Invalidate(ctx context.Context) {
	s.cache.InvalidateAll(ctx)
}

// Warm refills the catalogue snapshot after an invalidation.
func (s *Service) Warm(ctx context.Context) error {
	actions, err := s.actions.GetAllActive(ctx)
	if err != nil {
		return fmt.Errorf("warm catalogue: %w", err)
	}
	s.cache.SetAllActions(ctx, actions)
	return nil
}
