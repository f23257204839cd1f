// Package interaction records the receiver's decision on a proposal.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/cuteforcute-bot/internal/database"
	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	apperrors "github.com/Proton-105/cuteforcute-bot/internal/errors"
	"github.com/Proton-105/cuteforcute-bot/internal/repository"
	"github.com/Proton-105/cuteforcute-bot/pkg/metrics"
)

// Catalogue resolves active actions by name.
type Catalogue interface {
	GetAction(ctx context.Context, name string) (*domain.Action, error)
}

// Users looks up and registers participants.
type Users interface {
	Get(ctx context.Context, userID int64) (*domain.User, error)
	Register(ctx context.Context, u *domain.User) (*domain.User, error)
}

// Stats updates the receiver's counters.
type Stats interface {
	IncrementReceived(ctx context.Context, userID int64, actionName string) error
	IncrementDecision(ctx context.Context, userID int64, actionName string, d domain.Decision) error
}

// Request is a decision delivered by the transport.
type Request struct {
	SenderID      int64
	Receiver      domain.User
	ActionName    string
	Decision      domain.Decision
	MessageHandle string
}

// Resolution is the persisted interaction and the text that replaces the proposal.
type Resolution struct {
	Interaction *domain.Interaction
	Sender      *domain.User
	Receiver    *domain.User
	Action      *domain.Action
	Text        string
}

// Resolver turns a decision into an interaction record and statistics.
//
// Every call creates a new record; replays must be filtered by the caller.
type Resolver struct {
	catalogue    Catalogue
	users        Users
	interactions repository.InteractionRepository
	stats        Stats
	tx           database.Transactor
	renderer     *Renderer
	log          *slog.Logger
}

// NewResolver wires the resolver dependencies.
func NewResolver(
	catalogue Catalogue,
	users Users,
	interactions repository.InteractionRepository,
	stats Stats,
	tx database.Transactor,
	renderer *Renderer,
	log *slog.Logger,
) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		catalogue:    catalogue,
		users:        users,
		interactions: interactions,
		stats:        stats,
		tx:           tx,
		renderer:     renderer,
		log:          log.With(slog.String("component", "interaction")),
	}
}

// Resolve validates the request, then stores the receiver, the interaction and the
// counter increments in one transaction.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	if req.SenderID == req.Receiver.ID {
		metrics.RecordInteractionRejection("self")
		return nil, apperrors.ErrSelfInteraction
	}

	action, err := r.catalogue.GetAction(ctx, req.ActionName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordInteractionRejection("action_unavailable")
			return nil, apperrors.NewActionUnavailableError(req.ActionName)
		}
		return nil, fmt.Errorf("resolve action: %w", err)
	}

	sender, err := r.users.Get(ctx, req.SenderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordInteractionRejection("unknown_sender")
			return nil, apperrors.ErrUnknownSender
		}
		return nil, fmt.Errorf("resolve sender: %w", err)
	}

	var (
		receiver *domain.User
		record   *domain.Interaction
	)

	err = r.tx.WithinTx(ctx, func(ctx context.Context) error {
		stored, err := r.users.Register(ctx, &req.Receiver)
		if err != nil {
			return err
		}
		receiver = stored

		record = &domain.Interaction{
			SenderID:   sender.ID,
			ReceiverID: receiver.ID,
			Action:     action.Name,
			Status:     domain.StatusPending,
			MessageID:  req.MessageHandle,
		}
		if err := r.interactions.Create(ctx, record); err != nil {
			return err
		}

		status := req.Decision.Status()
		ok, err := r.interactions.CompletePending(ctx, record.ID, status)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("interaction %d is no longer pending", record.ID)
		}
		record.Status = status

		if err := r.stats.IncrementReceived(ctx, receiver.ID, action.Name); err != nil {
			return err
		}
		return r.stats.IncrementDecision(ctx, receiver.ID, action.Name, req.Decision)
	})
	if err != nil {
		r.log.Error("failed to record interaction",
			slog.Int64("sender_id", req.SenderID),
			slog.Int64("receiver_id", req.Receiver.ID),
			slog.String("action", action.Name),
			slog.Any("error", err),
		)
		return nil, apperrors.NewDatabaseError(err)
	}

	metrics.RecordInteraction(req.Decision.String())
	r.log.Info("interaction resolved",
		slog.Int64("interaction_id", record.ID),
		slog.Int64("sender_id", sender.ID),
		slog.Int64("receiver_id", receiver.ID),
		slog.String("action", action.Name),
		slog.String("decision", req.Decision.String()),
	)

	return &Resolution{
		Interaction: record,
		Sender:      sender,
		Receiver:    receiver,
		Action:      action,
		Text:        r.renderer.Render(receiver.LanguageCode, sender, receiver, action, req.Decision),
	}, nil
}
