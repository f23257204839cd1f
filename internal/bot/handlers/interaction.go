package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
	"github.com/Proton-105/cuteforcute-bot/internal/catalogue"
	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	apperrors "github.com/Proton-105/cuteforcute-bot/internal/errors"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
	"github.com/Proton-105/cuteforcute-bot/internal/idempotency"
	"github.com/Proton-105/cuteforcute-bot/internal/interaction"
)

// ActionLookup maps callback action ids to catalogue entries.
type ActionLookup interface {
	GetActionByID(ctx context.Context, id int64) (*domain.Action, error)
}

// DecisionResolver records a decision.
type DecisionResolver interface {
	Resolve(ctx context.Context, req interaction.Request) (*interaction.Resolution, error)
}

// decisionOutcome is what the replay guard stores for a resolved proposal.
type decisionOutcome struct {
	Text     string          `json:"text"`
	Decision domain.Decision `json:"decision"`
}

// InteractionHandler answers the accept/decline buttons of a proposal.
type InteractionHandler struct {
	catalogue    ActionLookup
	resolver     DecisionResolver
	guard        idempotency.Manager
	guardTTL     time.Duration
	translations *i18n.Manager
	log          *slog.Logger
}

func NewInteractionHandler(
	catalogue ActionLookup,
	resolver DecisionResolver,
	guard idempotency.Manager,
	guardTTL time.Duration,
	translations *i18n.Manager,
	log *slog.Logger,
) *InteractionHandler {
	if guardTTL <= 0 {
		guardTTL = 24 * time.Hour
	}
	return &InteractionHandler{
		catalogue:    catalogue,
		resolver:     resolver,
		guard:        guard,
		guardTTL:     guardTTL,
		translations: translations,
		log:          loggerOrDefault(log).With(slog.String("component", "interaction_handler")),
	}
}

func (h *InteractionHandler) Handle(c telebot.Context) error {
	cb := c.Callback()
	if cb == nil || cb.Sender == nil {
		return nil
	}

	ctx := RequestContext(c)
	t := translatorFor(h.translations, c)

	_, data, err := keyboard.DecodeCallback(cb.Data)
	if err != nil {
		return h.alert(c, t.T("interaction.unavailable"))
	}
	proposal, err := keyboard.DecodeProposal(data)
	if err != nil {
		h.log.Warn("malformed proposal payload", slog.String("data", cb.Data), slog.Any("error", err))
		return h.alert(c, t.T("interaction.unavailable"))
	}

	action, err := h.catalogue.GetActionByID(ctx, proposal.ActionID)
	if err != nil {
		if errors.Is(err, catalogue.ErrNotFound) {
			return h.fail(c, t, apperrors.NewActionUnavailableError(fmt.Sprintf("#%d", proposal.ActionID)))
		}
		return h.fail(c, t, err)
	}

	receiver := FromTelebot(cb.Sender)
	handle := messageHandle(cb)
	req := interaction.Request{
		SenderID:      proposal.SenderID,
		Receiver:      *receiver,
		ActionName:    action.Name,
		Decision:      proposal.Decision,
		MessageHandle: handle,
	}

	key := idempotency.DecisionKey(proposal.SenderID, action.Name, handle, receiver.ID)
	result, err := h.resolveOnce(ctx, key, req)
	if err != nil {
		return h.fail(c, t, err)
	}

	var outcome decisionOutcome
	if err := result.Decode(&outcome); err != nil {
		return h.fail(c, t, fmt.Errorf("decode stored outcome: %w", err))
	}
	if result.FromCache {
		h.log.Info("decision replay served from guard", slog.String("key", key), slog.Int64("receiver_id", receiver.ID))
	}

	toast := t.T("interaction.toast_declined")
	if outcome.Decision == domain.Accept {
		toast = t.T("interaction.toast_accepted")
	}
	if err := c.Respond(&telebot.CallbackResponse{Text: toast}); err != nil {
		h.log.Debug("failed to answer callback", slog.Any("error", err))
	}

	if err := c.Edit(outcome.Text, telebot.ModeHTML); err != nil {
		h.log.Warn("failed to edit proposal message", slog.String("message", handle), slog.Any("error", err))
	}
	return nil
}

func (h *InteractionHandler) resolveOnce(ctx context.Context, key string, req interaction.Request) (*idempotency.Result, error) {
	op := func(ctx context.Context) (interface{}, error) {
		res, err := h.resolver.Resolve(ctx, req)
		if err != nil {
			return nil, err
		}
		return decisionOutcome{Text: res.Text, Decision: req.Decision}, nil
	}

	if h.guard == nil {
		value, err := op(ctx)
		if err != nil {
			return nil, err
		}
		return idempotency.NewResult(value)
	}
	result, err := h.guard.Execute(ctx, key, h.guardTTL, op)
	if !errors.Is(err, idempotency.ErrStoreUnavailable) {
		return result, err
	}

	// Without the guard a replayed decision is recorded again.
	h.log.Warn("replay guard unavailable, resolving unguarded", slog.String("key", key), slog.Any("error", err))
	value, err := op(ctx)
	if err != nil {
		return nil, err
	}
	return idempotency.NewResult(value)
}

func (h *InteractionHandler) fail(c telebot.Context, t i18n.Translator, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrSelfInteraction):
		return h.alert(c, t.T("interaction.self"))
	case errors.Is(err, apperrors.ErrActionUnavailable):
		if delErr := c.Delete(); delErr != nil {
			h.log.Debug("failed to delete stale proposal", slog.Any("error", delErr))
		}
		return h.alert(c, t.T("interaction.unavailable"))
	case errors.Is(err, apperrors.ErrUnknownSender):
		return h.alert(c, t.T("interaction.unknown_sender"))
	case errors.Is(err, idempotency.ErrRequestInProgress):
		return c.Respond()
	}

	h.log.Error("failed to resolve proposal", slog.Int64("user_id", senderID(c)), slog.Any("error", err))
	return h.alert(c, t.T("interaction.failed"))
}

func (h *InteractionHandler) alert(c telebot.Context, text string) error {
	return c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: true})
}

// messageHandle identifies the proposal message: the inline message id, or chat:message for regular messages.
func messageHandle(cb *telebot.Callback) string {
	if cb.MessageID != "" {
		return cb.MessageID
	}
	if cb.Message != nil && cb.Message.Chat != nil {
		return fmt.Sprintf("%d:%d", cb.Message.Chat.ID, cb.Message.ID)
	}
	return cb.ID
}
