package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/Proton-105/cuteforcute-bot/internal/errors"
	"github.com/Proton-105/cuteforcute-bot/internal/jobs"
)

const (
	broadcastPageSize = 500
	// Telegram allows about 30 messages per second; stay below it.
	deliveriesPerSecond = 25
)

// UserLister pages through registered user ids in ascending order.
type UserLister interface {
	IDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

// Sender is the subset of telebot.Bot used to deliver messages.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// BroadcastHandler fans a broadcast out into one delivery task per user.
type BroadcastHandler struct {
	users  UserLister
	queue  jobs.Enqueuer
	sender Sender
	log    *slog.Logger
}

func NewBroadcastHandler(users UserLister, queue jobs.Enqueuer, sender Sender, log *slog.Logger) *BroadcastHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BroadcastHandler{users: users, queue: queue, sender: sender, log: log}
}

func (h *BroadcastHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.BroadcastPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "broadcast: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return fmt.Errorf("decode broadcast payload: %w", asynq.SkipRetry)
	}
	if payload.Text == "" {
		return fmt.Errorf("empty broadcast text: %w", asynq.SkipRetry)
	}

	var (
		afterID  int64
		enqueued int
	)
	for {
		ids, err := h.users.IDs(ctx, afterID, broadcastPageSize)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			delay := time.Duration(enqueued/deliveriesPerSecond) * time.Second
			task, err := jobs.NewDeliverTask(id, payload.Text, delay)
			if err != nil {
				return err
			}
			if _, err := h.queue.Enqueue(ctx, task); err != nil {
				return fmt.Errorf("enqueue delivery for %d: %w", id, err)
			}
			enqueued++
		}

		afterID = ids[len(ids)-1]
		if len(ids) < broadcastPageSize {
			break
		}
	}

	h.log.InfoContext(ctx, "broadcast: deliveries enqueued",
		slog.Int("count", enqueued),
		slog.Int64("admin_id", payload.AdminID),
	)

	return nil
}

// ProcessDelivery sends one broadcast message. Users who blocked the bot are not retried.
func (h *BroadcastHandler) ProcessDelivery(ctx context.Context, t *asynq.Task) error {
	var payload jobs.DeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode delivery payload: %w", asynq.SkipRetry)
	}

	_, err := h.sender.Send(telebot.ChatID(payload.UserID), payload.Text, telebot.ModeHTML)
	if err == nil {
		return nil
	}

	if isPermanent(err) {
		h.log.DebugContext(ctx, "broadcast: recipient unreachable", slog.Int64("user_id", payload.UserID), slog.Any("error", err))
		return fmt.Errorf("deliver to %d: %v: %w", payload.UserID, err, asynq.SkipRetry)
	}

	var flood telebot.FloodError
	if errors.As(err, &flood) {
		h.log.WarnContext(ctx, "broadcast: throttled by telegram", slog.Int64("user_id", payload.UserID), slog.Int("retry_after", flood.RetryAfter))
		return fmt.Errorf("deliver to %d: %w", payload.UserID, apperrors.NewRateLimitError(flood.RetryAfter))
	}

	h.log.WarnContext(ctx, "broadcast: delivery failed", slog.Int64("user_id", payload.UserID), slog.Any("error", err))
	return apperrors.NewExternalAPIError("telegram", err)
}

func isPermanent(err error) bool {
	return errors.Is(err, telebot.ErrBlockedByUser) ||
		errors.Is(err, telebot.ErrUserIsDeactivated) ||
		errors.Is(err, telebot.ErrChatNotFound)
}
