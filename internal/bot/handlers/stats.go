package handlers

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
	"github.com/Proton-105/cuteforcute-bot/internal/interaction"
	"github.com/Proton-105/cuteforcute-bot/internal/repository"
)

const (
	topUsersLimit   = 10
	topActionsLimit = 5
)

// StatsReader is the statistics surface used by /stats and /top.
type StatsReader interface {
	GetUserStats(ctx context.Context, userID int64) (*domain.UserStats, error)
	GetTopUsers(ctx context.Context, limit int) ([]domain.UserTotal, error)
}

// UserReader resolves user ids to profiles.
type UserReader interface {
	Get(ctx context.Context, userID int64) (*domain.User, error)
}

// TopActions lists the most sent actions.
type TopActions interface {
	GetGlobalTopActions(ctx context.Context, limit int) ([]domain.ActionCount, error)
}

type StatsHandler struct {
	stats        StatsReader
	users        UserReader
	catalogue    TopActions
	translations *i18n.Manager
	log          *slog.Logger
}

func NewStatsHandler(stats StatsReader, users UserReader, catalogue TopActions, translations *i18n.Manager, log *slog.Logger) *StatsHandler {
	return &StatsHandler{
		stats:        stats,
		users:        users,
		catalogue:    catalogue,
		translations: translations,
		log:          loggerOrDefault(log),
	}
}

// HandleStats shows the sender's stats, or those of the replied-to user.
func (h *StatsHandler) HandleStats(c telebot.Context) error {
	target := SenderUser(c)
	if target == nil {
		return nil
	}

	if msg := c.Message(); msg != nil && msg.ReplyTo != nil && msg.ReplyTo.Sender != nil && !msg.ReplyTo.Sender.IsBot {
		target = FromTelebot(msg.ReplyTo.Sender)
	}

	ctx := RequestContext(c)
	t := translatorFor(h.translations, c)

	stats, err := h.stats.GetUserStats(ctx, target.ID)
	if err != nil {
		return err
	}

	return c.Send(FormatUserStats(t, target, stats), telebot.ModeHTML)
}

// HandleTop shows the most active senders and the most used actions.
func (h *StatsHandler) HandleTop(c telebot.Context) error {
	ctx := RequestContext(c)
	t := translatorFor(h.translations, c)

	users, err := h.stats.GetTopUsers(ctx, topUsersLimit)
	if err != nil {
		return err
	}
	actions, err := h.catalogue.GetGlobalTopActions(ctx, topActionsLimit)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(t.T("top.users_title"))
	b.WriteString("\n")
	if len(users) == 0 {
		b.WriteString(t.T("top.empty"))
		b.WriteString("\n")
	}
	for i, total := range users {
		b.WriteString(t.F("top.user_line", map[string]string{
			"rank":  strconv.Itoa(i + 1),
			"name":  interaction.Mention(h.lookupUser(ctx, total.UserID)),
			"count": strconv.FormatInt(total.TotalActions, 10),
		}))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(t.T("top.actions_title"))
	b.WriteString("\n")
	if len(actions) == 0 {
		b.WriteString(t.T("top.empty"))
		b.WriteString("\n")
	}
	for i, action := range actions {
		b.WriteString(t.F("top.action_line", map[string]string{
			"rank":   strconv.Itoa(i + 1),
			"action": html.EscapeString(action.Action),
			"count":  strconv.FormatInt(action.Count, 10),
		}))
		b.WriteString("\n")
	}

	return c.Send(strings.TrimRight(b.String(), "\n"), telebot.ModeHTML)
}

func (h *StatsHandler) lookupUser(ctx context.Context, userID int64) *domain.User {
	u, err := h.users.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			h.log.Warn("failed to load user for top list", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return &domain.User{ID: userID}
	}
	return u
}

// FormatUserStats renders the personal stats card.
func FormatUserStats(t i18n.Translator, user *domain.User, stats *domain.UserStats) string {
	args := map[string]string{
		"name":     interaction.Mention(user),
		"sent":     strconv.FormatInt(stats.TotalSent, 10),
		"received": strconv.FormatInt(stats.TotalReceived, 10),
		"accepted": strconv.FormatInt(stats.TotalAccepted, 10),
		"declined": strconv.FormatInt(stats.TotalDeclined, 10),
		"rate":     strconv.FormatFloat(stats.AcceptanceRate, 'f', 1, 64),
	}

	var b strings.Builder
	b.WriteString(t.F("stats.card", args))

	if len(stats.TopActions) > 0 {
		b.WriteString("\n\n")
		b.WriteString(t.T("stats.top_title"))
		for _, action := range stats.TopActions {
			b.WriteString("\n")
			b.WriteString(t.F("stats.top_line", map[string]string{
				"action": html.EscapeString(action.Action),
				"count":  strconv.FormatInt(action.Count, 10),
			}))
		}
	}

	return b.String()
}
