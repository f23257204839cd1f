package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
	"github.com/Proton-105/cuteforcute-bot/internal/interaction"
)

const (
	maxInlineResults  = 50
	defaultResults    = 10
	inlineCacheTime   = 5
	actionResultIDPfx = "act"
)

// InlineCatalogue is the catalogue surface used by inline mode.
type InlineCatalogue interface {
	GetAllActions(ctx context.Context) ([]domain.Action, error)
	SearchActions(ctx context.Context, query string) ([]domain.Action, error)
	GlobalTopCatalogue(ctx context.Context, limit int) ([]domain.Action, error)
	GetActionByID(ctx context.Context, id int64) (*domain.Action, error)
	RecordProposal(ctx context.Context, senderID int64, actionName string) error
}

// InlineHandler turns inline queries into proposal messages.
type InlineHandler struct {
	catalogue    InlineCatalogue
	renderer     *interaction.Renderer
	keyboard     *keyboard.Builder
	translations *i18n.Manager
	botUsername  string
	log          *slog.Logger
}

func NewInlineHandler(
	catalogue InlineCatalogue,
	renderer *interaction.Renderer,
	kb *keyboard.Builder,
	translations *i18n.Manager,
	botUsername string,
	log *slog.Logger,
) *InlineHandler {
	return &InlineHandler{
		catalogue:    catalogue,
		renderer:     renderer,
		keyboard:     kb,
		translations: translations,
		botUsername:  botUsername,
		log:          loggerOrDefault(log).With(slog.String("component", "inline")),
	}
}

// HandleQuery answers an inline query. Lookup failures degrade to fewer results, never to an error.
func (h *InlineHandler) HandleQuery(c telebot.Context) error {
	q := c.Query()
	if q == nil || q.Sender == nil {
		return nil
	}

	ctx := RequestContext(c)
	t := translatorFor(h.translations, c)
	sender := FromTelebot(q.Sender)
	query := strings.TrimSpace(q.Text)

	var results telebot.Results
	if query == "" {
		results = append(results, h.infoArticle(t))
		results = append(results, h.actionResults(t, sender, h.defaultActions(ctx), defaultResults)...)
	} else {
		actions, err := h.catalogue.SearchActions(ctx, query)
		if err != nil {
			h.log.Error("inline search failed", slog.String("query", query), slog.Any("error", err))
		}

		if len(actions) == 0 {
			results = append(results, h.notFoundArticle(t, query))
		} else {
			results = append(results, h.searchHeader(t, query, len(actions)))
			results = append(results, h.actionResults(t, sender, actions, maxInlineResults-1)...)
		}
	}

	return c.Answer(&telebot.QueryResponse{
		Results:    results,
		CacheTime:  inlineCacheTime,
		IsPersonal: true,
	})
}

// HandleChosen counts the proposal once Telegram reports the result was sent.
func (h *InlineHandler) HandleChosen(c telebot.Context) error {
	chosen := c.InlineResult()
	if chosen == nil || chosen.Sender == nil {
		return nil
	}

	actionID, ok := ParseActionResultID(chosen.ResultID)
	if !ok {
		return nil
	}

	ctx := RequestContext(c)
	action, err := h.catalogue.GetActionByID(ctx, actionID)
	if err != nil {
		h.log.Warn("chosen action lookup failed", slog.Int64("action_id", actionID), slog.Any("error", err))
		return nil
	}

	if err := h.catalogue.RecordProposal(ctx, chosen.Sender.ID, action.Name); err != nil {
		h.log.Error("failed to record proposal",
			slog.Int64("user_id", chosen.Sender.ID),
			slog.String("action", action.Name),
			slog.Any("error", err),
		)
	}
	return nil
}

func (h *InlineHandler) defaultActions(ctx context.Context) []domain.Action {
	top, err := h.catalogue.GlobalTopCatalogue(ctx, defaultResults)
	if err != nil {
		h.log.Warn("global top unavailable, falling back to catalogue", slog.Any("error", err))
	}
	if len(top) > 0 {
		return top
	}

	all, err := h.catalogue.GetAllActions(ctx)
	if err != nil {
		h.log.Error("catalogue unavailable for inline query", slog.Any("error", err))
	}
	return all
}

func (h *InlineHandler) actionResults(t i18n.Translator, sender *domain.User, actions []domain.Action, limit int) telebot.Results {
	if len(actions) > limit {
		actions = actions[:limit]
	}

	results := make(telebot.Results, 0, len(actions))
	for i := range actions {
		action := &actions[i]

		markup, err := h.keyboard.Proposal(t, sender.ID, action.ID)
		if err != nil {
			h.log.Error("failed to build proposal keyboard", slog.Int64("action_id", action.ID), slog.Any("error", err))
			continue
		}

		results = append(results, &telebot.ArticleResult{
			ResultBase: telebot.ResultBase{
				ID:          ActionResultID(action.ID),
				ReplyMarkup: markup,
				Content: &telebot.InputTextMessageContent{
					Text:      h.renderer.Proposal(t.Lang(), sender, action),
					ParseMode: telebot.ModeHTML,
				},
			},
			Title:       fmt.Sprintf("%s %s", action.Emoji, action.Name),
			Description: t.F("inline.usage", map[string]string{"count": strconv.FormatInt(action.UsageCount, 10)}),
		})
	}
	return results
}

func (h *InlineHandler) infoArticle(t i18n.Translator) telebot.Result {
	return article("info", t.T("inline.info_title"), t.T("inline.info_description"),
		t.F("inline.info_text", map[string]string{"bot": h.botUsername}))
}

func (h *InlineHandler) searchHeader(t i18n.Translator, query string, count int) telebot.Result {
	args := map[string]string{"query": query, "count": strconv.Itoa(count), "bot": h.botUsername}
	return article("search", t.F("inline.search_title", args), t.F("inline.search_description", args),
		t.F("inline.info_text", args))
}

func (h *InlineHandler) notFoundArticle(t i18n.Translator, query string) telebot.Result {
	args := map[string]string{"query": query}
	return article("none", t.T("inline.not_found_title"), t.F("inline.not_found_description", args),
		t.F("inline.not_found_text", args))
}

func article(kind, title, description, text string) telebot.Result {
	return &telebot.ArticleResult{
		ResultBase: telebot.ResultBase{
			ID:      kind + ":" + uuid.NewString(),
			Content: &telebot.InputTextMessageContent{Text: text},
		},
		Title:       title,
		Description: description,
	}
}

// ActionResultID builds act:<action id>:<uuid>; the uuid keeps ids unique across answers.
func ActionResultID(actionID int64) string {
	return fmt.Sprintf("%s:%d:%s", actionResultIDPfx, actionID, uuid.NewString())
}

// ParseActionResultID extracts the action id from an inline result id.
func ParseActionResultID(resultID string) (int64, bool) {
	parts := strings.SplitN(resultID, ":", 3)
	if len(parts) != 3 || parts[0] != actionResultIDPfx {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
