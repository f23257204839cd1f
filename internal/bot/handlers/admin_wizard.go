package handlers

import (
	"errors"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
	"github.com/Proton-105/cuteforcute-bot/internal/catalogue"
	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	apperrors "github.com/Proton-105/cuteforcute-bot/internal/errors"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
	"github.com/Proton-105/cuteforcute-bot/internal/state"
)

// wizardStep describes one answer of the add-action wizard.
type wizardStep struct {
	field  domain.ActionField
	key    string
	next   state.State
	prompt string
}

var addSteps = map[state.State]wizardStep{
	state.StateActionAddName:       {field: domain.FieldName, key: state.KeyName, next: state.StateActionAddEmoji, prompt: "admin.add.emoji"},
	state.StateActionAddEmoji:      {field: domain.FieldEmoji, key: state.KeyEmoji, next: state.StateActionAddInfinitive, prompt: "admin.add.infinitive"},
	state.StateActionAddInfinitive: {field: domain.FieldInfinitive, key: state.KeyInfinitive, next: state.StateActionAddPast, prompt: "admin.add.past_tense"},
	state.StateActionAddPast:       {field: domain.FieldPastTense, key: state.KeyPastTense, next: state.StateActionAddNoun, prompt: "admin.add.genitive_noun"},
}

// StartAdd serves adm_add and asks for the new action's name.
func (h *AdminHandler) StartAdd(c telebot.Context) error {
	t := translatorFor(h.translations, c)
	if err := h.fsm.SetState(RequestContext(c), senderID(c), state.StateActionAddName, map[string]interface{}{}); err != nil {
		return err
	}

	_ = c.Respond()
	return c.Send(t.T("admin.add.name"), keyboard.CancelKeyboard(t))
}

// AddStep handles the name, emoji, infinitive and past tense answers.
func (h *AdminHandler) AddStep(current state.State) Handler {
	step, ok := addSteps[current]
	if !ok {
		panic("handlers: no add-action step for state " + string(current))
	}

	return h.RequireAdmin(func(c telebot.Context) error {
		ctx := RequestContext(c)
		t := translatorFor(h.translations, c)
		value := strings.TrimSpace(c.Text())

		if err := h.catalogue.ValidateField(step.field, value); err != nil {
			return h.rejectAnswer(c, t, err)
		}

		if err := h.fsm.TransitionTo(ctx, senderID(c), step.next, map[string]interface{}{step.key: value}); err != nil {
			return err
		}

		return c.Send(t.T(step.prompt), keyboard.CancelKeyboard(t))
	})
}

// AddFinish takes the genitive noun and creates the action from the collected answers.
func (h *AdminHandler) AddFinish(c telebot.Context) error {
	ctx := RequestContext(c)
	t := translatorFor(h.translations, c)
	userID := senderID(c)
	value := strings.TrimSpace(c.Text())

	if err := h.catalogue.ValidateField(domain.FieldGenitiveNoun, value); err != nil {
		return h.rejectAnswer(c, t, err)
	}

	st, err := h.fsm.GetState(ctx, userID)
	if err != nil {
		return err
	}

	draft := domain.ActionDraft{
		Name:         st.String(state.KeyName),
		Emoji:        st.String(state.KeyEmoji),
		Infinitive:   st.String(state.KeyInfinitive),
		PastTense:    st.String(state.KeyPastTense),
		GenitiveNoun: value,
	}

	action, err := h.catalogue.CreateAction(ctx, draft)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateName) {
			_ = h.fsm.ClearState(ctx, userID)
			return c.Send(t.F("admin.add.duplicate", map[string]string{"name": draft.Name}), keyboard.RemoveKeyboard())
		}
		if errors.Is(err, apperrors.ErrValidation) {
			return h.rejectAnswer(c, t, err)
		}
		return err
	}

	if err := h.fsm.ClearState(ctx, userID); err != nil {
		h.log.Warn("failed to clear wizard state", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	h.log.Info("action added by admin", slog.Int64("admin_id", userID), slog.Int64("action_id", action.ID))
	if err := c.Send(t.T("admin.add.done"), keyboard.RemoveKeyboard()); err != nil {
		return err
	}
	return c.Send(FormatAction(t, action), h.kb.ActionView(t, action.ID), telebot.ModeHTML)
}

// EditValue applies the answer of the edit wizard.
func (h *AdminHandler) EditValue(c telebot.Context) error {
	ctx := RequestContext(c)
	t := translatorFor(h.translations, c)
	userID := senderID(c)

	st, err := h.fsm.GetState(ctx, userID)
	if err != nil {
		return err
	}

	id, ok := st.Int64(state.KeyActionID)
	field := domain.ActionField(st.String(state.KeyField))
	if !ok || !field.Valid() {
		_ = h.fsm.ClearState(ctx, userID)
		return c.Send(t.T("common.cancelled"), keyboard.RemoveKeyboard())
	}

	value := strings.TrimSpace(c.Text())
	if err := h.catalogue.UpdateAction(ctx, id, field, value); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrValidation):
			return h.rejectAnswer(c, t, err)
		case errors.Is(err, apperrors.ErrDuplicateName):
			return c.Send(t.F("admin.add.duplicate", map[string]string{"name": value}))
		case errors.Is(err, catalogue.ErrNotFound):
			_ = h.fsm.ClearState(ctx, userID)
			return c.Send(t.T("admin.action_missing"), keyboard.RemoveKeyboard())
		default:
			return err
		}
	}

	if err := h.fsm.ClearState(ctx, userID); err != nil {
		h.log.Warn("failed to clear wizard state", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	h.log.Info("action edited by admin", slog.Int64("admin_id", userID), slog.Int64("action_id", id), slog.String("field", string(field)))
	if err := c.Send(t.T("admin.edit.done"), keyboard.RemoveKeyboard()); err != nil {
		return err
	}

	action, err := h.catalogue.GetActionByID(ctx, id)
	if err != nil {
		return nil
	}
	return c.Send(FormatAction(t, action), h.kb.ActionView(t, id), telebot.ModeHTML)
}

// rejectAnswer keeps the wizard on the same step.
func (h *AdminHandler) rejectAnswer(c telebot.Context, t i18n.Translator, err error) error {
	reason := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		reason = appErr.Message
	}
	return c.Send(t.F("admin.invalid", map[string]string{"reason": reason}), keyboard.CancelKeyboard(t))
}
