package handlers

import (
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
	"github.com/Proton-105/cuteforcute-bot/internal/jobs"
	"github.com/Proton-105/cuteforcute-bot/internal/state"
)

// broadcastMaxLen is Telegram's message length limit.
const broadcastMaxLen = 4096

// StartBroadcast serves adm_bc and asks for the message body.
func (h *AdminHandler) StartBroadcast(c telebot.Context) error {
	t := translatorFor(h.translations, c)
	if err := h.fsm.SetState(RequestContext(c), senderID(c), state.StateBroadcastText, map[string]interface{}{}); err != nil {
		return err
	}

	_ = c.Respond()
	return c.Send(t.T("admin.broadcast.prompt"), keyboard.CancelKeyboard(t))
}

// BroadcastText stores the body and shows a preview. A new text in the confirm step replaces the old one.
func (h *AdminHandler) BroadcastText(c telebot.Context) error {
	ctx := RequestContext(c)
	t := translatorFor(h.translations, c)
	userID := senderID(c)
	text := strings.TrimSpace(c.Text())

	if text == "" || len(text) > broadcastMaxLen {
		return c.Send(t.T("admin.broadcast.invalid"), keyboard.CancelKeyboard(t))
	}

	if err := h.fsm.SetState(ctx, userID, state.StateBroadcastConfirm, map[string]interface{}{
		state.KeyBroadcastText: text,
	}); err != nil {
		return err
	}

	if err := c.Send(t.T("admin.broadcast.preview"), keyboard.RemoveKeyboard()); err != nil {
		return err
	}
	return c.Send(text, h.kb.BroadcastConfirm(t), telebot.ModeHTML)
}

// SendBroadcast serves bc_send and enqueues the fan-out task.
func (h *AdminHandler) SendBroadcast(c telebot.Context) error {
	ctx := RequestContext(c)
	t := translatorFor(h.translations, c)
	userID := senderID(c)

	st, err := h.fsm.GetState(ctx, userID)
	if err != nil || st.CurrentState != state.StateBroadcastConfirm {
		return c.Respond(&telebot.CallbackResponse{Text: t.T("admin.broadcast.expired"), ShowAlert: true})
	}

	text := st.String(state.KeyBroadcastText)
	task, err := jobs.NewBroadcastTask(text, userID)
	if err != nil {
		return err
	}

	info, err := h.queue.Enqueue(ctx, task)
	if err != nil {
		return err
	}

	if err := h.fsm.ClearState(ctx, userID); err != nil {
		h.log.Warn("failed to clear wizard state", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	h.log.Info("broadcast enqueued", slog.Int64("admin_id", userID), slog.String("task_id", info.ID))
	_ = c.Respond(&telebot.CallbackResponse{Text: t.T("admin.broadcast.queued")})
	return c.Edit(t.T("admin.broadcast.queued"), h.kb.BackToMenu(t))
}

// CancelBroadcast serves bc_cancel.
func (h *AdminHandler) CancelBroadcast(c telebot.Context) error {
	t := translatorFor(h.translations, c)
	if err := h.fsm.ClearState(RequestContext(c), senderID(c)); err != nil {
		return err
	}

	_ = c.Respond()
	return c.Edit(t.T("common.cancelled"), h.kb.BackToMenu(t))
}
