package handlers

import (
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
	"github.com/Proton-105/cuteforcute-bot/internal/state"
)

// NewCancelHandler leaves the running wizard. It serves /cancel, the reply cancel button and
// the inline cancel buttons.
func NewCancelHandler(fsm state.StateMachine, translations *i18n.Manager, log *slog.Logger) Handler {
	log = loggerOrDefault(log)

	return func(c telebot.Context) error {
		userID := senderID(c)
		if userID == 0 {
			return nil
		}
		ctx := RequestContext(c)
		t := translatorFor(translations, c)

		reply := "common.cancelled"
		switch current, err := fsm.GetState(ctx, userID); {
		case errors.Is(err, state.ErrStateNotFound), err == nil && current.CurrentState == state.StateIdle:
			reply = "common.nothing_to_cancel"
		case err != nil:
			return err
		default:
			if err := fsm.ClearState(ctx, userID); err != nil {
				return err
			}
			log.Debug("wizard cancelled", slog.Int64("user_id", userID), slog.String("state", string(current.CurrentState)))
		}

		if c.Callback() != nil {
			_ = c.Respond()
			return c.Edit(t.T(reply))
		}
		return c.Send(t.T(reply), keyboard.RemoveKeyboard())
	}
}
