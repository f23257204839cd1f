package handlers

import (
	"html"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
)

// StartHandler answers /start and /help.
type StartHandler struct {
	translations *i18n.Manager
	keyboard     *keyboard.Builder
	botUsername  string
}

func NewStartHandler(translations *i18n.Manager, kb *keyboard.Builder, botUsername string) *StartHandler {
	return &StartHandler{translations: translations, keyboard: kb, botUsername: botUsername}
}

func (h *StartHandler) Start(c telebot.Context) error {
	t := translatorFor(h.translations, c)

	name := ""
	if u := SenderUser(c); u != nil {
		name = html.EscapeString(u.DisplayName())
	}

	text := t.F("start.welcome", map[string]string{"name": name, "bot": h.botUsername})
	return c.Send(text, telebot.ModeHTML, h.keyboard.StartMenu(t))
}

func (h *StartHandler) Help(c telebot.Context) error {
	t := translatorFor(h.translations, c)
	return c.Send(t.F("help.text", map[string]string{"bot": h.botUsername}), telebot.ModeHTML)
}
