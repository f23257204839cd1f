package keyboard

import (
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
)

const cancelFallback = "❌ Cancel"

func cancelLabel(t i18n.Translator) string {
	return translated(t, "common.cancel_button", cancelFallback)
}

// CancelKeyboard is the reply keyboard shown while a wizard waits for text.
func CancelKeyboard(t i18n.Translator) *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{
		ResizeKeyboard: true,
		ReplyKeyboard:  [][]telebot.ReplyButton{{{Text: cancelLabel(t)}}},
	}
}

func RemoveKeyboard() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{RemoveKeyboard: true}
}

// IsCancel reports whether text is the cancel button in the user's language.
func IsCancel(t i18n.Translator, text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && text == cancelLabel(t)
}
