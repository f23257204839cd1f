package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// CallbackHandler processes inline callback events.
type CallbackHandler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

const requestContextKey = "request_ctx"

// WithRequestContext attaches the per-update context to c.
func WithRequestContext(c telebot.Context, ctx context.Context) {
	c.Set(requestContextKey, ctx)
}

// RequestContext returns the per-update context, or Background when none was attached.
func RequestContext(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(requestContextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// SenderUser converts the telebot sender into a domain user.
func SenderUser(c telebot.Context) *domain.User {
	if c == nil || c.Sender() == nil {
		return nil
	}
	return FromTelebot(c.Sender())
}

// FromTelebot maps a telebot user to a domain user.
func FromTelebot(u *telebot.User) *domain.User {
	if u == nil {
		return nil
	}

	fullName := u.FirstName
	if u.LastName != "" {
		fullName += " " + u.LastName
	}

	return &domain.User{
		ID:           u.ID,
		Username:     u.Username,
		FullName:     fullName,
		LanguageCode: u.LanguageCode,
	}
}

// translatorFor picks the sender's language, falling back to the default locale.
func translatorFor(translations *i18n.Manager, c telebot.Context) i18n.Translator {
	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	return translations.Translator(lang)
}

func senderID(c telebot.Context) int64 {
	if c == nil || c.Sender() == nil {
		return 0
	}
	return c.Sender().ID
}

func loggerOrDefault(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}
