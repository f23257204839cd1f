package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/handlers"
	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	errors "github.com/Proton-105/cuteforcute-bot/internal/errors"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
	"github.com/Proton-105/cuteforcute-bot/internal/middleware"
	"github.com/Proton-105/cuteforcute-bot/pkg/logger"
)

const defaultRequestTimeout = 10 * time.Second

// Registrar upserts the profile of whoever sent an update.
type Registrar interface {
	Register(ctx context.Context, u *domain.User) (*domain.User, error)
}

// ContextMiddleware attaches a per-update context with a deadline and a correlation id.
func ContextMiddleware(timeout time.Duration) handlers.Middleware {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			handlers.WithRequestContext(c, logger.WithCorrelationID(ctx, uuid.NewString()))
			return next(c)
		}
	}
}

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler, translations *i18n.Manager) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					if errHandler != nil {
						errHandler.Handle(handlers.RequestContext(c), fmt.Errorf("panic recovered: %v", r))
					}

					if notifyErr := notify(c, userTranslator(translations, c).T("common.error")); notifyErr != nil {
						log.Error("failed to notify user about panic", slog.Any("error", notifyErr))
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
// Expected errors show their own message; anything else shows the generic one.
func ErrorHandlingMiddleware(errHandler *errors.Handler, translations *i18n.Manager, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := userTranslator(translations, c).T("common.error")
			if errHandler != nil {
				msg, _ := errHandler.Handle(handlers.RequestContext(c), err)
				if msg != "" && errors.IsExpected(err) {
					userMsg = msg
				}
			}

			if notifyErr := notify(c, userMsg); notifyErr != nil {
				log.Warn("failed to deliver error message", slog.Any("error", notifyErr))
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			userID := int64(0)
			if c != nil && c.Sender() != nil {
				userID = c.Sender().ID
			}

			ctx := handlers.RequestContext(c)
			attrs := []any{
				slog.Int64("user_id", userID),
				slog.String("update", middleware.UpdateLabel(c)),
				logger.CorrelationAttr(ctx),
			}

			log.Debug("handling update", attrs...)
			err := next(c)

			attrs = append(attrs, slog.Duration("duration", time.Since(start)))
			if err != nil {
				log.Warn("update failed", append(attrs, slog.Any("error", err))...)
				return err
			}
			log.Info("handled update", attrs...)

			return nil
		}
	}
}

// RegistrationMiddleware records the sender so later lookups (mentions, proposals) can resolve them.
// A failed upsert is logged and the update proceeds.
func RegistrationMiddleware(users Registrar, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if users == nil || c == nil || c.Sender() == nil || c.Sender().IsBot {
				return next(c)
			}

			if _, err := users.Register(handlers.RequestContext(c), handlers.FromTelebot(c.Sender())); err != nil {
				log.Error("failed to register user", slog.Int64("user_id", c.Sender().ID), slog.Any("error", err))
			}

			return next(c)
		}
	}
}

// notify delivers text in the form the update allows: a toast, an empty inline answer or a message.
func notify(c telebot.Context, text string) error {
	if c == nil {
		return nil
	}

	switch {
	case c.Callback() != nil:
		return c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: true})
	case c.Query() != nil:
		return c.Answer(&telebot.QueryResponse{Results: telebot.Results{}, CacheTime: 1})
	case c.InlineResult() != nil:
		return nil
	default:
		return c.Send(text)
	}
}

func userTranslator(translations *i18n.Manager, c telebot.Context) i18n.Translator {
	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	return translations.Translator(lang)
}
