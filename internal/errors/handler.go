package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/cuteforcute-bot/pkg/logger"
	"github.com/Proton-105/cuteforcute-bot/pkg/metrics"
)

// DefaultUserMessage is shown when an error carries no message of its own.
const DefaultUserMessage = "Произошла ошибка. Попробуйте позже"

// Handler logs and reports errors and picks the message shown to the user.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

// NewHandler constructs a Handler; sentryEnabled gates Sentry capture.
func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, sentryEnabled: sentryEnabled}
}

// classified is err reduced to what logging, metrics and the user reply need.
type classified struct {
	code        string
	kind        string
	severity    Severity
	retryable   bool
	userMessage string
	attrs       []any
}

func classify(err error) classified {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		return classified{
			code:        "unknown",
			kind:        "unknown",
			severity:    SeverityHigh,
			userMessage: DefaultUserMessage,
			attrs:       []any{slog.String("message", err.Error()), slog.String("type", fmt.Sprintf("%T", err))},
		}
	}

	c := classified{
		code:        appErr.Code,
		kind:        appErr.Code,
		severity:    appErr.Severity,
		retryable:   appErr.Retryable,
		userMessage: appErr.UserMessage,
		attrs:       []any{slog.String("code", appErr.Code), slog.String("message", appErr.Message)},
	}
	if c.userMessage == "" {
		c.userMessage = DefaultUserMessage
	}
	if cause := appErr.Unwrap(); cause != nil {
		c.attrs = append(c.attrs, slog.String("cause", cause.Error()))
	}
	return c
}

// Handle returns the user message for err and whether the operation may be retried.
// Low severity errors log at info; everything else logs at error, and high or critical
// ones go to Sentry when enabled.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c := classify(err)
	metrics.RecordError(c.kind, string(c.severity))

	attrs := append(c.attrs,
		slog.String("severity", string(c.severity)),
		slog.Bool("retryable", c.retryable),
		logger.CorrelationAttr(ctx),
	)

	level := slog.LevelError
	if c.severity == SeverityLow {
		level = slog.LevelInfo
	}
	h.log.Log(ctx, level, "application error", attrs...)

	if h.sentryEnabled && (c.severity == SeverityHigh || c.severity == SeverityCritical) {
		capture(err, c)
	}

	return c.userMessage, c.retryable
}

func capture(err error, c classified) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", c.code)
		scope.SetTag("severity", string(c.severity))
		sentry.CaptureException(err)
	})
}
