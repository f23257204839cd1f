package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/ratelimit"
	"github.com/Proton-105/cuteforcute-bot/pkg/metrics"
)

const limiterTimeout = time.Second

// Throttle drops messages and callbacks from users over any of their limits. Inline queries and
// chosen results pass untouched: Telegram debounces them and a dropped query empties the picker.
type Throttle struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	notice  func(c telebot.Context) string
	log     *slog.Logger
}

// NewThrottle returns a Throttle. notice supplies the toast for a throttled callback and may be nil.
func NewThrottle(limiter ratelimit.Limiter, rules *ratelimit.Rules, notice func(c telebot.Context) string, log *slog.Logger) *Throttle {
	if log == nil {
		log = slog.Default()
	}
	return &Throttle{limiter: limiter, rules: rules, notice: notice, log: log}
}

// Handle is the telebot middleware.
func (t *Throttle) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if t.limiter == nil || t.rules == nil || c.Query() != nil || c.InlineResult() != nil {
			return next(c)
		}
		sender := c.Sender()
		if sender == nil || t.rules.IsExempt(sender.ID) {
			return next(c)
		}

		ctx, cancel := context.WithTimeout(context.Background(), limiterTimeout)
		scope, over := t.firstExceeded(ctx, sender.ID, CommandName(c.Text()))
		cancel()
		if !over {
			return next(c)
		}

		t.log.Debug("update throttled", slog.Int64("user_id", sender.ID), slog.String("key", scope))
		kind, _, _ := strings.Cut(scope, ":")
		metrics.RecordThrottled(kind)
		if c.Callback() == nil {
			return nil
		}
		text := ""
		if t.notice != nil {
			text = t.notice(c)
		}
		return c.Respond(&telebot.CallbackResponse{Text: text})
	}
}

// firstExceeded reports the first scope whose limit is used up. Limiter errors count as allowed.
func (t *Throttle) firstExceeded(ctx context.Context, userID int64, command string) (string, bool) {
	for _, scope := range t.rules.Scopes(userID, command) {
		res, err := t.limiter.Check(ctx, scope.Key, scope.Limit, scope.Window)
		if err != nil {
			t.log.Warn("rate limiter unavailable", slog.String("key", scope.Key), slog.Any("error", err))
			continue
		}
		if !res.Allowed {
			return scope.Key, true
		}
	}
	return "", false
}
