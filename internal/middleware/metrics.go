package middleware

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/handlers"
	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
	"github.com/Proton-105/cuteforcute-bot/pkg/metrics"
)

// Metrics records the duration and result of every update under its UpdateLabel.
func Metrics(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		began := time.Now()
		err := next(c)

		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.RecordCommand(UpdateLabel(c), result, time.Since(began))
		return err
	}
}

// UpdateLabel names an update by its command, callback unique or kind. Free text and callback
// payloads never become label values.
func UpdateLabel(c telebot.Context) string {
	switch {
	case c == nil:
		return "unknown"
	case c.Query() != nil:
		return "inline_query"
	case c.InlineResult() != nil:
		return "inline_result"
	case c.Callback() != nil:
		if unique, _, err := keyboard.DecodeCallback(c.Callback().Data); err == nil {
			return "cb:" + unique
		}
		return "callback"
	}

	if cmd := CommandName(c.Text()); cmd != "" {
		return cmd
	}
	if c.Message() != nil {
		return "text"
	}
	return "unknown"
}

// CommandName turns "/Cmd@bot args" into "/cmd". Text that is not a command yields "".
func CommandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(strings.Fields(text)[0], "@")
	return strings.ToLower(cmd)
}
