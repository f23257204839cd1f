package bot

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/handlers"
	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
	"github.com/Proton-105/cuteforcute-bot/internal/middleware"
)

// Router picks one handler per text or callback update and runs it through the middleware chain.
//
// Text resolution order: registered command, cancel button, current wizard step, fallback.
// Callbacks are matched on the unique part of their data. All registration happens before the
// bot starts, so the tables are read without locking.
type Router struct {
	commands  map[string]handlers.Handler
	callbacks map[string]handlers.CallbackHandler
	steps     *Dispatcher

	isCancel func(c telebot.Context) bool
	cancel   handlers.Handler
	fallback handlers.Handler

	chain []handlers.Middleware
	log   *slog.Logger
}

// NewRouter returns a Router that consults steps for wizard input. steps may be nil.
func NewRouter(steps *Dispatcher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		commands:  make(map[string]handlers.Handler),
		callbacks: make(map[string]handlers.CallbackHandler),
		steps:     steps,
		log:       log,
	}
}

// RegisterCommand binds a command such as "/start". Lookup ignores case and a @botname suffix.
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.commands[cmd] = h
}

// RegisterCallback binds a callback unique.
func (r *Router) RegisterCallback(unique string, h handlers.CallbackHandler) {
	r.callbacks[unique] = h
}

// Use appends mw; the first registered middleware is the outermost.
func (r *Router) Use(mw handlers.Middleware) {
	r.chain = append(r.chain, mw)
}

// SetCancel routes texts accepted by match, such as the reply-keyboard cancel button, to h.
func (r *Router) SetCancel(match func(c telebot.Context) bool, h handlers.Handler) {
	r.isCancel, r.cancel = match, h
}

// SetDefault sets the handler for text nothing else claimed.
func (r *Router) SetDefault(h handlers.Handler) {
	r.fallback = h
}

// Route is the telebot handler for OnText and OnCallback.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}
	if cb := c.Callback(); cb != nil {
		return r.routeCallback(c, cb.Data)
	}
	return r.Wrap(r.routeText)(c)
}

// Wrap runs h through the middleware chain; used for updates registered directly on telebot.
func (r *Router) Wrap(h handlers.Handler) telebot.HandlerFunc {
	wrapped := h
	for i := len(r.chain) - 1; i >= 0; i-- {
		wrapped = r.chain[i](wrapped)
	}
	return telebot.HandlerFunc(wrapped)
}

func (r *Router) routeCallback(c telebot.Context, data string) error {
	unique, _, err := keyboard.DecodeCallback(data)
	if err != nil {
		r.log.Warn("invalid callback data", slog.Any("error", err))
		return c.Respond()
	}

	h, ok := r.callbacks[unique]
	if !ok {
		r.log.Info("no callback handler found", slog.String("unique", unique))
		return c.Respond()
	}
	return r.Wrap(handlers.Handler(h))(c)
}

// routeText runs inside the chain so that the wizard lookup sees the request context.
func (r *Router) routeText(c telebot.Context) error {
	if h, ok := r.commands[middleware.CommandName(c.Text())]; ok {
		return h(c)
	}

	if r.isCancel != nil && r.cancel != nil && r.isCancel(c) {
		return r.cancel(c)
	}

	step, err := r.steps.Lookup(c)
	if err != nil {
		return err
	}
	if step != nil {
		return step(c)
	}

	if r.fallback != nil {
		return r.fallback(c)
	}
	return nil
}
