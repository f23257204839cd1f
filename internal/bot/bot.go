package bot

import (
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/admin"
	"github.com/Proton-105/cuteforcute-bot/internal/bot/handlers"
	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
	"github.com/Proton-105/cuteforcute-bot/internal/catalogue"
	errors "github.com/Proton-105/cuteforcute-bot/internal/errors"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
	"github.com/Proton-105/cuteforcute-bot/internal/idempotency"
	"github.com/Proton-105/cuteforcute-bot/internal/interaction"
	"github.com/Proton-105/cuteforcute-bot/internal/jobs"
	"github.com/Proton-105/cuteforcute-bot/internal/middleware"
	"github.com/Proton-105/cuteforcute-bot/internal/state"
	"github.com/Proton-105/cuteforcute-bot/internal/stats"
	"github.com/Proton-105/cuteforcute-bot/internal/user"
	"github.com/Proton-105/cuteforcute-bot/pkg/config"
)

// Deps are the services the bot routes updates to.
type Deps struct {
	Config       config.Config
	Log          *slog.Logger
	FSM          state.StateMachine
	Translations *i18n.Manager
	Catalogue    *catalogue.Service
	Users        *user.Service
	Admins       *admin.Service
	Stats        *stats.Service
	Resolver     *interaction.Resolver
	Renderer     *interaction.Renderer
	Guard        idempotency.Manager
	Queue        jobs.Enqueuer
	RateLimit    *middleware.Throttle
	Exempt       handlers.Exempter
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot      *telebot.Bot
	log          *slog.Logger
	cfg          config.Config
	router       *Router
	dispatcher   *Dispatcher
	keyboard     *keyboard.Builder
	errHandler   *errors.Handler
	translations *i18n.Manager
}

// New builds a telegram bot instance configured according to the application settings.
func New(deps Deps) (*Bot, error) {
	cfg := deps.Config
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token: cfg.Bot.Token,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.Bot.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.Bot.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	dispatcher := NewDispatcher(deps.FSM)
	b := &Bot{
		telebot:      tb,
		log:          log,
		cfg:          cfg,
		router:       NewRouter(dispatcher, log),
		dispatcher:   dispatcher,
		keyboard:     keyboard.NewBuilder(log),
		errHandler:   errors.NewHandler(log, cfg.Sentry.Enabled),
		translations: deps.Translations,
	}

	b.setupRouter(deps, tb.Me.Username)

	if deps.RateLimit != nil {
		b.telebot.Use(deps.RateLimit.Handle)
	}

	b.registerTelebotHandlers(deps, tb.Me.Username)

	return b, nil
}

// Start publishes the command menu and runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot == nil {
		return
	}

	if err := b.publishCommands(); err != nil {
		b.log.Warn("failed to publish command menu", slog.Any("error", err))
	}

	b.log.Info("telegram bot started", slog.String("username", b.telebot.Me.Username), slog.String("mode", b.cfg.Bot.Mode))
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as broadcast delivery.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter(deps Deps, username string) {
	log := b.log
	requestTimeout := b.cfg.Bot.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}

	b.router.Use(ContextMiddleware(requestTimeout))
	b.router.Use(RecoveryMiddleware(log, b.errHandler, b.translations))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler, b.translations, log))
	b.router.Use(LoggingMiddleware(log))
	b.router.Use(RegistrationMiddleware(deps.Users, log))
	b.router.Use(middleware.Metrics)

	start := handlers.NewStartHandler(b.translations, b.keyboard, username)
	cancel := handlers.NewCancelHandler(deps.FSM, b.translations, log)
	statsHandler := handlers.NewStatsHandler(deps.Stats, deps.Users, deps.Catalogue, b.translations, log)
	interactionHandler := handlers.NewInteractionHandler(
		deps.Catalogue,
		deps.Resolver,
		deps.Guard,
		b.cfg.Cache.IdempotencyTTL,
		b.translations,
		log,
	)
	adminHandler := handlers.NewAdminHandler(handlers.AdminDeps{
		Catalogue:    deps.Catalogue,
		Admins:       deps.Admins,
		Stats:        deps.Stats,
		Users:        deps.Users,
		Queue:        deps.Queue,
		Exempt:       deps.Exempt,
		FSM:          deps.FSM,
		Keyboard:     b.keyboard,
		Translations: b.translations,
		Log:          log,
	})
	guard := adminHandler.RequireAdmin

	b.router.RegisterCommand(CommandStart, start.Start)
	b.router.RegisterCommand(CommandHelp, start.Help)
	b.router.RegisterCommand(CommandStats, statsHandler.HandleStats)
	b.router.RegisterCommand(CommandMe, statsHandler.HandleStats)
	b.router.RegisterCommand(CommandTop, statsHandler.HandleTop)
	b.router.RegisterCommand(CommandCancel, cancel)
	b.router.RegisterCommand(CommandAdmin, guard(adminHandler.Menu))
	b.router.RegisterCommand(CommandAddAdmin, guard(adminHandler.AddAdmin))
	b.router.RegisterCommand(CommandRemoveAdmin, guard(adminHandler.RemoveAdmin))

	b.router.SetCancel(func(c telebot.Context) bool {
		return keyboard.IsCancel(userTranslator(b.translations, c), c.Text())
	}, cancel)

	b.router.RegisterCallback(CallbackInteraction, interactionHandler.Handle)
	b.router.RegisterCallback(CallbackNoop, adminHandler.Noop)
	b.router.RegisterCallback(CallbackCancel, handlers.CallbackHandler(cancel))

	adminCallbacks := map[string]handlers.Handler{
		CallbackAdminMenu:       adminHandler.Menu,
		CallbackAdminList:       adminHandler.List,
		CallbackAdminAction:     adminHandler.Action,
		CallbackAdminAdd:        adminHandler.StartAdd,
		CallbackAdminEdit:       adminHandler.Edit,
		CallbackAdminField:      adminHandler.Field,
		CallbackAdminDelete:     adminHandler.Delete,
		CallbackAdminDeleteOK:   adminHandler.ConfirmDelete,
		CallbackAdminCache:      adminHandler.ClearCache,
		CallbackAdminStats:      adminHandler.Stats,
		CallbackAdminBroadcast:  adminHandler.StartBroadcast,
		CallbackBroadcastSend:   adminHandler.SendBroadcast,
		CallbackBroadcastCancel: adminHandler.CancelBroadcast,
	}
	for unique, h := range adminCallbacks {
		b.router.RegisterCallback(unique, handlers.CallbackHandler(guard(h)))
	}

	for _, s := range []state.State{
		state.StateActionAddName,
		state.StateActionAddEmoji,
		state.StateActionAddInfinitive,
		state.StateActionAddPast,
	} {
		b.dispatcher.Handle(s, adminHandler.AddStep(s))
	}
	b.dispatcher.Handle(state.StateActionAddNoun, guard(adminHandler.AddFinish))
	b.dispatcher.Handle(state.StateActionEditValue, guard(adminHandler.EditValue))
	b.dispatcher.Handle(state.StateBroadcastText, guard(adminHandler.BroadcastText))
	b.dispatcher.Handle(state.StateBroadcastConfirm, guard(adminHandler.BroadcastText))
}

func (b *Bot) registerTelebotHandlers(deps Deps, username string) {
	if b.telebot == nil || b.router == nil {
		return
	}

	inline := handlers.NewInlineHandler(deps.Catalogue, deps.Renderer, b.keyboard, b.translations, username, b.log)

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
	b.telebot.Handle(telebot.OnQuery, b.router.Wrap(inline.HandleQuery))
	b.telebot.Handle(telebot.OnInlineResult, b.router.Wrap(inline.HandleChosen))
}

// publishCommands sets the command menu for every loaded language.
func (b *Bot) publishCommands() error {
	for _, lang := range b.translations.Languages() {
		t := b.translations.Translator(lang)

		commands := make([]telebot.Command, 0, len(publicCommands))
		for _, cmd := range publicCommands {
			commands = append(commands, telebot.Command{
				Text:        cmd[1:],
				Description: t.T("commands." + cmd[1:]),
			})
		}

		opts := []interface{}{telebot.CommandScope{Type: telebot.CommandScopeDefault}}
		if lang != b.translations.DefaultLang() {
			opts = append(opts, lang)
		}
		if err := b.telebot.SetCommands(append([]interface{}{commands}, opts...)...); err != nil {
			return fmt.Errorf("set commands for %s: %w", lang, err)
		}
	}
	return nil
}
