package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/actioncache"
	"github.com/Proton-105/cuteforcute-bot/internal/admin"
	"github.com/Proton-105/cuteforcute-bot/internal/bot"
	"github.com/Proton-105/cuteforcute-bot/internal/catalogue"
	"github.com/Proton-105/cuteforcute-bot/internal/database"
	"github.com/Proton-105/cuteforcute-bot/internal/health"
	"github.com/Proton-105/cuteforcute-bot/internal/httpapi"
	"github.com/Proton-105/cuteforcute-bot/internal/i18n"
	"github.com/Proton-105/cuteforcute-bot/internal/idempotency"
	"github.com/Proton-105/cuteforcute-bot/internal/interaction"
	"github.com/Proton-105/cuteforcute-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/cuteforcute-bot/internal/jobs/handlers"
	"github.com/Proton-105/cuteforcute-bot/internal/lifecycle"
	"github.com/Proton-105/cuteforcute-bot/internal/middleware"
	"github.com/Proton-105/cuteforcute-bot/internal/ratelimit"
	"github.com/Proton-105/cuteforcute-bot/internal/repository"
	"github.com/Proton-105/cuteforcute-bot/internal/state"
	"github.com/Proton-105/cuteforcute-bot/internal/stats"
	"github.com/Proton-105/cuteforcute-bot/internal/user"
	"github.com/Proton-105/cuteforcute-bot/internal/usercache"
	"github.com/Proton-105/cuteforcute-bot/pkg/config"
	"github.com/Proton-105/cuteforcute-bot/pkg/graceful"
	"github.com/Proton-105/cuteforcute-bot/pkg/logger"
	"github.com/Proton-105/cuteforcute-bot/pkg/metrics"
	appredis "github.com/Proton-105/cuteforcute-bot/pkg/redis"
)

const (
	shutdownTimeout  = 15 * time.Second
	cleanupInterval  = 10 * time.Minute
	ratelimitMaxAge  = time.Hour
	idempotencyAge   = 24 * time.Hour
	userCacheTTL     = 10 * time.Minute
	startupTimeout   = 30 * time.Second
	defaultWizardTTL = 30 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cuteforcute-bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			SampleRate:  cfg.Sentry.SampleRate,
			Environment: cfg.Sentry.Environment,
			Release:     cfg.Version,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
	}

	appLog := logger.New(cfg.Logger, cfg.Sentry.Enabled)
	log := appLog.Logger

	log.Info("starting bot",
		slog.String("env", cfg.AppEnv),
		slog.String("version", cfg.Version),
		slog.String("mode", cfg.Bot.Mode),
		slog.Int("http_port", cfg.Server.Port),
	)

	config.Watch(v, log, func(next *config.Config) {
		appLog.SetLevel(next.Logger.Level)
	})

	shutdown := lifecycle.NewShutdown(log)
	shutdown.RegisterCloser("logger", appLog)
	if cfg.Sentry.Enabled {
		shutdown.Register("sentry", func(context.Context) error {
			sentry.Flush(2 * time.Second)
			return nil
		})
	}

	// Everything registered below stops before the logger and sentry flush.
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown.Execute(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "cuteforcute-bot: shutdown: %v\n", err)
		}
	}()

	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	defer cancelStart()

	db, err := database.Open(startCtx, cfg.Database, log)
	if err != nil {
		return err
	}
	shutdown.RegisterCloser("postgres", db)

	if cfg.Database.AutoMigrate {
		if err := database.NewMigrator(db, log).Up(startCtx); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	redisClient, err := appredis.New(startCtx, appredis.Config{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	shutdown.RegisterCloser("redis", redisClient)
	rdb := redisClient.Raw()
	if err := prometheus.Register(appredis.NewPoolCollector(redisClient)); err != nil {
		log.Warn("failed to register redis pool metrics", slog.Any("error", err))
	}

	translations, err := i18n.Load(cfg.Bot.DefaultLocale)
	if err != nil {
		return err
	}

	actionRepo := repository.NewActionRepository(db, log)
	interactionRepo := repository.NewInteractionRepository(db, log)
	statsRepo := repository.NewStatsRepository(db, log)
	userRepo := repository.NewUserRepository(db, log)
	adminRepo := repository.NewAdminRepository(db, log)

	actions := actioncache.New(redisClient, log, actioncache.Options{
		AllActionsTTL: cfg.Cache.AllActionsTTL,
		ActionTTL:     cfg.Cache.ActionTTL,
	})

	statsService := stats.NewService(statsRepo, log)
	catalogueService := catalogue.NewService(actionRepo, interactionRepo, actions, statsService, log)
	userService := user.NewService(userRepo, usercache.NewCache(rdb, userCacheTTL), log)
	adminService := admin.NewService(adminRepo, cfg.Admin.OwnerID, log)

	renderer := interaction.NewRenderer(translations)
	resolver := interaction.NewResolver(
		catalogueService,
		userService,
		interactionRepo,
		statsService,
		database.NewTransactor(db, log),
		renderer,
		log,
	)

	wizardTTL := cfg.Cache.WizardTTL
	if wizardTTL <= 0 {
		wizardTTL = defaultWizardTTL
	}
	fsm := state.NewStateMachine(state.NewRedisStorage(rdb, log, wizardTTL), log, rdb)

	guard := idempotency.NewManager(idempotency.NewRedisStore(rdb, log), log)

	memoryLimiter := ratelimit.NewMemoryLimiter(log)
	rules, err := ratelimit.NewRules(cfg.RateLimit)
	if err != nil {
		return err
	}
	adminIDs, err := adminService.IDs(startCtx)
	if err != nil {
		log.Warn("failed to load admin ids for rate-limit whitelist", slog.Any("error", err))
	}
	rules.Exempt(adminIDs...)

	var rateLimit *middleware.Throttle
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.Backend, rdb, memoryLimiter, log)
		rateLimit = middleware.NewThrottle(limiter, rules, func(c telebot.Context) string {
			lang := ""
			if sender := c.Sender(); sender != nil {
				lang = sender.LanguageCode
			}
			return translations.Translator(lang).T("ratelimit.notice")
		}, log)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	queue := jobs.NewQueue(redisOpt, log)
	shutdown.RegisterCloser("jobs queue", queue)

	telegram, err := bot.New(bot.Deps{
		Config:       *cfg,
		Log:          log,
		FSM:          fsm,
		Translations: translations,
		Catalogue:    catalogueService,
		Users:        userService,
		Admins:       adminService,
		Stats:        statsService,
		Resolver:     resolver,
		Renderer:     renderer,
		Guard:        guard,
		Queue:        queue,
		RateLimit:    rateLimit,
		Exempt:       rules,
	})
	if err != nil {
		return err
	}

	if cfg.Jobs.Enabled {
		worker := jobs.NewWorker(redisOpt, cfg.Jobs.Concurrency, log)
		broadcasts := jobhandlers.NewBroadcastHandler(userService, queue, telegram.Telebot(), log)
		worker.RegisterHandler(jobs.TaskTypeBroadcastStart, asynq.HandlerFunc(broadcasts.ProcessTask))
		worker.RegisterHandler(jobs.TaskTypeBroadcastDeliver, asynq.HandlerFunc(broadcasts.ProcessDelivery))
		worker.RegisterHandler(jobs.TaskTypeCatalogueWarm, asynq.HandlerFunc(jobhandlers.NewCatalogueWarmHandler(catalogueService, log).ProcessTask))

		go func() {
			if err := worker.Run(); err != nil {
				log.Error("jobs worker stopped", slog.Any("error", err))
			}
		}()
		shutdown.Register("jobs worker", func(context.Context) error {
			worker.Shutdown()
			return nil
		})

		scheduler := jobs.NewScheduler(redisOpt, log)
		if err := scheduler.WarmCatalogue(cfg.Jobs.WarmCacheSpec); err != nil {
			return err
		}
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		shutdown.Register("jobs scheduler", func(context.Context) error {
			scheduler.Shutdown()
			return nil
		})
	}

	if err := catalogueService.Warm(startCtx); err != nil {
		log.Warn("catalogue warm-up failed", slog.Any("error", err))
	}

	go ratelimit.NewCleaner(memoryLimiter, rdb, log, cleanupInterval, ratelimitMaxAge).Run(ctx)
	go idempotency.NewCleaner(rdb, log, cleanupInterval, idempotencyAge).Run(ctx)
	go metrics.NewStateCollector(fsm).Run(ctx)

	serviceName := cfg.Bot.ServiceName
	if err := metrics.RegisterUptime(prometheus.DefaultRegisterer, startedAt, cfg.Version, serviceName); err != nil {
		log.Warn("failed to register uptime metric", slog.Any("error", err))
	}

	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(rdb))
	probes := lifecycle.NewProbes(checker, serviceName, cfg.Version, startedAt, log)

	httpServer := graceful.NewServer(log, &http.Server{
		Addr: ":" + strconv.Itoa(cfg.Server.Port),
		Handler: httpapi.NewHandler(httpapi.Options{
			Probes:         probes,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Log:            log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}, shutdownTimeout)

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpServer.ListenAndServe(ctx)
	}()

	go telegram.Start()
	shutdown.Register("telegram bot", func(context.Context) error {
		telegram.Stop()
		return nil
	})

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-httpErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	return nil
}
