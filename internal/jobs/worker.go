package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	apperrors "github.com/Proton-105/cuteforcute-bot/internal/errors"
	"github.com/Proton-105/cuteforcute-bot/pkg/metrics"
)

// Worker processes queued tasks until shut down.
type Worker interface {
	RegisterHandler(taskType string, handler asynq.Handler)
	Run() error
	Shutdown()
}

type worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

var _ Worker = (*worker)(nil)

func NewWorker(redisOpt asynq.RedisConnOpt, concurrency int, log *slog.Logger) Worker {
	if log == nil {
		log = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	log = log.With(slog.String("component", "jobs_worker"))

	server := asynq.NewServer(redisOpt, asynq.Config{
		Queues:         DefaultQueues,
		Concurrency:    concurrency,
		RetryDelayFunc: RetryDelay,
		Logger:         newAsynqLogger(log),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.ErrorContext(ctx, "task failed",
				slog.String("task_type", task.Type()),
				slog.Int("retry", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err),
			)
		}),
	})

	mux := asynq.NewServeMux()
	mux.Use(instrument)

	return &worker{server: server, mux: mux, log: log}
}

func (w *worker) RegisterHandler(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

func (w *worker) Run() error {
	w.log.Info("starting processing loop")
	return w.server.Run(w.mux)
}

func (w *worker) Shutdown() {
	w.log.Info("shutting down")
	w.server.Shutdown()
}

// RetryDelay honours a wait requested by Telegram and falls back to asynq's exponential backoff.
func RetryDelay(n int, err error, task *asynq.Task) time.Duration {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.RetryAfter > 0 {
		return appErr.RetryAfter
	}
	return asynq.DefaultRetryDelayFunc(n, err, task)
}

func instrument(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, task)

		outcome := "ok"
		switch {
		case errors.Is(err, asynq.SkipRetry):
			outcome = "dropped"
		case err != nil:
			outcome = "error"
		}
		metrics.RecordJob(task.Type(), outcome, time.Since(start))
		return err
	})
}
