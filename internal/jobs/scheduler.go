package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/cuteforcute-bot/pkg/metrics"
)

// Scheduler enqueues periodic tasks on cron specs evaluated in UTC.
type Scheduler struct {
	inner *asynq.Scheduler
	log   *slog.Logger
}

func NewScheduler(redisOpt asynq.RedisConnOpt, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "scheduler"))

	return &Scheduler{
		inner: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
			Logger:   newAsynqLogger(log),
			Location: time.UTC,
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if info != nil {
					metrics.RecordJobEnqueue(info.Type, err == nil)
				}
				if err != nil {
					log.Error("periodic enqueue failed", slog.Any("error", err))
				}
			},
		}),
		log: log,
	}
}

// WarmCatalogue schedules the catalogue refresh. An empty spec leaves it off.
func (s *Scheduler) WarmCatalogue(spec string) error {
	if spec == "" {
		s.log.Info("catalogue warm-up not scheduled")
		return nil
	}

	entryID, err := s.inner.Register(spec, NewCatalogueWarmTask())
	if err != nil {
		return fmt.Errorf("schedule catalogue warm-up %q: %w", spec, err)
	}
	s.log.Info("catalogue warm-up scheduled", slog.String("spec", spec), slog.String("entry_id", entryID))
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() error {
	return s.inner.Start()
}

func (s *Scheduler) Shutdown() {
	s.inner.Shutdown()
}
