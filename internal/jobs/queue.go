package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/cuteforcute-bot/pkg/metrics"
)

// Enqueuer submits background tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue is the asynq client used by the broadcast flow.
type Queue struct {
	client *asynq.Client
	log    *slog.Logger
}

func NewQueue(redisOpt asynq.RedisConnOpt, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{client: asynq.NewClient(redisOpt), log: log.With(slog.String("component", "jobs"))}
}

// Enqueue submits task. A task rejected as a duplicate of one still pending yields an error
// matching asynq.ErrDuplicateTask or asynq.ErrTaskIDConflict.
func (q *Queue) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if task == nil {
		return nil, errors.New("enqueue: nil task")
	}

	info, err := q.client.EnqueueContext(ctx, task, opts...)
	metrics.RecordJobEnqueue(task.Type(), err == nil)
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask), errors.Is(err, asynq.ErrTaskIDConflict):
		q.log.InfoContext(ctx, "task already queued", slog.String("task_type", task.Type()))
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	case err != nil:
		q.log.ErrorContext(ctx, "enqueue failed", slog.String("task_type", task.Type()), slog.Any("error", err))
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}

	q.log.DebugContext(ctx, "task enqueued",
		slog.String("task_type", task.Type()),
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue))
	return info, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}
