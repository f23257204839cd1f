package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeBroadcastStart   = "broadcast:start"
	TaskTypeBroadcastDeliver = "broadcast:deliver"
	TaskTypeCatalogueWarm    = "catalogue:warm"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// DefaultQueues weights the queues for the worker.
var DefaultQueues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

// BroadcastPayload starts a fan-out of Text to every known user.
type BroadcastPayload struct {
	Text    string `json:"text"`
	AdminID int64  `json:"admin_id"`
}

// DeliverPayload sends one broadcast message to one user.
type DeliverPayload struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

func NewBroadcastTask(text string, adminID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(BroadcastPayload{Text: text, AdminID: adminID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeBroadcastStart, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewDeliverTask schedules a single delivery after delay.
func NewDeliverTask(userID int64, text string, delay time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(DeliverPayload{UserID: userID, Text: text})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskTypeBroadcastDeliver,
		payload,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(5),
		asynq.ProcessIn(delay),
	), nil
}

func NewCatalogueWarmTask() *asynq.Task {
	return asynq.NewTask(TaskTypeCatalogueWarm, nil, asynq.Queue(QueueCritical), asynq.MaxRetry(1))
}
