package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/botforgehq/botforge/internal/config"
)

// Client enqueues background tasks. Triggering API calls persist initial
// state and return immediately; the worker picks the task up from here.
type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Generation runs mark their own terminal failure state, so a queue-level
// retry would re-run an already-failed job.
func (c *Client) EnqueueDatasetGenerate(payload DatasetGeneratePayload) error {
	return c.enqueue(TypeDatasetGenerate, payload, asynq.MaxRetry(0), asynq.Timeout(60*time.Minute))
}

func (c *Client) EnqueueFinetunePoll(payload FinetunePollPayload) error {
	return c.enqueue(TypeFinetunePoll, payload, asynq.MaxRetry(3), asynq.Timeout(6*time.Hour))
}

func (c *Client) EnqueueReportEvaluate(payload ReportEvaluatePayload) error {
	return c.enqueue(TypeReportEvaluate, payload, asynq.MaxRetry(1), asynq.Timeout(60*time.Minute))
}

func (c *Client) enqueue(taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := c.client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
