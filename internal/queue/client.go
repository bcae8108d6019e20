package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/gradbot/internal/config"
)

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

// EnqueueDocumentIndex schedules (re-)indexing of a single document.
// Indexing is delete-then-insert and safe to repeat, so retries are
// cheap.
func (c *Client) EnqueueDocumentIndex(documentID uuid.UUID, filePath string) error {
	payload := DocumentIndexPayload{
		DocumentID: documentID.String(),
		FilePath:   filePath,
	}
	return c.enqueue(TypeDocumentIndex, payload, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute))
}

// EnqueueCorpusReindex schedules re-indexing of every document.
func (c *Client) EnqueueCorpusReindex() error {
	return c.enqueue(TypeCorpusReindex, struct{}{}, asynq.MaxRetry(1), asynq.Timeout(2*time.Hour), asynq.Queue("low"))
}

func (c *Client) enqueue(taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
