// Package notify announces finished scrape runs on a Redis stream so the
// downstream item-detail stage learns that fresh URL files landed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const eventRunCompleted = "run.completed"

// RunEvent is the payload published for each completed run.
type RunEvent struct {
	RunID        string    `json:"run_id"`
	Site         string    `json:"site"`
	Categories   []string  `json:"categories"`
	URLsFound    int       `json:"urls_found"`
	UploadedKeys []string  `json:"uploaded_keys"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Publisher writes run events to one Redis stream.
type Publisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewPublisher(client *redis.Client, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		logger: logger.With("component", "run_publisher"),
	}
}

// PublishRunCompleted appends the event to the stream. A publish failure is
// reported to the caller but must not abort anything: the artifacts are
// already durable in the object stores.
func (p *Publisher) PublishRunCompleted(ctx context.Context, event RunEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"type":    eventRunCompleted,
			"payload": string(payload),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	p.logger.Info("published run event", "stream", p.stream, "id", id, "run_id", event.RunID)
	return nil
}
