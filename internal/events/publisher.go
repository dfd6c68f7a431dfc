package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/doccast/doccast/internal/models"
)

// Channel is the per-session pub/sub channel a UI subscribes to for live
// progress.
func Channel(sessionID string) string {
	return "session:" + sessionID + ":events"
}

// Publisher broadcasts session log events over Redis pub/sub. Publishing is
// best effort; a dropped event never affects the pipeline.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Publish(ctx context.Context, ev models.LogEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, Channel(ev.SessionID), payload).Err()
}
