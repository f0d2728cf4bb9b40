package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeDraftSaved   EventType = "draft.saved"
	EventTypeDraftDeleted EventType = "draft.deleted"
	EventTypeFieldChanged EventType = "field.changed"
)

// Event represents a generic event structure
type Event struct {
	Type         EventType      `json:"type"`
	RespondentID string         `json:"respondent_id"`
	Data         map[string]any `json:"data,omitempty"`
}

// Channel returns the Pub/Sub channel of one respondent.
func Channel(respondentID string) string {
	return fmt.Sprintf("survey-events:%s", respondentID)
}

// Publisher sends survey events. Broadcaster is the Redis implementation.
type Publisher interface {
	PublishDraftSaved(ctx context.Context, respondentID, timestamp string) error
	PublishDraftDeleted(ctx context.Context, respondentID string) error
	PublishFieldChanged(ctx context.Context, respondentID, field string, totalElements int) error
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishDraftSaved publishes a draft.saved event
func (b *Broadcaster) PublishDraftSaved(ctx context.Context, respondentID, timestamp string) error {
	return b.publish(ctx, Event{
		Type:         EventTypeDraftSaved,
		RespondentID: respondentID,
		Data:         map[string]any{"timestamp": timestamp},
	})
}

// PublishDraftDeleted publishes a draft.deleted event
func (b *Broadcaster) PublishDraftDeleted(ctx context.Context, respondentID string) error {
	return b.publish(ctx, Event{
		Type:         EventTypeDraftDeleted,
		RespondentID: respondentID,
	})
}

// PublishFieldChanged publishes a field.changed event. totalElements is the
// marker count of a story-grid field, or -1 for plain fields.
func (b *Broadcaster) PublishFieldChanged(ctx context.Context, respondentID, field string, totalElements int) error {
	data := map[string]any{"field": field}
	if totalElements >= 0 {
		data["total_elements"] = totalElements
	}
	return b.publish(ctx, Event{
		Type:         EventTypeFieldChanged,
		RespondentID: respondentID,
		Data:         data,
	})
}

// Subscribe opens a subscription to one respondent's channel. The caller
// closes the returned PubSub.
func (b *Broadcaster) Subscribe(ctx context.Context, respondentID string) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(respondentID))
}

func (b *Broadcaster) publish(ctx context.Context, event Event) error {
	channel := Channel(event.RespondentID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)
	return nil
}
