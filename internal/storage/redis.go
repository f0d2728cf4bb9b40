package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/story-grid/pkg/survey"
	"github.com/redis/go-redis/v9"
)

// DefaultDraftTTL is how long an untouched draft stays cached.
const DefaultDraftTTL = 30 * 24 * time.Hour

// RedisStorage implements DraftStore on Redis. Each draft is a JSON string
// under draft:<respondentId> with a TTL refreshed on every save.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStorage implements DraftStore interface
var _ DraftStore = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// redis:// URL or a bare host:port.
func NewRedisStorage(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		opts = parsed
	}
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &RedisStorage{
		client: redis.NewClient(opts),
		logger: logger,
		ttl:    ttl,
	}, nil
}

// Client returns the underlying Redis client for pub/sub.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Draft operations

func (r *RedisStorage) SaveDraft(ctx context.Context, doc survey.Document) error {
	if err := ValidateRespondentID(doc.RespondentID); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		r.logger.Error("Failed to marshal draft", "respondent_id", doc.RespondentID, "error", err)
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	if err := r.client.Set(ctx, draftKey(doc.RespondentID), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save draft", "respondent_id", doc.RespondentID, "error", err)
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadDraft(ctx context.Context, respondentID string) (survey.Document, error) {
	if err := ValidateRespondentID(respondentID); err != nil {
		return survey.Document{}, err
	}
	data, err := r.client.Get(ctx, draftKey(respondentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return survey.Document{}, fmt.Errorf("%w: %s", ErrDraftNotFound, respondentID)
		}
		r.logger.Error("Failed to load draft", "respondent_id", respondentID, "error", err)
		return survey.Document{}, fmt.Errorf("failed to load draft: %w", err)
	}

	doc, err := survey.DecodeDocument(data)
	if err != nil {
		r.logger.Error("Failed to unmarshal draft", "respondent_id", respondentID, "error", err)
		return survey.Document{}, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return doc, nil
}

func (r *RedisStorage) DeleteDraft(ctx context.Context, respondentID string) error {
	if err := ValidateRespondentID(respondentID); err != nil {
		return err
	}
	n, err := r.client.Del(ctx, draftKey(respondentID)).Result()
	if err != nil {
		r.logger.Error("Failed to delete draft", "respondent_id", respondentID, "error", err)
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, respondentID)
	}
	return nil
}
