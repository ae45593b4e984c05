package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/repositories"
	redisclient "github.com/zatekoja/feediq/internal/infrastructure/clients/redis"
	apperrors "github.com/zatekoja/feediq/pkg/errors"
	"github.com/zatekoja/feediq/pkg/retry"
)

// RedisStore keeps every record as one JSON array under a single key.
// Appends run as WATCH/MULTI transactions and retry when another writer wins.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

var _ repositories.FeedbackRepository = (*RedisStore)(nil)

// NewRedisStore creates a store over the given key.
func NewRedisStore(client *redisclient.Client, key string) *RedisStore {
	return &RedisStore{
		client: client.Client(),
		key:    key,
		now:    time.Now,
	}
}

// Append adds the stamped draft to the array atomically.
func (s *RedisStore) Append(ctx context.Context, draft entities.FeedbackDraft) (*entities.Feedback, error) {
	record, err := entities.NewFeedback(draft, s.now())
	if err != nil {
		return nil, apperrors.NewStoreError("Failed to save feedback", err)
	}

	txf := func(tx *redis.Tx) error {
		records, err := s.load(ctx, tx)
		if err != nil {
			return err
		}
		data, err := json.Marshal(append(records, record))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			return nil
		})
		return err
	}

	cfg := retry.ConflictConfig(func(err error) bool { return errors.Is(err, redis.TxFailedErr) })
	err = retry.Do(ctx, cfg, "redis feedback append", func() error {
		return s.client.Watch(ctx, txf, s.key)
	})
	if err != nil {
		return nil, apperrors.NewStoreError("Failed to save feedback", err)
	}

	return record, nil
}

// ListAll returns the stored array. A missing key is an empty store.
func (s *RedisStore) ListAll(ctx context.Context) ([]*entities.Feedback, error) {
	records, err := s.load(ctx, s.client)
	if err != nil {
		return nil, apperrors.NewReadError("failed to list feedback", err)
	}
	return records, nil
}

// getter is the part of redis.Client and redis.Tx that load needs.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, cmd getter) ([]*entities.Feedback, error) {
	data, err := cmd.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []*entities.Feedback{}, nil
	}
	if err != nil {
		return nil, err
	}

	records := []*entities.Feedback{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupt feedback array under %s: %w", s.key, err)
	}
	return records, nil
}
