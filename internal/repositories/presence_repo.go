package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prudhvinik1/pairup/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:"
	presenceIndexKey  = "index:presence"
)

// RedisPresenceStore keeps each record as a JSON blob and tracks known ids in a
// set so Scan does not need KEYS. Records never expire; staleness is handled by
// the reaper.
type RedisPresenceStore struct {
	client *redis.Client
}

func NewRedisPresenceStore(client *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{client: client}
}

func (r *RedisPresenceStore) Get(ctx context.Context, id string) (*models.UserRecord, error) {
	data, err := r.client.Get(ctx, presenceKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	var record models.UserRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}

	return &record, nil
}

func (r *RedisPresenceStore) Put(ctx context.Context, record *models.UserRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	// Both commands go out in one MULTI so a record is never stored unindexed.
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, presenceKey(record.ID), data, 0)
		pipe.SAdd(ctx, presenceIndexKey, record.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}

	return nil
}

func (r *RedisPresenceStore) Scan(ctx context.Context, match func(*models.UserRecord) bool) ([]*models.UserRecord, error) {
	ids, err := r.client.SMembers(ctx, presenceIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list presence ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = presenceKey(id)
	}

	// MGet retrieves all records in one round trip
	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk presence: %w", err)
	}

	var records []*models.UserRecord
	for _, result := range results {
		data, ok := result.(string)
		if !ok {
			continue
		}

		var record models.UserRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			// A record we cannot decode cannot be matched or reaped either
			continue
		}

		if match(&record) {
			records = append(records, &record)
		}
	}

	return records, nil
}

func presenceKey(id string) string {
	return presenceKeyPrefix + id
}
