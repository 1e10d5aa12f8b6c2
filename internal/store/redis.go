package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/uidkeeper/uidkeeper/internal/expiry"
)

// DefaultRedisKey is the hash that holds all records when no key is configured.
const DefaultRedisKey = "uidkeeper:uids"

// Redis stores records in a single hash: field = UID, value = expiration string.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis returns a Redis backend using the hash at key.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) Name() string { return "redis" }

// Load reads the whole hash. A missing key is an empty set.
func (r *Redis) Load(ctx context.Context) (Records, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: hgetall %q: %w", r.key, err)
	}
	recs := make(Records, len(fields))
	for uid, raw := range fields {
		exp, err := expiry.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("redis store: uid %q: %w", uid, err)
		}
		recs[uid] = exp
	}
	return recs, nil
}

// Save replaces the hash with recs inside a MULTI/EXEC block.
func (r *Redis) Save(ctx context.Context, recs Records) error {
	values := make(map[string]interface{}, len(recs))
	for uid, exp := range recs {
		values[uid] = exp.String()
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		if len(values) > 0 {
			pipe.HSet(ctx, r.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis store: save %q: %w", r.key, err)
	}
	return nil
}
