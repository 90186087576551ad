package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/gangsheet/pkg/errors"
	"github.com/matzehuels/gangsheet/pkg/observability"
)

// Redis key layout: one hash field per sheet under a single key, so List
// is one HGETALL and Save/Load are single-field operations.
const redisSheetsKey = "gangsheet:sheets"

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is a Redis-backed saved-sheet store for multi-instance
// deployments where several API servers share the same sheets.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "connect to redis at %s", cfg.Addr)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	stamp(rec)
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "marshal sheet")
	}
	if err := s.client.HSet(ctx, redisSheetsKey, rec.ID, data).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write sheet to redis")
	}
	observability.Store().OnSheetSaved(ctx, rec.ID, len(data))
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Record, error) {
	data, err := s.client.HGet(ctx, redisSheetsKey, id).Bytes()
	if err == redis.Nil {
		observability.Store().OnSheetLoaded(ctx, id, false)
		return nil, errors.New(errors.ErrCodeSheetNotFound, "sheet %q not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read sheet from redis")
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "parse sheet")
	}
	observability.Store().OnSheetLoaded(ctx, id, true)
	return &rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.HDel(ctx, redisSheetsKey, id).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete sheet from redis")
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	fields, err := s.client.HGetAll(ctx, redisSheetsKey).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list sheets from redis")
	}

	recs := make([]Record, 0, len(fields))
	for id, data := range fields {
		var rec Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		if rec.ID == "" {
			rec.ID = id
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
	})
	return recs, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
