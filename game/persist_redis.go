package game

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

type RedisTableStateTracker struct {
	rdclient *redis.Client
	ttl      time.Duration
}

func NewRedisTableStateTracker(redisURL string, redisPW string, redisDB int, ttl time.Duration) *RedisTableStateTracker {
	rdclient := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: redisPW,
		DB:       redisDB,
	})
	return &RedisTableStateTracker{
		rdclient: rdclient,
		ttl:      ttl,
	}
}

func tableKey(gameCode string) string {
	return fmt.Sprintf("table|%s", gameCode)
}

func (r *RedisTableStateTracker) Load(gameCode string) (*TableView, error) {
	viewBytes, err := r.rdclient.Get(context.Background(), tableKey(gameCode)).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrapf(ErrTableStateNotFound, "Table state for game: %s is not found", gameCode)
	} else if err != nil {
		return nil, err
	}
	view := &TableView{}
	err = viewCodec.Unmarshal(viewBytes, view)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (r *RedisTableStateTracker) Save(gameCode string, view *TableView) error {
	viewBytes, err := viewCodec.Marshal(view)
	if err != nil {
		return err
	}
	return r.rdclient.Set(context.Background(), tableKey(gameCode), viewBytes, r.ttl).Err()
}

func (r *RedisTableStateTracker) Remove(gameCode string) error {
	return r.rdclient.Del(context.Background(), tableKey(gameCode)).Err()
}

func (r *RedisTableStateTracker) Close() error {
	return r.rdclient.Close()
}
