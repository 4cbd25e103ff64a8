package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	historyKeyPrefix  = "pharmastore:chat:"
	DefaultHistoryTTL = 24 * time.Hour
)

// RedisHistory stores each session's turns in a capped Redis list.
type RedisHistory struct {
	client *redis.Client
	max    int
	ttl    time.Duration
}

// NewRedisHistory connects to redisURL (redis://...) and verifies the connection.
func NewRedisHistory(ctx context.Context, redisURL string) (*RedisHistory, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed at %s: %w", opt.Addr, err)
	}
	return NewRedisHistoryFromClient(client), nil
}

func NewRedisHistoryFromClient(client *redis.Client) *RedisHistory {
	return &RedisHistory{client: client, max: DefaultHistoryTurns, ttl: DefaultHistoryTTL}
}

func (h *RedisHistory) key(sessionID string) string { return historyKeyPrefix + sessionID }

func (h *RedisHistory) Load(ctx context.Context, sessionID string) ([]Message, error) {
	raw, err := h.client.LRange(ctx, h.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]Message, 0, len(raw))
	for _, s := range raw {
		var m Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (h *RedisHistory) Append(ctx context.Context, sessionID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	vals := make([]any, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		vals = append(vals, b)
	}
	key := h.key(sessionID)
	_, err := h.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, vals...)
		p.LTrim(ctx, key, int64(-h.max), -1)
		p.Expire(ctx, key, h.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (h *RedisHistory) Close() error { return h.client.Close() }
