// SPDX-License-Identifier: MIT

package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds Redis stream connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number

	Stream   string
	Group    string
	Consumer string // defaults to <hostname>-<pid>

	Block time.Duration
}

// RedisSource reads a Redis stream through a consumer group.
type RedisSource struct {
	client   *redis.Client
	logger   zerolog.Logger
	stream   string
	group    string
	consumer string
	block    time.Duration
}

// NewRedisSource connects, pings and ensures the consumer group exists.
// Connection failures are reported as ErrUnavailable.
func NewRedisSource(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisSource, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis %s: %v", ErrUnavailable, cfg.Addr, err)
	}

	err := client.XGroupCreateMkStream(pingCtx, cfg.Stream, cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		_ = client.Close()
		return nil, fmt.Errorf("%w: create consumer group %s on %s: %v", ErrUnavailable, cfg.Group, cfg.Stream, err)
	}

	consumer := cfg.Consumer
	if consumer == "" {
		host, _ := os.Hostname()
		consumer = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	block := cfg.Block
	if block <= 0 {
		block = 2 * time.Second
	}

	logger.Info().
		Str("event", "processor.source_connected").
		Str("addr", cfg.Addr).
		Str("stream", cfg.Stream).
		Str("group", cfg.Group).
		Str("consumer", consumer).
		Msg("connected to Redis event stream")

	return &RedisSource{
		client:   client,
		logger:   logger,
		stream:   cfg.Stream,
		group:    cfg.Group,
		consumer: consumer,
		block:    block,
	}, nil
}

// Read fetches up to max new entries for this consumer.
func (s *RedisSource) Read(ctx context.Context, max int) ([]Event, error) {
	res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    int64(max),
		Block:    s.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Event
	for _, stream := range res {
		for _, msg := range stream.Messages {
			out = append(out, decodeMessage(msg))
		}
	}
	return out, nil
}

// Ack acknowledges processed entries.
func (s *RedisSource) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.client.XAck(ctx, s.stream, s.group, ids...).Err()
}

// Close releases the connection pool.
func (s *RedisSource) Close() error {
	return s.client.Close()
}

// decodeMessage maps stream fields kind/key/value onto an Event. A missing or
// malformed value counts as 1.
func decodeMessage(msg redis.XMessage) Event {
	ev := Event{ID: msg.ID, Value: 1}
	if v, ok := msg.Values["kind"].(string); ok {
		ev.Kind = v
	}
	if v, ok := msg.Values["key"].(string); ok {
		ev.Key = v
	}
	if v, ok := msg.Values["value"].(string); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			ev.Value = f
		}
	}
	return ev
}
