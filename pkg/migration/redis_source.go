// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package migration

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisConfig configures the Redis-backed migration flag source.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// Key holds the "use location id" flag value ("true"/"false" or 0/1).
	Key string `mapstructure:"key"`

	// FallbackMigrating is returned when Redis is unreachable or the key is
	// missing. Deployments mid-migration should set it to true: dual-writing
	// when unnecessary wastes storage, while skipping the legacy write loses
	// read compatibility.
	FallbackMigrating bool `mapstructure:"fallback_migrating"`
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:              "localhost:6379",
		Key:               "instant:storage:use_location_id",
		FallbackMigrating: true,
	}
}

// RedisSource reads the migration flag from a shared Redis key, letting all
// app servers observe a flag flip within one operation's latency. Each call
// hits Redis; no value is cached here.
type RedisSource struct {
	client *redis.Client
	cfg    RedisConfig
}

// NewRedisSource connects to Redis and verifies the connection.
func NewRedisSource(cfg RedisConfig) (*RedisSource, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisSource{client: client, cfg: cfg}, nil
}

// NewRedisSourceWithClient creates a source with an existing Redis client.
func NewRedisSourceWithClient(client *redis.Client, cfg RedisConfig) *RedisSource {
	return &RedisSource{client: client, cfg: cfg}
}

func (s *RedisSource) Migrating(ctx context.Context) bool {
	val, err := s.client.Get(ctx, s.cfg.Key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", s.cfg.Key).Msg("migration flag read failed, using fallback")
		}
		return s.cfg.FallbackMigrating
	}
	useLocationID, err := strconv.ParseBool(val)
	if err != nil {
		log.Warn().Str("key", s.cfg.Key).Str("value", val).Msg("migration flag not a bool, using fallback")
		return s.cfg.FallbackMigrating
	}
	return !useLocationID
}

// Close releases the underlying Redis connection.
func (s *RedisSource) Close() error {
	return s.client.Close()
}
