package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/ddmrp/internal/config"
	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/redis/go-redis/v9"
)

const activeConfigKey = "ddmrp:config:active"

// ConfigCache holds the active buffer factor configuration between batches.
// SetActive overwrites the entry and is reserved for activation; readers fill
// a missing entry with FillActive, which never replaces an existing one.
type ConfigCache interface {
	GetActive(ctx context.Context) (*domain.BufferFactorConfig, bool, error)
	FillActive(ctx context.Context, cfg *domain.BufferFactorConfig) error
	SetActive(ctx context.Context, cfg *domain.BufferFactorConfig) error
	Invalidate(ctx context.Context) error
}

type redisConfigCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopConfigCache struct{}

// NewConfigCache returns a redis backed cache, or a noop one for a nil client.
func NewConfigCache(client *redis.Client, cfg config.CacheConfig) ConfigCache {
	if client == nil {
		return &noopConfigCache{}
	}
	return &redisConfigCache{client: client, ttl: ttlOrDefault(cfg.ConfigTTLSeconds, defaultConfigTTL)}
}

func NewNoopConfigCache() ConfigCache {
	return &noopConfigCache{}
}

func (c *redisConfigCache) GetActive(ctx context.Context) (*domain.BufferFactorConfig, bool, error) {
	payload, err := c.client.Get(ctx, activeConfigKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var cfg domain.BufferFactorConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, false, fmt.Errorf("decode active config cache: %w", err)
	}
	return &cfg, true, nil
}

func (c *redisConfigCache) FillActive(ctx context.Context, cfg *domain.BufferFactorConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode active config cache: %w", err)
	}
	if err := c.client.SetNX(ctx, activeConfigKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx failed: %w", err)
	}
	return nil
}

func (c *redisConfigCache) SetActive(ctx context.Context, cfg *domain.BufferFactorConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode active config cache: %w", err)
	}
	if err := c.client.Set(ctx, activeConfigKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisConfigCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, activeConfigKey).Err()
}

func (n *noopConfigCache) GetActive(ctx context.Context) (*domain.BufferFactorConfig, bool, error) {
	return nil, false, nil
}

func (n *noopConfigCache) FillActive(ctx context.Context, cfg *domain.BufferFactorConfig) error {
	return nil
}

func (n *noopConfigCache) SetActive(ctx context.Context, cfg *domain.BufferFactorConfig) error {
	return nil
}

func (n *noopConfigCache) Invalidate(ctx context.Context) error {
	return nil
}
