package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/ddmrp/internal/config"
	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/redis/go-redis/v9"
)

const prioritySummaryKeyPrefix = "ddmrp:priority_summary"

// SummaryCache holds per-location planning priority counts. It is emptied
// after every batch recompute.
type SummaryCache interface {
	GetSummary(ctx context.Context, locationID string) ([]domain.PrioritySummary, bool, error)
	SetSummary(ctx context.Context, locationID string, summary []domain.PrioritySummary) error
	InvalidateAll(ctx context.Context) error
}

type redisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSummaryCache struct{}

func NewSummaryCache(client *redis.Client, cfg config.CacheConfig) SummaryCache {
	if client == nil {
		return &noopSummaryCache{}
	}
	return &redisSummaryCache{client: client, ttl: ttlOrDefault(cfg.SummaryTTLSeconds, defaultSummaryTTL)}
}

func NewNoopSummaryCache() SummaryCache {
	return &noopSummaryCache{}
}

func (c *redisSummaryCache) GetSummary(ctx context.Context, locationID string) ([]domain.PrioritySummary, bool, error) {
	payload, err := c.client.Get(ctx, buildSummaryKey(locationID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summary []domain.PrioritySummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false, fmt.Errorf("decode priority summary cache: %w", err)
	}
	return summary, true, nil
}

func (c *redisSummaryCache) SetSummary(ctx context.Context, locationID string, summary []domain.PrioritySummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode priority summary cache: %w", err)
	}
	if err := c.client.Set(ctx, buildSummaryKey(locationID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSummaryCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, prioritySummaryKeyPrefix, scanBatchSize)
}

func (n *noopSummaryCache) GetSummary(ctx context.Context, locationID string) ([]domain.PrioritySummary, bool, error) {
	return nil, false, nil
}

func (n *noopSummaryCache) SetSummary(ctx context.Context, locationID string, summary []domain.PrioritySummary) error {
	return nil
}

func (n *noopSummaryCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildSummaryKey(locationID string) string {
	return fmt.Sprintf("%s:%s", prioritySummaryKeyPrefix, locationHash(locationID))
}

func locationHash(locationID string) string {
	normalized := strings.ToLower(strings.TrimSpace(locationID))
	if normalized == "" {
		return "all"
	}
	sum := sha1.Sum([]byte("location=" + normalized))
	return hex.EncodeToString(sum[:])
}
