package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/ddmrp/internal/config"
	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCacheConfig(t *testing.T) (config.CacheConfig, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return config.CacheConfig{Enabled: true, RedisURL: "redis://" + mr.Addr()}, mr
}

func TestNewRedisClient_DisabledReturnsNil(t *testing.T) {
	client, err := NewRedisClient(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, client)

	assert.IsType(t, &noopConfigCache{}, NewConfigCache(client, config.CacheConfig{}))
	assert.IsType(t, &noopSummaryCache{}, NewSummaryCache(client, config.CacheConfig{}))
}

func TestConfigCache_RoundTrip(t *testing.T) {
	cfg, _ := newTestCacheConfig(t)
	client, err := NewRedisClient(cfg)
	require.NoError(t, err)
	defer client.Close()

	c := NewConfigCache(client, cfg)
	ctx := context.Background()

	_, ok, err := c.GetActive(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	active := &domain.BufferFactorConfig{ID: 9, ShortLeadTimeFactor: 0.7, IsActive: true}
	require.NoError(t, c.SetActive(ctx, active))

	got, ok, err := c.GetActive(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(9), got.ID)
	assert.Equal(t, 0.7, got.ShortLeadTimeFactor)

	require.NoError(t, c.Invalidate(ctx))
	_, ok, err = c.GetActive(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfigCache_FillNeverReplaces(t *testing.T) {
	cfg, _ := newTestCacheConfig(t)
	client, err := NewRedisClient(cfg)
	require.NoError(t, err)
	defer client.Close()

	c := NewConfigCache(client, cfg)
	ctx := context.Background()

	require.NoError(t, c.FillActive(ctx, &domain.BufferFactorConfig{ID: 1}))
	require.NoError(t, c.SetActive(ctx, &domain.BufferFactorConfig{ID: 2}))
	require.NoError(t, c.FillActive(ctx, &domain.BufferFactorConfig{ID: 1}))

	got, ok, err := c.GetActive(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.ID)
}

func TestSummaryCache_InvalidateAll(t *testing.T) {
	cfg, mr := newTestCacheConfig(t)
	client, err := NewRedisClient(cfg)
	require.NoError(t, err)
	defer client.Close()

	c := NewSummaryCache(client, cfg)
	ctx := context.Background()
	summary := []domain.PrioritySummary{{Priority: domain.PriorityCritical, Count: 3}}

	require.NoError(t, c.SetSummary(ctx, "", summary))
	require.NoError(t, c.SetSummary(ctx, "DC-1", summary))
	mr.Set("unrelated", "keep")

	got, ok, err := c.GetSummary(ctx, "dc-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, summary, got)

	require.NoError(t, c.InvalidateAll(ctx))

	_, ok, _ = c.GetSummary(ctx, "")
	assert.False(t, ok)
	assert.True(t, mr.Exists("unrelated"))
}

func TestBuildSummaryKey(t *testing.T) {
	assert.Equal(t, "ddmrp:priority_summary:all", buildSummaryKey("  "))
	assert.Equal(t, buildSummaryKey("DC-1"), buildSummaryKey(" dc-1 "))
	assert.NotEqual(t, buildSummaryKey("dc-1"), buildSummaryKey("dc-2"))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "::not a url"})
	assert.Error(t, err)
}
