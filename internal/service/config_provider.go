package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/ddmrp/internal/cache"
	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/engine"
	"github.com/andresuchdata/ddmrp/internal/repository"
	"github.com/rs/zerolog/log"
)

const defaultHistoryLimit = 50

// ConfigProvider hands out the active buffer configuration as an immutable
// snapshot. It never fails a caller that only needs a snapshot: when the
// configuration cannot be read the snapshot is degraded instead.
type ConfigProvider struct {
	repo   repository.ConfigRepository
	cache  cache.ConfigCache
	params engine.Parameters
}

func NewConfigProvider(repo repository.ConfigRepository, cacheImpl cache.ConfigCache, params engine.Parameters) *ConfigProvider {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopConfigCache()
	}
	return &ConfigProvider{repo: repo, cache: cacheImpl, params: params}
}

// Parameters returns the engine tuning applied to every snapshot.
func (p *ConfigProvider) Parameters() engine.Parameters {
	return p.params
}

// Active returns the active configuration, from cache when possible.
func (p *ConfigProvider) Active(ctx context.Context) (*domain.BufferFactorConfig, error) {
	if cfg, ok, err := p.cache.GetActive(ctx); err == nil && ok {
		return cfg, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("config: cache get active failed")
	}

	cfg, err := p.repo.GetActiveConfig(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.cache.FillActive(ctx, cfg); err != nil {
		log.Warn().Err(err).Msg("config: cache fill active failed")
	}
	return cfg, nil
}

// Snapshot captures the active configuration for one computation or batch.
func (p *ConfigProvider) Snapshot(ctx context.Context) engine.Snapshot {
	cfg, err := p.Active(ctx)
	if err != nil {
		log.Warn().
			Err(fmt.Errorf("%w: %v", domain.ErrConfigUnavailable, err)).
			Bool("not_found", errors.Is(err, domain.ErrNotFound)).
			Msg("config: using degraded zone ratios")
		return engine.DegradedSnapshot(p.params)
	}
	return engine.NewSnapshot(*cfg, p.params)
}

// Activate validates cfg and appends it as the new active configuration.
// Earlier rows are kept as history.
func (p *ConfigProvider) Activate(ctx context.Context, cfg *domain.BufferFactorConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.ID = 0
	cfg.CreatedAt = time.Time{}

	if err := p.repo.ActivateConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to activate config: %w", err)
	}

	if err := p.cache.SetActive(ctx, cfg); err != nil {
		log.Warn().Err(err).Msg("config: cache set active failed")
		if err := p.cache.Invalidate(ctx); err != nil {
			log.Warn().Err(err).Msg("config: cache invalidate failed")
		}
	}

	log.Info().
		Int64("config_id", cfg.ID).
		Str("created_by", cfg.CreatedBy).
		Msg("buffer configuration activated")
	return nil
}

// History lists configurations, newest first.
func (p *ConfigProvider) History(ctx context.Context, limit int) ([]domain.BufferFactorConfig, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return p.repo.ListConfigs(ctx, limit)
}
