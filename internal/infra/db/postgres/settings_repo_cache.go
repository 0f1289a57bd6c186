package postgres

import (
	"context"
	"fmt"
	"time"

	"telegram-usersettings/internal/domain/model"
	"telegram-usersettings/internal/domain/ports/repository"
	"telegram-usersettings/internal/infra/metrics"
	red "telegram-usersettings/internal/infra/redis"

	"github.com/rs/zerolog"
)

var _ repository.SettingsRepository = (*settingsRepoCacheDecorator)(nil)

// settingsRepoCacheDecorator serves Get from Redis and drops the entry on
// every write, so the next read goes to Postgres.
type settingsRepoCacheDecorator struct {
	inner repository.SettingsRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewSettingsRepoCacheDecorator(inner repository.SettingsRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.SettingsRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &settingsRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func settingsKey(tgID int64) string { return fmt.Sprintf("user_settings:%d", tgID) }

func (d *settingsRepoCacheDecorator) Get(ctx context.Context, tgID int64) (model.UserSettings, error) {
	key := settingsKey(tgID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		if s, derr := decodeSettings([]byte(val)); derr == nil {
			metrics.IncCacheRequest("settings", "hit")
			return s, nil
		}
	} else if !red.IsNil(err) {
		d.log.Warn().Err(err).Int64("tg_id", tgID).Msg("settings cache read failed")
	}

	metrics.IncCacheRequest("settings", "miss")
	s, err := d.inner.Get(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if b, err := encodeSettings(s); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return s, nil
}

func (d *settingsRepoCacheDecorator) UpdateScalar(ctx context.Context, tgID int64, s model.UserSettings) error {
	return d.invalidateAround(ctx, tgID, func() error { return d.inner.UpdateScalar(ctx, tgID, s) })
}

func (d *settingsRepoCacheDecorator) UpdateDocument(ctx context.Context, tgID int64, key, path string) error {
	return d.invalidateAround(ctx, tgID, func() error { return d.inner.UpdateDocument(ctx, tgID, key, path) })
}

// invalidateAround drops the entry before and after write. The second delete
// removes a row a concurrent Get cached from Postgres while write was running.
func (d *settingsRepoCacheDecorator) invalidateAround(ctx context.Context, tgID int64, write func() error) error {
	key := settingsKey(tgID)
	_ = d.cache.Del(ctx, key)
	err := write()
	if derr := d.cache.Del(ctx, key); derr != nil {
		d.log.Warn().Err(derr).Int64("tg_id", tgID).Msg("settings cache invalidation failed")
	}
	return err
}

// ListAll is an admin dump; it bypasses the cache.
func (d *settingsRepoCacheDecorator) ListAll(ctx context.Context) (map[int64]model.UserSettings, error) {
	metrics.IncCacheRequest("settings_list", "bypass")
	return d.inner.ListAll(ctx)
}
