//go:build !integration

package postgres

import (
	"context"
	"time"

	"telegram-usersettings/internal/domain/model"
	red "telegram-usersettings/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerSettingsRepo mocks the database repository the decorator wraps.
type mockInnerSettingsRepo struct {
	GetFunc            func(ctx context.Context, tgID int64) (model.UserSettings, error)
	UpdateScalarFunc   func(ctx context.Context, tgID int64, s model.UserSettings) error
	UpdateDocumentFunc func(ctx context.Context, tgID int64, key, path string) error
	ListAllFunc        func(ctx context.Context) (map[int64]model.UserSettings, error)
}

func (m *mockInnerSettingsRepo) Get(ctx context.Context, tgID int64) (model.UserSettings, error) {
	return m.GetFunc(ctx, tgID)
}
func (m *mockInnerSettingsRepo) UpdateScalar(ctx context.Context, tgID int64, s model.UserSettings) error {
	return m.UpdateScalarFunc(ctx, tgID, s)
}
func (m *mockInnerSettingsRepo) UpdateDocument(ctx context.Context, tgID int64, key, path string) error {
	return m.UpdateDocumentFunc(ctx, tgID, key, path)
}
func (m *mockInnerSettingsRepo) ListAll(ctx context.Context) (map[int64]model.UserSettings, error) {
	return m.ListAllFunc(ctx)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
