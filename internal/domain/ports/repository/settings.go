package repository

import (
	"context"

	"telegram-usersettings/internal/domain/model"
)

// SettingsRepository is the port for durable per-user settings.
type SettingsRepository interface {
	// Get returns domain.ErrNotFound when the user has never saved anything.
	Get(ctx context.Context, tgID int64) (model.UserSettings, error)
	// UpdateScalar writes the whole settings document for the user.
	UpdateScalar(ctx context.Context, tgID int64, s model.UserSettings) error
	// UpdateDocument sets one file-backed key; an empty path removes it.
	UpdateDocument(ctx context.Context, tgID int64, key, path string) error
	ListAll(ctx context.Context) (map[int64]model.UserSettings, error)
}

// SessionMirror publishes which users have an armed conversation so that
// other processes (admin API, dashboards) can observe it.
type SessionMirror interface {
	MarkArmed(ctx context.Context, tgID int64, generation uint64) error
	// ClearArmed removes the mark only if it still belongs to generation.
	ClearArmed(ctx context.Context, tgID int64, generation uint64) error
	ArmedGeneration(ctx context.Context, tgID int64) (uint64, bool, error)
}
