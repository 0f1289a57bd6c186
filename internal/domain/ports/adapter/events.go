package adapter

import (
	"context"
	"time"
)

// SettingsChanged is published after a settings write has been persisted.
type SettingsChanged struct {
	TelegramID int64     `json:"telegram_id"`
	Option     string    `json:"option"`
	Value      any       `json:"value,omitempty"`
	Removed    bool      `json:"removed"`
	ChangedAt  time.Time `json:"changed_at"`
}

type EventPublisher interface {
	PublishSettingsChanged(ctx context.Context, ev SettingsChanged) error
	Close() error
}
