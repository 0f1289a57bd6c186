package events

import (
	"context"

	"telegram-usersettings/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.EventPublisher = (*LogPublisher)(nil)

// LogPublisher logs events instead of sending them; used when no broker is configured.
type LogPublisher struct {
	log *zerolog.Logger
}

func NewLogPublisher(logger *zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: logger}
}

func (p *LogPublisher) PublishSettingsChanged(ctx context.Context, ev adapter.SettingsChanged) error {
	p.log.Debug().
		Int64("tg_id", ev.TelegramID).
		Str("option", ev.Option).
		Bool("removed", ev.Removed).
		Msg("settings.changed")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
