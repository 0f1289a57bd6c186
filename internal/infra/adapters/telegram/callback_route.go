package telegram

import (
	"context"
	"strings"

	"telegram-usersettings/internal/domain/ports/adapter"
	"telegram-usersettings/internal/infra/metrics"
)

type cbHandler func(ctx context.Context, cb *adapter.Callback) error

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Prefix-match callbacks
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{
			Prefix: "userset ",
			Fn:     r.settingsCBRoute,
		},
	}
}

func (r *RealTelegramBotAdapter) settingsCBRoute(ctx context.Context, cb *adapter.Callback) error {
	action := "unknown"
	if parts := strings.Fields(cb.Data); len(parts) > 2 {
		action = parts[2]
	}
	metrics.IncTelegramCallback(action)
	return r.handler.HandleCallback(ctx, cb)
}
