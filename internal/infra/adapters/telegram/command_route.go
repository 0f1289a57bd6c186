package telegram

import (
	"context"

	"telegram-usersettings/internal/domain/ports/adapter"
	"telegram-usersettings/internal/infra/logging"
	"telegram-usersettings/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, msg *adapter.Message) error

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":    r.handleStartCommand,
		"help":     r.handleHelpCommand,
		"usetting": r.handler.HandleSettingsCommand,

		// These handlers are wrapped in our adminOnly middleware.
		"users": r.adminOnly(r.handler.HandleUsersCommand),
	}
}

func (r *RealTelegramBotAdapter) isAdmin(id int64) bool {
	_, ok := r.adminIDsMap[id]
	return ok
}

func (r *RealTelegramBotAdapter) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, msg *adapter.Message) error {
		command := "/" + commandName(msg.Text)
		if !r.isAdmin(msg.SenderID) {
			metrics.IncAdminCommand(command, "unauthorized")
			_, err := r.SendMessage(ctx, msg.ChatID, r.translator.T("error_unauthorized"), nil)
			return err
		}
		metrics.IncAdminCommand(command, "authorized")
		return next(ctx, msg)
	}
}

// handleStartCommand sets the chat's command menu and opens the settings.
func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, msg *adapter.Message) error {
	if err := r.SetMenuCommands(ctx, msg.ChatID, r.isAdmin(msg.SenderID)); err != nil {
		// Log the error but don't block the user
		logging.With(ctx, r.log).Warn().Err(err).Msg("failed to set dynamic menu commands")
	}
	return r.handler.HandleSettingsCommand(ctx, msg)
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, msg *adapter.Message) error {
	_, err := r.SendMessage(ctx, msg.ChatID, r.translator.T("help"), nil)
	return err
}
