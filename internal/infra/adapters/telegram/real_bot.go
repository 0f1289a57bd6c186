package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-usersettings/internal/config"
	"telegram-usersettings/internal/domain"
	"telegram-usersettings/internal/domain/ports/adapter"
	"telegram-usersettings/internal/infra/i18n"
	"telegram-usersettings/internal/infra/logging"
	"telegram-usersettings/internal/infra/metrics"
	red "telegram-usersettings/internal/infra/redis"
)

var _ adapter.Messenger = (*RealTelegramBotAdapter)(nil)

// maxDownloadBytes is the Bot API download limit.
const maxDownloadBytes = 20 << 20

// SettingsHandler is the application side of the settings menus.
type SettingsHandler interface {
	HandleCallback(ctx context.Context, cb *adapter.Callback) error
	HandleSettingsCommand(ctx context.Context, msg *adapter.Message) error
	HandleUsersCommand(ctx context.Context, msg *adapter.Message) error
}

// RealTelegramBotAdapter polls updates with tgbotapi, lets armed
// conversations intercept messages first, and routes the rest.
type RealTelegramBotAdapter struct {
	bot         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	handler     SettingsHandler
	rateLimiter red.Limiter
	translator  *i18n.Translator
	log         *zerolog.Logger

	stream   *dispatcher
	messages *messageCache
	http     *http.Client

	adminIDsMap   map[int64]struct{}
	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, rateLimiter red.Limiter, translator *i18n.Translator, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if translator == nil {
		return nil, errors.New("translator is nil")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	cache, err := newMessageCache(cfg.MessageCacheSize, cfg.MessageCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("message cache: %w", err)
	}

	adminMap := map[int64]struct{}{}
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}

	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		rateLimiter:   rateLimiter,
		translator:    translator,
		log:           logger,
		stream:        newDispatcher(),
		messages:      cache,
		http:          &http.Client{Timeout: 60 * time.Second},
		adminIDsMap:   adminMap,
		updateWorkers: workers,
	}, nil
}

// SetSettingsHandler wires the router; it must be called before StartPolling.
func (r *RealTelegramBotAdapter) SetSettingsHandler(h SettingsHandler) {
	r.handler = h
}

func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if r.handler == nil {
		return errors.New("settings handler is not set")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for up := range updateChan {
				uctx := logging.WithTraceID(ctx, logging.NewTraceID())
				if err := runUpdate(uctx, up, r.handleUpdate); err != nil {
					logging.With(uctx, r.log).Error().Err(err).Int("worker", id).Int("update_id", up.UpdateID).Msg("handle update failed")
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				close(updateChan)
				wg.Wait()
				return errors.New("telegram updates channel closed")
			}
			updateChan <- up
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

// Close releases the message cache.
func (r *RealTelegramBotAdapter) Close() {
	r.messages.close()
}

func (r *RealTelegramBotAdapter) Subscribe(filter adapter.Filter, handler adapter.Handler) adapter.Subscription {
	return r.stream.Subscribe(filter, handler)
}

func (r *RealTelegramBotAdapter) Unsubscribe(sub adapter.Subscription) {
	r.stream.Unsubscribe(sub)
}

// runUpdate calls handle and reports a panic as an error; the worker keeps going.
func runUpdate(ctx context.Context, up tgbotapi.Update, handle func(context.Context, tgbotapi.Update) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in update %d: %v", up.UpdateID, rec)
		}
	}()
	return handle(ctx, up)
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}
	if update.Message == nil {
		return nil
	}

	msg := toMessage(update.Message)
	ctx = logging.WithTgID(logging.WithChatID(ctx, msg.ChatID), msg.SenderID)

	// An armed conversation sees the message before any routing.
	if r.stream.Dispatch(ctx, msg) {
		metrics.IncIntercepted()
		return nil
	}

	command := commandName(msg.Text)
	if command == "" {
		return nil
	}
	fn, ok := r.commandRoutes()[command]
	if !ok {
		return nil
	}
	if !r.allow(ctx, msg.SenderID, "cmd:/"+command) {
		_, err := r.SendMessage(ctx, msg.ChatID, r.translator.T("rate_limited"), nil)
		return err
	}
	metrics.IncTelegramCommand("/" + command)
	return fn(ctx, msg)
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}
	cb := toCallback(query)
	ctx = logging.WithTgID(ctx, cb.FromID)

	if !r.allow(ctx, cb.FromID, "cb") {
		return r.AnswerCallback(ctx, cb.ID, r.translator.T("rate_limited"), true)
	}

	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(cb.Data, pr.Prefix) {
			return pr.Fn(ctx, cb)
		}
	}
	// Stop the client spinner for buttons nobody owns.
	_ = r.AnswerCallback(ctx, cb.ID, "", false)
	return fmt.Errorf("unknown callback data %q", cb.Data)
}

// allow fails open when the limiter is down.
func (r *RealTelegramBotAdapter) allow(ctx context.Context, userID int64, action string) bool {
	if r.rateLimiter == nil {
		return true
	}
	allowed, err := r.rateLimiter.Allow(ctx, red.UserActionKey(userID, action), 30, time.Minute)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("rate limit check failed")
		return true
	}
	return allowed
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string, markup *adapter.ReplyMarkup) (*adapter.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := tgbotapi.NewMessage(chatID, text)
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = true
	if kb := toKeyboard(markup); kb != nil {
		cfg.ReplyMarkup = *kb
	}
	sent, err := r.bot.Send(cfg)
	if err != nil {
		return nil, err
	}
	return r.remember(&sent, text, markup), nil
}

func (r *RealTelegramBotAdapter) EditMessage(ctx context.Context, msg *adapter.Message, text string, markup *adapter.ReplyMarkup) (*adapter.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := tgbotapi.NewEditMessageText(msg.ChatID, msg.ID, text)
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = true
	cfg.ReplyMarkup = toKeyboard(markup)

	edited, err := r.bot.Send(cfg)
	if err != nil {
		if !strings.Contains(err.Error(), "message is not modified") {
			return nil, err
		}
		edited = tgbotapi.Message{MessageID: msg.ID, Chat: &tgbotapi.Chat{ID: msg.ChatID}}
	}
	return r.remember(&edited, text, markup), nil
}

// remember caches what the bot shows, with the HTML it sent rather than
// the entity-stripped text the API echoes back.
func (r *RealTelegramBotAdapter) remember(m *tgbotapi.Message, text string, markup *adapter.ReplyMarkup) *adapter.Message {
	out := toMessage(m)
	out.Text = text
	out.ReplyMarkup = markup
	r.messages.put(out)
	return out
}

func (r *RealTelegramBotAdapter) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.messages.drop(chatID, messageID)
	_, err := r.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// FetchMessage returns the last version of a bot message this process sent
// or edited; anything else is domain.ErrMessageGone.
func (r *RealTelegramBotAdapter) FetchMessage(_ context.Context, chatID int64, messageID int) (*adapter.Message, error) {
	if m, ok := r.messages.get(chatID, messageID); ok {
		metrics.IncCacheRequest("messages", "hit")
		return m, nil
	}
	metrics.IncCacheRequest("messages", "miss")
	return nil, domain.ErrMessageGone
}

func (r *RealTelegramBotAdapter) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = alert
	_, err := r.bot.Request(cfg)
	return err
}

func (r *RealTelegramBotAdapter) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	cfg.Caption = caption
	cfg.ParseMode = tgbotapi.ModeHTML
	_, err := r.bot.Send(cfg)
	return err
}

func (r *RealTelegramBotAdapter) SendPhotoFile(ctx context.Context, chatID int64, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	cfg.Caption = caption
	cfg.ParseMode = tgbotapi.ModeHTML
	_, err := r.bot.Send(cfg)
	return err
}

func (r *RealTelegramBotAdapter) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	url, err := r.bot.GetFileDirectURL(fileID)
	if err != nil {
		return fmt.Errorf("resolve file %s: %w", fileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download file %s: status %d", fileID, resp.StatusCode)
	}
	_, err = io.Copy(w, io.LimitReader(resp.Body, maxDownloadBytes))
	return err
}

// SetMenuCommands publishes the command list for one chat; admins also see /users.
func (r *RealTelegramBotAdapter) SetMenuCommands(ctx context.Context, chatID int64, isAdmin bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	commands := []tgbotapi.BotCommand{
		{Command: "usetting", Description: r.translator.T("cmd_usetting")},
		{Command: "help", Description: r.translator.T("cmd_help")},
	}
	if isAdmin {
		commands = append(commands, tgbotapi.BotCommand{Command: "users", Description: r.translator.T("cmd_users")})
	}
	_, err := r.bot.Request(tgbotapi.NewSetMyCommandsWithScope(tgbotapi.NewBotCommandScopeChat(chatID), commands...))
	return err
}
