package telegram

import (
	"context"
	"io"
	"sync"
	"time"

	"telegram-usersettings/internal/domain"
	"telegram-usersettings/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.Messenger = (*NoopBotAdapter)(nil)

// NoopBotAdapter implements adapter.Messenger for local/dev runs.
// It logs messages instead of sending real Telegram messages.
type NoopBotAdapter struct {
	log    *zerolog.Logger
	stream *dispatcher

	mu       sync.Mutex
	nextID   int
	messages map[msgKey]adapter.Message
}

// NewNoopBotAdapter constructs the noop adapter.
func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &NoopBotAdapter{
		log:      logger,
		stream:   newDispatcher(),
		messages: make(map[msgKey]adapter.Message),
	}
}

// Inject feeds an incoming message through the subscriptions and reports
// whether one consumed it.
func (b *NoopBotAdapter) Inject(ctx context.Context, msg *adapter.Message) bool {
	return b.stream.Dispatch(ctx, msg)
}

func (b *NoopBotAdapter) Subscribe(filter adapter.Filter, handler adapter.Handler) adapter.Subscription {
	return b.stream.Subscribe(filter, handler)
}

func (b *NoopBotAdapter) Unsubscribe(sub adapter.Subscription) { b.stream.Unsubscribe(sub) }

// delay simulates slight processing time and respects ctx.
func delay(ctx context.Context) error {
	select {
	case <-time.After(10 * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *NoopBotAdapter) store(m adapter.Message) *adapter.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[msgKey{chat: m.ChatID, id: m.ID}] = m
	return &m
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, chatID int64, text string, markup *adapter.ReplyMarkup) (*adapter.Message, error) {
	if err := delay(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.mu.Unlock()
	b.log.Info().Int64("chat_id", chatID).Int("message_id", id).Str("text", text).Msg("[noop-telegram] send")
	return b.store(adapter.Message{ID: id, ChatID: chatID, Text: text, ReplyMarkup: markup}), nil
}

func (b *NoopBotAdapter) EditMessage(ctx context.Context, msg *adapter.Message, text string, markup *adapter.ReplyMarkup) (*adapter.Message, error) {
	if err := delay(ctx); err != nil {
		return nil, err
	}
	b.log.Info().Int64("chat_id", msg.ChatID).Int("message_id", msg.ID).Str("text", text).Msg("[noop-telegram] edit")
	return b.store(adapter.Message{ID: msg.ID, ChatID: msg.ChatID, Text: text, ReplyMarkup: markup}), nil
}

func (b *NoopBotAdapter) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	b.mu.Lock()
	delete(b.messages, msgKey{chat: chatID, id: messageID})
	b.mu.Unlock()
	b.log.Info().Int64("chat_id", chatID).Int("message_id", messageID).Msg("[noop-telegram] delete")
	return nil
}

func (b *NoopBotAdapter) FetchMessage(_ context.Context, chatID int64, messageID int) (*adapter.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.messages[msgKey{chat: chatID, id: messageID}]
	if !ok {
		return nil, domain.ErrMessageGone
	}
	return &m, nil
}

func (b *NoopBotAdapter) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	b.log.Info().Str("callback_id", callbackID).Str("text", text).Bool("alert", alert).Msg("[noop-telegram] answer")
	return nil
}

func (b *NoopBotAdapter) SendDocument(_ context.Context, chatID int64, name string, data []byte, _ string) error {
	b.log.Info().Int64("chat_id", chatID).Str("name", name).Int("bytes", len(data)).Msg("[noop-telegram] document")
	return nil
}

func (b *NoopBotAdapter) SendPhotoFile(_ context.Context, chatID int64, path, _ string) error {
	b.log.Info().Int64("chat_id", chatID).Str("path", path).Msg("[noop-telegram] photo")
	return nil
}

// DownloadFile has nothing to download from; it writes nothing.
func (b *NoopBotAdapter) DownloadFile(_ context.Context, fileID string, _ io.Writer) error {
	b.log.Info().Str("file_id", fileID).Msg("[noop-telegram] download")
	return nil
}
