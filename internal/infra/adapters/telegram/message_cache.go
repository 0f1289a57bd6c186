package telegram

import (
	"time"

	"telegram-usersettings/internal/domain/ports/adapter"

	"github.com/maypok86/otter"
)

type msgKey struct {
	chat int64
	id   int
}

// messageCache keeps the last known text and keyboard of messages the bot
// sent or edited. The Bot API cannot read a message back, and incoming
// copies lose their HTML markup.
type messageCache struct {
	c otter.Cache[msgKey, adapter.Message]
}

func newMessageCache(capacity int, ttl time.Duration) (*messageCache, error) {
	c, err := otter.MustBuilder[msgKey, adapter.Message](capacity).WithTTL(ttl).Build()
	if err != nil {
		return nil, err
	}
	return &messageCache{c: c}, nil
}

func (m *messageCache) put(msg *adapter.Message) {
	if msg == nil || msg.ID == 0 {
		return
	}
	m.c.Set(msgKey{chat: msg.ChatID, id: msg.ID}, *msg)
}

func (m *messageCache) get(chatID int64, id int) (*adapter.Message, bool) {
	v, ok := m.c.Get(msgKey{chat: chatID, id: id})
	if !ok {
		return nil, false
	}
	return &v, true
}

func (m *messageCache) drop(chatID int64, id int) {
	m.c.Delete(msgKey{chat: chatID, id: id})
}

func (m *messageCache) close() {
	m.c.Close()
}
