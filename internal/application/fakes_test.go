//go:build !integration

package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"telegram-usersettings/internal/conversation"
	"telegram-usersettings/internal/domain"
	"telegram-usersettings/internal/domain/model"
	"telegram-usersettings/internal/domain/ports/adapter"
	"telegram-usersettings/internal/usecase"
)

const (
	uid    int64 = 42
	chatID int64 = 42
)

type sent struct {
	ChatID int64
	Text   string
	Markup *adapter.ReplyMarkup
}

type answer struct {
	Text  string
	Alert bool
}

type subscription struct {
	filter  adapter.Filter
	handler adapter.Handler
}

// fakeMessenger records every outgoing call and dispatches incoming
// messages to subscribers synchronously.
type fakeMessenger struct {
	mu        sync.Mutex
	nextID    int
	nextSub   adapter.Subscription
	subs      map[adapter.Subscription]subscription
	sent      []sent
	edits     []sent
	deleted   []int
	answers   []answer
	documents map[string][]byte
	photos    []string
	files     map[string]string

	editErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		nextID:    100,
		subs:      make(map[adapter.Subscription]subscription),
		documents: make(map[string][]byte),
		files:     make(map[string]string),
	}
}

func (f *fakeMessenger) Subscribe(filter adapter.Filter, handler adapter.Handler) adapter.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSub++
	f.subs[f.nextSub] = subscription{filter: filter, handler: handler}
	return f.nextSub
}

func (f *fakeMessenger) Unsubscribe(sub adapter.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, sub)
}

// deliver returns true when a subscriber consumed msg.
func (f *fakeMessenger) deliver(ctx context.Context, msg *adapter.Message) bool {
	f.mu.Lock()
	var hit []subscription
	for _, s := range f.subs {
		if s.filter(msg) {
			hit = append(hit, s)
		}
	}
	f.mu.Unlock()
	for _, s := range hit {
		s.handler(ctx, msg)
	}
	return len(hit) > 0
}

func (f *fakeMessenger) subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeMessenger) SendMessage(_ context.Context, chat int64, text string, markup *adapter.ReplyMarkup) (*adapter.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sent{ChatID: chat, Text: text, Markup: markup})
	return &adapter.Message{ID: f.nextID, ChatID: chat, Text: text, ReplyMarkup: markup}, nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, msg *adapter.Message, text string, markup *adapter.ReplyMarkup) (*adapter.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edits = append(f.edits, sent{ChatID: msg.ChatID, Text: text, Markup: markup})
	return &adapter.Message{ID: msg.ID, ChatID: msg.ChatID, Text: text, ReplyMarkup: markup}, nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, _ int64, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeMessenger) FetchMessage(context.Context, int64, int) (*adapter.Message, error) {
	return nil, domain.ErrMessageGone
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, _ string, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer{Text: text, Alert: alert})
	return nil
}

func (f *fakeMessenger) SendDocument(_ context.Context, _ int64, name string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents[name] = data
	return nil
}

func (f *fakeMessenger) SendPhotoFile(_ context.Context, _ int64, path, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, path)
	return nil
}

func (f *fakeMessenger) DownloadFile(_ context.Context, fileID string, w io.Writer) error {
	f.mu.Lock()
	body, ok := f.files[fileID]
	f.mu.Unlock()
	if !ok {
		return errors.New("no such file")
	}
	_, err := io.WriteString(w, body)
	return err
}

func (f *fakeMessenger) lastEdit(t *testing.T) sent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		t.Fatal("no message was edited")
	}
	return f.edits[len(f.edits)-1]
}

func (f *fakeMessenger) lastAnswer(t *testing.T) answer {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		t.Fatal("callback was never answered")
	}
	return f.answers[len(f.answers)-1]
}

// fakeConversations records arm requests; tests fire the callbacks by hand.
type fakeConversations struct {
	mu        sync.Mutex
	armed     []conversation.ArmRequest
	cancelled []int64
	armErr    error
}

func (c *fakeConversations) ArmSession(_ context.Context, req conversation.ArmRequest) (*conversation.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armErr != nil {
		return nil, c.armErr
	}
	c.armed = append(c.armed, req)
	return nil, nil
}

func (c *fakeConversations) IsSessionArmed(int64) bool { return false }

func (c *fakeConversations) CancelSession(user int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = append(c.cancelled, user)
}

func (c *fakeConversations) last(t *testing.T) conversation.ArmRequest {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.armed) == 0 {
		t.Fatal("no session was armed")
	}
	return c.armed[len(c.armed)-1]
}

type memRepo struct {
	mu   sync.Mutex
	rows map[int64]model.UserSettings
}

func (m *memRepo) Get(_ context.Context, id int64) (model.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memRepo) UpdateScalar(_ context.Context, id int64, s model.UserSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id] = s.Clone()
	return nil
}

func (m *memRepo) UpdateDocument(_ context.Context, id int64, key, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.rows[id]
	if s == nil {
		s = model.UserSettings{}
	}
	if path == "" {
		delete(s, key)
	} else {
		s[key] = path
	}
	m.rows[id] = s
	return nil
}

func (m *memRepo) ListAll(context.Context) (map[int64]model.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]model.UserSettings, len(m.rows))
	for id, s := range m.rows {
		out[id] = s.Clone()
	}
	return out, nil
}

type memFiles struct {
	mu    sync.Mutex
	saved map[string]string
}

func fileKey(id int64, key string) string { return fmt.Sprintf("%s:%d", key, id) }

func (m *memFiles) Save(_ context.Context, id int64, key, _ string, r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(body)) == "" {
		return "", domain.NewValidationError(key, "File is empty.")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[fileKey(id, key)] = string(body)
	return "/data/" + key, nil
}

func (m *memFiles) Remove(_ context.Context, id int64, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, fileKey(id, key))
	return nil
}

func (m *memFiles) Exists(id int64, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.saved[fileKey(id, key)]
	return ok
}

func (m *memFiles) Path(_ int64, key string) string { return "/data/" + key }

type routerFixture struct {
	router *SettingsRouter
	bot    *fakeMessenger
	conv   *fakeConversations
	repo   *memRepo
	files  *memFiles
	uc     usecase.SettingsUseCase
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	repo := &memRepo{rows: make(map[int64]model.UserSettings)}
	files := &memFiles{saved: make(map[string]string)}
	uc := usecase.NewSettingsUseCase(repo, files, nil,
		map[string]any{"LEECH_SPLIT_SIZE": int64(2097152000), "DEFAULT_UPLOAD": "gd"},
		usecase.Limits{MaxSplitSize: 2097152000}, nil)
	bot := newFakeMessenger()
	conv := &fakeConversations{}
	return &routerFixture{
		router: NewSettingsRouter(uc, conv, bot, RouterConfig{}, nil),
		bot:    bot,
		conv:   conv,
		repo:   repo,
		files:  files,
		uc:     uc,
	}
}

func (f *routerFixture) press(t *testing.T, data string) error {
	t.Helper()
	return f.pressAs(t, uid, data)
}

func (f *routerFixture) pressAs(t *testing.T, from int64, data string) error {
	t.Helper()
	return f.router.HandleCallback(context.Background(), &adapter.Callback{
		ID:       "cb",
		FromID:   from,
		FromName: "Ada",
		Message:  &adapter.Message{ID: 7, ChatID: chatID, ReplyToID: 6},
		Data:     data,
	})
}

// buttons flattens a keyboard into "text=data" pairs.
func buttons(m *adapter.ReplyMarkup) map[string]string {
	out := map[string]string{}
	if m == nil {
		return out
	}
	for _, row := range m.Buttons {
		for _, b := range row {
			out[b.Text] = b.Data
		}
	}
	return out
}
