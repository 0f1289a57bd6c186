//go:build !integration

package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"telegram-usersettings/internal/domain/ports/adapter"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// fakeClock hands out manually driven tickers.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	created chan *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: t0, created: make(chan *fakeTicker, 16)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	tk := &fakeTicker{c: make(chan time.Time), stop: make(chan struct{})}
	c.created <- tk
	return tk
}

// ticker waits for the next loop to create its ticker.
func (c *fakeClock) ticker(t *testing.T) *fakeTicker {
	t.Helper()
	select {
	case tk := <-c.created:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatal("session loop never created a ticker")
		return nil
	}
}

type fakeTicker struct {
	c        chan time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }
func (f *fakeTicker) Stop()               { f.stopOnce.Do(func() { close(f.stop) }) }

// fireAt moves the clock to at and delivers one tick. It reports false when
// the loop already stopped its ticker.
func (f *fakeTicker) fireAt(t *testing.T, clk *fakeClock, at time.Time) bool {
	t.Helper()
	clk.set(at)
	select {
	case f.c <- at:
		return true
	case <-f.stop:
		return false
	case <-time.After(2 * time.Second):
		t.Fatalf("tick at %v was never received", at.Sub(t0))
		return false
	}
}

// stepTo delivers ticks every 500ms at offsets from..to past t0 and reports
// whether every tick was received.
func (f *fakeTicker) stepTo(t *testing.T, clk *fakeClock, from, to time.Duration) bool {
	t.Helper()
	for d := from; d <= to; d += 500 * time.Millisecond {
		if !f.fireAt(t, clk, t0.Add(d)) {
			return false
		}
	}
	return true
}

type subscription struct {
	filter  adapter.Filter
	handler adapter.Handler
}

// fakeStream is an in-memory Transport.
type fakeStream struct {
	mu     sync.Mutex
	next   adapter.Subscription
	subs   map[adapter.Subscription]subscription
	unsubs map[adapter.Subscription]int

	prompt   string
	fetchErr error
	editErr  error
	edits    []string
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		subs:   make(map[adapter.Subscription]subscription),
		unsubs: make(map[adapter.Subscription]int),
		prompt: "<b>Send Leech Prefix.</b>\n" + CountdownLine(60*time.Second),
	}
}

func (f *fakeStream) Subscribe(filter adapter.Filter, handler adapter.Handler) adapter.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.subs[f.next] = subscription{filter: filter, handler: handler}
	return f.next
}

func (f *fakeStream) Unsubscribe(sub adapter.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubs[sub]++
	delete(f.subs, sub)
}

// deliver offers msg to every subscription and reports whether one consumed it.
func (f *fakeStream) deliver(msg *adapter.Message) bool {
	f.mu.Lock()
	var hit []adapter.Handler
	for _, s := range f.subs {
		if s.filter(msg) {
			hit = append(hit, s.handler)
		}
	}
	f.mu.Unlock()
	for _, h := range hit {
		h(context.Background(), msg)
	}
	return len(hit) > 0
}

func (f *fakeStream) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeStream) unsubCount(sub adapter.Subscription) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubs[sub]
}

func (f *fakeStream) FetchMessage(_ context.Context, chatID int64, messageID int) (*adapter.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &adapter.Message{ID: messageID, ChatID: chatID, Text: f.prompt}, nil
}

func (f *fakeStream) EditMessage(_ context.Context, msg *adapter.Message, text string, _ *adapter.ReplyMarkup) (*adapter.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edits = append(f.edits, text)
	f.prompt = text
	out := *msg
	out.Text = text
	return &out, nil
}

func (f *fakeStream) lastEdit() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return ""
	}
	return f.edits[len(f.edits)-1]
}

func (f *fakeStream) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

// recorder counts callback invocations.
type recorder struct {
	mu       sync.Mutex
	matched  []*adapter.Message
	timeouts int
}

func (r *recorder) onMatch(_ context.Context, msg *adapter.Message) {
	r.mu.Lock()
	r.matched = append(r.matched, msg)
	r.mu.Unlock()
}

func (r *recorder) onTimeout(context.Context) {
	r.mu.Lock()
	r.timeouts++
	r.mu.Unlock()
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matched), r.timeouts
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session for user %d did not close", s.UserID())
	}
}

func newTestManager(stream *fakeStream, clk *fakeClock) *Manager {
	return NewManager(nil, stream, Config{}, nil, WithClock(clk))
}

func textMsg(user, chat int64, text string) *adapter.Message {
	return &adapter.Message{ID: 500, ChatID: chat, SenderID: user, Text: text}
}

var errGone = errors.New("message to edit not found")

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return lines[len(lines)-1]
}
