package conversation

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"telegram-usersettings/internal/domain/ports/adapter"
	"telegram-usersettings/internal/infra/metrics"
)

type State int

const (
	StateArmed State = iota
	StateMatched
	StateTimedOut
	StateCancelled
	// StateSuperseded is a cancellation caused by the same user arming again.
	StateSuperseded
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateMatched:
		return "matched"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	case StateSuperseded:
		return "superseded"
	}
	return "unknown"
}

type (
	// MatchFunc runs the completion action for the matched message.
	MatchFunc func(ctx context.Context, msg *adapter.Message)
	// TimeoutFunc re-renders the prior state without a new value.
	TimeoutFunc func(ctx context.Context)
)

// Session is one arm/disarm cycle. It owns exactly one stream subscription,
// released once on every exit path.
type Session struct {
	m *Manager

	user       int64
	chat       int64
	promptID   int
	mode       Mode
	generation uint64

	start       time.Time
	deadline    time.Time
	lastRefresh time.Time

	onMatch   MatchFunc
	onTimeout TimeoutFunc

	sub         adapter.Subscription
	releaseOnce sync.Once

	// mu serializes outcome resolution between the stream handler and the loop.
	mu    sync.Mutex
	state State
	// matching is held while onMatch runs; the loop waits for it before closing.
	matching sync.WaitGroup

	wake chan struct{}
	done chan struct{}
}

func (s *Session) UserID() int64      { return s.user }
func (s *Session) ChatID() int64      { return s.chat }
func (s *Session) Generation() uint64 { return s.generation }
func (s *Session) Deadline() time.Time {
	return s.deadline
}

// Done is closed once the session reached a terminal state, released its
// subscription and the completion callback returned.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) wakeUp() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) release() {
	s.releaseOnce.Do(func() {
		s.m.stream.Unsubscribe(s.sub)
	})
}

// live guards the subscription filter so that, once resolved, messages fall
// through to normal routing instead of being swallowed.
func (s *Session) live() bool {
	return s.m.registry.IsCurrent(s.user, s.generation)
}

// handle is the stream callback for a message that passed the filter.
func (s *Session) handle(ctx context.Context, msg *adapter.Message) {
	s.mu.Lock()
	if s.state != StateArmed || !s.m.registry.DisarmIf(s.user, s.generation) {
		s.mu.Unlock()
		return
	}
	s.state = StateMatched
	s.matching.Add(1)
	s.mu.Unlock()
	defer s.matching.Done()

	// The filter is inert from here on; the loop releases the subscription.
	s.m.log.Debug().Int64("tg_id", s.user).Int64("chat_id", s.chat).Uint64("generation", s.generation).Msg("conversation matched")
	s.invoke("match", func() { s.onMatch(ctx, msg) })
	s.wakeUp()
}

func (s *Session) run(ctx context.Context) {
	defer s.m.finish(s)
	defer s.matching.Wait()

	ticker := s.m.clock.NewTicker(s.m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		var now time.Time
		select {
		case <-ctx.Done():
			s.resolveExternal(true)
			return
		case now = <-ticker.C():
		case <-s.wake:
			now = s.m.clock.Now()
		}
		if !s.tick(ctx, now) {
			return
		}
	}
}

// tick runs one supervision step and reports whether the session is still armed.
func (s *Session) tick(ctx context.Context, now time.Time) bool {
	if !s.resolveExternal(false) {
		return false
	}

	if !now.Before(s.deadline) {
		s.mu.Lock()
		fire := s.state == StateArmed && s.m.registry.DisarmIf(s.user, s.generation)
		if fire {
			s.state = StateTimedOut
		}
		s.mu.Unlock()
		if fire {
			s.m.log.Debug().Int64("tg_id", s.user).Int64("chat_id", s.chat).Msg("conversation timed out")
			s.release()
			s.invoke("timeout", func() { s.onTimeout(ctx) })
		}
		return false
	}

	if now.Sub(s.lastRefresh) >= s.m.cfg.RefreshInterval {
		s.lastRefresh = now
		s.refreshCountdown(ctx, s.deadline.Sub(now))
	}
	return true
}

// resolveExternal notices a flag cleared by someone other than this session.
// It returns true while the session is still armed.
func (s *Session) resolveExternal(shuttingDown bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateArmed {
		return false
	}
	if shuttingDown {
		s.m.registry.DisarmIf(s.user, s.generation)
		s.state = StateCancelled
		return false
	}
	if s.m.registry.IsCurrent(s.user, s.generation) {
		return true
	}
	if s.m.registry.Generation(s.user) != s.generation {
		s.state = StateSuperseded
	} else {
		s.state = StateCancelled
	}
	return false
}

// refreshCountdown rewrites the last line of the prompt. Failures are
// logged and ignored.
func (s *Session) refreshCountdown(ctx context.Context, remaining time.Duration) {
	if s.promptID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.m.cfg.EditTimeout)
	defer cancel()

	msg, err := s.m.stream.FetchMessage(ctx, s.chat, s.promptID)
	if err != nil {
		metrics.IncCountdownRefresh("fetch_error")
		s.m.log.Debug().Err(err).Int64("tg_id", s.user).Int("message_id", s.promptID).Msg("countdown fetch failed")
		return
	}
	lines := strings.Split(msg.Text, "\n")
	lines[len(lines)-1] = CountdownLine(remaining)
	if _, err := s.m.stream.EditMessage(ctx, msg, strings.Join(lines, "\n"), msg.ReplyMarkup); err != nil {
		metrics.IncCountdownRefresh("edit_error")
		s.m.log.Debug().Err(err).Int64("tg_id", s.user).Int("message_id", s.promptID).Msg("countdown edit failed")
		return
	}
	metrics.IncCountdownRefresh("ok")
}

func (s *Session) invoke(name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			s.m.log.Error().Str("callback", name).Int64("tg_id", s.user).Str("panic", fmt.Sprint(rec)).Msg("conversation callback panicked")
		}
	}()
	fn()
}

// CountdownLine renders the prompt footer showing the remaining seconds
// rounded to two decimals.
func CountdownLine(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	secs := math.Round(remaining.Seconds()*100) / 100
	return "┖ <b>Time Left :</b> <code>" + strconv.FormatFloat(secs, 'f', -1, 64) + " sec</code>"
}
