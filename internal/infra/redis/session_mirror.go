package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"telegram-usersettings/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.SessionMirror = (*SessionMirror)(nil)

// SessionMirror publishes armed conversations as conv_armed:<tg_id> = <generation>.
// The process that armed a session stays authoritative; the mirror only
// lets other processes observe it.
type SessionMirror struct {
	cli *redis.Client
	ttl time.Duration
}

// NewSessionMirror keeps marks for ttl so a crashed process does not leave
// users looking armed forever.
func NewSessionMirror(c *Client, ttl time.Duration) *SessionMirror {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SessionMirror{cli: c.cli, ttl: ttl}
}

func armedKey(tgID int64) string {
	return fmt.Sprintf("conv_armed:%d", tgID)
}

func (m *SessionMirror) MarkArmed(ctx context.Context, tgID int64, generation uint64) error {
	return m.cli.Set(ctx, armedKey(tgID), strconv.FormatUint(generation, 10), m.ttl).Err()
}

// a newer generation written by a re-arm must survive the old session's cleanup
var luaClearGeneration = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (m *SessionMirror) ClearArmed(ctx context.Context, tgID int64, generation uint64) error {
	_, err := luaClearGeneration.Run(ctx, m.cli, []string{armedKey(tgID)}, strconv.FormatUint(generation, 10)).Result()
	if err == redis.Nil {
		return nil
	}
	return err
}

func (m *SessionMirror) ArmedGeneration(ctx context.Context, tgID int64) (uint64, bool, error) {
	v, err := m.cli.Get(ctx, armedKey(tgID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	gen, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("mirror value %q for %d: %w", v, tgID, err)
	}
	return gen, true, nil
}
