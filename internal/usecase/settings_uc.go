package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"telegram-usersettings/internal/domain"
	"telegram-usersettings/internal/domain/model"
	"telegram-usersettings/internal/domain/ports/adapter"
	"telegram-usersettings/internal/domain/ports/repository"
	"telegram-usersettings/internal/infra/logging"
	"telegram-usersettings/internal/infra/metrics"
	"telegram-usersettings/internal/infra/worker"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ SettingsUseCase = (*settingsUC)(nil)

// SettingsUseCase owns the per-user settings snapshot. Writes apply to the
// snapshot immediately and are persisted in the background.
type SettingsUseCase interface {
	Get(ctx context.Context, tgID int64) (model.UserSettings, error)
	Defaults() model.UserSettings
	Limits() Limits

	SetOption(ctx context.Context, tgID int64, key, raw string) error
	AddOne(ctx context.Context, tgID int64, key, raw string) error
	RemoveOne(ctx context.Context, tgID int64, key, raw string) error
	Toggle(ctx context.Context, tgID int64, key string, on bool) error
	SwapDefaultUpload(ctx context.Context, tgID int64, current string) (string, error)
	Remove(ctx context.Context, tgID int64, key string) error
	Reset(ctx context.Context, tgID int64, key string) error
	ResetAll(ctx context.Context, tgID int64) error

	SetFile(ctx context.Context, tgID int64, key, fileName string, r io.Reader) (string, error)
	HasFile(tgID int64, key string) bool
	FilePath(tgID int64, key string) string

	All(ctx context.Context) (map[int64]model.UserSettings, error)
}

// TaskRunner runs persistence work off the caller's goroutine.
type TaskRunner interface {
	Submit(task worker.Task) error
}

type SettingsOption func(*settingsUC)

func WithEventPublisher(p adapter.EventPublisher) SettingsOption {
	return func(u *settingsUC) { u.events = p }
}

func WithPersistTimeout(d time.Duration) SettingsOption {
	return func(u *settingsUC) { u.persistTimeout = d }
}

type settingsUC struct {
	repo   repository.SettingsRepository
	files  adapter.FileStore
	runner TaskRunner
	events adapter.EventPublisher
	log    *zerolog.Logger

	defaults       model.UserSettings
	limits         Limits
	persistTimeout time.Duration

	mu       sync.Mutex
	snapshot map[int64]model.UserSettings

	// userLocks serialize persistence per user so a later write never lands
	// before an earlier one.
	userLocks sync.Map
}

func NewSettingsUseCase(
	repo repository.SettingsRepository,
	files adapter.FileStore,
	runner TaskRunner,
	defaults map[string]any,
	limits Limits,
	logger *zerolog.Logger,
	opts ...SettingsOption,
) *settingsUC {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	u := &settingsUC{
		repo:           repo,
		files:          files,
		runner:         runner,
		log:            logger,
		defaults:       model.UserSettings(defaults).Clone(),
		limits:         limits,
		persistTimeout: 10 * time.Second,
		snapshot:       make(map[int64]model.UserSettings),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *settingsUC) Defaults() model.UserSettings { return u.defaults.Clone() }
func (u *settingsUC) Limits() Limits               { return u.limits }

// Get returns a copy of the user's settings, loading them on first use.
func (u *settingsUC) Get(ctx context.Context, tgID int64) (model.UserSettings, error) {
	s, err := u.load(ctx, tgID)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return s.Clone(), nil
}

func (u *settingsUC) load(ctx context.Context, tgID int64) (model.UserSettings, error) {
	u.mu.Lock()
	s, ok := u.snapshot[tgID]
	u.mu.Unlock()
	if ok {
		return s, nil
	}

	stored, err := u.repo.Get(ctx, tgID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		stored = model.UserSettings{}
	case err != nil:
		return nil, fmt.Errorf("load settings for %d: %w", tgID, err)
	}
	if stored == nil {
		stored = model.UserSettings{}
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	// Another caller may have loaded and written meanwhile; keep theirs.
	if s, ok := u.snapshot[tgID]; ok {
		return s, nil
	}
	u.snapshot[tgID] = stored
	return stored, nil
}

// mutate applies fn to the live snapshot under the lock.
func (u *settingsUC) mutate(ctx context.Context, tgID int64, fn func(s model.UserSettings) error) error {
	if _, err := u.load(ctx, tgID); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return fn(u.snapshot[tgID])
}

func (u *settingsUC) SetOption(ctx context.Context, tgID int64, key, raw string) error {
	defer logging.TraceDuration(u.log, "SettingsUC.SetOption")()

	opt, ok := LookupOption(key)
	if !ok {
		return fmt.Errorf("set %s: %w", key, domain.ErrUnknownOption)
	}
	if opt.IsFile() {
		return fmt.Errorf("set %s: option takes a file: %w", key, domain.ErrInvalidArgument)
	}
	value, err := ParseOption(key, raw, u.limits)
	if err != nil {
		metrics.IncSettingsUpdate("set", "invalid")
		return err
	}
	if err := u.mutate(ctx, tgID, func(s model.UserSettings) error {
		s[key] = value
		return nil
	}); err != nil {
		return err
	}
	metrics.IncSettingsUpdate("set", "ok")
	u.persist(ctx, tgID, key, value, false)
	return nil
}

// AddOne merges a dict literal into a dict option.
func (u *settingsUC) AddOne(ctx context.Context, tgID int64, key, raw string) error {
	opt, ok := LookupOption(key)
	if !ok || !opt.Dict {
		return fmt.Errorf("add one to %s: %w", key, domain.ErrUnknownOption)
	}
	add, err := ParseDict(key, raw)
	if err != nil {
		metrics.IncSettingsUpdate("addone", "invalid")
		return err
	}
	var merged map[string]any
	if err := u.mutate(ctx, tgID, func(s model.UserSettings) error {
		merged = make(map[string]any, len(add))
		for k, v := range s.Dict(key) {
			merged[k] = v
		}
		for k, v := range add {
			merged[k] = v
		}
		s[key] = merged
		return nil
	}); err != nil {
		return err
	}
	metrics.IncSettingsUpdate("addone", "ok")
	u.persist(ctx, tgID, key, merged, false)
	return nil
}

// RemoveOne drops the "/"-separated keys from a dict option.
func (u *settingsUC) RemoveOne(ctx context.Context, tgID int64, key, raw string) error {
	opt, ok := LookupOption(key)
	if !ok || !opt.Dict {
		return fmt.Errorf("remove one from %s: %w", key, domain.ErrUnknownOption)
	}
	var left map[string]any
	if err := u.mutate(ctx, tgID, func(s model.UserSettings) error {
		cur := s.Dict(key)
		if cur == nil {
			return nil
		}
		left = make(map[string]any, len(cur))
		for k, v := range cur {
			left[k] = v
		}
		for _, name := range strings.Split(raw, "/") {
			delete(left, name)
		}
		s[key] = left
		return nil
	}); err != nil {
		return err
	}
	metrics.IncSettingsUpdate("rmone", "ok")
	if left != nil {
		u.persist(ctx, tgID, key, left, false)
	}
	return nil
}

func (u *settingsUC) Toggle(ctx context.Context, tgID int64, key string, on bool) error {
	if _, ok := LookupToggle(key); !ok {
		return fmt.Errorf("toggle %s: %w", key, domain.ErrUnknownOption)
	}
	if err := u.mutate(ctx, tgID, func(s model.UserSettings) error {
		s[key] = on
		return nil
	}); err != nil {
		return err
	}
	metrics.IncSettingsUpdate("toggle", "ok")
	u.persist(ctx, tgID, key, on, false)
	return nil
}

// SwapDefaultUpload flips between "gd" and "rc" and returns the new mode.
func (u *settingsUC) SwapDefaultUpload(ctx context.Context, tgID int64, current string) (string, error) {
	next := "gd"
	if current == "gd" {
		next = "rc"
	}
	if err := u.mutate(ctx, tgID, func(s model.UserSettings) error {
		s["DEFAULT_UPLOAD"] = next
		return nil
	}); err != nil {
		return "", err
	}
	metrics.IncSettingsUpdate("default_upload", "ok")
	u.persist(ctx, tgID, "DEFAULT_UPLOAD", next, false)
	return next, nil
}

// Remove clears a value: file options lose their file, others are blanked.
func (u *settingsUC) Remove(ctx context.Context, tgID int64, key string) error {
	opt, ok := LookupOption(key)
	if !ok {
		return fmt.Errorf("remove %s: %w", key, domain.ErrUnknownOption)
	}
	if opt.IsFile() {
		if err := u.files.Remove(ctx, tgID, key); err != nil {
			return fmt.Errorf("remove %s file: %w", key, err)
		}
		if err := u.mutate(ctx, tgID, func(s model.UserSettings) error {
			delete(s, key)
			return nil
		}); err != nil {
			return err
		}
		metrics.IncSettingsUpdate("remove", "ok")
		u.persistDocument(ctx, tgID, key)
		return nil
	}
	if err := u.mutate(ctx, tgID, func(s model.UserSettings) error {
		s[key] = ""
		return nil
	}); err != nil {
		return err
	}
	metrics.IncSettingsUpdate("remove", "ok")
	u.persist(ctx, tgID, key, "", false)
	return nil
}

// Reset forgets the user's value so the global default applies again.
func (u *settingsUC) Reset(ctx context.Context, tgID int64, key string) error {
	if !KnownKey(key) {
		return fmt.Errorf("reset %s: %w", key, domain.ErrUnknownOption)
	}
	if err := u.mutate(ctx, tgID, func(s model.UserSettings) error {
		delete(s, key)
		return nil
	}); err != nil {
		return err
	}
	metrics.IncSettingsUpdate("reset", "ok")
	u.persist(ctx, tgID, key, nil, true)
	return nil
}

// ResetAll drops every user value except the admin-managed keys and
// deletes the user's files.
func (u *settingsUC) ResetAll(ctx context.Context, tgID int64) error {
	defer logging.TraceDuration(u.log, "SettingsUC.ResetAll")()

	for _, key := range FileOptions() {
		if err := u.files.Remove(ctx, tgID, key); err != nil {
			u.log.Warn().Err(err).Int64("tg_id", tgID).Str("option", key).Msg("remove user file on reset")
		}
	}
	if err := u.mutate(ctx, tgID, func(s model.UserSettings) error {
		for k := range s {
			if _, keep := model.ProtectedKeys[k]; !keep {
				delete(s, k)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	metrics.IncSettingsUpdate("reset_all", "ok")
	u.persist(ctx, tgID, "*", nil, true)
	return nil
}

func (u *settingsUC) SetFile(ctx context.Context, tgID int64, key, fileName string, r io.Reader) (string, error) {
	opt, ok := LookupOption(key)
	if !ok || !opt.IsFile() {
		return "", fmt.Errorf("set file %s: %w", key, domain.ErrUnknownOption)
	}
	path, err := u.files.Save(ctx, tgID, key, fileName, r)
	if err != nil {
		metrics.IncSettingsUpdate("file", "invalid")
		return "", err
	}
	if err := u.mutate(ctx, tgID, func(s model.UserSettings) error {
		s[key] = path
		return nil
	}); err != nil {
		return "", err
	}
	metrics.IncSettingsUpdate("file", "ok")
	u.persistDocument(ctx, tgID, key)
	return path, nil
}

func (u *settingsUC) HasFile(tgID int64, key string) bool { return u.files.Exists(tgID, key) }

func (u *settingsUC) FilePath(tgID int64, key string) string { return u.files.Path(tgID, key) }

// All merges stored rows with the in-memory snapshot, which may be ahead.
func (u *settingsUC) All(ctx context.Context) (map[int64]model.UserSettings, error) {
	stored, err := u.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	out := make(map[int64]model.UserSettings, len(stored))
	for id, s := range stored {
		out[id] = s
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	for id, s := range u.snapshot {
		out[id] = s.Clone()
	}
	return out, nil
}

func (u *settingsUC) lockUser(tgID int64) func() {
	v, _ := u.userLocks.LoadOrStore(tgID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// persist writes the user's current snapshot. The snapshot is read when the
// task runs, so reordered tasks still converge on the latest state.
func (u *settingsUC) persist(ctx context.Context, tgID int64, key string, value any, removed bool) {
	u.submit(ctx, tgID, key, value, removed, func(ctx context.Context) error {
		u.mu.Lock()
		s := u.snapshot[tgID].Clone()
		u.mu.Unlock()
		return u.repo.UpdateScalar(ctx, tgID, s)
	})
}

// persistDocument writes a single file-backed key as it is in the snapshot now.
func (u *settingsUC) persistDocument(ctx context.Context, tgID int64, key string) {
	u.mu.Lock()
	path := u.snapshot[tgID].String(key)
	u.mu.Unlock()
	u.submit(ctx, tgID, key, path, path == "", func(ctx context.Context) error {
		u.mu.Lock()
		current := u.snapshot[tgID].String(key)
		u.mu.Unlock()
		return u.repo.UpdateDocument(ctx, tgID, key, current)
	})
}

func (u *settingsUC) submit(ctx context.Context, tgID int64, key string, value any, removed bool, write func(ctx context.Context) error) {
	log := logging.With(ctx, u.log)
	task := func(ctx context.Context) error {
		unlock := u.lockUser(tgID)
		defer unlock()

		ctx, cancel := context.WithTimeout(ctx, u.persistTimeout)
		defer cancel()
		if err := write(ctx); err != nil {
			metrics.IncSettingsPersist("error")
			return fmt.Errorf("persist %s for %d: %w", key, tgID, err)
		}
		metrics.IncSettingsPersist("ok")
		u.publish(ctx, adapter.SettingsChanged{
			TelegramID: tgID,
			Option:     key,
			Value:      value,
			Removed:    removed,
			ChangedAt:  time.Now().UTC(),
		})
		return nil
	}

	if u.runner != nil {
		err := u.runner.Submit(task)
		if err == nil {
			return
		}
		metrics.IncSettingsPersist("inline")
		log.Warn().Err(err).Int64("tg_id", tgID).Str("option", key).Msg("persist queue rejected write; writing inline")
	}
	if err := task(context.WithoutCancel(ctx)); err != nil {
		log.Error().Err(err).Int64("tg_id", tgID).Msg("persist settings failed")
	}
}

func (u *settingsUC) publish(ctx context.Context, ev adapter.SettingsChanged) {
	if u.events == nil {
		return
	}
	if err := u.events.PublishSettingsChanged(ctx, ev); err != nil {
		metrics.IncSettingsEvent("error")
		u.log.Warn().Err(err).Int64("tg_id", ev.TelegramID).Str("option", ev.Option).Msg("publish settings.changed failed")
		return
	}
	metrics.IncSettingsEvent("ok")
}
