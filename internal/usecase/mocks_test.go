// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"telegram-usersettings/internal/domain"
	"telegram-usersettings/internal/domain/model"
	"telegram-usersettings/internal/domain/ports/adapter"
	"telegram-usersettings/internal/infra/worker"
)

// memSettingsRepo is a small in-memory SettingsRepository.
type memSettingsRepo struct {
	mu      sync.Mutex
	store   map[int64]model.UserSettings
	docs    []string
	getErr  error
	saveErr error
	writes  int
}

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{store: make(map[int64]model.UserSettings)}
}

func (m *memSettingsRepo) Get(ctx context.Context, tgID int64) (model.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.store[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memSettingsRepo) UpdateScalar(ctx context.Context, tgID int64, s model.UserSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.writes++
	m.store[tgID] = s.Clone()
	return nil
}

func (m *memSettingsRepo) UpdateDocument(ctx context.Context, tgID int64, key, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.writes++
	s := m.store[tgID]
	if s == nil {
		s = model.UserSettings{}
		m.store[tgID] = s
	}
	if path == "" {
		delete(s, key)
	} else {
		s[key] = path
	}
	m.docs = append(m.docs, key+"="+path)
	return nil
}

func (m *memSettingsRepo) ListAll(ctx context.Context) (map[int64]model.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]model.UserSettings, len(m.store))
	for k, v := range m.store {
		out[k] = v.Clone()
	}
	return out, nil
}

func (m *memSettingsRepo) stored(tgID int64) model.UserSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[tgID].Clone()
}

// memFileStore keeps file contents keyed by user and option.
type memFileStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
}

func newMemFileStore() *memFileStore { return &memFileStore{files: map[string][]byte{}} }

func fileKey(tgID int64, key string) string { return fmt.Sprintf("%s/%d", key, tgID) }

func (f *memFileStore) Save(ctx context.Context, tgID int64, key, fileName string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[fileKey(tgID, key)] = b
	return f.Path(tgID, key), nil
}

func (f *memFileStore) Remove(ctx context.Context, tgID int64, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, fileKey(tgID, key))
	return nil
}

func (f *memFileStore) Exists(tgID int64, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[fileKey(tgID, key)]
	return ok
}

func (f *memFileStore) Path(tgID int64, key string) string { return "files/" + fileKey(tgID, key) }

// inlineRunner runs tasks on the caller's goroutine.
type inlineRunner struct {
	reject bool
	ran    int
}

func (r *inlineRunner) Submit(task worker.Task) error {
	if r.reject {
		return worker.ErrQueueFull
	}
	r.ran++
	// Like the pool, task errors are the task's business.
	_ = task(context.Background())
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []adapter.SettingsChanged
	err    error
}

func (p *recordingPublisher) PublishSettingsChanged(ctx context.Context, ev adapter.SettingsChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) last() adapter.SettingsChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return adapter.SettingsChanged{}
	}
	return p.events[len(p.events)-1]
}

var errDown = errors.New("database is down")
