//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"telegram-usersettings/internal/domain/model"
	"telegram-usersettings/internal/usecase"

	"github.com/rs/zerolog"
)

const (
	testAPIKey = "test-admin-key"
	testSecret = "test-admin-jwt-secret-please-change"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

type fakeSettings struct {
	usecase.SettingsUseCase

	rows    map[int64]model.UserSettings
	listErr error
}

func (f *fakeSettings) Get(_ context.Context, id int64) (model.UserSettings, error) {
	if s, ok := f.rows[id]; ok {
		return s.Clone(), nil
	}
	return model.UserSettings{}, nil
}

func (f *fakeSettings) Defaults() model.UserSettings {
	return model.UserSettings{"DEFAULT_UPLOAD": "gd", "EQUAL_SPLITS": false}
}

func (f *fakeSettings) All(context.Context) (map[int64]model.UserSettings, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.rows, nil
}

type fakeSessions struct {
	mu        sync.Mutex
	armed     map[int64]uint64
	cancelled []int64
}

func (f *fakeSessions) ArmedGeneration(user int64) (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.armed[user]
	return g, ok
}

func (f *fakeSessions) CancelSession(user int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.armed, user)
	f.cancelled = append(f.cancelled, user)
}

type fakeMirror struct {
	gens map[int64]uint64
	err  error
}

func (f *fakeMirror) MarkArmed(context.Context, int64, uint64) error  { return nil }
func (f *fakeMirror) ClearArmed(context.Context, int64, uint64) error { return nil }
func (f *fakeMirror) ArmedGeneration(_ context.Context, id int64) (uint64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	g, ok := f.gens[id]
	return g, ok, nil
}

type fixture struct {
	handler  http.Handler
	settings *fakeSettings
	sessions *fakeSessions
	mirror   *fakeMirror
	auth     *AuthManager
}

func newFixture() *fixture {
	f := &fixture{
		settings: &fakeSettings{rows: map[int64]model.UserSettings{
			42: {"EQUAL_SPLITS": true, "NAME_SUBSTITUTE": ""},
			7:  {},
		}},
		sessions: &fakeSessions{armed: map[int64]uint64{42: 3}},
		mirror:   &fakeMirror{gens: map[int64]uint64{99: 8}},
		auth:     NewAuthManager(testSecret, false, "", time.Minute),
	}
	f.handler = NewServer(f.settings, f.sessions, f.mirror, testAPIKey, f.auth, newTestLogger()).Routes()
	return f
}

func (f *fixture) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func TestAuth(t *testing.T) {
	f := newFixture()

	t.Run("no credentials -> 401", func(t *testing.T) {
		if rr := f.do(http.MethodGet, "/api/v1/users", ""); rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("wrong scheme -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
		req.Header.Set("Authorization", "Basic "+testAPIKey)
		rr := httptest.NewRecorder()
		f.handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("wrong key -> 401", func(t *testing.T) {
		if rr := f.do(http.MethodGet, "/api/v1/users", "nope"); rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("api key -> 200", func(t *testing.T) {
		if rr := f.do(http.MethodGet, "/api/v1/users", testAPIKey); rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("login mints a usable jwt", func(t *testing.T) {
		rr := f.do(http.MethodPost, "/api/v1/login", testAPIKey)
		if rr.Code != http.StatusOK {
			t.Fatalf("login: expected 200, got %d", rr.Code)
		}
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil || body.Token == "" {
			t.Fatalf("login body: %v %+v", err, body)
		}
		if len(rr.Result().Cookies()) == 0 {
			t.Fatal("login did not set the session cookie")
		}
		if rr := f.do(http.MethodGet, "/api/v1/users", body.Token); rr.Code != http.StatusOK {
			t.Fatalf("jwt bearer: expected 200, got %d", rr.Code)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
		req.AddCookie(rr.Result().Cookies()[0])
		cr := httptest.NewRecorder()
		f.handler.ServeHTTP(cr, req)
		if cr.Code != http.StatusOK {
			t.Fatalf("jwt cookie: expected 200, got %d", cr.Code)
		}
	})

	t.Run("login with a bad key -> 401", func(t *testing.T) {
		if rr := f.do(http.MethodPost, "/api/v1/login", "nope"); rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("jwt signed with another secret -> 401", func(t *testing.T) {
		other := NewAuthManager("another-secret", false, "", time.Minute)
		tok, err := other.Mint(httptest.NewRecorder())
		if err != nil {
			t.Fatal(err)
		}
		if rr := f.do(http.MethodGet, "/api/v1/users", tok); rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("nothing configured -> 403", func(t *testing.T) {
		h := NewServer(f.settings, f.sessions, nil, "", nil, newTestLogger()).Routes()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
		req.Header.Set("Authorization", "Bearer anything")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("logout clears the cookie", func(t *testing.T) {
		rr := f.do(http.MethodPost, "/api/v1/logout", "")
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
		c := rr.Result().Cookies()
		if len(c) != 1 || c[0].MaxAge >= 0 {
			t.Fatalf("cookies = %+v", c)
		}
	})
}

func TestPublicRoutes(t *testing.T) {
	f := newFixture()
	if rr := f.do(http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Fatalf("healthz = %d %q", rr.Code, rr.Body.String())
	}
	if rr := f.do(http.MethodGet, "/metrics", ""); rr.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rr.Code)
	}
}

func TestUsersAPI(t *testing.T) {
	f := newFixture()

	t.Run("list skips users without values", func(t *testing.T) {
		rr := f.do(http.MethodGet, "/api/v1/users", testAPIKey)
		var body struct {
			Data  map[string]map[string]any `json:"data"`
			Total int                       `json:"total"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.Total != 1 || body.Data["42"]["EQUAL_SPLITS"] != true {
			t.Fatalf("body = %+v", body)
		}
	})

	t.Run("list failure -> 500", func(t *testing.T) {
		f.settings.listErr = errors.New("db down")
		defer func() { f.settings.listErr = nil }()
		if rr := f.do(http.MethodGet, "/api/v1/users", testAPIKey); rr.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rr.Code)
		}
	})

	t.Run("settings merge defaults", func(t *testing.T) {
		rr := f.do(http.MethodGet, "/api/v1/users/42/settings", testAPIKey)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var body struct {
			TgID      int64          `json:"tg_id"`
			Settings  map[string]any `json:"settings"`
			Effective map[string]any `json:"effective"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.TgID != 42 || body.Settings["EQUAL_SPLITS"] != true {
			t.Fatalf("settings = %+v", body)
		}
		if body.Effective["EQUAL_SPLITS"] != true || body.Effective["DEFAULT_UPLOAD"] != "gd" {
			t.Fatalf("effective = %+v", body.Effective)
		}
		if _, ok := body.Effective["NAME_SUBSTITUTE"]; ok {
			t.Fatal("unset value leaked into the effective view")
		}
	})

	t.Run("bad id -> 400", func(t *testing.T) {
		if rr := f.do(http.MethodGet, "/api/v1/users/abc/settings", testAPIKey); rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})
}

func TestSessionsAPI(t *testing.T) {
	f := newFixture()

	get := func(t *testing.T, id string) sessionView {
		t.Helper()
		rr := f.do(http.MethodGet, "/api/v1/sessions/"+id, testAPIKey)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var v sessionView
		if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
			t.Fatal(err)
		}
		return v
	}

	if v := get(t, "42"); !v.Armed || v.Generation != 3 || v.Source != "local" {
		t.Fatalf("local session = %+v", v)
	}
	if v := get(t, "99"); !v.Armed || v.Generation != 8 || v.Source != "mirror" {
		t.Fatalf("mirrored session = %+v", v)
	}
	if v := get(t, "5"); v.Armed {
		t.Fatalf("idle user reported armed: %+v", v)
	}

	f.mirror.err = errors.New("redis down")
	if v := get(t, "99"); v.Armed {
		t.Fatalf("mirror error should read as not armed: %+v", v)
	}

	if rr := f.do(http.MethodDelete, "/api/v1/sessions/42", testAPIKey); rr.Code != http.StatusNoContent {
		t.Fatalf("cancel: expected 204, got %d", rr.Code)
	}
	if len(f.sessions.cancelled) != 1 || f.sessions.cancelled[0] != 42 {
		t.Fatalf("cancelled = %v", f.sessions.cancelled)
	}
	if v := get(t, "42"); v.Armed {
		t.Fatal("session still armed after cancel")
	}
	if rr := f.do(http.MethodDelete, "/api/v1/sessions/42", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated cancel: expected 401, got %d", rr.Code)
	}
}
