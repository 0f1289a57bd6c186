package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"telegram-usersettings/internal/domain/ports/repository"
	"telegram-usersettings/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Sessions is the part of the conversation manager the admin API inspects.
type Sessions interface {
	ArmedGeneration(user int64) (uint64, bool)
	CancelSession(user int64)
}

type Server struct {
	settings usecase.SettingsUseCase
	sessions Sessions
	mirror   repository.SessionMirror // optional
	apiKey   string
	auth     *AuthManager
	log      *zerolog.Logger

	srv *http.Server
}

func NewServer(
	settings usecase.SettingsUseCase,
	sessions Sessions,
	mirror repository.SessionMirror,
	apiKey string,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if auth == nil {
		auth = NewAuthManager("", false, "", 0)
	}
	return &Server{
		settings: settings,
		sessions: sessions,
		mirror:   mirror,
		apiKey:   apiKey,
		auth:     auth,
		log:      logger,
	}
}

// Routes builds the full admin router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(10*time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	s.RegisterAPIV1(r)
	return r
}

// RegisterAPIV1 mounts /api/v1 on r.
func (s *Server) RegisterAPIV1(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/users", s.handleUsersList)
			r.Get("/users/{tgID}/settings", s.handleUserSettings)
			r.Get("/sessions/{tgID}", s.handleSessionGet)
			r.Delete("/sessions/{tgID}", s.handleSessionCancel)
		})
	})
}

// Start serves until Shutdown; http.ErrServerClosed is not an error.
func (s *Server) Start(port int) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("admin http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
