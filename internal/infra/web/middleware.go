package web

import (
	"context"
	"net/http"
	"time"

	"telegram-usersettings/internal/infra/logging"
	"telegram-usersettings/internal/infra/metrics"

	"github.com/rs/zerolog"
)

type Middleware = func(http.Handler) http.Handler

func TraceID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.WithTraceID(r.Context(), logging.NewTraceID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequestLog(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logging.With(r.Context(), logger)
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.status).
				Dur("duration", time.Since(start)).
				Msg("http_request")
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func Recover(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l := logging.With(r.Context(), logger)
					l.Error().Interface("panic", rec).Msg("panic recovered")
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin accepts the static API key as a bearer token, or a JWT minted
// by /api/v1/login (bearer or cookie).
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" && !s.auth.Enabled() {
			s.log.Error().Msg("admin API has neither an api key nor a jwt secret")
			metrics.IncAdminCommand("http", "unauthorized")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if tok, ok := bearer(r); ok && s.apiKey != "" && sameKey(tok, s.apiKey) {
			metrics.IncAdminCommand("http", "authorized")
			next.ServeHTTP(w, r)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			metrics.IncAdminCommand("http", "unauthorized")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		metrics.IncAdminCommand("http", "authorized")
		next.ServeHTTP(w, r)
	})
}
