package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"telegram-usersettings/internal/domain/model"
	"telegram-usersettings/internal/infra/logging"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func tgIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tgID"), 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "Invalid telegram id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// handleLogin trades the static API key for a short-lived JWT cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	tok, ok := bearer(r)
	if !ok || s.apiKey == "" || !sameKey(tok, s.apiKey) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	signed, err := s.auth.Mint(w)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("mint admin token")
		http.Error(w, "Login is not available", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}{Token: signed, ExpiresIn: int(s.auth.cfg.TTL.Seconds())})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUsersList(w http.ResponseWriter, r *http.Request) {
	all, err := s.settings.All(r.Context())
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("list user settings")
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}
	data := make(map[string]model.UserSettings, len(all))
	for id, st := range all {
		if len(st) == 0 {
			continue
		}
		data[strconv.FormatInt(id, 10)] = st
	}
	writeJSON(w, http.StatusOK, struct {
		Data  map[string]model.UserSettings `json:"data"`
		Total int                           `json:"total"`
	}{Data: data, Total: len(data)})
}

// handleUserSettings returns the user's own values and the effective view
// with bot defaults filled in.
func (s *Server) handleUserSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := tgIDParam(w, r)
	if !ok {
		return
	}
	st, err := s.settings.Get(r.Context(), id)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Int64("tg_id", id).Msg("get user settings")
		http.Error(w, "Failed to get settings", http.StatusInternalServerError)
		return
	}
	effective := s.settings.Defaults()
	for k, v := range st {
		if st.IsSet(k) {
			effective[k] = v
		}
	}
	writeJSON(w, http.StatusOK, struct {
		TgID      int64              `json:"tg_id"`
		Settings  model.UserSettings `json:"settings"`
		Effective model.UserSettings `json:"effective"`
	}{TgID: id, Settings: st, Effective: effective})
}

type sessionView struct {
	TgID       int64  `json:"tg_id"`
	Armed      bool   `json:"armed"`
	Generation uint64 `json:"generation"`
	Source     string `json:"source,omitempty"`
}

// handleSessionGet reports this process's view first, then the shared mirror
// for sessions armed by another instance.
func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	id, ok := tgIDParam(w, r)
	if !ok {
		return
	}
	view := sessionView{TgID: id}
	if gen, armed := s.sessions.ArmedGeneration(id); armed {
		view.Armed, view.Generation, view.Source = true, gen, "local"
		writeJSON(w, http.StatusOK, view)
		return
	}
	if s.mirror != nil {
		gen, armed, err := s.mirror.ArmedGeneration(r.Context(), id)
		if err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Int64("tg_id", id).Msg("session mirror lookup failed")
		} else if armed {
			view.Armed, view.Generation, view.Source = true, gen, "mirror"
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSessionCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := tgIDParam(w, r)
	if !ok {
		return
	}
	s.sessions.CancelSession(id)
	logging.With(r.Context(), s.log).Info().Int64("tg_id", id).Msg("session cancelled by admin")
	w.WriteHeader(http.StatusNoContent)
}
