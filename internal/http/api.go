package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/auth"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/domain/players"
	"github.com/lutefd/pongboard/internal/events"
	"github.com/lutefd/pongboard/internal/projections"
	"github.com/lutefd/pongboard/internal/storage"
	"go.uber.org/zap"
)

type loginResponse struct {
	players.Player
	Token string `json:"token"`
}

// handleLogin is the passwordless test-account login: the account is
// created on first use.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	intraID := chi.URLParam(r, "intraID")
	house := players.AssignHouse(intraID)
	if raw := r.URL.Query().Get("house"); raw != "" {
		parsed, err := players.ParseHouse(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		house = parsed
	}

	candidate, err := players.New(intraID, r.URL.Query().Get("nickname"), house)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	player, err := s.store.EnsurePlayer(r.Context(), candidate)
	switch {
	case errors.Is(err, storage.ErrConflict):
		http.Error(w, "nickname already taken", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	token, err := s.auth.Login(w, r, player.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Player: player, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(w, r); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	data, err := s.projection.ChartData(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	load := s.projection.MatchLog
	if all, _ := strconv.ParseBool(r.URL.Query().Get("all")); all {
		load = s.projection.History
	}
	items, err := load(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleMyTournamentGames(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	items, err := s.projection.TournamentLog(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleTournament(w http.ResponseWriter, r *http.Request) {
	items, err := s.projection.Tournament(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.projection.Profile(r.Context(), chi.URLParam(r, "intraID"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type nicknameRequest struct {
	Nickname string `json:"nickname"`
}

// handleRename lets a player change their own nickname only.
func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	caller, err := s.store.GetPlayer(r.Context(), userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if caller.IntraID != chi.URLParam(r, "intraID") {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var payload nicknameRequest
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	player, err := s.projection.Rename(r.Context(), userID, payload.Nickname)
	switch {
	case errors.Is(err, players.ErrInvalidNickname):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, storage.ErrConflict):
		http.Error(w, "nickname already taken", http.StatusConflict)
		return
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var payload matches.Submission
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, stored, err := s.projection.RecordGame(r.Context(), payload)
	switch {
	case errors.Is(err, matches.ErrInvalidRecord), errors.Is(err, projections.ErrUnknownPlayer):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusCreated
	if !stored {
		status = http.StatusOK
	}
	writeJSON(w, status, record)
}

type languageRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var payload languageRequest
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.catalog.Supported(payload.Language) {
		http.Error(w, "unsupported language", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     langCookie,
		Value:    payload.Language,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		s.announceLanguage(r.Context(), userID, payload.Language)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) announceLanguage(ctx context.Context, audience uuid.UUID, lang string) {
	e := events.Event{
		Name:    events.LanguageChanged,
		Payload: events.LanguagePayload{Audience: audience, Lang: lang},
	}
	if err := s.bus.Publish(ctx, e); err != nil {
		s.log.Warn("publish language change", zap.Error(err))
	}
}
