// internal/httpserver/routes_game.go
//
// HTTP routes for playing the game.
//   - POST /game/new     → start a game, or restart an existing one (difficulty switch)
//   - POST /game/select  → select a card
//   - GET  /game/{id}    → current board (poll after a deferred clear)
//   - DELETE /game/{id}  → abandon a game; pending evaluations are dropped
//   - GET  /history      → the caller's completed games, newest first
//
// Sessions live in memory; wins are recorded into the owner's history
// log as soon as the winning selection is evaluated.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/boazFridenberg/memory-game/internal/daily"
	"github.com/boazFridenberg/memory-game/internal/game"
	"github.com/boazFridenberg/memory-game/internal/history"
	"github.com/boazFridenberg/memory-game/internal/store"
)

// Toast texts shown by the client.
const (
	noticeNewGame = "New game started"
	noticeMatch   = "Match!"
	noticeRetry   = "Try again"
	noticeWon     = "You won! Saved to history."
)

// mountGame registers the game and history routes.
func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Post("/game/select", s.handleSelect)
	r.Get("/game/{id}", s.handleGetGame)
	r.Delete("/game/{id}", s.handleDeleteGame)
	r.Get("/history", s.handleHistory)
}

// -----------------------------------------------------------------------------
// /game/new

// newGameReq is the request payload for /game/new.
type newGameReq struct {
	Difficulty string `json:"difficulty" validate:"required,oneof=easy hard"`
	GameID     string `json:"gameId"` // restart this session instead of creating one
	Daily      bool   `json:"daily"`  // shuffle with today's shared seed
}

// handleNewGame starts a game. With a known gameId the session is
// restarted in place, which discards its pending evaluation.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := s.decodeValid(r, &req); err != nil {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
		return
	}
	owner := s.owner(w, r)

	var sess *game.Session
	if req.GameID != "" {
		existing, err := s.sessions.Get(r.Context(), req.GameID)
		if err != nil {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
			return
		}
		sess = existing
	} else {
		sess = s.newSession(owner)
	}

	var rng game.Rand
	if req.Daily {
		rng = game.SeededRand(daily.Seed(time.Now(), s.cfg.DailySalt))
	}
	if err := sess.Restart(game.Difficulty(req.Difficulty), rng); err != nil {
		log.Error().Err(err).Str("gameId", sess.ID()).Msg("deal deck")
		http.Error(w, `{"error":"deal_failed"}`, http.StatusInternalServerError)
		return
	}
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	log.Debug().Str("gameId", sess.ID()).Str("owner", owner).Str("difficulty", req.Difficulty).
		Bool("daily", req.Daily).Msg("new game")
	v := newGameView(sess.Snapshot())
	v.Notice = noticeNewGame
	_ = json.NewEncoder(w).Encode(v)
}

// newSession builds a session whose wins land in owner's history.
func (s *Server) newSession(owner string) *game.Session {
	opts := s.gameOpts
	opts.Symbols = s.symbols
	opts.OnWin = s.recordWin(owner)
	return game.NewSession(game.NewID(), opts)
}

// recordWin persists a finished game. It runs on the request that made
// the winning selection, so the history is current by the response.
func (s *Server) recordWin(owner string) func(game.Result) {
	return func(res game.Result) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		it, err := s.history.Log(ctx, owner).Record(ctx, res)
		if err != nil {
			log.Warn().Err(err).Str("owner", owner).Msg("persist history")
		}
		if uid, ok := userFromOwner(owner); ok {
			if err := s.bumpWins(ctx, uid); err != nil {
				log.Warn().Err(err).Str("user", uid).Msg("bump wins")
			}
		}
		log.Info().Str("gameId", res.SessionID).Str("grid", it.Grid).
			Int("attempts", it.Attempts).Int64("timeMs", it.TimeMs).Msg("game won")
	}
}

// -----------------------------------------------------------------------------
// /game/select

// selectReq is the request payload for /game/select.
type selectReq struct {
	GameID string `json:"gameId" validate:"required"`
	CardID string `json:"cardId" validate:"required"`
}

// handleSelect applies one card selection and returns the board.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := s.decodeValid(r, &req); err != nil {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
		return
	}
	sess, ok := s.lookup(w, r, req.GameID)
	if !ok {
		return
	}

	out := sess.SelectCard(req.CardID)
	v := newGameView(sess.Snapshot())
	v.Outcome = string(out)
	switch out {
	case game.OutcomeMatch:
		v.Notice = noticeMatch
	case game.OutcomeMismatch:
		v.Notice = noticeRetry
	case game.OutcomeWon:
		v.Notice = noticeWon
	}
	_ = json.NewEncoder(w).Encode(v)
}

// -----------------------------------------------------------------------------
// /game/{id}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	_ = json.NewEncoder(w).Encode(newGameView(sess.Snapshot()))
}

// handleDeleteGame closes and forgets a session. Unknown IDs are fine.
func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		log.Error().Err(err).Str("gameId", id).Msg("delete session")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// lookup fetches a session or writes the error response.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, id string) (*game.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("gameId", id).Msg("load session")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

// -----------------------------------------------------------------------------
// /history

// historyRes is returned by /history.
type historyRes struct {
	Items []history.Item `json:"items"`
}

// handleHistory lists the caller's games. A caller with neither a token
// nor an anonymous cookie has no history, and none is created for them.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.knownOwner(r)
	if !ok {
		_ = json.NewEncoder(w).Encode(historyRes{Items: []history.Item{}})
		return
	}
	items := s.history.Log(r.Context(), owner).Items()
	_ = json.NewEncoder(w).Encode(historyRes{Items: items})
}
