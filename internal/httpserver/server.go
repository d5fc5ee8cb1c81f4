// internal/httpserver/server.go
//
// HTTP server wiring for the memory game backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/palette".
//   - Game endpoints (optional auth): mounted by routes_game.go.
//   - Auth endpoints: mounted by auth.go.
//
// Notes:
//   - CORS is origin‑aware and credentials‑enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token is present;
//     routes can still run for guests, whose history is keyed by an anonymous cookie.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/boazFridenberg/memory-game/internal/config"
	"github.com/boazFridenberg/memory-game/internal/game"
	"github.com/boazFridenberg/memory-game/internal/history"
	"github.com/boazFridenberg/memory-game/internal/palette"
	"github.com/boazFridenberg/memory-game/internal/store"
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Config   *config.Config
	Sessions store.Store
	History  *history.Book
	// DB holds the users table for accounts.
	DB *sql.DB
	// Symbols is the card palette; defaults to palette.Symbols().
	Symbols []string
	// Game is the template for new sessions (clock, scheduler, rand, delays).
	Game game.Options
}

// Server bundles router, session store, history, and DB handle.
type Server struct {
	r        *chi.Mux
	cfg      *config.Config
	sessions store.Store
	history  *history.Book
	db       *sql.DB
	symbols  []string
	gameOpts game.Options
	validate *validator.Validate
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      d.Config,
		sessions: d.Sessions,
		history:  d.History,
		db:       d.DB,
		symbols:  d.Symbols,
		gameOpts: d.Game,
		validate: validator.New(),
	}
	_ = s.validate.RegisterValidation("username", validUsername)
	if s.symbols == nil {
		s.symbols = palette.Symbols()
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(s.cors)                          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"memory-game","endpoints":["/health","POST /game/new","POST /game/select","GET /game/{id}","DELETE /game/{id}","GET /history","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/palette", func(w http.ResponseWriter, r *http.Request) {
		count, largest := palette.Stats()
		_ = json.NewEncoder(w).Encode(map[string]int{"symbols": count, "largestGrid": largest})
	})

	// Game + history: OPTIONAL AUTH (guests can play)
	s.mountGame(s.r.With(s.withOptionalAuth()))

	// Accounts
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- small util --------------------------------

// decodeValid reads a JSON body into v and runs struct validation.
func (s *Server) decodeValid(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return s.validate.Struct(v)
}

// sameSite picks cookie attributes for the environment.
func (s *Server) sameSite() (secure bool, mode http.SameSite) {
	if s.cfg.Production() {
		return true, http.SameSiteNoneMode // required for third‑party contexts when Secure
	}
	return false, http.SameSiteLaxMode
}
