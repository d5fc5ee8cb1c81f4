package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boazFridenberg/memory-game/assets"
	"github.com/boazFridenberg/memory-game/internal/config"
	"github.com/boazFridenberg/memory-game/internal/game"
	"github.com/boazFridenberg/memory-game/internal/history"
	"github.com/boazFridenberg/memory-game/internal/palette"
	"github.com/boazFridenberg/memory-game/internal/store"
)

// unshuffled keeps decks in palette order: cards 2k and 2k+1 pair up.
type unshuffled struct{}

func (unshuffled) IntN(n int) int { return n - 1 }

// queueScheduler holds deferred clears until flush.
type queueScheduler struct {
	mu    sync.Mutex
	queue []func()
}

func (q *queueScheduler) AfterFunc(_ time.Duration, f func()) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	canceled := false
	q.queue = append(q.queue, func() {
		if !canceled {
			f()
		}
	})
	return func() { canceled = true }
}

func (q *queueScheduler) flush() {
	q.mu.Lock()
	fs := q.queue
	q.queue = nil
	q.mu.Unlock()
	for _, f := range fs {
		f()
	}
}

type testEnv struct {
	srv   *Server
	sched *queueScheduler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, palette.Init())

	db, err := store.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db, assets.Migrations()))

	kv := store.NewSQLiteKV(db)
	sched := &queueScheduler{}
	srv := New(Deps{
		Config: &config.Config{
			JWTSecret:      "test-secret",
			JWTExpiresDays: 1,
			CookieName:     "memory_token",
			ClientOrigin:   "http://localhost:5173",
			DailySalt:      "salt",
		},
		Sessions: store.NewMemoryStore(),
		History: history.NewBook(func(owner string) history.Repository {
			return history.NewKVRepository(kv, owner)
		}),
		DB:   db,
		Game: game.Options{Rand: unshuffled{}, Scheduler: sched},
	})
	return &testEnv{srv: srv, sched: sched}
}

// client keeps cookies between requests like a browser.
type client struct {
	t       *testing.T
	env     *testEnv
	cookies map[string]*http.Cookie
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, env: e, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.env.srv.Router().ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
		} else {
			c.cookies[ck.Name] = ck
		}
	}
	return rec
}

func (c *client) view(method, path string, body any) gameView {
	c.t.Helper()
	rec := c.do(method, path, body)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	var v gameView
	require.NoError(c.t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func (c *client) newGame(difficulty string) gameView {
	return c.view(http.MethodPost, "/game/new", map[string]any{"difficulty": difficulty})
}

func (c *client) pick(v gameView, i int) gameView {
	return c.view(http.MethodPost, "/game/select", map[string]string{"gameId": v.GameID, "cardId": v.Cards[i].ID})
}

func (c *client) history() []history.Item {
	c.t.Helper()
	rec := c.do(http.MethodGet, "/history", nil)
	require.Equal(c.t, http.StatusOK, rec.Code)
	var res historyRes
	require.NoError(c.t, json.NewDecoder(rec.Body).Decode(&res))
	return res.Items
}

// playPerfect matches every pair in order and returns the last view.
func (c *client) playPerfect(v gameView) gameView {
	var last gameView
	for i := 0; i < len(v.Cards); i += 2 {
		c.pick(v, i)
		last = c.pick(v, i+1)
		c.env.sched.flush()
	}
	return last
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.client(t).do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewGameHidesCards(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	v := c.newGame("easy")
	assert.NotEmpty(t, v.GameID)
	assert.Equal(t, "4x4", v.Grid)
	assert.Equal(t, 4, v.Size)
	assert.Equal(t, "playing", v.Phase)
	assert.Equal(t, noticeNewGame, v.Notice)
	require.Len(t, v.Cards, 16)
	for _, card := range v.Cards {
		assert.False(t, card.FaceUp)
		assert.Empty(t, card.Content)
	}
	assert.Contains(t, c.cookies, anonCookieName)
}

func TestNewGameRejectsBadDifficulty(t *testing.T) {
	env := newTestEnv(t)
	rec := env.client(t).do(http.MethodPost, "/game/new", map[string]string{"difficulty": "medium"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelectFlow(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	v := c.newGame("easy")

	first := c.pick(v, 0)
	assert.Equal(t, string(game.OutcomeFirst), first.Outcome)
	assert.True(t, first.Cards[0].FaceUp)
	assert.NotEmpty(t, first.Cards[0].Content)
	assert.False(t, first.Cards[1].FaceUp)

	match := c.pick(v, 1)
	assert.Equal(t, string(game.OutcomeMatch), match.Outcome)
	assert.Equal(t, noticeMatch, match.Notice)
	assert.Equal(t, 1, match.Attempts)
	assert.True(t, match.Locked)
	assert.True(t, match.Cards[0].Matched)
	assert.True(t, match.Cards[1].Matched)

	// Locked: a third card is ignored.
	third := c.pick(v, 2)
	assert.Equal(t, string(game.OutcomeIgnored), third.Outcome)
	assert.False(t, third.Cards[2].FaceUp)

	env.sched.flush()
	after := c.view(http.MethodGet, "/game/"+v.GameID, nil)
	assert.False(t, after.Locked)

	c.pick(v, 2)
	miss := c.pick(v, 4)
	assert.Equal(t, string(game.OutcomeMismatch), miss.Outcome)
	assert.Equal(t, noticeRetry, miss.Notice)
	assert.Equal(t, 2, miss.Attempts)
	assert.True(t, miss.Cards[4].FaceUp, "chosen cards stay visible until the clear")

	env.sched.flush()
	after = c.view(http.MethodGet, "/game/"+v.GameID, nil)
	assert.False(t, after.Cards[2].FaceUp)
	assert.False(t, after.Cards[4].FaceUp)
}

func TestWinRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	assert.Empty(t, c.history())

	last := c.playPerfect(c.newGame("easy"))
	assert.Equal(t, string(game.OutcomeWon), last.Outcome)
	assert.Equal(t, noticeWon, last.Notice)
	assert.Equal(t, "won", last.Phase)
	assert.False(t, last.Running)

	items := c.history()
	require.Len(t, items, 1)
	assert.Equal(t, "4x4", items[0].Grid)
	assert.Equal(t, 8, items[0].Attempts)
	assert.GreaterOrEqual(t, items[0].TimeMs, int64(0))

	// Another guest has their own history.
	assert.Empty(t, env.client(t).history())
}

func TestDifficultySwitchRestartsSession(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	v := c.newGame("easy")
	c.pick(v, 0)
	locked := c.pick(v, 2)
	require.True(t, locked.Locked)

	hard := c.view(http.MethodPost, "/game/new", map[string]any{"difficulty": "hard", "gameId": v.GameID})
	assert.Equal(t, v.GameID, hard.GameID)
	assert.Len(t, hard.Cards, 36)
	assert.Equal(t, "6x6", hard.Grid)
	assert.Zero(t, hard.Attempts)
	assert.False(t, hard.Locked)

	first := c.pick(hard, 0)
	env.sched.flush() // stale clear from the easy game
	after := c.view(http.MethodGet, "/game/"+v.GameID, nil)
	assert.True(t, after.Cards[0].FaceUp, "selection in the new deck survives the stale clear")
	assert.Equal(t, first.Cards[0].ID, after.Cards[0].ID)
}

func TestDailyDecksMatch(t *testing.T) {
	env := newTestEnv(t)
	a := env.client(t).view(http.MethodPost, "/game/new", map[string]any{"difficulty": "easy", "daily": true})
	b := env.client(t).view(http.MethodPost, "/game/new", map[string]any{"difficulty": "easy", "daily": true})
	require.NotEqual(t, a.GameID, b.GameID)

	layout := func(id string) (contents, ids []string) {
		sess, err := env.srv.sessions.Get(context.Background(), id)
		require.NoError(t, err)
		for _, card := range sess.Snapshot().Deck {
			contents = append(contents, card.Content)
			ids = append(ids, card.ID)
		}
		return contents, ids
	}
	aContents, aIDs := layout(a.GameID)
	bContents, bIDs := layout(b.GameID)
	require.Len(t, aContents, 16)
	assert.Equal(t, aContents, bContents, "same day, same layout")
	assert.NotEqual(t, aIDs, bIDs, "cards still get fresh identities")

	plain := env.client(t).newGame("easy")
	plainContents, plainIDs := layout(plain.GameID)
	assert.NotEqual(t, aContents, plainContents, "daily deal is shuffled by the day's seed")
	assert.NotEqual(t, aIDs, plainIDs)
}

func TestUnknownGame(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/game/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound,
		c.do(http.MethodPost, "/game/select", map[string]string{"gameId": "nope", "cardId": "x"}).Code)
	assert.Equal(t, http.StatusNotFound,
		c.do(http.MethodPost, "/game/new", map[string]string{"difficulty": "easy", "gameId": "nope"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		c.do(http.MethodPost, "/game/select", map[string]string{"gameId": "nope"}).Code)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	creds := map[string]string{"username": "player_1", "password": "correct-horse"}

	// Guest win before signing up stays with the anonymous identity.
	c.playPerfect(c.newGame("easy"))
	require.Len(t, c.history(), 1)

	rec := c.do(http.MethodPost, "/auth/signup", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, c.cookies, "memory_token")

	assert.Equal(t, http.StatusConflict, env.client(t).do(http.MethodPost, "/auth/signup", creds).Code)
	assert.Equal(t, http.StatusBadRequest, env.client(t).do(http.MethodPost, "/auth/signup",
		map[string]string{"username": "no spaces", "password": "correct-horse"}).Code)

	claimed := c.history()
	require.Len(t, claimed, 1, "guest wins move to the new account")
	c.playPerfect(c.newGame("easy"))
	assert.Len(t, c.history(), 2)

	rec = c.do(http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(t, "player_1", me["username"])
	assert.EqualValues(t, 1, me["gamesWon"])

	c.do(http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/auth/me", nil).Code)

	other := env.client(t)
	bad := map[string]string{"username": "player_1", "password": "wrong-password"}
	assert.Equal(t, http.StatusUnauthorized, other.do(http.MethodPost, "/auth/login", bad).Code)
	assert.Equal(t, http.StatusOK, other.do(http.MethodPost, "/auth/login", creds).Code)
	items := other.history()
	require.Len(t, items, 2, "history follows the account")
	assert.Equal(t, claimed[0].ID, items[1].ID)
}

func TestLoginClaimsGuestHistory(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.srv.createUser(context.Background(), "returning", "password123")
	require.NoError(t, err)

	c := env.client(t)
	c.playPerfect(c.newGame("easy"))
	c.playPerfect(c.newGame("easy"))
	guest := c.history()
	require.Len(t, guest, 2)
	anon := c.cookies[anonCookieName].Value

	rec := c.do(http.MethodPost, "/auth/login", map[string]string{"username": "returning", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	items := c.history()
	require.Len(t, items, 2)
	assert.Equal(t, guest[0].ID, items[0].ID)
	assert.Empty(t, env.srv.history.Log(context.Background(), "anon:"+anon).Items())
}

func TestHistoryWithoutIdentityCreatesNothing(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 100; i++ {
		c := env.client(t)
		assert.Empty(t, c.history())
		assert.NotContains(t, c.cookies, anonCookieName)
	}
	assert.Zero(t, env.srv.history.Len())
}

func TestMeForDeletedUser(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxUserKey{}, &authUser{ID: "gone", Username: "gone"}))
	rec := httptest.NewRecorder()
	env.srv.handleMe(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteGame(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	v := c.newGame("easy")
	c.pick(v, 0)
	c.pick(v, 2)

	rec := c.do(http.MethodDelete, "/game/"+v.GameID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/game/"+v.GameID, nil).Code)
	env.sched.flush() // the canceled clear must not touch the closed session

	assert.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/game/"+v.GameID, nil).Code)
}

func TestBearerToken(t *testing.T) {
	env := newTestEnv(t)
	u, err := env.srv.createUser(context.Background(), "bearer_user", "password123")
	require.NoError(t, err)
	tok, _, err := env.srv.signJWT(u.ID, u.Username)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
