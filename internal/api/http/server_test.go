package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bluff-table/bluff-table/internal/application/bot"
	"github.com/bluff-table/bluff-table/internal/application/engine"
	"github.com/bluff-table/bluff-table/internal/domain/game"
	"github.com/bluff-table/bluff-table/internal/domain/game/mocks"
	"github.com/bluff-table/bluff-table/internal/infrastructure/memory"
	"github.com/bluff-table/bluff-table/internal/infrastructure/sse"
)

type apiFixture struct {
	svc     *engine.Service
	hub     *sse.Hub
	handler http.Handler
}

func newAPI(t *testing.T, opts ...ServerOption) *apiFixture {
	t.Helper()
	hub := sse.NewHub(zerolog.Nop())
	svc := engine.NewService(memory.NewStore(), hub, zerolog.Nop(), engine.WithRand(rand.NewPCG(5, 6)))
	t.Cleanup(hub.Stop)
	return &apiFixture{svc: svc, hub: hub, handler: NewServer(svc, hub, zerolog.Nop(), opts...).Router()}
}

func (f *apiFixture) do(t *testing.T, method, path string, player uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if player != uuid.Nil {
		req.Header.Set(PlayerHeader, player.String())
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeAs[map[string]string](t, rec)
	return body["error"]
}

type startedGame struct {
	session uuid.UUID
	host    uuid.UUID
	guest   uuid.UUID
	snap    game.Snapshot
}

func (f *apiFixture) startGame(t *testing.T) startedGame {
	t.Helper()
	g := startedGame{host: uuid.New(), guest: uuid.New()}
	rec := f.do(t, http.MethodPost, "/v1/sessions", g.host, map[string]string{"name": "ana"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	g.session = decodeAs[engine.Seating](t, rec).SessionID

	rec = f.do(t, http.MethodPost, sessionPath(g.session, "join"), g.guest, map[string]string{"name": "bo"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, sessionPath(g.session, "start"), g.host, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	g.snap = decodeAs[game.Snapshot](t, rec)
	return g
}

func (g startedGame) current() (uuid.UUID, uuid.UUID) {
	if *g.snap.CurrentPlayer == g.host {
		return g.host, g.guest
	}
	return g.guest, g.host
}

func sessionPath(id uuid.UUID, suffix string) string {
	if suffix == "" {
		return fmt.Sprintf("/v1/sessions/%s", id)
	}
	return fmt.Sprintf("/v1/sessions/%s/%s", id, suffix)
}

func TestSessionLifecycle(t *testing.T) {
	f := newAPI(t)
	host := uuid.New()

	rec := f.do(t, http.MethodPost, "/v1/sessions", host, map[string]any{
		"name":   "ana",
		"config": map[string]int{"startingCoins": 3, "maxSeats": 3},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	seating := decodeAs[engine.Seating](t, rec)
	assert.Equal(t, host, seating.PlayerID)

	rec = f.do(t, http.MethodGet, sessionPath(seating.SessionID, ""), uuid.Nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeAs[game.Snapshot](t, rec)
	assert.Equal(t, 3, snap.Config.StartingCoins)
	assert.Equal(t, 3, snap.Config.MaxSeats)
	require.Len(t, snap.Seats, 1)

	// A caller without an identity is given one.
	rec = f.do(t, http.MethodPost, sessionPath(seating.SessionID, "join"), uuid.Nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	guest := decodeAs[engine.Seating](t, rec).PlayerID
	assert.NotEqual(t, uuid.Nil, guest)

	rec = f.do(t, http.MethodPost, sessionPath(seating.SessionID, "bots"), guest, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NOT_HOST", errorCode(t, rec))

	rec = f.do(t, http.MethodPost, sessionPath(seating.SessionID, "bots"), host, map[string]string{"personality": "psychic"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, sessionPath(seating.SessionID, "bots"), host, map[string]string{"personality": "Reckless"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, sessionPath(seating.SessionID, "join"), uuid.New(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SESSION_FULL", errorCode(t, rec))

	rec = f.do(t, http.MethodPost, sessionPath(seating.SessionID, "start"), guest, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, sessionPath(seating.SessionID, "start"), host, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeAs[game.Snapshot](t, rec)
	assert.True(t, snap.Started)
	require.Len(t, snap.Seats, 3)
	assert.True(t, snap.Seats[2].Bot)
	assert.Equal(t, "reckless", snap.Seats[2].Personality)
	for _, seat := range snap.Seats {
		assert.Equal(t, 3, seat.Coins)
	}

	rec = f.do(t, http.MethodGet, sessionPath(seating.SessionID, "hand"), host, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeAs[game.PrivateView](t, rec)
	assert.Len(t, view.Hand, 2)

	rec = f.do(t, http.MethodPost, sessionPath(seating.SessionID, "rematch"), host, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "WRONG_PHASE", errorCode(t, rec))
}

func TestRequestValidation(t *testing.T) {
	f := newAPI(t)
	g := f.startGame(t)

	tests := []struct {
		name   string
		method string
		path   string
		player uuid.UUID
		body   any
		status int
		code   string
	}{
		{"bad session id", http.MethodGet, "/v1/sessions/nope", uuid.Nil, nil, http.StatusBadRequest, "INVALID_PARAM"},
		{"unknown session", http.MethodGet, sessionPath(uuid.New(), ""), uuid.Nil, nil, http.StatusNotFound, "NOT_FOUND"},
		{"hand needs identity", http.MethodGet, sessionPath(g.session, "hand"), uuid.Nil, nil, http.StatusBadRequest, "MISSING_PLAYER"},
		{"hand of a stranger", http.MethodGet, sessionPath(g.session, "hand"), uuid.New(), nil, http.StatusForbidden, "NOT_SEATED"},
		{"unknown verb", http.MethodPost, sessionPath(g.session, "actions"), g.host, map[string]string{"verb": "BRIBE"}, http.StatusBadRequest, "INVALID_PARAM"},
		{"unknown field", http.MethodPost, sessionPath(g.session, "actions"), g.host, map[string]string{"verbs": "INCOME"}, http.StatusBadRequest, "INVALID_PARAM"},
		{"pass with nothing pending", http.MethodPost, sessionPath(g.session, "pass"), g.host, nil, http.StatusConflict, "WRONG_PHASE"},
		{"block with bad role", http.MethodPost, sessionPath(g.session, "block"), g.host, map[string]string{"role": "JESTER"}, http.StatusBadRequest, "INVALID_PARAM"},
		{"join started game", http.MethodPost, sessionPath(g.session, "join"), uuid.New(), nil, http.StatusConflict, "GAME_STARTED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.player, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestIntents(t *testing.T) {
	f := newAPI(t)
	g := f.startGame(t)
	actor, other := g.current()

	rec := f.do(t, http.MethodPost, sessionPath(g.session, "actions"), other, map[string]string{"verb": "income"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NOT_YOUR_TURN", errorCode(t, rec))

	rec = f.do(t, http.MethodPost, sessionPath(g.session, "actions"), actor, map[string]string{"verb": "TAX"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decodeAs[game.Snapshot](t, rec)
	require.NotNil(t, snap.Pending)
	assert.Equal(t, game.VerbTax, snap.Pending.Verb)
	assert.Equal(t, []uuid.UUID{other}, snap.Pending.Awaiting)

	rec = f.do(t, http.MethodPost, sessionPath(g.session, "pass"), actor, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAM", errorCode(t, rec), "own claim")

	rec = f.do(t, http.MethodPost, sessionPath(g.session, "pass"), other, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap = decodeAs[game.Snapshot](t, rec)
	assert.Nil(t, snap.Pending)
	assert.Equal(t, 2, snap.Turn)
	for _, seat := range snap.Seats {
		if seat.PlayerID == actor {
			assert.Equal(t, 5, seat.Coins)
		}
	}

	// The turn passed to the other seat, which cannot target itself.
	rec = f.do(t, http.MethodPost, sessionPath(g.session, "actions"), other, map[string]any{"verb": "STEAL", "target": other})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAM", errorCode(t, rec))

	rec = f.do(t, http.MethodPost, sessionPath(g.session, "actions"), other, map[string]any{"verb": "STEAL", "target": actor, "claimedRole": "DUKE"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "claim must match the verb")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{game.ErrSessionNotFound, http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("wrapped: %w", game.ErrNotYourTurn), http.StatusConflict, "NOT_YOUR_TURN"},
		{game.ErrInsufficientFunds, http.StatusBadRequest, "INVALID_PARAM"},
		{game.ErrInternal, http.StatusServiceUnavailable, "RETRY"},
		{fmt.Errorf("%w: want 2, have 1", game.ErrDeckExhausted), http.StatusConflict, "DECK_EXHAUSTED"},
		{bot.ErrUnknownPersonality, http.StatusBadRequest, "INVALID_PARAM"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestListResults(t *testing.T) {
	repo := new(mocks.MockResultRepository)
	winner := uuid.New()
	repo.On("ListResults", mock.Anything, 5, 10).Return([]*game.GameResult{{SessionID: uuid.New(), Winner: winner, Turns: 12}}, nil)
	f := newAPI(t, WithResults(repo))

	rec := f.do(t, http.MethodGet, "/v1/results?limit=5&offset=10", uuid.Nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeAs[[]game.GameResult](t, rec)
	require.Len(t, results, 1)
	assert.Equal(t, winner, results[0].Winner)
	repo.AssertExpectations(t)

	rec = newAPI(t).do(t, http.MethodGet, "/v1/results", uuid.Nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
