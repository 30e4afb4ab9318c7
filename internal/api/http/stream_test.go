package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluff-table/bluff-table/internal/domain/game"
	"github.com/bluff-table/bluff-table/internal/infrastructure/sse"
)

type streamEvent struct {
	name string
	data string
}

// readEvent reads one server-sent event, skipping comments.
func readEvent(t *testing.T, r *bufio.Reader) streamEvent {
	t.Helper()
	var ev streamEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if ev.name != "" {
				return ev
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func (f *apiFixture) seatConnected(t *testing.T, sessionID, playerID uuid.UUID) bool {
	t.Helper()
	snap, err := f.svc.Snapshot(context.Background(), sessionID)
	require.NoError(t, err)
	for _, seat := range snap.Seats {
		if seat.PlayerID == playerID {
			return seat.Connected
		}
	}
	t.Fatalf("player %s not seated", playerID)
	return false
}

func TestStream(t *testing.T) {
	f := newAPI(t)
	g := f.startGame(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+sessionPath(g.session, "stream"), nil)
	require.NoError(t, err)
	req.Header.Set(PlayerHeader, g.guest.String())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	ev := readEvent(t, r)
	require.Equal(t, sse.EventSnapshot, ev.name)
	ev = readEvent(t, r)
	require.Equal(t, sse.EventHand, ev.name)
	var view game.PrivateView
	require.NoError(t, json.Unmarshal([]byte(ev.data), &view))
	assert.Equal(t, g.guest, view.PlayerID)
	assert.Len(t, view.Hand, 2)
	assert.Equal(t, 1, f.hub.GetClientCount())

	// Mutations reach the stream.
	actor, _ := g.current()
	require.NoError(t, f.svc.SubmitAction(context.Background(), g.session, actor, game.VerbIncome, nil, nil))
	for ev = readEvent(t, r); ev.name != sse.EventSnapshot; ev = readEvent(t, r) {
	}
	var snap game.Snapshot
	require.NoError(t, json.Unmarshal([]byte(ev.data), &snap))
	assert.Equal(t, 2, snap.Turn)

	cancel()
	require.Eventually(t, func() bool {
		return !f.seatConnected(t, g.session, g.guest)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.hub.GetClientCount())
}

func TestStream_RejectsStrangers(t *testing.T) {
	f := newAPI(t)
	g := f.startGame(t)

	rec := f.do(t, http.MethodGet, sessionPath(g.session, "stream"), uuid.New(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodGet, sessionPath(g.session, "stream"), uuid.Nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.hub.GetClientCount())
}

func dialSocket(t *testing.T, srv *httptest.Server, sessionID, playerID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + sessionPath(sessionID, "ws") + "?player_id=" + playerID.String()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

// nextEvent reads socket messages until one named event arrives.
func nextEvent(t *testing.T, conn *websocket.Conn, event string) sse.Message {
	t.Helper()
	for {
		var msg sse.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Event == event {
			return msg
		}
	}
}

func TestSocket_Intents(t *testing.T) {
	f := newAPI(t)
	g := f.startGame(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()
	actor, _ := g.current()

	conn := dialSocket(t, srv, g.session, actor)
	defer conn.Close()
	nextEvent(t, conn, sse.EventHand)

	require.NoError(t, conn.WriteJSON(intentRequest{Type: intentAction, Verb: "INCOME"}))
	for {
		msg := nextEvent(t, conn, sse.EventSnapshot)
		var snap game.Snapshot
		require.NoError(t, json.Unmarshal(msg.Data, &snap))
		if snap.Turn == 2 {
			break
		}
	}

	require.NoError(t, conn.WriteJSON(intentRequest{Type: intentPass}))
	msg := nextEvent(t, conn, sse.EventError)
	var reply socketError
	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	assert.Equal(t, "WRONG_PHASE", reply.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = nextEvent(t, conn, sse.EventError)
	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	assert.Equal(t, "INVALID_PARAM", reply.Code)
}

func TestSocket_RateLimited(t *testing.T) {
	f := newAPI(t, WithSocketRate(0.001, 1))
	g := f.startGame(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	conn := dialSocket(t, srv, g.session, g.guest)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(intentRequest{Type: intentPass}))
	require.NoError(t, conn.WriteJSON(intentRequest{Type: intentPass}))

	var codes []string
	for len(codes) < 2 {
		msg := nextEvent(t, conn, sse.EventError)
		var reply socketError
		require.NoError(t, json.Unmarshal(msg.Data, &reply))
		codes = append(codes, reply.Code)
	}
	assert.Equal(t, []string{"WRONG_PHASE", "RATE_LIMITED"}, codes)
}

func TestSocket_DisconnectMarksSeat(t *testing.T) {
	f := newAPI(t)
	g := f.startGame(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	first := dialSocket(t, srv, g.session, g.host)
	second := dialSocket(t, srv, g.session, g.host)
	nextEvent(t, first, sse.EventHand)
	nextEvent(t, second, sse.EventHand)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return f.hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, f.seatConnected(t, g.session, g.host), "another socket is still open")

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool {
		return !f.seatConnected(t, g.session, g.host)
	}, 2*time.Second, 10*time.Millisecond)
}
