package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/bluff-table/bluff-table/internal/infrastructure/sse"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = time.Minute
	wsPingPeriod = 50 * time.Second
	wsMaxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type socketError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

// socketEndpoint carries the same events as the stream and accepts intents
// as JSON text frames.
func (s *Server) socketEndpoint(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID, ok := s.sessionAndPlayer(w, r)
	if !ok {
		return
	}
	client, err := s.attach(r.Context(), sessionID, playerID)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	defer s.detach(client)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	go s.writePump(conn, client)
	s.readPump(r.Context(), conn, client, sessionID, playerID)
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, client *sse.Client, sessionID, playerID uuid.UUID) {
	limiter := rate.NewLimiter(rate.Limit(s.wsLimit), s.wsBurst)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			s.replyError(client, "RATE_LIMITED", "too many intents")
			continue
		}
		var req intentRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.replyError(client, "INVALID_PARAM", err.Error())
			continue
		}
		if err := s.dispatch(ctx, req.Type, sessionID, playerID, req); err != nil {
			_, code := classify(err)
			s.replyError(client, code, err.Error())
		}
	}
}

// writePump is the only writer on conn. It exits when the client channel is
// closed or a write fails; closing conn then ends the read side.
func (s *Server) writePump(conn *websocket.Conn, client *sse.Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.MessageChan:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) replyError(client *sse.Client, code, message string) {
	msg, err := sse.NewMessage(sse.EventError, socketError{Code: code, Message: message})
	if err != nil {
		return
	}
	_ = s.hub.SendToClient(client.ClientID, msg)
}
