package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/bluff-table/bluff-table/internal/infrastructure/sse"
)

// attach registers a stream client for a seated player, marks the seat
// connected and queues the current state for it.
func (s *Server) attach(ctx context.Context, sessionID, playerID uuid.UUID) (*sse.Client, error) {
	view, err := s.engine.PrivateView(ctx, sessionID, playerID)
	if err != nil {
		return nil, err
	}
	client := sse.NewClient(sessionID, playerID)
	s.hub.Register(client)
	if err := s.engine.SetConnected(ctx, sessionID, playerID, true); err != nil {
		s.detach(client)
		return nil, err
	}
	if snap, err := s.engine.Snapshot(ctx, sessionID); err == nil {
		if msg, err := sse.NewMessage(sse.EventSnapshot, snap); err == nil {
			_ = s.hub.SendToClient(client.ClientID, msg)
		}
	}
	if msg, err := sse.NewMessage(sse.EventHand, view); err == nil {
		_ = s.hub.SendToClient(client.ClientID, msg)
	}
	s.logger.Debug().
		Str("session_id", sessionID.String()).
		Str("player_id", playerID.String()).
		Str("client_id", client.ClientID).
		Msg("client attached")
	return client, nil
}

// detach drops the client; the seat goes offline with the player's last one.
func (s *Server) detach(client *sse.Client) {
	if s.hub.Unregister(client.ClientID) > 0 {
		return
	}
	if err := s.engine.SetConnected(context.Background(), client.SessionID, client.PlayerID, false); err != nil {
		s.logger.Warn().Err(err).
			Str("session_id", client.SessionID.String()).
			Str("player_id", client.PlayerID.String()).
			Msg("failed to mark seat disconnected")
	}
}

func (s *Server) streamEndpoint(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID, ok := s.sessionAndPlayer(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}
	client, err := s.attach(r.Context(), sessionID, playerID)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	defer s.detach(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg, ok := <-client.MessageChan:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", msg.ID, msg.Event, msg.Data)
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
