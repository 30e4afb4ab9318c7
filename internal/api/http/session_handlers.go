package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bluff-table/bluff-table/internal/application/bot"
	"github.com/bluff-table/bluff-table/internal/domain/game"
)

type sessionConfigRequest struct {
	StartingCoins      *int `json:"startingCoins"`
	StartingInfluence  *int `json:"startingInfluence"`
	TimeoutSeconds     *int `json:"timeoutSeconds"`
	TurnTimeoutSeconds *int `json:"turnTimeoutSeconds"`
	MaxSeats           *int `json:"maxSeats"`
}

type createSessionRequest struct {
	Name   string                `json:"name"`
	Config *sessionConfigRequest `json:"config"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type addBotRequest struct {
	Name        string `json:"name"`
	Personality string `json:"personality"`
}

// sessionConfig overlays the request on the server defaults.
func (s *Server) sessionConfig(req *sessionConfigRequest) game.SessionConfig {
	cfg := s.defaults
	if req == nil {
		return cfg
	}
	if req.StartingCoins != nil {
		cfg.StartingCoins = *req.StartingCoins
	}
	if req.StartingInfluence != nil {
		cfg.StartingInfluence = *req.StartingInfluence
	}
	if req.TimeoutSeconds != nil {
		cfg.TimeoutSeconds = *req.TimeoutSeconds
	}
	if req.TurnTimeoutSeconds != nil {
		cfg.TurnTimeoutSeconds = *req.TurnTimeoutSeconds
	}
	if req.MaxSeats != nil {
		cfg.MaxSeats = *req.MaxSeats
	}
	return cfg.Normalized()
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	var req createSessionRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	seating, err := s.engine.CreateSession(r.Context(), playerID, req.Name, s.sessionConfig(req.Config))
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, seating)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseUUIDParam(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid session id")
		return
	}
	snap, err := s.engine.Snapshot(r.Context(), sessionID)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) joinSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseUUIDParam(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid session id")
		return
	}
	playerID, err := playerFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	var req joinRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	seating, err := s.engine.Join(r.Context(), sessionID, playerID, req.Name)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, seating)
}

func (s *Server) addBot(w http.ResponseWriter, r *http.Request) {
	sessionID, hostID, ok := s.sessionAndPlayer(w, r)
	if !ok {
		return
	}
	var req addBotRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	personality, err := bot.Lookup(req.Personality)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	seating, err := s.engine.AddBot(r.Context(), sessionID, hostID, req.Name, personality.Name)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, seating)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	sessionID, hostID, ok := s.sessionAndPlayer(w, r)
	if !ok {
		return
	}
	if err := s.engine.Start(r.Context(), sessionID, hostID); err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	s.respondSnapshot(w, r, sessionID)
}

func (s *Server) rematch(w http.ResponseWriter, r *http.Request) {
	sessionID, hostID, ok := s.sessionAndPlayer(w, r)
	if !ok {
		return
	}
	if err := s.engine.Rematch(r.Context(), sessionID, hostID); err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	s.respondSnapshot(w, r, sessionID)
}

func (s *Server) getHand(w http.ResponseWriter, r *http.Request) {
	sessionID, playerID, ok := s.sessionAndPlayer(w, r)
	if !ok {
		return
	}
	view, err := s.engine.PrivateView(r.Context(), sessionID, playerID)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) respondSnapshot(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	snap, err := s.engine.Snapshot(r.Context(), sessionID)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}
