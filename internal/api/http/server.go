package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bluff-table/bluff-table/internal/application/bot"
	"github.com/bluff-table/bluff-table/internal/application/engine"
	"github.com/bluff-table/bluff-table/internal/domain/game"
	"github.com/bluff-table/bluff-table/internal/infrastructure/sse"
)

// PlayerHeader carries the caller identity. Streams may pass it as the
// player_id query parameter instead.
const PlayerHeader = "X-Player-ID"

var errMissingPlayer = errors.New(PlayerHeader + " required")

// Server holds dependencies for HTTP handlers.
type Server struct {
	engine   *engine.Service
	hub      *sse.Hub
	results  game.ResultRepository
	defaults game.SessionConfig
	wsLimit  float64
	wsBurst  int
	logger   zerolog.Logger
}

type ServerOption func(*Server)

// WithSessionDefaults sets the configuration new sessions start from.
func WithSessionDefaults(cfg game.SessionConfig) ServerOption {
	return func(s *Server) { s.defaults = cfg.Normalized() }
}

// WithResults exposes the finished-game archive.
func WithResults(r game.ResultRepository) ServerOption {
	return func(s *Server) { s.results = r }
}

// WithSocketRate limits intents per socket.
func WithSocketRate(limit float64, burst int) ServerOption {
	return func(s *Server) { s.wsLimit, s.wsBurst = limit, burst }
}

func NewServer(svc *engine.Service, hub *sse.Hub, logger zerolog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		engine:   svc,
		hub:      hub,
		defaults: game.DefaultConfig(),
		wsLimit:  5,
		wsBurst:  10,
		logger:   logger.With().Str("service", "http").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	timeout := middleware.Timeout(30 * time.Second)

	r.Route("/v1", func(r chi.Router) {
		if s.results != nil {
			r.With(timeout).Get("/results", s.listResults)
		}

		r.With(timeout).Post("/sessions", s.createSession)
		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			// Long-lived connections stay outside the request timeout.
			r.Get("/stream", s.streamEndpoint)
			r.Get("/ws", s.socketEndpoint)

			r.Group(func(r chi.Router) {
				r.Use(timeout)
				r.Get("/", s.getSession)
				r.Post("/join", s.joinSession)
				r.Post("/bots", s.addBot)
				r.Post("/start", s.startSession)
				r.Post("/rematch", s.rematch)
				r.Get("/hand", s.getHand)

				r.Post("/actions", s.intentHandler(intentAction))
				r.Post("/challenge", s.intentHandler(intentChallenge))
				r.Post("/pass", s.intentHandler(intentPass))
				r.Post("/block", s.intentHandler(intentBlock))
				r.Post("/lose", s.intentHandler(intentLose))
				r.Post("/exchange", s.intentHandler(intentExchange))
			})
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{game.ErrSessionNotFound, http.StatusNotFound, "NOT_FOUND"},
	{game.ErrNotHost, http.StatusForbidden, "NOT_HOST"},
	{game.ErrNotSeated, http.StatusForbidden, "NOT_SEATED"},
	{game.ErrNotYourTurn, http.StatusConflict, "NOT_YOUR_TURN"},
	{game.ErrActionPending, http.StatusConflict, "ACTION_PENDING"},
	{game.ErrWrongPhase, http.StatusConflict, "WRONG_PHASE"},
	{game.ErrAlreadyResponded, http.StatusConflict, "ALREADY_RESPONDED"},
	{game.ErrGameNotActive, http.StatusConflict, "GAME_NOT_ACTIVE"},
	{game.ErrGameAlreadyStarted, http.StatusConflict, "GAME_STARTED"},
	{game.ErrSessionFull, http.StatusConflict, "SESSION_FULL"},
	{game.ErrSeatedElsewhere, http.StatusConflict, "SEATED_ELSEWHERE"},
	{game.ErrNotEnoughPlayers, http.StatusConflict, "NOT_ENOUGH_PLAYERS"},
	{game.ErrDeckExhausted, http.StatusConflict, "DECK_EXHAUSTED"},
	{game.ErrInternal, http.StatusServiceUnavailable, "RETRY"},
	{bot.ErrUnknownPersonality, http.StatusBadRequest, "INVALID_PARAM"},
	{errMissingPlayer, http.StatusBadRequest, "MISSING_PLAYER"},
}

func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	if game.IsValidation(err) {
		return http.StatusBadRequest, "INVALID_PARAM"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func (s *Server) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		msg = "internal error"
	}
	respondError(w, status, code, msg)
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeOptionalBody is decodeBody that accepts an empty body.
func decodeOptionalBody(r *http.Request, v interface{}) error {
	if err := decodeBody(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// playerFromRequest reads the caller identity. A missing identity is uuid.Nil.
func playerFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(PlayerHeader))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("player_id"))
	}
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("invalid player id")
	}
	return id, nil
}

func requirePlayer(r *http.Request) (uuid.UUID, error) {
	id, err := playerFromRequest(r)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, errMissingPlayer
	}
	return id, nil
}

// sessionAndPlayer parses the session path parameter and the caller identity,
// writing the error response itself.
func (s *Server) sessionAndPlayer(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	sessionID, err := parseUUIDParam(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid session id")
		return uuid.Nil, uuid.Nil, false
	}
	playerID, err := requirePlayer(r)
	if errors.Is(err, errMissingPlayer) {
		respondError(w, http.StatusBadRequest, "MISSING_PLAYER", err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	return sessionID, playerID, true
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 20, 100)
	results, err := s.results.ListResults(r.Context(), limit, offset)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}
