package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

type intentKind string

const (
	intentAction    intentKind = "action"
	intentChallenge intentKind = "challenge"
	intentPass      intentKind = "pass"
	intentBlock     intentKind = "block"
	intentLose      intentKind = "lose"
	intentExchange  intentKind = "exchange"
)

// intentRequest is the body of every intent, over REST or a socket. Fields
// that do not apply to the intent are ignored.
type intentRequest struct {
	Type        intentKind `json:"type,omitempty"`
	Verb        string     `json:"verb,omitempty"`
	Target      *uuid.UUID `json:"target,omitempty"`
	ClaimedRole string     `json:"claimedRole,omitempty"`
	Role        string     `json:"role,omitempty"`
	Roles       []string   `json:"roles,omitempty"`
}

func (s *Server) intentHandler(kind intentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, playerID, ok := s.sessionAndPlayer(w, r)
		if !ok {
			return
		}
		var req intentRequest
		if err := decodeOptionalBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
			return
		}
		if err := s.dispatch(r.Context(), kind, sessionID, playerID, req); err != nil {
			s.respondEngineError(w, r, err)
			return
		}
		s.respondSnapshot(w, r, sessionID)
	}
}

// dispatch maps one intent onto the engine's action surface.
func (s *Server) dispatch(ctx context.Context, kind intentKind, sessionID, playerID uuid.UUID, req intentRequest) error {
	switch kind {
	case intentAction:
		verb, err := game.ParseVerb(req.Verb)
		if err != nil {
			return err
		}
		var claimed *game.Role
		if req.ClaimedRole != "" {
			role, err := game.ParseRole(req.ClaimedRole)
			if err != nil {
				return err
			}
			claimed = &role
		}
		return s.engine.SubmitAction(ctx, sessionID, playerID, verb, req.Target, claimed)
	case intentChallenge:
		return s.engine.Challenge(ctx, sessionID, playerID)
	case intentPass:
		return s.engine.Pass(ctx, sessionID, playerID)
	case intentBlock:
		role, err := game.ParseRole(req.Role)
		if err != nil {
			return err
		}
		return s.engine.DeclareBlock(ctx, sessionID, playerID, role)
	case intentLose:
		role, err := game.ParseRole(req.Role)
		if err != nil {
			return err
		}
		return s.engine.ChooseCardToLose(ctx, sessionID, playerID, role)
	case intentExchange:
		roles := make([]game.Role, 0, len(req.Roles))
		for _, raw := range req.Roles {
			role, err := game.ParseRole(raw)
			if err != nil {
				return err
			}
			roles = append(roles, role)
		}
		return s.engine.SubmitExchangeCards(ctx, sessionID, playerID, roles)
	}
	return fmt.Errorf("%w: unknown intent %q", game.ErrInvalidVerb, kind)
}
