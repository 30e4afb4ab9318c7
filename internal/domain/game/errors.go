package game

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotSeated          = errors.New("player is not seated in this session")
	ErrGameNotActive      = errors.New("game is not active")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrNotHost            = errors.New("only the host may do this")
	ErrSessionFull        = errors.New("session is full")
	ErrNotEnoughPlayers   = errors.New("not enough players")
	ErrSeatedElsewhere    = errors.New("player is seated in another game")
	ErrDeckExhausted      = errors.New("deck exhausted")

	ErrNotYourTurn       = errors.New("not your turn")
	ErrActionPending     = errors.New("an action is already pending")
	ErrInsufficientFunds = errors.New("insufficient coins")
	ErrInvalidTarget     = errors.New("invalid target")
	ErrMustCoup          = errors.New("coup is mandatory at 10 or more coins")
	ErrInvalidVerb       = errors.New("invalid action")
	ErrInvalidRole       = errors.New("invalid role")
	ErrWrongPhase        = errors.New("not allowed in the current phase")
	ErrAlreadyResponded  = errors.New("already responded in this phase")
	ErrNotEligible       = errors.New("not eligible to respond")
	ErrOwnClaim          = errors.New("cannot respond to your own claim")
	ErrNoPendingLoss     = errors.New("no influence loss owed")
	ErrRoleNotHeld       = errors.New("role not held")
	ErrInvalidExchange   = errors.New("invalid exchange selection")

	// ErrInternal is returned when a transition faulted; state is unchanged and
	// the call may be retried.
	ErrInternal = errors.New("internal error, please retry")
)

var validationErrors = []error{
	ErrDeckExhausted,
	ErrNotSeated, ErrGameNotActive, ErrGameAlreadyStarted, ErrNotHost, ErrSessionFull,
	ErrNotEnoughPlayers, ErrNotYourTurn, ErrActionPending, ErrInsufficientFunds,
	ErrInvalidTarget, ErrMustCoup, ErrInvalidVerb, ErrInvalidRole, ErrWrongPhase,
	ErrAlreadyResponded, ErrNotEligible, ErrOwnClaim, ErrNoPendingLoss, ErrRoleNotHeld,
	ErrInvalidExchange, ErrSeatedElsewhere,
}

// IsValidation reports whether err is a rule rejection that left state untouched.
// Retrying the same call against the same state fails the same way.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
