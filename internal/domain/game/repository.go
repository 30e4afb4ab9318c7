package game

import (
	"context"

	"github.com/google/uuid"
)

// Table is the lock-protected state of one session.
type Table struct {
	Session *Session
	Deck    *Deck
}

// Repository holds live sessions and hidden holdings. Acquire serializes all
// mutation of one session; lookups across sessions may run concurrently.
type Repository interface {
	Create(t *Table) error
	// Acquire locks the session and returns it with the release func.
	Acquire(sessionID uuid.UUID) (*Table, func(), error)
	IDs() []uuid.UUID
	Remove(sessionID uuid.UUID)

	Hand(playerID uuid.UUID) []Role
	SetHand(playerID uuid.UUID, hand []Role)

	Bind(playerID, sessionID uuid.UUID)
	SessionOf(playerID uuid.UUID) (uuid.UUID, bool)
}

// Notifier delivers outbound updates. Implementations must not block.
type Notifier interface {
	PublishSnapshot(snap *Snapshot)
	PublishPrivate(view *PrivateView)
	PublishTurn(sessionID, playerID uuid.UUID, turn int)
	PublishGameEnded(result *GameResult)
}

// ResultRepository archives finished games.
type ResultRepository interface {
	SaveResult(ctx context.Context, result *GameResult) error
	ListResults(ctx context.Context, limit, offset int) ([]*GameResult, error)
}
