package memory

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

type entry struct {
	mu      sync.Mutex
	table   *game.Table
	removed bool
}

// Store implements game.Repository in process memory. The store lock guards
// the maps; each entry's lock guards that session's table.
type Store struct {
	mu         sync.RWMutex
	entries    map[uuid.UUID]*entry
	hands      map[uuid.UUID][]game.Role
	membership map[uuid.UUID]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		entries:    make(map[uuid.UUID]*entry),
		hands:      make(map[uuid.UUID][]game.Role),
		membership: make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *Store) Create(t *game.Table) error {
	if t == nil || t.Session == nil {
		return fmt.Errorf("table requires a session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[t.Session.ID]; ok {
		return fmt.Errorf("session already exists: %s", t.Session.ID)
	}
	s.entries[t.Session.ID] = &entry{table: t}
	for _, seat := range t.Session.Seats {
		s.membership[seat.PlayerID] = t.Session.ID
	}
	return nil
}

func (s *Store) Acquire(sessionID uuid.UUID) (*game.Table, func(), error) {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, game.ErrSessionNotFound
	}
	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return nil, nil, game.ErrSessionNotFound
	}
	return e.table, e.mu.Unlock, nil
}

func (s *Store) IDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, id)
	}
	return out
}

// Remove drops a session with its seats' holdings and membership. The caller
// must hold the session lock.
func (s *Store) Remove(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok {
		return
	}
	e.removed = true
	delete(s.entries, sessionID)
	for _, seat := range e.table.Session.Seats {
		if s.membership[seat.PlayerID] == sessionID {
			delete(s.membership, seat.PlayerID)
			delete(s.hands, seat.PlayerID)
		}
	}
}

func (s *Store) Hand(playerID uuid.UUID) []game.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]game.Role(nil), s.hands[playerID]...)
}

func (s *Store) SetHand(playerID uuid.UUID, hand []game.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hand == nil {
		delete(s.hands, playerID)
		return
	}
	s.hands[playerID] = append([]game.Role{}, hand...)
}

func (s *Store) Bind(playerID, sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.membership[playerID] = sessionID
}

func (s *Store) SessionOf(playerID uuid.UUID) (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.membership[playerID]
	return id, ok
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
