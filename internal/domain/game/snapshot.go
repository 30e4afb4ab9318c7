package game

import (
	"time"

	"github.com/google/uuid"
)

// PendingView is the public part of a PendingAction.
type PendingView struct {
	Verb           Verb        `json:"verb"`
	Actor          uuid.UUID   `json:"actor"`
	Target         *uuid.UUID  `json:"target,omitempty"`
	ClaimedRole    *Role       `json:"claimedRole,omitempty"`
	Phase          Phase       `json:"phase"`
	Blocker        *uuid.UUID  `json:"blocker,omitempty"`
	BlockRole      *Role       `json:"blockRole,omitempty"`
	AwaitingTarget bool        `json:"awaitingTarget"`
	ActorAccepted  bool        `json:"actorAccepted"`
	Responded      []uuid.UUID `json:"responded"`
	Awaiting       []uuid.UUID `json:"awaiting"`
	Deadline       time.Time   `json:"deadline"`
}

// LossView is the public part of a PendingInfluenceLoss.
type LossView struct {
	PlayerID uuid.UUID  `json:"playerId"`
	Reason   LossReason `json:"reason"`
	Deadline time.Time  `json:"deadline"`
}

// Snapshot is the full public state broadcast after every mutation.
type Snapshot struct {
	SessionID     uuid.UUID     `json:"sessionId"`
	GameID        uuid.UUID     `json:"gameId"`
	HostID        uuid.UUID     `json:"hostId"`
	Seats         []Seat        `json:"seats"`
	CurrentPlayer *uuid.UUID    `json:"currentPlayer,omitempty"`
	Turn          int           `json:"turn"`
	Started       bool          `json:"started"`
	Ended         bool          `json:"ended"`
	Winner        *uuid.UUID    `json:"winner,omitempty"`
	Pending       *PendingView  `json:"pending,omitempty"`
	PendingLoss   *LossView     `json:"pendingLoss,omitempty"`
	DeckSize      int           `json:"deckSize"`
	Config        SessionConfig `json:"config"`
	Log           []LogEntry    `json:"log"`
}

// NewSnapshot builds the public view of s. It never reads hidden holdings.
func NewSnapshot(s *Session, deckSize int) *Snapshot {
	snap := &Snapshot{
		SessionID: s.ID,
		GameID:    s.GameID,
		HostID:    s.HostID,
		Seats:     make([]Seat, len(s.Seats)),
		Turn:      s.Turn,
		Started:   s.Started,
		Ended:     s.Ended,
		Winner:    cloneID(s.Winner),
		DeckSize:  deckSize,
		Config:    s.Config,
		Log:       append([]LogEntry(nil), s.Log...),
	}
	for i, seat := range s.Seats {
		snap.Seats[i] = *seat
		snap.Seats[i].Revealed = append([]Role(nil), seat.Revealed...)
	}
	if cur := s.CurrentSeat(); cur != nil && s.Active() {
		id := cur.PlayerID
		snap.CurrentPlayer = &id
	}
	timeout := s.Config.ResponseTimeout()
	if p := s.Pending; p != nil {
		view := &PendingView{
			Verb:           p.Verb,
			Actor:          p.Actor,
			Target:         cloneID(p.Target),
			ClaimedRole:    cloneRole(p.ClaimedRole),
			Phase:          p.Phase,
			Blocker:        cloneID(p.Blocker),
			BlockRole:      cloneRole(p.BlockRole),
			AwaitingTarget: p.AwaitingTarget,
			ActorAccepted:  p.ActorAccepted,
			Responded:      []uuid.UUID{},
			Awaiting:       s.AwaitingResponses(),
			Deadline:       p.PhaseStartedAt.Add(timeout),
		}
		for _, seat := range s.Seats {
			if p.Responded[seat.PlayerID] {
				view.Responded = append(view.Responded, seat.PlayerID)
			}
		}
		snap.Pending = view
	}
	if l := s.PendingLoss; l != nil {
		snap.PendingLoss = &LossView{
			PlayerID: l.PlayerID,
			Reason:   l.Reason,
			Deadline: l.StartedAt.Add(timeout),
		}
	}
	return snap
}

// PrivateView is what a single seat may know beyond the snapshot.
type PrivateView struct {
	SessionID    uuid.UUID `json:"sessionId"`
	PlayerID     uuid.UUID `json:"playerId"`
	Hand         []Role    `json:"hand"`
	ExchangePool []Role    `json:"exchangePool,omitempty"`
	RetainCount  int       `json:"retainCount,omitempty"`
}

// NewPrivateView builds the private view for playerID given its hand.
func NewPrivateView(s *Session, playerID uuid.UUID, hand []Role) *PrivateView {
	view := &PrivateView{
		SessionID: s.ID,
		PlayerID:  playerID,
		Hand:      append([]Role{}, hand...),
	}
	if p := s.Pending; p != nil && p.Phase == PhaseExchangeSelection && p.Actor == playerID {
		view.ExchangePool = append([]Role(nil), p.ExchangePool...)
		view.RetainCount = p.RetainCount
	}
	return view
}

// SeatResult is one line of the final standings.
type SeatResult struct {
	PlayerID  uuid.UUID `json:"playerId"`
	Name      string    `json:"name"`
	Bot       bool      `json:"bot"`
	Coins     int       `json:"coins"`
	Influence int       `json:"influence"`
	Stats     SeatStats `json:"stats"`
}

// GameResult is emitted once when a game ends.
type GameResult struct {
	GameID    uuid.UUID    `json:"gameId"`
	SessionID uuid.UUID    `json:"sessionId"`
	Winner    uuid.UUID    `json:"winner"`
	Turns     int          `json:"turns"`
	StartedAt time.Time    `json:"startedAt"`
	EndedAt   time.Time    `json:"endedAt"`
	Seats     []SeatResult `json:"seats"`
}

// NewGameResult summarizes an ended session.
func NewGameResult(s *Session) *GameResult {
	res := &GameResult{
		GameID:    s.GameID,
		SessionID: s.ID,
		Turns:     s.Turn,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Seats:     make([]SeatResult, 0, len(s.Seats)),
	}
	if s.Winner != nil {
		res.Winner = *s.Winner
	}
	for _, seat := range s.Seats {
		sr := SeatResult{
			PlayerID:  seat.PlayerID,
			Name:      seat.Name,
			Bot:       seat.Bot,
			Coins:     seat.Coins,
			Influence: seat.Influence,
		}
		if st, ok := s.Stats[seat.PlayerID]; ok {
			sr.Stats = *st
		}
		res.Seats = append(res.Seats, sr)
	}
	return res
}
