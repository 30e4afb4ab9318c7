package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Phase is the negotiation step of a PendingAction.
type Phase string

const (
	PhaseActionClaim       Phase = "ACTION_CLAIM"
	PhaseBlockClaim        Phase = "BLOCK_CLAIM"
	PhaseExchangeSelection Phase = "EXCHANGE_CARD_SELECTION"
)

// Continuation records what a PendingAction does once the influence loss that
// interrupted it has been paid.
type Continuation string

const (
	ContinueNone Continuation = ""
	// ContinueProceed: the live claim was proven, the action carries on.
	ContinueProceed Continuation = "PROCEED"
	// ContinueActionFails: the action claim was a bluff.
	ContinueActionFails Continuation = "ACTION_FAILS"
	// ContinueBlockStands: the block claim was proven.
	ContinueBlockStands Continuation = "BLOCK_STANDS"
	// ContinueExecute: the block was a bluff, the original effect applies.
	ContinueExecute Continuation = "EXECUTE"
)

// LossReason tags an influence loss for the log and clients.
type LossReason string

const (
	LossChallengeFailed LossReason = "CHALLENGE_FAILED"
	LossBluffCaught     LossReason = "BLUFF_CAUGHT"
	LossAssassinated    LossReason = "ASSASSINATED"
	LossCouped          LossReason = "COUPED"
)

// SessionConfig is fixed per session.
type SessionConfig struct {
	StartingCoins      int `json:"startingCoins"`
	StartingInfluence  int `json:"startingInfluence"`
	TimeoutSeconds     int `json:"timeoutSeconds"`
	TurnTimeoutSeconds int `json:"turnTimeoutSeconds,omitempty"`
	MaxSeats           int `json:"maxSeats"`
}

func DefaultConfig() SessionConfig {
	return SessionConfig{
		StartingCoins:     2,
		StartingInfluence: 2,
		TimeoutSeconds:    30,
		MaxSeats:          MaxSeats,
	}
}

// Normalized fills zero values from DefaultConfig and clamps the rest.
func (c SessionConfig) Normalized() SessionConfig {
	def := DefaultConfig()
	if c.StartingCoins <= 0 {
		c.StartingCoins = def.StartingCoins
	}
	if c.StartingInfluence <= 0 {
		c.StartingInfluence = def.StartingInfluence
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = def.TimeoutSeconds
	}
	if c.TurnTimeoutSeconds < 0 {
		c.TurnTimeoutSeconds = 0
	}
	if c.MaxSeats < MinSeats || c.MaxSeats > MaxSeats {
		c.MaxSeats = def.MaxSeats
	}
	// Every seat needs its hand dealt from a 15-token deck, with two spare for exchanges.
	if maxInfluence := (len(AllRoles)*CopiesPerRole - ExchangeDraw) / MinSeats; c.StartingInfluence > maxInfluence {
		c.StartingInfluence = maxInfluence
	}
	for c.MaxSeats*c.StartingInfluence > len(AllRoles)*CopiesPerRole-ExchangeDraw && c.MaxSeats > MinSeats {
		c.MaxSeats--
	}
	return c
}

func (c SessionConfig) ResponseTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c SessionConfig) TurnTimeout() time.Duration {
	return time.Duration(c.TurnTimeoutSeconds) * time.Second
}

// Seat is the public view of one participant. Hidden roles never live here.
type Seat struct {
	PlayerID    uuid.UUID `json:"playerId"`
	Name        string    `json:"name"`
	Coins       int       `json:"coins"`
	Influence   int       `json:"influence"`
	Connected   bool      `json:"connected"`
	Bot         bool      `json:"bot"`
	Personality string    `json:"personality,omitempty"`
	Revealed    []Role    `json:"revealed,omitempty"`
}

func (s *Seat) Alive() bool { return s.Influence > 0 }

// SeatStats are per-game counters reported when the game ends.
type SeatStats struct {
	Actions          int `json:"actions"`
	ChallengesWon    int `json:"challengesWon"`
	ChallengesLost   int `json:"challengesLost"`
	Blocks           int `json:"blocks"`
	BluffsCaught     int `json:"bluffsCaught"`
	EliminatedAtTurn int `json:"eliminatedAtTurn,omitempty"`
}

// PendingAction is the open claim/block negotiation.
type PendingAction struct {
	Verb        Verb               `json:"verb"`
	Actor       uuid.UUID          `json:"actor"`
	Target      *uuid.UUID         `json:"target,omitempty"`
	ClaimedRole *Role              `json:"claimedRole,omitempty"`
	Phase       Phase              `json:"phase"`
	Responded   map[uuid.UUID]bool `json:"-"`
	Blocker     *uuid.UUID         `json:"blocker,omitempty"`
	BlockRole   *Role              `json:"blockRole,omitempty"`

	// AwaitingTarget is set in BlockClaim when the target has not yet decided
	// whether to block.
	AwaitingTarget bool         `json:"awaitingTarget"`
	// ActorAccepted is set once the actor passes on a declared block.
	ActorAccepted  bool         `json:"actorAccepted"`
	ExchangePool   []Role       `json:"-"`
	RetainCount    int          `json:"-"`
	Continuation   Continuation `json:"-"`
	CostPaid       bool         `json:"-"`
	PhaseStartedAt time.Time    `json:"phaseStartedAt"`
}

// HasBlock reports whether a block has been declared.
func (p *PendingAction) HasBlock() bool { return p.Blocker != nil }

// Claimant is the seat holding the live claim: the blocker once a block is
// declared, the actor otherwise.
func (p *PendingAction) Claimant() uuid.UUID {
	if p.Phase == PhaseBlockClaim && p.Blocker != nil {
		return *p.Blocker
	}
	return p.Actor
}

// LiveClaim is the role currently asserted, if any.
func (p *PendingAction) LiveClaim() (Role, bool) {
	if p.Phase == PhaseBlockClaim && p.BlockRole != nil {
		return *p.BlockRole, true
	}
	if p.Phase == PhaseActionClaim && p.ClaimedRole != nil {
		return *p.ClaimedRole, true
	}
	return "", false
}

// EnterPhase switches phase, clears responses and re-arms the deadline.
func (p *PendingAction) EnterPhase(phase Phase, now time.Time, preResponded ...uuid.UUID) {
	p.Phase = phase
	p.ActorAccepted = false
	p.Responded = make(map[uuid.UUID]bool, len(preResponded))
	for _, id := range preResponded {
		p.Responded[id] = true
	}
	p.PhaseStartedAt = now
}

func (p *PendingAction) Clone() *PendingAction {
	if p == nil {
		return nil
	}
	out := *p
	out.Responded = make(map[uuid.UUID]bool, len(p.Responded))
	for k, v := range p.Responded {
		out.Responded[k] = v
	}
	out.Target = cloneID(p.Target)
	out.Blocker = cloneID(p.Blocker)
	out.ClaimedRole = cloneRole(p.ClaimedRole)
	out.BlockRole = cloneRole(p.BlockRole)
	out.ExchangePool = append([]Role(nil), p.ExchangePool...)
	return &out
}

// PendingInfluenceLoss is a card loss owed by one seat.
type PendingInfluenceLoss struct {
	PlayerID  uuid.UUID  `json:"playerId"`
	Reason    LossReason `json:"reason"`
	StartedAt time.Time  `json:"startedAt"`
}

// LogEntry is one line of the append-only session log.
type LogEntry struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// Session is the authoritative state of one table.
type Session struct {
	ID            uuid.UUID                `json:"id"`
	HostID        uuid.UUID                `json:"hostId"`
	// GameID identifies the current deal; a rematch gets a new one.
	GameID        uuid.UUID                `json:"gameId"`
	Seats         []*Seat                  `json:"seats"`
	CurrentTurn   int                      `json:"currentTurn"`
	Turn          int                      `json:"turn"`
	Log           []LogEntry               `json:"log"`
	Pending       *PendingAction           `json:"pending,omitempty"`
	PendingLoss   *PendingInfluenceLoss    `json:"pendingLoss,omitempty"`
	Started       bool                     `json:"started"`
	Ended         bool                     `json:"ended"`
	Winner        *uuid.UUID               `json:"winner,omitempty"`
	Config        SessionConfig            `json:"config"`
	Stats         map[uuid.UUID]*SeatStats `json:"-"`
	CreatedAt     time.Time                `json:"createdAt"`
	StartedAt     time.Time                `json:"startedAt"`
	TurnStartedAt time.Time                `json:"turnStartedAt"`
	EndedAt       time.Time                `json:"endedAt"`
}

// NewSession creates an unstarted session.
func NewSession(hostID uuid.UUID, cfg SessionConfig, now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		HostID:    hostID,
		Config:    cfg.Normalized(),
		Stats:     map[uuid.UUID]*SeatStats{},
		CreatedAt: now,
	}
}

// Active reports whether the session accepts game intents.
func (s *Session) Active() bool { return s.Started && !s.Ended }

func (s *Session) Seat(id uuid.UUID) *Seat {
	if i := s.SeatIndex(id); i >= 0 {
		return s.Seats[i]
	}
	return nil
}

func (s *Session) SeatIndex(id uuid.UUID) int {
	for i, seat := range s.Seats {
		if seat.PlayerID == id {
			return i
		}
	}
	return -1
}

// CurrentSeat returns the seat holding the turn, or nil before the game starts.
func (s *Session) CurrentSeat() *Seat {
	if !s.Started || s.CurrentTurn < 0 || s.CurrentTurn >= len(s.Seats) {
		return nil
	}
	return s.Seats[s.CurrentTurn]
}

// AliveSeats returns seats with influence, in seat order.
func (s *Session) AliveSeats() []*Seat {
	out := make([]*Seat, 0, len(s.Seats))
	for _, seat := range s.Seats {
		if seat.Alive() {
			out = append(out, seat)
		}
	}
	return out
}

// StatsFor returns the counters for id, creating them on first use.
func (s *Session) StatsFor(id uuid.UUID) *SeatStats {
	if s.Stats == nil {
		s.Stats = map[uuid.UUID]*SeatStats{}
	}
	st, ok := s.Stats[id]
	if !ok {
		st = &SeatStats{}
		s.Stats[id] = st
	}
	return st
}

// Logf appends a line to the session log.
func (s *Session) Logf(now time.Time, format string, args ...any) {
	s.Log = append(s.Log, LogEntry{At: now, Text: fmt.Sprintf(format, args...)})
}

// Name returns the display name for id, falling back to a short id.
func (s *Session) Name(id uuid.UUID) string {
	if seat := s.Seat(id); seat != nil {
		return seat.Name
	}
	return id.String()[:8]
}

// EligibleResponders lists the seats whose answer the pending action waits on.
func (s *Session) EligibleResponders() []uuid.UUID {
	p := s.Pending
	if p == nil {
		return nil
	}
	out := []uuid.UUID{}
	switch p.Phase {
	case PhaseActionClaim:
		for _, seat := range s.AliveSeats() {
			if seat.PlayerID != p.Actor {
				out = append(out, seat.PlayerID)
			}
		}
	case PhaseBlockClaim:
		if p.AwaitingTarget {
			if p.Target != nil {
				if t := s.Seat(*p.Target); t != nil && t.Alive() {
					out = append(out, t.PlayerID)
				}
			}
			return out
		}
		for _, seat := range s.AliveSeats() {
			if p.Blocker == nil || seat.PlayerID != *p.Blocker {
				out = append(out, seat.PlayerID)
			}
		}
	}
	return out
}

// AwaitingResponses lists eligible responders that have not answered yet.
func (s *Session) AwaitingResponses() []uuid.UUID {
	if s.Pending == nil {
		return nil
	}
	out := []uuid.UUID{}
	for _, id := range s.EligibleResponders() {
		if !s.Pending.Responded[id] {
			out = append(out, id)
		}
	}
	return out
}

// Deadline returns when the live pending state times out.
func (s *Session) Deadline() (time.Time, bool) {
	timeout := s.Config.ResponseTimeout()
	if s.PendingLoss != nil {
		return s.PendingLoss.StartedAt.Add(timeout), true
	}
	if s.Pending != nil {
		return s.Pending.PhaseStartedAt.Add(timeout), true
	}
	return time.Time{}, false
}

// Clone deep-copies the session so a transition can be discarded on failure.
func (s *Session) Clone() *Session {
	out := *s
	out.Seats = make([]*Seat, len(s.Seats))
	for i, seat := range s.Seats {
		c := *seat
		c.Revealed = append([]Role(nil), seat.Revealed...)
		out.Seats[i] = &c
	}
	out.Log = append([]LogEntry(nil), s.Log...)
	out.Pending = s.Pending.Clone()
	if s.PendingLoss != nil {
		l := *s.PendingLoss
		out.PendingLoss = &l
	}
	out.Winner = cloneID(s.Winner)
	out.Stats = make(map[uuid.UUID]*SeatStats, len(s.Stats))
	for k, v := range s.Stats {
		st := *v
		out.Stats[k] = &st
	}
	return &out
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneRole(r *Role) *Role {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}
