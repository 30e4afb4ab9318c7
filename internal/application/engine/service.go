package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

// errNoChange aborts a transition without committing or notifying.
var errNoChange = errors.New("no change")

// Service is the action resolution engine. Every mutating call takes the
// session lock, works on a copy of the session, and commits only on success.
type Service struct {
	repo      game.Repository
	notifier  game.Notifier
	results   game.ResultRepository
	logger    zerolog.Logger
	now       func() time.Time
	rng       *rand.Rand
	retention time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand overrides the random source used for shuffles and timeouts.
func WithRand(src rand.Source) Option {
	return func(s *Service) { s.rng = rand.New(&lockedSource{src: src}) }
}

// WithResultRepository archives finished games.
func WithResultRepository(r game.ResultRepository) Option {
	return func(s *Service) { s.results = r }
}

// WithRetention sets how long ended sessions stay in memory.
func WithRetention(d time.Duration) Option {
	return func(s *Service) { s.retention = d }
}

func NewService(repo game.Repository, notifier game.Notifier, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		notifier:  notifier,
		logger:    logger.With().Str("service", "engine").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
		rng:       rand.New(&lockedSource{src: rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)}),
		retention: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (l *lockedSource) Uint64() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Uint64()
}

// txn is a working copy of one table.
type txn struct {
	svc     *Service
	now     time.Time
	session *game.Session
	deck    *game.Deck
	hands   map[uuid.UUID][]game.Role
	touched map[uuid.UUID]bool
}

func (s *Service) begin(t *game.Table) *txn {
	tx := &txn{
		svc:     s,
		now:     s.now(),
		session: t.Session.Clone(),
		deck:    t.Deck.Clone(),
		hands:   make(map[uuid.UUID][]game.Role, len(t.Session.Seats)),
		touched: map[uuid.UUID]bool{},
	}
	for _, seat := range t.Session.Seats {
		tx.hands[seat.PlayerID] = s.repo.Hand(seat.PlayerID)
	}
	return tx
}

func (tx *txn) hand(id uuid.UUID) []game.Role {
	return tx.hands[id]
}

// setHand replaces hidden holdings and keeps visible influence in step.
func (tx *txn) setHand(id uuid.UUID, hand []game.Role) {
	tx.hands[id] = hand
	if seat := tx.session.Seat(id); seat != nil {
		seat.Influence = len(hand)
	}
	tx.touched[id] = true
}

// touch schedules a private update without changing holdings.
func (tx *txn) touch(id uuid.UUID) { tx.touched[id] = true }

func (tx *txn) logf(format string, args ...any) {
	tx.session.Logf(tx.now, format, args...)
}

func (tx *txn) name(id uuid.UUID) string { return tx.session.Name(id) }

// delivery is everything sent out after the lock is released.
type delivery struct {
	snapshot *game.Snapshot
	private  []*game.PrivateView
	turnTo   *uuid.UUID
	turn     int
	result   *game.GameResult
}

func (tx *txn) commit(t *game.Table) *delivery {
	prev := t.Session
	prevCurrent := prev.CurrentSeat()
	t.Session = tx.session
	t.Deck = tx.deck
	d := &delivery{snapshot: game.NewSnapshot(tx.session, tx.deck.Len())}
	for _, seat := range tx.session.Seats {
		if !tx.touched[seat.PlayerID] {
			continue
		}
		tx.svc.repo.SetHand(seat.PlayerID, tx.hands[seat.PlayerID])
		d.private = append(d.private, game.NewPrivateView(tx.session, seat.PlayerID, tx.hands[seat.PlayerID]))
	}
	if cur := tx.session.CurrentSeat(); cur != nil && tx.session.Active() {
		if prev.Turn != tx.session.Turn || prevCurrent == nil || prevCurrent.PlayerID != cur.PlayerID || !prev.Started {
			id := cur.PlayerID
			d.turnTo = &id
			d.turn = tx.session.Turn
		}
	}
	if tx.session.Ended && !prev.Ended {
		d.result = game.NewGameResult(tx.session)
	}
	return d
}

// mutate runs fn against a copy of the session under its lock. Faults inside fn
// leave the stored session untouched and surface as game.ErrInternal.
func (s *Service) mutate(ctx context.Context, sessionID uuid.UUID, op string, fn func(tx *txn) error) (err error) {
	table, release, err := s.repo.Acquire(sessionID)
	if err != nil {
		return err
	}
	var d *delivery
	func() {
		defer release()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().
					Str("session_id", sessionID.String()).
					Str("op", op).
					Interface("panic", r).
					Msg("transition panicked, state left unchanged")
				err = game.ErrInternal
			}
		}()
		tx := s.begin(table)
		if err = fn(tx); err != nil {
			return
		}
		d = tx.commit(table)
	}()
	if err != nil {
		if errors.Is(err, errNoChange) || game.IsValidation(err) || errors.Is(err, game.ErrSessionNotFound) || errors.Is(err, game.ErrInternal) {
			return err
		}
		s.logger.Error().Err(err).
			Str("session_id", sessionID.String()).
			Str("op", op).
			Msg("transition failed, state left unchanged")
		return fmt.Errorf("%w: %v", game.ErrInternal, err)
	}
	s.deliver(ctx, d)
	return nil
}

func (s *Service) deliver(ctx context.Context, d *delivery) {
	if d == nil {
		return
	}
	s.notifier.PublishSnapshot(d.snapshot)
	for _, v := range d.private {
		s.notifier.PublishPrivate(v)
	}
	if d.turnTo != nil {
		s.notifier.PublishTurn(d.snapshot.SessionID, *d.turnTo, d.turn)
	}
	if d.result == nil {
		return
	}
	s.notifier.PublishGameEnded(d.result)
	s.logger.Info().
		Str("session_id", d.result.SessionID.String()).
		Str("game_id", d.result.GameID.String()).
		Str("winner", d.result.Winner.String()).
		Int("turns", d.result.Turns).
		Msg("game ended")
	if s.results != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.results.SaveResult(saveCtx, d.result); err != nil {
			s.logger.Warn().Err(err).
				Str("session_id", d.result.SessionID.String()).
				Str("game_id", d.result.GameID.String()).
				Msg("failed to archive game result")
		}
	}
}

// Snapshot returns the public state of a session. Reads only wait on the
// in-memory session lock, so the context is unused.
func (s *Service) Snapshot(_ context.Context, sessionID uuid.UUID) (*game.Snapshot, error) {
	table, release, err := s.repo.Acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()
	return game.NewSnapshot(table.Session, table.Deck.Len()), nil
}

// PrivateView returns what playerID may see of its own holdings.
func (s *Service) PrivateView(_ context.Context, sessionID, playerID uuid.UUID) (*game.PrivateView, error) {
	table, release, err := s.repo.Acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()
	if table.Session.Seat(playerID) == nil {
		return nil, game.ErrNotSeated
	}
	return game.NewPrivateView(table.Session, playerID, s.repo.Hand(playerID)), nil
}

// SessionIDs lists live sessions.
func (s *Service) SessionIDs() []uuid.UUID {
	return s.repo.IDs()
}
