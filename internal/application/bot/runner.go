package bot

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

// Actions is the intent surface bots share with human callers.
type Actions interface {
	SubmitAction(ctx context.Context, sessionID, actorID uuid.UUID, verb game.Verb, target *uuid.UUID, claimedRole *game.Role) error
	Challenge(ctx context.Context, sessionID, responderID uuid.UUID) error
	Pass(ctx context.Context, sessionID, responderID uuid.UUID) error
	DeclareBlock(ctx context.Context, sessionID, responderID uuid.UUID, role game.Role) error
	ChooseCardToLose(ctx context.Context, sessionID, playerID uuid.UUID, role game.Role) error
	SubmitExchangeCards(ctx context.Context, sessionID, playerID uuid.UUID, chosen []game.Role) error
}

// Views is the read-only state a bot may consult.
type Views interface {
	SessionIDs() []uuid.UUID
	Snapshot(ctx context.Context, sessionID uuid.UUID) (*game.Snapshot, error)
	PrivateView(ctx context.Context, sessionID, playerID uuid.UUID) (*game.PrivateView, error)
}

// Runner drives every bot seat by polling the sessions it sits in.
type Runner struct {
	actions  Actions
	views    Views
	logger   zerolog.Logger
	minDelay time.Duration
	maxDelay time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.Mutex
	inflight map[uuid.UUID]bool
	wg       sync.WaitGroup
}

type RunnerOption func(*Runner)

// WithDelay sets the think time range before each intent.
func WithDelay(minDelay, maxDelay time.Duration) RunnerOption {
	return func(r *Runner) {
		if maxDelay < minDelay {
			maxDelay = minDelay
		}
		r.minDelay, r.maxDelay = minDelay, maxDelay
	}
}

func WithSeed(seed uint64) RunnerOption {
	return func(r *Runner) { r.rng = rand.New(rand.NewPCG(seed, seed^0x5deece66d)) }
}

func NewRunner(actions Actions, views Views, logger zerolog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		actions:  actions,
		views:    views,
		logger:   logger.With().Str("service", "bot").Logger(),
		minDelay: 500 * time.Millisecond,
		maxDelay: 2 * time.Second,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x2545f4914f6cdd1d)),
		inflight: map[uuid.UUID]bool{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls every interval until ctx is done, then waits for scheduled moves.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer r.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick schedules a move for every bot that has something to do and is not
// already thinking. It returns the number of moves scheduled.
func (r *Runner) Tick(ctx context.Context) int {
	scheduled := 0
	for _, sessionID := range r.views.SessionIDs() {
		snap, err := r.views.Snapshot(ctx, sessionID)
		if err != nil || !snap.Started || snap.Ended {
			continue
		}
		for _, seat := range snap.Seats {
			if !seat.Bot || seat.Influence == 0 || !r.claim(seat.PlayerID) {
				continue
			}
			scheduled++
			r.wg.Add(1)
			go func(sessionID, botID uuid.UUID) {
				defer r.wg.Done()
				defer r.release(botID)
				if !r.sleep(ctx) {
					return
				}
				if _, err := r.Step(ctx, sessionID, botID); err != nil {
					r.logStepError(sessionID, botID, err)
				}
			}(sessionID, seat.PlayerID)
		}
	}
	return scheduled
}

// Step reads the current state once and issues at most one intent for botID.
func (r *Runner) Step(ctx context.Context, sessionID, botID uuid.UUID) (bool, error) {
	snap, err := r.views.Snapshot(ctx, sessionID)
	if err != nil {
		return false, err
	}
	var seat *game.Seat
	for i := range snap.Seats {
		if snap.Seats[i].PlayerID == botID {
			seat = &snap.Seats[i]
		}
	}
	if seat == nil || !seat.Bot {
		return false, game.ErrNotSeated
	}
	view, err := r.views.PrivateView(ctx, sessionID, botID)
	if err != nil {
		return false, err
	}
	personality, err := Lookup(seat.Personality)
	if err != nil {
		personality, _ = Lookup(DefaultPersonality)
	}

	r.rngMu.Lock()
	intent, ok, err := Decide(snap, view, personality, r.rng)
	r.rngMu.Unlock()
	if err != nil || !ok {
		return false, err
	}
	return true, r.apply(ctx, sessionID, botID, intent)
}

func (r *Runner) apply(ctx context.Context, sessionID, botID uuid.UUID, in Intent) error {
	switch in.Kind {
	case IntentAction:
		return r.actions.SubmitAction(ctx, sessionID, botID, in.Verb, in.Target, nil)
	case IntentChallenge:
		return r.actions.Challenge(ctx, sessionID, botID)
	case IntentPass:
		return r.actions.Pass(ctx, sessionID, botID)
	case IntentBlock:
		return r.actions.DeclareBlock(ctx, sessionID, botID, in.Role)
	case IntentLose:
		return r.actions.ChooseCardToLose(ctx, sessionID, botID, in.Role)
	case IntentExchange:
		return r.actions.SubmitExchangeCards(ctx, sessionID, botID, in.Roles)
	}
	return nil
}

func (r *Runner) claim(botID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight[botID] {
		return false
	}
	r.inflight[botID] = true
	return true
}

func (r *Runner) release(botID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, botID)
}

func (r *Runner) sleep(ctx context.Context) bool {
	d := r.minDelay
	if span := r.maxDelay - r.minDelay; span > 0 {
		r.rngMu.Lock()
		d += time.Duration(r.rng.Int64N(int64(span)))
		r.rngMu.Unlock()
	}
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (r *Runner) logStepError(sessionID, botID uuid.UUID, err error) {
	// State moved on between the snapshot and the call.
	if game.IsValidation(err) || errors.Is(err, game.ErrSessionNotFound) {
		r.logger.Debug().Err(err).
			Str("session_id", sessionID.String()).
			Str("bot_id", botID.String()).
			Msg("bot intent rejected")
		return
	}
	r.logger.Warn().Err(err).
		Str("session_id", sessionID.String()).
		Str("bot_id", botID.String()).
		Msg("bot step failed")
}
