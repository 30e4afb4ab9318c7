package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

// ProcessTimeouts resolves every pending state whose deadline has passed and
// evicts ended sessions past retention. It returns the number of sessions it
// changed.
func (s *Service) ProcessTimeouts(ctx context.Context) (int, error) {
	processed := 0
	for _, id := range s.repo.IDs() {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		err := s.mutate(ctx, id, "timeout", func(tx *txn) error {
			return tx.expire()
		})
		switch {
		case err == nil:
			processed++
		case errors.Is(err, errNoChange), errors.Is(err, game.ErrSessionNotFound):
		default:
			s.logger.Warn().Err(err).
				Str("session_id", id.String()).
				Msg("failed to resolve timeout")
		}
	}
	return processed, nil
}

// RunScanner calls ProcessTimeouts every interval until ctx is done.
func (s *Service) RunScanner(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n, _ := s.ProcessTimeouts(ctx); n > 0 {
				s.logger.Debug().Int("sessions", n).Msg("timeouts resolved")
			}
		}
	}
}

// expire applies the no-response outcome for whatever is overdue. The pending
// loss is checked first since it blocks the pending action behind it.
func (tx *txn) expire() error {
	s := tx.session
	if s.Ended {
		if tx.svc.retention > 0 && tx.now.Sub(s.EndedAt) >= tx.svc.retention {
			tx.svc.repo.Remove(s.ID)
			tx.svc.logger.Info().Str("session_id", s.ID.String()).Msg("session evicted")
		}
		return errNoChange
	}
	if !s.Started {
		return errNoChange
	}
	deadline, ok := s.Deadline()
	if !ok {
		return tx.expireTurn()
	}
	if tx.now.Before(deadline) {
		return errNoChange
	}

	if loss := s.PendingLoss; loss != nil {
		hand := tx.hand(loss.PlayerID)
		if len(hand) == 0 {
			// Nothing left to lose; drop the debt and carry on.
			s.PendingLoss = nil
			if tx.checkEndGame() {
				return nil
			}
			return tx.resume()
		}
		role := hand[tx.svc.rng.IntN(len(hand))]
		tx.logf("%s ran out of time", tx.name(loss.PlayerID))
		tx.loseInfluence(loss.PlayerID, role)
		if tx.checkEndGame() {
			return nil
		}
		return tx.resume()
	}

	p := s.Pending
	switch p.Phase {
	case game.PhaseExchangeSelection:
		tx.logf("%s ran out of time and keeps the current hand", tx.name(p.Actor))
		rest, ok := game.SubtractRoles(p.ExchangePool, tx.hand(p.Actor))
		if !ok {
			tx.abandon("exchange pool no longer matches hand")
			return nil
		}
		tx.finishExchange(p.Actor, tx.hand(p.Actor), rest)
		return nil
	default:
		for _, id := range s.AwaitingResponses() {
			p.Responded[id] = true
		}
		tx.logf("no response in time")
		return tx.completePhase()
	}
}

// expireTurn plays a default action for a seat idle past the turn timeout.
func (tx *txn) expireTurn() error {
	s := tx.session
	limit := s.Config.TurnTimeout()
	if limit <= 0 || tx.now.Sub(s.TurnStartedAt) < limit {
		return errNoChange
	}
	cur := s.CurrentSeat()
	if cur == nil {
		return errNoChange
	}
	tx.logf("%s ran out of time", cur.Name)
	if cur.Coins < game.MandatoryCoupCoins {
		return tx.submitAction(cur.PlayerID, game.VerbIncome, nil, nil)
	}
	var targets []uuid.UUID
	for _, seat := range s.AliveSeats() {
		if seat.PlayerID != cur.PlayerID {
			targets = append(targets, seat.PlayerID)
		}
	}
	if len(targets) == 0 {
		return errNoChange
	}
	target := targets[tx.svc.rng.IntN(len(targets))]
	return tx.submitAction(cur.PlayerID, game.VerbCoup, &target, nil)
}
