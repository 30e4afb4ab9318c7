package engine

import (
	"github.com/google/uuid"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

// completePhase applies the outcome of every awaited responder passing. Pass
// and the timeout scanner both end up here.
func (tx *txn) completePhase() error {
	p := tx.session.Pending
	if p == nil {
		return nil
	}
	switch p.Phase {
	case game.PhaseActionClaim:
		tx.settleClaim()
		return tx.proceed()
	case game.PhaseBlockClaim:
		if p.AwaitingTarget || !p.HasBlock() {
			return tx.executeEffect()
		}
		tx.logf("%s's block stands", tx.name(*p.Blocker))
		tx.finishAction()
	}
	return nil
}

// settleClaim charges the action cost once the action claim is accepted.
func (tx *txn) settleClaim() {
	p := tx.session.Pending
	if p == nil || p.CostPaid {
		return
	}
	p.CostPaid = true
	rule, _ := game.RuleFor(p.Verb)
	if rule.Cost == 0 {
		return
	}
	if actor := tx.session.Seat(p.Actor); actor != nil {
		actor.Coins -= rule.Cost
		if actor.Coins < 0 {
			actor.Coins = 0
		}
	}
}

// proceed continues an action whose claim survived.
func (tx *txn) proceed() error {
	p := tx.session.Pending
	rule, _ := game.RuleFor(p.Verb)
	switch {
	case p.Verb == game.VerbExchange:
		return tx.beginExchange()
	case rule.TargetBlocksOnly:
		target := tx.session.Seat(*p.Target)
		if target == nil || !target.Alive() {
			tx.abandon("target is out of the game")
			return nil
		}
		p.AwaitingTarget = true
		p.EnterPhase(game.PhaseBlockClaim, tx.now)
		tx.logf("%s may block", target.Name)
		return nil
	default:
		return tx.executeEffect()
	}
}

// executeEffect applies the action's effect and ends the negotiation.
func (tx *txn) executeEffect() error {
	s := tx.session
	p := s.Pending
	actor := s.Seat(p.Actor)
	if actor == nil || !actor.Alive() {
		tx.abandon("actor is out of the game")
		return nil
	}
	var target *game.Seat
	if p.Target != nil {
		target = s.Seat(*p.Target)
		if target == nil || !target.Alive() {
			tx.abandon("target is out of the game")
			return nil
		}
	}
	tx.settleClaim()
	switch p.Verb {
	case game.VerbForeignAid:
		actor.Coins += game.ForeignAidGain
		tx.logf("%s collects foreign aid", actor.Name)
	case game.VerbTax:
		actor.Coins += game.TaxGain
		tx.logf("%s collects tax", actor.Name)
	case game.VerbSteal:
		amount := min(game.StealAmount, target.Coins)
		target.Coins -= amount
		actor.Coins += amount
		tx.logf("%s steals %d from %s", actor.Name, amount, target.Name)
	case game.VerbAssassinate:
		tx.logf("%s assassinates %s", actor.Name, target.Name)
		s.Pending = nil
		tx.openLoss(target.PlayerID, game.LossAssassinated)
		return nil
	case game.VerbExchange:
		return tx.beginExchange()
	}
	tx.finishAction()
	return nil
}

// resume picks up the pending action after an influence loss was paid.
func (tx *txn) resume() error {
	p := tx.session.Pending
	if p == nil {
		tx.advanceTurn()
		return nil
	}
	next := p.Continuation
	p.Continuation = game.ContinueNone
	if actor := tx.session.Seat(p.Actor); actor == nil || !actor.Alive() {
		tx.abandon("actor is out of the game")
		return nil
	}
	switch next {
	case game.ContinueProceed:
		tx.settleClaim()
		return tx.proceed()
	case game.ContinueExecute:
		return tx.executeEffect()
	case game.ContinueActionFails:
		tx.logf("%s's %s fails", tx.name(p.Actor), p.Verb)
		tx.finishAction()
	case game.ContinueBlockStands:
		tx.logf("%s's block stands", tx.name(*p.Blocker))
		tx.finishAction()
	default:
		tx.abandon("no continuation recorded")
	}
	return nil
}

func (tx *txn) beginExchange() error {
	p := tx.session.Pending
	drawn, err := tx.deck.Draw(game.ExchangeDraw)
	if err != nil {
		tx.logf("the court is empty; %s's exchange is void", tx.name(p.Actor))
		tx.abandon(err.Error())
		return nil
	}
	hand := tx.hand(p.Actor)
	p.ExchangePool = append(append([]game.Role(nil), hand...), drawn...)
	p.RetainCount = len(hand)
	p.AwaitingTarget = false
	p.EnterPhase(game.PhaseExchangeSelection, tx.now)
	tx.touch(p.Actor)
	tx.logf("%s draws %d cards from the court", tx.name(p.Actor), len(drawn))
	return nil
}

func (tx *txn) finishExchange(playerID uuid.UUID, keep, rest []game.Role) {
	tx.deck.Return(rest...)
	tx.deck.Shuffle(tx.svc.rng)
	tx.setHand(playerID, append([]game.Role(nil), keep...))
	tx.logf("%s returns %d cards to the court", tx.name(playerID), len(rest))
	tx.finishAction()
}

// abandon drops a pending action that can no longer resolve and keeps the game moving.
func (tx *txn) abandon(reason string) {
	if p := tx.session.Pending; p != nil {
		tx.svc.logger.Debug().
			Str("session_id", tx.session.ID.String()).
			Str("verb", string(p.Verb)).
			Str("reason", reason).
			Msg("abandoning pending action")
		if p.Phase == game.PhaseExchangeSelection {
			// Drawn tokens go back; the hand was never replaced.
			if rest, ok := game.SubtractRoles(p.ExchangePool, tx.hand(p.Actor)); ok {
				tx.deck.Return(rest...)
				tx.deck.Shuffle(tx.svc.rng)
			}
		}
	}
	tx.finishAction()
}

func (tx *txn) finishAction() {
	tx.session.Pending = nil
	tx.advanceTurn()
}

func (tx *txn) openLoss(playerID uuid.UUID, reason game.LossReason) {
	seat := tx.session.Seat(playerID)
	if seat == nil || !seat.Alive() {
		return
	}
	tx.session.PendingLoss = &game.PendingInfluenceLoss{
		PlayerID:  playerID,
		Reason:    reason,
		StartedAt: tx.now,
	}
}

func (tx *txn) loseInfluence(playerID uuid.UUID, role game.Role) {
	s := tx.session
	hand, _ := game.RemoveRole(tx.hand(playerID), role)
	tx.setHand(playerID, hand)
	s.PendingLoss = nil
	seat := s.Seat(playerID)
	seat.Revealed = append(seat.Revealed, role)
	tx.logf("%s loses %s", seat.Name, role)
	if !seat.Alive() {
		s.StatsFor(playerID).EliminatedAtTurn = s.Turn
		tx.logf("%s is out of the game", seat.Name)
	}
}

// checkEndGame ends the game when a single seat keeps influence.
func (tx *txn) checkEndGame() bool {
	s := tx.session
	if s.Ended {
		return true
	}
	alive := s.AliveSeats()
	if len(alive) != 1 {
		return false
	}
	winner := alive[0].PlayerID
	s.Ended = true
	s.Winner = &winner
	s.EndedAt = tx.now
	s.Pending = nil
	s.PendingLoss = nil
	tx.logf("%s wins", alive[0].Name)
	return true
}

// advanceTurn moves to the next alive, connected seat, falling back to any
// alive seat so a disconnect never deadlocks the table.
func (tx *txn) advanceTurn() {
	s := tx.session
	s.Turn++
	s.TurnStartedAt = tx.now
	n := len(s.Seats)
	if n == 0 {
		return
	}
	next := -1
	for i := 1; i <= n; i++ {
		idx := (s.CurrentTurn + i) % n
		if seat := s.Seats[idx]; seat.Alive() && seat.Connected {
			next = idx
			break
		}
	}
	if next < 0 {
		for i := 1; i <= n; i++ {
			idx := (s.CurrentTurn + i) % n
			if s.Seats[idx].Alive() {
				next = idx
				break
			}
		}
	}
	if next >= 0 {
		s.CurrentTurn = next
	}
}
