package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

// SubmitAction starts the actor's turn action.
func (s *Service) SubmitAction(ctx context.Context, sessionID, actorID uuid.UUID, verb game.Verb, target *uuid.UUID, claimedRole *game.Role) error {
	return s.mutate(ctx, sessionID, "submit_action", func(tx *txn) error {
		return tx.submitAction(actorID, verb, target, claimedRole)
	})
}

// Challenge disputes the live claim.
func (s *Service) Challenge(ctx context.Context, sessionID, responderID uuid.UUID) error {
	return s.mutate(ctx, sessionID, "challenge", func(tx *txn) error {
		return tx.challenge(responderID)
	})
}

// Pass accepts the live claim, or declines to block when asked.
func (s *Service) Pass(ctx context.Context, sessionID, responderID uuid.UUID) error {
	return s.mutate(ctx, sessionID, "pass", func(tx *txn) error {
		return tx.pass(responderID)
	})
}

// DeclareBlock counter-claims role against the pending action.
func (s *Service) DeclareBlock(ctx context.Context, sessionID, responderID uuid.UUID, role game.Role) error {
	return s.mutate(ctx, sessionID, "declare_block", func(tx *txn) error {
		return tx.declareBlock(responderID, role)
	})
}

// ChooseCardToLose pays an owed influence loss with role.
func (s *Service) ChooseCardToLose(ctx context.Context, sessionID, playerID uuid.UUID, role game.Role) error {
	return s.mutate(ctx, sessionID, "choose_card_to_lose", func(tx *txn) error {
		return tx.chooseCardToLose(playerID, role)
	})
}

// SubmitExchangeCards keeps chosen from the exchange pool.
func (s *Service) SubmitExchangeCards(ctx context.Context, sessionID, playerID uuid.UUID, chosen []game.Role) error {
	return s.mutate(ctx, sessionID, "submit_exchange", func(tx *txn) error {
		return tx.submitExchange(playerID, chosen)
	})
}

func (tx *txn) seated(id uuid.UUID) (*game.Seat, error) {
	if !tx.session.Active() {
		return nil, game.ErrGameNotActive
	}
	seat := tx.session.Seat(id)
	if seat == nil {
		return nil, game.ErrNotSeated
	}
	return seat, nil
}

func (tx *txn) submitAction(actorID uuid.UUID, verb game.Verb, target *uuid.UUID, claimedRole *game.Role) error {
	actor, err := tx.seated(actorID)
	if err != nil {
		return err
	}
	s := tx.session
	if cur := s.CurrentSeat(); cur == nil || cur.PlayerID != actorID {
		return game.ErrNotYourTurn
	}
	if s.Pending != nil || s.PendingLoss != nil {
		return game.ErrActionPending
	}
	rule, ok := game.RuleFor(verb)
	if !ok {
		return fmt.Errorf("%w: %q", game.ErrInvalidVerb, verb)
	}
	if actor.Coins >= game.MandatoryCoupCoins && verb != game.VerbCoup {
		return game.ErrMustCoup
	}
	if claimedRole != nil && *claimedRole != rule.Claim {
		return fmt.Errorf("%w: %s does not claim %s", game.ErrInvalidRole, verb, *claimedRole)
	}
	var targetSeat *game.Seat
	if rule.Targeted {
		if target == nil || *target == actorID {
			return game.ErrInvalidTarget
		}
		targetSeat = s.Seat(*target)
		if targetSeat == nil || !targetSeat.Alive() {
			return game.ErrInvalidTarget
		}
	} else if target != nil {
		return fmt.Errorf("%w: %s takes no target", game.ErrInvalidTarget, verb)
	}
	if actor.Coins < rule.Cost {
		return game.ErrInsufficientFunds
	}

	s.StatsFor(actorID).Actions++
	switch verb {
	case game.VerbIncome:
		actor.Coins += game.IncomeGain
		tx.logf("%s takes income", actor.Name)
		tx.advanceTurn()
		return nil
	case game.VerbCoup:
		actor.Coins -= rule.Cost
		tx.logf("%s launches a coup against %s", actor.Name, targetSeat.Name)
		tx.openLoss(targetSeat.PlayerID, game.LossCouped)
		return nil
	}

	p := &game.PendingAction{
		Verb:  verb,
		Actor: actorID,
	}
	if targetSeat != nil {
		id := targetSeat.PlayerID
		p.Target = &id
	}
	if rule.Claim != "" {
		role := rule.Claim
		p.ClaimedRole = &role
	}
	p.EnterPhase(game.PhaseActionClaim, tx.now)
	s.Pending = p
	tx.logf("%s", describeClaim(s, p))
	return nil
}

func describeClaim(s *game.Session, p *game.PendingAction) string {
	actor := s.Name(p.Actor)
	switch p.Verb {
	case game.VerbForeignAid:
		return fmt.Sprintf("%s asks for foreign aid", actor)
	case game.VerbTax:
		return fmt.Sprintf("%s claims DUKE to collect tax", actor)
	case game.VerbAssassinate:
		return fmt.Sprintf("%s claims ASSASSIN to assassinate %s", actor, s.Name(*p.Target))
	case game.VerbSteal:
		return fmt.Sprintf("%s claims CAPTAIN to steal from %s", actor, s.Name(*p.Target))
	case game.VerbExchange:
		return fmt.Sprintf("%s claims AMBASSADOR to exchange", actor)
	}
	return fmt.Sprintf("%s plays %s", actor, p.Verb)
}

// respondable checks the preconditions shared by Challenge, Pass and DeclareBlock.
func (tx *txn) respondable(responderID uuid.UUID) (*game.Seat, *game.PendingAction, error) {
	seat, err := tx.seated(responderID)
	if err != nil {
		return nil, nil, err
	}
	if !seat.Alive() {
		return nil, nil, game.ErrNotEligible
	}
	s := tx.session
	if s.PendingLoss != nil || s.Pending == nil {
		return nil, nil, game.ErrWrongPhase
	}
	p := s.Pending
	if p.Phase == game.PhaseExchangeSelection {
		return nil, nil, game.ErrWrongPhase
	}
	return seat, p, nil
}

func (tx *txn) eligible(id uuid.UUID) bool {
	for _, e := range tx.session.EligibleResponders() {
		if e == id {
			return true
		}
	}
	return false
}

func (tx *txn) challenge(responderID uuid.UUID) error {
	challenger, p, err := tx.respondable(responderID)
	if err != nil {
		return err
	}
	role, ok := p.LiveClaim()
	if !ok {
		return game.ErrWrongPhase
	}
	claimantID := p.Claimant()
	if claimantID == responderID {
		return game.ErrOwnClaim
	}
	if !tx.eligible(responderID) {
		return game.ErrNotEligible
	}
	// The actor is pre-marked on a block but may still contest it.
	contestingBlock := p.Phase == game.PhaseBlockClaim && responderID == p.Actor && !p.ActorAccepted
	if p.Responded[responderID] && !contestingBlock {
		return game.ErrAlreadyResponded
	}

	s := tx.session
	claimant := s.Seat(claimantID)
	if claimant == nil || !claimant.Alive() {
		tx.abandon("claimant left the table")
		return nil
	}
	onBlock := p.Phase == game.PhaseBlockClaim
	tx.logf("%s challenges %s's %s", challenger.Name, claimant.Name, role)

	if game.ContainsRole(tx.hand(claimantID), role) {
		if err := tx.reveal(claimantID, role); err != nil {
			return err
		}
		tx.logf("%s reveals %s; %s loses the challenge", claimant.Name, role, challenger.Name)
		s.StatsFor(responderID).ChallengesLost++
		if onBlock {
			p.Continuation = game.ContinueBlockStands
		} else {
			p.Continuation = game.ContinueProceed
		}
		tx.openLoss(responderID, game.LossChallengeFailed)
		return nil
	}

	tx.logf("%s was bluffing about %s", claimant.Name, role)
	s.StatsFor(responderID).ChallengesWon++
	s.StatsFor(claimantID).BluffsCaught++
	if onBlock {
		p.Continuation = game.ContinueExecute
	} else {
		p.Continuation = game.ContinueActionFails
	}
	tx.openLoss(claimantID, game.LossBluffCaught)
	return nil
}

// reveal returns a proven role to the deck and redraws a replacement.
func (tx *txn) reveal(playerID uuid.UUID, role game.Role) error {
	hand, ok := game.RemoveRole(tx.hand(playerID), role)
	if !ok {
		return fmt.Errorf("%w: %s", game.ErrRoleNotHeld, role)
	}
	tx.deck.Return(role)
	tx.deck.Shuffle(tx.svc.rng)
	drawn, err := tx.deck.Draw(1)
	if err != nil {
		return err
	}
	tx.setHand(playerID, append(hand, drawn...))
	return nil
}

func (tx *txn) pass(responderID uuid.UUID) error {
	seat, p, err := tx.respondable(responderID)
	if err != nil {
		return err
	}
	if p.Phase == game.PhaseBlockClaim && p.HasBlock() && *p.Blocker == responderID {
		return game.ErrOwnClaim
	}
	if p.Phase == game.PhaseActionClaim && p.Actor == responderID {
		return game.ErrOwnClaim
	}
	if !tx.eligible(responderID) {
		return game.ErrNotEligible
	}
	// The actor is pre-marked on a block; passing only gives up the right to
	// contest it. Other responders may still challenge.
	if p.Phase == game.PhaseBlockClaim && p.HasBlock() && responderID == p.Actor {
		if p.ActorAccepted {
			return game.ErrAlreadyResponded
		}
		p.ActorAccepted = true
		tx.logf("%s accepts the block", seat.Name)
		if phaseSatisfied(tx.session) {
			return tx.completePhase()
		}
		return nil
	}
	if p.Responded[responderID] {
		return game.ErrAlreadyResponded
	}
	p.Responded[responderID] = true

	if p.AwaitingTarget {
		tx.logf("%s does not block", seat.Name)
		return tx.completePhase()
	}
	if phaseSatisfied(tx.session) {
		return tx.completePhase()
	}
	return nil
}

// phaseSatisfied reports whether every awaited responder has passed.
func phaseSatisfied(s *game.Session) bool {
	return len(s.AwaitingResponses()) == 0
}

func (tx *txn) declareBlock(responderID uuid.UUID, role game.Role) error {
	blocker, p, err := tx.respondable(responderID)
	if err != nil {
		return err
	}
	rule, _ := game.RuleFor(p.Verb)
	if !rule.Blockable() || p.HasBlock() {
		return game.ErrWrongPhase
	}
	if p.Phase == game.PhaseBlockClaim && !p.AwaitingTarget {
		return game.ErrWrongPhase
	}
	if responderID == p.Actor {
		return game.ErrOwnClaim
	}
	if rule.TargetBlocksOnly {
		if p.Target == nil || *p.Target != responderID {
			return game.ErrNotEligible
		}
	} else if p.Responded[responderID] {
		return game.ErrAlreadyResponded
	}
	if !rule.CanBlockWith(role) {
		return fmt.Errorf("%w: %s cannot block %s", game.ErrInvalidRole, role, p.Verb)
	}

	if p.Phase == game.PhaseActionClaim {
		tx.settleClaim()
	}
	id := blocker.PlayerID
	r := role
	p.Blocker = &id
	p.BlockRole = &r
	p.AwaitingTarget = false
	p.EnterPhase(game.PhaseBlockClaim, tx.now, p.Actor)
	tx.session.StatsFor(responderID).Blocks++
	tx.logf("%s claims %s to block %s", blocker.Name, role, tx.name(p.Actor))
	return nil
}

func (tx *txn) chooseCardToLose(playerID uuid.UUID, role game.Role) error {
	if _, err := tx.seated(playerID); err != nil {
		return err
	}
	loss := tx.session.PendingLoss
	if loss == nil || loss.PlayerID != playerID {
		return game.ErrNoPendingLoss
	}
	if !game.ContainsRole(tx.hand(playerID), role) {
		return fmt.Errorf("%w: %s", game.ErrRoleNotHeld, role)
	}
	tx.loseInfluence(playerID, role)
	if tx.checkEndGame() {
		return nil
	}
	return tx.resume()
}

func (tx *txn) submitExchange(playerID uuid.UUID, chosen []game.Role) error {
	if _, err := tx.seated(playerID); err != nil {
		return err
	}
	p := tx.session.Pending
	if tx.session.PendingLoss != nil || p == nil || p.Phase != game.PhaseExchangeSelection {
		return game.ErrWrongPhase
	}
	if p.Actor != playerID {
		return game.ErrNotYourTurn
	}
	if len(chosen) != p.RetainCount {
		return fmt.Errorf("%w: keep exactly %d", game.ErrInvalidExchange, p.RetainCount)
	}
	for _, r := range chosen {
		if !r.Valid() {
			return fmt.Errorf("%w: %q", game.ErrInvalidRole, r)
		}
	}
	rest, ok := game.SubtractRoles(p.ExchangePool, chosen)
	if !ok {
		return fmt.Errorf("%w: selection not in offered pool", game.ErrInvalidExchange)
	}
	tx.finishExchange(playerID, chosen, rest)
	return nil
}
