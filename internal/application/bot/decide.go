package bot

import (
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

// IntentKind names the engine operation an Intent maps to.
type IntentKind string

const (
	IntentAction    IntentKind = "action"
	IntentChallenge IntentKind = "challenge"
	IntentPass      IntentKind = "pass"
	IntentBlock     IntentKind = "block"
	IntentLose      IntentKind = "lose"
	IntentExchange  IntentKind = "exchange"
)

// Intent is one call a bot wants to make.
type Intent struct {
	Kind   IntentKind
	Verb   game.Verb
	Target *uuid.UUID
	Role   game.Role
	Roles  []game.Role
}

// roleValue ranks roles for keeping; the lowest is discarded first.
var roleValue = map[game.Role]int{
	game.RoleDuke:       5,
	game.RoleCaptain:    4,
	game.RoleAssassin:   3,
	game.RoleContessa:   2,
	game.RoleAmbassador: 1,
}

// decider sees exactly what a human in the seat would: the public snapshot and
// the bot's own private view.
type decider struct {
	snap *game.Snapshot
	view *game.PrivateView
	self uuid.UUID
	p    *Personality
	rng  *rand.Rand
}

// Decide picks the bot's next intent. It reports false when the bot has
// nothing to do.
func Decide(snap *game.Snapshot, view *game.PrivateView, p *Personality, rng *rand.Rand) (Intent, bool, error) {
	d := &decider{snap: snap, view: view, self: view.PlayerID, p: p, rng: rng}
	return d.decide()
}

func (d *decider) decide() (Intent, bool, error) {
	snap := d.snap
	if !snap.Started || snap.Ended {
		return Intent{}, false, nil
	}
	me := d.seat(d.self)
	if me == nil || me.Influence == 0 {
		return Intent{}, false, nil
	}
	if loss := snap.PendingLoss; loss != nil {
		if loss.PlayerID != d.self || len(d.view.Hand) == 0 {
			return Intent{}, false, nil
		}
		return Intent{Kind: IntentLose, Role: d.weakest(d.view.Hand)}, true, nil
	}
	if p := snap.Pending; p != nil {
		return d.respond(p)
	}
	if snap.CurrentPlayer != nil && *snap.CurrentPlayer == d.self {
		return d.act(me)
	}
	return Intent{}, false, nil
}

func (d *decider) respond(p *game.PendingView) (Intent, bool, error) {
	if p.Phase == game.PhaseExchangeSelection {
		if p.Actor != d.self || d.view.RetainCount == 0 {
			return Intent{}, false, nil
		}
		return Intent{Kind: IntentExchange, Roles: d.strongest(d.view.ExchangePool, d.view.RetainCount)}, true, nil
	}

	// The actor may contest a block it is not waited on.
	contesting := p.Phase == game.PhaseBlockClaim && p.Blocker != nil && p.Actor == d.self && !p.ActorAccepted
	if !contesting && !containsID(p.Awaiting, d.self) {
		return Intent{}, false, nil
	}

	if claim, claimant, ok := liveClaim(p); ok && claimant != d.self {
		yes, err := d.p.ShouldChallenge(d.params(p, claim))
		if err != nil {
			return Intent{}, false, err
		}
		if yes {
			return Intent{Kind: IntentChallenge}, true, nil
		}
	}
	if contesting {
		return Intent{Kind: IntentPass}, true, nil
	}

	if role, ok, err := d.blockWith(p); err != nil {
		return Intent{}, false, err
	} else if ok {
		return Intent{Kind: IntentBlock, Role: role}, true, nil
	}
	return Intent{Kind: IntentPass}, true, nil
}

// blockWith picks a blocking role when the bot may block, preferring one it holds.
func (d *decider) blockWith(p *game.PendingView) (game.Role, bool, error) {
	rule, ok := game.RuleFor(p.Verb)
	if !ok || !rule.Blockable() || p.Blocker != nil {
		return "", false, nil
	}
	isTarget := p.Target != nil && *p.Target == d.self
	if rule.TargetBlocksOnly && !isTarget {
		return "", false, nil
	}
	if p.Phase == game.PhaseBlockClaim && !p.AwaitingTarget {
		return "", false, nil
	}
	for _, r := range rule.BlockRoles {
		if game.ContainsRole(d.view.Hand, r) {
			return r, true, nil
		}
	}
	yes, err := d.p.ShouldBlock(d.params(p, rule.BlockRoles[0]))
	if err != nil || !yes {
		return "", false, err
	}
	return rule.BlockRoles[d.rng.IntN(len(rule.BlockRoles))], true, nil
}

func (d *decider) act(me *game.Seat) (Intent, bool, error) {
	hand := d.view.Hand
	opponents := d.opponents()
	if len(opponents) == 0 {
		return Intent{}, false, nil
	}
	threat := d.biggestThreat(opponents)
	richest := d.richest(opponents)

	if me.Coins >= 7 {
		return d.targeted(game.VerbCoup, threat), true, nil
	}
	if me.Coins >= 3 && game.ContainsRole(hand, game.RoleAssassin) {
		return d.targeted(game.VerbAssassinate, threat), true, nil
	}
	if game.ContainsRole(hand, game.RoleDuke) {
		return Intent{Kind: IntentAction, Verb: game.VerbTax}, true, nil
	}
	// Steals often end in a standing block; mix in other moves so two
	// captains cannot stall the table.
	if richest.Coins >= 2 && game.ContainsRole(hand, game.RoleCaptain) && d.rng.Float64() < 0.75 {
		return d.targeted(game.VerbSteal, richest), true, nil
	}
	if game.ContainsRole(hand, game.RoleAmbassador) && d.rng.Float64() < 0.5 {
		return Intent{Kind: IntentAction, Verb: game.VerbExchange}, true, nil
	}

	bluff, err := d.p.ShouldBluff(Params{
		Coins:       me.Coins,
		Influence:   me.Influence,
		Opponents:   len(opponents),
		TargetCoins: richest.Coins,
		Rand:        d.rng.Float64(),
	})
	if err != nil {
		return Intent{}, false, err
	}
	if bluff {
		switch {
		case me.Coins >= 3 && d.rng.Float64() < 0.3:
			return d.targeted(game.VerbAssassinate, threat), true, nil
		case richest.Coins >= 2 && d.rng.Float64() < 0.5:
			return d.targeted(game.VerbSteal, richest), true, nil
		default:
			return Intent{Kind: IntentAction, Verb: game.VerbTax}, true, nil
		}
	}
	if d.revealed(game.RoleDuke) < game.CopiesPerRole-1 && d.rng.Float64() < 0.5 {
		return Intent{Kind: IntentAction, Verb: game.VerbIncome}, true, nil
	}
	return Intent{Kind: IntentAction, Verb: game.VerbForeignAid}, true, nil
}

func (d *decider) targeted(verb game.Verb, target *game.Seat) Intent {
	id := target.PlayerID
	return Intent{Kind: IntentAction, Verb: verb, Target: &id}
}

func (d *decider) params(p *game.PendingView, claim game.Role) Params {
	me := d.seat(d.self)
	params := Params{
		Coins:      me.Coins,
		Influence:  me.Influence,
		Opponents:  len(d.opponents()),
		ClaimsHeld: countRole(d.view.Hand, claim),
		Revealed:   d.revealed(claim),
		IsTarget:   p.Target != nil && *p.Target == d.self,
		Rand:       d.rng.Float64(),
	}
	if actor := d.seat(p.Actor); actor != nil {
		params.ActorCoins = actor.Coins
	}
	if opps := d.opponents(); len(opps) > 0 {
		params.TargetCoins = d.richest(opps).Coins
	}
	return params
}

func (d *decider) seat(id uuid.UUID) *game.Seat {
	for i := range d.snap.Seats {
		if d.snap.Seats[i].PlayerID == id {
			return &d.snap.Seats[i]
		}
	}
	return nil
}

func (d *decider) opponents() []*game.Seat {
	var out []*game.Seat
	for i := range d.snap.Seats {
		s := &d.snap.Seats[i]
		if s.PlayerID != d.self && s.Influence > 0 {
			out = append(out, s)
		}
	}
	return out
}

func (d *decider) biggestThreat(seats []*game.Seat) *game.Seat {
	best := seats[0]
	for _, s := range seats[1:] {
		if s.Influence > best.Influence || (s.Influence == best.Influence && s.Coins > best.Coins) {
			best = s
		}
	}
	return best
}

func (d *decider) richest(seats []*game.Seat) *game.Seat {
	best := seats[0]
	for _, s := range seats[1:] {
		if s.Coins > best.Coins {
			best = s
		}
	}
	return best
}

func (d *decider) revealed(role game.Role) int {
	n := 0
	for _, s := range d.snap.Seats {
		n += countRole(s.Revealed, role)
	}
	return n
}

func (d *decider) weakest(hand []game.Role) game.Role {
	return d.sorted(hand)[len(hand)-1]
}

func (d *decider) strongest(pool []game.Role, n int) []game.Role {
	sorted := d.sorted(pool)
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// sorted orders roles from most to least valuable, pushing duplicates back.
func (d *decider) sorted(roles []game.Role) []game.Role {
	type ranked struct {
		role  game.Role
		value int
	}
	seen := map[game.Role]int{}
	items := make([]ranked, 0, len(roles))
	for _, r := range roles {
		items = append(items, ranked{role: r, value: roleValue[r]*10 - seen[r]*100})
		seen[r]++
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].value > items[j].value })
	out := make([]game.Role, len(items))
	for i, it := range items {
		out[i] = it.role
	}
	return out
}

func liveClaim(p *game.PendingView) (game.Role, uuid.UUID, bool) {
	if p.Phase == game.PhaseBlockClaim && p.Blocker != nil && p.BlockRole != nil {
		return *p.BlockRole, *p.Blocker, true
	}
	if p.Phase == game.PhaseActionClaim && p.ClaimedRole != nil {
		return *p.ClaimedRole, p.Actor, true
	}
	return "", uuid.Nil, false
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func countRole(roles []game.Role, role game.Role) int {
	n := 0
	for _, r := range roles {
		if r == role {
			n++
		}
	}
	return n
}
