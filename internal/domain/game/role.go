package game

import (
	"fmt"
	"strings"
)

// Role is one of the five influence cards.
type Role string

const (
	RoleDuke       Role = "DUKE"
	RoleAssassin   Role = "ASSASSIN"
	RoleCaptain    Role = "CAPTAIN"
	RoleAmbassador Role = "AMBASSADOR"
	RoleContessa   Role = "CONTESSA"
)

// AllRoles lists every role in deck order.
var AllRoles = []Role{RoleDuke, RoleAssassin, RoleCaptain, RoleAmbassador, RoleContessa}

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole normalizes and validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Verb is a turn action.
type Verb string

const (
	VerbIncome      Verb = "INCOME"
	VerbForeignAid  Verb = "FOREIGN_AID"
	VerbTax         Verb = "TAX"
	VerbAssassinate Verb = "ASSASSINATE"
	VerbSteal       Verb = "STEAL"
	VerbExchange    Verb = "EXCHANGE"
	VerbCoup        Verb = "COUP"
)

const (
	CopiesPerRole      = 3
	MandatoryCoupCoins = 10
	IncomeGain         = 1
	ForeignAidGain     = 2
	TaxGain            = 3
	StealAmount        = 2
	ExchangeDraw       = 2
	MinSeats           = 2
	MaxSeats           = 6
)

// VerbRule describes how a verb is claimed, paid for, and countered.
type VerbRule struct {
	// Claim is the role the actor asserts; empty for role-less verbs.
	Claim    Role
	Cost     int
	Targeted bool

	// BlockRoles are the roles a blocker may claim.
	BlockRoles []Role

	// TargetBlocksOnly restricts blocking to the action's target.
	TargetBlocksOnly bool

	// Immediate verbs never open a PendingAction.
	Immediate bool
}

var verbRules = map[Verb]VerbRule{
	VerbIncome:      {Immediate: true},
	VerbCoup:        {Cost: 7, Targeted: true, Immediate: true},
	VerbForeignAid:  {BlockRoles: []Role{RoleDuke}},
	VerbTax:         {Claim: RoleDuke},
	VerbAssassinate: {Claim: RoleAssassin, Cost: 3, Targeted: true, BlockRoles: []Role{RoleContessa}, TargetBlocksOnly: true},
	VerbSteal:       {Claim: RoleCaptain, Targeted: true, BlockRoles: []Role{RoleCaptain, RoleAmbassador}, TargetBlocksOnly: true},
	VerbExchange:    {Claim: RoleAmbassador},
}

// RuleFor returns the rule for v.
func RuleFor(v Verb) (VerbRule, bool) {
	r, ok := verbRules[v]
	return r, ok
}

// ParseVerb normalizes and validates a verb name.
func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := verbRules[v]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidVerb, s)
	}
	return v, nil
}

func (r VerbRule) Challengeable() bool { return r.Claim != "" }

func (r VerbRule) Blockable() bool { return len(r.BlockRoles) > 0 }

// CanBlockWith reports whether role is an accepted counter-claim.
func (r VerbRule) CanBlockWith(role Role) bool {
	for _, br := range r.BlockRoles {
		if br == role {
			return true
		}
	}
	return false
}

// ContainsRole reports whether hand holds at least one copy of role.
func ContainsRole(hand []Role, role Role) bool {
	for _, r := range hand {
		if r == role {
			return true
		}
	}
	return false
}

// RemoveRole returns hand without one copy of role.
func RemoveRole(hand []Role, role Role) ([]Role, bool) {
	for i, r := range hand {
		if r == role {
			out := make([]Role, 0, len(hand)-1)
			out = append(out, hand[:i]...)
			return append(out, hand[i+1:]...), true
		}
	}
	return hand, false
}

// SubtractRoles removes chosen from pool as a multiset. It fails if any chosen
// token is not available in pool.
func SubtractRoles(pool, chosen []Role) ([]Role, bool) {
	rest := append([]Role(nil), pool...)
	for _, c := range chosen {
		var ok bool
		rest, ok = RemoveRole(rest, c)
		if !ok {
			return pool, false
		}
	}
	return rest, true
}
