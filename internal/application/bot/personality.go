package bot

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
)

var (
	ErrUnknownPersonality = errors.New("unknown bot personality")
	ErrNotBoolean         = errors.New("condition did not evaluate to boolean")
)

// DefaultPersonality is used when a bot is added without one.
const DefaultPersonality = "balanced"

// Personality decides the judgement calls of a bot. Each field is a condition
// expression over these parameters:
//
//	coins, influence   the bot's own purse and remaining cards
//	opponents          alive opponents
//	claims_held        copies of the claimed role the bot holds
//	revealed           copies of the claimed role lying face up
//	actor_coins        coins of the seat whose action is pending
//	target_coins       coins of the richest opponent
//	is_target          whether the pending action targets the bot
//	rand               uniform number in [0, 1)
type Personality struct {
	Name string
	// ChallengeWhen is checked against every live claim the bot may dispute.
	ChallengeWhen string
	// BlockWhen is checked when the bot could block without holding the role.
	BlockWhen string
	// BluffWhen is checked on the bot's turn before claiming a role it lacks.
	BluffWhen string

	challenge *govaluate.EvaluableExpression
	block     *govaluate.EvaluableExpression
	bluff     *govaluate.EvaluableExpression
}

// NewPersonality compiles the three conditions. Empty conditions never fire.
func NewPersonality(name, challengeWhen, blockWhen, bluffWhen string) (*Personality, error) {
	p := &Personality{Name: name, ChallengeWhen: challengeWhen, BlockWhen: blockWhen, BluffWhen: bluffWhen}
	var err error
	if p.challenge, err = compile(challengeWhen); err != nil {
		return nil, fmt.Errorf("%s challenge condition: %w", name, err)
	}
	if p.block, err = compile(blockWhen); err != nil {
		return nil, fmt.Errorf("%s block condition: %w", name, err)
	}
	if p.bluff, err = compile(bluffWhen); err != nil {
		return nil, fmt.Errorf("%s bluff condition: %w", name, err)
	}
	return p, nil
}

func compile(cond string) (*govaluate.EvaluableExpression, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		cond = "false"
	}
	return govaluate.NewEvaluableExpression(cond)
}

func (p *Personality) ShouldChallenge(params Params) (bool, error) {
	return evaluate(p.challenge, params)
}

func (p *Personality) ShouldBlock(params Params) (bool, error) {
	return evaluate(p.block, params)
}

func (p *Personality) ShouldBluff(params Params) (bool, error) {
	return evaluate(p.bluff, params)
}

// Params are the inputs of a personality condition.
type Params struct {
	Coins       int
	Influence   int
	Opponents   int
	ClaimsHeld  int
	Revealed    int
	ActorCoins  int
	TargetCoins int
	IsTarget    bool
	Rand        float64
}

func (p Params) toMap() map[string]interface{} {
	return map[string]interface{}{
		"coins":        float64(p.Coins),
		"influence":    float64(p.Influence),
		"opponents":    float64(p.Opponents),
		"claims_held":  float64(p.ClaimsHeld),
		"revealed":     float64(p.Revealed),
		"actor_coins":  float64(p.ActorCoins),
		"target_coins": float64(p.TargetCoins),
		"is_target":    p.IsTarget,
		"rand":         p.Rand,
	}
}

func evaluate(expr *govaluate.EvaluableExpression, params Params) (bool, error) {
	result, err := expr.Evaluate(params.toMap())
	if err != nil {
		return false, err
	}
	switch v := result.(type) {
	case bool:
		return v, nil
	default:
		return false, ErrNotBoolean
	}
}

var builtins = map[string][3]string{
	"cautious": {
		"claims_held + revealed >= 3",
		"is_target && influence == 1 && rand < 0.3",
		"rand < 0.05",
	},
	"balanced": {
		"claims_held + revealed >= 3 || (claims_held + revealed == 2 && rand < 0.35) || (is_target && influence == 1 && rand < 0.5)",
		"is_target && rand < 0.35",
		"(opponents > 1 && rand < 0.25) || rand < 0.15",
	},
	"reckless": {
		"claims_held + revealed >= 2 || rand < 0.4",
		"rand < 0.6",
		"rand < 0.6",
	},
}

// Lookup returns a built-in personality. An empty name selects DefaultPersonality.
func Lookup(name string) (*Personality, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultPersonality
	}
	conds, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPersonality, name)
	}
	return NewPersonality(name, conds[0], conds[1], conds[2])
}

// Names lists the built-in personalities.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
