package game

import (
	"fmt"
	"math/rand/v2"
)

// Deck is the court: a shuffled bag of role tokens private to one session.
type Deck struct {
	tokens []Role
}

// NewDeck builds a full deck with copies of every role. It is not shuffled.
func NewDeck(copies int) *Deck {
	d := &Deck{tokens: make([]Role, 0, copies*len(AllRoles))}
	for _, r := range AllRoles {
		for i := 0; i < copies; i++ {
			d.tokens = append(d.tokens, r)
		}
	}
	return d
}

// Shuffle randomizes token order.
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.tokens), func(i, j int) {
		d.tokens[i], d.tokens[j] = d.tokens[j], d.tokens[i]
	})
}

// Draw removes n tokens from the top.
func (d *Deck) Draw(n int) ([]Role, error) {
	if n > len(d.tokens) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrDeckExhausted, n, len(d.tokens))
	}
	out := append([]Role(nil), d.tokens[:n]...)
	d.tokens = d.tokens[n:]
	return out, nil
}

// Return puts tokens back at the bottom. Callers reshuffle afterwards.
func (d *Deck) Return(roles ...Role) {
	d.tokens = append(d.tokens, roles...)
}

func (d *Deck) Len() int { return len(d.tokens) }

// Tokens returns a copy of the remaining tokens.
func (d *Deck) Tokens() []Role { return append([]Role(nil), d.tokens...) }

func (d *Deck) Clone() *Deck {
	return &Deck{tokens: append([]Role(nil), d.tokens...)}
}
