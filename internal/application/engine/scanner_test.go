package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

const responseTimeout = 30 * time.Second

func (f *fixture) expire(t *testing.T) int {
	t.Helper()
	f.clock.Advance(responseTimeout + time.Second)
	n, err := f.svc.ProcessTimeouts(context.Background())
	require.NoError(t, err)
	return n
}

func TestProcessTimeouts_NothingDue(t *testing.T) {
	f := twoSeats(t)
	require.NoError(t, f.act(t, 0, game.VerbTax, -1))
	f.clock.Advance(responseTimeout - time.Second)

	n, err := f.svc.ProcessTimeouts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NotNil(t, f.snapshot(t).Pending)
}

func TestProcessTimeouts_GainResolves(t *testing.T) {
	f := threeSeats(t)
	require.NoError(t, f.act(t, 0, game.VerbTax, -1))
	require.NoError(t, f.pass(1))

	assert.Equal(t, 1, f.expire(t))
	snap := f.snapshot(t)
	assert.Nil(t, snap.Pending)
	assert.Equal(t, 5, snap.Seats[0].Coins)
}

func TestProcessTimeouts_TargetedActionMatchesDecline(t *testing.T) {
	timed := twoSeats(t)
	require.NoError(t, timed.act(t, 0, game.VerbSteal, 1))

	assert.Equal(t, 1, timed.expire(t))
	snap := timed.snapshot(t)
	require.NotNil(t, snap.Pending)
	assert.Equal(t, game.PhaseBlockClaim, snap.Pending.Phase)
	assert.True(t, snap.Pending.AwaitingTarget)
	assert.Equal(t, timed.clock.Now().Add(responseTimeout), snap.Pending.Deadline, "fresh deadline on phase change")

	assert.Equal(t, 1, timed.expire(t))

	declined := twoSeats(t)
	require.NoError(t, declined.act(t, 0, game.VerbSteal, 1))
	require.NoError(t, declined.pass(1))
	require.NoError(t, declined.pass(1))

	got, want := timed.snapshot(t), declined.snapshot(t)
	assert.Nil(t, got.Pending)
	assert.Equal(t, want.Seats[0].Coins, got.Seats[0].Coins)
	assert.Equal(t, want.Seats[1].Coins, got.Seats[1].Coins)
	assert.Equal(t, 4, got.Seats[0].Coins)
}

func TestProcessTimeouts_BlockStands(t *testing.T) {
	f := twoSeats(t)
	require.NoError(t, f.act(t, 0, game.VerbSteal, 1))
	require.NoError(t, f.block(1, game.RoleCaptain))

	assert.Equal(t, 1, f.expire(t))
	snap := f.snapshot(t)
	assert.Nil(t, snap.Pending)
	assert.Equal(t, 2, snap.Seats[0].Coins)
	assert.Equal(t, f.players[1], *snap.CurrentPlayer)
}

func TestProcessTimeouts_LossPicksHeldRole(t *testing.T) {
	f := twoSeats(t)
	f.edit(t, func(s *game.Session) { s.Seats[0].Coins = 7 })
	require.NoError(t, f.act(t, 0, game.VerbCoup, 1))

	assert.Equal(t, 1, f.expire(t))
	snap := f.snapshot(t)
	assert.Nil(t, snap.PendingLoss)
	assert.Equal(t, 1, snap.Seats[1].Influence)
	require.Len(t, snap.Seats[1].Revealed, 1)
	assert.Contains(t, []game.Role{game.RoleCaptain, game.RoleAmbassador}, snap.Seats[1].Revealed[0])
	assert.Equal(t, f.players[1], *snap.CurrentPlayer)
	f.requireInvariants(t)
}

func TestProcessTimeouts_LossBeforeAction(t *testing.T) {
	f := twoSeats(t)
	require.NoError(t, f.act(t, 0, game.VerbTax, -1))
	require.NoError(t, f.challenge(1))

	// the owed loss resolves first, then the proven tax carries on
	assert.Equal(t, 1, f.expire(t))
	snap := f.snapshot(t)
	assert.Nil(t, snap.PendingLoss)
	assert.Nil(t, snap.Pending)
	assert.Equal(t, 5, snap.Seats[0].Coins)
	f.requireInvariants(t)
}

func TestProcessTimeouts_ExchangeKeepsHand(t *testing.T) {
	f := twoSeats(t)
	require.NoError(t, f.act(t, 0, game.VerbExchange, -1))
	require.NoError(t, f.pass(1))
	require.Equal(t, game.PhaseExchangeSelection, f.snapshot(t).Pending.Phase)

	assert.Equal(t, 1, f.expire(t))
	assert.ElementsMatch(t, []game.Role{game.RoleDuke, game.RoleContessa}, f.hand(0))
	assert.Nil(t, f.snapshot(t).Pending)
	f.requireInvariants(t)
}

func TestProcessTimeouts_IdleTurn(t *testing.T) {
	f := twoSeats(t)
	f.edit(t, func(s *game.Session) { s.Config.TurnTimeoutSeconds = 10 })

	f.clock.Advance(5 * time.Second)
	n, err := f.svc.ProcessTimeouts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.clock.Advance(6 * time.Second)
	n, err = f.svc.ProcessTimeouts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	snap := f.snapshot(t)
	assert.Equal(t, 3, snap.Seats[0].Coins)
	assert.Equal(t, f.players[1], *snap.CurrentPlayer)
}

func TestProcessTimeouts_IdleTurnCoupsAtTen(t *testing.T) {
	f := twoSeats(t)
	f.edit(t, func(s *game.Session) {
		s.Config.TurnTimeoutSeconds = 10
		s.Seats[0].Coins = 10
	})
	f.clock.Advance(11 * time.Second)
	_, err := f.svc.ProcessTimeouts(context.Background())
	require.NoError(t, err)

	snap := f.snapshot(t)
	assert.Equal(t, 3, snap.Seats[0].Coins)
	require.NotNil(t, snap.PendingLoss)
	assert.Equal(t, f.players[1], snap.PendingLoss.PlayerID)
}

func TestProcessTimeouts_EvictsEndedSessions(t *testing.T) {
	f := newFixtureWith(t, quietNotifier(t), []Option{WithRetention(time.Minute)},
		[]game.Role{game.RoleDuke, game.RoleContessa},
		[]game.Role{game.RoleCaptain},
	)
	f.edit(t, func(s *game.Session) { s.Seats[0].Coins = 7 })
	require.NoError(t, f.act(t, 0, game.VerbCoup, 1))
	require.NoError(t, f.lose(1, game.RoleCaptain))
	require.Equal(t, 1, f.store.Len())

	f.clock.Advance(30 * time.Second)
	_, err := f.svc.ProcessTimeouts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Len())

	f.clock.Advance(time.Minute)
	_, err = f.svc.ProcessTimeouts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f.store.Len())
	_, ok := f.store.SessionOf(f.players[0])
	assert.False(t, ok)
}

func TestRunScanner_StopsOnCancel(t *testing.T) {
	f := twoSeats(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.svc.RunScanner(ctx, time.Millisecond) }()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop")
	}
}
