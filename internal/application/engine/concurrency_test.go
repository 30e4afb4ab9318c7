package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

// race runs every fn at once and returns their errors in order.
func race(fns ...func() error) []error {
	errs := make([]error, len(fns))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func(i int, fn func() error) {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}(i, fn)
	}
	close(start)
	wg.Wait()
	return errs
}

func TestChallenge_ConcurrentChallengersOneWins(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newFixture(t,
			[]game.Role{game.RoleCaptain, game.RoleContessa},
			[]game.Role{game.RoleDuke, game.RoleAssassin},
			[]game.Role{game.RoleAmbassador, game.RoleAmbassador},
		)
		require.NoError(t, f.act(t, 0, game.VerbTax, -1))

		errs := race(
			func() error { return f.challenge(1) },
			func() error { return f.challenge(2) },
		)
		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
				continue
			}
			require.ErrorIs(t, err, game.ErrWrongPhase)
		}
		require.Equal(t, 1, winners, "exactly one challenge lands")

		snap := f.snapshot(t)
		require.NotNil(t, snap.PendingLoss)
		assert.Equal(t, f.players[0], snap.PendingLoss.PlayerID)
		assert.Equal(t, game.LossBluffCaught, snap.PendingLoss.Reason)
		f.requireInvariants(t)
	}
}

func TestPass_RacesTimeoutScan(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := twoSeats(t)
		require.NoError(t, f.act(t, 0, game.VerbTax, -1))
		f.clock.Advance(responseTimeout + time.Second)

		errs := race(
			func() error { return f.pass(1) },
			func() error {
				_, err := f.svc.ProcessTimeouts(context.Background())
				return err
			},
		)
		if errs[0] != nil {
			require.ErrorIs(t, errs[0], game.ErrWrongPhase)
		}
		require.NoError(t, errs[1])

		snap := f.snapshot(t)
		assert.Nil(t, snap.Pending)
		assert.Equal(t, 5, snap.Seats[0].Coins, "tax is paid once")
		assert.Equal(t, f.players[1], *snap.CurrentPlayer)
		assert.Equal(t, 2, snap.Turn)
		f.requireInvariants(t)
	}
}
