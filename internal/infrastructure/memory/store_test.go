package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

func newTable(players ...uuid.UUID) *game.Table {
	s := game.NewSession(players[0], game.DefaultConfig(), time.Now().UTC())
	for _, id := range players {
		s.Seats = append(s.Seats, &game.Seat{PlayerID: id})
	}
	return &game.Table{Session: s, Deck: game.NewDeck(game.CopiesPerRole)}
}

func TestStore_CreateAcquire(t *testing.T) {
	st := NewStore()
	p := uuid.New()
	table := newTable(p)
	require.NoError(t, st.Create(table))
	require.Error(t, st.Create(table), "duplicate ids are rejected")
	require.Error(t, st.Create(nil))

	got, release, err := st.Acquire(table.Session.ID)
	require.NoError(t, err)
	assert.Same(t, table, got)
	release()

	sid, ok := st.SessionOf(p)
	require.True(t, ok)
	assert.Equal(t, table.Session.ID, sid)
	assert.Equal(t, []uuid.UUID{table.Session.ID}, st.IDs())

	_, _, err = st.Acquire(uuid.New())
	require.ErrorIs(t, err, game.ErrSessionNotFound)
}

func TestStore_HandsAreCopied(t *testing.T) {
	st := NewStore()
	p := uuid.New()
	hand := []game.Role{game.RoleDuke, game.RoleCaptain}
	st.SetHand(p, hand)
	hand[0] = game.RoleContessa

	got := st.Hand(p)
	assert.Equal(t, []game.Role{game.RoleDuke, game.RoleCaptain}, got)
	got[1] = game.RoleAssassin
	assert.Equal(t, game.RoleCaptain, st.Hand(p)[1])

	st.SetHand(p, nil)
	assert.Empty(t, st.Hand(p))
}

func TestStore_Remove(t *testing.T) {
	st := NewStore()
	a, b := uuid.New(), uuid.New()
	table := newTable(a, b)
	require.NoError(t, st.Create(table))
	st.SetHand(a, []game.Role{game.RoleDuke})

	// b moved on to another table
	other := uuid.New()
	st.Bind(b, other)
	st.SetHand(b, []game.Role{game.RoleAmbassador})

	_, release, err := st.Acquire(table.Session.ID)
	require.NoError(t, err)
	st.Remove(table.Session.ID)
	release()

	assert.Equal(t, 0, st.Len())
	assert.Empty(t, st.Hand(a))
	_, ok := st.SessionOf(a)
	assert.False(t, ok)
	assert.Equal(t, []game.Role{game.RoleAmbassador}, st.Hand(b))
	sid, _ := st.SessionOf(b)
	assert.Equal(t, other, sid)

	_, _, err = st.Acquire(table.Session.ID)
	require.ErrorIs(t, err, game.ErrSessionNotFound)
}

func TestStore_AcquireSerializes(t *testing.T) {
	st := NewStore()
	table := newTable(uuid.New())
	require.NoError(t, st.Create(table))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tb, release, err := st.Acquire(table.Session.ID)
			if err != nil {
				return
			}
			defer release()
			n := tb.Session.Turn
			time.Sleep(time.Microsecond)
			tb.Session.Turn = n + 1
		}()
	}
	wg.Wait()

	tb, release, err := st.Acquire(table.Session.ID)
	require.NoError(t, err)
	defer release()
	assert.Equal(t, 50, tb.Session.Turn)
}

func TestStore_WaiterSeesRemoval(t *testing.T) {
	st := NewStore()
	table := newTable(uuid.New())
	require.NoError(t, st.Create(table))

	_, release, err := st.Acquire(table.Session.ID)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, rel, err := st.Acquire(table.Session.ID)
		if err == nil {
			rel()
		}
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	st.Remove(table.Session.ID)
	release()

	require.ErrorIs(t, <-errc, game.ErrSessionNotFound)
}
