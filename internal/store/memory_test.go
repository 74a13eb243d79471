package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ultimatecode/internal/game"
)

func newTestStore(opts ...Option) *MemoryStore {
	return NewMemoryStore(append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)...)
}

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if store == nil {
		t.Fatal("NewMemoryStore returned nil")
	}
	if store.rooms == nil || store.games == nil {
		t.Fatal("maps not initialized")
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d rooms", store.Len())
	}
}

func TestCreateRoom(t *testing.T) {
	store := newTestStore()

	t.Run("creates room with unique code", func(t *testing.T) {
		room, host, err := store.CreateRoom("Alice", 0, "")
		require.NoError(t, err)

		if len(room.ID) != 6 {
			t.Errorf("expected room code length 6, got %d", len(room.ID))
		}
		for _, char := range room.ID {
			if !((char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9')) {
				t.Errorf("room code contains invalid character: %c", char)
			}
		}

		assert.Equal(t, 5, room.MaxPlayers, "0 selects the default")
		assert.Equal(t, host.ID, room.HostID())
		assert.Len(t, host.ID, 16)
	})

	t.Run("custom code length and default size", func(t *testing.T) {
		store := newTestStore(WithRoomCodeLength(4), WithDefaultMaxPlayers(8))
		room, _, err := store.CreateRoom("Alice", 0, "")
		require.NoError(t, err)
		assert.Len(t, room.ID, 4)
		assert.Equal(t, 8, room.MaxPlayers)
	})

	t.Run("rejects bad capacity", func(t *testing.T) {
		_, _, err := store.CreateRoom("Alice", 11, "")
		assert.ErrorIs(t, err, game.ErrMaxPlayers)
	})

	t.Run("concurrent creation yields unique codes", func(t *testing.T) {
		store := newTestStore()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := store.CreateRoom("Host", 4, "")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, store.Len())
		assert.Len(t, store.ListRooms(), 50)
	})
}

func TestGetRoom(t *testing.T) {
	store := newTestStore()
	room, _, err := store.CreateRoom("Alice", 3, "")
	require.NoError(t, err)

	got, err := store.GetRoom(room.ID)
	require.NoError(t, err)
	assert.Same(t, room, got)

	_, err = store.GetRoom("NOPE00")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

func TestJoinAndLeave(t *testing.T) {
	store := newTestStore()
	room, host, err := store.CreateRoom("Alice", 3, "pw")
	require.NoError(t, err)

	_, err = store.JoinRoom(room.ID, "Bob", "nope")
	assert.ErrorIs(t, err, game.ErrWrongPassword)

	bob, err := store.JoinRoom(room.ID, "Bob", "pw")
	require.NoError(t, err)

	_, err = store.JoinRoom("MISSING", "Carol", "pw")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	res, err := store.LeaveRoom(room.ID, host.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, res.NewHostID)

	res, err = store.LeaveRoom(room.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, res.Empty)

	_, err = store.GetRoom(room.ID)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestAddAutomatedPlayer(t *testing.T) {
	store := newTestStore()
	room, host, err := store.CreateRoom("Alice", 3, "pw")
	require.NoError(t, err)

	bot, err := store.AddAutomatedPlayer(room.ID, host.ID, "", game.DifficultyHard)
	require.NoError(t, err)
	assert.True(t, bot.Automated)

	guest, err := store.JoinRoom(room.ID, "Bob", "pw")
	require.NoError(t, err)

	_, err = store.AddAutomatedPlayer(room.ID, guest.ID, "", game.DifficultyHard)
	assert.ErrorIs(t, err, game.ErrNotHost)
}

func TestStartMatchAndEnd(t *testing.T) {
	store := newTestStore(WithMatchOptions(game.WithSecretSource(func(game.Range) int { return 1 })))
	room, host, err := store.CreateRoom("Alice", 2, "")
	require.NoError(t, err)
	guest, err := store.JoinRoom(room.ID, "Bob", "")
	require.NoError(t, err)

	m, err := store.StartMatch(room.ID, guest.ID)
	require.NoError(t, err)

	got, err := store.GetGame(m.ID())
	require.NoError(t, err)
	assert.Same(t, m, got)
	assert.Equal(t, m.ID(), room.ActiveGameID())
	assert.Equal(t, room.ID, m.RoomID())

	_, err = store.StartMatch(room.ID, host.ID)
	assert.ErrorIs(t, err, game.ErrGameAlreadyStarted)

	res, err := m.CallNumbers(host.ID, []int{1})
	require.NoError(t, err)
	require.True(t, res.GameOver)

	assert.True(t, store.EndMatch(room.ID, m.ID()))
	assert.Equal(t, game.StatusFull, room.Status())

	_, err = store.GetGame(m.ID())
	assert.NoError(t, err, "finished match stays queryable")

	next, err := store.StartMatch(room.ID, host.ID)
	require.NoError(t, err)
	_, err = store.GetGame(m.ID())
	assert.ErrorIs(t, err, game.ErrGameNotFound, "previous match dropped on restart")
	_, err = store.GetGame(next.ID())
	assert.NoError(t, err)
}

func TestLeaveEmptyRoomHandsBackActiveMatch(t *testing.T) {
	store := newTestStore()
	room, host, err := store.CreateRoom("Alice", 2, "")
	require.NoError(t, err)
	guest, err := store.JoinRoom(room.ID, "Bob", "")
	require.NoError(t, err)
	m, err := store.StartMatch(room.ID, host.ID)
	require.NoError(t, err)

	res, err := store.LeaveRoom(room.ID, guest.ID)
	require.NoError(t, err)
	assert.False(t, res.Empty)
	assert.Nil(t, res.DroppedMatch)

	res, err = store.LeaveRoom(room.ID, host.ID)
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.Equal(t, m.ID(), res.ActiveGameID)
	assert.Same(t, m, res.DroppedMatch)

	_, err = store.GetGame(m.ID())
	assert.ErrorIs(t, err, game.ErrGameNotFound)
}

func TestDeleteRoomDropsGames(t *testing.T) {
	store := newTestStore()
	room, host, err := store.CreateRoom("Alice", 2, "")
	require.NoError(t, err)
	_, err = store.JoinRoom(room.ID, "Bob", "")
	require.NoError(t, err)
	m, err := store.StartMatch(room.ID, host.ID)
	require.NoError(t, err)

	require.NoError(t, store.DeleteRoom(room.ID))
	assert.True(t, room.Closed())

	_, err = store.GetGame(m.ID())
	assert.True(t, errors.Is(err, game.ErrGameNotFound))
	assert.ErrorIs(t, store.DeleteRoom(room.ID), game.ErrRoomNotFound)
}

func TestSweep(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newTestStore(WithClock(func() time.Time { return now }))

	stale, _, err := store.CreateRoom("Old", 4, "")
	require.NoError(t, err)

	now = now.Add(90 * time.Minute)
	fresh, _, err := store.CreateRoom("New", 4, "")
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	deleted := store.Sweep(2 * time.Hour)
	assert.Equal(t, []string{stale.ID}, deleted)
	assert.True(t, stale.Closed())

	_, err = store.GetRoom(stale.ID)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
	_, err = store.GetRoom(fresh.ID)
	assert.NoError(t, err)

	_, err = store.JoinRoom(stale.ID, "Late", "")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

func TestConcurrentJoins(t *testing.T) {
	store := newTestStore()
	room, _, err := store.CreateRoom("Host", 10, "")
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.JoinRoom(room.ID, fmt.Sprintf("Player%d", i), "")
			if err == nil {
				mu.Lock()
				joined++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, game.ErrRoomFull)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 9, joined)
	snap := room.Snapshot()
	assert.Len(t, snap.Players, 10)
	assert.Equal(t, game.StatusFull, snap.Status)
}
