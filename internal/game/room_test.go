package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestRoom(t *testing.T, maxPlayers int, password string) *Room {
	t.Helper()
	room, err := NewRoom("ROOM01", NewPlayer("host", "Host"), maxPlayers, password, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return room
}

func startFunc(players []Player) (*Match, error) {
	return NewMatch("game-1", "ROOM01", players)
}

func TestNewRoom(t *testing.T) {
	tests := []struct {
		name       string
		maxPlayers int
		wantErr    error
	}{
		{"minimum", 2, nil},
		{"maximum", 10, nil},
		{"too small", 1, ErrMaxPlayers},
		{"too large", 11, ErrMaxPlayers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := NewRoom("ROOM01", NewPlayer("host", "Host"), tt.maxPlayers, "")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			snap := room.Snapshot()
			assert.Equal(t, StatusWaiting, snap.Status)
			assert.Equal(t, "host", snap.HostID)
			assert.Len(t, snap.Players, 1)
			assert.NotEmpty(t, snap.Name)
			assert.False(t, snap.HasPassword)
		})
	}

	t.Run("empty host name", func(t *testing.T) {
		_, err := NewRoom("ROOM01", NewPlayer("host", "   "), 4, "")
		assert.ErrorIs(t, err, ErrEmptyName)
	})

	t.Run("custom name", func(t *testing.T) {
		room, err := NewRoom("ROOM01", NewPlayer("host", "Host"), 4, "", WithRoomName("Friday Night"))
		require.NoError(t, err)
		assert.Equal(t, "Friday Night", room.Name)
	})
}

func TestRoom_JoinUntilFull(t *testing.T) {
	room := newTestRoom(t, 3, "")

	require.NoError(t, room.Join(NewPlayer("b", "Bob"), ""))
	assert.Equal(t, StatusWaiting, room.Status())

	require.NoError(t, room.Join(NewPlayer("c", "Carol"), ""))
	assert.Equal(t, StatusFull, room.Status())

	err := room.Join(NewPlayer("d", "Dave"), "")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Len(t, room.Snapshot().Players, 3)
}

func TestRoom_JoinValidation(t *testing.T) {
	room := newTestRoom(t, 5, "")

	err := room.Join(NewPlayer("b", " host "), "")
	assert.ErrorIs(t, err, ErrDuplicateName)

	err = room.Join(NewPlayer("b", ""), "")
	assert.ErrorIs(t, err, ErrEmptyName)

	p := NewPlayer("b", "  Bob  ")
	require.NoError(t, room.Join(p, ""))
	assert.Equal(t, "Bob", p.Name)
}

func TestRoom_Password(t *testing.T) {
	room := newTestRoom(t, 4, "hunter2")
	assert.True(t, room.Snapshot().HasPassword)

	err := room.Join(NewPlayer("b", "Bob"), "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.ErrorIs(t, err, ErrAuth)

	assert.NoError(t, room.Join(NewPlayer("b", "Bob"), "hunter2"))
}

func TestRoom_AddAutomated(t *testing.T) {
	room := newTestRoom(t, 4, "secret")

	_, err := room.AddAutomated("nobody", "", DifficultyEasy)
	assert.ErrorIs(t, err, ErrNotHost)

	bot, err := room.AddAutomated("host", "", DifficultyEasy)
	require.NoError(t, err, "host adds bots without the room password")
	assert.Equal(t, "Bot 1", bot.Name)
	assert.True(t, bot.Automated)
	assert.Equal(t, DifficultyEasy, bot.Difficulty)

	bot2, err := room.AddAutomated("host", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Bot 2", bot2.Name)
	assert.Equal(t, DifficultyMedium, bot2.Difficulty)

	_, err = room.AddAutomated("host", "bot 1", DifficultyHard)
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = room.AddAutomated("host", "Robo", DifficultyHard)
	require.NoError(t, err)
	assert.Equal(t, StatusFull, room.Status())

	_, err = room.AddAutomated("host", "", DifficultyHard)
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestRoom_Leave(t *testing.T) {
	t.Run("host leaving promotes earliest joined", func(t *testing.T) {
		room := newTestRoom(t, 3, "")
		require.NoError(t, room.Join(NewPlayer("b", "Bob"), ""))
		require.NoError(t, room.Join(NewPlayer("c", "Carol"), ""))
		require.Equal(t, StatusFull, room.Status())

		res, err := room.Leave("host")
		require.NoError(t, err)
		assert.False(t, res.Empty)
		assert.Equal(t, "b", res.NewHostID)
		assert.Equal(t, "b", room.HostID())
		assert.Equal(t, StatusWaiting, room.Status())
	})

	t.Run("non member", func(t *testing.T) {
		room := newTestRoom(t, 3, "")
		_, err := room.Leave("zzz")
		assert.ErrorIs(t, err, ErrPlayerNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("last player closes room", func(t *testing.T) {
		room := newTestRoom(t, 3, "")
		res, err := room.Leave("host")
		require.NoError(t, err)
		assert.True(t, res.Empty)
		assert.True(t, room.Closed())

		err = room.Join(NewPlayer("b", "Bob"), "")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("reports the active game", func(t *testing.T) {
		room := newTestRoom(t, 3, "")
		require.NoError(t, room.Join(NewPlayer("b", "Bob"), ""))
		_, err := room.StartMatch("host", startFunc)
		require.NoError(t, err)

		res, err := room.Leave("b")
		require.NoError(t, err)
		assert.Equal(t, "game-1", res.ActiveGameID)
		assert.Equal(t, StatusPlaying, room.Status())
	})
}

func TestRoom_StartMatch(t *testing.T) {
	room := newTestRoom(t, 3, "")

	_, err := room.StartMatch("host", startFunc)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	require.NoError(t, room.Join(NewPlayer("b", "Bob"), ""))

	_, err = room.StartMatch("stranger", startFunc)
	assert.ErrorIs(t, err, ErrNotMember)

	var seated []Player
	m, err := room.StartMatch("b", func(players []Player) (*Match, error) {
		seated = players
		return startFunc(players)
	})
	require.NoError(t, err)
	assert.Equal(t, "game-1", m.ID())
	assert.Equal(t, []string{"host", "b"}, []string{seated[0].ID, seated[1].ID})
	assert.Equal(t, StatusPlaying, room.Status())
	assert.Equal(t, "game-1", room.ActiveGameID())

	_, err = room.StartMatch("host", startFunc)
	assert.ErrorIs(t, err, ErrGameAlreadyStarted)

	err = room.Join(NewPlayer("c", "Carol"), "")
	assert.ErrorIs(t, err, ErrGameAlreadyStarted)
}

func TestRoom_StartMatchFactoryError(t *testing.T) {
	room := newTestRoom(t, 3, "")
	require.NoError(t, room.Join(NewPlayer("b", "Bob"), ""))

	_, err := room.StartMatch("host", func([]Player) (*Match, error) {
		return nil, fmt.Errorf("boom")
	})
	require.Error(t, err)
	assert.Equal(t, StatusWaiting, room.Status())
	assert.Empty(t, room.ActiveGameID())
}

func TestRoom_EndMatch(t *testing.T) {
	tests := []struct {
		name       string
		maxPlayers int
		want       RoomStatus
	}{
		{"at capacity returns to full", 2, StatusFull},
		{"below capacity returns to waiting", 4, StatusWaiting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := newTestRoom(t, tt.maxPlayers, "")
			require.NoError(t, room.Join(NewPlayer("b", "Bob"), ""))
			_, err := room.StartMatch("host", startFunc)
			require.NoError(t, err)

			assert.False(t, room.EndMatch("other-game"))
			assert.True(t, room.EndMatch("game-1"))
			assert.False(t, room.EndMatch("game-1"), "second end is ignored")

			assert.Equal(t, tt.want, room.Status())
			assert.Empty(t, room.ActiveGameID())
			assert.Equal(t, "game-1", room.LastGameID())
		})
	}
}

func TestRoom_CloseIfIdle(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	room, err := NewRoom("ROOM01", NewPlayer("host", "Host"), 4, "", WithRoomClock(func() time.Time { return now }))
	require.NoError(t, err)

	assert.False(t, room.CloseIfIdle(now.Add(time.Hour), 2*time.Hour))
	assert.False(t, room.Closed())

	assert.True(t, room.CloseIfIdle(now.Add(3*time.Hour), 2*time.Hour))
	assert.True(t, room.Closed())

	_, err = room.StartMatch("host", startFunc)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoom_Touch(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	room, err := NewRoom("ROOM01", NewPlayer("host", "Host"), 4, "", WithRoomClock(func() time.Time { return now }))
	require.NoError(t, err)

	now = now.Add(90 * time.Minute)
	room.Touch()

	assert.False(t, room.CloseIfIdle(now.Add(time.Hour), 2*time.Hour))
	assert.Equal(t, now, room.Snapshot().LastActivity)
}

func TestRandomRoomName(t *testing.T) {
	names := make(map[string]bool)
	for i := 0; i < 50; i++ {
		names[RandomRoomName()] = true
	}
	assert.Greater(t, len(names), 10)
}
