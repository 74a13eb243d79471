package store

import (
	"crypto/rand"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ultimatecode/internal/game"
)

const (
	defaultMaxPlayers = 5
	defaultCodeLength = 6
)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithDefaultMaxPlayers sets the capacity used when CreateRoom is given 0.
func WithDefaultMaxPlayers(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.defaultMaxPlayers = n
		}
	}
}

// WithRoomCodeLength sets the length of generated room codes.
func WithRoomCodeLength(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.codeLength = n
		}
	}
}

// WithBcryptCost sets the cost for room password hashes.
func WithBcryptCost(cost int) Option {
	return func(s *MemoryStore) {
		s.roomOpts = append(s.roomOpts, game.WithBcryptCost(cost))
	}
}

// WithClock replaces time.Now for rooms, matches and sweeps.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		s.now = now
		s.roomOpts = append(s.roomOpts, game.WithRoomClock(now))
		s.matchOpts = append(s.matchOpts, game.WithClock(now))
	}
}

// WithMatchOptions appends options applied to every new match.
func WithMatchOptions(opts ...game.MatchOption) Option {
	return func(s *MemoryStore) {
		s.matchOpts = append(s.matchOpts, opts...)
	}
}

// MemoryStore holds all rooms and matches in memory. Its lock guards only the
// maps; it never takes a room lock while holding its own.
type MemoryStore struct {
	mu        sync.RWMutex
	rooms     map[string]*game.Room
	games     map[string]*game.Match
	roomGames map[string]string

	defaultMaxPlayers int
	codeLength        int
	now               func() time.Time
	roomOpts          []game.RoomOption
	matchOpts         []game.MatchOption
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		rooms:             make(map[string]*game.Room),
		games:             make(map[string]*game.Match),
		roomGames:         make(map[string]string),
		defaultMaxPlayers: defaultMaxPlayers,
		codeLength:        defaultCodeLength,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoom creates a room with a new host player. maxPlayers of 0 selects
// the configured default.
func (s *MemoryStore) CreateRoom(hostName string, maxPlayers int, password string, opts ...game.RoomOption) (*game.Room, *game.Player, error) {
	if maxPlayers == 0 {
		maxPlayers = s.defaultMaxPlayers
	}

	host := game.NewPlayer(game.GeneratePlayerID(), hostName)
	room, err := game.NewRoom(s.generateRoomCode(), host, maxPlayers, password, slices.Concat(s.roomOpts, opts)...)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Try up to 10 times
	for i := 0; i < 10; i++ {
		if _, exists := s.rooms[room.ID]; !exists {
			s.rooms[room.ID] = room
			return room, host, nil
		}
		room.ID = s.generateRoomCode()
	}
	return nil, nil, fmt.Errorf("allocate room code: exhausted retries")
}

// GetRoom retrieves a room by code
func (s *MemoryStore) GetRoom(roomID string) (*game.Room, error) {
	s.mu.RLock()
	room, exists := s.rooms[roomID]
	s.mu.RUnlock()

	if !exists || room.Closed() {
		return nil, game.ErrRoomNotFound
	}
	return room, nil
}

// ListRooms returns snapshots of every open room, oldest first.
func (s *MemoryStore) ListRooms() []game.RoomSnapshot {
	rooms := s.roomList()

	snaps := make([]game.RoomSnapshot, 0, len(rooms))
	for _, r := range rooms {
		if r.Closed() {
			continue
		}
		snaps = append(snaps, r.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].ID < snaps[j].ID
		}
		return snaps[i].CreatedAt.Before(snaps[j].CreatedAt)
	})
	return snaps
}

// JoinRoom adds a human player to a room.
func (s *MemoryStore) JoinRoom(roomID, name, password string) (*game.Player, error) {
	room, err := s.GetRoom(roomID)
	if err != nil {
		return nil, err
	}

	player := game.NewPlayer(game.GeneratePlayerID(), name)
	if err := room.Join(player, password); err != nil {
		return nil, err
	}
	return player, nil
}

// AddAutomatedPlayer adds an automated player on behalf of the host.
func (s *MemoryStore) AddAutomatedPlayer(roomID, requesterID, name string, difficulty game.Difficulty) (*game.Player, error) {
	room, err := s.GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	return room.AddAutomated(requesterID, name, difficulty)
}

// LeaveRoom removes a player. A room left empty is deleted with its matches.
func (s *MemoryStore) LeaveRoom(roomID, playerID string) (game.LeaveResult, error) {
	room, err := s.GetRoom(roomID)
	if err != nil {
		return game.LeaveResult{}, err
	}

	res, err := room.Leave(playerID)
	if err != nil {
		return game.LeaveResult{}, err
	}
	if res.Empty {
		if res.ActiveGameID != "" {
			res.DroppedMatch, _ = s.GetGame(res.ActiveGameID)
		}
		s.remove(roomID)
	}
	return res, nil
}

// StartMatch starts a match in the room. The match is registered while the
// room is still locked so its id always resolves once advertised.
func (s *MemoryStore) StartMatch(roomID, requesterID string) (*game.Match, error) {
	room, err := s.GetRoom(roomID)
	if err != nil {
		return nil, err
	}

	return room.StartMatch(requesterID, func(players []game.Player) (*game.Match, error) {
		m, err := game.NewMatch(uuid.NewString(), roomID, players, s.matchOpts...)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if prev, ok := s.roomGames[roomID]; ok {
			delete(s.games, prev)
		}
		s.games[m.ID()] = m
		s.roomGames[roomID] = m.ID()
		return m, nil
	})
}

// GetGame retrieves a match by id
func (s *MemoryStore) GetGame(gameID string) (*game.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.games[gameID]
	if !exists {
		return nil, game.ErrGameNotFound
	}
	return m, nil
}

// EndMatch returns the room to the lobby once its match is over.
func (s *MemoryStore) EndMatch(roomID, gameID string) bool {
	room, err := s.GetRoom(roomID)
	if err != nil {
		return false
	}
	return room.EndMatch(gameID)
}

// Touch records activity on a room.
func (s *MemoryStore) Touch(roomID string) {
	if room, err := s.GetRoom(roomID); err == nil {
		room.Touch()
	}
}

// DeleteRoom closes and removes a room and its matches.
func (s *MemoryStore) DeleteRoom(roomID string) error {
	room, err := s.GetRoom(roomID)
	if err != nil {
		return err
	}
	room.Close()
	s.remove(roomID)
	return nil
}

// Sweep closes and removes rooms that are empty or idle for longer than idle.
// It returns the removed room ids.
func (s *MemoryStore) Sweep(idle time.Duration) []string {
	now := s.now()

	var deleted []string
	for _, r := range s.roomList() {
		if r.CloseIfIdle(now, idle) {
			deleted = append(deleted, r.ID)
		}
	}

	for _, id := range deleted {
		s.remove(id)
	}
	sort.Strings(deleted)
	return deleted
}

// Len returns the number of registered rooms
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rooms)
}

func (s *MemoryStore) roomList() []*game.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*game.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

func (s *MemoryStore) remove(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, roomID)
	if gameID, ok := s.roomGames[roomID]; ok {
		delete(s.games, gameID)
		delete(s.roomGames, roomID)
	}
}

// generateRoomCode generates an alphanumeric room code
func (s *MemoryStore) generateRoomCode() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, s.codeLength)
	rand.Read(b)

	for i := range b {
		b[i] = chars[b[i]%byte(len(chars))]
	}

	return string(b)
}
