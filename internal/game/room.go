package game

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RoomStatus represents the current state of a room
type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusFull    RoomStatus = "full"
	StatusPlaying RoomStatus = "playing"
)

const (
	MinPlayers = 2
	MaxPlayers = 10
)

// RoomOption configures a Room at construction.
type RoomOption func(*Room)

// WithBcryptCost sets the cost used to hash the room password.
func WithBcryptCost(cost int) RoomOption {
	return func(r *Room) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			r.bcryptCost = cost
		}
	}
}

// WithRoomClock replaces time.Now for activity tracking.
func WithRoomClock(now func() time.Time) RoomOption {
	return func(r *Room) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRoomName overrides the generated display name.
func WithRoomName(name string) RoomOption {
	return func(r *Room) {
		if name = strings.TrimSpace(name); name != "" {
			r.Name = name
		}
	}
}

// Room represents a game room
type Room struct {
	ID         string
	Name       string
	MaxPlayers int
	CreatedAt  time.Time

	passwordHash []byte
	bcryptCost   int

	mu           sync.Mutex
	players      []*Player
	status       RoomStatus
	hostID       string
	activeGameID string
	lastGameID   string
	lastActivity time.Time
	closed       bool
	botsAdded    int

	now func() time.Time
}

// NewRoom creates a room with host as its first member.
func NewRoom(id string, host *Player, maxPlayers int, password string, opts ...RoomOption) (*Room, error) {
	if maxPlayers < MinPlayers || maxPlayers > MaxPlayers {
		return nil, newError(KindValidation, ErrMaxPlayers.Rule, "max players must be between %d and %d, got %d", MinPlayers, MaxPlayers, maxPlayers)
	}
	if err := normalizeName(host); err != nil {
		return nil, err
	}

	r := &Room{
		ID:         id,
		Name:       RandomRoomName(),
		MaxPlayers: maxPlayers,
		bcryptCost: bcrypt.DefaultCost,
		status:     StatusWaiting,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), r.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash room password: %w", err)
		}
		r.passwordHash = hash
	}

	r.CreatedAt = r.now()
	r.lastActivity = r.CreatedAt
	r.players = []*Player{host}
	r.hostID = host.ID
	r.updateOccupancy()
	return r, nil
}

// HasPassword reports whether joining requires a password.
func (r *Room) HasPassword() bool {
	return len(r.passwordHash) > 0
}

// CheckPassword verifies password against the stored hash. The hash never
// changes after construction so no lock is taken.
func (r *Room) CheckPassword(password string) error {
	if len(r.passwordHash) == 0 {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(r.passwordHash, []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// Join adds a human player after checking the room password.
func (r *Room) Join(player *Player, password string) error {
	if err := r.CheckPassword(password); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.admit(player)
}

// AddAutomated adds an automated player on behalf of the host. An empty name
// becomes "Bot N".
func (r *Room) AddAutomated(requesterID, name string, difficulty Difficulty) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRoomNotFound
	}
	if requesterID != r.hostID {
		return nil, ErrNotHost
	}

	name = strings.TrimSpace(name)
	if name == "" {
		for {
			r.botsAdded++
			name = fmt.Sprintf("Bot %d", r.botsAdded)
			if !r.nameTaken(name) {
				break
			}
		}
	}

	player := NewAutomatedPlayer(GeneratePlayerID(), name, difficulty)
	if err := r.admit(player); err != nil {
		return nil, err
	}
	return player, nil
}

func (r *Room) admit(player *Player) error {
	if r.closed {
		return ErrRoomNotFound
	}
	if err := normalizeName(player); err != nil {
		return err
	}
	if r.status == StatusPlaying {
		return ErrGameAlreadyStarted
	}
	if len(r.players) >= r.MaxPlayers {
		return ErrRoomFull
	}
	if r.nameTaken(player.Name) {
		return newError(KindValidation, ErrDuplicateName.Rule, "name %q is already taken in this room", player.Name)
	}

	r.players = append(r.players, player)
	r.updateOccupancy()
	r.lastActivity = r.now()
	return nil
}

func normalizeName(p *Player) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrEmptyName
	}
	return nil
}

func (r *Room) nameTaken(name string) bool {
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// LeaveResult reports the side effects of a departure.
type LeaveResult struct {
	Player       Player
	Empty        bool
	NewHostID    string
	ActiveGameID string

	// DroppedMatch is filled in by the registry when an emptied room
	// takes its active match with it.
	DroppedMatch *Match
}

// Leave removes a member. An emptied room is marked closed.
func (r *Room) Leave(playerID string) (LeaveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return LeaveResult{}, ErrRoomNotFound
	}

	idx := r.indexOf(playerID)
	if idx < 0 {
		return LeaveResult{}, ErrPlayerNotFound
	}

	res := LeaveResult{Player: *r.players[idx], ActiveGameID: r.activeGameID}
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	r.lastActivity = r.now()

	if len(r.players) == 0 {
		r.closed = true
		res.Empty = true
		return res, nil
	}

	if r.hostID == playerID {
		r.hostID = r.players[0].ID
		res.NewHostID = r.hostID
	}
	r.updateOccupancy()
	return res, nil
}

// StartMatch moves the room to Playing. newMatch runs under the room lock so
// the caller can register the match before the game id becomes visible.
func (r *Room) StartMatch(requesterID string, newMatch func(players []Player) (*Match, error)) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRoomNotFound
	}
	if r.indexOf(requesterID) < 0 {
		return nil, ErrNotMember
	}
	if r.status == StatusPlaying {
		return nil, ErrGameAlreadyStarted
	}
	if len(r.players) < MinPlayers {
		return nil, ErrNotEnoughPlayers
	}

	players := make([]Player, len(r.players))
	for i, p := range r.players {
		players[i] = *p
	}

	m, err := newMatch(players)
	if err != nil {
		return nil, err
	}

	r.activeGameID = m.ID()
	r.status = StatusPlaying
	r.lastActivity = r.now()
	return m, nil
}

// EndMatch clears the active game when gameID is still the active one.
func (r *Room) EndMatch(gameID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeGameID == "" || r.activeGameID != gameID {
		return false
	}

	r.lastGameID = gameID
	r.activeGameID = ""
	r.status = StatusWaiting
	r.updateOccupancy()
	r.lastActivity = r.now()
	return true
}

// Touch records activity.
func (r *Room) Touch() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActivity = r.now()
}

// CloseIfIdle marks the room closed when it is empty or idle for longer than
// idle. It reports whether the room is closed.
func (r *Room) CloseIfIdle(now time.Time, idle time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return true
	}
	if len(r.players) == 0 || now.Sub(r.lastActivity) > idle {
		r.closed = true
	}
	return r.closed
}

// Close retires the room. Later operations fail with ErrRoomNotFound.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
}

// Closed reports whether the room has been retired.
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// IsMember reports whether playerID is in the room
func (r *Room) IsMember(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.indexOf(playerID) >= 0
}

// GetPlayer returns a copy of a member
func (r *Room) GetPlayer(playerID string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(playerID)
	if idx < 0 {
		return Player{}, false
	}
	return *r.players[idx], true
}

// HostID returns the current host
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.hostID
}

// ActiveGameID returns the id of the running match, if any
func (r *Room) ActiveGameID() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.activeGameID
}

// LastGameID returns the id of the most recent match
func (r *Room) LastGameID() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastGameID
}

// Status returns the room status
func (r *Room) Status() RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

func (r *Room) indexOf(playerID string) int {
	for i, p := range r.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// updateOccupancy keeps Full in step with the member count outside of play.
func (r *Room) updateOccupancy() {
	if r.status == StatusPlaying {
		return
	}
	if len(r.players) >= r.MaxPlayers {
		r.status = StatusFull
	} else {
		r.status = StatusWaiting
	}
}

// RoomSnapshot is the public view of a room.
type RoomSnapshot struct {
	ID           string           `json:"room_id"`
	Name         string           `json:"name"`
	Players      []PlayerSnapshot `json:"players"`
	MaxPlayers   int              `json:"max_players"`
	Status       RoomStatus       `json:"status"`
	HostID       string           `json:"host_id"`
	ActiveGameID string           `json:"active_game_id,omitempty"`
	LastGameID   string           `json:"last_game_id,omitempty"`
	HasPassword  bool             `json:"has_password"`
	CreatedAt    time.Time        `json:"created_at"`
	LastActivity time.Time        `json:"last_activity"`
}

// Snapshot returns a consistent copy of the room state.
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]PlayerSnapshot, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p.Snapshot())
	}

	return RoomSnapshot{
		ID:           r.ID,
		Name:         r.Name,
		Players:      players,
		MaxPlayers:   r.MaxPlayers,
		Status:       r.status,
		HostID:       r.hostID,
		ActiveGameID: r.activeGameID,
		LastGameID:   r.lastGameID,
		HasPassword:  len(r.passwordHash) > 0,
		CreatedAt:    r.CreatedAt,
		LastActivity: r.lastActivity,
	}
}
