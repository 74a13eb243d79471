package game

import (
	"encoding/json"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"time"
)

// Direction is the sign applied when the turn advances.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

// Phase represents the current state of a match
type Phase string

const (
	PhaseRoundActive Phase = "round_active"
	PhaseGameOver    Phase = "game_over"
)

// Range is an inclusive interval of callable numbers.
type Range struct {
	Low  int
	High int
}

// Contains reports whether n lies inside the range.
func (r Range) Contains(n int) bool {
	return n >= r.Low && n <= r.High
}

// Width is the number of values in the range.
func (r Range) Width() int {
	return r.High - r.Low + 1
}

// MarshalJSON encodes the range as a [low, high] pair.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Low, r.High})
}

// RoundRange returns the starting range for a round: 1-30, then 1-20, then 1-15.
func RoundRange(round int) Range {
	switch {
	case round <= 1:
		return Range{Low: 1, High: 30}
	case round == 2:
		return Range{Low: 1, High: 20}
	default:
		return Range{Low: 1, High: 15}
	}
}

// SecretSource picks the hidden number for a fresh round.
type SecretSource func(r Range) int

func randomSecret(r Range) int {
	return r.Low + rand.IntN(r.Width())
}

// MatchOption configures a Match at construction.
type MatchOption func(*Match)

// WithSecretSource replaces the uniform secret draw.
func WithSecretSource(src SecretSource) MatchOption {
	return func(m *Match) {
		if src != nil {
			m.secretSource = src
		}
	}
}

// WithClock replaces time.Now for start/end timestamps.
func WithClock(now func() time.Time) MatchOption {
	return func(m *Match) {
		if now != nil {
			m.now = now
		}
	}
}

// Seat is a player's in-match state.
type Seat struct {
	Player
	Alive            bool
	PassAvailable    bool
	ReverseAvailable bool
	EliminatedRound  int
}

// Progress is the state after an operation, shared by every result type.
type Progress struct {
	Round           int           `json:"current_round"`
	Range           Range         `json:"number_range"`
	Called          []int         `json:"called_numbers"`
	Direction       Direction     `json:"direction"`
	CurrentPlayerID string        `json:"current_player,omitempty"`
	GameOver        bool          `json:"game_over"`
	WinnerID        string        `json:"winner,omitempty"`
	Summary         *MatchSummary `json:"summary,omitempty"`
}

// CallResult is returned by CallNumbers.
type CallResult struct {
	Action       ActionRecord `json:"action"`
	Hit          bool         `json:"hit_secret"`
	EliminatedID string       `json:"eliminated_player,omitempty"`
	NewRound     bool         `json:"new_round"`
	Progress
}

// PassResult is returned by UsePass.
type PassResult struct {
	Action ActionRecord `json:"action"`
	Progress
}

// ReverseResult is returned by UseReverse.
type ReverseResult struct {
	Action ActionRecord `json:"action"`
	Progress
}

// ForfeitResult is returned by Forfeit. Applied is false when the seat was already out.
type ForfeitResult struct {
	Action  ActionRecord `json:"action"`
	Applied bool         `json:"applied"`
	Progress
}

// Match is the turn and elimination state machine for one game.
type Match struct {
	id     string
	roomID string

	mu          sync.Mutex
	seats       []*Seat
	current     int
	direction   Direction
	round       int
	numberRange Range
	secret      int
	called      map[int]bool
	phase       Phase
	winnerID    string
	abandoned   bool
	eliminated  []string
	startedAt   time.Time
	endedAt     time.Time

	secretSource SecretSource
	now          func() time.Time
}

// NewMatch seats players in the given order and starts round 1.
func NewMatch(id, roomID string, players []Player, opts ...MatchOption) (*Match, error) {
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	m := &Match{
		id:           id,
		roomID:       roomID,
		direction:    Forward,
		round:        1,
		phase:        PhaseRoundActive,
		secretSource: randomSecret,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, p := range players {
		m.seats = append(m.seats, &Seat{
			Player:           p,
			Alive:            true,
			PassAvailable:    true,
			ReverseAvailable: true,
		})
	}

	m.startedAt = m.now()
	m.startRound()
	return m, nil
}

// ID returns the game id
func (m *Match) ID() string { return m.id }

// RoomID returns the id of the room that owns this match
func (m *Match) RoomID() string { return m.roomID }

// CallNumbers applies a call of 1-3 consecutive numbers by the current player.
func (m *Match) CallNumbers(playerID string, numbers []int) (CallResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.callNumbers(playerID, numbers)
}

// UsePass spends the current player's pass token.
func (m *Match) UsePass(playerID string) (PassResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.usePass(playerID)
}

// UseReverse spends the current player's reverse token and flips the direction.
func (m *Match) UseReverse(playerID string) (ReverseResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.useReverse(playerID)
}

// Forfeit eliminates a seated player regardless of whose turn it is.
func (m *Match) Forfeit(playerID string) (ForfeitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seat := m.seat(playerID)
	if seat == nil {
		return ForfeitResult{}, ErrNotInMatch
	}
	if m.phase == PhaseGameOver || !seat.Alive {
		return ForfeitResult{Progress: m.progress()}, nil
	}

	round := m.round
	wasCurrent := m.seats[m.current] == seat
	m.eliminate(seat, round)
	res := ForfeitResult{
		Action:  m.record(seat, ActionForfeit, nil, false, round),
		Applied: true,
	}

	if m.aliveCount() == 1 {
		m.finish()
	} else if wasCurrent {
		m.advance()
	}

	res.Progress = m.progress()
	return res, nil
}

func (m *Match) callNumbers(playerID string, numbers []int) (CallResult, error) {
	seat, err := m.checkTurn(playerID)
	if err != nil {
		return CallResult{}, err
	}

	sorted, err := m.validateCall(numbers)
	if err != nil {
		return CallResult{}, err
	}

	round := m.round
	for _, n := range sorted {
		m.called[n] = true
	}
	hit := slices.Contains(sorted, m.secret)

	res := CallResult{
		Action: m.record(seat, ActionCall, sorted, hit, round),
		Hit:    hit,
	}

	if hit {
		m.eliminate(seat, round)
		res.EliminatedID = seat.ID
		if m.aliveCount() == 1 {
			m.finish()
		} else {
			m.round++
			m.direction = Forward
			m.advance()
			m.startRound()
			res.NewRound = true
		}
	} else {
		m.narrow(sorted)
		m.advance()
	}

	res.Progress = m.progress()
	return res, nil
}

func (m *Match) usePass(playerID string) (PassResult, error) {
	seat, err := m.checkTurn(playerID)
	if err != nil {
		return PassResult{}, err
	}
	if !seat.PassAvailable {
		return PassResult{}, ErrPassUsed
	}

	seat.PassAvailable = false
	res := PassResult{Action: m.record(seat, ActionPass, nil, false, m.round)}
	m.advance()

	res.Progress = m.progress()
	return res, nil
}

func (m *Match) useReverse(playerID string) (ReverseResult, error) {
	seat, err := m.checkTurn(playerID)
	if err != nil {
		return ReverseResult{}, err
	}
	if !seat.ReverseAvailable {
		return ReverseResult{}, ErrReverseUsed
	}

	seat.ReverseAvailable = false
	m.direction *= -1
	res := ReverseResult{Action: m.record(seat, ActionReverse, nil, false, m.round)}
	m.advance()

	res.Progress = m.progress()
	return res, nil
}

func (m *Match) checkTurn(playerID string) (*Seat, error) {
	if m.phase == PhaseGameOver {
		return nil, ErrMatchOver
	}
	seat := m.seats[m.current]
	if seat.ID != playerID {
		if m.seat(playerID) == nil {
			return nil, ErrNotInMatch
		}
		return nil, newError(KindTurn, ErrNotYourTurn.Rule, "it is %s's turn", seat.Name)
	}
	return seat, nil
}

// validateCall returns the numbers sorted ascending, or the first rule they break.
func (m *Match) validateCall(numbers []int) ([]int, error) {
	if len(numbers) < 1 || len(numbers) > 3 {
		return nil, newError(KindValidation, ErrCallCount.Rule, "must call between 1 and 3 numbers, got %d", len(numbers))
	}

	sorted := slices.Clone(numbers)
	slices.Sort(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] != 1 {
			return nil, newError(KindValidation, ErrNotConsecutive.Rule, "numbers %v are not consecutive", sorted)
		}
	}

	for _, n := range sorted {
		if !m.numberRange.Contains(n) {
			return nil, newError(KindValidation, ErrOutOfRange.Rule, "number %d is outside %d-%d", n, m.numberRange.Low, m.numberRange.High)
		}
	}

	for _, n := range sorted {
		if m.called[n] {
			return nil, newError(KindValidation, ErrAlreadyCalled.Rule, "number %d has already been called", n)
		}
	}

	return sorted, nil
}

// narrow shrinks the range past every missed value. The secret stays inside.
func (m *Match) narrow(numbers []int) {
	for _, n := range numbers {
		if n < m.secret {
			m.numberRange.Low = max(m.numberRange.Low, n+1)
		} else if n > m.secret {
			m.numberRange.High = min(m.numberRange.High, n-1)
		}
	}
}

// advance moves the turn to the next living seat in the current direction.
func (m *Match) advance() {
	n := len(m.seats)
	for i := 0; i < n; i++ {
		m.current = ((m.current+int(m.direction))%n + n) % n
		if m.seats[m.current].Alive {
			return
		}
	}
}

func (m *Match) startRound() {
	m.numberRange = RoundRange(m.round)
	m.secret = m.secretSource(m.numberRange)
	if !m.numberRange.Contains(m.secret) {
		m.secret = min(max(m.secret, m.numberRange.Low), m.numberRange.High)
	}
	m.called = make(map[int]bool)

	for _, s := range m.seats {
		if s.Alive {
			s.PassAvailable = true
			s.ReverseAvailable = true
		}
	}
}

func (m *Match) eliminate(seat *Seat, round int) {
	seat.Alive = false
	seat.EliminatedRound = round
	m.eliminated = append(m.eliminated, seat.ID)
}

func (m *Match) finish() {
	m.phase = PhaseGameOver
	m.endedAt = m.now()
	for _, s := range m.seats {
		if s.Alive {
			m.winnerID = s.ID
			return
		}
	}
}

func (m *Match) aliveCount() int {
	count := 0
	for _, s := range m.seats {
		if s.Alive {
			count++
		}
	}
	return count
}

func (m *Match) seat(playerID string) *Seat {
	for _, s := range m.seats {
		if s.ID == playerID {
			return s
		}
	}
	return nil
}

func (m *Match) record(seat *Seat, action ActionType, numbers []int, hit bool, round int) ActionRecord {
	return ActionRecord{
		GameID:     m.id,
		Round:      round,
		PlayerID:   seat.ID,
		PlayerName: seat.Name,
		Automated:  seat.Automated,
		Type:       action,
		Numbers:    numbers,
		HitSecret:  hit,
		At:         m.now(),
	}
}

func (m *Match) calledSorted() []int {
	called := make([]int, 0, len(m.called))
	for n := range m.called {
		called = append(called, n)
	}
	slices.Sort(called)
	return called
}

func (m *Match) progress() Progress {
	p := Progress{
		Round:     m.round,
		Range:     m.numberRange,
		Called:    m.calledSorted(),
		Direction: m.direction,
		GameOver:  m.phase == PhaseGameOver,
		WinnerID:  m.winnerID,
	}
	if p.GameOver {
		p.Summary = m.summary()
	} else {
		p.CurrentPlayerID = m.seats[m.current].ID
	}
	return p
}

func (m *Match) summary() *MatchSummary {
	if m.phase != PhaseGameOver {
		return nil
	}

	n := len(m.seats)
	eliminatedAt := make(map[string]int, len(m.eliminated))
	for i, id := range m.eliminated {
		eliminatedAt[id] = i
	}

	s := &MatchSummary{
		GameID:          m.id,
		RoomID:          m.roomID,
		WinnerID:        m.winnerID,
		Rounds:          m.round,
		StartedAt:       m.startedAt,
		EndedAt:         m.endedAt,
		DurationSeconds: int(m.endedAt.Sub(m.startedAt).Seconds()),
		Abandoned:       m.abandoned,
	}
	if m.abandoned {
		return s
	}
	for i, seat := range m.seats {
		rank := Rank{
			PlayerID:        seat.ID,
			Name:            seat.Name,
			IsAutomated:     seat.Automated,
			Order:           i,
			EliminatedRound: seat.EliminatedRound,
			Rank:            1,
		}
		if idx, ok := eliminatedAt[seat.ID]; ok {
			rank.Rank = n - idx
		} else {
			s.WinnerName = seat.Name
		}
		s.Ranks = append(s.Ranks, rank)
	}
	sort.Slice(s.Ranks, func(i, j int) bool { return s.Ranks[i].Rank < s.Ranks[j].Rank })
	return s
}

// SeatSnapshot is the public view of a seat.
type SeatSnapshot struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	IsAutomated      bool   `json:"is_automated"`
	IsAlive          bool   `json:"is_alive"`
	PassAvailable    bool   `json:"pass_available"`
	ReverseAvailable bool   `json:"reverse_available"`
	EliminatedRound  int    `json:"eliminated_round,omitempty"`
}

// MatchSnapshot is the public view of a match. Secret is only set once the match is over.
type MatchSnapshot struct {
	GameID    string         `json:"game_id"`
	RoomID    string         `json:"room_id"`
	Phase     Phase          `json:"phase"`
	Players   []SeatSnapshot `json:"players"`
	StartedAt time.Time      `json:"started_at"`
	Secret    *int           `json:"secret,omitempty"`
	Progress
}

// Snapshot returns a consistent copy of the match state.
func (m *Match) Snapshot() MatchSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MatchSnapshot{
		GameID:    m.id,
		RoomID:    m.roomID,
		Phase:     m.phase,
		Players:   m.seatSnapshots(),
		StartedAt: m.startedAt,
		Progress:  m.progress(),
	}
	if m.phase == PhaseGameOver {
		secret := m.secret
		snap.Secret = &secret
	}
	return snap
}

// Started returns the MatchStarted event for this match.
func (m *Match) Started() MatchStarted {
	m.mu.Lock()
	defer m.mu.Unlock()

	return MatchStarted{
		GameID:    m.id,
		RoomID:    m.roomID,
		Players:   m.seatSnapshots(),
		StartedAt: m.startedAt,
	}
}

// Summary returns the final ranking, or nil while the match is still running.
func (m *Match) Summary() *MatchSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.summary()
}

// Abandon ends a match that lost its room before producing a winner. The
// summary has no ranks. ok is false if the match was already over.
func (m *Match) Abandon() (sum *MatchSummary, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseGameOver {
		return nil, false
	}
	m.phase = PhaseGameOver
	m.abandoned = true
	m.endedAt = m.now()
	return m.summary(), true
}

// Over reports whether the match has a winner.
func (m *Match) Over() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.phase == PhaseGameOver
}

// CurrentPlayer returns the seat whose turn it is. ok is false once the match is over.
func (m *Match) CurrentPlayer() (Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseGameOver {
		return Player{}, false
	}
	return m.seats[m.current].Player, true
}

func (m *Match) seatSnapshots() []SeatSnapshot {
	out := make([]SeatSnapshot, 0, len(m.seats))
	for _, s := range m.seats {
		out = append(out, SeatSnapshot{
			ID:               s.ID,
			Name:             s.Name,
			IsAutomated:      s.Automated,
			IsAlive:          s.Alive,
			PassAvailable:    s.PassAvailable,
			ReverseAvailable: s.ReverseAvailable,
			EliminatedRound:  s.EliminatedRound,
		})
	}
	return out
}

// Outcome is the result of an automated turn. Exactly one of Call, Pass or Reverse is set.
type Outcome struct {
	Type    ActionType
	Call    *CallResult
	Pass    *PassResult
	Reverse *ReverseResult
}

// Record returns the applied action.
func (o Outcome) Record() ActionRecord {
	switch {
	case o.Call != nil:
		return o.Call.Action
	case o.Pass != nil:
		return o.Pass.Action
	case o.Reverse != nil:
		return o.Reverse.Action
	}
	return ActionRecord{}
}

// State returns the progress after the action.
func (o Outcome) State() Progress {
	switch {
	case o.Call != nil:
		return o.Call.Progress
	case o.Pass != nil:
		return o.Pass.Progress
	case o.Reverse != nil:
		return o.Reverse.Progress
	}
	return Progress{}
}

// PlayAutomated asks provider for the current automated seat's move and applies it
// under the same rules as a human move.
func (m *Match) PlayAutomated(provider DecisionProvider) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseGameOver {
		return Outcome{}, ErrMatchOver
	}
	seat := m.seats[m.current]
	if !seat.Automated {
		return Outcome{}, ErrNotAutomated
	}

	action := provider.Decide(DecisionView{
		Range:            m.numberRange,
		Called:           m.calledSorted(),
		PassAvailable:    seat.PassAvailable,
		ReverseAvailable: seat.ReverseAvailable,
		Difficulty:       seat.Difficulty,
		AliveCount:       m.aliveCount(),
	})

	switch action.Type {
	case ActionCall:
		res, err := m.callNumbers(seat.ID, action.Numbers)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Type: ActionCall, Call: &res}, nil
	case ActionPass:
		res, err := m.usePass(seat.ID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Type: ActionPass, Pass: &res}, nil
	case ActionReverse:
		res, err := m.useReverse(seat.ID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Type: ActionReverse, Reverse: &res}, nil
	default:
		return Outcome{}, newError(KindValidation, "action", "unknown action %q", action.Type)
	}
}
