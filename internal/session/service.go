// Package session sequences room and match operations with their side
// effects: room bookkeeping, hub notifications, history records and
// automated turns.
package session

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"ultimatecode/internal/game"
	"ultimatecode/internal/hub"
)

// Registry is the room and match store.
type Registry interface {
	CreateRoom(hostName string, maxPlayers int, password string, opts ...game.RoomOption) (*game.Room, *game.Player, error)
	GetRoom(roomID string) (*game.Room, error)
	ListRooms() []game.RoomSnapshot
	JoinRoom(roomID, name, password string) (*game.Player, error)
	AddAutomatedPlayer(roomID, requesterID, name string, difficulty game.Difficulty) (*game.Player, error)
	LeaveRoom(roomID, playerID string) (game.LeaveResult, error)
	StartMatch(roomID, requesterID string) (*game.Match, error)
	GetGame(gameID string) (*game.Match, error)
	EndMatch(roomID, gameID string) bool
	Touch(roomID string)
}

// Publisher is the notification side of the hub.
type Publisher interface {
	PublishLobby(event hub.Event)
	PublishRoom(roomID string, event hub.Event)
	PublishRoomChange(roomID string, snapshot any)
	CloseRoom(roomID string)
}

// Actor identifies the authenticated caller.
type Actor struct {
	RoomID   string
	PlayerID string
}

// Options tune a Service.
type Options struct {
	// AutoPlayDelay is the pause before an automated seat moves. Zero
	// disables scheduling; automated turns then run only through PlayAutomated.
	AutoPlayDelay time.Duration
}

// Service is the orchestration layer used by the transport handlers.
type Service struct {
	store   Registry
	hub     Publisher
	sink    Sink
	decider game.DecisionProvider
	logger  *zap.Logger
	opts    Options

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// New creates a Service. A nil sink or decider selects NopSink and a
// randomly seeded Heuristic.
func New(store Registry, publisher Publisher, sink Sink, decider game.DecisionProvider, logger *zap.Logger, opts Options) *Service {
	if sink == nil {
		sink = NopSink{}
	}
	if decider == nil {
		decider = game.NewRandomHeuristic()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		hub:     publisher,
		sink:    sink,
		decider: decider,
		logger:  logger.Named("session"),
		opts:    opts,
		timers:  make(map[string]*time.Timer),
	}
}

// JoinResult is returned to a player entering a room.
type JoinResult struct {
	Room   game.RoomSnapshot
	Player game.Player
}

// CreateRoom creates a room hosted by hostName.
func (s *Service) CreateRoom(hostName string, maxPlayers int, password string, opts ...game.RoomOption) (JoinResult, error) {
	room, host, err := s.store.CreateRoom(hostName, maxPlayers, password, opts...)
	if err != nil {
		return JoinResult{}, err
	}

	snap := room.Snapshot()
	s.hub.PublishRoomChange(room.ID, snap)
	s.logger.Info("room created",
		zap.String("room_id", room.ID),
		zap.Int("max_players", room.MaxPlayers),
		zap.Bool("password", room.HasPassword()))
	return JoinResult{Room: snap, Player: *host}, nil
}

// JoinRoom adds a human player.
func (s *Service) JoinRoom(roomID, name, password string) (JoinResult, error) {
	player, err := s.store.JoinRoom(roomID, name, password)
	if err != nil {
		return JoinResult{}, err
	}

	snap, err := s.publishRoom(roomID)
	if err != nil {
		return JoinResult{}, err
	}
	s.logger.Info("player joined", zap.String("room_id", roomID), zap.String("player_id", player.ID))
	return JoinResult{Room: snap, Player: *player}, nil
}

// AddAutomatedPlayer adds an automated seat on behalf of the host.
func (s *Service) AddAutomatedPlayer(actor Actor, name string, difficulty game.Difficulty) (JoinResult, error) {
	player, err := s.store.AddAutomatedPlayer(actor.RoomID, actor.PlayerID, name, difficulty)
	if err != nil {
		return JoinResult{}, err
	}

	snap, err := s.publishRoom(actor.RoomID)
	if err != nil {
		return JoinResult{}, err
	}
	return JoinResult{Room: snap, Player: *player}, nil
}

// LeaveRoom removes the actor from its room, forfeiting any match in progress.
func (s *Service) LeaveRoom(actor Actor) error {
	res, err := s.store.LeaveRoom(actor.RoomID, actor.PlayerID)
	if err != nil {
		return err
	}

	s.logger.Info("player left",
		zap.String("room_id", actor.RoomID),
		zap.String("player_id", actor.PlayerID),
		zap.Bool("room_empty", res.Empty))

	if res.Empty {
		if res.ActiveGameID != "" {
			s.cancelAuto(res.ActiveGameID)
			s.abandon(res.DroppedMatch)
		}
		s.hub.CloseRoom(actor.RoomID)
		s.hub.PublishLobby(hub.Event{Type: hub.TypeRefresh, RoomID: actor.RoomID})
		return nil
	}

	if res.ActiveGameID != "" {
		if m, err := s.store.GetGame(res.ActiveGameID); err == nil {
			fr, err := m.Forfeit(actor.PlayerID)
			if err != nil && !errors.Is(err, game.ErrNotInMatch) {
				return err
			}
			if fr.Applied {
				s.afterAction(m, fr.Action, fr.Progress, fr)
				if fr.GameOver {
					return nil
				}
			}
		}
	}

	_, err = s.publishRoom(actor.RoomID)
	if errors.Is(err, game.ErrRoomNotFound) {
		return nil
	}
	return err
}

// StartMatch starts a match in the actor's room.
func (s *Service) StartMatch(actor Actor) (game.MatchSnapshot, error) {
	m, err := s.store.StartMatch(actor.RoomID, actor.PlayerID)
	if err != nil {
		return game.MatchSnapshot{}, err
	}

	snap := m.Snapshot()
	s.sink.MatchStarted(m.Started())
	s.hub.PublishRoom(actor.RoomID, hub.Event{Type: hub.TypeGameStarted, Payload: snap})
	if _, err := s.publishRoom(actor.RoomID); err != nil {
		s.logger.Warn("room vanished after start", zap.String("room_id", actor.RoomID), zap.Error(err))
	}

	s.logger.Info("match started",
		zap.String("room_id", actor.RoomID),
		zap.String("game_id", m.ID()),
		zap.Int("players", len(snap.Players)))

	s.scheduleAuto(m)
	return snap, nil
}

// CallNumbers applies a call by the actor.
func (s *Service) CallNumbers(gameID string, actor Actor, numbers []int) (game.CallResult, error) {
	m, err := s.match(gameID, actor)
	if err != nil {
		return game.CallResult{}, err
	}

	res, err := m.CallNumbers(actor.PlayerID, numbers)
	if err != nil {
		return game.CallResult{}, err
	}
	s.afterAction(m, res.Action, res.Progress, res)
	return res, nil
}

// UsePass spends the actor's pass.
func (s *Service) UsePass(gameID string, actor Actor) (game.PassResult, error) {
	m, err := s.match(gameID, actor)
	if err != nil {
		return game.PassResult{}, err
	}

	res, err := m.UsePass(actor.PlayerID)
	if err != nil {
		return game.PassResult{}, err
	}
	s.afterAction(m, res.Action, res.Progress, res)
	return res, nil
}

// UseReverse spends the actor's reverse.
func (s *Service) UseReverse(gameID string, actor Actor) (game.ReverseResult, error) {
	m, err := s.match(gameID, actor)
	if err != nil {
		return game.ReverseResult{}, err
	}

	res, err := m.UseReverse(actor.PlayerID)
	if err != nil {
		return game.ReverseResult{}, err
	}
	s.afterAction(m, res.Action, res.Progress, res)
	return res, nil
}

// PlayAutomated runs the current automated seat's turn immediately.
func (s *Service) PlayAutomated(gameID string, actor Actor) (game.Outcome, error) {
	m, err := s.match(gameID, actor)
	if err != nil {
		return game.Outcome{}, err
	}
	return s.playAutomated(m)
}

// GetRoom returns a room snapshot.
func (s *Service) GetRoom(roomID string) (game.RoomSnapshot, error) {
	room, err := s.store.GetRoom(roomID)
	if err != nil {
		return game.RoomSnapshot{}, err
	}
	return room.Snapshot(), nil
}

// ListRooms returns every open room.
func (s *Service) ListRooms() []game.RoomSnapshot {
	return s.store.ListRooms()
}

// GetGame returns a match snapshot.
func (s *Service) GetGame(gameID string) (game.MatchSnapshot, error) {
	m, err := s.store.GetGame(gameID)
	if err != nil {
		return game.MatchSnapshot{}, err
	}
	return m.Snapshot(), nil
}

// Close stops pending automated turns.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Service) match(gameID string, actor Actor) (*game.Match, error) {
	m, err := s.store.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	if actor.RoomID != m.RoomID() {
		return nil, game.ErrNotMember
	}
	return m, nil
}

func (s *Service) playAutomated(m *game.Match) (game.Outcome, error) {
	out, err := m.PlayAutomated(s.decider)
	if err != nil {
		return game.Outcome{}, err
	}

	var payload any
	switch {
	case out.Call != nil:
		payload = out.Call
	case out.Pass != nil:
		payload = out.Pass
	case out.Reverse != nil:
		payload = out.Reverse
	}
	s.afterAction(m, out.Record(), out.State(), payload)
	return out, nil
}

// afterAction runs the side effects of an applied move. The room is returned
// to the lobby before anything is published.
func (s *Service) afterAction(m *game.Match, rec game.ActionRecord, p game.Progress, payload any) {
	roomID := m.RoomID()
	s.store.Touch(roomID)

	if p.GameOver {
		s.store.EndMatch(roomID, m.ID())
	}

	s.hub.PublishRoom(roomID, hub.Event{Type: hub.TypeGameUpdate, Payload: payload})
	s.sink.ActionRecorded(rec)

	if !p.GameOver {
		s.scheduleAuto(m)
		return
	}

	s.cancelAuto(m.ID())
	s.hub.PublishRoom(roomID, hub.Event{Type: hub.TypeGameOver, Payload: p.Summary})
	if p.Summary != nil {
		s.sink.MatchEnded(*p.Summary)
	}
	if _, err := s.publishRoom(roomID); err != nil {
		s.logger.Debug("room gone after match end", zap.String("room_id", roomID))
	}

	s.logger.Info("match over",
		zap.String("room_id", roomID),
		zap.String("game_id", m.ID()),
		zap.String("winner", p.WinnerID))
}

// abandon closes out a match whose room was deleted under it so the history
// shows it as ended.
func (s *Service) abandon(m *game.Match) {
	if m == nil {
		return
	}
	sum, ok := m.Abandon()
	if !ok {
		return
	}
	s.sink.MatchEnded(*sum)
	s.logger.Info("match abandoned",
		zap.String("room_id", sum.RoomID),
		zap.String("game_id", sum.GameID),
		zap.Int("round", sum.Rounds))
}

func (s *Service) publishRoom(roomID string) (game.RoomSnapshot, error) {
	room, err := s.store.GetRoom(roomID)
	if err != nil {
		return game.RoomSnapshot{}, err
	}
	snap := room.Snapshot()
	s.hub.PublishRoomChange(roomID, snap)
	return snap, nil
}

// scheduleAuto arms a timer when the seat to move is automated. At most one
// timer is pending per match.
func (s *Service) scheduleAuto(m *game.Match) {
	if s.opts.AutoPlayDelay <= 0 {
		return
	}
	cur, ok := m.CurrentPlayer()
	if !ok || !cur.Automated {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if _, pending := s.timers[m.ID()]; pending {
		return
	}
	s.timers[m.ID()] = time.AfterFunc(s.opts.AutoPlayDelay, func() {
		s.mu.Lock()
		delete(s.timers, m.ID())
		s.mu.Unlock()

		s.runScheduled(m)
	})
}

func (s *Service) runScheduled(m *game.Match) {
	if _, err := s.store.GetGame(m.ID()); err != nil {
		return
	}

	if _, err := s.playAutomated(m); err != nil {
		if errors.Is(err, game.ErrMatchOver) || errors.Is(err, game.ErrNotAutomated) {
			s.logger.Debug("automated turn skipped", zap.String("game_id", m.ID()), zap.Error(err))
			return
		}
		s.logger.Warn("automated turn failed", zap.String("game_id", m.ID()), zap.Error(err))
	}
}

func (s *Service) cancelAuto(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[gameID]; ok {
		t.Stop()
		delete(s.timers, gameID)
	}
}
