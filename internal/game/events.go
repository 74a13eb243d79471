package game

import "time"

// ActionType names a move taken on a turn.
type ActionType string

const (
	ActionCall    ActionType = "call"
	ActionPass    ActionType = "pass"
	ActionReverse ActionType = "reverse"
	ActionForfeit ActionType = "forfeit"
)

// ActionRecord describes one applied move, in the shape the stats sink stores.
type ActionRecord struct {
	GameID     string     `json:"game_id"`
	Round      int        `json:"round"`
	PlayerID   string     `json:"player_id"`
	PlayerName string     `json:"player_name"`
	Automated  bool       `json:"is_automated"`
	Type       ActionType `json:"action"`
	Numbers    []int      `json:"numbers,omitempty"`
	HitSecret  bool       `json:"hit_secret"`
	At         time.Time  `json:"at"`
}

// MatchStarted is emitted once when a room starts a match.
type MatchStarted struct {
	GameID    string         `json:"game_id"`
	RoomID    string         `json:"room_id"`
	Players   []SeatSnapshot `json:"players"`
	StartedAt time.Time      `json:"started_at"`
}

// Rank is a seat's final placing. Rank 1 is the winner.
type Rank struct {
	PlayerID        string `json:"player_id"`
	Name            string `json:"name"`
	IsAutomated     bool   `json:"is_automated"`
	Order           int    `json:"order"`
	Rank            int    `json:"rank"`
	EliminatedRound int    `json:"eliminated_round,omitempty"`
}

// MatchSummary is the final result of a finished match.
type MatchSummary struct {
	GameID          string    `json:"game_id"`
	RoomID          string    `json:"room_id"`
	WinnerID        string    `json:"winner_id"`
	WinnerName      string    `json:"winner_name"`
	Rounds          int       `json:"rounds"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int       `json:"duration_seconds"`
	Ranks           []Rank    `json:"ranks"`
	Abandoned       bool      `json:"abandoned,omitempty"`
}
