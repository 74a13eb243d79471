package stats

import "time"

// PlayerRecord holds lifetime totals for a display name.
type PlayerRecord struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	IsAutomated bool      `json:"is_automated"`
	Difficulty  string    `gorm:"size:16" json:"difficulty,omitempty"`
	TotalGames  int       `json:"total_games"`
	TotalWins   int       `json:"total_wins"`
	TotalLosses int       `json:"total_losses"`
	WinRate     float64   `json:"win_rate"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (PlayerRecord) TableName() string { return "players" }

// GameRecord is one match.
type GameRecord struct {
	ID              string     `gorm:"primaryKey;size:36" json:"game_id"`
	RoomID          string     `gorm:"size:16;index" json:"room_id"`
	StartedAt       time.Time  `gorm:"index" json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	TotalRounds     int        `json:"total_rounds"`
	WinnerName      string     `gorm:"size:64" json:"winner,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	Abandoned       bool       `json:"abandoned,omitempty"`
}

func (GameRecord) TableName() string { return "games" }

// ParticipantRecord is a seat in a recorded match.
type ParticipantRecord struct {
	ID              uint   `gorm:"primaryKey" json:"-"`
	GameID          string `gorm:"size:36;index;not null" json:"-"`
	PlayerName      string `gorm:"size:64;index;not null" json:"name"`
	IsAutomated     bool   `json:"is_automated"`
	SeatOrder       int    `json:"order"`
	FinalRank       int    `json:"rank,omitempty"`
	EliminatedRound int    `json:"eliminated_round,omitempty"`
	TotalCalls      int    `json:"total_calls"`
	PassUsed        int    `json:"pass_used"`
	ReverseUsed     int    `json:"reverse_used"`
}

func (ParticipantRecord) TableName() string { return "game_participants" }

// ActionRow is a single applied move.
type ActionRow struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	GameID     string    `gorm:"size:36;index;not null" json:"-"`
	Round      int       `json:"round"`
	PlayerName string    `gorm:"size:64" json:"player"`
	ActionType string    `gorm:"size:16;not null" json:"action"`
	Numbers    []int     `gorm:"serializer:json" json:"numbers,omitempty"`
	HitSecret  bool      `json:"hit_secret"`
	CreatedAt  time.Time `json:"timestamp"`
}

func (ActionRow) TableName() string { return "game_actions" }

// AllModels lists every table for AutoMigrate.
func AllModels() []any {
	return []any{&PlayerRecord{}, &GameRecord{}, &ParticipantRecord{}, &ActionRow{}}
}
