package game

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Difficulty tunes the automated decision heuristic.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Player represents a room member
type Player struct {
	ID         string
	Name       string
	Automated  bool
	Difficulty Difficulty
	JoinedAt   time.Time
}

// NewPlayer creates a new human player
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		JoinedAt: time.Now(),
	}
}

// NewAutomatedPlayer creates a player whose turns are decided by a DecisionProvider
func NewAutomatedPlayer(id, name string, difficulty Difficulty) *Player {
	if difficulty == "" {
		difficulty = DifficultyMedium
	}
	return &Player{
		ID:         id,
		Name:       name,
		Automated:  true,
		Difficulty: difficulty,
		JoinedAt:   time.Now(),
	}
}

// GeneratePlayerID generates a unique player ID
func GeneratePlayerID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// PlayerSnapshot is the public view of a room member.
type PlayerSnapshot struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	IsAutomated bool       `json:"is_automated"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
}

// Snapshot returns the public view of the player.
func (p *Player) Snapshot() PlayerSnapshot {
	return PlayerSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		IsAutomated: p.Automated,
		Difficulty:  p.Difficulty,
	}
}
