package stats

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"ultimatecode/internal/game"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	recentGamesLimit        = 10
)

// LeaderboardEntry is one leaderboard row.
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	PlayerRecord
}

// RecentGame is a match summary from a player's point of view.
type RecentGame struct {
	GameID          string     `json:"game_id"`
	StartedAt       time.Time  `json:"start_time"`
	EndedAt         *time.Time `json:"end_time,omitempty"`
	FinalRank       int        `json:"rank,omitempty"`
	EliminatedRound int        `json:"eliminated_round,omitempty"`
}

// PlayerStats is a player's totals plus recent games.
type PlayerStats struct {
	PlayerRecord
	RecentGames []RecentGame `json:"recent_games"`
}

// GameDetails is a recorded match with its seats and moves.
type GameDetails struct {
	GameRecord
	Participants []ParticipantRecord `json:"participants"`
	Actions      []ActionRow         `json:"actions"`
}

// Queries reads the stats tables.
type Queries struct {
	db *gorm.DB
}

func NewQueries(db *gorm.DB) *Queries {
	return &Queries{db: db}
}

// Leaderboard returns players with at least one game, best win rate first.
func (q *Queries) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	limit = min(limit, maxLeaderboardLimit)

	var players []PlayerRecord
	err := q.db.WithContext(ctx).
		Where("total_games > 0").
		Order("win_rate DESC").
		Order("total_wins DESC").
		Order("name ASC").
		Limit(limit).
		Find(&players).Error
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(players))
	for i, p := range players {
		entries[i] = LeaderboardEntry{Rank: i + 1, PlayerRecord: p}
	}
	return entries, nil
}

// PlayerStats returns totals and the ten most recent games for name.
func (q *Queries) PlayerStats(ctx context.Context, name string) (*PlayerStats, error) {
	db := q.db.WithContext(ctx)

	var player PlayerRecord
	if err := db.Where("name = ?", name).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrPlayerNotFound
		}
		return nil, err
	}

	recent := []RecentGame{}
	err := db.Table("games AS g").
		Select("g.id AS game_id, g.started_at, g.ended_at, gp.final_rank, gp.eliminated_round").
		Joins("JOIN game_participants gp ON gp.game_id = g.id").
		Where("gp.player_name = ?", name).
		Order("g.started_at DESC").
		Limit(recentGamesLimit).
		Scan(&recent).Error
	if err != nil {
		return nil, err
	}

	return &PlayerStats{PlayerRecord: player, RecentGames: recent}, nil
}

// GameDetails returns a recorded match with participants in seat order and
// actions in the order they were applied.
func (q *Queries) GameDetails(ctx context.Context, gameID string) (*GameDetails, error) {
	db := q.db.WithContext(ctx)

	var rec GameRecord
	if err := db.Where("id = ?", gameID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrGameNotFound
		}
		return nil, err
	}

	details := &GameDetails{GameRecord: rec}
	if err := db.Where("game_id = ?", gameID).Order("seat_order").Find(&details.Participants).Error; err != nil {
		return nil, err
	}
	if err := db.Where("game_id = ?", gameID).Order("created_at").Order("id").Find(&details.Actions).Error; err != nil {
		return nil, err
	}
	return details, nil
}
