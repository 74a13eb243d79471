package stats

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ultimatecode/internal/game"
)

// DefaultBuffer is the recorder queue capacity.
const DefaultBuffer = 256

// ErrClosed is returned by Close when called twice.
var ErrClosed = errors.New("recorder closed")

// Recorder writes match history asynchronously. Records are applied in order
// by a single worker; a full queue drops the record with a warning.
type Recorder struct {
	db     *gorm.DB
	logger *zap.Logger
	queue  chan any

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewRecorder starts the worker.
func NewRecorder(db *gorm.DB, buffer int, logger *zap.Logger) *Recorder {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Recorder{
		db:     db,
		logger: logger.Named("stats"),
		queue:  make(chan any, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// MatchStarted queues the match and its participants.
func (r *Recorder) MatchStarted(ev game.MatchStarted) { r.enqueue(ev) }

// ActionRecorded queues one move.
func (r *Recorder) ActionRecorded(rec game.ActionRecord) { r.enqueue(rec) }

// MatchEnded queues the final result and the players' totals.
func (r *Recorder) MatchEnded(sum game.MatchSummary) { r.enqueue(sum) }

func (r *Recorder) enqueue(item any) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}
	select {
	case r.queue <- item:
	default:
		r.logger.Warn("stats queue full, dropping record")
	}
}

// Close stops accepting records and waits for the queue to drain or ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	for item := range r.queue {
		var err error
		switch ev := item.(type) {
		case game.MatchStarted:
			err = r.recordStart(ev)
		case game.ActionRecord:
			err = r.recordAction(ev)
		case game.MatchSummary:
			err = r.recordEnd(ev)
		}
		if err != nil {
			r.logger.Error("failed to record stats", zap.Error(err))
		}
	}
}

func (r *Recorder) recordStart(ev game.MatchStarted) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&GameRecord{ID: ev.GameID, RoomID: ev.RoomID, StartedAt: ev.StartedAt}).Error; err != nil {
			return err
		}

		for i, seat := range ev.Players {
			player := PlayerRecord{Name: seat.Name, IsAutomated: seat.IsAutomated}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&player).Error; err != nil {
				return err
			}
			part := ParticipantRecord{
				GameID:      ev.GameID,
				PlayerName:  seat.Name,
				IsAutomated: seat.IsAutomated,
				SeatOrder:   i,
			}
			if err := tx.Create(&part).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Recorder) recordAction(rec game.ActionRecord) error {
	row := ActionRow{
		GameID:     rec.GameID,
		Round:      rec.Round,
		PlayerName: rec.PlayerName,
		ActionType: string(rec.Type),
		Numbers:    rec.Numbers,
		HitSecret:  rec.HitSecret,
		CreatedAt:  rec.At,
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		var column string
		switch rec.Type {
		case game.ActionCall:
			column = "total_calls"
		case game.ActionPass:
			column = "pass_used"
		case game.ActionReverse:
			column = "reverse_used"
		default:
			return nil
		}
		return tx.Model(&ParticipantRecord{}).
			Where("game_id = ? AND player_name = ?", rec.GameID, rec.PlayerName).
			Update(column, gorm.Expr(column+" + 1")).Error
	})
}

func (r *Recorder) recordEnd(sum game.MatchSummary) error {
	ended := sum.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&GameRecord{}).Where("id = ?", sum.GameID).Updates(map[string]any{
			"ended_at":         ended,
			"total_rounds":     sum.Rounds,
			"winner_name":      sum.WinnerName,
			"duration_seconds": sum.DurationSeconds,
			"abandoned":        sum.Abandoned,
		}).Error
		if err != nil {
			return err
		}

		for _, rank := range sum.Ranks {
			err := tx.Model(&ParticipantRecord{}).
				Where("game_id = ? AND player_name = ?", sum.GameID, rank.Name).
				Updates(map[string]any{
					"final_rank":       rank.Rank,
					"eliminated_round": rank.EliminatedRound,
				}).Error
			if err != nil {
				return err
			}

			var player PlayerRecord
			if err := tx.Where("name = ?", rank.Name).First(&player).Error; err != nil {
				return err
			}
			player.TotalGames++
			if rank.Rank == 1 {
				player.TotalWins++
			} else {
				player.TotalLosses++
			}
			player.WinRate = winRate(player.TotalWins, player.TotalGames)
			if err := tx.Save(&player).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// winRate is a percentage truncated to two decimals.
func winRate(wins, games int) float64 {
	if games == 0 {
		return 0
	}
	return float64(wins*10000/games) / 100
}
