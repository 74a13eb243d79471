package session

import "ultimatecode/internal/game"

// Sink receives match history. Implementations must not block.
type Sink interface {
	MatchStarted(ev game.MatchStarted)
	ActionRecorded(rec game.ActionRecord)
	MatchEnded(sum game.MatchSummary)
}

// NopSink discards every record.
type NopSink struct{}

func (NopSink) MatchStarted(game.MatchStarted)   {}
func (NopSink) ActionRecorded(game.ActionRecord) {}
func (NopSink) MatchEnded(game.MatchSummary)     {}
