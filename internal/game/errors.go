package game

import "fmt"

// Kind classifies an Error for callers at the transport boundary.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTurn       Kind = "turn"
	KindCapability Kind = "capability"
	KindCapacity   Kind = "capacity"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
)

// Error is the error type returned by every game and room operation.
// Rule names the specific check that failed.
type Error struct {
	Kind    Kind
	Rule    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches kind sentinels (no rule) by kind and rule sentinels by kind and rule.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Rule == "" {
		return t.Kind == e.Kind
	}
	return t.Kind == e.Kind && t.Rule == e.Rule
}

func newError(kind Kind, rule, format string, args ...any) *Error {
	return &Error{Kind: kind, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// Kind sentinels.
var (
	ErrValidation = &Error{Kind: KindValidation, Message: "invalid request"}
	ErrTurn       = &Error{Kind: KindTurn, Message: "turn violation"}
	ErrCapability = &Error{Kind: KindCapability, Message: "capability unavailable"}
	ErrCapacity   = &Error{Kind: KindCapacity, Message: "capacity violation"}
	ErrAuth       = &Error{Kind: KindAuth, Message: "not authorized"}
	ErrNotFound   = &Error{Kind: KindNotFound, Message: "not found"}
)

// Rule sentinels.
var (
	ErrCallCount      = &Error{Kind: KindValidation, Rule: "count", Message: "must call between 1 and 3 numbers"}
	ErrNotConsecutive = &Error{Kind: KindValidation, Rule: "consecutive", Message: "numbers must be consecutive"}
	ErrOutOfRange     = &Error{Kind: KindValidation, Rule: "range", Message: "number is outside the current range"}
	ErrAlreadyCalled  = &Error{Kind: KindValidation, Rule: "already_called", Message: "number has already been called"}
	ErrMaxPlayers     = &Error{Kind: KindValidation, Rule: "max_players", Message: "max players must be between 2 and 10"}
	ErrDuplicateName  = &Error{Kind: KindValidation, Rule: "duplicate_name", Message: "a player with that name already exists in the room"}
	ErrEmptyName      = &Error{Kind: KindValidation, Rule: "empty_name", Message: "player name is required"}

	ErrNotYourTurn  = &Error{Kind: KindTurn, Rule: "not_your_turn", Message: "it is not your turn"}
	ErrMatchOver    = &Error{Kind: KindTurn, Rule: "match_over", Message: "the match is over"}
	ErrNotAutomated = &Error{Kind: KindTurn, Rule: "not_automated", Message: "current player is not automated"}
	ErrNotInMatch   = &Error{Kind: KindTurn, Rule: "not_in_match", Message: "player is not seated in this match"}

	ErrPassUsed    = &Error{Kind: KindCapability, Rule: "pass_used", Message: "pass has already been used this round"}
	ErrReverseUsed = &Error{Kind: KindCapability, Rule: "reverse_used", Message: "reverse has already been used this round"}

	ErrRoomFull           = &Error{Kind: KindCapacity, Rule: "room_full", Message: "room is full"}
	ErrGameAlreadyStarted = &Error{Kind: KindCapacity, Rule: "already_playing", Message: "game has already started"}
	ErrNotEnoughPlayers   = &Error{Kind: KindCapacity, Rule: "not_enough_players", Message: "not enough players to start"}

	ErrWrongPassword = &Error{Kind: KindAuth, Rule: "wrong_password", Message: "room password does not match"}
	ErrNotHost       = &Error{Kind: KindAuth, Rule: "not_host", Message: "only the host can do that"}
	ErrNotMember     = &Error{Kind: KindAuth, Rule: "not_member", Message: "player is not in this room"}

	ErrRoomNotFound   = &Error{Kind: KindNotFound, Rule: "room", Message: "room not found"}
	ErrGameNotFound   = &Error{Kind: KindNotFound, Rule: "game", Message: "game not found"}
	ErrPlayerNotFound = &Error{Kind: KindNotFound, Rule: "player", Message: "player not found"}
)
