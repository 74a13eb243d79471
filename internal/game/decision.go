package game

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Action is a move chosen for an automated seat.
type Action struct {
	Type    ActionType
	Numbers []int
}

// DecisionView is what an automated player may see. It never includes the secret.
type DecisionView struct {
	Range            Range
	Called           []int
	PassAvailable    bool
	ReverseAvailable bool
	Difficulty       Difficulty
	AliveCount       int
}

// Available returns the uncalled numbers inside the range, ascending.
func (v DecisionView) Available() []int {
	called := make(map[int]bool, len(v.Called))
	for _, n := range v.Called {
		called[n] = true
	}
	var out []int
	for n := v.Range.Low; n <= v.Range.High; n++ {
		if !called[n] {
			out = append(out, n)
		}
	}
	return out
}

// Danger is the ratio of called numbers to the width of the current range.
func (v DecisionView) Danger() float64 {
	width := v.Range.Width()
	if width <= 0 {
		return 1
	}
	return float64(len(v.Called)) / float64(width)
}

// DecisionProvider chooses moves for automated seats.
type DecisionProvider interface {
	Decide(view DecisionView) Action
}

type profile struct {
	danger float64
	use    float64
}

var profiles = map[Difficulty]profile{
	DifficultyEasy:   {danger: 0.9, use: 0.3},
	DifficultyMedium: {danger: 0.75, use: 0.6},
	DifficultyHard:   {danger: 0.6, use: 0.8},
}

// Heuristic is the default DecisionProvider. Once the danger ratio passes the
// difficulty's threshold it may spend a pass or reverse; otherwise it calls a
// random-size group of consecutive uncalled numbers.
type Heuristic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristic creates a deterministic heuristic for the given seed.
func NewHeuristic(seed uint64) *Heuristic {
	return &Heuristic{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomHeuristic seeds the heuristic from the clock.
func NewRandomHeuristic() *Heuristic {
	return NewHeuristic(uint64(time.Now().UnixNano()))
}

// Decide picks a pass, reverse or call for the seat described by view.
func (h *Heuristic) Decide(view DecisionView) Action {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := profiles[view.Difficulty]
	if !ok {
		p = profiles[DifficultyMedium]
	}

	available := view.Available()
	if view.Danger() > p.danger {
		if view.PassAvailable && h.rng.Float64() < p.use {
			return Action{Type: ActionPass}
		}
		if view.ReverseAvailable && view.AliveCount > 2 && h.rng.Float64() < p.use {
			return Action{Type: ActionReverse}
		}
	}

	if len(available) == 0 {
		if view.PassAvailable {
			return Action{Type: ActionPass}
		}
		return Action{Type: ActionReverse}
	}

	count := 1 + h.rng.IntN(min(3, len(available)))
	for i := 0; i+count <= len(available); i++ {
		group := available[i : i+count]
		if group[len(group)-1]-group[0] == count-1 {
			return Action{Type: ActionCall, Numbers: append([]int(nil), group...)}
		}
	}

	return Action{Type: ActionCall, Numbers: []int{available[0]}}
}
