package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionView(t *testing.T) {
	view := DecisionView{Range: Range{5, 10}, Called: []int{1, 2, 3}}
	assert.Equal(t, []int{5, 6, 7, 8, 9, 10}, view.Available())
	assert.InDelta(t, 0.5, view.Danger(), 1e-9)
}

func TestHeuristic_CallsConsecutiveUncalledNumbers(t *testing.T) {
	h := NewHeuristic(42)
	view := DecisionView{
		Range:      Range{10, 20},
		Called:     []int{1, 2},
		Difficulty: DifficultyMedium,
		AliveCount: 3,
	}

	for i := 0; i < 200; i++ {
		action := h.Decide(view)
		require.Equal(t, ActionCall, action.Type)
		require.NotEmpty(t, action.Numbers)
		require.LessOrEqual(t, len(action.Numbers), 3)
		for j, n := range action.Numbers {
			assert.True(t, view.Range.Contains(n))
			if j > 0 {
				assert.Equal(t, action.Numbers[j-1]+1, n)
			}
		}
	}
}

func TestHeuristic_UsesTokensWhenDangerous(t *testing.T) {
	view := DecisionView{
		Range:            Range{14, 16},
		Called:           []int{1, 2, 3, 4, 5, 20, 21},
		PassAvailable:    true,
		ReverseAvailable: true,
		Difficulty:       DifficultyHard,
		AliveCount:       3,
	}
	require.Greater(t, view.Danger(), profiles[DifficultyHard].danger)

	h := NewHeuristic(1)
	tokens := 0
	for i := 0; i < 200; i++ {
		switch h.Decide(view).Type {
		case ActionPass, ActionReverse:
			tokens++
		}
	}
	assert.Greater(t, tokens, 100)
}

func TestHeuristic_NoTokensFallsBackToCall(t *testing.T) {
	view := DecisionView{
		Range:      Range{14, 14},
		Called:     []int{1, 2, 3, 4, 5, 20, 21},
		Difficulty: DifficultyEasy,
		AliveCount: 2,
	}

	action := NewHeuristic(3).Decide(view)
	assert.Equal(t, Action{Type: ActionCall, Numbers: []int{14}}, action)
}

func TestHeuristic_PlaysFullMatch(t *testing.T) {
	players := []Player{
		*NewAutomatedPlayer("a", "Bot A", DifficultyEasy),
		*NewAutomatedPlayer("b", "Bot B", DifficultyMedium),
		*NewAutomatedPlayer("c", "Bot C", DifficultyHard),
	}
	m, err := NewMatch("g", "r", players)
	require.NoError(t, err)

	h := NewHeuristic(99)
	for i := 0; i < 500 && !m.Over(); i++ {
		_, err := m.PlayAutomated(h)
		require.NoError(t, err)
	}
	assert.True(t, m.Over())
}
