package service

import (
	"strings"
	"testing"

	"questbot/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestNextStreak(t *testing.T) {
	tests := []struct {
		name       string
		previous   int
		lastActive string
		today      string
		expected   int
	}{
		{name: "consecutive day", previous: 5, lastActive: "2024-01-10", today: "2024-01-11", expected: 6},
		{name: "gap resets", previous: 5, lastActive: "2024-01-10", today: "2024-01-13", expected: 1},
		{name: "same day unchanged", previous: 5, lastActive: "2024-01-11", today: "2024-01-11", expected: 5},
		{name: "first completion ever", previous: 0, lastActive: "", today: "2024-01-11", expected: 1},
		{name: "same day after reset counts once", previous: 0, lastActive: "2024-01-11", today: "2024-01-11", expected: 1},
		{name: "month boundary", previous: 2, lastActive: "2024-02-29", today: "2024-03-01", expected: 3},
		{name: "year boundary", previous: 9, lastActive: "2023-12-31", today: "2024-01-01", expected: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextStreak(tt.previous, tt.lastActive, tt.today))
		})
	}
}

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp       int
		expected int
	}{
		{xp: 0, expected: 1},
		{xp: 299, expected: 1},
		{xp: 300, expected: 2},
		{xp: 650, expected: 3},
		{xp: -10, expected: 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, model.LevelForXP(tt.xp), "xp=%d", tt.xp)
	}

	prev := model.LevelForXP(0)
	for xp := 1; xp <= 3000; xp++ {
		level := model.LevelForXP(xp)
		assert.GreaterOrEqual(t, level, prev)
		prev = level
	}
}

func TestQuestReward(t *testing.T) {
	assert.Equal(t, 10, QuestReward("go"))
	assert.Equal(t, 11, QuestReward("call the client"))
	assert.Equal(t, 50, QuestReward(strings.Repeat("a", 1000)))
	// runes, not bytes
	assert.Equal(t, 11, QuestReward("позвонить клиенту"))

	prev := QuestReward("")
	for n := 1; n < 600; n += 7 {
		xp := QuestReward(strings.Repeat("x", n))
		assert.GreaterOrEqual(t, xp, prev)
		assert.LessOrEqual(t, xp, 50)
		assert.GreaterOrEqual(t, xp, 10)
		prev = xp
	}
}
