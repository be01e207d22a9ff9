package service

import (
	"strings"
	"unicode/utf8"

	"questbot/internal/calendar"
)

const (
	minQuestXP = 10
	maxQuestXP = 50
)

// QuestReward is 10 XP plus one per ten characters of the task, capped at 50.
func QuestReward(taskText string) int {
	xp := minQuestXP + utf8.RuneCountInString(strings.TrimSpace(taskText))/10
	if xp > maxQuestXP {
		return maxQuestXP
	}
	return xp
}

// NextStreak computes the streak after a completion on todayLocalDate.
// Dates are YYYY-MM-DD in the user's zone; lastActiveLocalDate is empty when
// the user never completed anything.
func NextStreak(previousStreak int, lastActiveLocalDate, todayLocalDate string) int {
	if lastActiveLocalDate == todayLocalDate {
		if previousStreak < 1 {
			return 1
		}
		return previousStreak
	}

	yesterday, err := calendar.PreviousDate(todayLocalDate)
	if err == nil && lastActiveLocalDate == yesterday {
		if previousStreak < 1 {
			return 1
		}
		return previousStreak + 1
	}

	return 1
}
