package model

import (
	"time"

	"github.com/google/uuid"
)

type Quest struct {
	ID               uuid.UUID
	UserID           int64
	QuestNumber      int
	Title            string
	Story            string
	XP               int
	Theme            Theme
	Completed        bool
	CreatedAt        time.Time
	CompletedAt      *time.Time
	Deadline         *time.Time
	DeadlineNotified bool
	Overdue          bool
}

type CompletionResult struct {
	QuestID     uuid.UUID
	QuestNumber int
	QuestTitle  string
	XPGained    int
	NewXP       int
	NewLevel    int
	NewStreak   int
	LevelUp     bool
}

type DeadlinePreset string

const (
	DeadlineToday    DeadlinePreset = "today"
	DeadlineTomorrow DeadlinePreset = "tomorrow"
	DeadlineIn3Days  DeadlinePreset = "3days"
	DeadlineWeek     DeadlinePreset = "week"
	DeadlineNone     DeadlinePreset = "none"
)

var DeadlinePresets = []DeadlinePreset{DeadlineToday, DeadlineTomorrow, DeadlineIn3Days, DeadlineWeek, DeadlineNone}

// DayOffset is the number of local days after today the preset points at.
// ok is false for DeadlineNone and unknown presets.
func (p DeadlinePreset) DayOffset() (days int, ok bool) {
	switch p {
	case DeadlineToday:
		return 0, true
	case DeadlineTomorrow:
		return 1, true
	case DeadlineIn3Days:
		return 3, true
	case DeadlineWeek:
		return 7, true
	}
	return 0, false
}

func (p DeadlinePreset) IsValid() bool {
	_, ok := p.DayOffset()
	return ok || p == DeadlineNone
}
