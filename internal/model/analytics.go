package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventUserCreated    = "user_created"
	EventQuestCreated   = "quest_created"
	EventQuestCompleted = "quest_completed"
	EventQuestDeleted   = "quest_deleted"
	EventReminderSent   = "reminder_sent"
	EventFeedbackSent   = "feedback_sent"
)

type Event struct {
	ID        uuid.UUID
	UserID    int64
	Name      string
	Payload   map[string]any
	CreatedAt time.Time
}

type Feedback struct {
	ID        uuid.UUID
	UserID    int64
	Username  string
	Text      string
	CreatedAt time.Time
}
