package model

import "github.com/google/uuid"

type NotificationKind string

const (
	NotificationReminder        NotificationKind = "reminder"
	NotificationDeadlineSoon    NotificationKind = "deadline_soon"
	NotificationDeadlineOverdue NotificationKind = "deadline_overdue"
	NotificationReminderPreview NotificationKind = "reminder_preview"
	NotificationQuestCompleted  NotificationKind = "quest_completed"
)

// Button is an inline action attached to a message. Data is the callback payload.
type Button struct {
	Text string
	Data string
}

type Notification struct {
	UserID  int64
	Kind    NotificationKind
	Text    string
	QuestID *uuid.UUID
	Buttons [][]Button
}
