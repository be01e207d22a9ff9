package reminder

import (
	"fmt"
	"strings"
	"time"

	"questbot/internal/calendar"
	"questbot/internal/model"
)

const maxListedQuests = 3

func reminderNotification(user *model.User, quests []*model.Quest, now time.Time, loc *time.Location, kind model.NotificationKind) *model.Notification {
	return &model.Notification{
		UserID: user.TelegramID,
		Kind:   kind,
		Text:   ReminderText(quests, calendar.LocalClock(now, loc), loc.String()),
		Buttons: [][]model.Button{
			{{Text: "📜 My quests", Data: "menu_quests"}, {Text: "➕ New quest", Data: "menu_add"}},
		},
	}
}

// ReminderText lists up to three active quest titles, or nudges the user to
// create one when there are none.
func ReminderText(quests []*model.Quest, clock, zone string) string {
	var b strings.Builder

	if len(quests) == 0 {
		fmt.Fprintf(&b, "🔔 Reminder time\n\n⏰ %s (%s)\n\n😴 You have no active quests!\n\n💡 Create a new one: /addtask", clock, zone)
		return b.String()
	}

	fmt.Fprintf(&b, "🔔 Quest reminder\n\n⏰ %s (%s)\n📋 Active quests: %d\n\nWaiting for you:\n", clock, zone, len(quests))
	for i, q := range quests {
		if i == maxListedQuests {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Title)
	}
	if extra := len(quests) - maxListedQuests; extra > 0 {
		fmt.Fprintf(&b, "+%d more\n", extra)
	}
	b.WriteString("\n➡️ Let's go! /quests")

	return b.String()
}

func deadlineSoonNotification(quest *model.Quest, now time.Time) *model.Notification {
	left := quest.Deadline.Sub(now).Round(time.Minute)
	hours := int(left / time.Hour)
	minutes := int((left % time.Hour) / time.Minute)

	remaining := fmt.Sprintf("%dm", minutes)
	if hours > 0 {
		remaining = fmt.Sprintf("%dh %dm", hours, minutes)
	}

	id := quest.ID
	return &model.Notification{
		UserID:  quest.UserID,
		Kind:    model.NotificationDeadlineSoon,
		QuestID: &id,
		Text: fmt.Sprintf("⏰ Deadline is close!\n\nQuest #%d: \"%s\"\n\nTime left: %s\n\nFinish it in time! /quests",
			quest.QuestNumber, quest.Title, remaining),
		Buttons: [][]model.Button{{{Text: "✅ Done", Data: "done_" + id.String()}}},
	}
}

func overdueNotification(quest *model.Quest) *model.Notification {
	id := quest.ID
	return &model.Notification{
		UserID:  quest.UserID,
		Kind:    model.NotificationDeadlineOverdue,
		QuestID: &id,
		Text: fmt.Sprintf("❌ Deadline missed!\n\nQuest #%d: \"%s\"\n\n😔 Your streak was reset. The quest is still active, you can finish it anyway.",
			quest.QuestNumber, quest.Title),
		Buttons: [][]model.Button{{{Text: "✅ Done", Data: "done_" + id.String()}}},
	}
}
