package telegram

import (
	"fmt"
	"strings"
	"time"

	"questbot/internal/calendar"
	"questbot/internal/model"
)

const helpText = `📖 How it works

Write down a task and it turns into a quest with its own story. Finish quests to earn XP, level up and keep your daily streak alive.

Quests:
/addtask <text> - create a quest
/quests - active quests
/today - quests created today

Progress:
/profile - level, XP and streak
/stats - last 7 days
/leaderboard - top adventurers

Settings:
/settings - settings menu
/reminder <HH:MM|off> - daily reminder time
/timezone <Area/City> - your time zone
/theme <light|black|venture> - story style
/reminder_test - preview today's reminder
/shabbat_info - reminder pause window

/feedback <text> - write to the authors
/cancel - cancel the current input`

func welcomeText(user *model.User, created bool) string {
	if created {
		return fmt.Sprintf("⚔️ Welcome, %s!\n\nEvery task you add becomes a quest. Complete quests, earn XP and keep your streak going.\n\nA reminder comes every day at %s (%s). Change it in /settings.",
			user.DisplayName(), user.Settings.ReminderTime, user.Settings.TimeZone)
	}
	return fmt.Sprintf("⚔️ Welcome back, %s! Level %d, streak %d 🔥", user.DisplayName(), user.Level, user.Streak)
}

func questCreatedText(q *model.Quest) string {
	return fmt.Sprintf("📜 Quest #%d: %s\n\n%s\n\n💎 Reward: %d XP", q.QuestNumber, q.Title, q.Story, q.XP)
}

func questLine(q *model.Quest, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s (%d XP)", q.QuestNumber, q.Title, q.XP)
	if q.Deadline != nil {
		fmt.Fprintf(&b, "\n⏳ until %s", q.Deadline.In(loc).Format("02.01 15:04"))
		if q.Overdue {
			b.WriteString(" ❗ overdue")
		}
	}
	return b.String()
}

func completionText(r *model.CompletionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 Quest #%d complete: %s\n\n+%d XP (total %d)\n🔥 Streak: %d", r.QuestNumber, r.QuestTitle, r.XPGained, r.NewXP, r.NewStreak)
	if r.LevelUp {
		fmt.Fprintf(&b, "\n\n⬆️ Level up! You are now level %d", r.NewLevel)
	}
	return b.String()
}

func profileText(user *model.User) string {
	reminder := user.Settings.ReminderTime
	if reminder == "" {
		reminder = "off"
	}
	toNext := model.XPPerLevel - user.XP%model.XPPerLevel

	return fmt.Sprintf("👤 %s\n\n⭐ Level %d\n💎 XP: %d (%d to next level)\n🔥 Streak: %d\n✅ Quests completed: %d\n\n⏰ Reminder: %s\n🌍 Time zone: %s\n🎨 Theme: %s",
		user.DisplayName(), user.Level, user.XP, toNext, user.Streak, user.TotalQuestsCompleted,
		reminder, user.Settings.TimeZone, user.Settings.Theme)
}

// weeklyStatsText summarizes the last seven local days of the activity log.
func weeklyStatsText(user *model.User, now time.Time) string {
	loc := calendar.LoadLocation(user.Settings.TimeZone)

	var b strings.Builder
	b.WriteString("📊 Last 7 days\n\n")

	totalQuests, totalXP := 0, 0
	for i := 6; i >= 0; i-- {
		date := calendar.LocalDate(now.In(loc).AddDate(0, 0, -i), loc)
		quests, xp := 0, 0
		if entry := user.ActivityFor(date); entry != nil {
			quests, xp = entry.QuestsCompleted, entry.XPGained
		}
		totalQuests += quests
		totalXP += xp
		fmt.Fprintf(&b, "%s: %d quests, %d XP\n", date, quests, xp)
	}
	fmt.Fprintf(&b, "\nTotal: %d quests, %d XP", totalQuests, totalXP)

	return b.String()
}

func globalStatsText(s *model.Stats) string {
	return fmt.Sprintf("🛠 Bot stats\n\nUsers: %d (active today %d)\nQuests: %d (completed %d, active %d, overdue %d)\nReminders sent today: %d\nFeedback: %d",
		s.TotalUsers, s.ActiveToday, s.TotalQuests, s.CompletedQuests, s.ActiveQuests, s.OverdueQuests, s.RemindersSentToday, s.FeedbackCount)
}

func leaderboardText(users []*model.User) string {
	if len(users) == 0 {
		return "🏆 Nobody is on the board yet"
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var b strings.Builder
	b.WriteString("🏆 Leaderboard\n\n")
	for i, u := range users {
		place := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			place = medals[i]
		}
		fmt.Fprintf(&b, "%s %s - level %d, %d XP\n", place, u.DisplayName(), u.Level, u.XP)
	}
	return b.String()
}

func windowText(w *calendar.Window, loc *time.Location) string {
	if w == nil {
		return "🕯 No reminder pause window found for this week."
	}

	source := "calendar"
	if !w.Precise {
		source = "seasonal estimate"
	}
	return fmt.Sprintf("🕯 Reminders pause from %s until %s (%s, %s).",
		w.Start.In(loc).Format("Mon 02.01 15:04"), w.End.In(loc).Format("Mon 02.01 15:04"), loc, source)
}
