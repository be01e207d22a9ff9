package telegram

import (
	"questbot/internal/calendar"
	"questbot/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// createKeyboard creates an inline keyboard from button rows.
func createKeyboard(buttons [][]model.Button) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

func mainMenuButtons() [][]model.Button {
	return [][]model.Button{
		{{Text: "➕ New quest", Data: "menu_add"}, {Text: "📜 My quests", Data: "menu_quests"}},
		{{Text: "📅 Today", Data: "menu_today"}, {Text: "👤 Profile", Data: "menu_profile"}},
		{{Text: "🏆 Leaderboard", Data: "menu_leaderboard"}, {Text: "⚙️ Settings", Data: "menu_settings"}},
		{{Text: "❓ Help", Data: "menu_help"}},
	}
}

func backButtonRow() []model.Button {
	return []model.Button{{Text: "⬅️ Menu", Data: "menu_main"}}
}

func settingsButtons() [][]model.Button {
	return [][]model.Button{
		{{Text: "⏰ Reminder time", Data: "menu_reminder"}},
		{{Text: "🌍 Time zone", Data: "menu_timezone"}},
		{{Text: "🎨 Theme", Data: "menu_theme"}},
		backButtonRow(),
	}
}

func questButtons(q *model.Quest) [][]model.Button {
	id := q.ID.String()
	return [][]model.Button{
		{
			{Text: "✅ Done", Data: "done_" + id},
			{Text: "⏳ Deadline", Data: "deadline_" + deadlinePick + "_" + id},
			{Text: "🗑 Delete", Data: "delete_" + id},
		},
	}
}

func deadlineButtons(q *model.Quest) [][]model.Button {
	id := q.ID.String()
	labels := map[model.DeadlinePreset]string{
		model.DeadlineToday:    "Today",
		model.DeadlineTomorrow: "Tomorrow",
		model.DeadlineIn3Days:  "3 days",
		model.DeadlineWeek:     "Week",
		model.DeadlineNone:     "No deadline",
	}

	var rows [][]model.Button
	var row []model.Button
	for _, preset := range model.DeadlinePresets {
		row = append(row, model.Button{Text: labels[preset], Data: "deadline_" + string(preset) + "_" + id})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func reminderButtons() [][]model.Button {
	var rows [][]model.Button
	var row []model.Button
	for _, clock := range calendar.ReminderPresets {
		row = append(row, model.Button{Text: clock, Data: "set_time_" + clock[:2]})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []model.Button{{Text: "🔕 Off", Data: "set_time_off"}}, backButtonRow())
	return rows
}

func timeZoneButtons() [][]model.Button {
	var rows [][]model.Button
	var row []model.Button
	for _, zone := range calendar.SupportedTimeZones {
		row = append(row, model.Button{Text: zone, Data: "tz_" + zone})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return append(rows, backButtonRow())
}

func themeButtons() [][]model.Button {
	labels := map[model.Theme]string{
		model.ThemeLight:   "☀️ Light",
		model.ThemeBlack:   "🌑 Black",
		model.ThemeVenture: "🚀 Venture",
	}

	var row []model.Button
	for _, theme := range model.Themes {
		row = append(row, model.Button{Text: labels[theme], Data: "theme_" + string(theme)})
	}
	return [][]model.Button{row, backButtonRow()}
}
