package report

import (
	"bytes"
	"fmt"

	"questbot/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	UsersSheet    = "Sheet1"
	SummarySheet  = "Summary"
	FeedbackSheet = "Feedback"

	timeLayout = "2006-01-02 15:04"
)

var userHeader = []interface{}{
	"Telegram ID", "Username", "Name", "Level", "XP", "Streak",
	"Completed", "Reminder", "Time zone", "Theme", "Created", "Last active",
}

// BuildUserReport renders users, totals and feedback into an xlsx workbook.
func BuildUserReport(users []*model.User, stats *model.Stats, feedback []*model.Feedback) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeUsers(f, users); err != nil {
		return nil, err
	}
	if stats != nil {
		if err := writeSummary(f, stats); err != nil {
			return nil, err
		}
	}
	if err := writeFeedback(f, feedback); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	return buf, nil
}

func writeUsers(f *excelize.File, users []*model.User) error {
	if err := setRow(f, UsersSheet, 1, userHeader); err != nil {
		return err
	}

	for i, u := range users {
		reminder := u.Settings.ReminderTime
		if reminder == "" {
			reminder = "off"
		}

		row := []interface{}{
			u.TelegramID, u.Username, u.FirstName, u.Level, u.XP, u.Streak,
			u.TotalQuestsCompleted, reminder, u.Settings.TimeZone, string(u.Settings.Theme),
			u.CreatedAt.UTC().Format(timeLayout), u.LastActiveAt.UTC().Format(timeLayout),
		}
		if err := setRow(f, UsersSheet, i+2, row); err != nil {
			return err
		}
	}

	return f.SetColWidth(UsersSheet, "A", "L", 16)
}

func writeSummary(f *excelize.File, stats *model.Stats) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Total users", stats.TotalUsers},
		{"Active today", stats.ActiveToday},
		{"Total quests", stats.TotalQuests},
		{"Completed quests", stats.CompletedQuests},
		{"Active quests", stats.ActiveQuests},
		{"Overdue quests", stats.OverdueQuests},
		{"Feedback messages", stats.FeedbackCount},
		{"Reminders sent today", stats.RemindersSentToday},
	}
	for i, row := range rows {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func writeFeedback(f *excelize.File, feedback []*model.Feedback) error {
	if _, err := f.NewSheet(FeedbackSheet); err != nil {
		return fmt.Errorf("failed to create feedback sheet: %w", err)
	}

	if err := setRow(f, FeedbackSheet, 1, []interface{}{"Telegram ID", "Username", "Text", "Sent"}); err != nil {
		return err
	}
	for i, fb := range feedback {
		row := []interface{}{fb.UserID, fb.Username, fb.Text, fb.CreatedAt.UTC().Format(timeLayout)}
		if err := setRow(f, FeedbackSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
