package report

import (
	"testing"
	"time"

	"questbot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBuildUserReport(t *testing.T) {
	created := time.Date(2024, 1, 10, 8, 30, 0, 0, time.UTC)
	users := []*model.User{
		{
			TelegramID: 1001, Username: "hero", FirstName: "Hero", Level: 2, XP: 320, Streak: 3,
			TotalQuestsCompleted: 14,
			Settings:             model.Settings{ReminderTime: "19:00", TimeZone: "Europe/Moscow", Theme: model.ThemeBlack},
			CreatedAt:            created, LastActiveAt: created,
		},
		{
			TelegramID: 1002, Username: "quiet", Level: 1,
			Settings:  model.Settings{TimeZone: "Asia/Tokyo", Theme: model.ThemeLight},
			CreatedAt: created, LastActiveAt: created,
		},
	}
	feedback := []*model.Feedback{{UserID: 1001, Username: "hero", Text: "more dragons", CreatedAt: created}}

	buf, err := BuildUserReport(users, &model.Stats{TotalUsers: 2, CompletedQuests: 14, RemindersSentToday: 5}, feedback)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(UsersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Telegram ID", rows[0][0])
	assert.Equal(t, []string{"1001", "hero", "Hero", "2", "320", "3", "14", "19:00", "Europe/Moscow", "black", "2024-01-10 08:30", "2024-01-10 08:30"}, rows[1])
	assert.Equal(t, "off", rows[2][7])

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Total users", "2"}, summary[0])
	assert.Equal(t, []string{"Completed quests", "14"}, summary[3])
	assert.Equal(t, []string{"Reminders sent today", "5"}, summary[7])

	fb, err := f.GetRows(FeedbackSheet)
	require.NoError(t, err)
	require.Len(t, fb, 2)
	assert.Equal(t, "more dragons", fb[1][2])
}

func TestBuildUserReport_Empty(t *testing.T) {
	buf, err := BuildUserReport(nil, nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{UsersSheet, FeedbackSheet}, f.GetSheetList())
}
