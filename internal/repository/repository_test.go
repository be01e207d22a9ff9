package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"questbot/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T, repo *Repository) *model.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	u := &model.User{
		TelegramID:   newTelegramID(),
		Username:     "hero",
		FirstName:    "Hero",
		CreatedAt:    now,
		LastActiveAt: now,
	}
	created, err := repo.CreateUser(context.Background(), u)
	require.NoError(t, err)
	require.True(t, created)
	return u
}

func createTestQuest(t *testing.T, repo *Repository, userID int64, title string, createdAt time.Time) *model.Quest {
	t.Helper()

	q := &model.Quest{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Story:     "story of " + title,
		XP:        15,
		Theme:     model.ThemeBlack,
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.CreateQuest(context.Background(), q))
	return q
}

func TestRepository_CreateUserIsIdempotent(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	u := createTestUser(t, repo)

	later := u.LastActiveAt.Add(time.Hour)
	created, err := repo.CreateUser(ctx, &model.User{TelegramID: u.TelegramID, Username: "other", CreatedAt: later, LastActiveAt: later})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.GetUserByTelegramID(ctx, u.TelegramID)
	require.NoError(t, err)
	assert.Equal(t, "hero", got.Username)
	assert.Equal(t, model.DefaultSettings(), got.Settings)
	assert.Equal(t, 1, got.Level)
	assert.Empty(t, got.Badges)
	assert.True(t, got.LastActiveAt.Equal(later))
}

func TestRepository_GetUserNotFound(t *testing.T) {
	repo := setupRepository(t)

	_, err := repo.GetUserByTelegramID(context.Background(), -1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_LegacyUserIsNormalized(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	id := newTelegramID()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO users (telegram_id, xp, level, timezone, theme) VALUES ($1, 650, 1, 'Nowhere/City', 'neon')`, id)
	require.NoError(t, err)

	got, err := repo.GetUserByTelegramID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), got.Settings)
	assert.Equal(t, 3, got.Level)
	assert.NotNil(t, got.ActivityLog)

	var zone, theme string
	require.NoError(t, repo.db.GetContext(ctx, &zone, `SELECT timezone FROM users WHERE telegram_id = $1`, id))
	require.NoError(t, repo.db.GetContext(ctx, &theme, `SELECT theme FROM users WHERE telegram_id = $1`, id))
	assert.Equal(t, model.DefaultTimeZone, zone)
	assert.Equal(t, string(model.DefaultTheme), theme)
}

func TestRepository_UpdateSettingsAndReminderStamp(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	u := createTestUser(t, repo)

	settings := model.Settings{ReminderTime: "", TimeZone: "Asia/Tokyo", Theme: model.ThemeVenture, Language: "en"}
	require.NoError(t, repo.UpdateSettings(ctx, u.TelegramID, settings))

	now := time.Now().UTC()
	require.NoError(t, repo.MarkReminderSent(ctx, u.TelegramID, "2024-01-10", now))

	got, err := repo.GetUserByTelegramID(ctx, u.TelegramID)
	require.NoError(t, err)
	assert.Equal(t, settings, got.Settings, "empty reminder time stays disabled")
	assert.Equal(t, "2024-01-10", got.LastReminderSentDate)

	assert.ErrorIs(t, repo.UpdateSettings(ctx, -5, settings), ErrNotFound)
}

func TestRepository_QuestNumbersAreMonotonic(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	u := createTestUser(t, repo)
	now := time.Now().UTC()

	q1 := createTestQuest(t, repo, u.TelegramID, "one", now)
	q2 := createTestQuest(t, repo, u.TelegramID, "two", now.Add(time.Second))
	assert.Equal(t, 1, q1.QuestNumber)
	assert.Equal(t, 2, q2.QuestNumber)

	require.NoError(t, repo.DeleteQuest(ctx, q2.ID))

	q3 := createTestQuest(t, repo, u.TelegramID, "three", now.Add(2*time.Second))
	assert.Equal(t, 3, q3.QuestNumber)

	active, err := repo.ListActiveQuests(ctx, u.TelegramID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, q3.ID, active[0].ID)
	assert.Equal(t, q1.ID, active[1].ID)

	err = repo.CreateQuest(ctx, &model.Quest{ID: uuid.New(), UserID: -7, Title: "x", Story: "x", XP: 10, Theme: model.ThemeBlack, CreatedAt: now})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.DeleteQuest(ctx, q2.ID), ErrNotFound)
}

func TestRepository_ListActiveQuestsCreatedBetween(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	u := createTestUser(t, repo)
	from := time.Date(2024, 1, 9, 21, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	createTestQuest(t, repo, u.TelegramID, "yesterday", from.Add(-time.Minute))
	inside := createTestQuest(t, repo, u.TelegramID, "today", from)
	createTestQuest(t, repo, u.TelegramID, "tomorrow", to)

	got, err := repo.ListActiveQuestsCreatedBetween(ctx, u.TelegramID, from, to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inside.ID, got[0].ID)
}

func TestRepository_CompleteQuest(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	u := createTestUser(t, repo)
	q := createTestQuest(t, repo, u.TelegramID, "call the client", time.Now().UTC())

	errBoom := errors.New("boom")
	_, _, err := repo.CompleteQuest(ctx, q.ID, func(user *model.User, quest *model.Quest) error {
		user.XP += 1000
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	stored, err := repo.GetQuest(ctx, q.ID)
	require.NoError(t, err)
	assert.False(t, stored.Completed, "failed apply rolls back")

	completedAt := time.Now().UTC().Truncate(time.Second)
	user, quest, err := repo.CompleteQuest(ctx, q.ID, func(user *model.User, quest *model.Quest) error {
		quest.CompletedAt = &completedAt
		user.XP += quest.XP
		user.Level = model.LevelForXP(user.XP)
		user.TotalQuestsCompleted++
		user.Streak = 1
		user.LastCompletedAt = &completedAt
		user.ActivityLog = append(user.ActivityLog, model.ActivityEntry{Date: "2024-01-10", QuestsCompleted: 1, XPGained: quest.XP, Quests: []string{quest.Title}})
		return nil
	})
	require.NoError(t, err)
	assert.True(t, quest.Completed)
	assert.Equal(t, 15, user.XP)

	got, err := repo.GetUserByTelegramID(ctx, u.TelegramID)
	require.NoError(t, err)
	assert.Equal(t, 15, got.XP)
	assert.Equal(t, 1, got.TotalQuestsCompleted)
	assert.Equal(t, 1, got.Streak)
	require.Len(t, got.ActivityLog, 1)
	assert.Equal(t, []string{"call the client"}, got.ActivityLog[0].Quests)

	_, _, err = repo.CompleteQuest(ctx, q.ID, func(*model.User, *model.Quest) error { return nil })
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	_, _, err = repo.CompleteQuest(ctx, uuid.New(), func(*model.User, *model.Quest) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)

	active, err := repo.ListActiveQuests(ctx, u.TelegramID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRepository_DeadlineFlags(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	u := createTestUser(t, repo)
	q := createTestQuest(t, repo, u.TelegramID, "report", time.Now().UTC())

	deadline := time.Now().UTC().Add(90 * time.Minute)
	require.NoError(t, repo.SetQuestDeadline(ctx, q.ID, &deadline))

	withDeadline, err := repo.ListQuestsWithDeadline(ctx)
	require.NoError(t, err)
	found := false
	for _, wq := range withDeadline {
		if wq.ID == q.ID {
			found = true
		}
	}
	assert.True(t, found)

	claimed, err := repo.MarkDeadlineNotified(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.MarkDeadlineNotified(ctx, q.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	_, err = repo.db.ExecContext(ctx, `UPDATE users SET streak = 4 WHERE telegram_id = $1`, u.TelegramID)
	require.NoError(t, err)

	claimed, err = repo.MarkOverdue(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.MarkOverdue(ctx, q.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := repo.GetUserByTelegramID(ctx, u.TelegramID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Streak)

	stored, err := repo.GetQuest(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, stored.Overdue)
	assert.False(t, stored.Completed)
}

func TestRepository_AnalyticsAndFeedback(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	u := createTestUser(t, repo)
	since := time.Now().UTC().Add(-time.Minute)
	name := "test_event_" + uuid.NewString()

	require.NoError(t, repo.SaveEvent(ctx, &model.Event{
		ID:        uuid.New(),
		UserID:    u.TelegramID,
		Name:      name,
		Payload:   map[string]any{"xp": 10},
		CreatedAt: time.Now().UTC(),
	}))

	n, err := repo.CountEvents(ctx, name, since)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.SaveFeedback(ctx, &model.Feedback{
		ID:        uuid.New(),
		UserID:    u.TelegramID,
		Username:  u.Username,
		Text:      "love the dragons",
		CreatedAt: time.Now().UTC(),
	}))

	list, err := repo.ListFeedback(ctx, 50)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	require.NoError(t, repo.SaveEvent(ctx, &model.Event{
		ID:        uuid.New(),
		UserID:    u.TelegramID,
		Name:      model.EventReminderSent,
		CreatedAt: time.Now().UTC(),
	}))

	stats, err := repo.GetStats(ctx, since)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalUsers, 1)
	assert.GreaterOrEqual(t, stats.RemindersSentToday, 1)
	assert.GreaterOrEqual(t, stats.FeedbackCount, 1)
}
