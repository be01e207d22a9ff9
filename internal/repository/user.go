package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"questbot/internal/calendar"
	"questbot/internal/model"
	"questbot/pkg/logger"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type User struct {
	TelegramID           int64          `db:"telegram_id"`
	Username             string         `db:"username"`
	FirstName            string         `db:"first_name"`
	XP                   int            `db:"xp"`
	Level                int            `db:"level"`
	TotalQuestsCompleted int            `db:"total_quests_completed"`
	Streak               int            `db:"streak"`
	Badges               pq.StringArray `db:"badges"`
	ReminderTime         sql.NullString `db:"reminder_time"`
	TimeZone             sql.NullString `db:"timezone"`
	Theme                sql.NullString `db:"theme"`
	Language             sql.NullString `db:"language"`
	NextQuestNumber      int            `db:"next_quest_number"`
	ActivityLog          []byte         `db:"activity_log"`
	CreatedAt            time.Time      `db:"created_at"`
	LastActiveAt         time.Time      `db:"last_active_at"`
	LastCompletedAt      *time.Time     `db:"last_completed_at"`
	LastReminderSentDate sql.NullString `db:"last_reminder_sent_date"`
	LastReminderSentAt   *time.Time     `db:"last_reminder_sent_at"`
}

// normalize brings a row written by an older schema version up to date.
// It returns the names of the fields it had to fill in.
func (u *User) normalize() []string {
	var fixed []string

	if !u.ReminderTime.Valid {
		u.ReminderTime = sql.NullString{String: model.DefaultReminderTime, Valid: true}
		fixed = append(fixed, "reminder_time")
	}
	if !u.TimeZone.Valid || !calendar.IsValidTimeZone(u.TimeZone.String) {
		u.TimeZone = sql.NullString{String: model.DefaultTimeZone, Valid: true}
		fixed = append(fixed, "timezone")
	}
	if !u.Theme.Valid || !model.Theme(u.Theme.String).IsValid() {
		u.Theme = sql.NullString{String: string(model.DefaultTheme), Valid: true}
		fixed = append(fixed, "theme")
	}
	if !u.Language.Valid || u.Language.String == "" {
		u.Language = sql.NullString{String: model.DefaultLanguage, Valid: true}
		fixed = append(fixed, "language")
	}
	if u.Badges == nil {
		u.Badges = pq.StringArray{}
		fixed = append(fixed, "badges")
	}
	if len(u.ActivityLog) == 0 || !json.Valid(u.ActivityLog) {
		u.ActivityLog = []byte("[]")
		fixed = append(fixed, "activity_log")
	}
	if u.Streak < 0 {
		u.Streak = 0
		fixed = append(fixed, "streak")
	}
	if u.Level != model.LevelForXP(u.XP) {
		u.Level = model.LevelForXP(u.XP)
		fixed = append(fixed, "level")
	}

	return fixed
}

func (u *User) toModel() (*model.User, error) {
	var activity []model.ActivityEntry
	if err := json.Unmarshal(u.ActivityLog, &activity); err != nil {
		return nil, fmt.Errorf("failed to decode activity log: %w", err)
	}
	if activity == nil {
		activity = []model.ActivityEntry{}
	}

	return &model.User{
		TelegramID:           u.TelegramID,
		Username:             u.Username,
		FirstName:            u.FirstName,
		XP:                   u.XP,
		Level:                u.Level,
		TotalQuestsCompleted: u.TotalQuestsCompleted,
		Streak:               u.Streak,
		Badges:               []string(u.Badges),
		Settings: model.Settings{
			ReminderTime: u.ReminderTime.String,
			TimeZone:     u.TimeZone.String,
			Theme:        model.Theme(u.Theme.String),
			Language:     u.Language.String,
		},
		NextQuestNumber:      u.NextQuestNumber,
		CreatedAt:            u.CreatedAt,
		LastActiveAt:         u.LastActiveAt,
		LastCompletedAt:      u.LastCompletedAt,
		LastReminderSentDate: u.LastReminderSentDate.String,
		LastReminderSentAt:   u.LastReminderSentAt,
		ActivityLog:          activity,
	}, nil
}

// CreateUser inserts a new user with default settings. For an existing user it
// only refreshes last_active_at. The boolean reports whether a row was inserted.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) (bool, error) {
	settings := user.Settings
	if settings == (model.Settings{}) {
		settings = model.DefaultSettings()
	}

	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"telegram_id":    user.TelegramID,
			"username":       user.Username,
			"first_name":     user.FirstName,
			"xp":             0,
			"level":          1,
			"streak":         0,
			"badges":         pq.Array([]string{}),
			"reminder_time":  settings.ReminderTime,
			"timezone":       settings.TimeZone,
			"theme":          string(settings.Theme),
			"language":       settings.Language,
			"activity_log":   "[]",
			"created_at":     user.CreatedAt,
			"last_active_at": user.LastActiveAt,
		}).
		Suffix("ON CONFLICT (telegram_id) DO UPDATE SET last_active_at = EXCLUDED.last_active_at RETURNING (xmax = 0)").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build user insert query: %w", err)
	}

	var inserted bool
	if err := r.db.GetContext(ctx, &inserted, query, args...); err != nil {
		return false, fmt.Errorf("failed to insert user: %w", err)
	}

	return inserted, nil
}

// GetUserByTelegramID returns the normalized user. Rows that needed
// normalization are written back once.
func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user User
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if fixed := user.normalize(); len(fixed) > 0 {
		if err := r.saveNormalized(ctx, &user); err != nil {
			return nil, err
		}
		logger.Logger().Info("user record normalized",
			zap.Int64("telegram_id", telegramID),
			zap.Strings("fields", fixed))
	}

	return user.toModel()
}

func (r *Repository) saveNormalized(ctx context.Context, user *User) error {
	query, args, err := squirrel.
		Update("users").
		SetMap(map[string]interface{}{
			"reminder_time": user.ReminderTime.String,
			"timezone":      user.TimeZone.String,
			"theme":         user.Theme.String,
			"language":      user.Language.String,
			"badges":        pq.Array([]string(user.Badges)),
			"activity_log":  string(user.ActivityLog),
			"streak":        user.Streak,
			"level":         user.Level,
		}).
		Where(squirrel.Eq{"telegram_id": user.TelegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user normalize query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save normalized user: %w", err)
	}
	return nil
}

// ListUsers returns every user, normalized in memory.
func (r *Repository) ListUsers(ctx context.Context) ([]*model.User, error) {
	query, args, err := squirrel.
		Select("*").
		From("users").
		OrderBy("telegram_id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []User
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*model.User, 0, len(rows))
	for i := range rows {
		rows[i].normalize()
		u, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, nil
}

func (r *Repository) UpdateSettings(ctx context.Context, telegramID int64, settings model.Settings) error {
	query, args, err := squirrel.
		Update("users").
		SetMap(map[string]interface{}{
			"reminder_time": settings.ReminderTime,
			"timezone":      settings.TimeZone,
			"theme":         string(settings.Theme),
			"language":      settings.Language,
		}).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build settings update query: %w", err)
	}

	return r.execAffecting(ctx, r.db, query, args)
}

// MarkReminderSent stamps the local date the last reminder went out for.
func (r *Repository) MarkReminderSent(ctx context.Context, telegramID int64, date string, at time.Time) error {
	query, args, err := squirrel.
		Update("users").
		Set("last_reminder_sent_date", date).
		Set("last_reminder_sent_at", at).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build reminder stamp query: %w", err)
	}

	return r.execAffecting(ctx, r.db, query, args)
}

func (r *Repository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	query, args, err := squirrel.
		Select("*").
		From("users").
		OrderBy("xp DESC", "total_quests_completed DESC", "telegram_id").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []User
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	users := make([]*model.User, 0, len(rows))
	for i := range rows {
		rows[i].normalize()
		u, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, nil
}

// GetStats aggregates counters for the admin report. Users active since
// activeSince count as active today.
func (r *Repository) GetStats(ctx context.Context, activeSince time.Time) (*model.Stats, error) {
	var stats model.Stats

	counters := []struct {
		dst     *int
		builder squirrel.SelectBuilder
	}{
		{&stats.TotalUsers, squirrel.Select("COUNT(*)").From("users")},
		{&stats.ActiveToday, squirrel.Select("COUNT(*)").From("users").Where(squirrel.GtOrEq{"last_active_at": activeSince})},
		{&stats.TotalQuests, squirrel.Select("COUNT(*)").From("quests")},
		{&stats.CompletedQuests, squirrel.Select("COUNT(*)").From("quests").Where(squirrel.Eq{"completed": true})},
		{&stats.ActiveQuests, squirrel.Select("COUNT(*)").From("quests").Where(squirrel.Eq{"completed": false})},
		{&stats.OverdueQuests, squirrel.Select("COUNT(*)").From("quests").Where(squirrel.Eq{"completed": false, "overdue": true})},
		{&stats.FeedbackCount, squirrel.Select("COUNT(*)").From("feedback")},
	}

	for _, c := range counters {
		query, args, err := c.builder.PlaceholderFormat(squirrel.Dollar).ToSql()
		if err != nil {
			return nil, err
		}
		if err := r.db.GetContext(ctx, c.dst, query, args...); err != nil {
			return nil, fmt.Errorf("failed to count stats: %w", err)
		}
	}

	sent, err := r.CountEvents(ctx, model.EventReminderSent, activeSince)
	if err != nil {
		return nil, err
	}
	stats.RemindersSentToday = sent

	return &stats, nil
}

func (r *Repository) getUserForUpdate(ctx context.Context, tx *sqlx.Tx, telegramID int64) (*User, error) {
	var user User
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		Suffix("FOR UPDATE").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	user.normalize()
	return &user, nil
}

func (r *Repository) saveProgressWithTx(ctx context.Context, tx *sqlx.Tx, user *model.User) error {
	activity, err := json.Marshal(user.ActivityLog)
	if err != nil {
		return fmt.Errorf("failed to encode activity log: %w", err)
	}

	query, args, err := squirrel.
		Update("users").
		SetMap(map[string]interface{}{
			"xp":                     user.XP,
			"level":                  user.Level,
			"total_quests_completed": user.TotalQuestsCompleted,
			"streak":                 user.Streak,
			"activity_log":           string(activity),
			"last_active_at":         user.LastActiveAt,
			"last_completed_at":      user.LastCompletedAt,
		}).
		Where(squirrel.Eq{"telegram_id": user.TelegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build progress update query: %w", err)
	}

	return r.execAffecting(ctx, tx, query, args)
}

func (r *Repository) execAffecting(ctx context.Context, db sqlx.ExecerContext, query string, args []interface{}) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
