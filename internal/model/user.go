package model

import "time"

type Theme string

const (
	ThemeLight   Theme = "light"
	ThemeBlack   Theme = "black"
	ThemeVenture Theme = "venture"
)

var Themes = []Theme{ThemeLight, ThemeBlack, ThemeVenture}

func (t Theme) IsValid() bool {
	switch t {
	case ThemeLight, ThemeBlack, ThemeVenture:
		return true
	}
	return false
}

const (
	DefaultReminderTime = "19:00"
	DefaultTimeZone     = "Europe/Moscow"
	DefaultLanguage     = "ru"
	DefaultTheme        = ThemeBlack

	XPPerLevel = 300
)

// Settings.ReminderTime is "HH:MM" in the user's zone; empty means reminders are off.
type Settings struct {
	ReminderTime string
	TimeZone     string
	Theme        Theme
	Language     string
}

func DefaultSettings() Settings {
	return Settings{
		ReminderTime: DefaultReminderTime,
		TimeZone:     DefaultTimeZone,
		Theme:        DefaultTheme,
		Language:     DefaultLanguage,
	}
}

type ActivityEntry struct {
	Date            string   `json:"date"`
	QuestsCompleted int      `json:"questsCompleted"`
	XPGained        int      `json:"xpGained"`
	Quests          []string `json:"quests"`
}

type User struct {
	TelegramID           int64
	Username             string
	FirstName            string
	XP                   int
	Level                int
	TotalQuestsCompleted int
	Streak               int
	Badges               []string
	Settings             Settings
	NextQuestNumber      int
	CreatedAt            time.Time
	LastActiveAt         time.Time
	LastCompletedAt      *time.Time
	LastReminderSentDate string
	LastReminderSentAt   *time.Time
	ActivityLog          []ActivityEntry
}

func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "adventurer"
}

// LevelForXP is floor(xp/300)+1; negative xp is treated as zero.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// ActivityFor returns the log entry for date, or nil.
func (u *User) ActivityFor(date string) *ActivityEntry {
	for i := range u.ActivityLog {
		if u.ActivityLog[i].Date == date {
			return &u.ActivityLog[i]
		}
	}
	return nil
}

type Stats struct {
	TotalUsers      int
	ActiveToday     int
	TotalQuests     int
	CompletedQuests int
	ActiveQuests    int
	OverdueQuests   int
	FeedbackCount   int
	// reminders sent since the same cutoff as ActiveToday
	RemindersSentToday int
}
