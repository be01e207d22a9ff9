package service

import (
	"context"
	"errors"
	"time"

	"questbot/internal/model"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrQuestNotFound     = errors.New("quest not found")
	ErrNotOwner          = errors.New("quest belongs to another user")
	ErrAlreadyCompleted  = errors.New("quest already completed")
	ErrValidation        = errors.New("validation failed")
	ErrUnknownPreset     = errors.New("unknown deadline preset")
	ErrFeedbackTooLong   = errors.New("feedback is too long")
	ErrInvalidTimeZone   = errors.New("invalid time zone")
	ErrInvalidReminderAt = errors.New("invalid reminder time")
)

type Service struct {
	*UserService
	*QuestService
}

func NewService(userService *UserService, questService *QuestService) *Service {
	return &Service{
		UserService:  userService,
		QuestService: questService,
	}
}

type UserServiceI interface {
	EnsureUser(ctx context.Context, telegramID int64, username, firstName string) (*model.User, bool, error)
	GetUser(ctx context.Context, telegramID int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	SetReminderTime(ctx context.Context, telegramID int64, clock string) (*model.User, error)
	SetTimeZone(ctx context.Context, telegramID int64, zone string) (*model.User, error)
	SetTheme(ctx context.Context, telegramID int64, theme model.Theme) (*model.User, error)
	GetLeaderboard(ctx context.Context) ([]*model.User, error)
	SubmitFeedback(ctx context.Context, telegramID int64, username, text string) error
	GetStats(ctx context.Context) (*model.Stats, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (bool, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	UpdateSettings(ctx context.Context, telegramID int64, settings model.Settings) error
	GetTopUsers(ctx context.Context, limit int) ([]*model.User, error)
	GetStats(ctx context.Context, activeSince time.Time) (*model.Stats, error)
	SaveFeedback(ctx context.Context, feedback *model.Feedback) error
}

type QuestServiceI interface {
	CreateQuest(ctx context.Context, telegramID int64, taskText string) (*model.Quest, error)
	CompleteQuest(ctx context.Context, telegramID int64, questID uuid.UUID) (*model.CompletionResult, error)
	DeleteQuest(ctx context.Context, telegramID int64, questID uuid.UUID) error
	ListActive(ctx context.Context, telegramID int64) ([]*model.Quest, error)
	ListToday(ctx context.Context, telegramID int64) ([]*model.Quest, error)
	SetDeadline(ctx context.Context, telegramID int64, questID uuid.UUID, preset model.DeadlinePreset) (*model.Quest, error)
}

type QuestRepository interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	CreateQuest(ctx context.Context, quest *model.Quest) error
	GetQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error)
	ListActiveQuests(ctx context.Context, userID int64) ([]*model.Quest, error)
	ListActiveQuestsCreatedBetween(ctx context.Context, userID int64, from, to time.Time) ([]*model.Quest, error)
	DeleteQuest(ctx context.Context, questID uuid.UUID) error
	SetQuestDeadline(ctx context.Context, questID uuid.UUID, deadline *time.Time) error
	CompleteQuest(ctx context.Context, questID uuid.UUID, apply func(user *model.User, quest *model.Quest) error) (*model.User, *model.Quest, error)
}

type EventRepository interface {
	SaveEvent(ctx context.Context, event *model.Event) error
}

// StoryGenerator turns a task into a quest narrative.
type StoryGenerator interface {
	Generate(ctx context.Context, taskText string, theme model.Theme) (string, error)
}

// EventTracker records analytics events without blocking or failing the caller.
type EventTracker interface {
	Track(userID int64, name string, payload map[string]any)
}
