package mocks

import (
	"context"
	"sync"
	"time"

	"questbot/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) ListUsers(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	if u := args.Get(0); u != nil {
		return u.([]*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) UpdateSettings(ctx context.Context, telegramID int64, settings model.Settings) error {
	args := m.Called(ctx, telegramID, settings)
	return args.Error(0)
}

func (m *MockUserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	args := m.Called(ctx, limit)
	if u := args.Get(0); u != nil {
		return u.([]*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetStats(ctx context.Context, activeSince time.Time) (*model.Stats, error) {
	args := m.Called(ctx, activeSince)
	if s := args.Get(0); s != nil {
		return s.(*model.Stats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) SaveFeedback(ctx context.Context, feedback *model.Feedback) error {
	args := m.Called(ctx, feedback)
	return args.Error(0)
}

type MockQuestRepository struct {
	mock.Mock
}

func (m *MockQuestRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQuestRepository) CreateQuest(ctx context.Context, quest *model.Quest) error {
	args := m.Called(ctx, quest)
	return args.Error(0)
}

func (m *MockQuestRepository) GetQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	args := m.Called(ctx, questID)
	if q := args.Get(0); q != nil {
		return q.(*model.Quest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQuestRepository) ListActiveQuests(ctx context.Context, userID int64) ([]*model.Quest, error) {
	args := m.Called(ctx, userID)
	if q := args.Get(0); q != nil {
		return q.([]*model.Quest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQuestRepository) ListActiveQuestsCreatedBetween(ctx context.Context, userID int64, from, to time.Time) ([]*model.Quest, error) {
	args := m.Called(ctx, userID, from, to)
	if q := args.Get(0); q != nil {
		return q.([]*model.Quest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQuestRepository) DeleteQuest(ctx context.Context, questID uuid.UUID) error {
	args := m.Called(ctx, questID)
	return args.Error(0)
}

func (m *MockQuestRepository) SetQuestDeadline(ctx context.Context, questID uuid.UUID, deadline *time.Time) error {
	args := m.Called(ctx, questID, deadline)
	return args.Error(0)
}

// CompleteQuest hands the stubbed user and quest to apply, the way the real
// repository does inside its transaction. Stubs return (*model.User, *model.Quest, error).
func (m *MockQuestRepository) CompleteQuest(ctx context.Context, questID uuid.UUID, apply func(user *model.User, quest *model.Quest) error) (*model.User, *model.Quest, error) {
	args := m.Called(ctx, questID)
	if err := args.Error(2); err != nil {
		return nil, nil, err
	}

	user := args.Get(0).(*model.User)
	quest := args.Get(1).(*model.Quest)
	if err := apply(user, quest); err != nil {
		return nil, nil, err
	}

	quest.Completed = true
	return user, quest, nil
}

type MockStoryGenerator struct {
	mock.Mock
}

func (m *MockStoryGenerator) Generate(ctx context.Context, taskText string, theme model.Theme) (string, error) {
	args := m.Called(ctx, taskText, theme)
	return args.String(0), args.Error(1)
}

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) SaveEvent(ctx context.Context, event *model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// EventRecorder is an in-memory EventTracker.
type EventRecorder struct {
	mu     sync.Mutex
	Events []model.Event
}

func (r *EventRecorder) Track(userID int64, name string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, model.Event{UserID: userID, Name: name, Payload: payload})
}

func (r *EventRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		names = append(names, e.Name)
	}
	return names
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) EnsureUser(ctx context.Context, telegramID int64, username, firstName string) (*model.User, bool, error) {
	args := m.Called(ctx, telegramID, username, firstName)
	u, _ := args.Get(0).(*model.User)
	return u, args.Bool(1), args.Error(2)
}

func (m *MockUserService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).([]*model.User)
	return u, args.Error(1)
}

func (m *MockUserService) SetReminderTime(ctx context.Context, telegramID int64, clock string) (*model.User, error) {
	args := m.Called(ctx, telegramID, clock)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserService) SetTimeZone(ctx context.Context, telegramID int64, zone string) (*model.User, error) {
	args := m.Called(ctx, telegramID, zone)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserService) SetTheme(ctx context.Context, telegramID int64, theme model.Theme) (*model.User, error) {
	args := m.Called(ctx, telegramID, theme)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserService) GetLeaderboard(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).([]*model.User)
	return u, args.Error(1)
}

func (m *MockUserService) SubmitFeedback(ctx context.Context, telegramID int64, username, text string) error {
	args := m.Called(ctx, telegramID, username, text)
	return args.Error(0)
}

func (m *MockUserService) GetStats(ctx context.Context) (*model.Stats, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*model.Stats)
	return s, args.Error(1)
}

type MockQuestService struct {
	mock.Mock
}

func (m *MockQuestService) CreateQuest(ctx context.Context, telegramID int64, taskText string) (*model.Quest, error) {
	args := m.Called(ctx, telegramID, taskText)
	q, _ := args.Get(0).(*model.Quest)
	return q, args.Error(1)
}

func (m *MockQuestService) CompleteQuest(ctx context.Context, telegramID int64, questID uuid.UUID) (*model.CompletionResult, error) {
	args := m.Called(ctx, telegramID, questID)
	r, _ := args.Get(0).(*model.CompletionResult)
	return r, args.Error(1)
}

func (m *MockQuestService) DeleteQuest(ctx context.Context, telegramID int64, questID uuid.UUID) error {
	args := m.Called(ctx, telegramID, questID)
	return args.Error(0)
}

func (m *MockQuestService) ListActive(ctx context.Context, telegramID int64) ([]*model.Quest, error) {
	args := m.Called(ctx, telegramID)
	q, _ := args.Get(0).([]*model.Quest)
	return q, args.Error(1)
}

func (m *MockQuestService) ListToday(ctx context.Context, telegramID int64) ([]*model.Quest, error) {
	args := m.Called(ctx, telegramID)
	q, _ := args.Get(0).([]*model.Quest)
	return q, args.Error(1)
}

func (m *MockQuestService) SetDeadline(ctx context.Context, telegramID int64, questID uuid.UUID, preset model.DeadlinePreset) (*model.Quest, error) {
	args := m.Called(ctx, telegramID, questID, preset)
	q, _ := args.Get(0).(*model.Quest)
	return q, args.Error(1)
}
