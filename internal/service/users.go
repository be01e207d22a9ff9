package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"questbot/internal/calendar"
	"questbot/internal/model"
	"questbot/internal/repository"

	"github.com/google/uuid"
)

const (
	leaderboardSize   = 10
	maxFeedbackLength = 2000
)

type UserService struct {
	repo   UserRepository
	events EventTracker
	now    func() time.Time
}

func NewUserService(repo UserRepository, events EventTracker) *UserService {
	return &UserService{
		repo:   repo,
		events: events,
		now:    time.Now,
	}
}

// EnsureUser registers the user on first contact. Later calls only refresh
// last activity. The boolean reports whether the user was created.
func (s *UserService) EnsureUser(ctx context.Context, telegramID int64, username, firstName string) (*model.User, bool, error) {
	now := s.now().UTC()
	created, err := s.repo.CreateUser(ctx, &model.User{
		TelegramID:   telegramID,
		Username:     username,
		FirstName:    firstName,
		Settings:     model.DefaultSettings(),
		CreatedAt:    now,
		LastActiveAt: now,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to register user: %w", err)
	}

	if created {
		s.events.Track(telegramID, model.EventUserCreated, map[string]any{"username": username})
	}

	user, err := s.GetUser(ctx, telegramID)
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

func (s *UserService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.repo.ListUsers(ctx)
}

// SetReminderTime accepts HH:MM, or "off" to disable reminders.
func (s *UserService) SetReminderTime(ctx context.Context, telegramID int64, clock string) (*model.User, error) {
	clock = strings.TrimSpace(clock)
	value := ""
	if !strings.EqualFold(clock, "off") {
		parsed, ok := calendar.ParseClock(clock)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidReminderAt, clock)
		}
		value = parsed
	}

	return s.updateSettings(ctx, telegramID, func(settings *model.Settings) {
		settings.ReminderTime = value
	})
}

func (s *UserService) SetTimeZone(ctx context.Context, telegramID int64, zone string) (*model.User, error) {
	zone = strings.TrimSpace(zone)
	if !calendar.IsValidTimeZone(zone) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
	}

	return s.updateSettings(ctx, telegramID, func(settings *model.Settings) {
		settings.TimeZone = zone
	})
}

func (s *UserService) SetTheme(ctx context.Context, telegramID int64, theme model.Theme) (*model.User, error) {
	if !theme.IsValid() {
		return nil, fmt.Errorf("%w: unknown theme %q", ErrValidation, theme)
	}

	return s.updateSettings(ctx, telegramID, func(settings *model.Settings) {
		settings.Theme = theme
	})
}

func (s *UserService) updateSettings(ctx context.Context, telegramID int64, change func(*model.Settings)) (*model.User, error) {
	user, err := s.GetUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	change(&user.Settings)

	if err := s.repo.UpdateSettings(ctx, telegramID, user.Settings); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	return user, nil
}

func (s *UserService) GetLeaderboard(ctx context.Context) ([]*model.User, error) {
	return s.repo.GetTopUsers(ctx, leaderboardSize)
}

func (s *UserService) SubmitFeedback(ctx context.Context, telegramID int64, username, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: empty feedback", ErrValidation)
	}
	if utf8.RuneCountInString(text) > maxFeedbackLength {
		return ErrFeedbackTooLong
	}

	err := s.repo.SaveFeedback(ctx, &model.Feedback{
		ID:        uuid.New(),
		UserID:    telegramID,
		Username:  username,
		Text:      text,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	s.events.Track(telegramID, model.EventFeedbackSent, map[string]any{"length": utf8.RuneCountInString(text)})
	return nil
}

// GetStats reports totals, counting users active since UTC midnight.
func (s *UserService) GetStats(ctx context.Context) (*model.Stats, error) {
	return s.repo.GetStats(ctx, calendar.DayStart(s.now(), time.UTC))
}
