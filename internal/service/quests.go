package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"questbot/internal/calendar"
	"questbot/internal/model"
	"questbot/internal/repository"
	"questbot/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FallbackStory replaces the narrative when the generator is unavailable.
const FallbackStory = "The chroniclers are silent today, so this quest comes without a legend. Do it anyway and make it look honest."

const storyTimeout = 10 * time.Second

type QuestService struct {
	repo    QuestRepository
	stories StoryGenerator
	events  EventTracker
	now     func() time.Time
}

func NewQuestService(repo QuestRepository, stories StoryGenerator, events EventTracker) *QuestService {
	return &QuestService{
		repo:    repo,
		stories: stories,
		events:  events,
		now:     time.Now,
	}
}

func (s *QuestService) CreateQuest(ctx context.Context, telegramID int64, taskText string) (*model.Quest, error) {
	log := logger.Logger()

	title := strings.TrimSpace(taskText)
	if title == "" {
		return nil, fmt.Errorf("%w: empty task text", ErrValidation)
	}

	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	theme := user.Settings.Theme
	if !theme.IsValid() {
		theme = model.DefaultTheme
	}

	storyCtx, cancel := context.WithTimeout(ctx, storyTimeout)
	story, err := s.stories.Generate(storyCtx, title, theme)
	cancel()
	if err != nil {
		log.Warn("story generation failed, using fallback",
			zap.Int64("telegram_id", telegramID),
			zap.Error(err))
		story = FallbackStory
	}

	quest := &model.Quest{
		ID:        uuid.New(),
		UserID:    telegramID,
		Title:     title,
		Story:     story,
		XP:        QuestReward(title),
		Theme:     theme,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.CreateQuest(ctx, quest); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create quest: %w", err)
	}

	log.Info("quest created",
		zap.Int64("telegram_id", telegramID),
		zap.Int("quest_number", quest.QuestNumber),
		zap.Int("xp", quest.XP))

	s.events.Track(telegramID, model.EventQuestCreated, map[string]any{
		"questId": quest.ID.String(),
		"xp":      quest.XP,
		"theme":   string(theme),
	})

	return quest, nil
}

func (s *QuestService) CompleteQuest(ctx context.Context, telegramID int64, questID uuid.UUID) (*model.CompletionResult, error) {
	now := s.now()
	var levelBefore int

	user, quest, err := s.repo.CompleteQuest(ctx, questID, func(user *model.User, quest *model.Quest) error {
		if quest.UserID != telegramID {
			return ErrNotOwner
		}

		loc := calendar.LoadLocation(user.Settings.TimeZone)
		today := calendar.LocalDate(now, loc)
		lastActive := ""
		if user.LastCompletedAt != nil {
			lastActive = calendar.LocalDate(*user.LastCompletedAt, loc)
		}

		completedAt := now.UTC()
		quest.CompletedAt = &completedAt

		levelBefore = user.Level
		user.XP += quest.XP
		user.Level = model.LevelForXP(user.XP)
		user.TotalQuestsCompleted++
		user.Streak = NextStreak(user.Streak, lastActive, today)
		user.LastActiveAt = completedAt
		user.LastCompletedAt = &completedAt
		recordActivity(user, today, quest)

		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrQuestNotFound
		case errors.Is(err, repository.ErrAlreadyCompleted):
			return nil, ErrAlreadyCompleted
		case errors.Is(err, ErrNotOwner):
			logger.Logger().Info("completion attempt on foreign quest",
				zap.Int64("telegram_id", telegramID),
				zap.String("quest_id", questID.String()))
			return nil, ErrNotOwner
		}
		return nil, fmt.Errorf("failed to complete quest: %w", err)
	}

	result := &model.CompletionResult{
		QuestID:     quest.ID,
		QuestNumber: quest.QuestNumber,
		QuestTitle:  quest.Title,
		XPGained:    quest.XP,
		NewXP:       user.XP,
		NewLevel:    user.Level,
		NewStreak:   user.Streak,
		LevelUp:     user.Level > levelBefore,
	}

	logger.Logger().Info("quest completed",
		zap.Int64("telegram_id", telegramID),
		zap.Int("quest_number", quest.QuestNumber),
		zap.Int("xp", result.NewXP),
		zap.Int("streak", result.NewStreak))

	s.events.Track(telegramID, model.EventQuestCompleted, map[string]any{
		"questId":  quest.ID.String(),
		"xpGained": quest.XP,
		"newLevel": user.Level,
	})

	return result, nil
}

func recordActivity(user *model.User, today string, quest *model.Quest) {
	if entry := user.ActivityFor(today); entry != nil {
		entry.QuestsCompleted++
		entry.XPGained += quest.XP
		entry.Quests = append(entry.Quests, quest.Title)
		return
	}

	user.ActivityLog = append(user.ActivityLog, model.ActivityEntry{
		Date:            today,
		QuestsCompleted: 1,
		XPGained:        quest.XP,
		Quests:          []string{quest.Title},
	})
}

func (s *QuestService) DeleteQuest(ctx context.Context, telegramID int64, questID uuid.UUID) error {
	if _, err := s.ownedQuest(ctx, telegramID, questID); err != nil {
		return err
	}

	if err := s.repo.DeleteQuest(ctx, questID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestNotFound
		}
		return fmt.Errorf("failed to delete quest: %w", err)
	}

	s.events.Track(telegramID, model.EventQuestDeleted, map[string]any{"questId": questID.String()})
	return nil
}

func (s *QuestService) ListActive(ctx context.Context, telegramID int64) ([]*model.Quest, error) {
	return s.repo.ListActiveQuests(ctx, telegramID)
}

// ListToday returns active quests created during the user's current local day.
func (s *QuestService) ListToday(ctx context.Context, telegramID int64) ([]*model.Quest, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	loc := calendar.LoadLocation(user.Settings.TimeZone)
	now := s.now()

	return s.repo.ListActiveQuestsCreatedBetween(ctx, telegramID, calendar.DayStart(now, loc), calendar.NextDayStart(now, loc))
}

// SetDeadline sets the deadline to 23:59:59 of the preset's local day, or
// clears it for DeadlineNone.
func (s *QuestService) SetDeadline(ctx context.Context, telegramID int64, questID uuid.UUID, preset model.DeadlinePreset) (*model.Quest, error) {
	if !preset.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}

	quest, err := s.ownedQuest(ctx, telegramID, questID)
	if err != nil {
		return nil, err
	}
	if quest.Completed {
		return nil, ErrAlreadyCompleted
	}

	var deadline *time.Time
	if days, ok := preset.DayOffset(); ok {
		user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		d := calendar.EndOfDay(s.now(), calendar.LoadLocation(user.Settings.TimeZone), days)
		deadline = &d
	}

	if err := s.repo.SetQuestDeadline(ctx, questID, deadline); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	quest.Deadline = deadline
	quest.DeadlineNotified = false
	quest.Overdue = false
	return quest, nil
}

func (s *QuestService) ownedQuest(ctx context.Context, telegramID int64, questID uuid.UUID) (*model.Quest, error) {
	quest, err := s.repo.GetQuest(ctx, questID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, err
	}
	if quest.UserID != telegramID {
		logger.Logger().Info("access attempt on foreign quest",
			zap.Int64("telegram_id", telegramID),
			zap.String("quest_id", questID.String()))
		return nil, ErrNotOwner
	}
	return quest, nil
}
