package reminder

import (
	"context"
	"sync/atomic"
	"time"

	"questbot/internal/calendar"
	"questbot/internal/model"
	"questbot/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency       = 8
	DefaultDeadlineLookahead = 2 * time.Hour
)

type UserStore interface {
	ListUsers(ctx context.Context) ([]*model.User, error)
	MarkReminderSent(ctx context.Context, telegramID int64, date string, at time.Time) error
}

type QuestStore interface {
	ListActiveQuests(ctx context.Context, userID int64) ([]*model.Quest, error)
	ListQuestsWithDeadline(ctx context.Context) ([]*model.Quest, error)
	MarkDeadlineNotified(ctx context.Context, questID uuid.UUID) (bool, error)
	MarkOverdue(ctx context.Context, questID uuid.UUID) (bool, error)
}

// Blackout reports whether reminders are suppressed for a zone at an instant.
// Implementations must not fail: an unknown answer is "not blacked out".
type Blackout interface {
	InBlackout(ctx context.Context, loc *time.Location, now time.Time) bool
}

type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
}

type EventTracker interface {
	Track(userID int64, name string, payload map[string]any)
}

type Config struct {
	Concurrency       int           `yaml:"concurrency"`
	DeadlineLookahead time.Duration `yaml:"deadlineLookahead"`
}

// TickReport counts what happened to each user and quest during one tick.
type TickReport struct {
	Checked          int
	Sent             int
	Failed           int
	SkippedDisabled  int
	SkippedTime      int
	SkippedAlready   int
	SkippedBlackout  int
	DeadlineAlerts   int
	OverdueAlerts    int
	DeadlineFailures int
}

type Engine struct {
	users    UserStore
	quests   QuestStore
	blackout Blackout
	notifier Notifier
	events   EventTracker
	cfg      Config
}

func NewEngine(users UserStore, quests QuestStore, blackout Blackout, notifier Notifier, events EventTracker, cfg Config) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.DeadlineLookahead <= 0 {
		cfg.DeadlineLookahead = DefaultDeadlineLookahead
	}
	return &Engine{
		users:    users,
		quests:   quests,
		blackout: blackout,
		notifier: notifier,
		events:   events,
		cfg:      cfg,
	}
}

// Tick runs one scheduler pass: daily reminders first, then the deadline sweep.
func (e *Engine) Tick(ctx context.Context, now time.Time) TickReport {
	var report TickReport
	e.SendReminders(ctx, now, &report)
	e.SweepDeadlines(ctx, now, &report)

	logger.Logger().Info("reminder tick finished",
		zap.Int("checked", report.Checked),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("skipped_already", report.SkippedAlready),
		zap.Int("skipped_blackout", report.SkippedBlackout),
		zap.Int("deadline_alerts", report.DeadlineAlerts),
		zap.Int("overdue_alerts", report.OverdueAlerts))

	return report
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeDisabled
	outcomeNotTime
	outcomeAlreadySent
	outcomeBlackout
)

// SendReminders checks every user concurrently. A failure for one user is
// logged and never stops the others.
func (e *Engine) SendReminders(ctx context.Context, now time.Time, report *TickReport) {
	log := logger.Logger()

	users, err := e.users.ListUsers(ctx)
	if err != nil {
		log.Error("failed to list users for reminders", zap.Error(err))
		return
	}

	var counters [outcomeBlackout + 1]atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, user := range users {
		user := user
		g.Go(func() error {
			counters[e.processUser(gctx, user, now)].Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report.Checked += len(users)
	report.Sent += int(counters[outcomeSent].Load())
	report.Failed += int(counters[outcomeFailed].Load())
	report.SkippedDisabled += int(counters[outcomeDisabled].Load())
	report.SkippedTime += int(counters[outcomeNotTime].Load())
	report.SkippedAlready += int(counters[outcomeAlreadySent].Load())
	report.SkippedBlackout += int(counters[outcomeBlackout].Load())
}

func (e *Engine) processUser(ctx context.Context, user *model.User, now time.Time) outcome {
	log := logger.Logger().With(zap.Int64("telegram_id", user.TelegramID))

	if user.Settings.ReminderTime == "" {
		return outcomeDisabled
	}

	loc := calendar.LoadLocation(user.Settings.TimeZone)
	if calendar.LocalClock(now, loc) != user.Settings.ReminderTime {
		return outcomeNotTime
	}

	today := calendar.LocalDate(now, loc)
	if user.LastReminderSentDate == today {
		return outcomeAlreadySent
	}

	if e.blackout.InBlackout(ctx, loc, now) {
		log.Info("reminder suppressed by blackout window", zap.String("timezone", loc.String()))
		return outcomeBlackout
	}

	quests, err := e.quests.ListActiveQuests(ctx, user.TelegramID)
	if err != nil {
		log.Warn("failed to list active quests for reminder", zap.Error(err))
		return outcomeFailed
	}

	result := outcomeSent
	if err := e.notifier.Notify(ctx, reminderNotification(user, quests, now, loc, model.NotificationReminder)); err != nil {
		log.Warn("failed to deliver reminder", zap.Error(err))
		result = outcomeFailed
	}

	// Stamped even after a failed send so a broken chat is not retried every minute.
	if err := e.users.MarkReminderSent(ctx, user.TelegramID, today, now.UTC()); err != nil {
		log.Error("failed to stamp reminder date", zap.String("date", today), zap.Error(err))
	}

	if result == outcomeSent {
		e.events.Track(user.TelegramID, model.EventReminderSent, map[string]any{
			"activeQuests": len(quests),
			"date":         today,
		})
	}

	return result
}

// SendPreview delivers the reminder the user would get right now, ignoring
// the configured time, the daily stamp and blackout windows.
func (e *Engine) SendPreview(ctx context.Context, user *model.User, now time.Time) error {
	quests, err := e.quests.ListActiveQuests(ctx, user.TelegramID)
	if err != nil {
		return err
	}

	loc := calendar.LoadLocation(user.Settings.TimeZone)
	return e.notifier.Notify(ctx, reminderNotification(user, quests, now, loc, model.NotificationReminderPreview))
}

// SweepDeadlines alerts owners of quests whose deadline is close or has
// passed. Each alert is claimed in the store before it is sent, so a quest
// never gets the same alert twice.
func (e *Engine) SweepDeadlines(ctx context.Context, now time.Time, report *TickReport) {
	log := logger.Logger()

	quests, err := e.quests.ListQuestsWithDeadline(ctx)
	if err != nil {
		log.Error("failed to list quests with deadlines", zap.Error(err))
		return
	}

	horizon := now.Add(e.cfg.DeadlineLookahead)
	for _, quest := range quests {
		if quest.Deadline == nil || quest.Completed {
			continue
		}
		deadline := *quest.Deadline

		switch {
		case deadline.After(now) && !deadline.After(horizon) && !quest.DeadlineNotified:
			claimed, err := e.quests.MarkDeadlineNotified(ctx, quest.ID)
			if err != nil {
				log.Warn("failed to claim deadline alert", zap.String("quest_id", quest.ID.String()), zap.Error(err))
				report.DeadlineFailures++
				continue
			}
			if !claimed {
				continue
			}
			if err := e.notifier.Notify(ctx, deadlineSoonNotification(quest, now)); err != nil {
				log.Warn("failed to deliver deadline alert", zap.String("quest_id", quest.ID.String()), zap.Error(err))
				report.DeadlineFailures++
				continue
			}
			report.DeadlineAlerts++

		case deadline.Before(now) && !quest.Overdue:
			claimed, err := e.quests.MarkOverdue(ctx, quest.ID)
			if err != nil {
				log.Warn("failed to mark quest overdue", zap.String("quest_id", quest.ID.String()), zap.Error(err))
				report.DeadlineFailures++
				continue
			}
			if !claimed {
				continue
			}
			log.Info("quest overdue, streak reset",
				zap.Int64("telegram_id", quest.UserID),
				zap.Int("quest_number", quest.QuestNumber))
			if err := e.notifier.Notify(ctx, overdueNotification(quest)); err != nil {
				log.Warn("failed to deliver overdue alert", zap.String("quest_id", quest.ID.String()), zap.Error(err))
				report.DeadlineFailures++
				continue
			}
			report.OverdueAlerts++
		}
	}
}
