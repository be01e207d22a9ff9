package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"questbot/internal/calendar"
	"questbot/internal/model"
	"questbot/internal/report"
	"questbot/internal/service"
	"questbot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const adminFeedbackLimit = 500

// Sender is the outbound side of the chat API.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, buttons [][]model.Button) (int, error)
	SendDocument(ctx context.Context, chatID int64, fileName string, data []byte, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

type ReminderPreviewer interface {
	SendPreview(ctx context.Context, user *model.User, now time.Time) error
}

type WindowInfo interface {
	Info(ctx context.Context, loc *time.Location, now time.Time) (*calendar.Window, error)
}

type FeedbackLister interface {
	ListFeedback(ctx context.Context, limit int) ([]*model.Feedback, error)
}

type Deps struct {
	Sender    Sender
	Users     service.UserServiceI
	Quests    service.QuestServiceI
	Reminders ReminderPreviewer
	Calendar  WindowInfo
	Feedback  FeedbackLister
	Sessions  *Sessions
	AdminIDs  []int64
}

// Handler routes incoming updates to commands, callbacks and pending prompts.
type Handler struct {
	sender    Sender
	users     service.UserServiceI
	quests    service.QuestServiceI
	reminders ReminderPreviewer
	calendar  WindowInfo
	feedback  FeedbackLister
	sessions  *Sessions
	admins    map[int64]bool
	now       func() time.Time
}

func NewHandler(deps Deps) *Handler {
	sessions := deps.Sessions
	if sessions == nil {
		sessions = NewSessions(0)
	}

	admins := make(map[int64]bool, len(deps.AdminIDs))
	for _, id := range deps.AdminIDs {
		admins[id] = true
	}

	return &Handler{
		sender:    deps.Sender,
		users:     deps.Users,
		quests:    deps.Quests,
		reminders: deps.Reminders,
		calendar:  deps.Calendar,
		feedback:  deps.Feedback,
		sessions:  sessions,
		admins:    admins,
		now:       time.Now,
	}
}

func (h *Handler) isAdmin(userID int64) bool {
	return h.admins[userID]
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	log := logger.Logger()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		if update.Message.IsCommand() {
			err = h.handleCommand(ctx, update.Message)
		} else {
			err = h.handleText(ctx, update.Message)
		}
	default:
		return
	}

	if err != nil {
		log.Error("failed to handle update", zap.Int("update_id", update.UpdateID), zap.Error(err))
	}
}

type request struct {
	chatID    int64
	userID    int64
	username  string
	firstName string
}

func requestFrom(chat *tgbotapi.Chat, from *tgbotapi.User) request {
	r := request{userID: from.ID, chatID: from.ID, username: from.UserName, firstName: from.FirstName}
	if chat != nil {
		r.chatID = chat.ID
	}
	return r
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	req := requestFrom(msg.Chat, msg.From)
	args := strings.TrimSpace(msg.CommandArguments())

	if msg.Command() != "start" {
		if _, err := h.users.GetUser(ctx, req.userID); errors.Is(err, service.ErrUserNotFound) {
			if _, _, err := h.users.EnsureUser(ctx, req.userID, req.username, req.firstName); err != nil {
				return h.replyError(ctx, req, err)
			}
		}
	}

	switch msg.Command() {
	case "start":
		return h.start(ctx, req)
	case "help":
		return h.reply(ctx, req, helpText, [][]model.Button{backButtonRow()})
	case "add", "addtask":
		if args == "" {
			return h.prompt(ctx, req, EventAddRequested, "✍️ What needs to be done? Send the task text, or /cancel.")
		}
		_, err := h.createQuest(ctx, req, args)
		return err
	case "quests":
		return h.listQuests(ctx, req, false)
	case "today":
		return h.listQuests(ctx, req, true)
	case "profile":
		return h.profile(ctx, req)
	case "stats":
		return h.stats(ctx, req)
	case "leaderboard":
		return h.leaderboard(ctx, req)
	case "settings":
		return h.reply(ctx, req, "⚙️ Settings", settingsButtons())
	case "reminder":
		if args == "" {
			return h.promptReminder(ctx, req)
		}
		_, err := h.setReminder(ctx, req, args)
		return err
	case "timezone":
		if args == "" {
			return h.reply(ctx, req, "🌍 Pick your time zone, or send /timezone Area/City", timeZoneButtons())
		}
		return h.setTimeZone(ctx, req, args)
	case "theme":
		if args == "" {
			return h.reply(ctx, req, "🎨 Pick a story style", themeButtons())
		}
		return h.setTheme(ctx, req, args)
	case "feedback":
		if args == "" {
			return h.prompt(ctx, req, EventFeedbackRequested, "💬 Send your feedback as the next message, or /cancel.")
		}
		_, err := h.submitFeedback(ctx, req, args)
		return err
	case "reminder_test":
		return h.reminderPreview(ctx, req)
	case "shabbat_info":
		return h.windowInfo(ctx, req)
	case "cancel":
		if _, err := h.sessions.Fire(req.chatID, EventCancelled); err != nil {
			return err
		}
		return h.reply(ctx, req, "↩️ Cancelled.", mainMenuButtons())
	case "admin_export":
		return h.adminExport(ctx, req)
	}

	return h.reply(ctx, req, "🤔 Unknown command. See /help", nil)
}

// handleText feeds plain messages to the pending prompt, if any.
func (h *Handler) handleText(ctx context.Context, msg *tgbotapi.Message) error {
	req := requestFrom(msg.Chat, msg.From)
	text := strings.TrimSpace(msg.Text)

	var (
		accepted bool
		err      error
	)
	switch h.sessions.State(req.chatID) {
	case StateAwaitingTaskText:
		accepted, err = h.createQuest(ctx, req, text)
	case StateAwaitingFeedback:
		accepted, err = h.submitFeedback(ctx, req, text)
	case StateAwaitingReminderTime:
		accepted, err = h.setReminder(ctx, req, text)
	default:
		return h.reply(ctx, req, "Use the menu or /addtask <text> to create a quest.", mainMenuButtons())
	}

	// rejected input keeps the prompt open for a corrected retry
	if accepted {
		_, _ = h.sessions.Fire(req.chatID, EventInputAccepted)
	}
	return err
}

func (h *Handler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	if cq.From == nil {
		return nil
	}
	if err := h.sender.AnswerCallback(ctx, cq.ID, ""); err != nil {
		logger.Logger().Warn("failed to answer callback", zap.Error(err))
	}

	var chat *tgbotapi.Chat
	if cq.Message != nil {
		chat = cq.Message.Chat
	}
	req := requestFrom(chat, cq.From)

	cb, err := parseCallback(cq.Data)
	if err != nil {
		logger.Logger().Info("unknown callback", zap.String("data", cq.Data), zap.Int64("telegram_id", req.userID))
		return h.reply(ctx, req, "⚠️ Unknown action", nil)
	}

	switch cb.action {
	case actionMenu:
		return h.menu(ctx, req, cb.arg)
	case actionDone:
		return h.completeQuest(ctx, req, cb)
	case actionDelete:
		if err := h.quests.DeleteQuest(ctx, req.userID, cb.questID); err != nil {
			return h.replyError(ctx, req, err)
		}
		return h.reply(ctx, req, "🗑 Quest deleted.", nil)
	case actionDeadline:
		return h.setDeadline(ctx, req, cb)
	case actionSetTime:
		clock, ok := reminderClock(cb.arg)
		if !ok {
			return h.reply(ctx, req, "⚠️ Unknown action", nil)
		}
		_, err := h.setReminder(ctx, req, clock)
		return err
	case actionTimeZone:
		return h.setTimeZone(ctx, req, cb.arg)
	case actionTheme:
		return h.setTheme(ctx, req, cb.arg)
	}
	return nil
}

func (h *Handler) menu(ctx context.Context, req request, item string) error {
	switch item {
	case "main":
		return h.reply(ctx, req, "🗺 Main menu", mainMenuButtons())
	case "add":
		return h.prompt(ctx, req, EventAddRequested, "✍️ What needs to be done? Send the task text, or /cancel.")
	case "quests":
		return h.listQuests(ctx, req, false)
	case "today":
		return h.listQuests(ctx, req, true)
	case "profile":
		return h.profile(ctx, req)
	case "leaderboard":
		return h.leaderboard(ctx, req)
	case "settings":
		return h.reply(ctx, req, "⚙️ Settings", settingsButtons())
	case "reminder":
		return h.promptReminder(ctx, req)
	case "timezone":
		return h.reply(ctx, req, "🌍 Pick your time zone", timeZoneButtons())
	case "theme":
		return h.reply(ctx, req, "🎨 Pick a story style", themeButtons())
	case "help":
		return h.reply(ctx, req, helpText, [][]model.Button{backButtonRow()})
	}
	return h.reply(ctx, req, "⚠️ Unknown action", nil)
}

func (h *Handler) start(ctx context.Context, req request) error {
	user, created, err := h.users.EnsureUser(ctx, req.userID, req.username, req.firstName)
	if err != nil {
		return h.replyError(ctx, req, err)
	}
	_, _ = h.sessions.Fire(req.chatID, EventCancelled)
	return h.reply(ctx, req, welcomeText(user, created), mainMenuButtons())
}

func (h *Handler) prompt(ctx context.Context, req request, ev Event, text string) error {
	if _, err := h.sessions.Fire(req.chatID, ev); err != nil {
		return err
	}
	return h.reply(ctx, req, text, nil)
}

func (h *Handler) promptReminder(ctx context.Context, req request) error {
	if _, err := h.sessions.Fire(req.chatID, EventReminderRequested); err != nil {
		return err
	}
	return h.reply(ctx, req, "⏰ Pick a reminder time or send it as HH:MM. Send \"off\" to disable.", reminderButtons())
}

// createQuest, setReminder and submitFeedback report whether the input was
// accepted, so a pending prompt survives a rejected attempt.
func (h *Handler) createQuest(ctx context.Context, req request, text string) (bool, error) {
	quest, err := h.quests.CreateQuest(ctx, req.userID, text)
	if err != nil {
		return false, h.replyError(ctx, req, err)
	}
	return true, h.reply(ctx, req, questCreatedText(quest), questButtons(quest))
}

func (h *Handler) listQuests(ctx context.Context, req request, todayOnly bool) error {
	user, err := h.users.GetUser(ctx, req.userID)
	if err != nil {
		return h.replyError(ctx, req, err)
	}

	var quests []*model.Quest
	if todayOnly {
		quests, err = h.quests.ListToday(ctx, req.userID)
	} else {
		quests, err = h.quests.ListActive(ctx, req.userID)
	}
	if err != nil {
		return h.replyError(ctx, req, err)
	}

	if len(quests) == 0 {
		text := "📭 You have no active quests\n\n💡 Create one: /addtask"
		if todayOnly {
			text = "📭 No quests created today\n\n💡 Create one: /addtask"
		}
		return h.reply(ctx, req, text, mainMenuButtons())
	}

	title := fmt.Sprintf("📜 Active quests: %d", len(quests))
	if todayOnly {
		title = fmt.Sprintf("📅 Today's quests: %d", len(quests))
	}
	if err := h.reply(ctx, req, title, nil); err != nil {
		return err
	}

	loc := calendar.LoadLocation(user.Settings.TimeZone)
	for _, q := range quests {
		if err := h.reply(ctx, req, questLine(q, loc), questButtons(q)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) completeQuest(ctx context.Context, req request, cb callback) error {
	result, err := h.quests.CompleteQuest(ctx, req.userID, cb.questID)
	if err != nil {
		return h.replyError(ctx, req, err)
	}
	return h.reply(ctx, req, completionText(result), [][]model.Button{{{Text: "📜 My quests", Data: "menu_quests"}}})
}

func (h *Handler) setDeadline(ctx context.Context, req request, cb callback) error {
	if cb.arg == deadlinePick {
		quest := &model.Quest{ID: cb.questID}
		return h.reply(ctx, req, "⏳ When should it be done?", deadlineButtons(quest))
	}

	quest, err := h.quests.SetDeadline(ctx, req.userID, cb.questID, model.DeadlinePreset(cb.arg))
	if err != nil {
		return h.replyError(ctx, req, err)
	}
	if quest.Deadline == nil {
		return h.reply(ctx, req, fmt.Sprintf("⏳ Deadline removed from quest #%d.", quest.QuestNumber), nil)
	}

	user, err := h.users.GetUser(ctx, req.userID)
	if err != nil {
		return h.replyError(ctx, req, err)
	}
	loc := calendar.LoadLocation(user.Settings.TimeZone)
	return h.reply(ctx, req, fmt.Sprintf("⏳ Quest #%d is due %s.", quest.QuestNumber, quest.Deadline.In(loc).Format("02.01.2006 15:04")), nil)
}

func (h *Handler) profile(ctx context.Context, req request) error {
	user, err := h.users.GetUser(ctx, req.userID)
	if err != nil {
		return h.replyError(ctx, req, err)
	}
	return h.reply(ctx, req, profileText(user), [][]model.Button{backButtonRow()})
}

func (h *Handler) stats(ctx context.Context, req request) error {
	user, err := h.users.GetUser(ctx, req.userID)
	if err != nil {
		return h.replyError(ctx, req, err)
	}

	text := weeklyStatsText(user, h.now())
	if h.isAdmin(req.userID) {
		stats, err := h.users.GetStats(ctx)
		if err != nil {
			return h.replyError(ctx, req, err)
		}
		text += "\n\n" + globalStatsText(stats)
	}
	return h.reply(ctx, req, text, [][]model.Button{backButtonRow()})
}

func (h *Handler) leaderboard(ctx context.Context, req request) error {
	users, err := h.users.GetLeaderboard(ctx)
	if err != nil {
		return h.replyError(ctx, req, err)
	}
	return h.reply(ctx, req, leaderboardText(users), [][]model.Button{backButtonRow()})
}

func (h *Handler) setReminder(ctx context.Context, req request, value string) (bool, error) {
	user, err := h.users.SetReminderTime(ctx, req.userID, value)
	if err != nil {
		return false, h.replyError(ctx, req, err)
	}
	_, _ = h.sessions.Fire(req.chatID, EventCancelled)

	if user.Settings.ReminderTime == "" {
		return true, h.reply(ctx, req, "🔕 Daily reminders are off.", nil)
	}
	return true, h.reply(ctx, req, fmt.Sprintf("⏰ Daily reminder set to %s (%s).", user.Settings.ReminderTime, user.Settings.TimeZone), nil)
}

func (h *Handler) setTimeZone(ctx context.Context, req request, zone string) error {
	user, err := h.users.SetTimeZone(ctx, req.userID, zone)
	if err != nil {
		return h.replyError(ctx, req, err)
	}
	local := calendar.LocalClock(h.now(), calendar.LoadLocation(user.Settings.TimeZone))
	return h.reply(ctx, req, fmt.Sprintf("🌍 Time zone set to %s. Local time there is %s.", user.Settings.TimeZone, local), nil)
}

func (h *Handler) setTheme(ctx context.Context, req request, name string) error {
	user, err := h.users.SetTheme(ctx, req.userID, model.Theme(strings.ToLower(strings.TrimSpace(name))))
	if err != nil {
		return h.replyError(ctx, req, err)
	}
	return h.reply(ctx, req, fmt.Sprintf("🎨 Theme set to %s. New quests will follow it.", user.Settings.Theme), nil)
}

func (h *Handler) submitFeedback(ctx context.Context, req request, text string) (bool, error) {
	if err := h.users.SubmitFeedback(ctx, req.userID, req.username, text); err != nil {
		return false, h.replyError(ctx, req, err)
	}
	return true, h.reply(ctx, req, "🙏 Thanks, your feedback was sent.", nil)
}

func (h *Handler) reminderPreview(ctx context.Context, req request) error {
	user, err := h.users.GetUser(ctx, req.userID)
	if err != nil {
		return h.replyError(ctx, req, err)
	}
	if err := h.reminders.SendPreview(ctx, user, h.now()); err != nil {
		return h.replyError(ctx, req, err)
	}
	return nil
}

func (h *Handler) windowInfo(ctx context.Context, req request) error {
	user, err := h.users.GetUser(ctx, req.userID)
	if err != nil {
		return h.replyError(ctx, req, err)
	}

	loc := calendar.LoadLocation(user.Settings.TimeZone)
	window, err := h.calendar.Info(ctx, loc, h.now())
	if err != nil {
		logger.Logger().Warn("calendar lookup failed", zap.Error(err))
		window = calendar.UpcomingSeasonalWindow(h.now(), loc)
	}
	return h.reply(ctx, req, windowText(window, loc), nil)
}

func (h *Handler) adminExport(ctx context.Context, req request) error {
	if !h.isAdmin(req.userID) {
		logger.Logger().Info("unauthorized admin command", zap.Int64("telegram_id", req.userID))
		return h.reply(ctx, req, "⛔ This command is only available to administrators.", nil)
	}

	users, err := h.users.ListUsers(ctx)
	if err != nil {
		return h.replyError(ctx, req, err)
	}
	stats, err := h.users.GetStats(ctx)
	if err != nil {
		return h.replyError(ctx, req, err)
	}
	feedback, err := h.feedback.ListFeedback(ctx, adminFeedbackLimit)
	if err != nil {
		return h.replyError(ctx, req, err)
	}

	buf, err := report.BuildUserReport(users, stats, feedback)
	if err != nil {
		return h.replyError(ctx, req, fmt.Errorf("failed to build report: %w", err))
	}

	name := fmt.Sprintf("questbot-%s.xlsx", h.now().UTC().Format("2006-01-02"))
	return h.sender.SendDocument(ctx, req.chatID, name, buf.Bytes(), globalStatsText(stats))
}

func (h *Handler) reply(ctx context.Context, req request, text string, buttons [][]model.Button) error {
	_, err := h.sender.SendMessage(ctx, req.chatID, text, buttons)
	return err
}

// replyError tells the user what went wrong. Unexpected errors are returned
// to the caller for logging after a generic reply.
func (h *Handler) replyError(ctx context.Context, req request, err error) error {
	text, expected := userMessage(err)
	if sendErr := h.reply(ctx, req, text, nil); sendErr != nil {
		return sendErr
	}
	if expected {
		return nil
	}
	return err
}

func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return "👋 Send /start first.", true
	case errors.Is(err, service.ErrQuestNotFound), errors.Is(err, service.ErrNotOwner):
		return "🔍 Quest not found.", true
	case errors.Is(err, service.ErrAlreadyCompleted):
		return "✅ This quest is already completed.", true
	case errors.Is(err, service.ErrFeedbackTooLong):
		return "✂️ Feedback is too long, keep it under 2000 characters.", true
	case errors.Is(err, service.ErrInvalidReminderAt):
		return "⏰ Use HH:MM, for example 08:30, or \"off\".", true
	case errors.Is(err, service.ErrInvalidTimeZone):
		return "🌍 Unknown time zone. Use Area/City, for example Europe/Moscow.", true
	case errors.Is(err, service.ErrUnknownPreset):
		return "⏳ Unknown deadline.", true
	case errors.Is(err, service.ErrValidation):
		return "✍️ The text is empty or invalid, try again.", true
	}
	return "❌ Something went wrong. Please try again later.", false
}
