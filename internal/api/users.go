package api

import (
	"net/http"
	"time"

	"questbot/internal/model"
	"questbot/internal/service"
	"questbot/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type userRoutes struct {
	us service.UserServiceI
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI) {
	r := &userRoutes{us: us}
	h := handler.Group("/users")
	{
		h.GET("/me", r.GetMe)
		h.PATCH("/me/settings", r.UpdateSettings)
		h.POST("/me/feedback", r.SubmitFeedback)
		h.GET("/leaderboard", r.GetLeaderboard)
	}
}

type SettingsResponse struct {
	ReminderTime string `json:"reminder_time"`
	TimeZone     string `json:"time_zone"`
	Theme        string `json:"theme"`
	Language     string `json:"language"`
}

type UserResponse struct {
	TelegramID           int64                 `json:"telegram_id"`
	Username             string                `json:"username"`
	FirstName            string                `json:"first_name"`
	XP                   int                   `json:"xp"`
	Level                int                   `json:"level"`
	Streak               int                   `json:"streak"`
	TotalQuestsCompleted int                   `json:"total_quests_completed"`
	Settings             SettingsResponse      `json:"settings"`
	CreatedAt            time.Time             `json:"created_at"`
	ActivityLog          []model.ActivityEntry `json:"activity_log"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		TelegramID:           u.TelegramID,
		Username:             u.Username,
		FirstName:            u.FirstName,
		XP:                   u.XP,
		Level:                u.Level,
		Streak:               u.Streak,
		TotalQuestsCompleted: u.TotalQuestsCompleted,
		Settings: SettingsResponse{
			ReminderTime: u.Settings.ReminderTime,
			TimeZone:     u.Settings.TimeZone,
			Theme:        string(u.Settings.Theme),
			Language:     u.Settings.Language,
		},
		CreatedAt:   u.CreatedAt,
		ActivityLog: u.ActivityLog,
	}
}

// GetMe registers the Mini App user on first visit.
func (r *userRoutes) GetMe(c *gin.Context) {
	tgUser, ok := currentUser(c)
	if !ok {
		return
	}

	user, _, err := r.us.EnsureUser(c.Request.Context(), tgUser.ID, tgUser.Username, tgUser.FirstName)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

type UpdateSettingsRequest struct {
	ReminderTime *string `json:"reminder_time"`
	TimeZone     *string `json:"time_zone"`
	Theme        *string `json:"theme"`
}

func (r *userRoutes) UpdateSettings(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	user, err := r.us.GetUser(ctx, tgUser.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	if req.ReminderTime != nil {
		if user, err = r.us.SetReminderTime(ctx, tgUser.ID, *req.ReminderTime); err != nil {
			writeError(c, err)
			return
		}
	}
	if req.TimeZone != nil {
		if user, err = r.us.SetTimeZone(ctx, tgUser.ID, *req.TimeZone); err != nil {
			writeError(c, err)
			return
		}
	}
	if req.Theme != nil {
		if user, err = r.us.SetTheme(ctx, tgUser.ID, model.Theme(*req.Theme)); err != nil {
			writeError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

type FeedbackRequest struct {
	Text string `json:"text" binding:"required"`
}

func (r *userRoutes) SubmitFeedback(c *gin.Context) {
	tgUser, ok := currentUser(c)
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := r.us.SubmitFeedback(c.Request.Context(), tgUser.ID, tgUser.Username, req.Text); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type LeaderboardEntry struct {
	Place      int    `json:"place"`
	TelegramID int64  `json:"telegram_id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	XP         int    `json:"xp"`
	Streak     int    `json:"streak"`
}

func (r *userRoutes) GetLeaderboard(c *gin.Context) {
	users, err := r.us.GetLeaderboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		out = append(out, LeaderboardEntry{
			Place:      i + 1,
			TelegramID: u.TelegramID,
			Name:       u.DisplayName(),
			Level:      u.Level,
			XP:         u.XP,
			Streak:     u.Streak,
		})
	}

	c.JSON(http.StatusOK, out)
}
