package api

import (
	"fmt"
	"net/http"
	"time"

	"questbot/internal/middleware"
	"questbot/internal/report"
	"questbot/internal/service"

	"github.com/gin-gonic/gin"
)

const exportFeedbackLimit = 500

type adminRoutes struct {
	us       service.UserServiceI
	feedback FeedbackLister
}

func NewAdminRoutes(handler *gin.RouterGroup, us service.UserServiceI, feedback FeedbackLister, authz *middleware.Authorization) {
	r := &adminRoutes{us: us, feedback: feedback}
	h := handler.Group("/admin")
	h.Use(authz.AdminOnly())
	{
		h.GET("/stats", r.GetStats)
		h.GET("/export", r.Export)
	}
}

func (r *adminRoutes) GetStats(c *gin.Context) {
	stats, err := r.us.GetStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_users":      stats.TotalUsers,
		"active_today":     stats.ActiveToday,
		"total_quests":     stats.TotalQuests,
		"completed_quests": stats.CompletedQuests,
		"active_quests":    stats.ActiveQuests,
		"overdue_quests":   stats.OverdueQuests,
		"feedback_count":   stats.FeedbackCount,
		"reminders_today":  stats.RemindersSentToday,
	})
}

func (r *adminRoutes) Export(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := r.us.ListUsers(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	stats, err := r.us.GetStats(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	feedback, err := r.feedback.ListFeedback(ctx, exportFeedbackLimit)
	if err != nil {
		writeError(c, err)
		return
	}

	buf, err := report.BuildUserReport(users, stats, feedback)
	if err != nil {
		writeError(c, err)
		return
	}

	name := fmt.Sprintf("questbot-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
