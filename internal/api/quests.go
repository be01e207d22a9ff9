package api

import (
	"net/http"
	"time"

	"questbot/internal/model"
	"questbot/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type questRoutes struct {
	qs service.QuestServiceI
}

func NewQuestRoutes(handler *gin.RouterGroup, qs service.QuestServiceI) {
	r := &questRoutes{qs: qs}
	h := handler.Group("/quests")
	{
		h.GET("", r.ListActive)
		h.GET("/today", r.ListToday)
		h.POST("", r.CreateQuest)
		h.POST("/:quest_id/complete", r.CompleteQuest)
		h.PUT("/:quest_id/deadline", r.SetDeadline)
		h.DELETE("/:quest_id", r.DeleteQuest)
	}
}

type QuestResponse struct {
	ID          uuid.UUID  `json:"id"`
	QuestNumber int        `json:"quest_number"`
	Title       string     `json:"title"`
	Story       string     `json:"story"`
	XP          int        `json:"xp"`
	Theme       string     `json:"theme"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Overdue     bool       `json:"overdue"`
}

func toQuestResponse(q *model.Quest) QuestResponse {
	return QuestResponse{
		ID:          q.ID,
		QuestNumber: q.QuestNumber,
		Title:       q.Title,
		Story:       q.Story,
		XP:          q.XP,
		Theme:       string(q.Theme),
		Completed:   q.Completed,
		CreatedAt:   q.CreatedAt,
		CompletedAt: q.CompletedAt,
		Deadline:    q.Deadline,
		Overdue:     q.Overdue,
	}
}

func toQuestResponses(quests []*model.Quest) []QuestResponse {
	out := make([]QuestResponse, 0, len(quests))
	for _, q := range quests {
		out = append(out, toQuestResponse(q))
	}
	return out
}

func (r *questRoutes) ListActive(c *gin.Context) {
	tgUser, ok := currentUser(c)
	if !ok {
		return
	}

	quests, err := r.qs.ListActive(c.Request.Context(), tgUser.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuestResponses(quests))
}

func (r *questRoutes) ListToday(c *gin.Context) {
	tgUser, ok := currentUser(c)
	if !ok {
		return
	}

	quests, err := r.qs.ListToday(c.Request.Context(), tgUser.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuestResponses(quests))
}

type CreateQuestRequest struct {
	Text string `json:"text" binding:"required"`
}

func (r *questRoutes) CreateQuest(c *gin.Context) {
	tgUser, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	quest, err := r.qs.CreateQuest(c.Request.Context(), tgUser.ID, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toQuestResponse(quest))
}

type CompletionResponse struct {
	QuestID   uuid.UUID `json:"quest_id"`
	XPGained  int       `json:"xp_gained"`
	NewXP     int       `json:"new_xp"`
	NewLevel  int       `json:"new_level"`
	NewStreak int       `json:"new_streak"`
	LevelUp   bool      `json:"level_up"`
}

func (r *questRoutes) CompleteQuest(c *gin.Context) {
	tgUser, ok := currentUser(c)
	if !ok {
		return
	}
	questID, ok := questIDParam(c)
	if !ok {
		return
	}

	result, err := r.qs.CompleteQuest(c.Request.Context(), tgUser.ID, questID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, CompletionResponse{
		QuestID:   result.QuestID,
		XPGained:  result.XPGained,
		NewXP:     result.NewXP,
		NewLevel:  result.NewLevel,
		NewStreak: result.NewStreak,
		LevelUp:   result.LevelUp,
	})
}

type DeadlineRequest struct {
	Preset string `json:"preset" binding:"required"`
}

func (r *questRoutes) SetDeadline(c *gin.Context) {
	tgUser, ok := currentUser(c)
	if !ok {
		return
	}
	questID, ok := questIDParam(c)
	if !ok {
		return
	}

	var req DeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	quest, err := r.qs.SetDeadline(c.Request.Context(), tgUser.ID, questID, model.DeadlinePreset(req.Preset))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuestResponse(quest))
}

func (r *questRoutes) DeleteQuest(c *gin.Context) {
	tgUser, ok := currentUser(c)
	if !ok {
		return
	}
	questID, ok := questIDParam(c)
	if !ok {
		return
	}

	if err := r.qs.DeleteQuest(c.Request.Context(), tgUser.ID, questID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func questIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("quest_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quest_id"})
		return uuid.Nil, false
	}
	return id, true
}
