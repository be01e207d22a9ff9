package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"questbot/internal/dispatch"
	"questbot/internal/middleware"
	"questbot/internal/model"
	"questbot/internal/service"
	"questbot/pkg/auth"
	"questbot/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FeedbackLister interface {
	ListFeedback(ctx context.Context, limit int) ([]*model.Feedback, error)
}

type Deps struct {
	Users         service.UserServiceI
	Quests        service.QuestServiceI
	Feedback      FeedbackLister
	Hub           *dispatch.Hub
	Auth          *auth.TelegramAuth
	Authorization *middleware.Authorization
}

// NewRouter builds the Mini App HTTP API.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	a := router.Group("/api/v1")
	a.Use(deps.Auth.TelegramAuthMiddleware())

	NewUserRoutes(a, deps.Users)
	NewQuestRoutes(a, deps.Quests)
	NewEventRoutes(a, deps.Hub)
	NewAdminRoutes(a, deps.Users, deps.Feedback, deps.Authorization)

	return router
}

func currentUser(c *gin.Context) (*auth.TelegramUserData, bool) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		logger.Logger().Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, false
	}
	return user, true
}

// writeError maps service errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrQuestNotFound), errors.Is(err, service.ErrNotOwner):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrAlreadyCompleted):
		status, message = http.StatusConflict, "quest already completed"
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrUnknownPreset),
		errors.Is(err, service.ErrFeedbackTooLong),
		errors.Is(err, service.ErrInvalidTimeZone),
		errors.Is(err, service.ErrInvalidReminderAt):
		status, message = http.StatusBadRequest, err.Error()
	default:
		logger.Logger().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, gin.H{"error": message})
}
