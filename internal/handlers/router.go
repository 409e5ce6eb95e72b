package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compedu/quiz-service/internal/config"
	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/services"
	"github.com/compedu/quiz-service/internal/utils"
	"github.com/compedu/quiz-service/internal/validator"
)

// HandlerManager owns all HTTP handlers and wires them to routes.
type HandlerManager struct {
	quizHandler      *QuizHandler
	dashboardHandler *DashboardHandler
	serviceManager   services.ServiceManager
	authMiddleware   *JWTAuthMiddleware
	logger           utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	v *validator.BusinessValidator,
	logger utils.Logger,
	jwtConfig config.JWTConfig,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:      NewQuizHandler(serviceManager.Attempt(), v, logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Attempt(), serviceManager.Stats(), logger),
		serviceManager:   serviceManager,
		authMiddleware:   NewJWTAuthMiddleware(jwtConfig, logger),
		logger:           logger,
	}
}

// SetupRoutes registers all endpoints on the router.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())

	quiz := v1.Group("/quiz")
	{
		quiz.GET("/educations", hm.quizHandler.ListEducations)
		quiz.POST("/educations/:education_id/start", hm.quizHandler.StartQuiz)
		quiz.GET("/educations/:education_id/retry-info", hm.quizHandler.GetRetryInfo)

		quiz.GET("/attempts", hm.quizHandler.ListMyAttempts)
		quiz.GET("/attempts/:id", hm.quizHandler.GetAttempt)
		quiz.PUT("/attempts/:id/answers", hm.quizHandler.SaveAnswers)
		quiz.POST("/attempts/:id/leave", hm.quizHandler.RecordLeave)
		quiz.GET("/attempts/:id/timer", hm.quizHandler.GetTimer)
		quiz.POST("/attempts/:id/submit", hm.quizHandler.SubmitQuiz)
		quiz.GET("/attempts/:id/result", hm.quizHandler.GetResult)
		quiz.GET("/attempts/:id/wrongs", hm.quizHandler.GetWrongs)

		// Managers and admins only.
		quiz.GET("/department-stats",
			RequireRoleMiddleware(models.RoleManager, models.RoleAdmin),
			hm.dashboardHandler.GetDepartmentStats)
	}

	admin := v1.Group("/admin")
	admin.Use(RequireRoleMiddleware(models.RoleManager, models.RoleAdmin))
	{
		admin.GET("/dashboard", hm.dashboardHandler.GetQuizDashboard)
		admin.GET("/dashboard/export", hm.dashboardHandler.ExportDepartmentStats)
		admin.GET("/educations/:education_id/stats", hm.dashboardHandler.GetEducationStats)
		admin.GET("/attempts", hm.dashboardHandler.ListAttempts)
		admin.DELETE("/attempts/:id",
			RequireRoleMiddleware(models.RoleAdmin),
			hm.dashboardHandler.DeleteAttempt)
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "quiz-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
