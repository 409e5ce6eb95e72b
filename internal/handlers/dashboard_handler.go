package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/services"
	"github.com/compedu/quiz-service/internal/utils"
)

// DashboardHandler serves the reporting and moderation endpoints.
type DashboardHandler struct {
	BaseHandler
	attemptService services.AttemptService
	statsService   services.StatsService
}

func NewDashboardHandler(attemptService services.AttemptService, statsService services.StatsService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		statsService:   statsService,
	}
}

// GetDepartmentStats aggregates compliance results per department.
// @Summary Department statistics
// @Tags dashboard
// @Produce json
// @Param period_days query int false "Reporting period in days (default 30)"
// @Param department query string false "Restrict to one department"
// @Success 200 {object} services.DepartmentStatsResponse
// @Router /quiz/department-stats [get]
func (h *DashboardHandler) GetDepartmentStats(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var department *string
	if raw := c.Query("department"); raw != "" {
		department = &raw
	}

	resp, err := h.statsService.DepartmentStats(c.Request.Context(), parsePeriodDays(c), department, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetQuizDashboard returns the admin overview.
// @Summary Quiz dashboard overview
// @Tags dashboard
// @Produce json
// @Param period_days query int false "Reporting period in days (default 30)"
// @Success 200 {object} services.QuizDashboardResponse
// @Router /admin/dashboard [get]
func (h *DashboardHandler) GetQuizDashboard(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.statsService.QuizDashboard(c.Request.Context(), parsePeriodDays(c), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetEducationStats aggregates one education's attempts.
// @Summary Education statistics
// @Tags dashboard
// @Produce json
// @Param education_id path uint true "Education ID"
// @Success 200 {object} services.EducationStatsResponse
// @Router /admin/educations/{education_id}/stats [get]
func (h *DashboardHandler) GetEducationStats(c *gin.Context) {
	educationID := h.parseIDParam(c, "education_id")
	if educationID == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.statsService.EducationStats(c.Request.Context(), educationID, parsePeriodDays(c), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportDepartmentStats downloads the department report as xlsx.
// @Summary Export department statistics
// @Tags dashboard
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param period_days query int false "Reporting period in days (default 30)"
// @Success 200 {file} binary
// @Router /admin/dashboard/export [get]
func (h *DashboardHandler) ExportDepartmentStats(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting department stats", "user_id", user.UserID)

	data, err := h.statsService.ExportDepartmentStats(c.Request.Context(), parsePeriodDays(c), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("department-stats-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ListAttempts is the moderator listing across all users.
// @Summary List attempts (moderation)
// @Tags dashboard
// @Produce json
// @Success 200 {object} models.PaginatedResponse{data=[]services.AdminAttemptItem}
// @Router /admin/attempts [get]
func (h *DashboardHandler) ListAttempts(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	filters := parseAttemptFilters(c)
	if raw := c.Query("user_id"); raw != "" {
		userID := raw
		filters.UserID = &userID
	}

	items, total, err := h.attemptService.ListAttempts(c.Request.Context(), filters, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PaginatedResponse{
		Data:       items,
		TotalCount: total,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	})
}

// DeleteAttempt tombstones one attempt.
// @Summary Delete an attempt
// @Tags dashboard
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} SuccessResponse
// @Router /admin/attempts/{id} [delete]
func (h *DashboardHandler) DeleteAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.attemptService.DeleteAttempt(c.Request.Context(), id, user); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Attempt deleted"})
}

func parsePeriodDays(c *gin.Context) int {
	if raw := c.Query("period_days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return 30
}
