package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/repositories"
	"github.com/compedu/quiz-service/internal/services"
	"github.com/compedu/quiz-service/internal/utils"
	"github.com/compedu/quiz-service/internal/validator"
)

// QuizHandler serves the learner-facing quiz endpoints.
type QuizHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *validator.BusinessValidator
}

func NewQuizHandler(attemptService services.AttemptService, v *validator.BusinessValidator, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      v,
	}
}

// StartQuiz opens or resumes the caller's attempt for one education.
// @Summary Start or resume a quiz attempt
// @Tags quiz
// @Produce json
// @Param education_id path uint true "Education ID"
// @Success 200 {object} services.StartQuizResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /quiz/educations/{education_id}/start [post]
func (h *QuizHandler) StartQuiz(c *gin.Context) {
	educationID := h.parseIDParam(c, "education_id")
	if educationID == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting quiz attempt", "education_id", educationID, "user_id", user.UserID)

	resp, err := h.attemptService.Start(c.Request.Context(), educationID, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// SaveAnswers overwrites the autosaved answer draft.
// @Summary Autosave quiz answers
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param answers body services.SaveAnswersRequest true "Full answer set"
// @Success 200 {object} services.SaveAnswersResponse
// @Failure 409 {object} ErrorResponse
// @Router /quiz/attempts/{id}/answers [put]
func (h *QuizHandler) SaveAnswers(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.SaveAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.attemptService.Save(c.Request.Context(), id, user.UserID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RecordLeave registers a page-leave event for proctoring audits.
// @Summary Record a page leave
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param leave body services.LeaveRequest true "Leave details"
// @Success 200 {object} services.LeaveResponse
// @Router /quiz/attempts/{id}/leave [post]
func (h *QuizHandler) RecordLeave(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.attemptService.Leave(c.Request.Context(), id, user.UserID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTimer reports the server-authoritative deadline state.
// @Summary Get attempt timer
// @Tags quiz
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.TimerResponse
// @Router /quiz/attempts/{id}/timer [get]
func (h *QuizHandler) GetTimer(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.attemptService.Timer(c.Request.Context(), id, user.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitQuiz grades and finalizes the attempt.
// @Summary Submit a quiz attempt
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param answers body services.SubmitRequest true "Final answers (optional, falls back to draft)"
// @Success 200 {object} services.SubmitResponse
// @Failure 409 {object} ErrorResponse
// @Router /quiz/attempts/{id}/submit [post]
func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.SubmitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
	}

	h.LogRequest(c, "Submitting quiz attempt", "attempt_id", id, "user_id", user.UserID)

	resp, err := h.attemptService.Submit(c.Request.Context(), id, user, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetResult returns the graded outcome of a submitted attempt.
// @Summary Get attempt result
// @Tags quiz
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.ResultResponse
// @Failure 404 {object} ErrorResponse
// @Router /quiz/attempts/{id}/result [get]
func (h *QuizHandler) GetResult(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.attemptService.Result(c.Request.Context(), id, user.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetWrongs returns the post-submission review of missed questions.
// @Summary Get wrong answers review
// @Tags quiz
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} SuccessResponse{data=[]services.WrongAnswerView}
// @Failure 404 {object} ErrorResponse
// @Router /quiz/attempts/{id}/wrongs [get]
func (h *QuizHandler) GetWrongs(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	wrongs, err := h.attemptService.Wrongs(c.Request.Context(), id, user.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: wrongs})
}

// GetAttempt returns the sanitized detail view of one attempt.
// @Summary Get attempt detail
// @Tags quiz
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptDetailResponse
// @Router /quiz/attempts/{id} [get]
func (h *QuizHandler) GetAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.attemptService.GetDetail(c.Request.Context(), id, user.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListEducations lists active trainings with the caller's standing.
// @Summary List available educations
// @Tags quiz
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]services.AvailableEducationItem}
// @Router /quiz/educations [get]
func (h *QuizHandler) ListEducations(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	items, err := h.attemptService.AvailableEducations(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: items})
}

// ListMyAttempts pages through the caller's submitted attempts.
// @Summary List my attempts
// @Tags quiz
// @Produce json
// @Param education_id query uint false "Filter by education"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.PaginatedResponse{data=[]services.MyAttemptItem}
// @Router /quiz/attempts [get]
func (h *QuizHandler) ListMyAttempts(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	filters := parseAttemptFilters(c)

	items, total, err := h.attemptService.MyAttempts(c.Request.Context(), user.UserID, filters)
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

// GetRetryInfo reports the caller's retry standing for one education.
// @Summary Get retry info
// @Tags quiz
// @Produce json
// @Param education_id path uint true "Education ID"
// @Success 200 {object} services.RetryInfoResponse
// @Router /quiz/educations/{education_id}/retry-info [get]
func (h *QuizHandler) GetRetryInfo(c *gin.Context) {
	educationID := h.parseIDParam(c, "education_id")
	if educationID == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.attemptService.RetryInfo(c.Request.Context(), educationID, user.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// parseAttemptFilters reads common list query parameters.
func parseAttemptFilters(c *gin.Context) repositories.AttemptFilters {
	filters := repositories.AttemptFilters{
		Limit:     20,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if raw := c.Query("education_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			eduID := uint(id)
			filters.EducationID = &eduID
		}
	}
	if raw := c.Query("department"); raw != "" {
		dept := raw
		filters.Department = &dept
	}
	if raw := c.Query("status"); raw != "" {
		status := models.AttemptStatus(raw)
		filters.Status = &status
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			filters.Limit = n
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			filters.Offset = n
		}
	}

	return filters
}
