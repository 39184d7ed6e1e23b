package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/courseframe/courseframe-backend/internal/services"
)

type CourseGenHandler struct {
	genSvc    services.CourseGenerationService
	statusSvc services.CourseGenStatusService
}

func NewCourseGenHandler(genSvc services.CourseGenerationService, statusSvc services.CourseGenStatusService) *CourseGenHandler {
	return &CourseGenHandler{genSvc: genSvc, statusSvc: statusSvc}
}

// POST /api/generate/course
func (h *CourseGenHandler) GenerateCourse(c *gin.Context) {
	var req services.EnqueueCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	job, err := h.genSvc.Enqueue(c.Request.Context(), req)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "enqueue_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

// GET /api/generate/:id/status
func (h *CourseGenHandler) GetStatus(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("invalid job id"))
		return
	}

	summary, err := h.statusSvc.GetStatus(c.Request.Context(), jobID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "status_failed", err)
		return
	}
	if summary == nil {
		RespondError(c, http.StatusNotFound, "job_not_found", errors.New("job not found"))
		return
	}
	RespondOK(c, summary)
}

// GET /api/generate/:id/progress
func (h *CourseGenHandler) GetProgress(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("invalid job id"))
		return
	}

	lessons, err := h.statusSvc.GetProgress(c.Request.Context(), jobID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "progress_failed", err)
		return
	}
	RespondOK(c, gin.H{"job_id": jobID, "lessons": lessons})
}

// POST /api/generate/:id/retry
// Body may carry {"lesson_index": n} to retry one lesson; without it the
// whole job's failed lessons are retried.
func (h *CourseGenHandler) Retry(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("invalid job id"))
		return
	}

	var body struct {
		LessonIndex *int `json:"lesson_index"`
	}
	// An empty body means retry the whole job.
	_ = c.ShouldBindJSON(&body)

	var summary *services.JobStatusSummary
	if body.LessonIndex != nil {
		summary, err = h.statusSvc.RetryLesson(c.Request.Context(), jobID, *body.LessonIndex)
	} else {
		summary, err = h.statusSvc.RetryJob(c.Request.Context(), jobID)
	}
	if err != nil {
		RespondError(c, http.StatusConflict, "retry_failed", err)
		return
	}
	if summary == nil {
		RespondError(c, http.StatusNotFound, "job_not_found", errors.New("job not found"))
		return
	}
	RespondOK(c, summary)
}

// GET /api/generate/queue?status=queued,running&limit=20
func (h *CourseGenHandler) Queue(c *gin.Context) {
	var statuses []string
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		statuses = strings.Split(raw, ",")
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	jobs, err := h.statusSvc.Queue(c.Request.Context(), statuses, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "queue_failed", err)
		return
	}
	RespondOK(c, gin.H{"jobs": jobs})
}

// DELETE /api/generate/:id
func (h *CourseGenHandler) Cancel(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("invalid job id"))
		return
	}
	if err := h.statusSvc.Cancel(c.Request.Context(), jobID); err != nil {
		RespondError(c, http.StatusConflict, "cancel_failed", err)
		return
	}
	RespondOK(c, gin.H{"job_id": jobID, "status": "canceled"})
}
