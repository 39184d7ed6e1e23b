package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/courseframe/courseframe-backend/internal/services"
)

type InstructorHandler struct {
	svc services.InstructorService
}

func NewInstructorHandler(svc services.InstructorService) *InstructorHandler {
	return &InstructorHandler{svc: svc}
}

// GET /api/instructors
func (h *InstructorHandler) List(c *gin.Context) {
	instructors, err := h.svc.List(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"instructors": instructors})
}

// GET /api/instructors/:id
func (h *InstructorHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_instructor_id", errors.New("invalid instructor id"))
		return
	}
	instructor, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	if instructor == nil {
		RespondError(c, http.StatusNotFound, "instructor_not_found", errors.New("instructor not found"))
		return
	}
	RespondOK(c, gin.H{"instructor": instructor})
}
