package app

import (
	"github.com/courseframe/courseframe-backend/internal/handlers"
	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/sse"
)

type Handlers struct {
	CourseGen   *handlers.CourseGenHandler
	Courses     *handlers.CourseHandler
	Instructors *handlers.InstructorHandler
	SSE         *handlers.SSEHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, sseHub *sse.SSEHub) Handlers {
	return Handlers{
		CourseGen:   handlers.NewCourseGenHandler(serviceset.Generation, serviceset.GenStatus),
		Courses:     handlers.NewCourseHandler(serviceset.Courses),
		Instructors: handlers.NewInstructorHandler(serviceset.Instructors),
		SSE:         handlers.NewSSEHandler(sseHub),
	}
}
