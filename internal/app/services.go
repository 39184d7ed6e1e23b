package app

import (
	"gorm.io/gorm"

	"github.com/courseframe/courseframe-backend/internal/assembly"
	redisclient "github.com/courseframe/courseframe-backend/internal/clients/redis"
	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/pipeline"
	"github.com/courseframe/courseframe-backend/internal/services"
	"github.com/courseframe/courseframe-backend/internal/sse"
)

type Services struct {
	Generation  services.CourseGenerationService
	GenStatus   services.CourseGenStatusService
	Courses     services.CourseService
	Instructors services.InstructorService
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	reposet Repos,
	clients MediaClients,
	sseHub *sse.SSEHub,
	sseBus redisclient.SSEBus,
) Services {
	lessonPipeline := pipeline.NewLessonPipeline(
		log,
		clients.Speech,
		clients.LipSync,
		clients.Render,
		clients.Transcript,
		cfg.Media.Spec,
	)
	coursePipeline := pipeline.NewCoursePipeline(log, lessonPipeline)
	assembler := assembly.NewAssembler(log)

	return Services{
		Generation: services.NewCourseGenerationService(
			db, log, sseHub, sseBus,
			reposet.Jobs, reposet.LessonJobs, reposet.Courses, reposet.Instructors,
			coursePipeline, assembler,
		),
		GenStatus:   services.NewCourseGenStatusService(db, log, reposet.Jobs, reposet.LessonJobs),
		Courses:     services.NewCourseService(db, log, reposet.Courses),
		Instructors: services.NewInstructorService(db, log, reposet.Instructors),
	}
}
