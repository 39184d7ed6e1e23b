package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/repos"
	"github.com/courseframe/courseframe-backend/internal/types"
)

// CourseView is an assembled course with its modules and lessons nested
// for the read API.
type CourseView struct {
	Course  *types.Course `json:"course"`
	Modules []ModuleView  `json:"modules"`
}

type ModuleView struct {
	Module  *types.CourseModule `json:"module"`
	Lessons []*types.Lesson     `json:"lessons"`
}

type CourseService interface {
	GetCourse(ctx context.Context, id uuid.UUID) (*CourseView, error)
}

type courseService struct {
	db         *gorm.DB
	log        *logger.Logger
	courseRepo repos.CourseRepo
}

func NewCourseService(db *gorm.DB, baseLog *logger.Logger, courseRepo repos.CourseRepo) CourseService {
	return &courseService{
		db:         db,
		log:        baseLog.With("service", "CourseService"),
		courseRepo: courseRepo,
	}
}

func (s *courseService) GetCourse(ctx context.Context, id uuid.UUID) (*CourseView, error) {
	course, err := s.courseRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, nil
	}
	modules, err := s.courseRepo.ListModules(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	lessons, err := s.courseRepo.ListLessons(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}

	byModule := map[uuid.UUID][]*types.Lesson{}
	for _, l := range lessons {
		byModule[l.ModuleID] = append(byModule[l.ModuleID], l)
	}
	view := &CourseView{Course: course}
	for _, m := range modules {
		view.Modules = append(view.Modules, ModuleView{
			Module:  m,
			Lessons: byModule[m.ID],
		})
	}
	return view, nil
}
