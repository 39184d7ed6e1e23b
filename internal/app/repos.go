package app

import (
	"gorm.io/gorm"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/repos"
)

type Repos struct {
	Jobs        repos.CourseGenerationJobRepo
	LessonJobs  repos.LessonJobRepo
	Courses     repos.CourseRepo
	Instructors repos.InstructorRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Jobs:        repos.NewCourseGenerationJobRepo(db, log),
		LessonJobs:  repos.NewLessonJobRepo(db, log),
		Courses:     repos.NewCourseRepo(db, log),
		Instructors: repos.NewInstructorRepo(db, log),
	}
}
