package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/courseframe/courseframe-backend/internal/logger"
)

// CourseInput is an ordered batch of lessons. Concurrency caps how many
// lessons run at once; zero or one means strictly sequential in input
// order.
type CourseInput struct {
	Lessons     []LessonInput
	Concurrency int
}

// CourseResult keeps one terminal result per input lesson, in input order
// regardless of completion order.
type CourseResult struct {
	Lessons        []LessonResult
	CompletedCount int
	FailedCount    int
}

// LessonDoneFunc is called once per lesson with its terminal result, in
// completion order. Like ProgressFunc it is panic-guarded.
type LessonDoneFunc func(res LessonResult)

type CoursePipeline interface {
	GenerateCourse(ctx context.Context, in CourseInput, report ProgressFunc, onLessonDone LessonDoneFunc) CourseResult
}

type coursePipeline struct {
	log    *logger.Logger
	lesson LessonPipeline
}

func NewCoursePipeline(log *logger.Logger, lesson LessonPipeline) CoursePipeline {
	return &coursePipeline{
		log:    log.With("service", "CoursePipeline"),
		lesson: lesson,
	}
}

// GenerateCourse runs every lesson to a terminal state. A failing lesson
// never aborts its siblings; the caller inspects per-lesson results and
// decides what to do with partial failure.
func (p *coursePipeline) GenerateCourse(ctx context.Context, in CourseInput, report ProgressFunc, onLessonDone LessonDoneFunc) CourseResult {
	res := CourseResult{Lessons: make([]LessonResult, len(in.Lessons))}
	if len(in.Lessons) == 0 {
		return res
	}

	done := func(lr LessonResult) {
		if onLessonDone == nil {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("Lesson-done callback panicked", "panic", r, "lesson_index", lr.LessonIndex)
			}
		}()
		onLessonDone(lr)
	}

	if in.Concurrency <= 1 {
		for i, lesson := range in.Lessons {
			res.Lessons[i] = p.lesson.GenerateLesson(ctx, lesson, report)
			done(res.Lessons[i])
		}
	} else {
		g := &errgroup.Group{}
		g.SetLimit(in.Concurrency)
		for i, lesson := range in.Lessons {
			g.Go(func() error {
				res.Lessons[i] = p.lesson.GenerateLesson(ctx, lesson, report)
				done(res.Lessons[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, lr := range res.Lessons {
		switch lr.Status {
		case StatusCompleted:
			res.CompletedCount++
		case StatusFailed:
			res.FailedCount++
		}
	}
	p.log.Info("Course generation pass finished",
		"lessons", len(in.Lessons),
		"completed", res.CompletedCount,
		"failed", res.FailedCount)
	return res
}
