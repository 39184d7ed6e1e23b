package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/media"
)

// scriptedLesson runs lessons from a canned result table, recording call
// order. Stands in for the real stage chain.
type scriptedLesson struct {
	mu      sync.Mutex
	calls   []int
	failIdx map[int]bool
}

func (s *scriptedLesson) GenerateLesson(_ context.Context, in LessonInput, report ProgressFunc) LessonResult {
	s.mu.Lock()
	s.calls = append(s.calls, in.LessonIndex)
	fail := s.failIdx[in.LessonIndex]
	s.mu.Unlock()

	res := LessonResult{LessonIndex: in.LessonIndex, Title: in.Title}
	if fail {
		res.Status = StatusFailed
		res.FailedStage = media.StageSpeech
		res.Err = &media.RemoteProcessingError{Stage: media.StageSpeech, Message: "synthetic failure"}
		res.ErrorMessage = res.Err.Error()
		res.Progress = ProgressFor(StatusTTS)
	} else {
		res.Status = StatusCompleted
		res.Progress = 100
		res.DurationSec = float64(10 + in.LessonIndex)
	}
	if report != nil {
		report(Progress{LessonIndex: in.LessonIndex, Status: res.Status, Percent: res.Progress})
	}
	return res
}

func courseInput(n int) CourseInput {
	in := CourseInput{}
	for i := 0; i < n; i++ {
		in.Lessons = append(in.Lessons, LessonInput{
			LessonIndex: i,
			Title:       fmt.Sprintf("Lesson %d", i+1),
			Script:      strings.Repeat("words ", 20),
		})
	}
	return in
}

func TestGenerateCourseSequentialOrder(t *testing.T) {
	lesson := &scriptedLesson{failIdx: map[int]bool{}}
	p := NewCoursePipeline(logger.NewNop(), lesson)

	res := p.GenerateCourse(context.Background(), courseInput(4), nil, nil)
	if res.CompletedCount != 4 || res.FailedCount != 0 {
		t.Fatalf("counts: completed=%d failed=%d", res.CompletedCount, res.FailedCount)
	}
	for i, got := range lesson.calls {
		if got != i {
			t.Fatalf("sequential call order broken: %v", lesson.calls)
		}
	}
	for i, lr := range res.Lessons {
		if lr.LessonIndex != i {
			t.Fatalf("result %d carries lesson index %d", i, lr.LessonIndex)
		}
	}
}

func TestGenerateCourseFailureDoesNotAbortSiblings(t *testing.T) {
	lesson := &scriptedLesson{failIdx: map[int]bool{1: true}}
	p := NewCoursePipeline(logger.NewNop(), lesson)

	var doneOrder []int
	res := p.GenerateCourse(context.Background(), courseInput(3), nil, func(lr LessonResult) {
		doneOrder = append(doneOrder, lr.LessonIndex)
	})
	if res.CompletedCount != 2 || res.FailedCount != 1 {
		t.Fatalf("counts: completed=%d failed=%d", res.CompletedCount, res.FailedCount)
	}
	if res.Lessons[1].Status != StatusFailed {
		t.Fatalf("lesson 1 status: %s", res.Lessons[1].Status)
	}
	if res.Lessons[2].Status != StatusCompleted {
		t.Fatalf("lesson after the failure did not run: %s", res.Lessons[2].Status)
	}
	if len(doneOrder) != 3 {
		t.Fatalf("done callbacks: want=3 got=%d", len(doneOrder))
	}
}

func TestGenerateCourseConcurrentKeepsInputOrder(t *testing.T) {
	lesson := &scriptedLesson{failIdx: map[int]bool{}}
	p := NewCoursePipeline(logger.NewNop(), lesson)

	in := courseInput(8)
	in.Concurrency = 4
	res := p.GenerateCourse(context.Background(), in, nil, nil)

	if res.CompletedCount != 8 {
		t.Fatalf("completed: want=8 got=%d", res.CompletedCount)
	}
	for i, lr := range res.Lessons {
		if lr.LessonIndex != i {
			t.Fatalf("results out of input order at %d: %+v", i, lr)
		}
	}
}

func TestGenerateCourseDoneCallbackPanicGuarded(t *testing.T) {
	lesson := &scriptedLesson{failIdx: map[int]bool{}}
	p := NewCoursePipeline(logger.NewNop(), lesson)

	res := p.GenerateCourse(context.Background(), courseInput(2), nil, func(lr LessonResult) {
		panic("observer bug")
	})
	if res.CompletedCount != 2 {
		t.Fatalf("panicking done callback aborted the course: %+v", res)
	}
}

func TestGenerateCourseEmptyInput(t *testing.T) {
	p := NewCoursePipeline(logger.NewNop(), &scriptedLesson{failIdx: map[int]bool{}})
	res := p.GenerateCourse(context.Background(), CourseInput{}, nil, nil)
	if len(res.Lessons) != 0 || res.CompletedCount != 0 || res.FailedCount != 0 {
		t.Fatalf("empty course: %+v", res)
	}
}
