package assembly

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/media"
	"github.com/courseframe/courseframe-backend/internal/pipeline"
)

func completedLesson(idx int, durationSec float64) pipeline.LessonResult {
	return pipeline.LessonResult{
		LessonIndex: idx,
		Title:       fmt.Sprintf("Lesson %d", idx+1),
		Status:      pipeline.StatusCompleted,
		Progress:    100,
		DurationSec: durationSec,
		Outputs: pipeline.StageOutputs{
			Speech: &media.SpeechOutput{
				AudioURL:    fmt.Sprintf("memory://speech/%d.mp3", idx),
				DurationSec: durationSec,
				TimingMarks: []media.TimingMark{{Label: "w", StartMS: 0, EndMS: durationSec * 1000}},
			},
			LipSync: &media.LipSyncOutput{
				VideoURL:    fmt.Sprintf("memory://lipsync/%d.mp4", idx),
				DurationSec: durationSec,
				FrameRate:   25,
			},
			Render: &media.RenderOutput{
				VideoURL:      fmt.Sprintf("memory://render/%d.mp4", idx),
				ThumbnailURL:  fmt.Sprintf("memory://render/%d.jpg", idx),
				DurationSec:   durationSec,
				Width:         1920,
				Height:        1080,
				FrameRate:     25,
				FileSizeBytes: 1000,
			},
			Transcript: &media.TranscriptOutput{
				Text:        "transcript",
				SubtitleURL: fmt.Sprintf("memory://transcript/%d.vtt", idx),
				WordsURL:    fmt.Sprintf("memory://transcript/%d.words.json", idx),
				DurationSec: durationSec,
				Words:       []media.TranscriptWord{{Word: "transcript", StartMS: 0, EndMS: 500, Confidence: 0.9}},
			},
		},
	}
}

func TestAssembleCourseOrdersByLessonIndex(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	// Completion order [2, 0, 3, 1] with durations keyed to index.
	lessons := []pipeline.LessonResult{
		completedLesson(2, 15),
		completedLesson(0, 10),
		completedLesson(3, 25),
		completedLesson(1, 20),
	}

	course, err := a.AssembleCourse(AssembleParams{Title: "Go Basics"}, lessons)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if course.LessonCount != 4 {
		t.Fatalf("lesson count: want=4 got=%d", course.LessonCount)
	}
	if course.TotalDurationSec != 70 {
		t.Fatalf("total duration: want=70 got=%v", course.TotalDurationSec)
	}
	if len(course.Modules) != 1 {
		t.Fatalf("modules: want=1 got=%d", len(course.Modules))
	}
	for i, l := range course.Modules[0].Lessons {
		if l.LessonIndex != i || l.Position != i {
			t.Fatalf("lesson at position %d: index=%d position=%d", i, l.LessonIndex, l.Position)
		}
	}
	if v := a.ValidateAssembly(course); len(v) > 0 {
		t.Fatalf("validate: %v", v)
	}
}

func TestAssembleCourseRefusesIncompleteLessons(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	lessons := []pipeline.LessonResult{
		completedLesson(0, 10),
		{LessonIndex: 1, Title: "Lesson 2", Status: pipeline.StatusFailed},
		completedLesson(2, 15),
	}

	_, err := a.AssembleCourse(AssembleParams{Title: "Go Basics"}, lessons)
	var ile *IncompleteLessonsError
	if !errors.As(err, &ile) {
		t.Fatalf("expected IncompleteLessonsError, got %v", err)
	}
	if !strings.Contains(err.Error(), "not completed") {
		t.Fatalf("error text: %v", err)
	}
	if len(ile.Incomplete) != 1 || ile.Incomplete[0] != 1 {
		t.Fatalf("incomplete indexes: %v", ile.Incomplete)
	}
}

func TestAssembleCourseMissingArtifact(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	broken := completedLesson(1, 20)
	broken.Outputs.Render = nil
	lessons := []pipeline.LessonResult{completedLesson(0, 10), broken}

	_, err := a.AssembleCourse(AssembleParams{Title: "Go Basics"}, lessons)
	var mae *MissingArtifactError
	if !errors.As(err, &mae) {
		t.Fatalf("expected MissingArtifactError, got %v", err)
	}
	if mae.LessonIndex != 1 || mae.Artifact != "video" {
		t.Fatalf("got %+v", mae)
	}
}

func TestAssembleCourseIndexGap(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	lessons := []pipeline.LessonResult{
		completedLesson(0, 10),
		completedLesson(2, 15),
	}

	_, err := a.AssembleCourse(AssembleParams{Title: "Go Basics"}, lessons)
	var oie *OrderIntegrityError
	if !errors.As(err, &oie) {
		t.Fatalf("expected OrderIntegrityError, got %v", err)
	}
	if !strings.Contains(err.Error(), "expected lesson index 1") {
		t.Fatalf("error text: %v", err)
	}
}

func TestAssembleCourseDuplicateIndex(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	lessons := []pipeline.LessonResult{
		completedLesson(0, 10),
		completedLesson(1, 15),
		completedLesson(1, 20),
	}

	_, err := a.AssembleCourse(AssembleParams{Title: "Go Basics"}, lessons)
	var oie *OrderIntegrityError
	if !errors.As(err, &oie) {
		t.Fatalf("expected OrderIntegrityError, got %v", err)
	}
	if !strings.Contains(err.Error(), "duplicate lesson index 1") {
		t.Fatalf("error text: %v", err)
	}
}

func TestAssembleCourseOutlineBucketsWithOverflow(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	var lessons []pipeline.LessonResult
	for i := 0; i < 5; i++ {
		lessons = append(lessons, completedLesson(i, 10))
	}
	outline := &CourseOutline{
		Title: "Go Basics",
		Modules: []OutlineModule{
			{Title: "Getting Started", LessonCount: 2},
			{Title: "Core Concepts", LessonCount: 2},
		},
	}

	course, err := a.AssembleCourse(AssembleParams{Title: "Go Basics", Outline: outline}, lessons)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(course.Modules) != 3 {
		t.Fatalf("modules: want=3 got=%d", len(course.Modules))
	}
	if course.Modules[2].Title != overflowModuleTitle {
		t.Fatalf("overflow module title: %q", course.Modules[2].Title)
	}
	if len(course.Modules[2].Lessons) != 1 || course.Modules[2].Lessons[0].LessonIndex != 4 {
		t.Fatalf("overflow lessons: %+v", course.Modules[2].Lessons)
	}
	if v := a.ValidateAssembly(course); len(v) > 0 {
		t.Fatalf("validate: %v", v)
	}
}

func TestAssembleCourseDeterministicIDFromJobID(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	lessons := []pipeline.LessonResult{completedLesson(0, 10)}
	c1, err := a.AssembleCourse(AssembleParams{JobID: "job-42", Title: "Go Basics"}, lessons)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	c2, err := a.AssembleCourse(AssembleParams{JobID: "job-42", Title: "Go Basics"}, lessons)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if c1.CourseID != c2.CourseID {
		t.Fatalf("course id not deterministic: %s vs %s", c1.CourseID, c2.CourseID)
	}
	if c1.CourseID == uuid.Nil {
		t.Fatalf("course id is nil")
	}
}

func TestValidateAssemblyCatchesDurationDrift(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	course, err := a.AssembleCourse(AssembleParams{Title: "Go Basics"}, []pipeline.LessonResult{completedLesson(0, 10)})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	course.TotalDurationSec = 99

	violations := a.ValidateAssembly(course)
	if len(violations) != 1 {
		t.Fatalf("violations: want=1 got=%v", violations)
	}
	if !strings.Contains(violations[0], "does not match lesson sum") {
		t.Fatalf("violation text: %q", violations[0])
	}
}

func TestValidateAssemblyRejectsEmptyCourse(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	violations := a.ValidateAssembly(&AssembledCourse{})
	if len(violations) == 0 {
		t.Fatalf("empty course validated clean")
	}
	joined := strings.Join(violations, "; ")
	for _, want := range []string{
		"course id is empty",
		"course title is empty",
		"course has no modules",
		"course has no lessons",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing violation %q in %q", want, joined)
		}
	}

	if v := a.ValidateAssembly(nil); len(v) != 1 || v[0] != "course is missing" {
		t.Fatalf("nil course: %v", v)
	}
}

func TestValidateAssemblyRejectsZeroDurationLesson(t *testing.T) {
	a := NewAssembler(logger.NewNop())

	course, err := a.AssembleCourse(AssembleParams{Title: "Go Basics"}, []pipeline.LessonResult{completedLesson(0, 10)})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	course.Modules[0].Lessons[0].DurationSec = 0
	course.TotalDurationSec = 0

	violations := a.ValidateAssembly(course)
	if len(violations) != 1 {
		t.Fatalf("violations: want=1 got=%v", violations)
	}
	if !strings.Contains(violations[0], "duration must be positive") {
		t.Fatalf("violation text: %q", violations[0])
	}
}

func TestAssembleCourseCarriesDescription(t *testing.T) {
	a := NewAssembler(logger.NewNop())
	lessons := []pipeline.LessonResult{completedLesson(0, 10)}

	explicit, err := a.AssembleCourse(AssembleParams{Title: "Go Basics", Description: "A short course."}, lessons)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if explicit.Description != "A short course." {
		t.Fatalf("description: want=%q got=%q", "A short course.", explicit.Description)
	}

	defaulted, err := a.AssembleCourse(AssembleParams{Title: "Go Basics"}, lessons)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if defaulted.Description == "" {
		t.Fatalf("blank description was not defaulted")
	}
}
