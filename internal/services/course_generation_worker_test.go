package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/courseframe/courseframe-backend/internal/assembly"
	mediaclient "github.com/courseframe/courseframe-backend/internal/clients/media"
	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/media"
	"github.com/courseframe/courseframe-backend/internal/pipeline"
	"github.com/courseframe/courseframe-backend/internal/sse"
	"github.com/courseframe/courseframe-backend/internal/types"
)

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*types.CourseGenerationJob
}

func (r *memJobRepo) Create(_ context.Context, _ *gorm.DB, job *types.CourseGenerationJob) (*types.CourseGenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return job, nil
}

func (r *memJobRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.CourseGenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id], nil
}

func (r *memJobRepo) List(_ context.Context, _ *gorm.DB, _ []string, _ int) ([]*types.CourseGenerationJob, error) {
	return nil, nil
}

func (r *memJobRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil
	}
	for k, v := range updates {
		switch k {
		case "status":
			job.Status = v.(string)
		case "current_step":
			job.CurrentStep = v.(string)
		case "progress":
			job.Progress = v.(int)
		case "error":
			job.Error = v.(string)
		case "generated_course_id":
			cid := v.(uuid.UUID)
			job.GeneratedCourseID = &cid
		}
	}
	return nil
}

func (r *memJobRepo) ClaimNextRunnable(_ context.Context, _ *gorm.DB, _ time.Duration) (*types.CourseGenerationJob, error) {
	return nil, nil
}

func (r *memJobRepo) Heartbeat(_ context.Context, _ *gorm.DB, _ uuid.UUID) error { return nil }

type memLessonRepo struct {
	mu   sync.Mutex
	rows []*types.LessonJob
}

func (r *memLessonRepo) CreateMany(_ context.Context, _ *gorm.DB, jobs []*types.LessonJob) ([]*types.LessonJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
		r.rows = append(r.rows, j)
	}
	return jobs, nil
}

func (r *memLessonRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.LessonJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, nil
}

func (r *memLessonRepo) ListByJob(_ context.Context, _ *gorm.DB, jobID uuid.UUID) ([]*types.LessonJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.LessonJob
	for _, row := range r.rows {
		if row.JobID == jobID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memLessonRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID != id {
			continue
		}
		for k, v := range updates {
			switch k {
			case "status":
				row.Status = v.(string)
			case "progress":
				row.Progress = v.(int)
			case "stage_outputs":
				row.StageOutputs = v.(datatypes.JSON)
			case "duration_sec":
				row.DurationSec = v.(float64)
			case "video_url":
				row.VideoURL = v.(string)
			case "audio_url":
				row.AudioURL = v.(string)
			case "subtitle_url":
				row.SubtitleURL = v.(string)
			case "failed_stage":
				row.FailedStage = v.(string)
			case "error_message":
				row.ErrorMessage = v.(string)
			case "completed_at":
				row.CompletedAt = v.(*time.Time)
			}
		}
		return nil
	}
	return nil
}

func (r *memLessonRepo) CountByStatus(_ context.Context, _ *gorm.DB, jobID uuid.UUID) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, row := range r.rows {
		if row.JobID == jobID {
			counts[row.Status]++
		}
	}
	return counts, nil
}

type memCourseRepo struct {
	mu      sync.Mutex
	course  *types.Course
	modules []*types.CourseModule
	lessons []*types.Lesson
}

func (r *memCourseRepo) CreateWithContent(_ context.Context, _ *gorm.DB, course *types.Course, modules []*types.CourseModule, lessons []*types.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.course = course
	r.modules = modules
	r.lessons = lessons
	return nil
}

func (r *memCourseRepo) GetByID(_ context.Context, _ *gorm.DB, _ uuid.UUID) (*types.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.course, nil
}

func (r *memCourseRepo) ListModules(_ context.Context, _ *gorm.DB, _ uuid.UUID) ([]*types.CourseModule, error) {
	return r.modules, nil
}

func (r *memCourseRepo) ListLessons(_ context.Context, _ *gorm.DB, _ uuid.UUID) ([]*types.Lesson, error) {
	return r.lessons, nil
}

type memInstructorRepo struct {
	instructor *types.AIInstructor
}

func (r *memInstructorRepo) UpsertMany(_ context.Context, _ *gorm.DB, _ []*types.AIInstructor) error {
	return nil
}

func (r *memInstructorRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.AIInstructor, error) {
	if r.instructor != nil && r.instructor.ID == id {
		return r.instructor, nil
	}
	return nil, nil
}

func (r *memInstructorRepo) GetByName(_ context.Context, _ *gorm.DB, _ string) (*types.AIInstructor, error) {
	return r.instructor, nil
}

func (r *memInstructorRepo) List(_ context.Context, _ *gorm.DB) ([]*types.AIInstructor, error) {
	return []*types.AIInstructor{r.instructor}, nil
}

// TestProcessJobFakeStackCompletesAndBroadcasts runs one claimed job through
// the worker path with the fake media clients wired exactly as the app wires
// them. The job must finish without any pinned durations, persist the course
// and emit job-level progress events on the SSE channel.
func TestProcessJobFakeStackCompletesAndBroadcasts(t *testing.T) {
	log := logger.NewNop()
	spec := media.DefaultSpec()
	speech := mediaclient.NewFakeSpeechClient()
	lipSync := mediaclient.NewFakeLipSyncClient(spec)
	render := mediaclient.NewFakeRenderClient(spec)
	lipSync.PairWithRender(render)
	transcript := mediaclient.NewFakeTranscriptClient()
	lessonPipe := pipeline.NewLessonPipeline(log, speech, lipSync, render, transcript, spec)
	coursePipe := pipeline.NewCoursePipeline(log, lessonPipe)

	instructor := &types.AIInstructor{
		ID:             uuid.New(),
		Name:           "Dr. Test",
		VoiceID:        "voice-test",
		AvatarVideoURL: "memory://avatars/test.mp4",
	}

	outline := jobOutline{
		Modules: []jobOutlineModule{
			{Title: "Basics", Lessons: []jobOutlineLesson{
				{Title: "Lesson 1", Content: "Interfaces describe behavior and structs carry data in Go programs."},
			}},
		},
	}
	job := &types.CourseGenerationJob{
		ID:            uuid.New(),
		InstructorID:  &instructor.ID,
		Topic:         "go",
		Title:         "Go Basics",
		Description:   "Hands-on introduction.",
		Status:        types.JobStatusRunning,
		Concurrency:   1,
		CourseOutline: datatypes.JSON(mustJSON(outline)),
	}

	jobRepo := &memJobRepo{jobs: map[uuid.UUID]*types.CourseGenerationJob{job.ID: job}}
	lessonRepo := &memLessonRepo{}
	if _, err := lessonRepo.CreateMany(context.Background(), nil, expandOutline(job.ID, outline)); err != nil {
		t.Fatalf("seed lesson rows: %v", err)
	}
	courseRepo := &memCourseRepo{}
	instructorRepo := &memInstructorRepo{instructor: instructor}

	hub := sse.NewSSEHub(log)
	client := hub.NewSSEClient()
	hub.AddChannel(client, sse.JobChannel(job.ID))

	svc := NewCourseGenerationService(
		nil, log, hub, nil,
		jobRepo, lessonRepo, courseRepo, instructorRepo,
		coursePipe, assembly.NewAssembler(log),
	).(*courseGenerationService)

	svc.processJob(context.Background(), job)

	if job.Status != types.JobStatusCompleted {
		t.Fatalf("job status: want=%s got=%s (error=%q)", types.JobStatusCompleted, job.Status, job.Error)
	}
	if job.Progress != 100 {
		t.Fatalf("job progress: want=100 got=%d", job.Progress)
	}
	if job.GeneratedCourseID == nil {
		t.Fatalf("generated course id not recorded")
	}

	if courseRepo.course == nil {
		t.Fatalf("course was not persisted")
	}
	if courseRepo.course.LessonCount != 1 || len(courseRepo.lessons) != 1 {
		t.Fatalf("persisted lessons: want=1 got=%d/%d", courseRepo.course.LessonCount, len(courseRepo.lessons))
	}
	if courseRepo.course.Description != "Hands-on introduction." {
		t.Fatalf("course description: %q", courseRepo.course.Description)
	}
	if courseRepo.lessons[0].VideoURL == "" || courseRepo.lessons[0].DurationSec <= 0 {
		t.Fatalf("persisted lesson incomplete: %+v", courseRepo.lessons[0])
	}

	seen := map[sse.SSEEvent]bool{}
	for {
		select {
		case msg := <-client.Outbound:
			seen[msg.Event] = true
			continue
		default:
		}
		break
	}
	for _, want := range []sse.SSEEvent{
		sse.SSEEventCourseGenerationProgress,
		sse.SSEEventLessonCompleted,
		sse.SSEEventCourseGenerationDone,
	} {
		if !seen[want] {
			t.Fatalf("missing SSE event %s (saw %v)", want, seen)
		}
	}
}
