package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/courseframe/courseframe-backend/internal/assembly"
	redisclient "github.com/courseframe/courseframe-backend/internal/clients/redis"
	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/pipeline"
	"github.com/courseframe/courseframe-backend/internal/repos"
	"github.com/courseframe/courseframe-backend/internal/sse"
	"github.com/courseframe/courseframe-backend/internal/types"
)

// Per-lesson wall-clock estimate used for the completion forecast shown to
// clients while a job is queued.
const lessonEstimate = 5 * time.Minute

// EnqueueCourseRequest is a full course generation order: identity, the
// module/lesson structure, and the narration source for every lesson.
type EnqueueCourseRequest struct {
	Topic        string          `json:"topic"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Level        string          `json:"level"`
	Language     string          `json:"language"`
	InstructorID uuid.UUID       `json:"instructor_id"`
	Concurrency  int             `json:"concurrency"`
	Modules      []RequestModule `json:"modules"`
}

type RequestModule struct {
	Title   string          `json:"title"`
	Lessons []RequestLesson `json:"lessons"`
}

type RequestLesson struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Script  string `json:"script,omitempty"`
}

// jobOutline is the persisted copy of the requested structure. The worker
// expands it into lesson job rows; the assembler reads the module titles
// and lesson counts back out of it.
type jobOutline struct {
	Modules []jobOutlineModule `json:"modules"`
}

type jobOutlineModule struct {
	Title   string             `json:"title"`
	Lessons []jobOutlineLesson `json:"lessons"`
}

type jobOutlineLesson struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Script  string `json:"script,omitempty"`
}

type CourseGenerationService interface {
	Enqueue(ctx context.Context, req EnqueueCourseRequest) (*types.CourseGenerationJob, error)
	StartWorker(ctx context.Context)
}

type courseGenerationService struct {
	db  *gorm.DB
	log *logger.Logger

	sseHub *sse.SSEHub
	sseBus redisclient.SSEBus

	jobRepo        repos.CourseGenerationJobRepo
	lessonJobRepo  repos.LessonJobRepo
	courseRepo     repos.CourseRepo
	instructorRepo repos.InstructorRepo

	coursePipeline pipeline.CoursePipeline
	assembler      assembly.Assembler
}

func NewCourseGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sseHub *sse.SSEHub,
	sseBus redisclient.SSEBus,
	jobRepo repos.CourseGenerationJobRepo,
	lessonJobRepo repos.LessonJobRepo,
	courseRepo repos.CourseRepo,
	instructorRepo repos.InstructorRepo,
	coursePipeline pipeline.CoursePipeline,
	assembler assembly.Assembler,
) CourseGenerationService {
	return &courseGenerationService{
		db:             db,
		log:            baseLog.With("service", "CourseGenerationService"),
		sseHub:         sseHub,
		sseBus:         sseBus,
		jobRepo:        jobRepo,
		lessonJobRepo:  lessonJobRepo,
		courseRepo:     courseRepo,
		instructorRepo: instructorRepo,
		coursePipeline: coursePipeline,
		assembler:      assembler,
	}
}

// Enqueue validates the request, persists the job with its outline and
// expands the outline into indexed lesson job rows. Lesson indexes are
// assigned once here, in request order, and never change afterwards.
func (cgs *courseGenerationService) Enqueue(ctx context.Context, req EnqueueCourseRequest) (*types.CourseGenerationJob, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	lessonCount := 0
	for _, m := range req.Modules {
		lessonCount += len(m.Lessons)
	}
	if lessonCount == 0 {
		return nil, fmt.Errorf("at least one lesson is required")
	}

	instructor, err := cgs.instructorRepo.GetByID(ctx, nil, req.InstructorID)
	if err != nil {
		return nil, fmt.Errorf("load instructor: %w", err)
	}
	if instructor == nil {
		return nil, fmt.Errorf("instructor %s not found", req.InstructorID)
	}

	outline := jobOutline{}
	for _, m := range req.Modules {
		om := jobOutlineModule{Title: m.Title}
		for _, l := range m.Lessons {
			om.Lessons = append(om.Lessons, jobOutlineLesson{
				Title:   l.Title,
				Content: l.Content,
				Script:  l.Script,
			})
		}
		outline.Modules = append(outline.Modules, om)
	}

	now := time.Now()
	estimate := now.Add(time.Duration(lessonCount) * lessonEstimate)
	job := &types.CourseGenerationJob{
		ID:                    uuid.New(),
		InstructorID:          &instructor.ID,
		Topic:                 req.Topic,
		Title:                 req.Title,
		Description:           strings.TrimSpace(req.Description),
		Level:                 req.Level,
		Language:              req.Language,
		Status:                types.JobStatusQueued,
		CurrentStep:           "queued",
		Concurrency:           req.Concurrency,
		CourseOutline:         datatypes.JSON(mustJSON(outline)),
		EstimatedCompletionAt: &estimate,
	}

	err = cgs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := cgs.jobRepo.Create(ctx, tx, job); err != nil {
			return fmt.Errorf("create job: %w", err)
		}
		rows := expandOutline(job.ID, outline)
		if _, err := cgs.lessonJobRepo.CreateMany(ctx, tx, rows); err != nil {
			return fmt.Errorf("create lesson jobs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cgs.log.Info("Course generation job enqueued",
		"job_id", job.ID, "topic", req.Topic, "lessons", lessonCount)
	return job, nil
}

// expandOutline flattens the outline into lesson job rows with contiguous
// zero-based indexes in outline order.
func expandOutline(jobID uuid.UUID, outline jobOutline) []*types.LessonJob {
	var rows []*types.LessonJob
	idx := 0
	for _, m := range outline.Modules {
		for _, l := range m.Lessons {
			rows = append(rows, &types.LessonJob{
				JobID:       jobID,
				LessonIndex: idx,
				Title:       l.Title,
				Content:     l.Content,
				Script:      prepareScript(l.Script, l.Content),
				Status:      string(pipeline.StatusPending),
			})
			idx++
		}
	}
	return rows
}

// prepareScript is the scripting step: an explicit script wins, otherwise
// the lesson source content narrates itself. A lesson with neither keeps a
// blank script and fails the scripting check downstream.
func prepareScript(script, content string) string {
	if s := strings.TrimSpace(script); s != "" {
		return s
	}
	return strings.TrimSpace(content)
}

func (cgs *courseGenerationService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		staleRunning := 10 * time.Minute

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job, err := cgs.jobRepo.ClaimNextRunnable(ctx, cgs.db, staleRunning)
				if err != nil {
					cgs.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if job == nil {
					continue
				}
				cgs.processJob(ctx, job)
			}
		}
	}()
}

func (cgs *courseGenerationService) processJob(ctx context.Context, job *types.CourseGenerationJob) {
	log := cgs.log.With("job_id", job.ID)
	log.Info("Processing course generation job", "topic", job.Topic)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-t.C:
				if err := cgs.jobRepo.Heartbeat(hbCtx, nil, job.ID); err != nil {
					log.Warn("Job heartbeat failed", "error", err)
				}
			}
		}
	}()

	instructor, err := cgs.loadInstructor(ctx, job)
	if err != nil {
		cgs.failJob(ctx, job, err)
		return
	}

	rows, err := cgs.ensureLessonRows(ctx, job)
	if err != nil {
		cgs.failJob(ctx, job, err)
		return
	}

	total := len(rows)
	input := pipeline.CourseInput{Concurrency: job.Concurrency}
	rowByIndex := make(map[int]*types.LessonJob, total)
	completedBefore := 0
	for _, row := range rows {
		rowByIndex[row.LessonIndex] = row
		switch row.Status {
		case string(pipeline.StatusCompleted):
			completedBefore++
			continue
		case string(pipeline.StatusFailed):
			// Failed lessons wait for an explicit retry.
			continue
		}
		input.Lessons = append(input.Lessons, pipeline.LessonInput{
			LessonIndex:    row.LessonIndex,
			Title:          row.Title,
			Content:        row.Content,
			Script:         row.Script,
			VoiceID:        instructor.VoiceID,
			AvatarVideoURL: instructor.AvatarVideoURL,
			Language:       job.Language,
		})
	}

	onProgress := func(p pipeline.Progress) {
		row, ok := rowByIndex[p.LessonIndex]
		if !ok {
			return
		}
		updates := map[string]interface{}{
			"status":   string(p.Status),
			"progress": p.Percent,
		}
		if err := cgs.lessonJobRepo.UpdateFields(ctx, nil, row.ID, updates); err != nil {
			log.Warn("Failed to persist lesson progress", "lesson_index", p.LessonIndex, "error", err)
		}
		if err := cgs.jobRepo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
			"current_step": fmt.Sprintf("lesson %d/%d: %s", p.LessonIndex+1, total, p.Stage),
		}); err != nil {
			log.Warn("Failed to persist job step", "error", err)
		}
		cgs.broadcast(ctx, job.ID, sse.SSEEventLessonProgress, map[string]any{
			"job_id":       job.ID,
			"lesson_index": p.LessonIndex,
			"status":       p.Status,
			"stage":        p.Stage,
			"progress":     p.Percent,
			"message":      p.Message,
		})
	}

	// Lessons may finish concurrently; the completion counter is shared.
	var mu sync.Mutex
	completed := completedBefore
	onLessonDone := func(lr pipeline.LessonResult) {
		row, ok := rowByIndex[lr.LessonIndex]
		if !ok {
			return
		}
		updates := map[string]interface{}{
			"status":        string(lr.Status),
			"progress":      lr.Progress,
			"stage_outputs": datatypes.JSON(mustJSON(lr.Outputs)),
			"duration_sec":  lr.DurationSec,
			"failed_stage":  lr.FailedStage,
			"error_message": lr.ErrorMessage,
		}
		event := sse.SSEEventLessonFailed
		if lr.Status == pipeline.StatusCompleted {
			mu.Lock()
			completed++
			mu.Unlock()
			now := time.Now()
			updates["completed_at"] = &now
			if lr.Outputs.Render != nil {
				updates["video_url"] = lr.Outputs.Render.VideoURL
			}
			if lr.Outputs.Speech != nil {
				updates["audio_url"] = lr.Outputs.Speech.AudioURL
			}
			if lr.Outputs.Transcript != nil {
				updates["subtitle_url"] = lr.Outputs.Transcript.SubtitleURL
			}
			event = sse.SSEEventLessonCompleted
		}
		if err := cgs.lessonJobRepo.UpdateFields(ctx, nil, row.ID, updates); err != nil {
			log.Warn("Failed to persist lesson result", "lesson_index", lr.LessonIndex, "error", err)
		}

		mu.Lock()
		done := completed
		mu.Unlock()
		overall := 0
		if total > 0 {
			overall = done * 100 / total
		}
		if err := cgs.jobRepo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
			"progress": overall,
		}); err != nil {
			log.Warn("Failed to persist job progress", "error", err)
		}
		cgs.broadcast(ctx, job.ID, sse.SSEEventCourseGenerationProgress, map[string]any{
			"job_id":            job.ID,
			"progress":          overall,
			"completed_lessons": done,
			"total_lessons":     total,
		})
		cgs.broadcast(ctx, job.ID, event, map[string]any{
			"job_id":       job.ID,
			"lesson_index": lr.LessonIndex,
			"status":       lr.Status,
			"progress":     overall,
			"error":        lr.ErrorMessage,
		})
	}

	cgs.coursePipeline.GenerateCourse(ctx, input, onProgress, onLessonDone)

	// Re-read the rows: the terminal truth lives in the store, including
	// lessons completed on a previous run.
	rows, err = cgs.lessonJobRepo.ListByJob(ctx, nil, job.ID)
	if err != nil {
		cgs.failJob(ctx, job, fmt.Errorf("reload lesson jobs: %w", err))
		return
	}
	var failedIdx []int
	allCompleted := true
	for _, row := range rows {
		if row.Status != string(pipeline.StatusCompleted) {
			allCompleted = false
			if row.Status == string(pipeline.StatusFailed) {
				failedIdx = append(failedIdx, row.LessonIndex)
			}
		}
	}
	if !allCompleted {
		sort.Ints(failedIdx)
		cgs.failJob(ctx, job, fmt.Errorf("generation incomplete: %d of %d lessons failed (indexes %v)",
			len(failedIdx), len(rows), failedIdx))
		return
	}

	if err := cgs.assembleAndPersist(ctx, job, rows); err != nil {
		cgs.failJob(ctx, job, fmt.Errorf("assemble course: %w", err))
		return
	}
}

func (cgs *courseGenerationService) loadInstructor(ctx context.Context, job *types.CourseGenerationJob) (*types.AIInstructor, error) {
	if job.InstructorID == nil {
		return nil, fmt.Errorf("job has no instructor")
	}
	instructor, err := cgs.instructorRepo.GetByID(ctx, nil, *job.InstructorID)
	if err != nil {
		return nil, fmt.Errorf("load instructor: %w", err)
	}
	if instructor == nil {
		return nil, fmt.Errorf("instructor %s not found", *job.InstructorID)
	}
	return instructor, nil
}

// ensureLessonRows re-expands the outline idempotently. After a worker
// crash between job creation and expansion the rows may be missing; the
// unique (job_id, lesson_index) key makes this safe to repeat.
func (cgs *courseGenerationService) ensureLessonRows(ctx context.Context, job *types.CourseGenerationJob) ([]*types.LessonJob, error) {
	rows, err := cgs.lessonJobRepo.ListByJob(ctx, nil, job.ID)
	if err != nil {
		return nil, fmt.Errorf("list lesson jobs: %w", err)
	}
	if len(rows) > 0 {
		return rows, nil
	}

	var outline jobOutline
	if err := json.Unmarshal(job.CourseOutline, &outline); err != nil {
		return nil, fmt.Errorf("decode course outline: %w", err)
	}
	if _, err := cgs.lessonJobRepo.CreateMany(ctx, nil, expandOutline(job.ID, outline)); err != nil {
		return nil, fmt.Errorf("expand outline: %w", err)
	}
	rows, err = cgs.lessonJobRepo.ListByJob(ctx, nil, job.ID)
	if err != nil {
		return nil, fmt.Errorf("list lesson jobs: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("outline expanded to zero lessons")
	}
	return rows, nil
}

func (cgs *courseGenerationService) assembleAndPersist(ctx context.Context, job *types.CourseGenerationJob, rows []*types.LessonJob) error {
	results := make([]pipeline.LessonResult, 0, len(rows))
	for _, row := range rows {
		lr, err := lessonResultFromRow(row)
		if err != nil {
			return err
		}
		results = append(results, lr)
	}

	var outline jobOutline
	if err := json.Unmarshal(job.CourseOutline, &outline); err != nil {
		return fmt.Errorf("decode course outline: %w", err)
	}
	assemblyOutline := &assembly.CourseOutline{Title: job.Title}
	for _, m := range outline.Modules {
		assemblyOutline.Modules = append(assemblyOutline.Modules, assembly.OutlineModule{
			Title:       m.Title,
			LessonCount: len(m.Lessons),
		})
	}

	course, err := cgs.assembler.AssembleCourse(assembly.AssembleParams{
		JobID:       job.ID.String(),
		Title:       job.Title,
		Description: job.Description,
		Outline:     assemblyOutline,
	}, results)
	if err != nil {
		return err
	}
	if violations := cgs.assembler.ValidateAssembly(course); len(violations) > 0 {
		return fmt.Errorf("assembled course failed validation: %s", strings.Join(violations, "; "))
	}

	courseRow := &types.Course{
		ID:               course.CourseID,
		GenerationJobID:  &job.ID,
		InstructorID:     job.InstructorID,
		Title:            course.Title,
		Description:      course.Description,
		Topic:            job.Topic,
		Level:            job.Level,
		LessonCount:      course.LessonCount,
		TotalDurationSec: course.TotalDurationSec,
		Metadata:         datatypes.JSON(mustJSON(map[string]any{"language": job.Language})),
	}
	var moduleRows []*types.CourseModule
	var lessonRows []*types.Lesson
	for mi, m := range course.Modules {
		moduleRow := &types.CourseModule{
			ID:       uuid.New(),
			CourseID: course.CourseID,
			Title:    m.Title,
			Position: mi,
		}
		moduleRows = append(moduleRows, moduleRow)
		for _, l := range m.Lessons {
			lessonRows = append(lessonRows, &types.Lesson{
				ID:             uuid.New(),
				CourseID:       course.CourseID,
				ModuleID:       moduleRow.ID,
				Title:          l.Title,
				Position:       l.Position,
				VideoURL:       l.VideoURL,
				ThumbnailURL:   l.ThumbnailURL,
				AudioURL:       l.AudioURL,
				SubtitleURL:    l.SubtitleURL,
				WordsURL:       l.WordsURL,
				TranscriptText: l.TranscriptText,
				DurationSec:    l.DurationSec,
			})
		}
	}
	if err := cgs.courseRepo.CreateWithContent(ctx, nil, courseRow, moduleRows, lessonRows); err != nil {
		return fmt.Errorf("persist course: %w", err)
	}

	now := time.Now()
	if err := cgs.jobRepo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
		"status":              types.JobStatusCompleted,
		"current_step":        "completed",
		"progress":            100,
		"generated_course_id": course.CourseID,
		"completed_at":        &now,
	}); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}

	cgs.log.Info("Course generation job completed",
		"job_id", job.ID,
		"course_id", course.CourseID,
		"lessons", course.LessonCount,
		"total_duration_sec", course.TotalDurationSec)
	cgs.broadcast(ctx, job.ID, sse.SSEEventCourseGenerationDone, map[string]any{
		"job_id":    job.ID,
		"course_id": course.CourseID,
		"lessons":   course.LessonCount,
	})
	return nil
}

func (cgs *courseGenerationService) failJob(ctx context.Context, job *types.CourseGenerationJob, cause error) {
	cgs.log.Error("Course generation job failed", "job_id", job.ID, "error", cause)
	now := time.Now()
	if err := cgs.jobRepo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
		"status":        types.JobStatusFailed,
		"error":         cause.Error(),
		"last_error_at": &now,
	}); err != nil {
		cgs.log.Error("Failed to mark job failed", "job_id", job.ID, "error", err)
	}
	cgs.broadcast(ctx, job.ID, sse.SSEEventCourseGenerationFailed, map[string]any{
		"job_id": job.ID,
		"error":  cause.Error(),
	})
}

// broadcast sends to the local hub and, when configured, through the
// Redis bus so every instance's hub sees the event.
func (cgs *courseGenerationService) broadcast(ctx context.Context, jobID uuid.UUID, event sse.SSEEvent, data any) {
	msg := sse.SSEMessage{
		Channel: sse.JobChannel(jobID),
		Event:   event,
		Data:    data,
	}
	cgs.sseHub.Broadcast(msg)
	if cgs.sseBus != nil {
		if err := cgs.sseBus.Publish(ctx, msg); err != nil {
			cgs.log.Warn("Failed to publish SSE message to bus", "error", err)
		}
	}
}

func lessonResultFromRow(row *types.LessonJob) (pipeline.LessonResult, error) {
	lr := pipeline.LessonResult{
		LessonIndex: row.LessonIndex,
		Title:       row.Title,
		Status:      pipeline.Status(row.Status),
		Progress:    row.Progress,
		DurationSec: row.DurationSec,
	}
	if len(row.StageOutputs) > 0 {
		if err := json.Unmarshal(row.StageOutputs, &lr.Outputs); err != nil {
			return lr, fmt.Errorf("decode stage outputs for lesson %d: %w", row.LessonIndex, err)
		}
	}
	return lr, nil
}

func mustJSON(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return raw
}
