package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/pipeline"
	"github.com/courseframe/courseframe-backend/internal/repos"
	"github.com/courseframe/courseframe-backend/internal/types"
)

// JobStatusSummary is the roll-up clients poll while a job runs.
type JobStatusSummary struct {
	JobID                 uuid.UUID  `json:"job_id"`
	Status                string     `json:"status"`
	CurrentStep           string     `json:"current_step"`
	Progress              int        `json:"progress"`
	TotalLessons          int        `json:"total_lessons"`
	CompletedLessons      int        `json:"completed_lessons"`
	FailedLessons         int        `json:"failed_lessons"`
	Error                 string     `json:"error,omitempty"`
	GeneratedCourseID     *uuid.UUID `json:"generated_course_id,omitempty"`
	EstimatedCompletionAt *time.Time `json:"estimated_completion_at,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// LessonProgressDetail is one row of the per-lesson progress view.
type LessonProgressDetail struct {
	LessonIndex  int     `json:"lesson_index"`
	Title        string  `json:"title"`
	Status       string  `json:"status"`
	Progress     int     `json:"progress"`
	RetryCount   int     `json:"retry_count"`
	FailedStage  string  `json:"failed_stage,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	VideoURL     string  `json:"video_url,omitempty"`
	DurationSec  float64 `json:"duration_sec,omitempty"`
}

type CourseGenStatusService interface {
	GetStatus(ctx context.Context, jobID uuid.UUID) (*JobStatusSummary, error)
	GetProgress(ctx context.Context, jobID uuid.UUID) ([]LessonProgressDetail, error)
	RetryJob(ctx context.Context, jobID uuid.UUID) (*JobStatusSummary, error)
	RetryLesson(ctx context.Context, jobID uuid.UUID, lessonIndex int) (*JobStatusSummary, error)
	Queue(ctx context.Context, statuses []string, limit int) ([]*types.CourseGenerationJob, error)
	Cancel(ctx context.Context, jobID uuid.UUID) error
}

type courseGenStatusService struct {
	db  *gorm.DB
	log *logger.Logger

	jobRepo       repos.CourseGenerationJobRepo
	lessonJobRepo repos.LessonJobRepo
}

func NewCourseGenStatusService(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobRepo repos.CourseGenerationJobRepo,
	lessonJobRepo repos.LessonJobRepo,
) CourseGenStatusService {
	return &courseGenStatusService{
		db:            db,
		log:           baseLog.With("service", "CourseGenStatusService"),
		jobRepo:       jobRepo,
		lessonJobRepo: lessonJobRepo,
	}
}

func (s *courseGenStatusService) GetStatus(ctx context.Context, jobID uuid.UUID) (*JobStatusSummary, error) {
	job, err := s.jobRepo.GetByID(ctx, nil, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, nil
	}
	counts, err := s.lessonJobRepo.CountByStatus(ctx, nil, jobID)
	if err != nil {
		return nil, fmt.Errorf("count lessons: %w", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return &JobStatusSummary{
		JobID:                 job.ID,
		Status:                job.Status,
		CurrentStep:           job.CurrentStep,
		Progress:              job.Progress,
		TotalLessons:          total,
		CompletedLessons:      counts[string(pipeline.StatusCompleted)],
		FailedLessons:         counts[string(pipeline.StatusFailed)],
		Error:                 job.Error,
		GeneratedCourseID:     job.GeneratedCourseID,
		EstimatedCompletionAt: job.EstimatedCompletionAt,
		CompletedAt:           job.CompletedAt,
		CreatedAt:             job.CreatedAt,
	}, nil
}

func (s *courseGenStatusService) GetProgress(ctx context.Context, jobID uuid.UUID) ([]LessonProgressDetail, error) {
	rows, err := s.lessonJobRepo.ListByJob(ctx, nil, jobID)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	out := make([]LessonProgressDetail, 0, len(rows))
	for _, row := range rows {
		out = append(out, LessonProgressDetail{
			LessonIndex:  row.LessonIndex,
			Title:        row.Title,
			Status:       row.Status,
			Progress:     row.Progress,
			RetryCount:   row.RetryCount,
			FailedStage:  row.FailedStage,
			ErrorMessage: row.ErrorMessage,
			VideoURL:     row.VideoURL,
			DurationSec:  row.DurationSec,
		})
	}
	return out, nil
}

// RetryJob resets every failed lesson to pending and requeues the job.
// Retry is always an explicit caller action; nothing retries on its own.
func (s *courseGenStatusService) RetryJob(ctx context.Context, jobID uuid.UUID) (*JobStatusSummary, error) {
	job, err := s.jobRepo.GetByID(ctx, nil, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, nil
	}
	if job.Status == types.JobStatusRunning {
		return nil, fmt.Errorf("job %s is running; wait for it to finish before retrying", jobID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.lessonJobRepo.ListByJob(ctx, tx, jobID)
		if err != nil {
			return fmt.Errorf("list lessons: %w", err)
		}
		for _, row := range rows {
			if row.Status != string(pipeline.StatusFailed) {
				continue
			}
			if err := s.resetLesson(ctx, tx, row); err != nil {
				return err
			}
		}
		return s.requeue(ctx, tx, jobID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Course generation job requeued for retry", "job_id", jobID)
	return s.GetStatus(ctx, jobID)
}

// RetryLesson resets one failed lesson and requeues the job.
func (s *courseGenStatusService) RetryLesson(ctx context.Context, jobID uuid.UUID, lessonIndex int) (*JobStatusSummary, error) {
	job, err := s.jobRepo.GetByID(ctx, nil, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, nil
	}
	if job.Status == types.JobStatusRunning {
		return nil, fmt.Errorf("job %s is running; wait for it to finish before retrying", jobID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.lessonJobRepo.ListByJob(ctx, tx, jobID)
		if err != nil {
			return fmt.Errorf("list lessons: %w", err)
		}
		var target *types.LessonJob
		for _, row := range rows {
			if row.LessonIndex == lessonIndex {
				target = row
				break
			}
		}
		if target == nil {
			return fmt.Errorf("lesson index %d not found in job %s", lessonIndex, jobID)
		}
		if target.Status != string(pipeline.StatusFailed) {
			return fmt.Errorf("lesson %d is %s, only failed lessons can be retried", lessonIndex, target.Status)
		}
		if err := s.resetLesson(ctx, tx, target); err != nil {
			return err
		}
		return s.requeue(ctx, tx, jobID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Lesson requeued for retry", "job_id", jobID, "lesson_index", lessonIndex)
	return s.GetStatus(ctx, jobID)
}

func (s *courseGenStatusService) resetLesson(ctx context.Context, tx *gorm.DB, row *types.LessonJob) error {
	return s.lessonJobRepo.UpdateFields(ctx, tx, row.ID, map[string]interface{}{
		"status":        string(pipeline.StatusPending),
		"progress":      0,
		"retry_count":   gorm.Expr("retry_count + 1"),
		"failed_stage":  "",
		"error_message": "",
	})
}

func (s *courseGenStatusService) requeue(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) error {
	return s.jobRepo.UpdateFields(ctx, tx, jobID, map[string]interface{}{
		"status":       types.JobStatusQueued,
		"current_step": "queued",
		"error":        "",
	})
}

func (s *courseGenStatusService) Queue(ctx context.Context, statuses []string, limit int) ([]*types.CourseGenerationJob, error) {
	return s.jobRepo.List(ctx, nil, statuses, limit)
}

// Cancel withdraws a queued job. A running job cannot be canceled from
// here; its in-flight stage clients handle context cancellation.
func (s *courseGenStatusService) Cancel(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.jobRepo.GetByID(ctx, nil, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}
	if job.Status != types.JobStatusQueued {
		return fmt.Errorf("job %s is %s, only queued jobs can be canceled", jobID, job.Status)
	}
	if err := s.jobRepo.UpdateFields(ctx, nil, jobID, map[string]interface{}{
		"status":       types.JobStatusCanceled,
		"current_step": "canceled",
	}); err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	s.log.Info("Course generation job canceled", "job_id", jobID)
	return nil
}
