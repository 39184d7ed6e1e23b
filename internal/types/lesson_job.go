package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LessonJob is the persisted record of one lesson's trip through the
// generation pipeline. LessonIndex is the zero-based position inside the
// course and is immutable once the row exists; the assembler sorts by it.
type LessonJob struct {
	ID           uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	JobID        uuid.UUID            `gorm:"type:uuid;not null;index:idx_lesson_job_job_index,unique" json:"job_id"`
	Job          *CourseGenerationJob `gorm:"constraint:OnDelete:CASCADE;foreignKey:JobID;references:ID" json:"job,omitempty"`
	LessonIndex  int                  `gorm:"column:lesson_index;not null;index:idx_lesson_job_job_index,unique" json:"lesson_index"`
	Title        string               `gorm:"column:title;not null" json:"title"`
	Content      string               `gorm:"column:content" json:"content"`
	Script       string               `gorm:"column:script" json:"script"`
	Status       string               `gorm:"column:status;not null;index" json:"status"` // pipeline.Status values
	Progress     int                  `gorm:"column:progress;not null;default:0" json:"progress"`
	RetryCount   int                  `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	StageOutputs datatypes.JSON       `gorm:"column:stage_outputs;type:jsonb" json:"stage_outputs"`
	VideoURL     string               `gorm:"column:video_url" json:"video_url"`
	AudioURL     string               `gorm:"column:audio_url" json:"audio_url"`
	SubtitleURL  string               `gorm:"column:subtitle_url" json:"subtitle_url"`
	DurationSec  float64              `gorm:"column:duration_sec;not null;default:0" json:"duration_sec"`
	FailedStage  string               `gorm:"column:failed_stage" json:"failed_stage"`
	ErrorMessage string               `gorm:"column:error_message" json:"error_message"`
	CompletedAt  *time.Time           `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time            `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time            `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt       `gorm:"index" json:"deleted_at,omitempty"`
}

func (LessonJob) TableName() string { return "lesson_job" }
