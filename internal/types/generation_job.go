package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CourseGenerationJob tracks one end-to-end course generation request from
// submission through assembly.
type CourseGenerationJob struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	InstructorID          *uuid.UUID     `gorm:"type:uuid;index" json:"instructor_id,omitempty"`
	Instructor            *AIInstructor  `gorm:"foreignKey:InstructorID;references:ID" json:"instructor,omitempty"`
	Topic                 string         `gorm:"column:topic;not null" json:"topic"`
	Title                 string         `gorm:"column:title;not null" json:"title"`
	Description           string         `gorm:"column:description" json:"description"`
	Level                 string         `gorm:"column:level" json:"level"`
	Language              string         `gorm:"column:language" json:"language"`
	Status                string         `gorm:"column:status;not null;index" json:"status"` // queued|running|completed|failed|canceled
	CurrentStep           string         `gorm:"column:current_step" json:"current_step"`
	Progress              int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Concurrency           int            `gorm:"column:concurrency;not null;default:1" json:"concurrency"`
	CourseOutline         datatypes.JSON `gorm:"column:course_outline;type:jsonb" json:"course_outline"`
	GeneratedCourseID     *uuid.UUID     `gorm:"type:uuid;index" json:"generated_course_id,omitempty"`
	Error                 string         `gorm:"column:error" json:"error"`
	LastErrorAt           *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	LockedAt              *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt           *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	EstimatedCompletionAt *time.Time     `gorm:"column:estimated_completion_at" json:"estimated_completion_at,omitempty"`
	CompletedAt           *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt             time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseGenerationJob) TableName() string { return "course_generation_job" }

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCanceled  = "canceled"
)
