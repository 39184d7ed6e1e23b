package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	GenerationJobID  *uuid.UUID     `gorm:"type:uuid;index" json:"generation_job_id,omitempty"`
	InstructorID     *uuid.UUID     `gorm:"type:uuid;index" json:"instructor_id,omitempty"`
	Instructor       *AIInstructor  `gorm:"foreignKey:InstructorID;references:ID" json:"instructor,omitempty"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Description      string         `gorm:"column:description" json:"description"`
	Topic            string         `gorm:"column:topic;index" json:"topic"`
	Level            string         `gorm:"column:level" json:"level"` // beginner|intermediate|advanced
	LessonCount      int            `gorm:"column:lesson_count;not null;default:0" json:"lesson_count"`
	TotalDurationSec float64        `gorm:"column:total_duration_sec;not null;default:0" json:"total_duration_sec"`
	Metadata         datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

type CourseModule struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Course    *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Position  int            `gorm:"column:position;not null" json:"position"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseModule) TableName() string { return "course_module" }

// Lesson is a finished lesson inside an assembled course. Position is the
// zero-based position across the whole course, not within the module.
type Lesson struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	ModuleID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"module_id"`
	Module         *CourseModule  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Position       int            `gorm:"column:position;not null;index" json:"position"`
	VideoURL       string         `gorm:"column:video_url;not null" json:"video_url"`
	ThumbnailURL   string         `gorm:"column:thumbnail_url" json:"thumbnail_url"`
	AudioURL       string         `gorm:"column:audio_url;not null" json:"audio_url"`
	SubtitleURL    string         `gorm:"column:subtitle_url;not null" json:"subtitle_url"`
	WordsURL       string         `gorm:"column:words_url" json:"words_url"`
	TranscriptText string         `gorm:"column:transcript_text" json:"transcript_text"`
	DurationSec    float64        `gorm:"column:duration_sec;not null;default:0" json:"duration_sec"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }
