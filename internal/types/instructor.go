package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AIInstructor is a presenter persona: a synthesis voice plus the base
// avatar video the lip-sync stage animates.
type AIInstructor struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string         `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Title          string         `gorm:"column:title" json:"title"`
	Specialty      string         `gorm:"column:specialty;index" json:"specialty"`
	Bio            string         `gorm:"column:bio" json:"bio"`
	VoiceID        string         `gorm:"column:voice_id;not null" json:"voice_id"`
	AvatarVideoURL string         `gorm:"column:avatar_video_url;not null" json:"avatar_video_url"`
	AvatarImageURL string         `gorm:"column:avatar_image_url" json:"avatar_image_url"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AIInstructor) TableName() string { return "ai_instructor" }
