package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/types"
)

type InstructorRepo interface {
	UpsertMany(ctx context.Context, tx *gorm.DB, instructors []*types.AIInstructor) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AIInstructor, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.AIInstructor, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.AIInstructor, error)
}

type instructorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInstructorRepo(db *gorm.DB, baseLog *logger.Logger) InstructorRepo {
	return &instructorRepo{
		db:  db,
		log: baseLog.With("repo", "InstructorRepo"),
	}
}

// UpsertMany seeds the catalog; rows are keyed by name so re-running the
// seed updates voices and avatars in place.
func (r *instructorRepo) UpsertMany(ctx context.Context, tx *gorm.DB, instructors []*types.AIInstructor) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(instructors) == 0 {
		return nil
	}
	for _, ins := range instructors {
		if ins.ID == uuid.Nil {
			ins.ID = uuid.New()
		}
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "specialty", "bio", "voice_id", "avatar_video_url", "avatar_image_url", "updated_at",
			}),
		}).
		Create(&instructors).Error
}

func (r *instructorRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AIInstructor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var ins types.AIInstructor
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&ins).Error
	if err != nil {
		return nil, err
	}
	if ins.ID == uuid.Nil {
		return nil, nil
	}
	return &ins, nil
}

func (r *instructorRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.AIInstructor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if name == "" {
		return nil, nil
	}
	var ins types.AIInstructor
	err := transaction.WithContext(ctx).
		Where("name = ?", name).
		Limit(1).
		Find(&ins).Error
	if err != nil {
		return nil, err
	}
	if ins.ID == uuid.Nil {
		return nil, nil
	}
	return &ins, nil
}

func (r *instructorRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.AIInstructor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AIInstructor
	if err := transaction.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
