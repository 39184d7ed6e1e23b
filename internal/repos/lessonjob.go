package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/types"
)

type LessonJobRepo interface {
	CreateMany(ctx context.Context, tx *gorm.DB, jobs []*types.LessonJob) ([]*types.LessonJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.LessonJob, error)
	ListByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.LessonJob, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	CountByStatus(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (map[string]int, error)
}

type lessonJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonJobRepo(db *gorm.DB, baseLog *logger.Logger) LessonJobRepo {
	return &lessonJobRepo{
		db:  db,
		log: baseLog.With("repo", "LessonJobRepo"),
	}
}

// CreateMany inserts lesson rows idempotently: on a (job_id, lesson_index)
// conflict the existing row wins, so re-expanding an outline after a
// worker crash never duplicates or reorders lessons.
func (r *lessonJobRepo) CreateMany(ctx context.Context, tx *gorm.DB, jobs []*types.LessonJob) ([]*types.LessonJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.LessonJob{}, nil
	}
	for _, j := range jobs {
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}, {Name: "lesson_index"}},
			DoNothing: true,
		}).
		Create(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *lessonJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.LessonJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.LessonJob
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *lessonJobRepo) ListByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.LessonJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.LessonJob
	if jobID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("lesson_index ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.LessonJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *lessonJobRepo) CountByStatus(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (map[string]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	counts := map[string]int{}
	if jobID == uuid.Nil {
		return counts, nil
	}
	var rows []struct {
		Status string
		N      int
	}
	err := transaction.WithContext(ctx).
		Model(&types.LessonJob{}).
		Select("status, COUNT(*) AS n").
		Where("job_id = ?", jobID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}
