package services

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/repos"
	"github.com/courseframe/courseframe-backend/internal/types"
)

// instructorSeedFile is the YAML shape of the instructor catalog config.
type instructorSeedFile struct {
	Instructors []instructorSeed `yaml:"instructors"`
}

type instructorSeed struct {
	Name           string `yaml:"name"`
	Title          string `yaml:"title"`
	Specialty      string `yaml:"specialty"`
	Bio            string `yaml:"bio"`
	VoiceID        string `yaml:"voice_id"`
	AvatarVideoURL string `yaml:"avatar_video_url"`
	AvatarImageURL string `yaml:"avatar_image_url"`
}

type InstructorService interface {
	SeedFromFile(ctx context.Context, path string) (int, error)
	List(ctx context.Context) ([]*types.AIInstructor, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.AIInstructor, error)
}

type instructorService struct {
	db             *gorm.DB
	log            *logger.Logger
	instructorRepo repos.InstructorRepo
}

func NewInstructorService(db *gorm.DB, baseLog *logger.Logger, instructorRepo repos.InstructorRepo) InstructorService {
	return &instructorService{
		db:             db,
		log:            baseLog.With("service", "InstructorService"),
		instructorRepo: instructorRepo,
	}
}

// SeedFromFile loads the instructor catalog from a YAML file and upserts
// it by name. Returns how many instructors the file defined.
func (s *instructorService) SeedFromFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read instructor seed file: %w", err)
	}
	var seed instructorSeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("parse instructor seed file: %w", err)
	}

	var rows []*types.AIInstructor
	for i, ins := range seed.Instructors {
		if ins.Name == "" || ins.VoiceID == "" || ins.AvatarVideoURL == "" {
			return 0, fmt.Errorf("instructor %d in %s is missing name, voice_id or avatar_video_url", i, path)
		}
		rows = append(rows, &types.AIInstructor{
			Name:           ins.Name,
			Title:          ins.Title,
			Specialty:      ins.Specialty,
			Bio:            ins.Bio,
			VoiceID:        ins.VoiceID,
			AvatarVideoURL: ins.AvatarVideoURL,
			AvatarImageURL: ins.AvatarImageURL,
		})
	}
	if err := s.instructorRepo.UpsertMany(ctx, nil, rows); err != nil {
		return 0, fmt.Errorf("seed instructors: %w", err)
	}
	s.log.Info("Instructor catalog seeded", "path", path, "count", len(rows))
	return len(rows), nil
}

func (s *instructorService) List(ctx context.Context) ([]*types.AIInstructor, error) {
	return s.instructorRepo.List(ctx, nil)
}

func (s *instructorService) GetByID(ctx context.Context, id uuid.UUID) (*types.AIInstructor, error) {
	return s.instructorRepo.GetByID(ctx, nil, id)
}
