package assembly

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/pipeline"
)

// The assembler is the ordering authority for a finished course. It never
// trusts the order lessons arrive in; it sorts by the immutable lesson
// index and refuses to produce a course when the index sequence has gaps
// or duplicates.

// CourseOutline is the author-provided module structure. Modules claim
// lessons positionally: module 0 takes the first LessonCount lessons,
// module 1 the next batch, and so on.
type CourseOutline struct {
	Title   string          `json:"title"`
	Modules []OutlineModule `json:"modules"`
}

type OutlineModule struct {
	Title       string `json:"title"`
	LessonCount int    `json:"lesson_count"`
}

// AssembledLesson is one lesson placed in the final course. Position is
// the zero-based position within the whole course and always equals the
// pipeline lesson index.
type AssembledLesson struct {
	LessonIndex    int     `json:"lesson_index"`
	Position       int     `json:"position"`
	Title          string  `json:"title"`
	VideoURL       string  `json:"video_url"`
	ThumbnailURL   string  `json:"thumbnail_url,omitempty"`
	AudioURL       string  `json:"audio_url"`
	SubtitleURL    string  `json:"subtitle_url"`
	WordsURL       string  `json:"words_url,omitempty"`
	TranscriptText string  `json:"transcript_text"`
	DurationSec    float64 `json:"duration_sec"`
}

type AssembledModule struct {
	Title   string            `json:"title"`
	Lessons []AssembledLesson `json:"lessons"`
}

type AssembledCourse struct {
	CourseID         uuid.UUID         `json:"course_id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Modules          []AssembledModule `json:"modules"`
	LessonCount      int               `json:"lesson_count"`
	TotalDurationSec float64           `json:"total_duration_sec"`
}

// AssembleParams carries course identity and structure. A nil CourseID is
// derived deterministically from JobID so re-running assembly for the
// same generation job yields the same course id. A blank Description gets
// a generated default.
type AssembleParams struct {
	CourseID    uuid.UUID
	JobID       string
	Title       string
	Description string
	Outline     *CourseOutline
}

const defaultModuleTitle = "Course Content"
const overflowModuleTitle = "Additional Lessons"

type Assembler interface {
	AssembleCourse(params AssembleParams, lessons []pipeline.LessonResult) (*AssembledCourse, error)
	ValidateAssembly(course *AssembledCourse) []string
}

type assembler struct {
	log *logger.Logger
}

func NewAssembler(log *logger.Logger) Assembler {
	return &assembler{log: log.With("service", "Assembler")}
}

// AssembleCourse builds the final ordered course from terminal lesson
// results. Checks run in a fixed order: completeness first, then required
// artifacts, then index integrity. The first broken precondition is
// returned; nothing partial is emitted.
func (a *assembler) AssembleCourse(params AssembleParams, lessons []pipeline.LessonResult) (*AssembledCourse, error) {
	if len(lessons) == 0 {
		return nil, &IncompleteLessonsError{Total: 0}
	}

	var incomplete []int
	for _, lr := range lessons {
		if lr.Status != pipeline.StatusCompleted {
			incomplete = append(incomplete, lr.LessonIndex)
		}
	}
	if len(incomplete) > 0 {
		sort.Ints(incomplete)
		return nil, &IncompleteLessonsError{Total: len(lessons), Incomplete: incomplete}
	}

	for _, lr := range lessons {
		if err := requireArtifacts(lr); err != nil {
			return nil, err
		}
	}

	ordered := make([]pipeline.LessonResult, len(lessons))
	copy(ordered, lessons)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LessonIndex < ordered[j].LessonIndex
	})
	if err := checkIndexSequence(ordered); err != nil {
		return nil, err
	}

	flat := make([]AssembledLesson, len(ordered))
	total := 0.0
	for i, lr := range ordered {
		flat[i] = AssembledLesson{
			LessonIndex:    lr.LessonIndex,
			Position:       i,
			Title:          lr.Title,
			VideoURL:       lr.Outputs.Render.VideoURL,
			ThumbnailURL:   lr.Outputs.Render.ThumbnailURL,
			AudioURL:       lr.Outputs.Speech.AudioURL,
			SubtitleURL:    lr.Outputs.Transcript.SubtitleURL,
			WordsURL:       lr.Outputs.Transcript.WordsURL,
			TranscriptText: lr.Outputs.Transcript.Text,
			DurationSec:    lr.DurationSec,
		}
		total += lr.DurationSec
	}

	description := strings.TrimSpace(params.Description)
	if description == "" {
		description = fmt.Sprintf("Generated video course in %d lessons.", len(flat))
	}

	course := &AssembledCourse{
		CourseID:         resolveCourseID(params),
		Title:            params.Title,
		Description:      description,
		Modules:          bucketIntoModules(params.Outline, flat),
		LessonCount:      len(flat),
		TotalDurationSec: total,
	}
	a.log.Info("Course assembled",
		"course_id", course.CourseID,
		"lessons", course.LessonCount,
		"modules", len(course.Modules),
		"total_duration_sec", course.TotalDurationSec)
	return course, nil
}

func requireArtifacts(lr pipeline.LessonResult) error {
	if lr.Outputs.Render == nil || strings.TrimSpace(lr.Outputs.Render.VideoURL) == "" {
		return &MissingArtifactError{LessonIndex: lr.LessonIndex, Artifact: "video"}
	}
	if lr.Outputs.Speech == nil || strings.TrimSpace(lr.Outputs.Speech.AudioURL) == "" {
		return &MissingArtifactError{LessonIndex: lr.LessonIndex, Artifact: "audio"}
	}
	if lr.Outputs.Transcript == nil || strings.TrimSpace(lr.Outputs.Transcript.SubtitleURL) == "" {
		return &MissingArtifactError{LessonIndex: lr.LessonIndex, Artifact: "transcript"}
	}
	return nil
}

func checkIndexSequence(ordered []pipeline.LessonResult) error {
	for i, lr := range ordered {
		if lr.LessonIndex == i {
			continue
		}
		if i > 0 && lr.LessonIndex == ordered[i-1].LessonIndex {
			return &OrderIntegrityError{Detail: fmt.Sprintf("duplicate lesson index %d", lr.LessonIndex)}
		}
		return &OrderIntegrityError{Detail: fmt.Sprintf("expected lesson index %d, found %d", i, lr.LessonIndex)}
	}
	return nil
}

// bucketIntoModules distributes the ordered lessons across the outline
// modules positionally. Lessons beyond what the outline claims go into a
// trailing overflow module; they are never dropped. Without an outline the
// whole course is a single module.
func bucketIntoModules(outline *CourseOutline, flat []AssembledLesson) []AssembledModule {
	if outline == nil || len(outline.Modules) == 0 {
		return []AssembledModule{{Title: defaultModuleTitle, Lessons: flat}}
	}

	var modules []AssembledModule
	cursor := 0
	for _, om := range outline.Modules {
		if cursor >= len(flat) {
			break
		}
		take := om.LessonCount
		if take < 0 {
			take = 0
		}
		if cursor+take > len(flat) {
			take = len(flat) - cursor
		}
		if take == 0 {
			continue
		}
		modules = append(modules, AssembledModule{
			Title:   om.Title,
			Lessons: flat[cursor : cursor+take],
		})
		cursor += take
	}
	if cursor < len(flat) {
		modules = append(modules, AssembledModule{
			Title:   overflowModuleTitle,
			Lessons: flat[cursor:],
		})
	}
	if len(modules) == 0 {
		return []AssembledModule{{Title: defaultModuleTitle, Lessons: flat}}
	}
	return modules
}

func resolveCourseID(params AssembleParams) uuid.UUID {
	if params.CourseID != uuid.Nil {
		return params.CourseID
	}
	if params.JobID != "" {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte("course:"+params.JobID))
	}
	return uuid.New()
}

// ValidateAssembly re-checks an assembled course structurally and returns
// every violation found, never just the first: identity and title present,
// at least one module and lesson, contiguous positions, required artifacts,
// positive lesson durations, and a total duration matching the lesson sum.
func (a *assembler) ValidateAssembly(course *AssembledCourse) []string {
	if course == nil {
		return []string{"course is missing"}
	}
	var violations []string
	if course.CourseID == uuid.Nil {
		violations = append(violations, "course id is empty")
	}
	if strings.TrimSpace(course.Title) == "" {
		violations = append(violations, "course title is empty")
	}
	if len(course.Modules) == 0 {
		violations = append(violations, "course has no modules")
	}
	pos := 0
	sum := 0.0
	for _, m := range course.Modules {
		for _, l := range m.Lessons {
			if l.Position != pos || l.LessonIndex != pos {
				violations = append(violations, fmt.Sprintf("expected position %d, found lesson index %d at position %d", pos, l.LessonIndex, l.Position))
			}
			if strings.TrimSpace(l.VideoURL) == "" {
				violations = append(violations, fmt.Sprintf("lesson %d has no video locator", l.LessonIndex))
			}
			if strings.TrimSpace(l.SubtitleURL) == "" {
				violations = append(violations, fmt.Sprintf("lesson %d has no subtitle locator", l.LessonIndex))
			}
			if l.DurationSec <= 0 {
				violations = append(violations, fmt.Sprintf("lesson %d duration must be positive, got %.3fs", l.LessonIndex, l.DurationSec))
			}
			sum += l.DurationSec
			pos++
		}
	}
	if pos == 0 {
		violations = append(violations, "course has no lessons")
	}
	if pos != course.LessonCount {
		violations = append(violations, fmt.Sprintf("course claims %d lessons, modules hold %d", course.LessonCount, pos))
	}
	diff := course.TotalDurationSec - sum
	if diff < 0 {
		diff = -diff
	}
	if diff > 0.001 {
		violations = append(violations, fmt.Sprintf("total duration %.3fs does not match lesson sum %.3fs", course.TotalDurationSec, sum))
	}
	return violations
}
