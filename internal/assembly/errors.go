package assembly

import (
	"fmt"
	"strings"
)

// IncompleteLessonsError means assembly was attempted while one or more
// lessons were not in the completed state. Assembly is all-or-nothing; a
// partial course is never produced.
type IncompleteLessonsError struct {
	Total      int
	Incomplete []int
}

func (e *IncompleteLessonsError) Error() string {
	idx := make([]string, len(e.Incomplete))
	for i, n := range e.Incomplete {
		idx[i] = fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d of %d lessons are not completed (lesson indexes: %s)",
		len(e.Incomplete), e.Total, strings.Join(idx, ", "))
}

// MissingArtifactError means a completed lesson is missing a required
// artifact. A completed lesson without its video or transcript points at a
// pipeline bug, not a user error.
type MissingArtifactError struct {
	LessonIndex int
	Artifact    string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("lesson %d is completed but missing its %s artifact", e.LessonIndex, e.Artifact)
}

// OrderIntegrityError means the lesson index sequence is not exactly
// 0..n-1: a duplicate or a gap. Either way the course order cannot be
// trusted and assembly refuses to guess.
type OrderIntegrityError struct {
	Detail string
}

func (e *OrderIntegrityError) Error() string {
	return "lesson order integrity violated: " + e.Detail
}
