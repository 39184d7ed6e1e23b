package media

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports malformed input caught before any network call.
// It always carries the complete list of violated constraints, never a
// partial one. Not retryable as-is; the caller must fix the input.
type ValidationError struct {
	Stage      string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s input validation failed: %s", e.Stage, strings.Join(e.Violations, "; "))
}

// ContractViolationError means the remote service reported success but its
// output fails the documented contract. That is an upstream bug; it is
// surfaced as-is, never silently coerced into something usable.
type ContractViolationError struct {
	Stage      string
	Violations []string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("%s completed but violated its output contract: %s", e.Stage, strings.Join(e.Violations, "; "))
}

// RemoteProcessingError wraps a failure reported by the remote service. The
// remote message is passed through verbatim.
type RemoteProcessingError struct {
	Stage   string
	Message string
}

func (e *RemoteProcessingError) Error() string {
	return fmt.Sprintf("%s processing failed remotely: %s", e.Stage, e.Message)
}

// TimeoutError means polling exhausted its attempt budget. The caller may
// resubmit with a larger budget.
type TimeoutError struct {
	Stage    string
	Attempts int
	Interval time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s polling timed out after %d attempts at %s intervals", e.Stage, e.Attempts, e.Interval)
}

// SyncMismatchError reports audio/video duration drift beyond tolerance.
type SyncMismatchError struct {
	AudioDurationSec float64
	VideoDurationSec float64
	ToleranceMS      float64
}

func (e *SyncMismatchError) Error() string {
	driftMS := (e.VideoDurationSec - e.AudioDurationSec) * 1000
	if driftMS < 0 {
		driftMS = -driftMS
	}
	return fmt.Sprintf("audio/video sync mismatch: drift %.0fms exceeds tolerance %.0fms (audio %.3fs, video %.3fs)",
		driftMS, e.ToleranceMS, e.AudioDurationSec, e.VideoDurationSec)
}
