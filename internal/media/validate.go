package media

import (
	"fmt"
	"strings"
)

// Validators return the full list of violated constraints, never just the
// first one, so a single round trip tells the caller everything that is
// wrong with an output.

func ValidateSpeechOutput(o *SpeechOutput) []string {
	if o == nil {
		return []string{"speech output is missing"}
	}
	var violations []string
	if strings.TrimSpace(o.AudioURL) == "" {
		violations = append(violations, "audio locator is empty")
	}
	if o.DurationSec <= 0 {
		violations = append(violations, fmt.Sprintf("duration must be positive, got %.3fs", o.DurationSec))
	}
	if len(o.TimingMarks) == 0 {
		violations = append(violations, "at least one timing mark is required")
	}
	for i, m := range o.TimingMarks {
		if m.StartMS < 0 || m.EndMS < 0 {
			violations = append(violations, fmt.Sprintf("timing mark %d has negative timestamps (start=%.0fms end=%.0fms)", i, m.StartMS, m.EndMS))
			continue
		}
		if m.StartMS > m.EndMS {
			violations = append(violations, fmt.Sprintf("timing mark %d starts after it ends (start=%.0fms end=%.0fms)", i, m.StartMS, m.EndMS))
		}
	}
	return violations
}

func ValidateLipSyncOutput(o *LipSyncOutput, spec Spec) []string {
	if o == nil {
		return []string{"lip-sync output is missing"}
	}
	var violations []string
	if strings.TrimSpace(o.VideoURL) == "" {
		violations = append(violations, "video locator is empty")
	}
	if o.DurationSec <= 0 {
		violations = append(violations, fmt.Sprintf("duration must be positive, got %.3fs", o.DurationSec))
	}
	if o.FrameRate < spec.MinFrameRate || o.FrameRate > spec.MaxFrameRate {
		violations = append(violations, fmt.Sprintf("frame rate %.2f outside allowed range [%.0f, %.0f]", o.FrameRate, spec.MinFrameRate, spec.MaxFrameRate))
	}
	return violations
}

func ValidateRenderOutput(o *RenderOutput, spec Spec) []string {
	if o == nil {
		return []string{"render output is missing"}
	}
	var violations []string
	if strings.TrimSpace(o.VideoURL) == "" {
		violations = append(violations, "video locator is empty")
	}
	if o.DurationSec <= 0 {
		violations = append(violations, fmt.Sprintf("duration must be positive, got %.3fs", o.DurationSec))
	}
	if o.Width < spec.MinWidth || o.Height < spec.MinHeight {
		violations = append(violations, fmt.Sprintf("resolution %dx%d below the 1080p floor (%dx%d)", o.Width, o.Height, spec.MinWidth, spec.MinHeight))
	}
	if o.FrameRate < spec.MinFrameRate || o.FrameRate > spec.MaxFrameRate {
		violations = append(violations, fmt.Sprintf("frame rate %.2f outside allowed range [%.0f, %.0f]", o.FrameRate, spec.MinFrameRate, spec.MaxFrameRate))
	}
	if o.FileSizeBytes <= 0 {
		violations = append(violations, "file size must be positive")
	}
	return violations
}

// ValidateTranscriptOutput checks every non-blank word for sane timestamps
// and confidence, and enforces non-decreasing start times across the word
// sequence. Blank words (silence markers) are exempt from the timing and
// confidence checks but still occupy a sequence position.
func ValidateTranscriptOutput(o *TranscriptOutput) []string {
	if o == nil {
		return []string{"transcript output is missing"}
	}
	var violations []string
	if strings.TrimSpace(o.Text) == "" {
		violations = append(violations, "transcript text is empty")
	}
	if strings.TrimSpace(o.SubtitleURL) == "" {
		violations = append(violations, "subtitle file locator is empty")
	}
	if len(o.Words) == 0 {
		violations = append(violations, "at least one word is required")
	}

	prevStart := -1.0
	prevIdx := -1
	for i, w := range o.Words {
		if strings.TrimSpace(w.Word) == "" {
			continue
		}
		if w.StartMS < 0 {
			violations = append(violations, fmt.Sprintf("word %d %q has a negative start time (%.0fms)", i, w.Word, w.StartMS))
		}
		if w.StartMS > w.EndMS {
			violations = append(violations, fmt.Sprintf("word %d %q starts after it ends (start=%.0fms end=%.0fms)", i, w.Word, w.StartMS, w.EndMS))
		}
		if w.Confidence < 0 || w.Confidence > 1 {
			violations = append(violations, fmt.Sprintf("word %d %q has confidence %.3f outside [0, 1]", i, w.Word, w.Confidence))
		}
		if prevStart >= 0 && w.StartMS < prevStart {
			violations = append(violations, fmt.Sprintf("non-sequential word timestamps: word %d starts at %.0fms before word %d at %.0fms", i, w.StartMS, prevIdx, prevStart))
		}
		prevStart = w.StartMS
		prevIdx = i
	}
	return violations
}

// CheckSync verifies that a generated video's duration matches its driving
// audio within tolerance. Returns *SyncMismatchError on drift.
func CheckSync(audioDurationSec, videoDurationSec, toleranceMS float64) error {
	driftMS := (videoDurationSec - audioDurationSec) * 1000
	if driftMS < 0 {
		driftMS = -driftMS
	}
	if driftMS > toleranceMS {
		return &SyncMismatchError{
			AudioDurationSec: audioDurationSec,
			VideoDurationSec: videoDurationSec,
			ToleranceMS:      toleranceMS,
		}
	}
	return nil
}
