package media

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateSpeechOutputCollectsAllViolations(t *testing.T) {
	out := &SpeechOutput{
		AudioURL:    " ",
		DurationSec: 0,
		TimingMarks: []TimingMark{{Label: "a", StartMS: 500, EndMS: 100}},
	}
	v := ValidateSpeechOutput(out)
	if len(v) != 3 {
		t.Fatalf("violations: want=3 got=%d (%v)", len(v), v)
	}
}

func TestValidateRenderOutputResolutionFloor(t *testing.T) {
	out := &RenderOutput{
		VideoURL:      "https://cdn.example.com/v.mp4",
		DurationSec:   42,
		Width:         1280,
		Height:        720,
		FrameRate:     25,
		FileSizeBytes: 10_000,
	}
	v := ValidateRenderOutput(out, DefaultSpec())
	if len(v) != 1 {
		t.Fatalf("violations: want=1 got=%d (%v)", len(v), v)
	}
	if !strings.Contains(v[0], "1080p") {
		t.Fatalf("violation text: %q", v[0])
	}
}

func TestValidateRenderOutputFrameRateRange(t *testing.T) {
	out := &RenderOutput{
		VideoURL:      "https://cdn.example.com/v.mp4",
		DurationSec:   42,
		Width:         1920,
		Height:        1080,
		FrameRate:     60,
		FileSizeBytes: 10_000,
	}
	v := ValidateRenderOutput(out, DefaultSpec())
	if len(v) != 1 || !strings.Contains(v[0], "frame rate") {
		t.Fatalf("violations: %v", v)
	}
}

func TestValidateTranscriptNonSequentialWords(t *testing.T) {
	out := &TranscriptOutput{
		Text:        "world hello",
		SubtitleURL: "https://cdn.example.com/t.vtt",
		Words: []TranscriptWord{
			{Word: "world", StartMS: 1500, EndMS: 1900, Confidence: 0.95},
			{Word: "hello", StartMS: 1000, EndMS: 1400, Confidence: 0.95},
		},
	}
	v := ValidateTranscriptOutput(out)
	if len(v) != 1 {
		t.Fatalf("violations: want=1 got=%d (%v)", len(v), v)
	}
	if !strings.Contains(v[0], "non-sequential word timestamps") {
		t.Fatalf("violation text: %q", v[0])
	}
}

func TestValidateTranscriptBlankWordsExempt(t *testing.T) {
	out := &TranscriptOutput{
		Text:        "hello world",
		SubtitleURL: "https://cdn.example.com/t.vtt",
		Words: []TranscriptWord{
			{Word: "hello", StartMS: 0, EndMS: 400, Confidence: 0.95},
			{Word: "", StartMS: -1, EndMS: -1, Confidence: 5},
			{Word: "world", StartMS: 500, EndMS: 900, Confidence: 0.95},
		},
	}
	if v := ValidateTranscriptOutput(out); len(v) != 0 {
		t.Fatalf("blank word should be exempt, got %v", v)
	}
}

func TestCheckSyncWithinTolerance(t *testing.T) {
	if err := CheckSync(10.00, 10.05, 100); err != nil {
		t.Fatalf("50ms drift should pass at 100ms tolerance: %v", err)
	}
}

func TestCheckSyncBeyondTolerance(t *testing.T) {
	err := CheckSync(10.00, 10.25, 100)
	var sme *SyncMismatchError
	if !errors.As(err, &sme) {
		t.Fatalf("expected SyncMismatchError, got %v", err)
	}
	if !strings.Contains(err.Error(), "250ms") {
		t.Fatalf("drift not reported: %v", err)
	}
}
