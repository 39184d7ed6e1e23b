package media

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/courseframe/courseframe-backend/internal/media"
)

// Deterministic in-memory stage clients for local development and tests.
// Outputs derive only from the request, so the same script always yields
// the same durations, marks and locators. Speech pacing follows the usual
// 150 words-per-minute narration estimate.

const fakeWordsPerMinute = 150.0

func estimateDurationSec(script string) float64 {
	words := strings.Fields(script)
	if len(words) == 0 {
		return 0
	}
	return float64(len(words)) / fakeWordsPerMinute * 60.0
}

type fakeJobs struct {
	seq      atomic.Int64
	mu       sync.Mutex
	canceled map[string]bool
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{canceled: map[string]bool{}}
}

func (f *fakeJobs) next(stage string) string {
	return fmt.Sprintf("fake-%s-%d", stage, f.seq.Add(1))
}

func (f *fakeJobs) cancel(jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled[jobID] = true
}

type FakeSpeechClient struct {
	jobs    *fakeJobs
	mu      sync.Mutex
	pending map[string]SpeechRequest
}

func NewFakeSpeechClient() *FakeSpeechClient {
	return &FakeSpeechClient{jobs: newFakeJobs(), pending: map[string]SpeechRequest{}}
}

func (c *FakeSpeechClient) Submit(_ context.Context, req SpeechRequest) (string, error) {
	var violations []string
	if strings.TrimSpace(req.Script) == "" {
		violations = append(violations, "script is empty")
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		violations = append(violations, "voice id is empty")
	}
	if len(violations) > 0 {
		return "", &media.ValidationError{Stage: media.StageSpeech, Violations: violations}
	}
	id := c.jobs.next(media.StageSpeech)
	c.mu.Lock()
	c.pending[id] = req
	c.mu.Unlock()
	return id, nil
}

func (c *FakeSpeechClient) AwaitResult(_ context.Context, jobID string) (*media.SpeechOutput, error) {
	c.mu.Lock()
	req, ok := c.pending[jobID]
	c.mu.Unlock()
	if !ok {
		return nil, &media.RemoteProcessingError{Stage: media.StageSpeech, Message: "unknown job " + jobID}
	}

	words := strings.Fields(req.Script)
	durationSec := estimateDurationSec(req.Script)
	perWordMS := durationSec * 1000 / float64(len(words))
	marks := make([]media.TimingMark, len(words))
	for i, w := range words {
		marks[i] = media.TimingMark{
			Label:   strings.ToLower(strings.Trim(w, ".,!?;:")),
			StartMS: float64(i) * perWordMS,
			EndMS:   float64(i+1) * perWordMS,
		}
	}
	return &media.SpeechOutput{
		AudioURL:    fmt.Sprintf("memory://speech/%s.mp3", jobID),
		DurationSec: durationSec,
		TimingMarks: marks,
	}, nil
}

func (c *FakeSpeechClient) Cancel(_ context.Context, jobID string) error {
	c.jobs.cancel(jobID)
	return nil
}

func (c *FakeSpeechClient) Generate(ctx context.Context, req SpeechRequest) (*media.SpeechOutput, error) {
	id, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.AwaitResult(ctx, id)
}

type FakeLipSyncClient struct {
	jobs    *fakeJobs
	spec    media.Spec
	render  *FakeRenderClient
	mu      sync.Mutex
	pending map[string]LipSyncRequest
}

func NewFakeLipSyncClient(spec media.Spec) *FakeLipSyncClient {
	return &FakeLipSyncClient{jobs: newFakeJobs(), spec: spec, pending: map[string]LipSyncRequest{}}
}

// PairWithRender forwards every emitted lip-sync duration to the render
// fake, which echoes it for that video unless a test pinned an override.
// The app wires the fake stack paired so lessons stay in sync end to end.
func (c *FakeLipSyncClient) PairWithRender(r *FakeRenderClient) {
	c.render = r
}

func (c *FakeLipSyncClient) Submit(_ context.Context, req LipSyncRequest) (string, error) {
	var violations []string
	if strings.TrimSpace(req.AudioURL) == "" {
		violations = append(violations, "audio locator is empty")
	}
	if strings.TrimSpace(req.AvatarVideoURL) == "" {
		violations = append(violations, "avatar video locator is empty")
	}
	if len(req.TimingMarks) == 0 {
		violations = append(violations, "timing marks are required")
	}
	if len(violations) > 0 {
		return "", &media.ValidationError{Stage: media.StageLipSync, Violations: violations}
	}
	id := c.jobs.next(media.StageLipSync)
	c.mu.Lock()
	c.pending[id] = req
	c.mu.Unlock()
	return id, nil
}

func (c *FakeLipSyncClient) AwaitResult(_ context.Context, jobID string) (*media.LipSyncOutput, error) {
	c.mu.Lock()
	req, ok := c.pending[jobID]
	c.mu.Unlock()
	if !ok {
		return nil, &media.RemoteProcessingError{Stage: media.StageLipSync, Message: "unknown job " + jobID}
	}
	last := req.TimingMarks[len(req.TimingMarks)-1]
	out := &media.LipSyncOutput{
		VideoURL:    fmt.Sprintf("memory://lipsync/%s.mp4", jobID),
		DurationSec: last.EndMS / 1000,
		FrameRate:   c.spec.TargetFrameRate,
	}
	if c.render != nil {
		c.render.observeDuration(out.VideoURL, out.DurationSec)
	}
	return out, nil
}

func (c *FakeLipSyncClient) Cancel(_ context.Context, jobID string) error {
	c.jobs.cancel(jobID)
	return nil
}

func (c *FakeLipSyncClient) Generate(ctx context.Context, req LipSyncRequest) (*media.LipSyncOutput, error) {
	id, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.AwaitResult(ctx, id)
}

type FakeRenderClient struct {
	jobs    *fakeJobs
	spec    media.Spec
	mu      sync.Mutex
	pending map[string]RenderRequest
	// pinned durations come from SetDuration and always win; observed
	// durations arrive from a paired FakeLipSyncClient so unpinned renders
	// echo the lip-sync duration instead of drifting from the audio.
	pinned   map[string]float64
	observed map[string]float64
}

func NewFakeRenderClient(spec media.Spec) *FakeRenderClient {
	return &FakeRenderClient{
		jobs:     newFakeJobs(),
		spec:     spec,
		pending:  map[string]RenderRequest{},
		pinned:   map[string]float64{},
		observed: map[string]float64{},
	}
}

// SetDuration pins the reported duration for renders driven by the given
// lip-sync video locator, e.g. to force a sync mismatch in tests.
func (c *FakeRenderClient) SetDuration(lipSyncVideoURL string, durationSec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned[lipSyncVideoURL] = durationSec
}

func (c *FakeRenderClient) observeDuration(lipSyncVideoURL string, durationSec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observed[lipSyncVideoURL] = durationSec
}

func (c *FakeRenderClient) Submit(_ context.Context, req RenderRequest) (string, error) {
	var violations []string
	if strings.TrimSpace(req.LipSyncVideoURL) == "" {
		violations = append(violations, "lip-sync video locator is empty")
	}
	if strings.TrimSpace(req.AudioURL) == "" {
		violations = append(violations, "audio locator is empty")
	}
	if len(violations) > 0 {
		return "", &media.ValidationError{Stage: media.StageRender, Violations: violations}
	}
	id := c.jobs.next(media.StageRender)
	c.mu.Lock()
	c.pending[id] = req
	c.mu.Unlock()
	return id, nil
}

func (c *FakeRenderClient) AwaitResult(_ context.Context, jobID string) (*media.RenderOutput, error) {
	c.mu.Lock()
	req, ok := c.pending[jobID]
	dur, found := c.pinned[req.LipSyncVideoURL]
	if !found {
		dur, found = c.observed[req.LipSyncVideoURL]
	}
	c.mu.Unlock()
	if !ok {
		return nil, &media.RemoteProcessingError{Stage: media.StageRender, Message: "unknown job " + jobID}
	}
	if !found {
		dur = 60
	}
	return &media.RenderOutput{
		VideoURL:      fmt.Sprintf("memory://render/%s.mp4", jobID),
		ThumbnailURL:  fmt.Sprintf("memory://render/%s.jpg", jobID),
		DurationSec:   dur,
		Width:         c.spec.TargetWidth,
		Height:        c.spec.TargetHeight,
		FrameRate:     c.spec.TargetFrameRate,
		FileSizeBytes: int64(dur * 1_000_000),
	}, nil
}

func (c *FakeRenderClient) Cancel(_ context.Context, jobID string) error {
	c.jobs.cancel(jobID)
	return nil
}

func (c *FakeRenderClient) Generate(ctx context.Context, req RenderRequest) (*media.RenderOutput, error) {
	id, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.AwaitResult(ctx, id)
}

type FakeTranscriptClient struct {
	jobs    *fakeJobs
	mu      sync.Mutex
	pending map[string]TranscriptRequest
	// scripts maps audio locators back to the narration text so the fake
	// can emit a word-accurate transcript.
	scripts map[string]string
}

func NewFakeTranscriptClient() *FakeTranscriptClient {
	return &FakeTranscriptClient{jobs: newFakeJobs(), pending: map[string]TranscriptRequest{}, scripts: map[string]string{}}
}

// RegisterAudio associates an audio locator with the script it was
// synthesized from.
func (c *FakeTranscriptClient) RegisterAudio(audioURL, script string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[audioURL] = script
}

func (c *FakeTranscriptClient) Submit(_ context.Context, req TranscriptRequest) (string, error) {
	if strings.TrimSpace(req.AudioURL) == "" {
		return "", &media.ValidationError{Stage: media.StageTranscript, Violations: []string{"audio locator is empty"}}
	}
	id := c.jobs.next(media.StageTranscript)
	c.mu.Lock()
	c.pending[id] = req
	c.mu.Unlock()
	return id, nil
}

func (c *FakeTranscriptClient) AwaitResult(_ context.Context, jobID string) (*media.TranscriptOutput, error) {
	c.mu.Lock()
	req, ok := c.pending[jobID]
	script := c.scripts[req.AudioURL]
	c.mu.Unlock()
	if !ok {
		return nil, &media.RemoteProcessingError{Stage: media.StageTranscript, Message: "unknown job " + jobID}
	}
	if script == "" {
		script = "placeholder narration for " + req.AudioURL
	}

	words := strings.Fields(script)
	durationSec := estimateDurationSec(script)
	perWordMS := durationSec * 1000 / float64(len(words))
	tw := make([]media.TranscriptWord, len(words))
	for i, w := range words {
		tw[i] = media.TranscriptWord{
			Word:       w,
			StartMS:    float64(i) * perWordMS,
			EndMS:      float64(i+1) * perWordMS,
			Confidence: 0.98,
		}
	}
	return &media.TranscriptOutput{
		Text:        script,
		SubtitleURL: fmt.Sprintf("memory://transcript/%s.vtt", jobID),
		WordsURL:    fmt.Sprintf("memory://transcript/%s.words.json", jobID),
		DurationSec: durationSec,
		Words:       tw,
	}, nil
}

func (c *FakeTranscriptClient) Cancel(_ context.Context, jobID string) error {
	c.jobs.cancel(jobID)
	return nil
}

func (c *FakeTranscriptClient) Generate(ctx context.Context, req TranscriptRequest) (*media.TranscriptOutput, error) {
	id, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.AwaitResult(ctx, id)
}
