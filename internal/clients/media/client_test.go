package media

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/media"
)

func testLogger() *logger.Logger {
	return logger.NewNop()
}

// stageServer simulates the remote job queue: a scripted sequence of
// status responses played back one poll at a time.
type stageServer struct {
	t         *testing.T
	responses []jobStatusResponse
	polls     int
	canceled  bool
}

func (s *stageServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(submitResponse{JobID: "job-1"})
	})
	mux.HandleFunc("GET /v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		idx := s.polls
		if idx >= len(s.responses) {
			idx = len(s.responses) - 1
		}
		s.polls++
		_ = json.NewEncoder(w).Encode(s.responses[idx])
	})
	mux.HandleFunc("DELETE /v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.canceled = true
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func fastConfig(baseURL string, attempts int) StageConfig {
	return StageConfig{
		BaseURL:         baseURL,
		PollInterval:    time.Millisecond,
		MaxPollAttempts: attempts,
		HTTPTimeout:     2 * time.Second,
	}
}

func mustResult(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	return raw
}

func TestSpeechClientInputValidation(t *testing.T) {
	c := NewSpeechClient(testLogger(), fastConfig("http://unused", 3))

	_, err := c.Submit(context.Background(), SpeechRequest{Script: "  ", VoiceID: ""})
	var ve *media.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Violations) != 2 {
		t.Fatalf("violations: want=2 got=%d (%v)", len(ve.Violations), ve.Violations)
	}
}

func TestSpeechClientCompletedAfterProcessing(t *testing.T) {
	srv := &stageServer{t: t, responses: []jobStatusResponse{
		{Status: remoteStatusQueued},
		{Status: remoteStatusProcessing},
		{Status: remoteStatusCompleted, Result: mustResult(t, media.SpeechOutput{
			AudioURL:    "https://cdn.example.com/a.mp3",
			DurationSec: 12.5,
			TimingMarks: []media.TimingMark{{Label: "hello", StartMS: 0, EndMS: 400}},
		})},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := NewSpeechClient(testLogger(), fastConfig(ts.URL, 10))
	out, err := c.Generate(context.Background(), SpeechRequest{Script: "hello world", VoiceID: "v1"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.AudioURL != "https://cdn.example.com/a.mp3" {
		t.Fatalf("audio url: got %q", out.AudioURL)
	}
	if srv.polls != 3 {
		t.Fatalf("polls: want=3 got=%d", srv.polls)
	}
}

func TestSpeechClientRemoteFailurePassesMessageVerbatim(t *testing.T) {
	srv := &stageServer{t: t, responses: []jobStatusResponse{
		{Status: remoteStatusFailed, Error: "voice model unavailable: v1"},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := NewSpeechClient(testLogger(), fastConfig(ts.URL, 5))
	_, err := c.Generate(context.Background(), SpeechRequest{Script: "hi", VoiceID: "v1"})
	var rpe *media.RemoteProcessingError
	if !errors.As(err, &rpe) {
		t.Fatalf("expected RemoteProcessingError, got %v", err)
	}
	if rpe.Message != "voice model unavailable: v1" {
		t.Fatalf("remote message altered: %q", rpe.Message)
	}
}

func TestSpeechClientTimeoutAfterBudget(t *testing.T) {
	srv := &stageServer{t: t, responses: []jobStatusResponse{
		{Status: remoteStatusProcessing},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := NewSpeechClient(testLogger(), fastConfig(ts.URL, 4))
	_, err := c.Generate(context.Background(), SpeechRequest{Script: "hi", VoiceID: "v1"})
	var te *media.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if te.Attempts != 4 {
		t.Fatalf("attempts: want=4 got=%d", te.Attempts)
	}
	if srv.polls != 4 {
		t.Fatalf("polls: want=4 got=%d", srv.polls)
	}
}

func TestRenderClientContractViolationOnWeakOutput(t *testing.T) {
	srv := &stageServer{t: t, responses: []jobStatusResponse{
		{Status: remoteStatusCompleted, Result: mustResult(t, media.RenderOutput{
			VideoURL:      "https://cdn.example.com/v.mp4",
			DurationSec:   30,
			Width:         1280,
			Height:        720,
			FrameRate:     25,
			FileSizeBytes: 1024,
		})},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := NewRenderClient(testLogger(), fastConfig(ts.URL, 5), media.DefaultSpec())
	_, err := c.Generate(context.Background(), RenderRequest{
		LipSyncVideoURL: "https://cdn.example.com/l.mp4",
		AudioURL:        "https://cdn.example.com/a.mp3",
	})
	var cve *media.ContractViolationError
	if !errors.As(err, &cve) {
		t.Fatalf("expected ContractViolationError, got %v", err)
	}
	found := false
	for _, v := range cve.Violations {
		if strings.Contains(v, "1080p") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a resolution-floor violation, got %v", cve.Violations)
	}
}

func TestTranscriptClientRejectsNonSequentialWords(t *testing.T) {
	srv := &stageServer{t: t, responses: []jobStatusResponse{
		{Status: remoteStatusCompleted, Result: mustResult(t, media.TranscriptOutput{
			Text:        "world hello",
			SubtitleURL: "https://cdn.example.com/t.vtt",
			DurationSec: 3,
			Words: []media.TranscriptWord{
				{Word: "world", StartMS: 1500, EndMS: 1900, Confidence: 0.9},
				{Word: "hello", StartMS: 1000, EndMS: 1400, Confidence: 0.9},
			},
		})},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := NewTranscriptClient(testLogger(), fastConfig(ts.URL, 5))
	_, err := c.Generate(context.Background(), TranscriptRequest{AudioURL: "https://cdn.example.com/a.mp3"})
	var cve *media.ContractViolationError
	if !errors.As(err, &cve) {
		t.Fatalf("expected ContractViolationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "non-sequential word timestamps") {
		t.Fatalf("violation text: %v", err)
	}
}

func TestLipSyncClientCancelBestEffort(t *testing.T) {
	srv := &stageServer{t: t, responses: []jobStatusResponse{
		{Status: remoteStatusProcessing},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := NewLipSyncClient(testLogger(), fastConfig(ts.URL, 100), media.DefaultSpec())
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.Generate(ctx, LipSyncRequest{
		AudioURL:       "https://cdn.example.com/a.mp3",
		AvatarVideoURL: "https://cdn.example.com/avatar.mp4",
		TimingMarks:    []media.TimingMark{{Label: "hi", StartMS: 0, EndMS: 200}},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !srv.canceled {
		t.Fatalf("expected a remote cancel request")
	}
}

func TestFakeSpeechDeterministic(t *testing.T) {
	script := "one two three four five six"

	a := NewFakeSpeechClient()
	b := NewFakeSpeechClient()
	outA, err := a.Generate(context.Background(), SpeechRequest{Script: script, VoiceID: "v1"})
	if err != nil {
		t.Fatalf("fake generate: %v", err)
	}
	outB, err := b.Generate(context.Background(), SpeechRequest{Script: script, VoiceID: "v1"})
	if err != nil {
		t.Fatalf("fake generate: %v", err)
	}

	if outA.DurationSec != outB.DurationSec {
		t.Fatalf("durations differ: %v vs %v", outA.DurationSec, outB.DurationSec)
	}
	// 6 words at 150 wpm is 2.4 seconds.
	if outA.DurationSec != 2.4 {
		t.Fatalf("duration: want=2.4 got=%v", outA.DurationSec)
	}
	if len(outA.TimingMarks) != 6 {
		t.Fatalf("timing marks: want=6 got=%d", len(outA.TimingMarks))
	}
	if v := media.ValidateSpeechOutput(outA); len(v) != 0 {
		t.Fatalf("fake output failed validation: %v", v)
	}
}

func TestFakeTranscriptMatchesRegisteredScript(t *testing.T) {
	c := NewFakeTranscriptClient()
	c.RegisterAudio("memory://speech/x.mp3", "alpha beta gamma")

	out, err := c.Generate(context.Background(), TranscriptRequest{AudioURL: "memory://speech/x.mp3"})
	if err != nil {
		t.Fatalf("fake generate: %v", err)
	}
	if out.Text != "alpha beta gamma" {
		t.Fatalf("text: got %q", out.Text)
	}
	if v := media.ValidateTranscriptOutput(out); len(v) != 0 {
		t.Fatalf("fake output failed validation: %v", v)
	}
}

func TestFakeRenderEchoesPairedLipSyncDuration(t *testing.T) {
	spec := media.DefaultSpec()
	speech := NewFakeSpeechClient()
	lipSync := NewFakeLipSyncClient(spec)
	render := NewFakeRenderClient(spec)
	lipSync.PairWithRender(render)

	// 30 words at the fake narration pace is 12 seconds of audio.
	script := strings.Repeat("narrate this line ", 10)
	so, err := speech.Generate(context.Background(), SpeechRequest{Script: script, VoiceID: "voice-1"})
	if err != nil {
		t.Fatalf("speech: %v", err)
	}
	lo, err := lipSync.Generate(context.Background(), LipSyncRequest{
		AudioURL:       so.AudioURL,
		AvatarVideoURL: "memory://avatars/a.mp4",
		TimingMarks:    so.TimingMarks,
	})
	if err != nil {
		t.Fatalf("lip-sync: %v", err)
	}
	ro, err := render.Generate(context.Background(), RenderRequest{
		LipSyncVideoURL: lo.VideoURL,
		AudioURL:        so.AudioURL,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if ro.DurationSec != lo.DurationSec {
		t.Fatalf("render duration: want=%v got=%v", lo.DurationSec, ro.DurationSec)
	}
	if err := media.CheckSync(so.DurationSec, ro.DurationSec, spec.SyncToleranceMS); err != nil {
		t.Fatalf("paired fake stack drifted: %v", err)
	}
}

func TestFakeRenderPinnedDurationWinsOverPairing(t *testing.T) {
	spec := media.DefaultSpec()
	speech := NewFakeSpeechClient()
	lipSync := NewFakeLipSyncClient(spec)
	render := NewFakeRenderClient(spec)
	lipSync.PairWithRender(render)
	render.SetDuration("memory://lipsync/fake-lipsync-1.mp4", 25)

	so, err := speech.Generate(context.Background(), SpeechRequest{Script: "one two three", VoiceID: "voice-1"})
	if err != nil {
		t.Fatalf("speech: %v", err)
	}
	lo, err := lipSync.Generate(context.Background(), LipSyncRequest{
		AudioURL:       so.AudioURL,
		AvatarVideoURL: "memory://avatars/a.mp4",
		TimingMarks:    so.TimingMarks,
	})
	if err != nil {
		t.Fatalf("lip-sync: %v", err)
	}
	ro, err := render.Generate(context.Background(), RenderRequest{
		LipSyncVideoURL: lo.VideoURL,
		AudioURL:        so.AudioURL,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if ro.DurationSec != 25 {
		t.Fatalf("pinned duration lost: want=25 got=%v", ro.DurationSec)
	}
}
