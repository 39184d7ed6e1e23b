package pipeline

import (
	"context"
	"strings"

	mediaclient "github.com/courseframe/courseframe-backend/internal/clients/media"
	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/media"
)

// LessonInput is everything the pipeline needs to produce one lesson
// video. LessonIndex is the lesson's zero-based position in the course and
// never changes once assigned.
type LessonInput struct {
	LessonIndex    int
	Title          string
	Content        string
	Script         string
	VoiceID        string
	AvatarVideoURL string
	Language       string
}

// StageOutputs collects the artifacts of every completed stage. Stages a
// lesson never reached stay nil.
type StageOutputs struct {
	Speech     *media.SpeechOutput     `json:"speech,omitempty"`
	LipSync    *media.LipSyncOutput    `json:"lipsync,omitempty"`
	Render     *media.RenderOutput     `json:"render,omitempty"`
	Transcript *media.TranscriptOutput `json:"transcript,omitempty"`
}

// LessonResult is the terminal record of one lesson run. Err is nil iff
// Status is completed; on failure FailedStage names the stage that broke
// and Outputs keeps whatever the earlier stages produced.
type LessonResult struct {
	LessonIndex  int
	Title        string
	Status       Status
	Progress     int
	Outputs      StageOutputs
	DurationSec  float64
	FailedStage  string
	ErrorMessage string
	Err          error
}

// Progress is one progress callback event. Percent is monotone over the
// life of a lesson and reaches 100 only on completion.
type Progress struct {
	LessonIndex int
	Status      Status
	Stage       string
	Percent     int
	Message     string
}

// ProgressFunc receives progress events. Implementations run on the
// pipeline goroutine; a panicking callback is recovered and logged, it
// never aborts the lesson.
type ProgressFunc func(p Progress)

type LessonPipeline interface {
	GenerateLesson(ctx context.Context, in LessonInput, report ProgressFunc) LessonResult
}

type lessonPipeline struct {
	log        *logger.Logger
	speech     mediaclient.SpeechClient
	lipSync    mediaclient.LipSyncClient
	render     mediaclient.RenderClient
	transcript mediaclient.TranscriptClient
	spec       media.Spec
}

func NewLessonPipeline(
	log *logger.Logger,
	speech mediaclient.SpeechClient,
	lipSync mediaclient.LipSyncClient,
	render mediaclient.RenderClient,
	transcript mediaclient.TranscriptClient,
	spec media.Spec,
) LessonPipeline {
	return &lessonPipeline{
		log:        log.With("service", "LessonPipeline"),
		speech:     speech,
		lipSync:    lipSync,
		render:     render,
		transcript: transcript,
		spec:       spec,
	}
}

// GenerateLesson runs the stage chain for one lesson:
// scripting check, speech synthesis, lip-sync, render, transcription.
// A stage error fails the lesson immediately; nothing is retried here.
// The returned result is always terminal.
func (p *lessonPipeline) GenerateLesson(ctx context.Context, in LessonInput, report ProgressFunc) LessonResult {
	res := LessonResult{
		LessonIndex: in.LessonIndex,
		Title:       in.Title,
		Status:      StatusPending,
		Progress:    ProgressFor(StatusPending),
	}
	log := p.log.With("lesson_index", in.LessonIndex, "lesson_title", in.Title)

	emit := func(msg string) {
		if report == nil {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				log.Error("Progress callback panicked", "panic", r, "status", res.Status)
			}
		}()
		report(Progress{
			LessonIndex: in.LessonIndex,
			Status:      res.Status,
			Stage:       stageFor(res.Status),
			Percent:     res.Progress,
			Message:     msg,
		})
	}

	advance := func(to Status, msg string) {
		res.Status = to
		if pct := ProgressFor(to); pct > res.Progress {
			res.Progress = pct
		}
		emit(msg)
	}

	fail := func(stage string, err error) LessonResult {
		res.Status = StatusFailed
		res.FailedStage = stage
		res.ErrorMessage = err.Error()
		res.Err = err
		log.Error("Lesson generation failed", "stage", stage, "error", err)
		emit("lesson failed during " + stage + ": " + err.Error())
		return res
	}

	// Scripting check runs before any remote call.
	advance(StatusScripting, "validating lesson script")
	if strings.TrimSpace(in.Script) == "" {
		return fail(media.StageScripting, &media.ValidationError{
			Stage:      media.StageScripting,
			Violations: []string{"lesson script is blank"},
		})
	}
	if err := ctx.Err(); err != nil {
		return fail(media.StageScripting, err)
	}

	advance(StatusTTS, "synthesizing narration audio")
	speechOut, err := p.speech.Generate(ctx, mediaclient.SpeechRequest{
		Script:  in.Script,
		VoiceID: in.VoiceID,
	})
	if err != nil {
		return fail(media.StageSpeech, err)
	}
	res.Outputs.Speech = speechOut

	advance(StatusLipSync, "generating lip-synced avatar video")
	lipSyncOut, err := p.lipSync.Generate(ctx, mediaclient.LipSyncRequest{
		AudioURL:       speechOut.AudioURL,
		TimingMarks:    speechOut.TimingMarks,
		AvatarVideoURL: in.AvatarVideoURL,
	})
	if err != nil {
		return fail(media.StageLipSync, err)
	}
	if err := media.CheckSync(speechOut.DurationSec, lipSyncOut.DurationSec, p.spec.SyncToleranceMS); err != nil {
		return fail(media.StageLipSync, err)
	}
	res.Outputs.LipSync = lipSyncOut

	advance(StatusRendering, "rendering final lesson video")
	renderOut, err := p.render.Generate(ctx, mediaclient.RenderRequest{
		LipSyncVideoURL: lipSyncOut.VideoURL,
		AudioURL:        speechOut.AudioURL,
		LessonTitle:     in.Title,
	})
	if err != nil {
		return fail(media.StageRender, err)
	}
	if err := media.CheckSync(speechOut.DurationSec, renderOut.DurationSec, p.spec.SyncToleranceMS); err != nil {
		return fail(media.StageRender, err)
	}
	res.Outputs.Render = renderOut
	res.DurationSec = renderOut.DurationSec

	advance(StatusTranscript, "transcribing narration")
	transcriptOut, err := p.transcript.Generate(ctx, mediaclient.TranscriptRequest{
		AudioURL: speechOut.AudioURL,
		Language: in.Language,
	})
	if err != nil {
		return fail(media.StageTranscript, err)
	}
	res.Outputs.Transcript = transcriptOut

	advance(StatusCompleted, "lesson generation complete")
	log.Info("Lesson generation complete", "duration_sec", res.DurationSec)
	return res
}

func stageFor(s Status) string {
	switch s {
	case StatusScripting:
		return media.StageScripting
	case StatusTTS:
		return media.StageSpeech
	case StatusLipSync:
		return media.StageLipSync
	case StatusRendering:
		return media.StageRender
	case StatusTranscript:
		return media.StageTranscript
	default:
		return ""
	}
}
