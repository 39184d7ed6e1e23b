package media

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/media"
)

// TranscriptRequest asks the transcription service for word-level timings
// of the synthesized audio. Language is a BCP 47 tag; blank means
// autodetect.
type TranscriptRequest struct {
	AudioURL string `json:"audio_url"`
	Language string `json:"language,omitempty"`
}

type TranscriptClient interface {
	Submit(ctx context.Context, req TranscriptRequest) (string, error)
	AwaitResult(ctx context.Context, jobID string) (*media.TranscriptOutput, error)
	Cancel(ctx context.Context, jobID string) error
	Generate(ctx context.Context, req TranscriptRequest) (*media.TranscriptOutput, error)
}

type transcriptClient struct {
	http *stageHTTP
}

func NewTranscriptClient(log *logger.Logger, cfg StageConfig) TranscriptClient {
	return &transcriptClient{http: newStageHTTP(log, media.StageTranscript, cfg)}
}

func (c *transcriptClient) Submit(ctx context.Context, req TranscriptRequest) (string, error) {
	if strings.TrimSpace(req.AudioURL) == "" {
		return "", &media.ValidationError{Stage: media.StageTranscript, Violations: []string{"audio locator is empty"}}
	}
	return c.http.submit(ctx, req)
}

func (c *transcriptClient) AwaitResult(ctx context.Context, jobID string) (*media.TranscriptOutput, error) {
	raw, err := c.http.awaitResult(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var out media.TranscriptOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &media.ContractViolationError{Stage: media.StageTranscript, Violations: []string{"result payload is not valid transcript output: " + err.Error()}}
	}
	if violations := media.ValidateTranscriptOutput(&out); len(violations) > 0 {
		return nil, &media.ContractViolationError{Stage: media.StageTranscript, Violations: violations}
	}
	return &out, nil
}

func (c *transcriptClient) Cancel(ctx context.Context, jobID string) error {
	return c.http.cancel(ctx, jobID)
}

func (c *transcriptClient) Generate(ctx context.Context, req TranscriptRequest) (*media.TranscriptOutput, error) {
	jobID, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	out, err := c.AwaitResult(ctx, jobID)
	if err != nil && ctx.Err() != nil {
		_ = c.Cancel(context.WithoutCancel(ctx), jobID)
	}
	return out, err
}
