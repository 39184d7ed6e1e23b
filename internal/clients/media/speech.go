package media

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/media"
)

// SpeechRequest is the input to the speech synthesis stage. VoiceID selects
// the instructor voice on the remote service.
type SpeechRequest struct {
	Script  string `json:"script"`
	VoiceID string `json:"voice_id"`
}

type SpeechClient interface {
	Submit(ctx context.Context, req SpeechRequest) (string, error)
	AwaitResult(ctx context.Context, jobID string) (*media.SpeechOutput, error)
	Cancel(ctx context.Context, jobID string) error
	Generate(ctx context.Context, req SpeechRequest) (*media.SpeechOutput, error)
}

type speechClient struct {
	http *stageHTTP
}

func NewSpeechClient(log *logger.Logger, cfg StageConfig) SpeechClient {
	return &speechClient{http: newStageHTTP(log, media.StageSpeech, cfg)}
}

func (c *speechClient) Submit(ctx context.Context, req SpeechRequest) (string, error) {
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
	return c.http.submit(ctx, req)
}

func (c *speechClient) AwaitResult(ctx context.Context, jobID string) (*media.SpeechOutput, error) {
	raw, err := c.http.awaitResult(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var out media.SpeechOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &media.ContractViolationError{Stage: media.StageSpeech, Violations: []string{"result payload is not valid speech output: " + err.Error()}}
	}
	if violations := media.ValidateSpeechOutput(&out); len(violations) > 0 {
		return nil, &media.ContractViolationError{Stage: media.StageSpeech, Violations: violations}
	}
	return &out, nil
}

func (c *speechClient) Cancel(ctx context.Context, jobID string) error {
	return c.http.cancel(ctx, jobID)
}

// Generate runs the full submit/poll cycle. On context cancellation it
// requests a best-effort remote cancel before returning.
func (c *speechClient) Generate(ctx context.Context, req SpeechRequest) (*media.SpeechOutput, error) {
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
