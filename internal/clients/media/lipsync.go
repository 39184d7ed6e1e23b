package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/media"
)

// LipSyncRequest drives avatar lip-sync generation: the synthesized audio,
// its timing marks and the instructor's base avatar video.
type LipSyncRequest struct {
	AudioURL       string             `json:"audio_url"`
	TimingMarks    []media.TimingMark `json:"timing_marks"`
	AvatarVideoURL string             `json:"avatar_video_url"`
}

type LipSyncClient interface {
	Submit(ctx context.Context, req LipSyncRequest) (string, error)
	AwaitResult(ctx context.Context, jobID string) (*media.LipSyncOutput, error)
	Cancel(ctx context.Context, jobID string) error
	Generate(ctx context.Context, req LipSyncRequest) (*media.LipSyncOutput, error)
}

type lipSyncClient struct {
	http *stageHTTP
	spec media.Spec
}

func NewLipSyncClient(log *logger.Logger, cfg StageConfig, spec media.Spec) LipSyncClient {
	return &lipSyncClient{http: newStageHTTP(log, media.StageLipSync, cfg), spec: spec}
}

func (c *lipSyncClient) Submit(ctx context.Context, req LipSyncRequest) (string, error) {
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
	for i, m := range req.TimingMarks {
		if m.StartMS < 0 || m.EndMS < m.StartMS {
			violations = append(violations, fmt.Sprintf("timing mark %d is malformed (start=%.0fms end=%.0fms)", i, m.StartMS, m.EndMS))
		}
	}
	if len(violations) > 0 {
		return "", &media.ValidationError{Stage: media.StageLipSync, Violations: violations}
	}
	return c.http.submit(ctx, req)
}

func (c *lipSyncClient) AwaitResult(ctx context.Context, jobID string) (*media.LipSyncOutput, error) {
	raw, err := c.http.awaitResult(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var out media.LipSyncOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &media.ContractViolationError{Stage: media.StageLipSync, Violations: []string{"result payload is not valid lip-sync output: " + err.Error()}}
	}
	if violations := media.ValidateLipSyncOutput(&out, c.spec); len(violations) > 0 {
		return nil, &media.ContractViolationError{Stage: media.StageLipSync, Violations: violations}
	}
	return &out, nil
}

func (c *lipSyncClient) Cancel(ctx context.Context, jobID string) error {
	return c.http.cancel(ctx, jobID)
}

func (c *lipSyncClient) Generate(ctx context.Context, req LipSyncRequest) (*media.LipSyncOutput, error) {
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
