package media

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/media"
)

// RenderRequest composes the lip-synced avatar with slides and branding
// into the final lesson video. Width/height/frame rate are the requested
// output parameters; the service must still clear the documented floor.
type RenderRequest struct {
	LipSyncVideoURL string  `json:"lipsync_video_url"`
	AudioURL        string  `json:"audio_url"`
	LessonTitle     string  `json:"lesson_title"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FrameRate       float64 `json:"frame_rate"`
}

type RenderClient interface {
	Submit(ctx context.Context, req RenderRequest) (string, error)
	AwaitResult(ctx context.Context, jobID string) (*media.RenderOutput, error)
	Cancel(ctx context.Context, jobID string) error
	Generate(ctx context.Context, req RenderRequest) (*media.RenderOutput, error)
}

type renderClient struct {
	http *stageHTTP
	spec media.Spec
}

func NewRenderClient(log *logger.Logger, cfg StageConfig, spec media.Spec) RenderClient {
	return &renderClient{http: newStageHTTP(log, media.StageRender, cfg), spec: spec}
}

func (c *renderClient) Submit(ctx context.Context, req RenderRequest) (string, error) {
	if req.Width == 0 && req.Height == 0 {
		req.Width, req.Height = c.spec.TargetWidth, c.spec.TargetHeight
	}
	if req.FrameRate == 0 {
		req.FrameRate = c.spec.TargetFrameRate
	}

	var violations []string
	if strings.TrimSpace(req.LipSyncVideoURL) == "" {
		violations = append(violations, "lip-sync video locator is empty")
	}
	if strings.TrimSpace(req.AudioURL) == "" {
		violations = append(violations, "audio locator is empty")
	}
	if req.Width < c.spec.MinWidth || req.Height < c.spec.MinHeight {
		violations = append(violations, "requested resolution is below the 1080p floor")
	}
	if req.FrameRate < c.spec.MinFrameRate || req.FrameRate > c.spec.MaxFrameRate {
		violations = append(violations, "requested frame rate outside the allowed range")
	}
	if len(violations) > 0 {
		return "", &media.ValidationError{Stage: media.StageRender, Violations: violations}
	}
	return c.http.submit(ctx, req)
}

func (c *renderClient) AwaitResult(ctx context.Context, jobID string) (*media.RenderOutput, error) {
	raw, err := c.http.awaitResult(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var out media.RenderOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &media.ContractViolationError{Stage: media.StageRender, Violations: []string{"result payload is not valid render output: " + err.Error()}}
	}
	if violations := media.ValidateRenderOutput(&out, c.spec); len(violations) > 0 {
		return nil, &media.ContractViolationError{Stage: media.StageRender, Violations: violations}
	}
	return &out, nil
}

func (c *renderClient) Cancel(ctx context.Context, jobID string) error {
	return c.http.cancel(ctx, jobID)
}

func (c *renderClient) Generate(ctx context.Context, req RenderRequest) (*media.RenderOutput, error) {
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
