package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/courseframe/courseframe-backend/internal/logger"
	"github.com/courseframe/courseframe-backend/internal/media"
)

// All four stage services speak the same job-queue wire protocol:
//
//	POST   {base}/v1/jobs          -> {"job_id": "..."}
//	GET    {base}/v1/jobs/{id}     -> {"status": "...", "error": "...", "result": {...}}
//	DELETE {base}/v1/jobs/{id}     -> best-effort cancel
//
// Remote status is one of queued/processing (keep polling), completed
// (result payload present) or failed (error text present).

type remoteJobStatus string

const (
	remoteStatusQueued     remoteJobStatus = "queued"
	remoteStatusProcessing remoteJobStatus = "processing"
	remoteStatusCompleted  remoteJobStatus = "completed"
	remoteStatusFailed     remoteJobStatus = "failed"
)

type submitResponse struct {
	JobID string `json:"job_id"`
}

type jobStatusResponse struct {
	Status remoteJobStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// stageHTTP is the shared submit/poll/cancel cycle. Each stage client wraps
// one of these with its own request shape and output parsing.
type stageHTTP struct {
	log        *logger.Logger
	stage      string
	cfg        StageConfig
	httpClient *http.Client
}

func newStageHTTP(log *logger.Logger, stage string, cfg StageConfig) *stageHTTP {
	cfg = cfg.withDefaults()
	return &stageHTTP{
		log:        log.With("client", stage),
		stage:      stage,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

func (s *stageHTTP) submit(ctx context.Context, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%s submit: encode request: %w", s.stage, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s submit: build request: %w", s.stage, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s submit: %w", s.stage, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s submit: unexpected status %d: %s", s.stage, resp.StatusCode, truncateBody(raw))
	}

	var sub submitResponse
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("%s submit: decode response: %w", s.stage, err)
	}
	if strings.TrimSpace(sub.JobID) == "" {
		return "", &media.ContractViolationError{Stage: s.stage, Violations: []string{"submit response carried no job_id"}}
	}

	s.log.Debug("Stage job submitted", "job_id", sub.JobID)
	return sub.JobID, nil
}

// awaitResult polls the status endpoint at a fixed interval until the job
// completes, fails remotely, or the attempt budget runs out. Transport
// errors while polling consume an attempt and polling continues; the job
// itself is never resubmitted here.
func (s *stageHTTP) awaitResult(ctx context.Context, jobID string) (json.RawMessage, error) {
	for attempt := 1; attempt <= s.cfg.MaxPollAttempts; attempt++ {
		if err := sleepOrDone(ctx, s.cfg.PollInterval); err != nil {
			return nil, err
		}

		st, err := s.pollOnce(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn("Stage poll attempt failed", "job_id", jobID, "attempt", attempt, "error", err)
			continue
		}

		switch st.Status {
		case remoteStatusQueued, remoteStatusProcessing:
			continue
		case remoteStatusCompleted:
			if len(st.Result) == 0 {
				return nil, &media.ContractViolationError{Stage: s.stage, Violations: []string{"completed job carried no result payload"}}
			}
			return st.Result, nil
		case remoteStatusFailed:
			return nil, &media.RemoteProcessingError{Stage: s.stage, Message: st.Error}
		default:
			return nil, &media.ContractViolationError{Stage: s.stage, Violations: []string{fmt.Sprintf("unknown remote status %q", st.Status)}}
		}
	}
	return nil, &media.TimeoutError{Stage: s.stage, Attempts: s.cfg.MaxPollAttempts, Interval: s.cfg.PollInterval}
}

func (s *stageHTTP) pollOnce(ctx context.Context, jobID string) (*jobStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/v1/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(raw))
	}

	var st jobStatusResponse
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}

// cancel is best-effort: the remote may already be done, gone, or not
// support aborting mid-flight. Failures are logged, never propagated.
func (s *stageHTTP) cancel(ctx context.Context, jobID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.cfg.BaseURL+"/v1/jobs/"+jobID, nil)
	if err != nil {
		return err
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn("Stage job cancel failed", "job_id", jobID, "error", err)
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	s.log.Debug("Stage job cancel requested", "job_id", jobID, "status_code", resp.StatusCode)
	return nil
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncateBody(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
