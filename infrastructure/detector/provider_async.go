package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/veridoc/veridoc/internal/domain"
)

// jobsPath is the job-creation endpoint relative to the base URL; job
// status lives under the same path keyed by job id.
const jobsPath = "/api/v1/jobs"

// Async lifecycle defaults, applied when the configuration leaves a
// field zero.
const (
	defaultCreateAttempts  = 1
	defaultMaxPollAttempts = 10
	defaultPollBaseDelay   = 2 * time.Second
	defaultPollMaxDelay    = 15 * time.Second
	defaultOverallTimeout  = 2 * time.Minute
)

// asyncProvider scores a chunk through an out-of-band job lifecycle:
// create a job, push the payload to the returned upload target, then
// poll the job status to a terminal state or timeout.
type asyncProvider struct {
	rest     *resty.Client
	classify ErrorClassifier
	cfg      AsyncConfig
	sleep    func(ctx context.Context, d time.Duration) error
}

type createJobRequest struct {
	Filename string `json:"filename"`
}

type createJobResponse struct {
	JobID     string `json:"job_id"`
	UploadURL string `json:"upload_url"`
}

type jobStatusResponse struct {
	Status domain.JobStatus `json:"status"`
	Error  string           `json:"error,omitempty"`
	Score  *syncData        `json:"score,omitempty"`
}

// newAsyncProvider creates the asynchronous provider from client config.
func newAsyncProvider(config ClientConfig) (*asyncProvider, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.BaseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	header := config.APIKeyHeader
	if header == "" {
		header = DefaultAPIKeyHeader
	}

	cfg := config.Async
	if cfg.CreateAttempts <= 0 {
		cfg.CreateAttempts = defaultCreateAttempts
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxPollAttempts
	}
	if cfg.PollBaseDelay <= 0 {
		cfg.PollBaseDelay = defaultPollBaseDelay
	}
	if cfg.PollMaxDelay <= 0 {
		cfg.PollMaxDelay = defaultPollMaxDelay
	}
	if cfg.OverallTimeout <= 0 {
		cfg.OverallTimeout = defaultOverallTimeout
	}

	rest := newRestClient(config.HTTPClient)
	rest.SetBaseURL(config.BaseURL)
	rest.SetHeader(header, config.APIKey)

	return &asyncProvider{
		rest:     rest,
		classify: ErrorClassifier{Provider: "async-detector"},
		cfg:      cfg,
		sleep:    sleepCtx,
	}, nil
}

// Name identifies the provider in logs, metrics and errors.
func (p *asyncProvider) Name() string { return p.classify.Provider }

// DoScore drives the job state machine to completion under the overall
// wall-clock budget. A job still pending when the poll count or the wall
// clock runs out surfaces as a timeout distinct from provider failure;
// the job may still complete later out-of-band.
func (p *asyncProvider) DoScore(ctx context.Context, text string) (domain.ChunkResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.OverallTimeout)
	defer cancel()

	job, err := p.createJob(ctx)
	if err != nil {
		return domain.ChunkResult{}, err
	}

	if err := p.upload(ctx, job.UploadURL, text); err != nil {
		return domain.ChunkResult{}, err
	}

	return p.poll(ctx, job)
}

// createJob requests a new job and returns its identifier and upload
// target. Creation failures are terminal unless CreateAttempts permits
// retrying transient ones.
func (p *asyncProvider) createJob(ctx context.Context) (domain.Job, error) {
	filename := uuid.NewString() + ".txt"

	var lastErr error
	for attempt := 0; attempt < p.cfg.CreateAttempts; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, p.cfg.PollBaseDelay); err != nil {
				break
			}
		}

		job, err := p.createJobOnce(ctx, filename)
		if err == nil {
			return job, nil
		}
		lastErr = err

		var pe *ProviderError
		if ctx.Err() != nil || !errors.As(err, &pe) || !pe.Retryable() {
			break
		}
	}
	return domain.Job{}, fmt.Errorf("job creation failed: %w", lastErr)
}

func (p *asyncProvider) createJobOnce(ctx context.Context, filename string) (domain.Job, error) {
	resp, err := p.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(createJobRequest{Filename: filename}).
		Post(jobsPath)
	if err != nil {
		return domain.Job{}, p.classify.ClassifyTransport(err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return domain.Job{}, p.classify.ClassifyHTTPStatus(resp.StatusCode(), resp.Status())
	}

	var body createJobResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return domain.Job{}, p.classify.Malformed("unparseable job creation response", err)
	}
	if body.JobID == "" || body.UploadURL == "" {
		return domain.Job{}, p.classify.Malformed("job creation response missing job id or upload url", nil)
	}

	return domain.Job{
		ID:        body.JobID,
		Status:    domain.JobPending,
		CreatedAt: time.Now(),
		UploadURL: body.UploadURL,
	}, nil
}

// upload pushes the chunk payload to the job's upload target. Any
// failure here ends the job; there is nothing to poll for.
func (p *asyncProvider) upload(ctx context.Context, uploadURL, text string) error {
	resp, err := p.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain").
		SetBody(text).
		Put(uploadURL)
	if err != nil {
		return fmt.Errorf("payload upload failed: %w", p.classify.ClassifyTransport(err))
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return fmt.Errorf("payload upload failed: %w",
			p.classify.ClassifyHTTPStatus(resp.StatusCode(), resp.Status()))
	}
	return nil
}

// poll queries job status with capped exponential backoff until a
// terminal state, the poll budget, or the wall clock ends the job.
// Transient poll errors do not count against the poll budget; the wall
// clock bounds them.
func (p *asyncProvider) poll(ctx context.Context, job domain.Job) (domain.ChunkResult, error) {
	delay := p.cfg.PollBaseDelay
	polls := 0

	for polls < p.cfg.MaxPollAttempts {
		if err := p.sleep(ctx, delay); err != nil {
			return domain.ChunkResult{}, p.classify.TimedOut(
				fmt.Sprintf("job %s still pending at deadline", job.ID))
		}

		status, err := p.pollOnce(ctx, job.ID)
		if err != nil {
			var pe *ProviderError
			if ctx.Err() == nil && errors.As(err, &pe) && pe.Retryable() {
				continue
			}
			if ctx.Err() != nil {
				return domain.ChunkResult{}, p.classify.TimedOut(
					fmt.Sprintf("job %s still pending at deadline", job.ID))
			}
			return domain.ChunkResult{}, err
		}
		polls++

		switch status.Status {
		case domain.JobCompleted:
			if status.Score == nil {
				return domain.ChunkResult{}, &ProviderError{
					Provider:     p.classify.Provider,
					Class:        domain.FailureTerminal,
					Message:      fmt.Sprintf("job %s completed without a score", job.ID),
					WrappedError: domain.ErrNoUsableResult,
				}
			}
			return domain.ChunkResult{
				HumanScore:   status.Score.IsHumanWritten,
				MachineScore: status.Score.IsGPTGenerated,
				WordCount:    status.Score.WordsCount,
				Feedback:     status.Score.Feedback,
			}, nil
		case domain.JobFailed:
			msg := status.Error
			if msg == "" {
				msg = "provider reported job failure"
			}
			return domain.ChunkResult{}, &ProviderError{
				Provider: p.classify.Provider,
				Class:    domain.FailureTerminal,
				Message:  fmt.Sprintf("job %s failed: %s", job.ID, msg),
			}
		}

		delay *= 2
		if delay > p.cfg.PollMaxDelay {
			delay = p.cfg.PollMaxDelay
		}
	}

	return domain.ChunkResult{}, p.classify.TimedOut(
		fmt.Sprintf("job %s still pending after %d polls", job.ID, polls))
}

func (p *asyncProvider) pollOnce(ctx context.Context, jobID string) (jobStatusResponse, error) {
	var status jobStatusResponse

	resp, err := p.rest.R().
		SetContext(ctx).
		Get(jobsPath + "/" + jobID)
	if err != nil {
		return status, p.classify.ClassifyTransport(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return status, p.classify.ClassifyHTTPStatus(resp.StatusCode(), resp.Status())
	}
	if err := json.Unmarshal(resp.Body(), &status); err != nil {
		return status, p.classify.Malformed("unparseable job status response", err)
	}
	return status, nil
}
