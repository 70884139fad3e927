package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/veridoc/veridoc/internal/domain"
)

// DefaultAPIKeyHeader is the header scoring requests authenticate with
// unless the configuration overrides it.
const DefaultAPIKeyHeader = "X-RapidAPI-Key"

// detectPath is the synchronous scoring endpoint relative to the base URL.
const detectPath = "/api/v1/detectText"

// syncProvider scores a chunk in a single request/response round trip
// against a detection API.
type syncProvider struct {
	rest     *resty.Client
	classify ErrorClassifier
}

// syncRequest is the scoring request payload.
type syncRequest struct {
	InputText string `json:"input_text"`
}

// syncResponse covers both response shapes the detection API emits: the
// enveloped form with a data object, and the legacy flat form carrying
// only a fake percentage.
type syncResponse struct {
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	Data           *syncData `json:"data,omitempty"`
	FakePercentage *float64  `json:"fakePercentage,omitempty"`
	Feedback       string    `json:"feedback,omitempty"`
}

type syncData struct {
	IsHumanWritten float64 `json:"is_human_written"`
	IsGPTGenerated float64 `json:"is_gpt_generated"`
	WordsCount     int     `json:"words_count"`
	Feedback       string  `json:"feedback,omitempty"`
}

// newSyncProvider creates the synchronous provider from client config.
func newSyncProvider(config ClientConfig) (*syncProvider, error) {
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

	rest := newRestClient(config.HTTPClient)
	rest.SetBaseURL(config.BaseURL)
	rest.SetHeader("Content-Type", "application/json")
	rest.SetHeader(header, config.APIKey)

	return &syncProvider{
		rest:     rest,
		classify: ErrorClassifier{Provider: "sync-detector"},
	}, nil
}

// Name identifies the provider in logs, metrics and errors.
func (p *syncProvider) Name() string { return p.classify.Provider }

// DoScore submits the text and parses the provider's score response.
// Transport timeouts and upstream-unavailable statuses surface as
// retryable; everything else is terminal.
func (p *syncProvider) DoScore(ctx context.Context, text string) (domain.ChunkResult, error) {
	resp, err := p.rest.R().
		SetContext(ctx).
		SetBody(syncRequest{InputText: text}).
		Post(detectPath)
	if err != nil {
		return domain.ChunkResult{}, p.classify.ClassifyTransport(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return domain.ChunkResult{}, p.classify.ClassifyHTTPStatus(resp.StatusCode(), resp.Status())
	}

	var body syncResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return domain.ChunkResult{}, p.classify.Malformed("unparseable response body", err)
	}
	return p.toResult(body)
}

// toResult maps a 200 response body onto a ChunkResult. An explicit
// error field or a body with no score fields is a terminal failure.
func (p *syncProvider) toResult(body syncResponse) (domain.ChunkResult, error) {
	if body.Error != "" {
		return domain.ChunkResult{}, p.classify.Malformed(
			fmt.Sprintf("provider reported error: %s", body.Error), nil)
	}

	if body.Success && body.Data != nil {
		return domain.ChunkResult{
			HumanScore:   body.Data.IsHumanWritten,
			MachineScore: body.Data.IsGPTGenerated,
			WordCount:    body.Data.WordsCount,
			Feedback:     body.Data.Feedback,
		}, nil
	}

	if body.FakePercentage != nil {
		fake := *body.FakePercentage
		return domain.ChunkResult{
			HumanScore:   100 - fake,
			MachineScore: fake,
			Feedback:     body.Feedback,
		}, nil
	}

	return domain.ChunkResult{}, p.classify.Malformed("response missing score fields", nil)
}

// newRestClient builds a resty client, using the injected HTTP client
// when tests supply one.
func newRestClient(httpClient *http.Client) *resty.Client {
	if httpClient != nil {
		return resty.NewWithClient(httpClient)
	}
	return resty.New()
}
