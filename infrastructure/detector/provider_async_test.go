package detector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/veridoc/internal/domain"
)

// asyncFixture is a scripted job server: it hands out one job, captures
// the uploaded payload, and serves the scripted status responses in
// order, repeating the last one.
type asyncFixture struct {
	t        *testing.T
	server   *httptest.Server
	statuses []jobStatusResponse
	polls    int
	uploaded string

	createStatus int
	uploadStatus int
}

func newAsyncFixture(t *testing.T, statuses ...jobStatusResponse) *asyncFixture {
	f := &asyncFixture{
		t:            t,
		statuses:     statuses,
		createStatus: http.StatusCreated,
		uploadStatus: http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+jobsPath, func(w http.ResponseWriter, r *http.Request) {
		if f.createStatus != http.StatusCreated && f.createStatus != http.StatusOK {
			w.WriteHeader(f.createStatus)
			return
		}
		w.WriteHeader(f.createStatus)
		json.NewEncoder(w).Encode(createJobResponse{
			JobID:     "job-1",
			UploadURL: f.server.URL + "/upload/job-1",
		})
	})
	mux.HandleFunc("PUT /upload/job-1", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.uploaded = string(body)
		w.WriteHeader(f.uploadStatus)
	})
	mux.HandleFunc("GET "+jobsPath+"/job-1", func(w http.ResponseWriter, r *http.Request) {
		i := f.polls
		f.polls++
		if i >= len(f.statuses) {
			i = len(f.statuses) - 1
		}
		json.NewEncoder(w).Encode(f.statuses[i])
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// provider returns an async provider pointed at the fixture with an
// instant sleep.
func (f *asyncFixture) provider(cfg AsyncConfig) *asyncProvider {
	f.t.Helper()
	p, err := newAsyncProvider(ClientConfig{
		APIKey:     "test-key",
		BaseURL:    f.server.URL,
		HTTPClient: f.server.Client(),
		Async:      cfg,
	})
	require.NoError(f.t, err)
	p.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return p
}

func pendingStatus() jobStatusResponse {
	return jobStatusResponse{Status: domain.JobPending}
}

func completedStatus(human, machine float64, words int) jobStatusResponse {
	return jobStatusResponse{
		Status: domain.JobCompleted,
		Score:  &syncData{IsHumanWritten: human, IsGPTGenerated: machine, WordsCount: words},
	}
}

func TestAsyncProvider_HappyPath(t *testing.T) {
	f := newAsyncFixture(t,
		pendingStatus(),
		pendingStatus(),
		completedStatus(85.5, 14.5, 512),
	)
	p := f.provider(AsyncConfig{})

	result, err := p.DoScore(context.Background(), "the uploaded chunk")
	require.NoError(t, err)

	assert.Equal(t, "the uploaded chunk", f.uploaded)
	assert.Equal(t, 85.5, result.HumanScore)
	assert.Equal(t, 14.5, result.MachineScore)
	assert.Equal(t, 512, result.WordCount)
	assert.Equal(t, 3, f.polls)
}

func TestAsyncProvider_ImmediateCompletion(t *testing.T) {
	f := newAsyncFixture(t, completedStatus(60, 40, 100))
	p := f.provider(AsyncConfig{})

	result, err := p.DoScore(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 60.0, result.HumanScore)
	assert.Equal(t, 1, f.polls)
}

func TestAsyncProvider_PendingForeverTimesOut(t *testing.T) {
	f := newAsyncFixture(t, pendingStatus())
	p := f.provider(AsyncConfig{MaxPollAttempts: 4})

	_, err := p.DoScore(context.Background(), "text")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.FailureTimeout, pe.Class)
	assert.ErrorIs(t, err, domain.ErrJobTimedOut)
	assert.Equal(t, 4, f.polls, "the poll budget bounds status requests")
}

func TestAsyncProvider_JobFailed(t *testing.T) {
	f := newAsyncFixture(t, jobStatusResponse{
		Status: domain.JobFailed,
		Error:  "document could not be processed",
	})
	p := f.provider(AsyncConfig{})

	_, err := p.DoScore(context.Background(), "text")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.FailureTerminal, pe.Class)
	assert.Contains(t, pe.Message, "document could not be processed")
	assert.NotErrorIs(t, err, domain.ErrJobTimedOut)
}

func TestAsyncProvider_CompletedWithoutScore(t *testing.T) {
	f := newAsyncFixture(t, jobStatusResponse{Status: domain.JobCompleted})
	p := f.provider(AsyncConfig{})

	_, err := p.DoScore(context.Background(), "text")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.FailureTerminal, pe.Class)
	assert.ErrorIs(t, err, domain.ErrNoUsableResult)
}

func TestAsyncProvider_UploadFailureEndsJob(t *testing.T) {
	f := newAsyncFixture(t, completedStatus(50, 50, 10))
	f.uploadStatus = http.StatusInternalServerError
	p := f.provider(AsyncConfig{})

	_, err := p.DoScore(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload upload failed")
	assert.Equal(t, 0, f.polls, "a failed upload must not be polled for")
}

func TestAsyncProvider_CreateFailureIsFinalByDefault(t *testing.T) {
	f := newAsyncFixture(t, completedStatus(50, 50, 10))
	f.createStatus = http.StatusServiceUnavailable
	p := f.provider(AsyncConfig{})

	_, err := p.DoScore(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "job creation failed")
	assert.Empty(t, f.uploaded)
}

func TestAsyncProvider_CreateRetriesWhenConfigured(t *testing.T) {
	var createCalls int
	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("POST "+jobsPath, func(w http.ResponseWriter, r *http.Request) {
		createCalls++
		if createCalls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(createJobResponse{
			JobID:     "job-1",
			UploadURL: serverURL + "/upload/job-1",
		})
	})
	mux.HandleFunc("PUT /upload/job-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET "+jobsPath+"/job-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completedStatus(70, 30, 20))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	serverURL = server.URL

	p, err := newAsyncProvider(ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Async:      AsyncConfig{CreateAttempts: 2},
	})
	require.NoError(t, err)
	p.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	result, err := p.DoScore(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 70.0, result.HumanScore)
	assert.Equal(t, 2, createCalls)
}

func TestAsyncProvider_MalformedCreateResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing job id", body: `{"upload_url": "http://x.test/u"}`},
		{name: "missing upload url", body: `{"job_id": "job-9"}`},
		{name: "not json", body: "oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			t.Cleanup(server.Close)

			p, err := newAsyncProvider(ClientConfig{
				APIKey:     "test-key",
				BaseURL:    server.URL,
				HTTPClient: server.Client(),
			})
			require.NoError(t, err)
			p.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

			_, err = p.DoScore(context.Background(), "text")
			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, domain.FailureTerminal, pe.Class)
		})
	}
}

func TestAsyncProvider_UploadsGeneratedFilename(t *testing.T) {
	var filename string
	var serverURL string
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+jobsPath, func(w http.ResponseWriter, r *http.Request) {
		var req createJobRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		filename = req.Filename
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(createJobResponse{
			JobID:     "job-1",
			UploadURL: serverURL + "/upload/job-1",
		})
	})
	mux.HandleFunc("PUT /upload/job-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET "+jobsPath+"/job-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completedStatus(50, 50, 10))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	serverURL = server.URL

	p, err := newAsyncProvider(ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	p.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	_, err = p.DoScore(context.Background(), "text")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(filename, ".txt"))
	assert.Greater(t, len(filename), len(".txt"), "filename carries a generated unique stem")
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, domain.JobPending.Terminal())
	assert.True(t, domain.JobCompleted.Terminal())
	assert.True(t, domain.JobFailed.Terminal())
}
