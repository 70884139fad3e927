package domain

import "time"

// JobStatus is the provider-reported state of an asynchronous scoring job.
type JobStatus string

const (
	// JobPending means the provider accepted the job and is still working.
	JobPending JobStatus = "pending"
	// JobCompleted means the provider finished and a score is available.
	JobCompleted JobStatus = "completed"
	// JobFailed means the provider explicitly reported failure.
	JobFailed JobStatus = "failed"
)

// Terminal reports whether no further polling can change the status.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is a server-side unit of work at an asynchronous scoring provider.
// It is created by the job client, transitions through its state machine,
// and is discarded once a terminal state is reached and the result
// extracted.
type Job struct {
	// ID is the provider-issued opaque identifier.
	ID string `json:"id"`

	// Status is the last status reported by the provider.
	Status JobStatus `json:"status"`

	// CreatedAt records when the job was accepted by the provider.
	CreatedAt time.Time `json:"created_at"`

	// UploadURL is the target the chunk payload must be pushed to,
	// typically a pre-signed PUT URL.
	UploadURL string `json:"upload_url"`
}
