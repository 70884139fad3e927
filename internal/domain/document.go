package domain

// Document is the verification input. It is owned by the external
// document store; the engine only reads it and never mutates it.
type Document struct {
	// ID is the caller's identifier for the document, used for result
	// persistence and logs. It may be empty for ad-hoc runs.
	ID string `json:"id,omitempty"`

	// Text is the raw, markdown-like document text.
	Text string `json:"text"`

	// Language optionally declares the document language as a lowercase
	// tag such as "en".
	Language string `json:"language,omitempty"`
}
