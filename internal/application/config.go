package application

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Duration wraps time.Duration so YAML configs can spell values like
// "30s" or "2m" instead of nanosecond integers.
type Duration time.Duration

// UnmarshalYAML accepts either a duration string or a nanosecond integer.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config controls every tunable of the verification pipeline. Zero
// values are not usable; start from DefaultConfig and override.
type Config struct {
	// ProviderMode selects the detector transport: "sync" for the
	// single-request scoring endpoint, "async" for the job-based flow.
	ProviderMode string `yaml:"provider_mode" validate:"required,oneof=sync async"`

	// MaxChunkSize is the maximum chunk length in bytes. A single word
	// longer than this still travels as one chunk.
	MaxChunkSize int `yaml:"max_chunk_size" validate:"required,min=1"`

	// MaxAttempts bounds the total number of requests per chunk in sync
	// mode, including the first one.
	MaxAttempts int `yaml:"max_attempts" validate:"required,min=1,max=10"`

	// BaseDelay seeds the exponential backoff between retries.
	BaseDelay Duration `yaml:"base_delay" validate:"required"`

	// MaxDelay caps the backoff, whatever the attempt number.
	MaxDelay Duration `yaml:"max_delay" validate:"required,gtefield=BaseDelay"`

	// RequestTimeout bounds a single detector request.
	RequestTimeout Duration `yaml:"request_timeout" validate:"required"`

	// MaxPollAttempts bounds status polls per async job.
	MaxPollAttempts int `yaml:"max_poll_attempts" validate:"required,min=1"`

	// OverallJobTimeout bounds the whole create/upload/poll cycle of one
	// async job.
	OverallJobTimeout Duration `yaml:"overall_job_timeout" validate:"required"`

	// MinInputLength rejects documents shorter than this after
	// normalization. Detectors return noise on tiny inputs.
	MinInputLength int `yaml:"min_input_length" validate:"min=0"`

	// MaxInputLength truncates documents longer than this before
	// chunking. Truncation is logged, not an error.
	MaxInputLength int `yaml:"max_input_length" validate:"required,gtfield=MinInputLength"`

	// ConcurrencyLimit caps in-flight chunk scorings per document.
	ConcurrencyLimit int `yaml:"concurrency_limit" validate:"required,min=1,max=64"`

	// MinHumanScore is the aggregate human score at or above which a
	// document is marked as passed.
	MinHumanScore float64 `yaml:"min_human_score" validate:"min=0,max=100"`

	// Languages lists accepted document language tags. An empty list
	// accepts any language.
	Languages []string `yaml:"languages" validate:"dive,min=2,max=8"`
}

// DefaultConfig returns the settings used in production. Chunk size and
// the pass threshold match the detector provider's documented limits.
func DefaultConfig() Config {
	return Config{
		ProviderMode:      "sync",
		MaxChunkSize:      10000,
		MaxAttempts:       3,
		BaseDelay:         Duration(time.Second),
		MaxDelay:          Duration(30 * time.Second),
		RequestTimeout:    Duration(30 * time.Second),
		MaxPollAttempts:   10,
		OverallJobTimeout: Duration(2 * time.Minute),
		MinInputLength:    250,
		MaxInputLength:    200000,
		ConcurrencyLimit:  4,
		MinHumanScore:     70,
		Languages:         []string{"en"},
	}
}

// Validate reports the first constraint violation, if any.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SupportsLanguage reports whether documents tagged with lang are
// accepted. An empty tag always passes; the document simply has no
// declared language.
func (c Config) SupportsLanguage(lang string) bool {
	if lang == "" || len(c.Languages) == 0 {
		return true
	}
	for _, l := range c.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// LoadConfig reads a YAML config file, layering it over DefaultConfig so
// callers only spell out what they change.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
