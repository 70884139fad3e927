// Command veridoc verifies a document against an AI-content detection
// provider and prints the aggregate report as JSON.
//
// Usage:
//
//	veridoc -file thesis.md
//	veridoc -store ./documents -id thesis-42
//
// The detector API key comes from the VERIDOC_API_KEY environment
// variable; a .env file in the working directory is loaded if present.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/veridoc/veridoc/infrastructure/detector"
	"github.com/veridoc/veridoc/infrastructure/middleware"
	"github.com/veridoc/veridoc/infrastructure/store"
	"github.com/veridoc/veridoc/internal/application"
	"github.com/veridoc/veridoc/internal/domain"
)

const apiKeyEnv = "VERIDOC_API_KEY"

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file (defaults apply when empty)")
		filePath   = flag.String("file", "", "Path of a document file to verify")
		storeRoot  = flag.String("store", "", "Document store root directory, used with -id")
		docID      = flag.String("id", "", "ID of a stored document to verify")
		baseURL    = flag.String("base-url", "", "Detector API base URL (overrides VERIDOC_BASE_URL)")
		language   = flag.String("language", "", "Declared document language tag, e.g. en")
		withMetric = flag.Bool("metrics", false, "Register Prometheus metrics for the run")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "veridoc",
	})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not load .env file", "error", err)
	}

	cfg := application.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = application.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal("config load failed", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := buildEngine(cfg, *baseURL, *storeRoot, *withMetric, logger)
	if err != nil {
		logger.Fatal("setup failed", "error", err)
	}

	var result *domain.AggregateResult
	switch {
	case *filePath != "":
		data, err := os.ReadFile(*filePath)
		if err != nil {
			logger.Fatal("read document failed", "error", err)
		}
		result, err = engine.Verify(ctx, domain.Document{
			ID:       *filePath,
			Text:     string(data),
			Language: *language,
		})
		if err != nil {
			exitWithError(logger, err)
		}
	case *docID != "":
		result, err = engine.VerifyDocument(ctx, *docID)
		if err != nil {
			exitWithError(logger, err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("encode report failed", "error", err)
	}
	fmt.Println(string(out))

	if !result.Passed {
		os.Exit(1)
	}
}

// buildEngine assembles the detector client and verification engine from
// config and environment.
func buildEngine(
	cfg application.Config,
	baseURL, storeRoot string,
	withMetrics bool,
	logger *log.Logger,
) (*application.Engine, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s is not set", apiKeyEnv)
	}
	if baseURL == "" {
		baseURL = os.Getenv("VERIDOC_BASE_URL")
	}
	if baseURL == "" {
		return nil, errors.New("detector base URL is not set")
	}

	var collector *middleware.PrometheusMetrics
	if withMetrics {
		collector = middleware.NewPrometheusMetrics()
	}

	clientCfg := detector.ClientConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Async: detector.AsyncConfig{
			MaxPollAttempts: cfg.MaxPollAttempts,
			OverallTimeout:  cfg.OverallJobTimeout.Std(),
		},
	}

	// Sync providers retry individual requests; the async provider owns
	// its whole job lifecycle, so retrying around it would duplicate jobs.
	switch cfg.ProviderMode {
	case detector.ModeSync:
		clientCfg.Middleware = []detector.Middleware{
			detector.TracingMiddleware("veridoc"),
			detector.RetryMiddleware(cfg.MaxAttempts, cfg.BaseDelay.Std(), cfg.MaxDelay.Std()),
			detector.CircuitBreakerMiddleware(5, 30*time.Second),
			detector.TimeoutMiddleware(cfg.RequestTimeout.Std()),
			detector.RateLimitMiddleware(rate.Every(time.Second), cfg.ConcurrencyLimit),
		}
	case detector.ModeAsync:
		clientCfg.Middleware = []detector.Middleware{
			detector.TracingMiddleware("veridoc"),
			detector.RateLimitMiddleware(rate.Every(time.Second), cfg.ConcurrencyLimit),
		}
	}
	if collector != nil {
		clientCfg.Middleware = append(
			[]detector.Middleware{detector.MetricsMiddleware(collector)},
			clientCfg.Middleware...,
		)
	}

	client, err := detector.NewClient(cfg.ProviderMode, clientCfg)
	if err != nil {
		return nil, err
	}

	opts := []application.Option{application.WithLogger(logger.With("component", "engine"))}
	if storeRoot != "" {
		st, err := store.NewFilesystemStore(storeRoot)
		if err != nil {
			return nil, err
		}
		opts = append(opts, application.WithDocumentStore(st))
	}
	if collector != nil {
		opts = append(opts, application.WithMetrics(collector))
	}
	return application.NewEngine(cfg, client, opts...)
}

// exitWithError prints a failure in terms the operator can act on.
func exitWithError(logger *log.Logger, err error) {
	var inputErr *domain.InputError
	var totalErr *domain.TotalFailureError
	switch {
	case errors.As(err, &inputErr):
		logger.Error("document rejected", "reason", inputErr.Reason)
	case errors.As(err, &totalErr):
		logger.Error("verification failed for every chunk",
			"chunks", len(totalErr.Errors),
			"advice", totalErr.Advice())
	default:
		logger.Error("verification failed", "error", err)
	}
	os.Exit(1)
}
