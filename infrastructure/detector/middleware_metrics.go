package detector

import (
	"context"
	"errors"
	"time"

	"github.com/veridoc/veridoc/internal/domain"
	"github.com/veridoc/veridoc/internal/ports"
)

// metricsScorer collects request metrics for operational monitoring:
// latency, outcome counts and score distributions per provider.
type metricsScorer struct {
	next      CoreScorer
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that records scoring metrics
// through the given collector.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreScorer) CoreScorer {
		return &metricsScorer{
			next:      next,
			collector: collector,
		}
	}
}

// DoScore executes the request while recording latency, outcome and
// score metrics.
func (m *metricsScorer) DoScore(ctx context.Context, text string) (domain.ChunkResult, error) {
	start := time.Now()
	result, err := m.next.DoScore(ctx, text)

	labels := map[string]string{
		"provider": m.next.Name(),
		"status":   "success",
	}
	if err != nil {
		labels["status"] = "error"
		var pe *ProviderError
		if errors.As(err, &pe) {
			labels["status"] = pe.Class.String()
		}
	}

	if m.collector != nil {
		m.collector.RecordLatency("detector_score", time.Since(start), labels)
		m.collector.RecordCounter("detector_requests_total", 1, labels)
		if err == nil {
			m.collector.RecordHistogram("detector_human_score", result.HumanScore, labels)
		}
	}

	return result, err
}

// Name returns the provider name from the wrapped implementation.
func (m *metricsScorer) Name() string { return m.next.Name() }
