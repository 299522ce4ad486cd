package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/kefis/kefis/internal/ports"
)

// alert severities, matching AlertSeverity in
// original_source/backend/monitoring/alerts.py.
const (
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// longRunThreshold is the "very long run" cutoff past which a
// successful run still earns a warning notification.
const longRunThreshold = time.Hour

// RunMetrics records one monitored run's outcome, the Go analogue of
// ETLMonitor.get_metrics()'s returned dict.
type RunMetrics struct {
	Pipeline string
	Success  bool
	Started  time.Time
	Finished time.Time
	Error    string
}

func (m RunMetrics) duration() time.Duration {
	return m.Finished.Sub(m.Started)
}

// Monitor wraps a pipeline run with finish notifications,
// ported from ETLMonitor.run_with_monitoring: success triggers a
// warning only on unusually long runs, failure always alerts with a
// severity escalated by error-message keyword.
type Monitor struct {
	Notifier ports.Notifier
}

// RunPipeline executes fn under monitoring, notifying on completion
// per the rules above, and returns the recorded metrics. A failure of
// fn is reported through the metrics (Success false, Error holding the
// error text); no error value is returned.
func (m *Monitor) RunPipeline(ctx context.Context, pipelineName string, fn func(ctx context.Context) error) RunMetrics {
	metrics := RunMetrics{Pipeline: pipelineName, Started: time.Now().UTC()}

	err := fn(ctx)
	metrics.Finished = time.Now().UTC()
	metrics.Success = err == nil

	if err != nil {
		metrics.Error = err.Error()
		m.notifyFailure(metrics)
		return metrics
	}

	m.notifySuccess(metrics)
	return metrics
}

func (m *Monitor) notifySuccess(metrics RunMetrics) {
	if m.Notifier == nil {
		return
	}
	if metrics.duration() <= longRunThreshold {
		return
	}
	m.Notifier.Notify(SeverityWarning,
		"ETL pipeline completed but took longer than expected",
		map[string]string{
			"pipeline":         metrics.Pipeline,
			"duration_seconds": metrics.duration().String(),
		})
}

func (m *Monitor) notifyFailure(metrics RunMetrics) {
	if m.Notifier == nil {
		return
	}
	m.Notifier.Notify(classifyFailureSeverity(metrics.Error),
		"ETL pipeline failed: "+metrics.Error,
		map[string]string{
			"pipeline":         metrics.Pipeline,
			"duration_seconds": metrics.duration().String(),
		})
}

// criticalKeywords flags an error as CRITICAL rather than ERROR when
// it smells like infrastructure failure (DB down, connection reset,
// data corruption) rather than an ordinary document-level failure.
var criticalKeywords = []string{"database", "connection", "corrupt", "critical"}

func classifyFailureSeverity(errMsg string) string {
	lower := strings.ToLower(errMsg)
	for _, kw := range criticalKeywords {
		if strings.Contains(lower, kw) {
			return SeverityCritical
		}
	}
	return SeverityError
}
