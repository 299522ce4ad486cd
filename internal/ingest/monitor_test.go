package ingest

import (
	"context"
	"errors"
	"testing"
)

func TestClassifyFailureSeverity_KeywordsEscalateToCritical(t *testing.T) {
	cases := map[string]string{
		"database connection refused":    SeverityCritical,
		"connection reset by peer":       SeverityCritical,
		"corrupt pdf stream":             SeverityCritical,
		"critical invariant violated":    SeverityCritical,
		"unexpected status 404":          SeverityError,
		"no discovery strategy for kind": SeverityError,
	}
	for msg, want := range cases {
		if got := classifyFailureSeverity(msg); got != want {
			t.Fatalf("classifyFailureSeverity(%q) = %s, want %s", msg, got, want)
		}
	}
}

type fakeNotifier struct {
	calls []string
}

func (f *fakeNotifier) Notify(severity, message string, fields map[string]string) {
	f.calls = append(f.calls, severity)
}

func TestMonitor_RunPipeline_SuccessUnderThresholdDoesNotNotify(t *testing.T) {
	n := &fakeNotifier{}
	m := &Monitor{Notifier: n}

	metrics := m.RunPipeline(context.Background(), "fast-run", func(ctx context.Context) error { return nil })

	if !metrics.Success {
		t.Fatalf("expected Success=true")
	}
	if len(n.calls) != 0 {
		t.Fatalf("expected no notification for a fast successful run, got %v", n.calls)
	}
}

func TestMonitor_RunPipeline_FailurePropagatesErrorAndNotifies(t *testing.T) {
	n := &fakeNotifier{}
	m := &Monitor{Notifier: n}
	wantErr := errors.New("database unreachable")

	metrics := m.RunPipeline(context.Background(), "db-run", func(ctx context.Context) error { return wantErr })

	if metrics.Success {
		t.Fatalf("expected Success=false on error")
	}
	if metrics.Error != wantErr.Error() {
		t.Fatalf("expected error message preserved, got %q", metrics.Error)
	}
	if len(n.calls) != 1 || n.calls[0] != SeverityCritical {
		t.Fatalf("expected one CRITICAL notification, got %v", n.calls)
	}
}

func TestMonitor_RunPipeline_NilNotifierIsSafe(t *testing.T) {
	m := &Monitor{}
	metrics := m.RunPipeline(context.Background(), "no-notifier", func(ctx context.Context) error { return errors.New("boom") })
	if metrics.Success {
		t.Fatalf("expected Success=false")
	}
}
