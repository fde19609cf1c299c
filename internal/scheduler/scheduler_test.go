package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestValidateSchedule(t *testing.T) {
	if err := ValidateSchedule(DefaultSchedule); err != nil {
		t.Fatalf("default: %v", err)
	}
	if err := ValidateSchedule("every day"); err == nil {
		t.Fatalf("expected error for bad schedule")
	}
}

func TestStartWithoutReportFunction(t *testing.T) {
	s := New("")
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.IsRunning() {
		t.Fatalf("should not schedule without a report function")
	}
	s.Stop()
}

func TestStartSchedulesReport(t *testing.T) {
	s := New("30 6 * * *")
	s.SetReportFunction(func(ctx context.Context) error { return nil })
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	if !s.IsRunning() {
		t.Fatalf("expected a scheduled entry")
	}
	next := s.Next().UTC()
	if next.Hour() != 6 || next.Minute() != 30 || !next.After(time.Now()) {
		t.Fatalf("unexpected next run %v", next)
	}
}

func TestRunReportUsesSchedulerContext(t *testing.T) {
	s := New("")
	called := false
	s.SetReportFunction(func(ctx context.Context) error {
		called = ctx.Err() == nil
		return nil
	})
	s.runReport()
	if !called {
		t.Fatalf("report function not called with a live context")
	}
}
