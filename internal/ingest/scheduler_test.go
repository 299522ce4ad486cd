package ingest

import (
	"testing"
	"time"
)

func TestShouldRun_TreasuryBudgetSeasonIsDaily(t *testing.T) {
	june15 := time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)

	should, reason := ShouldRun("treasury", june15)
	if !should {
		t.Fatalf("expected treasury to run during budget season, got reason %q", reason)
	}
	if reason != "Budget statement preparation and approval season" {
		t.Fatalf("unexpected reason: %s", reason)
	}
}

func TestShouldRun_OAGAuditSeasonRequiresWednesday(t *testing.T) {
	// 2026-11-25 is a Wednesday.
	wed := time.Date(2026, time.November, 25, 9, 0, 0, 0, time.UTC)
	if wed.Weekday() != time.Wednesday {
		t.Fatalf("fixture date is not a Wednesday: %s", wed.Weekday())
	}
	if should, _ := ShouldRun("oag", wed); !should {
		t.Fatalf("expected oag to run on a Wednesday in audit season")
	}

	// Thursday 2026-12-03: still audit season, and 63 days after the
	// Sep 30 quarter-end, so the 30–60 day post-quarter window is closed.
	// (The very next day, 2026-11-26, falls in that window in an even ISO
	// week and is due for the post-quarter reason.)
	thu := wed.AddDate(0, 0, 8)
	if should, reason := ShouldRun("oag", thu); should {
		t.Fatalf("expected oag to skip on a non-Wednesday in audit season, got reason %q", reason)
	}
}

func TestShouldRun_COBFiresInPostQuarterWindow(t *testing.T) {
	// Jun 30 quarter end + 45 days lands in mid-August; +51 days is
	// 2026-08-20, day-of-year 232, which the every-other-day cadence
	// accepts.
	quarterEnd := time.Date(2026, time.June, 30, 23, 59, 59, 0, time.UTC)
	inWindow := quarterEnd.AddDate(0, 0, 51)

	should, reason := ShouldRun("cob", inWindow)
	if !should {
		t.Fatalf("expected cob to be due 51 days after quarter-end (even day-of-year), got reason %q", reason)
	}
	if reason == "" {
		t.Fatalf("expected a non-empty reason")
	}
}

func TestShouldRun_UnknownSourceDefaultsTrue(t *testing.T) {
	should, reason := ShouldRun("not-a-real-source", time.Now())
	if !should {
		t.Fatalf("unknown source must default to true, got reason %q", reason)
	}
}

func TestShouldRun_OpendataWeeklyOnFriday(t *testing.T) {
	// 2026-07-31 is a Friday.
	fri := time.Date(2026, time.July, 31, 9, 0, 0, 0, time.UTC)
	if fri.Weekday() != time.Friday {
		t.Fatalf("fixture date is not a Friday: %s", fri.Weekday())
	}
	if should, _ := ShouldRun("opendata", fri); !should {
		t.Fatalf("expected opendata to run on Friday")
	}

	sat := fri.AddDate(0, 0, 1)
	if should, _ := ShouldRun("opendata", sat); should {
		t.Fatalf("expected opendata to skip on Saturday")
	}
}
