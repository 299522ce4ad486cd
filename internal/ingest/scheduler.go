package ingest

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kefis/kefis/internal/obs"
)

// seasonRule is a calendar window during which a source should be
// checked at an elevated frequency (budget season, audit season, an
// annual publication month). Ported from
// original_source/etl/smart_scheduler.py's per-source "special period"
// dict entries (budget_season/audit_season/economic_survey/...).
type seasonRule struct {
	Months []time.Month
	Weekly bool
	Day    time.Weekday // only meaningful when Weekly
	Reason string
}

func (r seasonRule) matches(now time.Time) bool {
	if !monthIn(now.Month(), r.Months) {
		return false
	}
	if !r.Weekly {
		return true
	}
	return now.Weekday() == r.Day
}

// quarterRule is a "N to N+duration days after each calendar
// quarter-end" window, used for Treasury/COB/KNBS/OAG/CRA's
// post-quarter publication cadence.
type quarterRule struct {
	DaysAfter int
	Duration  int
	// cadence gates *within* the window: "" means every day in the
	// window counts, "every_other_day" / "even_iso_week" thin that out
	// the way the Python original's day-of-year/ISO-week modulo checks
	// did, so a tick that wakes up daily doesn't re-fetch daily;
	// "first_of_month" keeps only day 1 of each month.
	Cadence string
	Reason  string
}

func (r quarterRule) matches(now time.Time) bool {
	for _, q := range quarterEndDates(now) {
		daysSince := int(now.Sub(q).Hours() / 24)
		if daysSince < r.DaysAfter || daysSince > r.DaysAfter+r.Duration {
			continue
		}
		switch r.Cadence {
		case "every_other_day":
			if now.YearDay()%2 != 0 {
				continue
			}
		case "even_iso_week":
			_, week := now.ISOWeek()
			if week%2 != 0 {
				continue
			}
		case "first_of_month":
			if now.Day() != 1 {
				continue
			}
		}
		return true
	}
	return false
}

// defaultRule is the routine fallback cadence applied outside any
// season/quarter window.
type defaultRule struct {
	Frequency  string // daily, weekly, biweekly, monthly
	Day        time.Weekday
	DayOfMonth int
	Reason     string
}

func (r defaultRule) matches(now time.Time) bool {
	switch r.Frequency {
	case "daily":
		return true
	case "weekly":
		return now.Weekday() == r.Day
	case "biweekly":
		_, week := now.ISOWeek()
		return week%2 == 0 && now.Weekday() == r.Day
	case "monthly":
		return now.Day() == r.DayOfMonth
	default:
		return false
	}
}

// sourceSchedule is the cascading priority list for one source:
// season rules checked first, then quarter-end rules, then the
// default routine cadence. Checked top-to-bottom, first match wins —
// the same priority order as should_run's "Priority 1/2/3" comments.
type sourceSchedule struct {
	Seasons  []seasonRule
	Quarters []quarterRule
	Default  defaultRule
}

// schedules mirrors SmartScheduler.schedules verbatim: the calendar
// table is Kenya-specific publishing-pattern knowledge, not something
// to invent independently.
var schedules = map[string]sourceSchedule{
	"treasury": {
		Seasons: []seasonRule{
			{Months: []time.Month{time.May, time.June, time.July}, Reason: "Budget statement preparation and approval season"},
		},
		Quarters: []quarterRule{
			{DaysAfter: 0, Duration: 7, Reason: "Quarterly expenditure reports expected"},
		},
		Default: defaultRule{Frequency: "weekly", Day: time.Monday, Reason: "Routine weekly check"},
	},
	"cob": {
		Quarters: []quarterRule{
			{DaysAfter: 45, Duration: 14, Cadence: "every_other_day", Reason: "Quarterly Budget Implementation Review Reports (6 weeks after quarter)"},
		},
		Default: defaultRule{Frequency: "biweekly", Day: time.Monday, Reason: "Routine biweekly check"},
	},
	"oag": {
		Seasons: []seasonRule{
			{Months: []time.Month{time.November, time.December, time.January}, Weekly: true, Day: time.Wednesday, Reason: "Annual audit report publication season"},
		},
		Quarters: []quarterRule{
			{DaysAfter: 30, Duration: 30, Cadence: "even_iso_week", Reason: "Special and performance audits publication"},
		},
		Default: defaultRule{Frequency: "monthly", DayOfMonth: 15, Reason: "Routine monthly check"},
	},
	"knbs": {
		Seasons: []seasonRule{
			{Months: []time.Month{time.May}, Weekly: true, Day: time.Tuesday, Reason: "Economic Survey annual publication (typically mid-May)"},
			{Months: []time.Month{time.December}, Weekly: true, Day: time.Thursday, Reason: "Statistical Abstract annual publication (typically mid-December)"},
		},
		Quarters: []quarterRule{
			{DaysAfter: 14, Duration: 21, Cadence: "even_iso_week", Reason: "Quarterly GDP and economic indicators"},
		},
		Default: defaultRule{Frequency: "monthly", DayOfMonth: 1, Reason: "Routine monthly statistical updates"},
	},
	"opendata": {
		Default: defaultRule{Frequency: "weekly", Day: time.Friday, Reason: "Continuous dataset updates via API"},
	},
	"cra": {
		Seasons: []seasonRule{
			{Months: []time.Month{time.February}, Weekly: true, Day: time.Monday, Reason: "Annual revenue allocation to counties"},
		},
		Quarters: []quarterRule{
			{DaysAfter: 0, Duration: 90, Cadence: "first_of_month", Reason: "Quarterly monitoring and compliance reports"},
		},
		Default: defaultRule{Frequency: "monthly", DayOfMonth: 1, Reason: "Routine monthly check"},
	},
}

// ShouldRun decides whether source should be checked at instant now,
// cascading through season rules, then quarter-end rules, then the
// default cadence — the same three-tier priority as the Python
// original's should_run. now is a parameter (not time.Now()) so the
// decision stays pure and unit-testable; the cron driver supplies the
// real clock.
func ShouldRun(source string, now time.Time) (bool, string) {
	sched, ok := schedules[source]
	if !ok {
		return true, "unknown source - default weekly schedule"
	}

	for _, s := range sched.Seasons {
		if s.matches(now) {
			return true, s.Reason
		}
	}
	for _, q := range sched.Quarters {
		if q.matches(now) {
			return true, q.Reason
		}
	}
	if sched.Default.matches(now) {
		return true, sched.Default.Reason
	}
	return false, "not scheduled for today"
}

// quarterEndDates returns the twelve calendar quarter-end instants
// spanning last year through next year, matching Kenya's calendar
// quarters (Mar 31 / Jun 30 / Sep 30 / Dec 31); Jun 30 also happens to
// be the Kenyan fiscal year-end.
func quarterEndDates(now time.Time) []time.Time {
	var dates []time.Time
	for _, y := range []int{now.Year() - 1, now.Year(), now.Year() + 1} {
		dates = append(dates,
			time.Date(y, time.March, 31, 23, 59, 59, 0, now.Location()),
			time.Date(y, time.June, 30, 23, 59, 59, 0, now.Location()),
			time.Date(y, time.September, 30, 23, 59, 59, 0, now.Location()),
			time.Date(y, time.December, 31, 23, 59, 59, 0, now.Location()),
		)
	}
	return dates
}

func monthIn(m time.Month, months []time.Month) bool {
	for _, candidate := range months {
		if candidate == m {
			return true
		}
	}
	return false
}

// SchedulerDriver wraps the pure ShouldRun decision with
// robfig/cron/v3's tick loop: the decision logic stays timer-free and
// unit-testable (see scheduler_test.go), the driver just polls it
// hourly and fires RunFunc for each source that's due, once per
// calendar day.
type SchedulerDriver struct {
	cron    *cron.Cron
	RunFunc func(sourceKey, reason string)

	mu      sync.Mutex
	lastRun map[string]string // sourceKey -> "2006-01-02" of last fire
}

// NewSchedulerDriver builds a driver against the fixed Kenya source
// keys (treasury, cob, oag, knbs, opendata, cra). Each tick checks all
// of them, whether or not they are in the registry, and calls RunFunc
// for every one that is due; it's RunFunc that decides whether to act.
func NewSchedulerDriver(runFunc func(sourceKey, reason string)) *SchedulerDriver {
	return &SchedulerDriver{
		cron:    cron.New(),
		RunFunc: runFunc,
		lastRun: make(map[string]string),
	}
}

// Start registers the hourly poll and starts the cron loop.
func (d *SchedulerDriver) Start() error {
	_, err := d.cron.AddFunc("@hourly", d.tick)
	if err != nil {
		return err
	}
	d.cron.Start()
	return nil
}

func (d *SchedulerDriver) Stop() {
	d.cron.Stop()
}

func (d *SchedulerDriver) tick() {
	now := time.Now()
	today := now.Format("2006-01-02")

	for source := range schedules {
		should, reason := ShouldRun(source, now)
		if !should {
			continue
		}

		d.mu.Lock()
		already := d.lastRun[source] == today
		if !already {
			d.lastRun[source] = today
		}
		d.mu.Unlock()
		if already {
			continue
		}

		obs.Source(source).Str("reason", reason).Msg("scheduled run due")
		if d.RunFunc != nil {
			d.RunFunc(source, reason)
		}
	}
}
