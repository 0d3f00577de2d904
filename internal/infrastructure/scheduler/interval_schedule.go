package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule fires a job at a fixed cadence. The minute tick job runs
// on an interval of one minute; a non-positive interval falls back to that
// default so a zero-valued config cannot produce a busy loop.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule builds a schedule for the given interval.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	if interval <= 0 {
		interval = time.Minute
	}
	return &IntervalSchedule{
		Interval: interval,
	}
}

// Next returns the first firing time strictly after t.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String renders the schedule for log output.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval.String())
}
