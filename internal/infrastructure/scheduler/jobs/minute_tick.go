// Package jobs contains the scheduled jobs of the progress engine.
package jobs

import (
	"context"
)

// TimeAccruer is the slice of the tracker store the minute tick needs.
type TimeAccruer interface {
	// RecordTick accrues one minute of study time for today and records
	// activity, under the same exclusive-write discipline as user mutations.
	RecordTick(ctx context.Context) error
}

// MinuteTick accrues study time while the process is alive. Registered with
// an IntervalSchedule of one minute; pausing detection (backgrounded app,
// suspended device) is the shell's job and out of scope here.
type MinuteTick struct {
	tracker TimeAccruer
}

// NewMinuteTick creates the minute tick job.
func NewMinuteTick(tracker TimeAccruer) *MinuteTick {
	return &MinuteTick{tracker: tracker}
}

// Name implements scheduler.Job.
func (j *MinuteTick) Name() string {
	return "time.minute_tick"
}

// Description implements scheduler.Job.
func (j *MinuteTick) Description() string {
	return "accrues one study minute and extends the activity streak"
}

// Run implements scheduler.Job.
func (j *MinuteTick) Run(ctx context.Context) error {
	return j.tracker.RecordTick(ctx)
}
