package scheduler

import (
	"fmt"
	"time"

	"github.com/momentum-hub/progression-engine/pkg/timeutil"
)

// IntervalSchedule schedules a job to run at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{
		Interval: interval,
	}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval.String())
}

// MidnightSchedule schedules a job at local midnight. DST transitions
// are handled by calendar arithmetic, not by adding 24 hours.
type MidnightSchedule struct {
	Location *time.Location
}

// NewMidnightSchedule creates a new MidnightSchedule.
func NewMidnightSchedule(loc *time.Location) *MidnightSchedule {
	if loc == nil {
		loc = time.UTC
	}
	return &MidnightSchedule{Location: loc}
}

// Next returns the next local midnight after t.
func (s *MidnightSchedule) Next(t time.Time) time.Time {
	return timeutil.NextMidnight(t, s.Location)
}

// String returns the string representation of the schedule.
func (s *MidnightSchedule) String() string {
	return fmt.Sprintf("@midnight %s", s.Location.String())
}
