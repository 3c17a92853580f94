// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is one of the seven day codes used in rule files (MO..SU).
type Weekday uint8

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayCodes = [...]string{"MO", "TU", "WE", "TH", "FR", "SA", "SU"}

// String returns the two-letter rule file code.
func (d Weekday) String() string {
	if int(d) < len(weekdayCodes) {
		return weekdayCodes[d]
	}
	return fmt.Sprintf("Weekday(%d)", uint8(d))
}

// ParseWeekday converts a two-letter code (case-sensitive) to a Weekday.
func ParseWeekday(code string) (Weekday, bool) {
	for i, c := range weekdayCodes {
		if c == code {
			return Weekday(i), true
		}
	}
	return 0, false
}

// WeekdayOf maps a time.Weekday (Sunday = 0) onto the Monday-first enum.
func WeekdayOf(wd time.Weekday) Weekday {
	return Weekday((int(wd) + 6) % 7)
}

// WeekdaySet is an immutable set of weekdays, one bit per day.
type WeekdaySet uint8

// NewWeekdaySet builds a set from the given days.
func NewWeekdaySet(days ...Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// With returns a copy of s that also contains d.
func (s WeekdaySet) With(d Weekday) WeekdaySet {
	return s | 1<<d
}

// Contains reports whether d is in the set.
func (s WeekdaySet) Contains(d Weekday) bool {
	return s&(1<<d) != 0
}

// Empty reports whether the set has no days.
func (s WeekdaySet) Empty() bool {
	return s&0x7f == 0
}

// Days returns the members in Monday-first order.
func (s WeekdaySet) Days() []Weekday {
	days := make([]Weekday, 0, 7)
	for d := Monday; d <= Sunday; d++ {
		if s.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

// String renders the set as a comma-separated code list, e.g. "MO,TU,WE".
func (s WeekdaySet) String() string {
	days := s.Days()
	codes := make([]string, len(days))
	for i, d := range days {
		codes[i] = d.String()
	}
	return strings.Join(codes, ",")
}

// MinutesPerDay bounds TimeOfDay values.
const MinutesPerDay = 24 * 60

// TimeOfDay is minutes since midnight in [0, MinutesPerDay).
type TimeOfDay uint16

// NewTimeOfDay validates hour and minute and returns the combined value.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %02d:%02d out of range", hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String renders HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Instant is a point in the weekly cycle at minute granularity.
type Instant struct {
	Weekday Weekday
	Time    TimeOfDay
}

// InstantOf decomposes t in its own location. Seconds are truncated.
func InstantOf(t time.Time) Instant {
	return Instant{
		Weekday: WeekdayOf(t.Weekday()),
		Time:    TimeOfDay(t.Hour()*60 + t.Minute()),
	}
}

// String renders e.g. "WE 10:00".
func (i Instant) String() string {
	return i.Weekday.String() + " " + i.Time.String()
}

// Decision is the evaluator outcome for one live process.
type Decision int

const (
	// Unmanaged means no rule names the process; it is never touched.
	Unmanaged Decision = iota
	// Allow means at least one period of the process's rule matches now.
	Allow
	// Kill means the process has a rule and no period matches now.
	Kill
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "ALLOW"
	case Kill:
		return "KILL"
	case Unmanaged:
		return "UNMANAGED"
	default:
		return "unknown"
	}
}

// Process is one entry of a live process snapshot.
type Process struct {
	PID  int
	Name string
}

// KilledProcess records a successful termination.
type KilledProcess struct {
	PID  int
	Name string
}

// ScanResult captures what happened during a single scan.
type ScanResult struct {
	ScanID     string
	Checked    int             // processes seen in the snapshot
	Managed    int             // processes that had a rule
	Allowed    int             // managed processes inside a window
	Killed     []KilledProcess // terminated (or would be, in dry-run)
	DryRun     bool
	Errors     []error // TerminationError values
	ExecutedAt time.Time
	DurationMs int64
}
