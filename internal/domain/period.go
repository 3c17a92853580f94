package domain

import "strings"

// TimeRange is an inclusive [Start, End] window within one day, or the
// all-day wildcard. Ranges never wrap past midnight: Start <= End.
type TimeRange struct {
	Start  TimeOfDay
	End    TimeOfDay
	AllDay bool
}

// AllDay is the "*" wildcard range.
var AllDay = TimeRange{Start: 0, End: MinutesPerDay - 1, AllDay: true}

// Matches reports whether t falls inside the range (bounds inclusive).
func (r TimeRange) Matches(t TimeOfDay) bool {
	if r.AllDay {
		return true
	}
	return r.Start <= t && t <= r.End
}

// String renders "*" or "HH:MM~HH:MM".
func (r TimeRange) String() string {
	if r.AllDay {
		return "*"
	}
	return r.Start.String() + "~" + r.End.String()
}

// Period combines time ranges (OR) with the weekdays they apply to.
// A valid period has at least one range and at least one day.
type Period struct {
	Ranges []TimeRange
	Days   WeekdaySet
}

// Matches reports whether the instant falls on one of the period's days and
// inside at least one of its ranges.
func (p Period) Matches(at Instant) bool {
	if !p.Days.Contains(at.Weekday) {
		return false
	}
	for _, r := range p.Ranges {
		if r.Matches(at.Time) {
			return true
		}
	}
	return false
}

// String renders the period in rule file syntax, e.g. "08:00~12:00,13:00~18:00;MO,TU".
func (p Period) String() string {
	ranges := make([]string, len(p.Ranges))
	for i, r := range p.Ranges {
		ranges[i] = r.String()
	}
	return strings.Join(ranges, ",") + ";" + p.Days.String()
}
