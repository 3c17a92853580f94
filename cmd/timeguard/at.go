package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
)

// parseAt turns the --at flag into an Instant. Accepted forms:
// "" (now), "HH:MM" (today), "WE 10:00", or an RFC3339 timestamp, which is
// converted to local time first.
func parseAt(s string, now time.Time) (domain.Instant, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.InstantOf(now), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		// Rules are evaluated in host local time, whatever offset was written.
		return domain.InstantOf(t.Local()), nil
	}

	day := domain.WeekdayOf(now.Weekday())
	clock := s
	if fields := strings.Fields(s); len(fields) == 2 {
		d, ok := domain.ParseWeekday(strings.ToUpper(fields[0]))
		if !ok {
			return domain.Instant{}, fmt.Errorf("invalid weekday %q in --at (want MO..SU)", fields[0])
		}
		day, clock = d, fields[1]
	}

	t, err := time.Parse("15:04", clock)
	if err != nil {
		return domain.Instant{}, fmt.Errorf(`invalid --at %q (want "WE 10:00", "10:00" or RFC3339)`, s)
	}
	tod, err := domain.NewTimeOfDay(t.Hour(), t.Minute())
	if err != nil {
		return domain.Instant{}, err
	}
	return domain.Instant{Weekday: day, Time: tod}, nil
}
