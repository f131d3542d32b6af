// Package recurrence expands weekly service schedules into dated
// occurrences.
package recurrence

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ebenavides/ekklesia/internal/model"
)

// Occurrence is one concrete service on a calendar date.
type Occurrence struct {
	ScheduleID      int64
	Title           string
	Start           time.Time
	DurationMinutes int
}

// End returns the occurrence end time.
func (o Occurrence) End() time.Time {
	return o.Start.Add(time.Duration(o.DurationMinutes) * time.Minute)
}

// ExpandMonth lists every occurrence of the given schedules within one
// calendar month, sorted by start time. Schedules with an unparseable
// start time are skipped.
func ExpandMonth(schedules []model.ServiceSchedule, year int, month time.Month) []Occurrence {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	var out []Occurrence
	for _, s := range schedules {
		hour, minute, ok := parseClock(s.StartTime)
		if !ok {
			continue
		}

		// First matching weekday of the month.
		day := first
		offset := (s.Weekday - int(first.Weekday()) + 7) % 7
		day = day.AddDate(0, 0, offset)

		for ; day.Before(next); day = day.AddDate(0, 0, 7) {
			out = append(out, Occurrence{
				ScheduleID:      s.ID,
				Title:           s.Title,
				Start:           time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC),
				DurationMinutes: s.DurationMinutes,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// parseClock splits an "HH:MM" wall-clock string.
func parseClock(s string) (hour, minute int, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
