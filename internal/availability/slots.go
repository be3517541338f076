package availability

import (
	"sort"
	"time"

	"appointment-scheduler/internal/model"
)

// SlotLength is the granularity of busy markers.
const SlotLength = 30 * time.Minute

type markerSet map[string]struct{}

func (s markerSet) add(marker string) {
	s[marker] = struct{}{}
}

func (s markerSet) merge(other markerSet) {
	for m := range other {
		s[m] = struct{}{}
	}
}

// sorted returns the markers in lexicographic order, which for HH:MM is also
// chronological.
func (s markerSet) sorted() []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// internalMarkers marks the stored time of every confirmed appointment busy.
// Pending requests never block a slot.
func internalMarkers(appts []model.Appointment) markerSet {
	set := markerSet{}
	for _, a := range appts {
		if a.Status != model.StatusConfirmed {
			continue
		}
		tod, err := model.ParseClock(a.Time)
		if err != nil {
			continue
		}
		set.add(tod.Format(model.ClockLayout))
	}
	return set
}

// intervalMarkers buckets busy intervals into 30-minute markers on the day
// [dayStart, dayEnd). Stepping starts at each interval's start truncated to the
// top of the hour in loc and stops once a step reaches the interval end; every
// step whose window overlaps the interval is busy.
func intervalMarkers(intervals []model.Interval, dayStart, dayEnd time.Time, loc *time.Location) markerSet {
	set := markerSet{}
	for _, iv := range intervals {
		start, end := iv.Start.In(loc), iv.End.In(loc)
		if !end.After(start) {
			continue
		}
		cursor := time.Date(start.Year(), start.Month(), start.Day(), start.Hour(), 0, 0, 0, loc)
		for ; cursor.Before(end); cursor = cursor.Add(SlotLength) {
			if cursor.Before(dayStart) || !cursor.Before(dayEnd) {
				continue
			}
			if cursor.Add(SlotLength).After(start) {
				set.add(cursor.Format(model.ClockLayout))
			}
		}
	}
	return set
}
