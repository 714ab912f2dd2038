// Package core holds the expense domain and the billing-cycle engine.
//
// This file derives billing-cycle windows from a configured anchor day and a
// reference instant. All arithmetic is done on calendar dates in the
// reference instant's location, so month lengths and DST shifts never leak
// into day counts.
package core

import "time"

// BillingCycle is a closed window from StartDate (start of day) through
// EndDate (the last nanosecond before the next cycle starts), both inclusive.
type BillingCycle struct {
	StartDate     time.Time
	EndDate       time.Time
	DaysTotal     int
	DaysElapsed   int
	DaysRemaining int
}

// ComputeCycle returns the cycle containing ref for the given anchor day.
//
// The cycle starts on anchorDay of ref's month, or of the previous month when
// ref falls before that day. It ends at the end of the day preceding the next
// month's anchor day. Anchor days outside [MinBillingDay, MaxBillingDay] are
// clamped; callers are expected to reject them earlier with ValidateBillingDay.
func ComputeCycle(anchorDay int, ref time.Time) BillingCycle {
	anchorDay = clampBillingDay(anchorDay)
	loc := ref.Location()

	y, m, d := ref.Date()
	if d < anchorDay {
		m--
	}
	start := StartOfDate(y, m, anchorDay, loc)
	end := StartOfDate(y, m+1, anchorDay, loc).Add(-time.Nanosecond)

	daysTotal := calendarDaysBetween(start, end) + 1
	daysElapsed := calendarDaysBetween(start, ref) + 1

	return BillingCycle{
		StartDate:     start,
		EndDate:       end,
		DaysTotal:     daysTotal,
		DaysElapsed:   daysElapsed,
		DaysRemaining: max(0, daysTotal-daysElapsed),
	}
}

// PastCycles returns count cycles preceding the one containing ref, most
// recent first. Each cycle is derived from the day before its successor's
// start, so the sequence is contiguous and every past cycle is fully elapsed.
func PastCycles(anchorDay int, ref time.Time, count int) []BillingCycle {
	if count <= 0 {
		return []BillingCycle{}
	}
	cycles := make([]BillingCycle, 0, count)
	cur := ComputeCycle(anchorDay, ref)
	for i := 0; i < count; i++ {
		cur = PreviousCycle(anchorDay, cur)
		cycles = append(cycles, cur)
	}
	return cycles
}

// PreviousCycle returns the cycle ending the day before c starts.
func PreviousCycle(anchorDay int, c BillingCycle) BillingCycle {
	y, m, d := c.StartDate.Date()
	return ComputeCycle(anchorDay, StartOfDate(y, m, d-1, c.StartDate.Location()))
}

// CycleContains reports whether t lies inside c, both ends inclusive.
func CycleContains(c BillingCycle, t time.Time) bool {
	return !t.Before(c.StartDate) && !t.After(c.EndDate)
}

// IsInCurrentCycle reports whether date falls in the cycle containing now.
func IsInCurrentCycle(anchorDay int, date, now time.Time) bool {
	return CycleContains(ComputeCycle(anchorDay, now), date)
}

// Closed reports whether the whole window lies before now.
func (c BillingCycle) Closed(now time.Time) bool {
	return now.After(c.EndDate)
}

// Equal compares two cycles by instant rather than by time.Time representation.
func (c BillingCycle) Equal(o BillingCycle) bool {
	return c.StartDate.Equal(o.StartDate) &&
		c.EndDate.Equal(o.EndDate) &&
		c.DaysTotal == o.DaysTotal &&
		c.DaysElapsed == o.DaysElapsed &&
		c.DaysRemaining == o.DaysRemaining
}

func clampBillingDay(day int) int {
	if day < MinBillingDay {
		return MinBillingDay
	}
	if day > MaxBillingDay {
		return MaxBillingDay
	}
	return day
}

// StartOfDate returns the first instant of the given calendar date in loc.
// Out-of-range months and days normalise as they do for time.Date. Where the
// clocks skip midnight, the day starts when the gap ends, usually at 01:00.
func StartOfDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	want := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	year, month, day = want.Date()

	// time.Date resolves a missing midnight to the previous day.
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	for calendarDaysBetween(t, want) > 0 {
		_, end := t.ZoneBounds()
		if !end.After(t) {
			break
		}
		t = end
	}
	return t
}

// calendarDaysBetween counts whole calendar days from from's date to to's date.
func calendarDaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f) / (24 * time.Hour))
}
