package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCycleID = errors.New("invalid cycle id")

// CycleID identifies a cycle by its start date as YYYY-MM-DD.
func CycleID(c BillingCycle) string {
	y, m, d := c.StartDate.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// ParseCycleID rebuilds the cycle whose id is id. The date is interpreted in
// loc (time.Local when nil) and passed to ComputeCycle as the reference, so
// ParseCycleID(CycleID(c), anchor, loc) equals c whenever c was computed in
// loc from a reference on its start day.
func ParseCycleID(id string, anchorDay int, loc *time.Location) (BillingCycle, error) {
	if loc == nil {
		loc = time.Local
	}
	parts := strings.Split(strings.TrimSpace(id), "-")
	if len(parts) != 3 {
		return BillingCycle{}, fmt.Errorf("%w: %q", ErrInvalidCycleID, id)
	}

	fields := make([]int, 3)
	for i, p := range parts {
		if p == "" {
			return BillingCycle{}, fmt.Errorf("%w: %q", ErrInvalidCycleID, id)
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return BillingCycle{}, fmt.Errorf("%w: %q", ErrInvalidCycleID, id)
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return BillingCycle{}, fmt.Errorf("%w: %q", ErrInvalidCycleID, id)
		}
		fields[i] = n
	}

	year, month, day := fields[0], fields[1], fields[2]
	// Reject values that time.Date silently normalised (2024-02-30, 2024-13-01).
	check := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if y, m, d := check.Date(); y != year || int(m) != month || d != day {
		return BillingCycle{}, fmt.Errorf("%w: %q", ErrInvalidCycleID, id)
	}

	return ComputeCycle(anchorDay, StartOfDate(year, time.Month(month), day, loc)), nil
}
