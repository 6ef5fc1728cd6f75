package domain

import (
	"fmt"
	"time"
)

// RecurringInterval is the cadence of a recurring transaction.
type RecurringInterval string

const (
	IntervalDaily   RecurringInterval = "DAILY"
	IntervalWeekly  RecurringInterval = "WEEKLY"
	IntervalMonthly RecurringInterval = "MONTHLY"
	IntervalYearly  RecurringInterval = "YEARLY"
)

// IsValid reports whether i is a known interval.
func (i RecurringInterval) IsValid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly, IntervalYearly:
		return true
	}
	return false
}

// NextOccurrence returns the occurrence following date. Month and year steps
// keep the day of month, clamped to the last day of the target month, so
// Jan 31 is followed by Feb 28 (Feb 29 in leap years) and Feb 29 by Feb 28.
func NextOccurrence(date time.Time, interval RecurringInterval) (time.Time, error) {
	switch interval {
	case IntervalDaily:
		return date.AddDate(0, 0, 1), nil
	case IntervalWeekly:
		return date.AddDate(0, 0, 7), nil
	case IntervalMonthly:
		return addMonthsClamped(date, 1), nil
	case IntervalYearly:
		return addMonthsClamped(date, 12), nil
	default:
		return time.Time{}, NewValidationError("recurringInterval", fmt.Sprintf("unknown interval %q", interval))
	}
}

// AdvanceSchedule steps a recurring schedule from current, keeping the day of
// month of anchor. A template dated Jan 31 runs Feb 29, Mar 31, Apr 30 instead
// of drifting to the 29th after the first short month.
func AdvanceSchedule(anchor, current time.Time, interval RecurringInterval) (time.Time, error) {
	switch interval {
	case IntervalMonthly, IntervalYearly:
		months := 1
		if interval == IntervalYearly {
			months = 12
		}
		return addMonthsOnDay(current, months, anchor.Day()), nil
	default:
		return NextOccurrence(current, interval)
	}
}

func addMonthsClamped(date time.Time, months int) time.Time {
	return addMonthsOnDay(date, months, date.Day())
}

func addMonthsOnDay(date time.Time, months, d int) time.Time {
	y, m, _ := date.Date()
	hh, mm, ss := date.Clock()

	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, date.Location())
	if last := daysIn(target.Year(), target.Month(), date.Location()); d > last {
		d = last
	}

	return time.Date(target.Year(), target.Month(), d, hh, mm, ss, date.Nanosecond(), date.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// StartOfMonth returns midnight of the first day of t's month in t's location.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// SameMonth reports whether a and b fall in the same calendar month of loc.
func SameMonth(a, b time.Time, loc *time.Location) bool {
	ay, am, _ := a.In(loc).Date()
	by, bm, _ := b.In(loc).Date()
	return ay == by && am == bm
}
