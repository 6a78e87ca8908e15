package cec

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimerOperand marks a timer field outside its encodable range.
	ErrTimerOperand = errors.New("cec: timer operand out of range")

	// ErrTimerDate marks a well-formed date that does not exist, such as
	// 31 November.
	ErrTimerDate = errors.New("cec: timer date out of range")

	// ErrTimerSequence marks a recording sequence with reserved bits set.
	ErrTimerSequence = errors.New("cec: invalid recording sequence")
)

// DaysInMonth returns the number of days of month (1-12) in year.
func DaysInMonth(month uint8, year int) int {
	switch month {
	case 4, 6, 9, 11:
		return 30
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 31
	}
}

// IsLeapYear reports whether year has a 29 February.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// TimerYear returns the year a timer in month falls in, seen from now.
// Months already past this year belong to the next one.
func TimerYear(month uint8, now time.Time) int {
	if time.Month(month) < now.Month() {
		return now.Year() + 1
	}
	return now.Year()
}

// Validate checks t as a timer falling in year. Errors wrap ErrTimerOperand,
// ErrTimerDate or ErrTimerSequence.
func (t TimerSpec) Validate(year int) error {
	switch {
	case t.Month < 1 || t.Month > 12:
		return fmt.Errorf("%w: month %d", ErrTimerOperand, t.Month)
	case t.Day < 1 || t.Day > 31:
		return fmt.Errorf("%w: day %d", ErrTimerOperand, t.Day)
	case t.StartHour > 23 || t.StartMinute > 59:
		return fmt.Errorf("%w: start %02d:%02d", ErrTimerOperand, t.StartHour, t.StartMinute)
	case t.DurationHours > 99 || t.DurationMinutes > 59:
		return fmt.Errorf("%w: duration %d:%02d", ErrTimerOperand, t.DurationHours, t.DurationMinutes)
	case t.DurationHours == 0 && t.DurationMinutes == 0:
		return fmt.Errorf("%w: zero duration", ErrTimerOperand)
	case !t.Sequence.Valid():
		return fmt.Errorf("%w: 0x%02x", ErrTimerSequence, uint8(t.Sequence))
	case int(t.Day) > DaysInMonth(t.Month, year):
		return fmt.Errorf("%w: %d/%d/%d", ErrTimerDate, t.Day, t.Month, year)
	}
	return nil
}

// minutesPerDay is the period time-of-day comparisons wrap at.
const minutesPerDay = 24 * 60

// span returns the timer as a half-open interval in minutes from the start
// of its day. The end may run past midnight.
func (t TimerSpec) span() (start, end int) {
	start = int(t.StartHour)*60 + int(t.StartMinute)
	return start, start + int(t.DurationHours)*60 + int(t.DurationMinutes)
}

// absolute returns the timer as a half-open interval in minutes since the
// Unix epoch, dated in the year TimerYear gives for now.
func (t TimerSpec) absolute(now time.Time) (start, end int64) {
	day := time.Date(TimerYear(t.Month, now), time.Month(t.Month), int(t.Day), 0, 0, 0, 0, time.UTC)
	s, e := t.span()
	base := day.Unix() / 60
	return base + int64(s), base + int64(e)
}

// Overlaps reports whether t and o may record at the same time. Once-only
// timers are compared on the calendar, so a recording running past
// midnight meets one early the next day. When either repeats, only the
// time of day is compared, wrapping at midnight. Timers that merely touch
// do not overlap.
func (t TimerSpec) Overlaps(o TimerSpec, now time.Time) bool {
	if !t.Sequence.Recurring() && !o.Sequence.Recurring() {
		as, ae := t.absolute(now)
		bs, be := o.absolute(now)
		return as < be && bs < ae
	}
	as, ae := t.span()
	bs, be := o.span()
	// Durations reach 99:59, so a span covers at most five midnights.
	for shift := -5; shift <= 5; shift++ {
		d := shift * minutesPerDay
		if as < be+d && bs+d < ae {
			return true
		}
	}
	return false
}
