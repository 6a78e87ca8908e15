package cec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(1, 2025))
	assert.Equal(t, 30, DaysInMonth(11, 2025))
	assert.Equal(t, 28, DaysInMonth(2, 2025))
	assert.Equal(t, 29, DaysInMonth(2, 2028))
	assert.Equal(t, 28, DaysInMonth(2, 2100))
	assert.Equal(t, 29, DaysInMonth(2, 2000))
}

func TestTimerSpecValidate(t *testing.T) {
	ok := TimerSpec{Day: 5, Month: 8, StartHour: 6, DurationHours: 1}
	assert.NoError(t, ok.Validate(2026))

	tests := []struct {
		name string
		spec TimerSpec
		want error
	}{
		{"month zero", TimerSpec{Day: 5, Month: 0, DurationHours: 1}, ErrTimerOperand},
		{"month 13", TimerSpec{Day: 5, Month: 13, DurationHours: 1}, ErrTimerOperand},
		{"day zero", TimerSpec{Day: 0, Month: 1, DurationHours: 1}, ErrTimerOperand},
		{"day 32", TimerSpec{Day: 32, Month: 12, DurationHours: 1}, ErrTimerOperand},
		{"hour 24", TimerSpec{Day: 5, Month: 8, StartHour: 24, DurationHours: 1}, ErrTimerOperand},
		{"minute 60", TimerSpec{Day: 5, Month: 8, StartMinute: 60, DurationHours: 1}, ErrTimerOperand},
		{"zero duration", TimerSpec{Day: 5, Month: 8, StartHour: 6}, ErrTimerOperand},
		{"reserved sequence bit", TimerSpec{Day: 5, Month: 8, DurationHours: 1, Sequence: 0xff}, ErrTimerSequence},
		{"31 November", TimerSpec{Day: 31, Month: 11, DurationHours: 1}, ErrTimerDate},
		{"29 February", TimerSpec{Day: 29, Month: 2, DurationHours: 1}, ErrTimerDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.spec.Validate(2026), tt.want)
		})
	}
}

func TestTimerSpecOverlaps(t *testing.T) {
	base := TimerSpec{Day: 10, Month: 3, StartHour: 8, DurationHours: 2}

	tests := []struct {
		name  string
		other TimerSpec
		want  bool
	}{
		{"adjacent after", TimerSpec{Day: 10, Month: 3, StartHour: 10, DurationMinutes: 15}, false},
		{"adjacent before", TimerSpec{Day: 10, Month: 3, StartHour: 7, StartMinute: 45, DurationMinutes: 15}, false},
		{"inside", TimerSpec{Day: 10, Month: 3, StartHour: 8, DurationMinutes: 30}, true},
		{"straddles start", TimerSpec{Day: 10, Month: 3, StartHour: 7, DurationHours: 1, DurationMinutes: 30}, true},
		{"covers", TimerSpec{Day: 10, Month: 3, StartHour: 6, DurationHours: 6}, true},
		{"other day", TimerSpec{Day: 11, Month: 3, StartHour: 8, DurationHours: 2}, false},
		{"recurring other day", TimerSpec{Day: 11, Month: 3, StartHour: 9, DurationHours: 2, Sequence: RecSeqSunday}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other, timerNow))
			assert.Equal(t, tt.want, tt.other.Overlaps(base, timerNow))
		})
	}
}

var timerNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestTimerSpecOverlapsAcrossMidnight(t *testing.T) {
	late := TimerSpec{Day: 10, Month: 3, StartHour: 23, StartMinute: 30, DurationHours: 1}

	tests := []struct {
		name string
		a, b TimerSpec
		want bool
	}{
		{"next morning", late, TimerSpec{Day: 11, Month: 3, StartMinute: 15, DurationMinutes: 30}, true},
		{"next morning after end", late, TimerSpec{Day: 11, Month: 3, StartMinute: 30, DurationMinutes: 30}, false},
		{"same day morning", late, TimerSpec{Day: 10, Month: 3, StartMinute: 15, DurationMinutes: 30}, false},
		{"into next month",
			TimerSpec{Day: 31, Month: 3, StartHour: 22, DurationHours: 3},
			TimerSpec{Day: 1, Month: 4, StartHour: 0, DurationHours: 1}, true},
		// December is this year and January the next.
		{"into next year",
			TimerSpec{Day: 31, Month: 12, StartHour: 23, DurationHours: 2},
			TimerSpec{Day: 1, Month: 1, StartMinute: 30, DurationMinutes: 10}, true},
		{"long recording spans two days", TimerSpec{Day: 10, Month: 3, StartHour: 12, DurationHours: 40},
			TimerSpec{Day: 12, Month: 3, StartHour: 3, DurationHours: 1}, true},
		{"recurring wraps", late, TimerSpec{Day: 1, Month: 3, StartMinute: 10, DurationMinutes: 10, Sequence: RecSeqSunday}, true},
		{"recurring clear of wrap", late, TimerSpec{Day: 1, Month: 3, StartHour: 1, DurationMinutes: 10, Sequence: RecSeqSunday}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b, timerNow))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a, timerNow))
		})
	}
}
