// SPDX-License-Identifier: MIT

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestEligibleAt_ClockAndWeekdayWindow(t *testing.T) {
	a := Announcement{
		Title:      "Consultas da tarde",
		Type:       TypeConsulta,
		Active:     true,
		StartClock: "14:00",
		EndClock:   "16:00",
		Weekdays:   WeekdaySet{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}

	// 2026-09-01 is a Tuesday, 2026-09-05 a Saturday.
	assert.True(t, a.EligibleAt(ts(2026, time.September, 1, 15, 0)), "Tuesday 15:00 inside window")
	assert.False(t, a.EligibleAt(ts(2026, time.September, 5, 15, 0)), "Saturday blocked by weekday set")
	assert.False(t, a.EligibleAt(ts(2026, time.September, 1, 10, 0)), "Tuesday 10:00 before window")
	assert.True(t, a.EligibleAt(ts(2026, time.September, 1, 14, 0)), "window start is inclusive")
	assert.True(t, a.EligibleAt(ts(2026, time.September, 1, 16, 0)), "window end is inclusive")
}

func TestEligibleAt_InactiveNeverEligible(t *testing.T) {
	a := Announcement{Title: "x", Type: TypeInformativo, Active: false}
	assert.False(t, a.EligibleAt(time.Now()))
}

func TestEligibleAt_DateRangeInclusiveOpenEnded(t *testing.T) {
	start := ts(2026, time.March, 10, 0, 0)
	end := ts(2026, time.March, 20, 0, 0)
	a := Announcement{Title: "Campanha", Type: TypeCampanha, Active: true, StartDate: &start, EndDate: &end}

	assert.False(t, a.EligibleAt(ts(2026, time.March, 9, 23, 59)))
	assert.True(t, a.EligibleAt(ts(2026, time.March, 10, 0, 1)))
	assert.True(t, a.EligibleAt(ts(2026, time.March, 20, 23, 59)), "end date is a whole inclusive day")
	assert.False(t, a.EligibleAt(ts(2026, time.March, 21, 0, 1)))

	open := Announcement{Title: "Sempre", Type: TypeInformativo, Active: true}
	assert.True(t, open.EligibleAt(ts(1999, time.January, 1, 3, 0)), "no bounds means always eligible")
}

func TestWeekdaySetRoundTrip(t *testing.T) {
	set, err := ParseWeekdaySet("1,2, 5")
	require.NoError(t, err)
	assert.Equal(t, "1,2,5", set.String())
	assert.True(t, set.Contains(time.Monday))
	assert.False(t, set.Contains(time.Sunday))

	empty, err := ParseWeekdaySet("")
	require.NoError(t, err)
	assert.True(t, empty.Contains(time.Saturday), "empty set allows all days")

	_, err = ParseWeekdaySet("7")
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("07:30")
	require.NoError(t, err)
	assert.Equal(t, 7*60+30, m)

	for _, raw := range []string{"", "7", "24:00", "12:60", "ab:cd"} {
		_, err := ParseClock(raw)
		assert.Error(t, err, raw)
	}
}

func TestUrgentPredicate(t *testing.T) {
	assert.True(t, Announcement{Type: TypeUrgencia}.Urgent(8))
	assert.True(t, Announcement{Type: TypeInformativo, Priority: 9}.Urgent(8))
	assert.False(t, Announcement{Type: TypeInformativo, Priority: 5}.Urgent(8))
}

func TestAnnouncementValidate(t *testing.T) {
	start := ts(2026, time.May, 10, 0, 0)
	end := ts(2026, time.May, 1, 0, 0)

	cases := []struct {
		name string
		a    Announcement
		ok   bool
	}{
		{"valid", Announcement{Title: "t", Type: TypeEvento}, true},
		{"empty title", Announcement{Type: TypeEvento}, false},
		{"bad type", Announcement{Title: "t", Type: "festa"}, false},
		{"bad clock", Announcement{Title: "t", Type: TypeEvento, StartClock: "25:00"}, false},
		{"inverted dates", Announcement{Title: "t", Type: TypeEvento, StartDate: &start, EndDate: &end}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.a.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
