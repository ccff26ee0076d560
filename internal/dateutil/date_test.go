package dateutil

import (
	"slices"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDay(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 00:30 local on Jan 2 is still Jan 1 in UTC; the local calendar day wins.
	local := time.Date(2024, 1, 2, 0, 30, 0, 0, berlin)
	assert.Equal(t, Date(2024, 1, 2), Day(local))
	assert.Equal(t, time.UTC, Day(local).Location())
}

func TestDaysBetween(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name     string
		from, to time.Time
		expected int
	}{
		{"same day", Date(2024, 3, 1), Date(2024, 3, 1), 0},
		{"forward", Date(2024, 1, 1), Date(2024, 1, 15), 14},
		{"backward", Date(2024, 1, 15), Date(2024, 1, 1), -14},
		{"leap day", Date(2024, 2, 28), Date(2024, 3, 1), 2},
		{"four centuries", Date(2000, 1, 1), Date(2400, 1, 1), 146097},
		{"four centuries back", Date(2400, 1, 1), Date(2000, 1, 1), -146097},
		{"year one to 9999", Date(1, 1, 1), Date(9999, 12, 31), 3652058},
		{
			"across spring DST change",
			time.Date(2024, 3, 30, 12, 0, 0, 0, berlin),
			time.Date(2024, 4, 1, 0, 15, 0, 0, berlin),
			2,
		},
		{
			"time of day ignored",
			time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC),
			time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC),
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysBetween(tt.from, tt.to))
		})
	}
}

func TestFloorMod(t *testing.T) {
	assert.Equal(t, 0, FloorMod(14, 14))
	assert.Equal(t, 3, FloorMod(3, 7))
	assert.Equal(t, 6, FloorMod(-1, 7))
	assert.Equal(t, 0, FloorMod(-14, 7))
}

func TestWeekAndMonthBoundaries(t *testing.T) {
	// 2024-05-15 is a Wednesday.
	wed := Date(2024, 5, 15)
	assert.Equal(t, Date(2024, 5, 13), StartOfWeek(wed))
	assert.Equal(t, Date(2024, 5, 19), EndOfWeek(wed))

	// Monday and Sunday map onto their own week.
	assert.Equal(t, Date(2024, 5, 13), StartOfWeek(Date(2024, 5, 13)))
	assert.Equal(t, Date(2024, 5, 13), StartOfWeek(Date(2024, 5, 19)))

	assert.Equal(t, Date(2024, 2, 1), StartOfMonth(Date(2024, 2, 17)))
	assert.Equal(t, Date(2024, 2, 29), EndOfMonth(Date(2024, 2, 17)))

	// 2024-09-01 is a Sunday, so the grid starts on Monday Aug 26.
	assert.Equal(t, Date(2024, 8, 26), MonthGridStart(2024, time.September))
	assert.Equal(t, Date(2024, 10, 6), MonthGridEnd(2024, time.September))
}

func TestDays(t *testing.T) {
	start := Date(2024, 2, 27)
	end := Date(2024, 3, 2)

	days := slices.Collect(Days(start, end))
	require.Len(t, days, 5)
	assert.Equal(t, []time.Time{
		Date(2024, 2, 27),
		Date(2024, 2, 28),
		Date(2024, 2, 29),
		Date(2024, 3, 1),
		Date(2024, 3, 2),
	}, days)

	// restartable
	assert.Equal(t, days, slices.Collect(Days(start, end)))

	assert.Len(t, slices.Collect(Days(start, start)), 1)
	assert.Empty(t, slices.Collect(Days(end, start)))
}

func TestDays_EarlyStop(t *testing.T) {
	count := 0
	for range Days(Date(2024, 1, 1), Date(2024, 12, 31)) {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestParseAndFormatDate(t *testing.T) {
	d, err := ParseDate("2024-07-04")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, 7, 4), d)
	assert.Equal(t, "2024-07-04", FormatDate(d))

	_, err = ParseDate("04.07.2024")
	assert.Error(t, err)
}

func TestToday(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	now := time.Date(2024, 6, 30, 22, 30, 0, 0, time.UTC) // 00:30 on Jul 1 in Berlin
	assert.Equal(t, Date(2024, 7, 1), Today(now, berlin))
	assert.Equal(t, Date(2024, 6, 30), Today(now, nil))
}
