package custody

import (
	"bytes"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnik909-create/wechselmodell/internal/dateutil"
)

func newException(p *CustodyPattern, offset int, to Parent, status Status) CustodyException {
	return CustodyException{
		ID:             uuid.New(),
		FamilyID:       p.FamilyID,
		Date:           dateutil.AddDays(p.StartDate, offset),
		OriginalParent: to.Other(),
		NewParent:      to,
		Reason:         ReasonSwap,
		Status:         status,
		ProposedBy:     ParentA,
		CreatedAt:      time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
	}
}

func parentOf(t *testing.T, d DayAssignment) Parent {
	t.Helper()
	p, ok := d.Parent.Get()
	require.True(t, ok, "day %s is unassigned", dateutil.FormatDate(d.Date))
	return p
}

func TestEngine_Resolve(t *testing.T) {
	engine := NewEngine()
	p := newPattern(PatternAlternatingWeek)
	ex := newException(p, 2, ParentB, StatusAccepted)
	ex.Reason = ReasonSickness

	got, err := engine.Resolve(p, []CustodyException{ex}, dateutil.AddDays(start, 2))
	require.NoError(t, err)
	assert.Equal(t, ParentB, parentOf(t, got))
	assert.True(t, got.IsException)
	assert.Equal(t, ReasonSickness, got.Reason)
	assert.Equal(t, ex.ID, got.ExceptionID)

	got, err = engine.Resolve(p, []CustodyException{ex}, dateutil.AddDays(start, 3))
	require.NoError(t, err)
	assert.Equal(t, ParentA, parentOf(t, got))
	assert.False(t, got.IsException)
	assert.Empty(t, got.Reason)
}

func TestEngine_Resolve_InertStatuses(t *testing.T) {
	engine := NewEngine()

	for _, status := range []Status{StatusProposed, StatusRejected} {
		t.Run(string(status), func(t *testing.T) {
			p := newPattern(Pattern223)
			for offset := 0; offset < 14; offset++ {
				base := mustAssign(t, p, offset)
				ex := newException(p, offset, base.Other(), status)

				got, err := engine.Resolve(p, []CustodyException{ex}, dateutil.AddDays(start, offset))
				require.NoError(t, err)
				assert.Equal(t, base, parentOf(t, got))
				assert.False(t, got.IsException)
			}
		})
	}
}

func TestEngine_Resolve_BeforeStart(t *testing.T) {
	_, err := NewEngine().Resolve(newPattern(PatternAlternatingWeek), nil, dateutil.AddDays(start, -3))
	assert.True(t, IsErrorType(err, ErrDateBeforePatternStart))
}

func TestEngine_Resolve_ConflictingAccepted(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	engine := NewEngine(WithLogger(logger))
	p := newPattern(PatternAlternatingWeek)

	early := time.Date(2023, 12, 5, 10, 0, 0, 0, time.UTC)
	late := time.Date(2023, 12, 6, 10, 0, 0, 0, time.UTC)

	older := newException(p, 1, ParentB, StatusAccepted)
	older.RespondedAt = &early
	older.Reason = ReasonVacation
	newer := newException(p, 1, ParentB, StatusAccepted)
	newer.RespondedAt = &late
	newer.Reason = ReasonHoliday

	for _, exceptions := range [][]CustodyException{{older, newer}, {newer, older}} {
		got, err := engine.Resolve(p, exceptions, dateutil.AddDays(start, 1))
		require.NoError(t, err)
		assert.Equal(t, newer.ID, got.ExceptionID)
		assert.Equal(t, ReasonHoliday, got.Reason)
	}
	assert.Contains(t, buf.String(), "multiple accepted exceptions")
	assert.Contains(t, buf.String(), string(ErrConflictingAcceptedExceptions))
}

func TestEngine_Resolve_ConflictTieBreakIsOrderIndependent(t *testing.T) {
	engine := NewEngine()
	p := newPattern(PatternAlternatingWeek)

	a := newException(p, 4, ParentB, StatusAccepted)
	b := newException(p, 4, ParentB, StatusAccepted)

	first, err := engine.Resolve(p, []CustodyException{a, b}, dateutil.AddDays(start, 4))
	require.NoError(t, err)
	second, err := engine.Resolve(p, []CustodyException{b, a}, dateutil.AddDays(start, 4))
	require.NoError(t, err)
	assert.Equal(t, first.ExceptionID, second.ExceptionID)
}

func TestEngine_Project_WithException(t *testing.T) {
	engine := NewEngine()
	p := newPattern(PatternAlternatingWeek)
	ex := newException(p, 2, ParentB, StatusAccepted)

	days, err := engine.Collect(p, []CustodyException{ex}, start, dateutil.AddDays(start, 4))
	require.NoError(t, err)
	require.Len(t, days, 5)

	for i, d := range days {
		assert.Equal(t, dateutil.AddDays(start, i), d.Date)
		if i == 2 {
			assert.Equal(t, ParentB, parentOf(t, d))
			assert.True(t, d.IsException)
			assert.Equal(t, ReasonSwap, d.Reason)
			continue
		}
		assert.Equal(t, mustAssign(t, p, i), parentOf(t, d))
		assert.False(t, d.IsException)
	}
}

func TestEngine_Project_LengthAndOrder(t *testing.T) {
	engine := NewEngine()
	p := newPattern(Pattern2255)

	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"single day", start, start},
		{"week", start, dateutil.AddDays(start, 6)},
		{"month grid", dateutil.MonthGridStart(2024, time.March), dateutil.MonthGridEnd(2024, time.March)},
		{"across leap day", dateutil.Date(2024, 2, 20), dateutil.Date(2024, 3, 10)},
		{"year", start, dateutil.Date(2024, 12, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, err := engine.Collect(p, nil, tt.start, tt.end)
			require.NoError(t, err)
			require.Len(t, days, dateutil.DaysBetween(tt.start, tt.end)+1)
			for i := 1; i < len(days); i++ {
				assert.Equal(t, 1, dateutil.DaysBetween(days[i-1].Date, days[i].Date))
			}
		})
	}
}

func TestEngine_Project_BeforeStartIsUnassigned(t *testing.T) {
	engine := NewEngine()
	p := newPattern(PatternAlternatingWeek)

	days, err := engine.Collect(p, nil, dateutil.AddDays(start, -3), dateutil.AddDays(start, 1))
	require.NoError(t, err)
	require.Len(t, days, 5)

	for _, d := range days[:3] {
		assert.False(t, d.Assigned())
		assert.Equal(t, mo.None[Parent](), d.Parent)
	}
	assert.Equal(t, ParentA, parentOf(t, days[3]))
	assert.Equal(t, ParentA, parentOf(t, days[4]))
}

func TestEngine_Project_Idempotent(t *testing.T) {
	engine := NewEngine()
	p := newPattern(PatternCustom, ParentA, ParentB, ParentB, ParentA, ParentB)
	exceptions := []CustodyException{
		newException(p, 3, ParentB, StatusAccepted),
		newException(p, 8, ParentA, StatusProposed),
	}

	seq, err := engine.Project(p, exceptions, start, dateutil.AddDays(start, 30))
	require.NoError(t, err)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second, "sequence must be restartable")

	again, err := engine.Collect(p, exceptions, start, dateutil.AddDays(start, 30))
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestEngine_Project_Lazy(t *testing.T) {
	engine := NewEngine()
	p := newPattern(PatternAlternatingWeek)

	seq, err := engine.Project(p, nil, start, dateutil.AddDays(start, 100000))
	require.NoError(t, err)

	n := 0
	for range seq {
		n++
		if n == 10 {
			break
		}
	}
	assert.Equal(t, 10, n)
}

func TestEngine_Project_Errors(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Project(newPattern(PatternAlternatingWeek), nil, dateutil.AddDays(start, 1), start)
	assert.True(t, IsErrorType(err, ErrInvalidRange))

	_, err = engine.Project(newPattern(PatternCustom), nil, start, start)
	assert.True(t, IsErrorType(err, ErrInvalidPatternDefinition))
}

func TestEngine_Week(t *testing.T) {
	engine := NewEngine()
	p := newPattern(PatternAlternatingWeek)

	// 2024-01-10 is a Wednesday in the second week of the pattern.
	days, err := engine.Week(p, nil, dateutil.Date(2024, 1, 10))
	require.NoError(t, err)
	require.Len(t, days, dateutil.WeekDays)
	assert.Equal(t, time.Monday, days[0].Date.Weekday())
	assert.Equal(t, dateutil.Date(2024, 1, 8), days[0].Date)
	for _, d := range days {
		assert.Equal(t, ParentB, parentOf(t, d))
	}
}

func TestEngine_Month(t *testing.T) {
	engine := NewEngine()
	p := newPattern(PatternAlternatingWeek)

	days, err := engine.Month(p, nil, 2024, time.February)
	require.NoError(t, err)
	require.Len(t, days, dateutil.MonthGridCells)
	assert.Equal(t, dateutil.Date(2024, 1, 29), days[0].Date)
	assert.Equal(t, time.Monday, days[0].Date.Weekday())
	assert.Equal(t, dateutil.Date(2024, 3, 10), days[len(days)-1].Date)
}

func TestEngine_Lookahead(t *testing.T) {
	engine := NewEngine()
	p := newPattern(PatternAlternatingWeek)
	today := dateutil.Date(2024, 1, 5)

	days, err := engine.Lookahead(p, nil, today, 7)
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, today, days[0].Date)
	assert.Equal(t, dateutil.Date(2024, 1, 11), days[6].Date)

	_, err = engine.Lookahead(p, nil, today, 0)
	assert.True(t, IsErrorType(err, ErrInvalidRange))
}

func TestHandovers(t *testing.T) {
	engine := NewEngine()
	p := newPattern(PatternAlternatingWeek)
	ex := newException(p, 3, ParentB, StatusAccepted)

	days, err := engine.Collect(p, []CustodyException{ex}, dateutil.AddDays(start, -2), dateutil.AddDays(start, 14))
	require.NoError(t, err)

	handovers := Handovers(days)
	require.Len(t, handovers, 4)

	assert.Equal(t, Handover{Date: dateutil.AddDays(start, 3), From: ParentA, To: ParentB, IsException: true}, handovers[0])
	assert.Equal(t, Handover{Date: dateutil.AddDays(start, 4), From: ParentB, To: ParentA}, handovers[1])
	assert.Equal(t, Handover{Date: dateutil.AddDays(start, 7), From: ParentA, To: ParentB}, handovers[2])
	assert.Equal(t, Handover{Date: dateutil.AddDays(start, 14), From: ParentB, To: ParentA}, handovers[3])

	assert.Empty(t, Handovers(nil))
}
