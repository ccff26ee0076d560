package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter("")
	require.NoError(t, err)
	assert.Equal(t, "de", f.Locale())

	f, err = NewFormatter(" EN ")
	require.NoError(t, err)
	assert.Equal(t, "en", f.Locale())

	_, err = NewFormatter("xx")
	assert.Error(t, err)
}

func TestFormatter_English(t *testing.T) {
	f, err := NewFormatter("en")
	require.NoError(t, err)

	d := Date(2024, 1, 1) // Monday
	assert.Equal(t, "Mon", f.WeekdayShort(d))
	assert.Equal(t, "January 2024", f.MonthTitle(2024, time.January))

	full := f.FormatDay(d)
	assert.Contains(t, full, "January")
	assert.Contains(t, full, "2024")
}

func TestFormatter_German(t *testing.T) {
	f, err := NewFormatter("de")
	require.NoError(t, err)

	assert.Equal(t, "März 2024", f.MonthTitle(2024, time.March))
	assert.Contains(t, f.FormatDay(Date(2024, 3, 4)), "März")
}
