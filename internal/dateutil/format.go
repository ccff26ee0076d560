package dateutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/en"
)

// DefaultLocale is used when no locale is requested.
const DefaultLocale = "de"

var translators = map[string]func() locales.Translator{
	"de": de.New,
	"en": en.New,
}

// Formatter renders calendar days for display in one locale.
type Formatter struct {
	tr locales.Translator
}

// NewFormatter returns a formatter for locale ("de" or "en", case-insensitive).
// An empty locale selects DefaultLocale.
func NewFormatter(locale string) (*Formatter, error) {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		locale = DefaultLocale
	}
	newTr, ok := translators[locale]
	if !ok {
		return nil, fmt.Errorf("unsupported locale %q", locale)
	}
	return &Formatter{tr: newTr()}, nil
}

// Locale returns the locale name of the underlying translator.
func (f *Formatter) Locale() string {
	return f.tr.Locale()
}

// FormatDay renders the full date, e.g. "Monday, January 1, 2024".
func (f *Formatter) FormatDay(t time.Time) string {
	return f.tr.FmtDateFull(Day(t))
}

// FormatShort renders the short numeric date.
func (f *Formatter) FormatShort(t time.Time) string {
	return f.tr.FmtDateShort(Day(t))
}

// WeekdayShort returns the abbreviated weekday name.
func (f *Formatter) WeekdayShort(t time.Time) string {
	return f.tr.WeekdayAbbreviated(Day(t).Weekday())
}

// MonthTitle returns the month header of a month view, e.g. "January 2024".
func (f *Formatter) MonthTitle(year int, month time.Month) string {
	return f.tr.MonthWide(month) + " " + strconv.Itoa(year)
}
