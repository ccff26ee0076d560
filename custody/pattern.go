package custody

import (
	"time"

	"github.com/melnik909-create/wechselmodell/internal/dateutil"
)

// MaxCustomSequenceLength bounds custom sequences at creation time.
const MaxCustomSequenceLength = 90

// Day-by-day blocks of the fixed patterns. true = starting parent.
var (
	blockAlternatingWeek = []bool{
		true, true, true, true, true, true, true,
		false, false, false, false, false, false, false,
	}
	// 2 days A, 2 days B, 5 days A, 5 days B.
	block2255 = []bool{
		true, true,
		false, false,
		true, true, true, true, true,
		false, false, false, false, false,
	}
	// 2 days A, 2 days B, 3 days A.
	block223 = []bool{
		true, true,
		false, false,
		true, true, true,
	}
)

// Validate checks that the pattern can be evaluated.
func (p *CustodyPattern) Validate() error {
	if p == nil {
		return newError(ErrInvalidPatternDefinition, "pattern is nil")
	}
	if p.StartDate.IsZero() {
		return newError(ErrInvalidPatternDefinition, "start date is required")
	}
	switch p.Type {
	case PatternAlternatingWeek, Pattern2255, Pattern223:
		if !p.StartingParent.Valid() {
			return newError(ErrInvalidPatternDefinition, "invalid starting parent %q", p.StartingParent)
		}
	case PatternCustom:
		if len(p.CustomSequence) == 0 {
			return newError(ErrInvalidPatternDefinition, "custom pattern requires a non-empty sequence")
		}
		for i, parent := range p.CustomSequence {
			if !parent.Valid() {
				return newError(ErrInvalidPatternDefinition, "invalid parent %q at sequence position %d", parent, i)
			}
		}
	default:
		return newError(ErrInvalidPatternDefinition, "unknown pattern type %q", p.Type)
	}
	return nil
}

// ValidateNew applies Validate plus the limits enforced when a pattern is created.
func (p *CustodyPattern) ValidateNew() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Type == PatternCustom && len(p.CustomSequence) > MaxCustomSequenceLength {
		return newError(ErrInvalidPatternDefinition,
			"custom sequence has %d days, at most %d allowed", len(p.CustomSequence), MaxCustomSequenceLength)
	}
	return nil
}

// Sequence returns one period of the pattern as a day-by-day parent list,
// anchored at the start date. The pattern must be valid.
func (p *CustodyPattern) Sequence() []Parent {
	var block []bool
	switch p.Type {
	case PatternAlternatingWeek:
		block = blockAlternatingWeek
	case Pattern2255:
		block = block2255
	case Pattern223:
		block = block223
	case PatternCustom:
		seq := make([]Parent, len(p.CustomSequence))
		copy(seq, p.CustomSequence)
		return seq
	default:
		return nil
	}

	seq := make([]Parent, len(block))
	for i, starting := range block {
		if starting {
			seq[i] = p.StartingParent
		} else {
			seq[i] = p.StartingParent.Other()
		}
	}
	return seq
}

// Period returns the length of the repeating sequence in days.
func (p *CustodyPattern) Period() int {
	switch p.Type {
	case PatternAlternatingWeek:
		return len(blockAlternatingWeek)
	case Pattern2255:
		return len(block2255)
	case Pattern223:
		return len(block223)
	case PatternCustom:
		return len(p.CustomSequence)
	}
	return 0
}

// Covers reports whether date is on or after the pattern start.
func (p *CustodyPattern) Covers(date time.Time) bool {
	return dateutil.DaysBetween(p.StartDate, date) >= 0
}

// AssignedParent returns the parent holding custody on date under the base pattern.
// It fails for invalid patterns and for dates before the start date.
func AssignedParent(p *CustodyPattern, date time.Time) (Parent, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	return assignedParent(p, p.Sequence(), date)
}

func assignedParent(p *CustodyPattern, seq []Parent, date time.Time) (Parent, error) {
	daysSinceStart := dateutil.DaysBetween(p.StartDate, date)
	if daysSinceStart < 0 {
		return "", newError(ErrDateBeforePatternStart, "%s is before pattern start %s",
			dateutil.FormatDate(date), dateutil.FormatDate(p.StartDate))
	}
	return seq[dateutil.FloorMod(daysSinceStart, len(seq))], nil
}
