package custody

import (
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"github.com/melnik909-create/wechselmodell/internal/dateutil"
	"github.com/melnik909-create/wechselmodell/internal/logger"
)

// Engine resolves custody per day from a pattern and its exceptions.
// It holds no state besides its logger and is safe for concurrent use.
type Engine struct {
	logger logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used to report data anomalies.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a new custody engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: logger.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// exceptionIndex holds accepted exceptions grouped by ISO calendar date.
type exceptionIndex map[string][]CustodyException

func indexAccepted(exceptions []CustodyException) exceptionIndex {
	idx := make(exceptionIndex)
	for _, ex := range exceptions {
		if ex.Status != StatusAccepted {
			continue
		}
		key := dateutil.FormatDate(ex.Date)
		idx[key] = append(idx[key], ex)
	}
	return idx
}

// Resolve returns the custody assignment for date, applying an accepted exception
// on that day if one exists. Dates before the pattern start fail with
// ErrDateBeforePatternStart.
func (e *Engine) Resolve(p *CustodyPattern, exceptions []CustodyException, date time.Time) (DayAssignment, error) {
	if err := p.Validate(); err != nil {
		return DayAssignment{}, err
	}
	return e.resolve(p, p.Sequence(), indexAccepted(exceptions), dateutil.Day(date))
}

func (e *Engine) resolve(p *CustodyPattern, seq []Parent, idx exceptionIndex, day time.Time) (DayAssignment, error) {
	base, err := assignedParent(p, seq, day)
	if err != nil {
		return DayAssignment{}, err
	}

	matches := idx[dateutil.FormatDate(day)]
	if len(matches) == 0 {
		return DayAssignment{Date: day, Parent: mo.Some(base)}, nil
	}

	ex := matches[0]
	if len(matches) > 1 {
		ex = latestResponded(matches)
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID.String()
		}
		e.logger.WithFields(logrus.Fields{
			"error_type":    ErrConflictingAcceptedExceptions,
			"family_id":     p.FamilyID,
			"date":          dateutil.FormatDate(day),
			"count":         len(matches),
			"exception_ids": ids,
			"chosen_id":     ex.ID,
		}).Warn("multiple accepted exceptions for one day, using the most recently responded")
	}

	return DayAssignment{
		Date:        day,
		Parent:      mo.Some(ex.NewParent),
		IsException: true,
		Reason:      ex.Reason,
		ExceptionID: ex.ID,
	}, nil
}

// latestResponded picks the exception with the latest RespondedAt, breaking ties
// by CreatedAt and then by ID so the choice never depends on input order.
func latestResponded(exceptions []CustodyException) CustodyException {
	return slices.MaxFunc(exceptions, func(a, b CustodyException) int {
		if c := compareTimePtr(a.RespondedAt, b.RespondedAt); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

// Project returns the day assignments from start to end inclusive, ascending.
//
// The pattern and range are validated immediately; the returned sequence is lazy
// and may be ranged over repeatedly with identical results. Days before the
// pattern start are yielded without a parent.
func (e *Engine) Project(p *CustodyPattern, exceptions []CustodyException, start, end time.Time) (iter.Seq[DayAssignment], error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start, end = dateutil.Day(start), dateutil.Day(end)
	if start.After(end) {
		return nil, newError(ErrInvalidRange, "range start %s is after end %s",
			dateutil.FormatDate(start), dateutil.FormatDate(end))
	}

	pattern := *p
	seq := p.Sequence()
	idx := indexAccepted(exceptions)

	return func(yield func(DayAssignment) bool) {
		for day := range dateutil.Days(start, end) {
			var a DayAssignment
			if !pattern.Covers(day) {
				a = DayAssignment{Date: day, Parent: mo.None[Parent]()}
			} else {
				var err error
				a, err = e.resolve(&pattern, seq, idx, day)
				if err != nil {
					// Unreachable for a validated pattern and a covered day.
					return
				}
			}
			if !yield(a) {
				return
			}
		}
	}, nil
}

// Collect materializes Project into a slice.
func (e *Engine) Collect(p *CustodyPattern, exceptions []CustodyException, start, end time.Time) ([]DayAssignment, error) {
	days, err := e.Project(p, exceptions, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]DayAssignment, 0, dateutil.DaysBetween(start, end)+1)
	for d := range days {
		out = append(out, d)
	}
	return out, nil
}

// Week returns the Monday-start week containing day.
func (e *Engine) Week(p *CustodyPattern, exceptions []CustodyException, day time.Time) ([]DayAssignment, error) {
	return e.Collect(p, exceptions, dateutil.StartOfWeek(day), dateutil.EndOfWeek(day))
}

// Month returns the 42-cell month grid, starting on the Monday on or before the 1st.
func (e *Engine) Month(p *CustodyPattern, exceptions []CustodyException, year int, month time.Month) ([]DayAssignment, error) {
	return e.Collect(p, exceptions, dateutil.MonthGridStart(year, month), dateutil.MonthGridEnd(year, month))
}

// Lookahead returns n days starting today.
func (e *Engine) Lookahead(p *CustodyPattern, exceptions []CustodyException, today time.Time, n int) ([]DayAssignment, error) {
	if n < 1 {
		return nil, newError(ErrInvalidRange, "lookahead needs at least one day, got %d", n)
	}
	return e.Collect(p, exceptions, today, dateutil.AddDays(today, n-1))
}

// Handovers lists the days on which custody changes compared to the previous
// assigned day. The first assigned day is never a handover.
func Handovers(days []DayAssignment) []Handover {
	var (
		out  []Handover
		prev mo.Option[Parent]
	)
	for _, d := range days {
		cur, ok := d.Parent.Get()
		if !ok {
			continue
		}
		if before, had := prev.Get(); had && before != cur {
			out = append(out, Handover{
				Date:        d.Date,
				From:        before,
				To:          cur,
				IsException: d.IsException,
			})
		}
		prev = mo.Some(cur)
	}
	return out
}
