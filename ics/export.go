// Package ics exports projected custody days as an iCalendar feed so that
// parents can subscribe to the calendar from any calendar client.
package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
)

const productID = "-//wechselmodell//Custody Calendar//DE"

// uidNamespace scopes the deterministic event UIDs.
var uidNamespace = uuid.MustParse("6f1c4f0e-5a8e-4c59-9d6b-2b3f0b7d1e42")

// FeedOptions controls feed metadata and event titles.
type FeedOptions struct {
	// Name becomes NAME and X-WR-CALNAME of the calendar.
	Name string
	// ParentNames maps parents to display names. Missing entries fall back to the parent value.
	ParentNames map[custody.Parent]string
	// Now is used for DTSTAMP. Zero means time.Now.
	Now time.Time
}

func (o FeedOptions) parentName(p custody.Parent) string {
	if name, ok := o.ParentNames[p]; ok && name != "" {
		return name
	}
	return string(p)
}

// run is a stretch of consecutive days with the same holder and exception state.
type run struct {
	start, end time.Time
	parent     custody.Parent
	exception  bool
	reason     custody.Reason
}

func runs(days []custody.DayAssignment) []run {
	var out []run
	for _, d := range days {
		parent, ok := d.Parent.Get()
		if !ok {
			continue
		}
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.parent == parent && last.exception == d.IsException && last.reason == d.Reason &&
				dateutil.DaysBetween(last.end, d.Date) == 1 {
				last.end = d.Date
				continue
			}
		}
		out = append(out, run{start: d.Date, end: d.Date, parent: parent, exception: d.IsException, reason: d.Reason})
	}
	return out
}

// Calendar builds the feed for days. Days without a holder are skipped.
func Calendar(familyID uuid.UUID, days []custody.DayAssignment, opts FeedOptions) *ical.Calendar {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	if opts.Name != "" {
		cal.Props.SetText(ical.PropName, opts.Name)
		cal.Props.SetText("X-WR-CALNAME", opts.Name)
	}

	for _, r := range runs(days) {
		event := ical.NewEvent()
		uid := uuid.NewSHA1(uidNamespace, []byte(fmt.Sprintf("%s/%s/%s/%t", familyID, dateutil.FormatDate(r.start), r.parent, r.exception)))
		event.Props.SetText(ical.PropUID, uid.String())
		event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
		event.Props.SetDate(ical.PropDateTimeStart, r.start)
		// DTEND of an all-day event is exclusive
		event.Props.SetDate(ical.PropDateTimeEnd, dateutil.AddDays(r.end, 1))

		summary := opts.parentName(r.parent)
		if r.exception {
			summary = fmt.Sprintf("%s (%s)", summary, r.reason)
			event.Props.SetText(ical.PropCategories, "exception")
		}
		event.Props.SetText(ical.PropSummary, summary)
		event.Props.SetText(ical.PropTransparency, "TRANSPARENT")

		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}

// Encode writes the feed for days to w.
func Encode(w io.Writer, familyID uuid.UUID, days []custody.DayAssignment, opts FeedOptions) error {
	if err := ical.NewEncoder(w).Encode(Calendar(familyID, days, opts)); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}
