package server

import (
	"bytes"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/ics"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
)

// rangeQuery reads start and end, defaulting to the current month
func (s *Server) rangeQuery(r *http.Request) (time.Time, time.Time, error) {
	today := s.calendar.Today()
	start, err := dateQuery(r, "start", dateutil.StartOfMonth(today))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := dateQuery(r, "end", dateutil.EndOfMonth(start))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func writeDays(w http.ResponseWriter, familyID uuid.UUID, days []custody.DayAssignment, f *dateutil.Formatter, title string) {
	resp := newCalendarResponse(familyID, days, f)
	resp.Title = title
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathUUID(r, "familyID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.formatter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	start, end, err := s.rangeQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	days, err := s.calendar.Project(r.Context(), familyID, start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeDays(w, familyID, days, f, "")
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathUUID(r, "familyID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.formatter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	day, err := dateQuery(r, "date", s.calendar.Today())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	days, err := s.calendar.Week(r.Context(), familyID, day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeDays(w, familyID, days, f, "")
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathUUID(r, "familyID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.formatter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	today := s.calendar.Today()
	year, err := intQuery(r, "year", today.Year())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	month, err := intQuery(r, "month", int(today.Month()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if month < 1 || month > 12 {
		s.writeError(w, r, badRequest{message: "month must be between 1 and 12"})
		return
	}

	days, err := s.calendar.Month(r.Context(), familyID, year, time.Month(month))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeDays(w, familyID, days, f, f.MonthTitle(year, time.Month(month)))
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathUUID(r, "familyID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.formatter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := intQuery(r, "days", defaultLookaheadDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	days, err := s.calendar.Lookahead(r.Context(), familyID, n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeDays(w, familyID, days, f, "")
}

func (s *Server) handleHandovers(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathUUID(r, "familyID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	start, end, err := s.rangeQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.formatter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	handovers, err := s.calendar.Handovers(r.Context(), familyID, start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := make([]handoverResponse, 0, len(handovers))
	for _, h := range handovers {
		resp = append(resp, handoverResponse{
			Date:        dateutil.FormatDate(h.Date),
			Label:       f.FormatDay(h.Date),
			From:        string(h.From),
			To:          string(h.To),
			IsException: h.IsException,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFeed serves the iCalendar subscription, by default from three months
// back to one year ahead
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathUUID(r, "familyID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	today := s.calendar.Today()
	start, err := dateQuery(r, "start", dateutil.StartOfMonth(today.AddDate(0, -3, 0)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	end, err := dateQuery(r, "end", dateutil.AddDays(today, 365))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	days, err := s.calendar.Project(r.Context(), familyID, start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := ics.Encode(&buf, familyID, days, ics.FeedOptions{Name: s.feedName, ParentNames: s.names}); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set(headerContentType, mimeTypeCalendar)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
