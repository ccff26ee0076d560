package server

import (
	"net/http"

	"github.com/melnik909-create/wechselmodell/calendar"
	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
	"github.com/melnik909-create/wechselmodell/server/auth"
	"github.com/melnik909-create/wechselmodell/storage"
)

// principal returns the authenticated parent or writes 401
func (s *Server) principal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p := auth.GetPrincipalFromContext(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "authentication required"})
		return nil, false
	}
	return p, true
}

func (s *Server) handleListPatterns(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathUUID(r, "familyID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	patterns, err := s.calendar.Patterns(r.Context(), familyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := make([]patternResponse, 0, len(patterns))
	for _, p := range patterns {
		resp = append(resp, newPatternResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActivePattern(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathUUID(r, "familyID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.calendar.ActivePattern(r.Context(), familyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPatternResponse(p))
}

func (s *Server) handleCreatePattern(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathUUID(r, "familyID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, ok := s.principal(w, r); !ok {
		return
	}

	var req createPatternRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	start, err := dateutil.ParseDate(req.StartDate)
	if err != nil {
		s.writeError(w, r, badRequest{message: err.Error()})
		return
	}
	in := calendar.NewPattern{
		Type:           custody.PatternType(req.Type),
		StartDate:      start,
		StartingParent: custody.Parent(req.StartingParent),
	}
	for _, parent := range req.CustomSequence {
		in.CustomSequence = append(in.CustomSequence, custody.Parent(parent))
	}

	p, err := s.calendar.CreatePattern(r.Context(), familyID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPatternResponse(p))
}

func (s *Server) handleListExceptions(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathUUID(r, "familyID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	filter := &storage.ExceptionFilter{}
	q := r.URL.Query()
	if q.Has("start") {
		from, err := dateQuery(r, "start", dateutil.Date(1, 1, 1))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.From = &from
	}
	if q.Has("end") {
		to, err := dateQuery(r, "end", dateutil.Date(1, 1, 1))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.To = &to
	}
	for _, raw := range q["status"] {
		status := custody.Status(raw)
		if !status.Valid() {
			s.writeError(w, r, badRequest{message: "unknown status " + raw})
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	exceptions, err := s.calendar.ListExceptions(r.Context(), familyID, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := make([]exceptionResponse, 0, len(exceptions))
	for _, ex := range exceptions {
		resp = append(resp, newExceptionResponse(ex))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProposeException(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathUUID(r, "familyID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	var req proposeExceptionRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	date, err := dateutil.ParseDate(req.Date)
	if err != nil {
		s.writeError(w, r, badRequest{message: err.Error()})
		return
	}

	ex, err := s.calendar.ProposeException(r.Context(), familyID, calendar.NewException{
		Date:       date,
		NewParent:  custody.Parent(req.NewParent),
		Reason:     custody.Reason(req.Reason),
		Note:       req.Note,
		ProposedBy: principal.Parent,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newExceptionResponse(ex))
}

func (s *Server) handleRespond(accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := pathUUID(r, "familyID")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		exceptionID, err := pathUUID(r, "exceptionID")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		principal, ok := s.principal(w, r)
		if !ok {
			return
		}

		ex, err := s.calendar.RespondToException(r.Context(), familyID, exceptionID, principal.Parent, accept)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newExceptionResponse(ex))
	}
}

func (s *Server) handleDeleteException(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathUUID(r, "familyID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	exceptionID, err := pathUUID(r, "exceptionID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, ok := s.principal(w, r); !ok {
		return
	}

	if err := s.calendar.DeleteException(r.Context(), familyID, exceptionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
