// Package calendar serves custody calendars for families on top of a storage
// backend and the custody engine. Projections are cached per family and the
// cache is invalidated by every write that goes through the service.
package calendar

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
	"github.com/melnik909-create/wechselmodell/internal/logger"
	"github.com/melnik909-create/wechselmodell/storage"
)

const opProject = "project"

// Service answers calendar queries and applies pattern and exception changes.
type Service struct {
	store  storage.Storage
	engine *custody.Engine
	cache  *ProjectionCache
	config ServiceConfig
	logger logrus.FieldLogger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a calendar service. A nil engine gets a default one.
func New(store storage.Storage, engine *custody.Engine, config ServiceConfig, opts ...Option) *Service {
	s := &Service{
		store:  store,
		engine: engine,
		config: config,
		logger: logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = custody.NewEngine(custody.WithLogger(s.logger))
	}
	if s.config.Location == nil {
		s.config.Location = time.UTC
	}
	if config.CacheEnabled {
		s.cache = NewProjectionCache(config.CacheConfig)
	}
	return s
}

// Close stops the cache cleanup loop.
func (s *Service) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

// CacheStats reports projection cache occupancy. It is zero when caching is disabled.
func (s *Service) CacheStats() CacheStats {
	if s.cache == nil {
		return CacheStats{}
	}
	return s.cache.Stats()
}

// Today returns the current calendar day in the configured location.
func (s *Service) Today() time.Time {
	return dateutil.Today(s.now(), s.config.Location)
}

// Location returns the location used to decide the current day.
func (s *Service) Location() *time.Location {
	return s.config.Location
}

// ActivePattern returns the family's active pattern.
func (s *Service) ActivePattern(ctx context.Context, familyID uuid.UUID) (*custody.CustodyPattern, error) {
	return s.store.GetActivePattern(ctx, familyID)
}

// Patterns returns the family's pattern history, newest first.
func (s *Service) Patterns(ctx context.Context, familyID uuid.UUID) ([]*custody.CustodyPattern, error) {
	return s.store.ListPatterns(ctx, familyID)
}

// ActiveFamilies returns the families that have an active pattern.
func (s *Service) ActiveFamilies(ctx context.Context) ([]uuid.UUID, error) {
	return s.store.ListActiveFamilies(ctx)
}

// ListExceptions returns the family's exceptions matching filter.
func (s *Service) ListExceptions(ctx context.Context, familyID uuid.UUID, filter *storage.ExceptionFilter) ([]*custody.CustodyException, error) {
	return s.store.ListExceptions(ctx, familyID, filter)
}

func (s *Service) checkRange(start, end time.Time) error {
	start, end = dateutil.Day(start), dateutil.Day(end)
	if start.After(end) {
		return &custody.Error{Type: custody.ErrInvalidRange,
			Message: "range start " + dateutil.FormatDate(start) + " is after end " + dateutil.FormatDate(end)}
	}
	if s.config.MaxRangeDays > 0 && dateutil.DaysBetween(start, end)+1 > s.config.MaxRangeDays {
		return &custody.Error{Type: custody.ErrInvalidRange, Message: "range exceeds the maximum number of days"}
	}
	return nil
}

// inputs loads the active pattern and the accepted exceptions inside [start, end].
func (s *Service) inputs(ctx context.Context, familyID uuid.UUID, start, end time.Time) (*custody.CustodyPattern, []custody.CustodyException, error) {
	p, err := s.store.GetActivePattern(ctx, familyID)
	if err != nil {
		return nil, nil, err
	}
	from, to := dateutil.Day(start), dateutil.Day(end)
	stored, err := s.store.ListExceptions(ctx, familyID, &storage.ExceptionFilter{
		From:     &from,
		To:       &to,
		Statuses: []custody.Status{custody.StatusAccepted},
	})
	if err != nil {
		return nil, nil, err
	}
	exceptions := make([]custody.CustodyException, len(stored))
	for i, ex := range stored {
		exceptions[i] = *ex
	}
	return p, exceptions, nil
}

func (s *Service) project(ctx context.Context, familyID uuid.UUID, start, end time.Time) ([]custody.DayAssignment, error) {
	p, exceptions, err := s.inputs(ctx, familyID, start, end)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if days, ok := s.cache.Get(opProject, p, exceptions, start, end); ok {
			return days, nil
		}
	}

	days, err := s.engine.Collect(p, exceptions, start, end)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(opProject, p, exceptions, start, end, days)
	}
	return days, nil
}

// Project returns the family's day assignments from start to end inclusive.
func (s *Service) Project(ctx context.Context, familyID uuid.UUID, start, end time.Time) ([]custody.DayAssignment, error) {
	if err := s.checkRange(start, end); err != nil {
		return nil, err
	}
	return s.project(ctx, familyID, start, end)
}

// Week returns the Monday-start week containing day.
func (s *Service) Week(ctx context.Context, familyID uuid.UUID, day time.Time) ([]custody.DayAssignment, error) {
	return s.project(ctx, familyID, dateutil.StartOfWeek(day), dateutil.EndOfWeek(day))
}

// Month returns the 42-day grid of the month.
func (s *Service) Month(ctx context.Context, familyID uuid.UUID, year int, month time.Month) ([]custody.DayAssignment, error) {
	return s.project(ctx, familyID, dateutil.MonthGridStart(year, month), dateutil.MonthGridEnd(year, month))
}

// Lookahead returns n days starting today.
func (s *Service) Lookahead(ctx context.Context, familyID uuid.UUID, n int) ([]custody.DayAssignment, error) {
	if n < 1 {
		return nil, &custody.Error{Type: custody.ErrInvalidRange, Message: "lookahead needs at least one day"}
	}
	today := s.Today()
	end := dateutil.AddDays(today, n-1)
	if err := s.checkRange(today, end); err != nil {
		return nil, err
	}
	return s.project(ctx, familyID, today, end)
}

// Handovers returns the custody changes in [start, end]. The day before start is
// projected too so that a change on start itself is reported.
func (s *Service) Handovers(ctx context.Context, familyID uuid.UUID, start, end time.Time) ([]custody.Handover, error) {
	if err := s.checkRange(start, end); err != nil {
		return nil, err
	}
	start, end = dateutil.Day(start), dateutil.Day(end)
	days, err := s.project(ctx, familyID, dateutil.AddDays(start, -1), end)
	if err != nil {
		return nil, err
	}

	handovers := custody.Handovers(days)
	out := make([]custody.Handover, 0, len(handovers))
	for _, h := range handovers {
		if !h.Date.Before(start) {
			out = append(out, h)
		}
	}
	return out, nil
}

// NewPattern describes a pattern to create.
type NewPattern struct {
	Type           custody.PatternType
	StartDate      time.Time
	StartingParent custody.Parent
	CustomSequence []custody.Parent
}

// CreatePattern validates and stores a new pattern as the family's active one.
func (s *Service) CreatePattern(ctx context.Context, familyID uuid.UUID, in NewPattern) (*custody.CustodyPattern, error) {
	p := &custody.CustodyPattern{
		ID:             uuid.New(),
		FamilyID:       familyID,
		Type:           in.Type,
		StartDate:      dateutil.Day(in.StartDate),
		StartingParent: in.StartingParent,
		CustomSequence: append([]custody.Parent(nil), in.CustomSequence...),
		IsActive:       true,
		CreatedAt:      s.now(),
	}
	if p.Type == custody.PatternCustom {
		p.StartingParent = ""
	}
	if err := p.ValidateNew(); err != nil {
		return nil, err
	}
	if err := s.store.CreatePattern(ctx, p); err != nil {
		return nil, err
	}

	s.invalidate(familyID)
	s.logger.WithFields(logrus.Fields{
		"family_id":    familyID,
		"pattern_id":   p.ID,
		"pattern_type": p.Type,
		"start_date":   dateutil.FormatDate(p.StartDate),
	}).Info("custody pattern activated")

	stale, err := s.StaleExceptions(ctx, familyID)
	if err != nil {
		s.logger.WithError(err).WithField("family_id", familyID).Warn("could not check exceptions against the new pattern")
	} else if len(stale) > 0 {
		ids := make([]string, len(stale))
		for i, ex := range stale {
			ids[i] = ex.ID.String()
		}
		s.logger.WithFields(logrus.Fields{
			"family_id":     familyID,
			"pattern_id":    p.ID,
			"count":         len(stale),
			"exception_ids": ids,
		}).Warn("exceptions were recorded against a previous pattern")
	}
	return p, nil
}

// StaleExceptions lists proposed and accepted exceptions whose original parent
// disagrees with the active pattern, including those dated before its start.
// They stay in effect until a parent deletes them.
func (s *Service) StaleExceptions(ctx context.Context, familyID uuid.UUID) ([]*custody.CustodyException, error) {
	p, err := s.store.GetActivePattern(ctx, familyID)
	if err != nil {
		return nil, err
	}
	exceptions, err := s.store.ListExceptions(ctx, familyID, &storage.ExceptionFilter{
		Statuses: []custody.Status{custody.StatusProposed, custody.StatusAccepted},
	})
	if err != nil {
		return nil, err
	}

	var stale []*custody.CustodyException
	for _, ex := range exceptions {
		if !p.Covers(ex.Date) {
			stale = append(stale, ex)
			continue
		}
		base, err := custody.AssignedParent(p, ex.Date)
		if err != nil {
			return nil, err
		}
		if base != ex.OriginalParent {
			stale = append(stale, ex)
		}
	}
	return stale, nil
}

// NewException describes an exception proposed by one parent.
type NewException struct {
	Date       time.Time
	NewParent  custody.Parent
	Reason     custody.Reason
	Note       string
	ProposedBy custody.Parent
}

// ProposeException records a proposed change of custody on a single day. The
// original parent is taken from the base pattern so it stays correct even if the
// day already carries an accepted exception.
func (s *Service) ProposeException(ctx context.Context, familyID uuid.UUID, in NewException) (*custody.CustodyException, error) {
	if !in.ProposedBy.Valid() {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "proposing parent is invalid"}
	}
	if !in.NewParent.Valid() {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "new parent is invalid"}
	}
	if in.Reason == "" {
		in.Reason = custody.ReasonOther
	}
	if !in.Reason.Valid() {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "unknown reason " + string(in.Reason)}
	}

	p, err := s.store.GetActivePattern(ctx, familyID)
	if err != nil {
		return nil, err
	}
	date := dateutil.Day(in.Date)
	original, err := custody.AssignedParent(p, date)
	if err != nil {
		return nil, err
	}
	if original == in.NewParent {
		return nil, &storage.Error{Type: storage.ErrInvalidInput,
			Message: "the pattern already assigns " + dateutil.FormatDate(date) + " to " + string(in.NewParent)}
	}

	ex := &custody.CustodyException{
		ID:             uuid.New(),
		FamilyID:       familyID,
		Date:           date,
		OriginalParent: original,
		NewParent:      in.NewParent,
		Reason:         in.Reason,
		Note:           strings.TrimSpace(in.Note),
		Status:         custody.StatusProposed,
		ProposedBy:     in.ProposedBy,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateException(ctx, ex); err != nil {
		return nil, err
	}

	s.invalidate(familyID)
	s.logger.WithFields(logrus.Fields{
		"family_id":    familyID,
		"exception_id": ex.ID,
		"date":         dateutil.FormatDate(date),
		"proposed_by":  ex.ProposedBy,
	}).Info("custody exception proposed")
	return ex, nil
}

// RespondToException lets the counter-party accept or reject a proposal.
func (s *Service) RespondToException(ctx context.Context, familyID, exceptionID uuid.UUID, responder custody.Parent, accept bool) (*custody.CustodyException, error) {
	ex, err := s.store.GetException(ctx, familyID, exceptionID)
	if err != nil {
		return nil, err
	}
	if responder == ex.ProposedBy {
		return nil, &storage.Error{Type: storage.ErrPermissionDenied, Message: "an exception must be answered by the other parent"}
	}
	if !responder.Valid() {
		return nil, &storage.Error{Type: storage.ErrPermissionDenied, Message: "responder is not a parent of this family"}
	}

	status := custody.StatusRejected
	if accept {
		status = custody.StatusAccepted
	}
	updated, err := s.store.RespondToException(ctx, familyID, exceptionID, status, s.now())
	if err != nil {
		return nil, err
	}

	s.invalidate(familyID)
	s.logger.WithFields(logrus.Fields{
		"family_id":    familyID,
		"exception_id": exceptionID,
		"status":       status,
		"responder":    responder,
	}).Info("custody exception answered")
	return updated, nil
}

// DeleteException removes an exception of any status.
func (s *Service) DeleteException(ctx context.Context, familyID, exceptionID uuid.UUID) error {
	if err := s.store.DeleteException(ctx, familyID, exceptionID); err != nil {
		return err
	}
	s.invalidate(familyID)
	return nil
}

func (s *Service) invalidate(familyID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if n := s.cache.InvalidateFamily(familyID); n > 0 {
		s.logger.WithFields(logrus.Fields{"family_id": familyID, "entries": n}).Debug("projection cache invalidated")
	}
}
