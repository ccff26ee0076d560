// memory based implementation for tests and the demo daemon
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
	"github.com/melnik909-create/wechselmodell/storage"
)

// Store implements storage.Storage interface using in-memory maps
type Store struct {
	mu         sync.RWMutex
	patterns   map[uuid.UUID]*custody.CustodyPattern   // key: pattern ID
	exceptions map[uuid.UUID]*custody.CustodyException // key: exception ID
	now        func() time.Time
}

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		patterns:   make(map[uuid.UUID]*custody.CustodyPattern),
		exceptions: make(map[uuid.UUID]*custody.CustodyException),
		now:        time.Now,
	}
}

var _ storage.Storage = (*Store)(nil)

func copyPattern(p *custody.CustodyPattern) *custody.CustodyPattern {
	c := *p
	c.CustomSequence = slices.Clone(p.CustomSequence)
	return &c
}

func copyException(ex *custody.CustodyException) *custody.CustodyException {
	c := *ex
	if ex.RespondedAt != nil {
		t := *ex.RespondedAt
		c.RespondedAt = &t
	}
	return &c
}

// Pattern operations

func (s *Store) CreatePattern(_ context.Context, p *custody.CustodyPattern) error {
	if p == nil || p.ID == uuid.Nil || p.FamilyID == uuid.Nil {
		return &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "pattern ID and family ID are required",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.patterns[p.ID]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "pattern already exists",
		}
	}

	for _, existing := range s.patterns {
		if existing.FamilyID == p.FamilyID {
			existing.IsActive = false
		}
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.IsActive = true
	p.StartDate = dateutil.Day(p.StartDate)
	s.patterns[p.ID] = copyPattern(p)

	return nil
}

func (s *Store) GetActivePattern(_ context.Context, familyID uuid.UUID) (*custody.CustodyPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.patterns {
		if p.FamilyID == familyID && p.IsActive {
			return copyPattern(p), nil
		}
	}

	return nil, &storage.Error{
		Type:    storage.ErrNotFound,
		Message: "no active pattern for family",
	}
}

func (s *Store) ListPatterns(_ context.Context, familyID uuid.UUID) ([]*custody.CustodyPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var patterns []*custody.CustodyPattern
	for _, p := range s.patterns {
		if p.FamilyID == familyID {
			patterns = append(patterns, copyPattern(p))
		}
	}
	slices.SortFunc(patterns, func(a, b *custody.CustodyPattern) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return patterns, nil
}

func (s *Store) ListActiveFamilies(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var families []uuid.UUID
	for _, p := range s.patterns {
		if p.IsActive {
			families = append(families, p.FamilyID)
		}
	}
	slices.SortFunc(families, func(a, b uuid.UUID) int {
		return cmp.Compare(a.String(), b.String())
	})

	return families, nil
}

// Exception operations

func (s *Store) CreateException(_ context.Context, ex *custody.CustodyException) error {
	if ex == nil || ex.ID == uuid.Nil || ex.FamilyID == uuid.Nil {
		return &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "exception ID and family ID are required",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.exceptions[ex.ID]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "exception already exists",
		}
	}
	if ex.Status == custody.StatusAccepted && s.acceptedOn(ex.FamilyID, ex.Date, ex.ID) {
		return &storage.Error{
			Type:    storage.ErrConflict,
			Message: "another accepted exception covers this date",
		}
	}

	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = s.now()
	}
	ex.Date = dateutil.Day(ex.Date)
	s.exceptions[ex.ID] = copyException(ex)

	return nil
}

func (s *Store) GetException(_ context.Context, familyID, exceptionID uuid.UUID) (*custody.CustodyException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ex, ok := s.exceptions[exceptionID]
	if !ok || ex.FamilyID != familyID {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "exception not found",
		}
	}

	return copyException(ex), nil
}

func (s *Store) ListExceptions(_ context.Context, familyID uuid.UUID, filter *storage.ExceptionFilter) ([]*custody.CustodyException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exceptions []*custody.CustodyException
	for _, ex := range s.exceptions {
		if ex.FamilyID != familyID || !filter.Matches(ex) {
			continue
		}
		exceptions = append(exceptions, copyException(ex))
	}
	slices.SortFunc(exceptions, func(a, b *custody.CustodyException) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return exceptions, nil
}

func (s *Store) RespondToException(_ context.Context, familyID, exceptionID uuid.UUID, status custody.Status, respondedAt time.Time) (*custody.CustodyException, error) {
	if status != custody.StatusAccepted && status != custody.StatusRejected {
		return nil, &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "response must be accepted or rejected",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ex, ok := s.exceptions[exceptionID]
	if !ok || ex.FamilyID != familyID {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "exception not found",
		}
	}
	if ex.Status != custody.StatusProposed {
		return nil, &storage.Error{
			Type:    storage.ErrConflict,
			Message: "exception was already " + string(ex.Status),
		}
	}
	if status == custody.StatusAccepted && s.acceptedOn(familyID, ex.Date, ex.ID) {
		return nil, &storage.Error{
			Type:    storage.ErrConflict,
			Message: "another accepted exception covers this date",
		}
	}

	ex.Status = status
	t := respondedAt
	ex.RespondedAt = &t

	return copyException(ex), nil
}

func (s *Store) DeleteException(_ context.Context, familyID, exceptionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex, ok := s.exceptions[exceptionID]
	if !ok || ex.FamilyID != familyID {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "exception not found",
		}
	}

	delete(s.exceptions, exceptionID)
	return nil
}

// acceptedOn must be called with s.mu held.
func (s *Store) acceptedOn(familyID uuid.UUID, date time.Time, except uuid.UUID) bool {
	for _, other := range s.exceptions {
		if other.ID != except && other.FamilyID == familyID &&
			other.Status == custody.StatusAccepted && dateutil.SameDay(other.Date, date) {
			return true
		}
	}
	return false
}
