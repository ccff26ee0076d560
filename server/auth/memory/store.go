package memory

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/melnik909-create/wechselmodell/internal/logger"
	"github.com/melnik909-create/wechselmodell/server/auth"
)

// Store implements an in-memory session token table
type Store struct {
	mu       sync.RWMutex
	sessions map[string]auth.Principal // map[token]Principal
	logger   logrus.FieldLogger
}

// New creates a new in-memory authentication store
func New(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]auth.Principal),
		logger:   logger.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// AddSession registers token for principal.
func (s *Store) AddSession(token string, principal auth.Principal) error {
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}
	if !principal.Parent.Valid() {
		return fmt.Errorf("invalid parent %q for session %s", principal.Parent, principal.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[token]; exists {
		s.logger.WithField("principal", principal.ID).Warn("failed to add session: token already exists")
		return fmt.Errorf("session already exists for principal %s", principal.ID)
	}
	s.sessions[token] = principal

	s.logger.WithFields(logrus.Fields{
		"principal": principal.ID,
		"family_id": principal.FamilyID,
		"parent":    principal.Parent,
	}).Info("session added")

	return nil
}

// Authenticate implements auth.Authenticator
func (s *Store) Authenticate(_ context.Context, creds auth.Credentials) (*auth.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for token, principal := range s.sessions {
		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(token), []byte(creds.Token)) == 1 {
			s.logger.WithField("principal", principal.ID).Debug("authentication successful")
			p := principal
			return &p, nil
		}
	}

	s.logger.Info("authentication failed: unknown token")
	return nil, &auth.Error{
		Type:    auth.ErrInvalidCredentials,
		Message: "invalid token",
	}
}

// ValidateAccess implements auth.Authenticator
func (s *Store) ValidateAccess(_ context.Context, principal *auth.Principal, path string) error {
	if principal == nil {
		s.logger.Info("access validation failed: no principal")
		return &auth.Error{
			Type:    auth.ErrUnauthorized,
			Message: "authentication required",
		}
	}

	familyID, scoped, err := auth.FamilyFromPath(path)
	if err != nil {
		return err
	}
	if scoped && familyID != principal.FamilyID {
		s.logger.WithFields(logrus.Fields{
			"principal":        principal.ID,
			"requested_family": familyID,
			"path":             path,
		}).Warn("access validation failed: forbidden")
		return &auth.Error{
			Type:    auth.ErrForbidden,
			Message: fmt.Sprintf("access denied to resource: %s", path),
		}
	}

	s.logger.WithFields(logrus.Fields{"principal": principal.ID, "path": path}).Debug("access validation successful")
	return nil
}
