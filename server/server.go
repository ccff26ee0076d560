package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/melnik909-create/wechselmodell/calendar"
	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
	"github.com/melnik909-create/wechselmodell/internal/logger"
)

const (
	// HTTP headers
	headerContentType = "Content-Type"

	// MIME types
	mimeTypeJSON     = "application/json; charset=utf-8"
	mimeTypeCalendar = "text/calendar; charset=utf-8"

	defaultLookaheadDays = 14
)

// Server routes HTTP requests to the calendar service
type Server struct {
	calendar *calendar.Service
	mux      *http.ServeMux
	validate *validator.Validate
	logger   logrus.FieldLogger
	locale   string
	feedName string
	names    map[custody.Parent]string
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultLocale sets the locale used when a request has no locale parameter
func WithDefaultLocale(locale string) Option {
	return func(s *Server) {
		s.locale = locale
	}
}

// WithFeedName sets the calendar name of the iCalendar feed
func WithFeedName(name string) Option {
	return func(s *Server) {
		s.feedName = name
	}
}

// WithParentNames sets the display names used in feed event titles
func WithParentNames(names map[custody.Parent]string) Option {
	return func(s *Server) {
		s.names = names
	}
}

// New creates the HTTP API for svc
func New(svc *calendar.Service, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("calendar service is required")
	}

	validate, err := newValidator()
	if err != nil {
		return nil, err
	}

	s := &Server{
		calendar: svc,
		mux:      http.NewServeMux(),
		validate: validate,
		logger:   logger.Discard(),
		locale:   dateutil.DefaultLocale,
		feedName: "Wechselmodell",
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := dateutil.NewFormatter(s.locale); err != nil {
		return nil, err
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /families/{familyID}/calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /families/{familyID}/calendar/week", s.handleWeek)
	s.mux.HandleFunc("GET /families/{familyID}/calendar/month", s.handleMonth)
	s.mux.HandleFunc("GET /families/{familyID}/calendar/upcoming", s.handleUpcoming)
	s.mux.HandleFunc("GET /families/{familyID}/calendar.ics", s.handleFeed)
	s.mux.HandleFunc("GET /families/{familyID}/handovers", s.handleHandovers)

	s.mux.HandleFunc("GET /families/{familyID}/patterns", s.handleListPatterns)
	s.mux.HandleFunc("POST /families/{familyID}/patterns", s.handleCreatePattern)
	s.mux.HandleFunc("GET /families/{familyID}/patterns/active", s.handleActivePattern)

	s.mux.HandleFunc("GET /families/{familyID}/exceptions", s.handleListExceptions)
	s.mux.HandleFunc("POST /families/{familyID}/exceptions", s.handleProposeException)
	s.mux.HandleFunc("POST /families/{familyID}/exceptions/{exceptionID}/accept", s.handleRespond(true))
	s.mux.HandleFunc("POST /families/{familyID}/exceptions/{exceptionID}/reject", s.handleRespond(false))
	s.mux.HandleFunc("DELETE /families/{familyID}/exceptions/{exceptionID}", s.handleDeleteException)
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	s.mux.ServeHTTP(rec, req)

	entry := s.logger.WithFields(logrus.Fields{
		"method":      req.Method,
		"path":        req.URL.Path,
		"status":      rec.status,
		"remote_addr": req.RemoteAddr,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	if rec.status >= http.StatusInternalServerError {
		entry.Error("request failed")
		return
	}
	entry.Info("handled request")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"cache":  s.calendar.CacheStats(),
	})
}
