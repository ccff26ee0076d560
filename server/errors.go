package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/storage"
)

// errorResponse is the JSON body of every failed request
type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// badRequest marks malformed request parameters
type badRequest struct {
	message string
}

func (e badRequest) Error() string { return e.message }

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(headerContentType, mimeTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps domain and storage errors onto HTTP responses
func statusFor(err error) (int, errorResponse) {
	var (
		custodyErr *custody.Error
		storageErr *storage.Error
		validation validator.ValidationErrors
		bad        badRequest
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, errorResponse{Error: "bad_request", Message: bad.message}
	case errors.As(err, &validation):
		fields := make(map[string]string, len(validation))
		for _, fe := range validation {
			fields[fe.Field()] = fe.Tag()
		}
		return http.StatusBadRequest, errorResponse{Error: "validation_failed", Message: "request body is invalid", Fields: fields}
	case errors.As(err, &custodyErr):
		status := http.StatusBadRequest
		switch custodyErr.Type {
		case custody.ErrDateBeforePatternStart:
			status = http.StatusUnprocessableEntity
		case custody.ErrConflictingAcceptedExceptions:
			status = http.StatusConflict
		}
		return status, errorResponse{Error: string(custodyErr.Type), Message: custodyErr.Message}
	case errors.As(err, &storageErr):
		status := http.StatusInternalServerError
		switch storageErr.Type {
		case storage.ErrNotFound:
			status = http.StatusNotFound
		case storage.ErrAlreadyExists, storage.ErrConflict:
			status = http.StatusConflict
		case storage.ErrInvalidInput:
			status = http.StatusBadRequest
		case storage.ErrPermissionDenied:
			status = http.StatusForbidden
		case storage.ErrStorageUnavailable:
			status = http.StatusServiceUnavailable
		}
		return status, errorResponse{Error: string(storageErr.Type), Message: storageErr.Message}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal", Message: "internal server error"}
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"path":  r.URL.Path,
			"error": err.Error(),
		}).Error("request error")
	}
	writeJSON(w, status, body)
}
