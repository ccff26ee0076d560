package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
)

const maxBodyBytes = 1 << 16

type createPatternRequest struct {
	Type           string   `json:"type" validate:"required,oneof=alternating_week 2-2-5-5 2-2-3 custom"`
	StartDate      string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	StartingParent string   `json:"starting_parent" validate:"omitempty,parent"`
	CustomSequence []string `json:"custom_sequence" validate:"omitempty,max=90,dive,parent"`
}

type proposeExceptionRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	NewParent string `json:"new_parent" validate:"required,parent"`
	Reason    string `json:"reason" validate:"omitempty,oneof=vacation sickness swap holiday other"`
	Note      string `json:"note" validate:"max=500"`
}

func newValidator() (*validator.Validate, error) {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	err := v.RegisterValidation("parent", func(fl validator.FieldLevel) bool {
		return custody.Parent(fl.Field().String()).Valid()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register parent validation: %w", err)
	}
	return v, nil
}

// decodeBody reads a JSON body into dst and validates it
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest{message: "invalid JSON body: " + err.Error()}
	}
	return s.validate.Struct(dst)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, badRequest{message: "invalid " + name}
	}
	return id, nil
}

// dateQuery parses an ISO date query parameter, returning def if it is absent
func dateQuery(r *http.Request, name string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	d, err := dateutil.ParseDate(raw)
	if err != nil {
		return time.Time{}, badRequest{message: "invalid " + name + ": expected YYYY-MM-DD"}
	}
	return d, nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest{message: "invalid " + name + ": expected an integer"}
	}
	return n, nil
}

func (s *Server) formatter(r *http.Request) (*dateutil.Formatter, error) {
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = s.locale
	}
	f, err := dateutil.NewFormatter(locale)
	if err != nil {
		return nil, badRequest{message: err.Error()}
	}
	return f, nil
}

type dayResponse struct {
	Date        string  `json:"date"`
	Label       string  `json:"label"`
	Weekday     string  `json:"weekday"`
	Parent      *string `json:"parent"`
	IsException bool    `json:"is_exception"`
	Reason      string  `json:"reason,omitempty"`
	ExceptionID string  `json:"exception_id,omitempty"`
}

type calendarResponse struct {
	FamilyID string        `json:"family_id"`
	Start    string        `json:"start"`
	End      string        `json:"end"`
	Locale   string        `json:"locale"`
	Title    string        `json:"title,omitempty"`
	Days     []dayResponse `json:"days"`
}

func newCalendarResponse(familyID uuid.UUID, days []custody.DayAssignment, f *dateutil.Formatter) calendarResponse {
	resp := calendarResponse{
		FamilyID: familyID.String(),
		Locale:   f.Locale(),
		Days:     make([]dayResponse, 0, len(days)),
	}
	if len(days) > 0 {
		resp.Start = dateutil.FormatDate(days[0].Date)
		resp.End = dateutil.FormatDate(days[len(days)-1].Date)
	}
	for _, d := range days {
		day := dayResponse{
			Date:        dateutil.FormatDate(d.Date),
			Label:       f.FormatDay(d.Date),
			Weekday:     f.WeekdayShort(d.Date),
			IsException: d.IsException,
		}
		if parent, ok := d.Parent.Get(); ok {
			p := string(parent)
			day.Parent = &p
		}
		if d.IsException {
			day.Reason = string(d.Reason)
			day.ExceptionID = d.ExceptionID.String()
		}
		resp.Days = append(resp.Days, day)
	}
	return resp
}

type handoverResponse struct {
	Date        string `json:"date"`
	Label       string `json:"label"`
	From        string `json:"from"`
	To          string `json:"to"`
	IsException bool   `json:"is_exception"`
}

type patternResponse struct {
	ID             string   `json:"id"`
	FamilyID       string   `json:"family_id"`
	Type           string   `json:"type"`
	StartDate      string   `json:"start_date"`
	StartingParent string   `json:"starting_parent,omitempty"`
	CustomSequence []string `json:"custom_sequence,omitempty"`
	IsActive       bool     `json:"is_active"`
	CreatedAt      string   `json:"created_at"`
}

func newPatternResponse(p *custody.CustodyPattern) patternResponse {
	resp := patternResponse{
		ID:             p.ID.String(),
		FamilyID:       p.FamilyID.String(),
		Type:           string(p.Type),
		StartDate:      dateutil.FormatDate(p.StartDate),
		StartingParent: string(p.StartingParent),
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, parent := range p.CustomSequence {
		resp.CustomSequence = append(resp.CustomSequence, string(parent))
	}
	return resp
}

type exceptionResponse struct {
	ID             string  `json:"id"`
	FamilyID       string  `json:"family_id"`
	Date           string  `json:"date"`
	OriginalParent string  `json:"original_parent"`
	NewParent      string  `json:"new_parent"`
	Reason         string  `json:"reason"`
	Note           string  `json:"note,omitempty"`
	Status         string  `json:"status"`
	ProposedBy     string  `json:"proposed_by"`
	CreatedAt      string  `json:"created_at"`
	RespondedAt    *string `json:"responded_at"`
}

func newExceptionResponse(ex *custody.CustodyException) exceptionResponse {
	resp := exceptionResponse{
		ID:             ex.ID.String(),
		FamilyID:       ex.FamilyID.String(),
		Date:           dateutil.FormatDate(ex.Date),
		OriginalParent: string(ex.OriginalParent),
		NewParent:      string(ex.NewParent),
		Reason:         string(ex.Reason),
		Note:           ex.Note,
		Status:         string(ex.Status),
		ProposedBy:     string(ex.ProposedBy),
		CreatedAt:      ex.CreatedAt.UTC().Format(time.RFC3339),
	}
	if ex.RespondedAt != nil {
		t := ex.RespondedAt.UTC().Format(time.RFC3339)
		resp.RespondedAt = &t
	}
	return resp
}
