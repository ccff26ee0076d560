package custody

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Parent identifies one of the two co-parents of a family.
type Parent string

const (
	ParentA Parent = "parent_a"
	ParentB Parent = "parent_b"
)

// Valid reports whether p is one of the two known parents.
func (p Parent) Valid() bool {
	return p == ParentA || p == ParentB
}

// Other returns the co-parent of p.
func (p Parent) Other() Parent {
	if p == ParentA {
		return ParentB
	}
	return ParentA
}

// PatternType selects the recurring parenting-time rule.
type PatternType string

const (
	PatternAlternatingWeek PatternType = "alternating_week"
	Pattern2255            PatternType = "2-2-5-5"
	Pattern223             PatternType = "2-2-3"
	PatternCustom          PatternType = "custom"
)

// Valid reports whether t is a known pattern type.
func (t PatternType) Valid() bool {
	switch t {
	case PatternAlternatingWeek, Pattern2255, Pattern223, PatternCustom:
		return true
	}
	return false
}

// CustodyPattern is a family's recurring custody rule. Patterns are replaced,
// never edited: a schedule change creates a new pattern and deactivates the old one.
type CustodyPattern struct {
	ID       uuid.UUID
	FamilyID uuid.UUID
	Type     PatternType
	// StartDate is the calendar day the sequence is anchored at. Time of day is ignored.
	StartDate      time.Time
	StartingParent Parent
	// CustomSequence is only used by PatternCustom.
	CustomSequence []Parent
	IsActive       bool
	CreatedAt      time.Time
}

// Reason explains why an exception overrides the base pattern.
type Reason string

const (
	ReasonVacation Reason = "vacation"
	ReasonSickness Reason = "sickness"
	ReasonSwap     Reason = "swap"
	ReasonHoliday  Reason = "holiday"
	ReasonOther    Reason = "other"
)

// Valid reports whether r is a known reason.
func (r Reason) Valid() bool {
	switch r {
	case ReasonVacation, ReasonSickness, ReasonSwap, ReasonHoliday, ReasonOther:
		return true
	}
	return false
}

// Status is the agreement state of an exception.
type Status string

const (
	StatusProposed Status = "proposed"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusProposed, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// CustodyException overrides the base pattern on a single calendar day.
// Only accepted exceptions affect the calendar.
type CustodyException struct {
	ID             uuid.UUID
	FamilyID       uuid.UUID
	Date           time.Time
	OriginalParent Parent
	NewParent      Parent
	Reason         Reason
	Note           string
	Status         Status
	// ProposedBy is the parent who created the exception; the other parent responds.
	ProposedBy  Parent
	CreatedAt   time.Time
	RespondedAt *time.Time
}

// DayAssignment is the resolved custody for one calendar day.
type DayAssignment struct {
	Date time.Time
	// Parent is None for days before the pattern start.
	Parent      mo.Option[Parent]
	IsException bool
	// Reason and ExceptionID are set only when IsException is true.
	Reason      Reason
	ExceptionID uuid.UUID
}

// Assigned reports whether the day has a custody holder.
func (d DayAssignment) Assigned() bool {
	return d.Parent.IsPresent()
}

// Handover marks a day on which custody passes from one parent to the other.
type Handover struct {
	Date        time.Time
	From        Parent
	To          Parent
	IsException bool
}
