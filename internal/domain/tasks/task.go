package tasks

import (
	"context"
	"strings"
	"time"

	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/daterange"
	"hostdesk/internal/domain/shared/events"
	"hostdesk/internal/domain/shared/fault"
)

var (
	ErrNotFound         = fault.NotFound("tasks: not found")
	ErrInvalidWindow    = fault.Validation("tasks: end must be after start")
	ErrInvalidPriority  = fault.Validation("tasks: unknown priority")
	ErrInvalidKind      = fault.Validation("tasks: unknown maintenance kind")
	ErrInvalidState     = fault.InvalidOperation("tasks: invalid state transition")
	ErrConcurrentUpdate = fault.New(fault.KindConflict, "tasks: concurrent update detected")
)

type ID string

// Type separates the two task stores; both share one shape.
type Type string

const (
	TypeCleaning    Type = "cleaning"
	TypeMaintenance Type = "maintenance"
)

type Status string

const (
	StatusScheduled  Status = "Scheduled"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func ParsePriority(raw string) (Priority, error) {
	if raw == "" {
		return PriorityMedium, nil
	}
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if strings.EqualFold(raw, string(p)) {
			return p, nil
		}
	}
	return "", ErrInvalidPriority
}

// Kind distinguishes routine maintenance from renovation work.
type Kind string

const (
	KindMaintenance Kind = "maintenance"
	KindRenovation  Kind = "renovation"
)

func ParseKind(raw string) (Kind, error) {
	if raw == "" {
		return KindMaintenance, nil
	}
	for _, k := range []Kind{KindMaintenance, KindRenovation} {
		if strings.EqualFold(raw, string(k)) {
			return k, nil
		}
	}
	return "", ErrInvalidKind
}

type Task struct {
	ID         ID
	Type       Type
	PropertyID property.ID
	Window     daterange.DateRange
	Staff      string
	Status     Status

	// Cleaning only.
	Notes string

	// Maintenance only.
	Description string
	Priority    Priority
	Kind        Kind

	ConflictFlagged bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.Recorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Task, error)
	Save(ctx context.Context, t *Task) error
	// List returns tasks of one property, or of every property when id is empty.
	List(ctx context.Context, propertyID property.ID) ([]*Task, error)
	DeleteByProperty(ctx context.Context, propertyID property.ID) error
}

type CleaningParams struct {
	ID         ID
	PropertyID property.ID
	Start      time.Time
	End        time.Time
	Staff      string
	Notes      string
	CreatedAt  time.Time
}

type MaintenanceParams struct {
	ID          ID
	PropertyID  property.ID
	Start       time.Time
	End         time.Time
	Staff       string
	Description string
	Priority    Priority
	Kind        Kind
	CreatedAt   time.Time
}

func NewCleaning(params CleaningParams) (*Task, error) {
	window, err := daterange.New(params.Start, params.End)
	if err != nil {
		return nil, ErrInvalidWindow
	}
	t := newTask(params.ID, TypeCleaning, params.PropertyID, window, params.Staff, params.CreatedAt)
	t.Notes = strings.TrimSpace(params.Notes)
	t.Record(Scheduled{TaskID: t.ID, Type: t.Type, PropertyID: t.PropertyID, Start: window.Start, End: window.End, At: t.CreatedAt})
	return t, nil
}

func NewMaintenance(params MaintenanceParams) (*Task, error) {
	window, err := daterange.New(params.Start, params.End)
	if err != nil {
		return nil, ErrInvalidWindow
	}
	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	kind := params.Kind
	if kind == "" {
		kind = KindMaintenance
	}
	t := newTask(params.ID, TypeMaintenance, params.PropertyID, window, params.Staff, params.CreatedAt)
	t.Description = strings.TrimSpace(params.Description)
	t.Priority = priority
	t.Kind = kind
	t.Record(Scheduled{TaskID: t.ID, Type: t.Type, PropertyID: t.PropertyID, Start: window.Start, End: window.End, At: t.CreatedAt})
	return t, nil
}

func newTask(id ID, typ Type, propertyID property.ID, window daterange.DateRange, staff string, created time.Time) *Task {
	now := created.UTC()
	return &Task{
		ID:         id,
		Type:       typ,
		PropertyID: propertyID,
		Window:     window,
		Staff:      strings.TrimSpace(staff),
		Status:     StatusScheduled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Active tasks hold their window on the calendar.
func (t *Task) Active() bool {
	return t.Status == StatusScheduled || t.Status == StatusInProgress
}

func (t *Task) IsRenovation() bool {
	return t.Type == TypeMaintenance && t.Kind == KindRenovation
}

func (t *Task) Start(now time.Time) error {
	if t.Status != StatusScheduled {
		return ErrInvalidState
	}
	return t.transition(StatusInProgress, now)
}

func (t *Task) Complete(now time.Time) error {
	if !t.Active() {
		return ErrInvalidState
	}
	return t.transition(StatusCompleted, now)
}

func (t *Task) Cancel(now time.Time) error {
	if !t.Active() {
		return ErrInvalidState
	}
	return t.transition(StatusCancelled, now)
}

func (t *Task) Reschedule(start, end time.Time, now time.Time) error {
	if !t.Active() {
		return ErrInvalidState
	}
	window, err := daterange.New(start, end)
	if err != nil {
		return ErrInvalidWindow
	}
	t.Window = window
	t.ConflictFlagged = false
	t.UpdatedAt = now.UTC()
	t.Record(Rescheduled{TaskID: t.ID, Type: t.Type, PropertyID: t.PropertyID, Start: window.Start, End: window.End, At: t.UpdatedAt})
	return nil
}

// FlagConflict marks a task stored despite overlapping other commitments.
func (t *Task) FlagConflict(conflictIDs []string, now time.Time) {
	t.ConflictFlagged = true
	t.UpdatedAt = now.UTC()
	t.Record(ConflictFlagged{TaskID: t.ID, Type: t.Type, PropertyID: t.PropertyID, ConflictsWith: conflictIDs, At: t.UpdatedAt})
}

func (t *Task) transition(to Status, now time.Time) error {
	from := t.Status
	t.Status = to
	t.UpdatedAt = now.UTC()
	t.Record(StatusChanged{TaskID: t.ID, Type: t.Type, PropertyID: t.PropertyID, From: from, To: to, At: t.UpdatedAt})
	return nil
}

func (t *Task) Clone() *Task {
	out := *t
	out.Recorder = events.Recorder{}
	return &out
}
