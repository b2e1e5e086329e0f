package tasks

import (
	"time"

	"hostdesk/internal/domain/property"
)

type Scheduled struct {
	TaskID     ID          `json:"task_id"`
	Type       Type        `json:"type"`
	PropertyID property.ID `json:"property_id"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	At         time.Time   `json:"at"`
}

func (e Scheduled) EventName() string     { return "task.scheduled" }
func (e Scheduled) AggregateID() string   { return string(e.TaskID) }
func (e Scheduled) OccurredAt() time.Time { return e.At }
func (e Scheduled) PropertyKey() string   { return string(e.PropertyID) }

type Rescheduled struct {
	TaskID     ID          `json:"task_id"`
	Type       Type        `json:"type"`
	PropertyID property.ID `json:"property_id"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	At         time.Time   `json:"at"`
}

func (e Rescheduled) EventName() string     { return "task.rescheduled" }
func (e Rescheduled) AggregateID() string   { return string(e.TaskID) }
func (e Rescheduled) OccurredAt() time.Time { return e.At }
func (e Rescheduled) PropertyKey() string   { return string(e.PropertyID) }

type StatusChanged struct {
	TaskID     ID          `json:"task_id"`
	Type       Type        `json:"type"`
	PropertyID property.ID `json:"property_id"`
	From       Status      `json:"from"`
	To         Status      `json:"to"`
	At         time.Time   `json:"at"`
}

func (e StatusChanged) EventName() string     { return "task.status_changed" }
func (e StatusChanged) AggregateID() string   { return string(e.TaskID) }
func (e StatusChanged) OccurredAt() time.Time { return e.At }
func (e StatusChanged) PropertyKey() string   { return string(e.PropertyID) }

type ConflictFlagged struct {
	TaskID        ID          `json:"task_id"`
	Type          Type        `json:"type"`
	PropertyID    property.ID `json:"property_id"`
	ConflictsWith []string    `json:"conflicts_with"`
	At            time.Time   `json:"at"`
}

func (e ConflictFlagged) EventName() string     { return "task.conflict_flagged" }
func (e ConflictFlagged) AggregateID() string   { return string(e.TaskID) }
func (e ConflictFlagged) OccurredAt() time.Time { return e.At }
func (e ConflictFlagged) PropertyKey() string   { return string(e.PropertyID) }
