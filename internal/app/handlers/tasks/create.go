package tasks

import (
	"context"
	"log/slog"
	"time"

	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/app/uow"
	"hostdesk/internal/domain/availability"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/fault"
	domaintasks "hostdesk/internal/domain/tasks"
)

var (
	errPropertyRequired = fault.Validation("tasks: property id is required")
	errUnknownType      = fault.Validation("tasks: unknown task type")
)

type CreateCleaningTaskCommand struct {
	PropertyID    string
	Start         time.Time
	End           time.Time
	Staff         string
	Notes         string
	AllowConflict bool
	support.Idempotency
}

func (CreateCleaningTaskCommand) Key() string { return "task.create_cleaning" }

func (CreateCleaningTaskCommand) ResultPrototype() any { return &dto.TaskResult{} }

func (c CreateCleaningTaskCommand) Validate() error {
	if c.PropertyID == "" {
		return errPropertyRequired
	}
	return nil
}

type CreateMaintenanceTaskCommand struct {
	PropertyID    string
	Start         time.Time
	End           time.Time
	Staff         string
	Description   string
	Priority      string
	Kind          string
	AllowConflict bool
	support.Idempotency
}

func (CreateMaintenanceTaskCommand) Key() string { return "task.create_maintenance" }

func (CreateMaintenanceTaskCommand) ResultPrototype() any { return &dto.TaskResult{} }

func (c CreateMaintenanceTaskCommand) Validate() error {
	if c.PropertyID == "" {
		return errPropertyRequired
	}
	return nil
}

// CreateHandler schedules cleaning and maintenance tasks. Overlaps are
// rejected unless the caller accepts them, in which case the task is flagged.
type CreateHandler struct {
	support.Base
}

func (h *CreateHandler) Cleaning(ctx context.Context, cmd CreateCleaningTaskCommand) (*dto.TaskResult, error) {
	return h.create(ctx, property.ID(cmd.PropertyID), cmd.AllowConflict, func(p *property.Property) (*domaintasks.Task, error) {
		return domaintasks.NewCleaning(domaintasks.CleaningParams{
			ID:         domaintasks.ID(h.ID()),
			PropertyID: p.ID,
			Start:      cmd.Start,
			End:        cmd.End,
			Staff:      cmd.Staff,
			Notes:      cmd.Notes,
			CreatedAt:  h.Now(),
		})
	})
}

func (h *CreateHandler) Maintenance(ctx context.Context, cmd CreateMaintenanceTaskCommand) (*dto.TaskResult, error) {
	priority, err := domaintasks.ParsePriority(cmd.Priority)
	if err != nil {
		return nil, err
	}
	kind, err := domaintasks.ParseKind(cmd.Kind)
	if err != nil {
		return nil, err
	}
	return h.create(ctx, property.ID(cmd.PropertyID), cmd.AllowConflict, func(p *property.Property) (*domaintasks.Task, error) {
		return domaintasks.NewMaintenance(domaintasks.MaintenanceParams{
			ID:          domaintasks.ID(h.ID()),
			PropertyID:  p.ID,
			Start:       cmd.Start,
			End:         cmd.End,
			Staff:       cmd.Staff,
			Description: cmd.Description,
			Priority:    priority,
			Kind:        kind,
			CreatedAt:   h.Now(),
		})
	})
}

func (h *CreateHandler) create(ctx context.Context, id property.ID, allowConflict bool, build func(p *property.Property) (*domaintasks.Task, error)) (*dto.TaskResult, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return nil, err
	}
	p, err := support.LockProperty(ctx, unit, id)
	if err != nil {
		return nil, err
	}
	task, err := build(p)
	if err != nil {
		return nil, err
	}
	snap, err := support.LoadSnapshot(ctx, unit, p.ID)
	if err != nil {
		return nil, err
	}
	conflicts := availability.CheckConflict(snap, task.Window, "")
	if err := admit(ctx, h.Base, task, conflicts, allowConflict); err != nil {
		return nil, err
	}
	repo, err := Repository(unit, task.Type)
	if err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, task); err != nil {
		return nil, err
	}
	snap = withTask(snap, task)
	if _, err := h.Refresh(ctx, unit, p, snap); err != nil {
		return nil, err
	}
	if err := h.Persist(ctx, unit, task, p); err != nil {
		return nil, err
	}
	return &dto.TaskResult{
		Task:      dto.MapTask(task),
		Property:  dto.MapPropertyView(p, p.Status, nil),
		Conflicts: dto.MapConflicts(conflicts),
	}, nil
}

// admit applies the task conflict policy.
func admit(ctx context.Context, base support.Base, task *domaintasks.Task, conflicts []availability.Conflict, allow bool) error {
	if len(conflicts) == 0 {
		return nil
	}
	if !allow {
		return &availability.ConflictError{Conflicts: conflicts}
	}
	task.FlagConflict(availability.ConflictIDs(conflicts), base.Now())
	base.Log().WarnContext(ctx, "task stored with conflicts",
		slog.String("task_id", string(task.ID)),
		slog.String("property_id", string(task.PropertyID)),
		slog.Int("conflicts", len(conflicts)))
	return nil
}

// Repository picks the store matching the task type.
func Repository(unit uow.UnitOfWork, typ domaintasks.Type) (domaintasks.Repository, error) {
	switch typ {
	case domaintasks.TypeCleaning:
		return unit.Cleaning(), nil
	case domaintasks.TypeMaintenance:
		return unit.Maintenance(), nil
	}
	return nil, errUnknownType
}

// withTask replaces or appends task in the snapshot.
func withTask(snap availability.Snapshot, task *domaintasks.Task) availability.Snapshot {
	list := &snap.Cleaning
	if task.Type == domaintasks.TypeMaintenance {
		list = &snap.Maintenance
	}
	for i, t := range *list {
		if t.ID == task.ID {
			(*list)[i] = task
			return snap
		}
	}
	*list = append(*list, task)
	return snap
}
