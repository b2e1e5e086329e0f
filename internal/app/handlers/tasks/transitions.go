package tasks

import (
	"context"
	"time"

	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/domain/availability"
	"hostdesk/internal/domain/shared/fault"
	domaintasks "hostdesk/internal/domain/tasks"
)

type Action string

const (
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

type TransitionTaskCommand struct {
	Type   domaintasks.Type
	TaskID string
	Action Action
	support.Idempotency
}

func (TransitionTaskCommand) Key() string { return "task.transition" }

func (TransitionTaskCommand) ResultPrototype() any { return &dto.TaskResult{} }

type RescheduleTaskCommand struct {
	Type          domaintasks.Type
	TaskID        string
	Start         time.Time
	End           time.Time
	AllowConflict bool
	support.Idempotency
}

func (RescheduleTaskCommand) Key() string { return "task.reschedule" }

func (RescheduleTaskCommand) ResultPrototype() any { return &dto.TaskResult{} }

var errUnknownAction = fault.Validation("tasks: unknown action")

func (c TransitionTaskCommand) Validate() error {
	switch c.Action {
	case ActionStart, ActionComplete, ActionCancel:
		return nil
	}
	return errUnknownAction
}

type TransitionHandler struct {
	support.Base
}

func (h *TransitionHandler) Transition(ctx context.Context, cmd TransitionTaskCommand) (*dto.TaskResult, error) {
	return h.apply(ctx, cmd.Type, cmd.TaskID, func(task *domaintasks.Task, _ availability.Snapshot) ([]availability.Conflict, error) {
		now := h.Now()
		switch cmd.Action {
		case ActionStart:
			return nil, task.Start(now)
		case ActionComplete:
			return nil, task.Complete(now)
		case ActionCancel:
			return nil, task.Cancel(now)
		}
		return nil, errUnknownAction
	})
}

// Reschedule moves an active task, re-checking conflicts without counting
// the task against itself.
func (h *TransitionHandler) Reschedule(ctx context.Context, cmd RescheduleTaskCommand) (*dto.TaskResult, error) {
	return h.apply(ctx, cmd.Type, cmd.TaskID, func(task *domaintasks.Task, snap availability.Snapshot) ([]availability.Conflict, error) {
		if err := task.Reschedule(cmd.Start, cmd.End, h.Now()); err != nil {
			return nil, err
		}
		conflicts := availability.CheckConflict(snap, task.Window, string(task.ID))
		return conflicts, admit(ctx, h.Base, task, conflicts, cmd.AllowConflict)
	})
}

func (h *TransitionHandler) apply(ctx context.Context, typ domaintasks.Type, id string, fn func(task *domaintasks.Task, snap availability.Snapshot) ([]availability.Conflict, error)) (*dto.TaskResult, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := Repository(unit, typ)
	if err != nil {
		return nil, err
	}
	found, err := repo.ByID(ctx, domaintasks.ID(id))
	if err != nil {
		return nil, err
	}
	p, err := support.LockProperty(ctx, unit, found.PropertyID)
	if err != nil {
		return nil, err
	}
	task, err := repo.ByID(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	snap, err := support.LoadSnapshot(ctx, unit, p.ID)
	if err != nil {
		return nil, err
	}
	conflicts, err := fn(task, snap)
	if err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, task); err != nil {
		return nil, err
	}
	if _, err := h.Refresh(ctx, unit, p, withTask(snap, task)); err != nil {
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
