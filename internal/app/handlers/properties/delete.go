package properties

import (
	"context"

	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/domain/property"
)

type DeletePropertyCommand struct {
	PropertyID string
	Cascade    bool
	support.Idempotency
}

func (DeletePropertyCommand) Key() string { return "property.delete" }

func (DeletePropertyCommand) ResultPrototype() any { return &dto.DeleteResult{} }

type DeletePropertyHandler struct {
	support.Base
}

// Handle rejects deletion while bookings or tasks reference the property,
// unless cascade removes them too.
func (h *DeletePropertyHandler) Handle(ctx context.Context, cmd DeletePropertyCommand) (*dto.DeleteResult, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return nil, err
	}
	id := property.ID(cmd.PropertyID)
	p, err := support.LockProperty(ctx, unit, id)
	if err != nil {
		return nil, err
	}
	snap, err := support.LoadSnapshot(ctx, unit, id)
	if err != nil {
		return nil, err
	}
	taskCount := len(snap.Cleaning) + len(snap.Maintenance)
	if (len(snap.Bookings) > 0 || taskCount > 0) && !cmd.Cascade {
		return nil, property.ErrReferenced
	}
	if cmd.Cascade {
		if err := unit.Bookings().DeleteByProperty(ctx, id); err != nil {
			return nil, err
		}
		if err := unit.Cleaning().DeleteByProperty(ctx, id); err != nil {
			return nil, err
		}
		if err := unit.Maintenance().DeleteByProperty(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := unit.Properties().Delete(ctx, id); err != nil {
		return nil, err
	}
	p.MarkDeleted(cmd.Cascade, h.Now())
	if err := h.Persist(ctx, unit, p); err != nil {
		return nil, err
	}
	return &dto.DeleteResult{PropertyID: cmd.PropertyID, Cascade: cmd.Cascade, Bookings: len(snap.Bookings), Tasks: taskCount}, nil
}
