package properties

import (
	"context"

	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/domain/availability"
	"hostdesk/internal/domain/property"
)

// SetStatusCommand is a manual override. It stands until the next calendar
// mutation or a forced reconcile.
type SetStatusCommand struct {
	PropertyID string
	Status     string
	support.Idempotency
}

func (SetStatusCommand) Key() string { return "property.set_status" }

func (SetStatusCommand) ResultPrototype() any { return &dto.Property{} }

type SetStatusHandler struct {
	support.Base
}

func (h *SetStatusHandler) Handle(ctx context.Context, cmd SetStatusCommand) (*dto.Property, error) {
	status, err := property.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	unit, err := support.Unit(ctx)
	if err != nil {
		return nil, err
	}
	p, err := support.LockProperty(ctx, unit, property.ID(cmd.PropertyID))
	if err != nil {
		return nil, err
	}
	tr := availability.ApplyStatusChange(p, status, property.SourceManual, h.Catalog, h.Now())
	if err := unit.Properties().Save(ctx, p); err != nil {
		return nil, err
	}
	h.LogTransition(ctx, p, tr)
	if err := h.Persist(ctx, unit, p); err != nil {
		return nil, err
	}
	derived, warning, err := h.View(ctx, unit, p)
	if err != nil {
		return nil, err
	}
	out := dto.MapPropertyView(p, derived, warning)
	return &out, nil
}
