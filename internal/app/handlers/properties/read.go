package properties

import (
	"context"

	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/app/uow"
	"hostdesk/internal/domain/property"
)

type GetPropertyQuery struct {
	PropertyID string
}

func (GetPropertyQuery) Key() string { return "property.get" }

type ListPropertiesQuery struct{}

func (ListPropertiesQuery) Key() string { return "property.list" }

// ReadHandler answers property reads. Every view carries the derived status
// and an integrity warning when the stored status disagrees.
type ReadHandler struct {
	support.Base
	Factory uow.Factory
}

func (h *ReadHandler) Get(ctx context.Context, q GetPropertyQuery) (*dto.Property, error) {
	var out dto.Property
	err := uow.Run(ctx, h.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		p, err := unit.Properties().ByID(ctx, property.ID(q.PropertyID))
		if err != nil {
			return err
		}
		derived, warning, err := h.View(ctx, unit, p)
		if err != nil {
			return err
		}
		out = dto.MapPropertyView(p, derived, warning)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *ReadHandler) List(ctx context.Context, _ ListPropertiesQuery) ([]dto.Property, error) {
	var out []dto.Property
	err := uow.Run(ctx, h.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		all, err := unit.Properties().List(ctx)
		if err != nil {
			return err
		}
		out = make([]dto.Property, 0, len(all))
		for _, p := range all {
			derived, warning, err := h.View(ctx, unit, p)
			if err != nil {
				return err
			}
			out = append(out, dto.MapPropertyView(p, derived, warning))
		}
		return nil
	})
	return out, err
}
