package properties

import (
	"context"

	"hostdesk/internal/app/commands"
	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/app/middleware"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/money"
)

type CreatePropertyCommand struct {
	Name               string
	Location           string
	DailyRate          int64
	Currency           string
	Bedrooms           int
	Bathrooms          int
	MaxGuests          int
	AutoListWhenVacant bool
	support.Idempotency
}

func (CreatePropertyCommand) Key() string { return "property.create" }

func (CreatePropertyCommand) ResultPrototype() any { return &dto.Property{} }

type CreatePropertyHandler struct {
	support.Base
	DefaultCurrency string
}

func (h *CreatePropertyHandler) Handle(ctx context.Context, cmd CreatePropertyCommand) (*dto.Property, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return nil, err
	}
	currency := cmd.Currency
	if currency == "" {
		currency = h.DefaultCurrency
	}
	p, err := property.New(property.CreateParams{
		ID:                 property.ID(h.ID()),
		Name:               cmd.Name,
		Location:           cmd.Location,
		DailyRate:          money.Money{Amount: cmd.DailyRate, Currency: currency},
		Bedrooms:           cmd.Bedrooms,
		Bathrooms:          cmd.Bathrooms,
		MaxGuests:          cmd.MaxGuests,
		AutoListWhenVacant: cmd.AutoListWhenVacant,
		CreatedAt:          h.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Properties().Save(ctx, p); err != nil {
		return nil, err
	}
	if err := h.Persist(ctx, unit, p); err != nil {
		return nil, err
	}
	out := dto.MapPropertyView(p, p.Status, nil)
	return &out, nil
}

var (
	_ commands.Handler[CreatePropertyCommand, *dto.Property] = (*CreatePropertyHandler)(nil)
	_ middleware.IdempotentCommand                          = CreatePropertyCommand{}
)
