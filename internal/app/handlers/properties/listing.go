package properties

import (
	"context"
	"log/slog"

	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/fault"
)

var errPropertyRequired = fault.Validation("properties: property id is required")

// UpdateListingCommand applies the present fields in the order auto-list,
// active, platforms so a single request can activate and select.
type UpdateListingCommand struct {
	PropertyID         string
	IsActivelyListed   *bool
	ListedOn           *[]string
	AutoListWhenVacant *bool
	support.Idempotency
}

func (UpdateListingCommand) Key() string { return "property.update_listing" }

func (UpdateListingCommand) ResultPrototype() any { return &dto.Property{} }

func (c UpdateListingCommand) Validate() error {
	if c.PropertyID == "" {
		return errPropertyRequired
	}
	return nil
}

type TogglePlatformCommand struct {
	PropertyID string
	Platform   string
	support.Idempotency
}

func (TogglePlatformCommand) Key() string { return "property.toggle_platform" }

func (TogglePlatformCommand) ResultPrototype() any { return &dto.Property{} }

type SelectAllPlatformsCommand struct {
	PropertyID string
	support.Idempotency
}

func (SelectAllPlatformsCommand) Key() string { return "property.select_all_platforms" }

func (SelectAllPlatformsCommand) ResultPrototype() any { return &dto.Property{} }

type DeselectAllPlatformsCommand struct {
	PropertyID string
	support.Idempotency
}

func (DeselectAllPlatformsCommand) Key() string { return "property.deselect_all_platforms" }

func (DeselectAllPlatformsCommand) ResultPrototype() any { return &dto.Property{} }

// ListingHandler serves every listing controller command.
type ListingHandler struct {
	support.Base
}

func (h *ListingHandler) UpdateListing(ctx context.Context, cmd UpdateListingCommand) (*dto.Property, error) {
	return h.mutate(ctx, cmd.PropertyID, func(p *property.Property) error {
		now := h.Now()
		if cmd.AutoListWhenVacant != nil {
			p.SetAutoListWhenVacant(*cmd.AutoListWhenVacant, now)
		}
		if cmd.IsActivelyListed != nil {
			p.SetActive(*cmd.IsActivelyListed, now)
		}
		if cmd.ListedOn != nil {
			return p.SetPlatforms(h.Catalog, *cmd.ListedOn, now)
		}
		return nil
	})
}

func (h *ListingHandler) TogglePlatform(ctx context.Context, cmd TogglePlatformCommand) (*dto.Property, error) {
	return h.mutate(ctx, cmd.PropertyID, func(p *property.Property) error {
		dropped, err := p.TogglePlatform(h.Catalog, cmd.Platform, h.Now())
		if len(dropped) > 0 {
			h.Log().WarnContext(ctx, "listing dropped platforms missing from the catalogue",
				slog.String("property_id", string(p.ID)),
				slog.Any("platforms", dropped))
		}
		return err
	})
}

func (h *ListingHandler) SelectAll(ctx context.Context, cmd SelectAllPlatformsCommand) (*dto.Property, error) {
	return h.mutate(ctx, cmd.PropertyID, func(p *property.Property) error {
		return p.SelectAllPlatforms(h.Catalog, h.Now())
	})
}

func (h *ListingHandler) DeselectAll(ctx context.Context, cmd DeselectAllPlatformsCommand) (*dto.Property, error) {
	return h.mutate(ctx, cmd.PropertyID, func(p *property.Property) error {
		return p.DeselectAllPlatforms(h.Now())
	})
}

func (h *ListingHandler) mutate(ctx context.Context, id string, fn func(p *property.Property) error) (*dto.Property, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return nil, err
	}
	p, err := support.LockProperty(ctx, unit, property.ID(id))
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := unit.Properties().Save(ctx, p); err != nil {
		return nil, err
	}
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
