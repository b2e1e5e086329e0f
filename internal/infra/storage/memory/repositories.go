package memory

import (
	"context"
	"sort"

	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/tasks"
)

type propertyRepo struct{ u *Unit }

func (r propertyRepo) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	return r.u.properties.get(ctx, id)
}

// List returns properties ordered by creation time, then id.
func (r propertyRepo) List(ctx context.Context) ([]*property.Property, error) {
	out, err := r.u.properties.list(ctx, "")
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r propertyRepo) Save(ctx context.Context, p *property.Property) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	return r.u.properties.save(ctx, p)
}

func (r propertyRepo) Delete(ctx context.Context, id property.ID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	return r.u.properties.remove(ctx, id)
}

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(ctx context.Context, id booking.ID) (*booking.Booking, error) {
	return r.u.bookings.get(ctx, id)
}

func (r bookingRepo) Save(ctx context.Context, b *booking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	return r.u.bookings.save(ctx, b)
}

func (r bookingRepo) List(ctx context.Context, propertyID property.ID) ([]*booking.Booking, error) {
	out, err := r.u.bookings.list(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Stay.Start.Equal(out[j].Stay.Start) {
			return out[i].Stay.Start.Before(out[j].Stay.Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r bookingRepo) DeleteByProperty(ctx context.Context, propertyID property.ID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	return r.u.bookings.removeOwned(ctx, propertyID)
}

type taskRepo struct {
	u     *Unit
	table *staged[tasks.ID, *tasks.Task]
}

func (r taskRepo) ByID(ctx context.Context, id tasks.ID) (*tasks.Task, error) {
	return r.table.get(ctx, id)
}

func (r taskRepo) Save(ctx context.Context, t *tasks.Task) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	return r.table.save(ctx, t)
}

func (r taskRepo) List(ctx context.Context, propertyID property.ID) ([]*tasks.Task, error) {
	out, err := r.table.list(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Window.Start.Equal(out[j].Window.Start) {
			return out[i].Window.Start.Before(out[j].Window.Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r taskRepo) DeleteByProperty(ctx context.Context, propertyID property.ID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	return r.table.removeOwned(ctx, propertyID)
}
