package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/tasks"
)

// saveVersioned inserts a new row or updates the row still at the version
// the caller loaded. Either way the caller's version moves to stored+1.
func saveVersioned(db *gorm.DB, model any, id string, version int64, conflict error) error {
	if version == 0 {
		err := db.Create(model).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return conflict
		}
		return err
	}
	res := db.Model(model).Where("id = ? AND version = ?", id, version).Select("*").Updates(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflict
	}
	return nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

type propertyRepo struct{ u *Unit }

func (r propertyRepo) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	var m propertyModel
	if err := r.u.db(ctx).First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err, property.ErrNotFound)
	}
	return toDomainProperty(m), nil
}

func (r propertyRepo) List(ctx context.Context) ([]*property.Property, error) {
	var rows []propertyModel
	if err := r.u.db(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*property.Property, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainProperty(m))
	}
	return out, nil
}

func (r propertyRepo) Save(ctx context.Context, p *property.Property) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	m := toPropertyModel(p)
	m.Version = p.Version + 1
	if err := saveVersioned(r.u.db(ctx), &m, m.ID, p.Version, property.ErrConcurrentUpdate); err != nil {
		return err
	}
	p.Version = m.Version
	return nil
}

func (r propertyRepo) Delete(ctx context.Context, id property.ID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	res := r.u.db(ctx).Delete(&propertyModel{}, "id = ?", string(id))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return property.ErrNotFound
	}
	return nil
}

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(ctx context.Context, id booking.ID) (*booking.Booking, error) {
	var m bookingModel
	if err := r.u.db(ctx).First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err, booking.ErrNotFound)
	}
	return toDomainBooking(m), nil
}

func (r bookingRepo) Save(ctx context.Context, b *booking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	m := toBookingModel(b)
	m.Version = b.Version + 1
	if err := saveVersioned(r.u.db(ctx), &m, m.ID, b.Version, booking.ErrConcurrentUpdate); err != nil {
		return err
	}
	b.Version = m.Version
	return nil
}

func (r bookingRepo) List(ctx context.Context, propertyID property.ID) ([]*booking.Booking, error) {
	q := r.u.db(ctx).Order("check_in, id")
	if propertyID != "" {
		q = q.Where("property_id = ?", string(propertyID))
	}
	var rows []bookingModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*booking.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainBooking(m))
	}
	return out, nil
}

func (r bookingRepo) DeleteByProperty(ctx context.Context, propertyID property.ID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	return r.u.db(ctx).Where("property_id = ?", string(propertyID)).Delete(&bookingModel{}).Error
}

type taskRepo struct {
	u     *Unit
	table string
	typ   tasks.Type
}

func (r taskRepo) scope(ctx context.Context) *gorm.DB {
	return r.u.db(ctx).Table(r.table)
}

func (r taskRepo) ByID(ctx context.Context, id tasks.ID) (*tasks.Task, error) {
	var m taskModel
	if err := r.scope(ctx).First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err, tasks.ErrNotFound)
	}
	return toDomainTask(m, r.typ), nil
}

func (r taskRepo) Save(ctx context.Context, t *tasks.Task) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	m := toTaskModel(t)
	m.Version = t.Version + 1
	if err := saveVersioned(r.scope(ctx), &m, m.ID, t.Version, tasks.ErrConcurrentUpdate); err != nil {
		return err
	}
	t.Version = m.Version
	return nil
}

func (r taskRepo) List(ctx context.Context, propertyID property.ID) ([]*tasks.Task, error) {
	q := r.scope(ctx).Order("starts_at, id")
	if propertyID != "" {
		q = q.Where("property_id = ?", string(propertyID))
	}
	var rows []taskModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*tasks.Task, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainTask(m, r.typ))
	}
	return out, nil
}

func (r taskRepo) DeleteByProperty(ctx context.Context, propertyID property.ID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	return r.scope(ctx).Where("property_id = ?", string(propertyID)).Delete(&taskModel{}).Error
}
