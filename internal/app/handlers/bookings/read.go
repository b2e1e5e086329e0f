package bookings

import (
	"context"

	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/uow"
	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
)

type GetBookingQuery struct {
	BookingID string
}

func (GetBookingQuery) Key() string { return "booking.get" }

type ListBookingsQuery struct {
	PropertyID string
}

func (ListBookingsQuery) Key() string { return "booking.list" }

type ReadHandler struct {
	Factory uow.Factory
}

func (h *ReadHandler) Get(ctx context.Context, q GetBookingQuery) (*dto.Booking, error) {
	var out dto.Booking
	err := uow.Run(ctx, h.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, booking.ID(q.BookingID))
		if err != nil {
			return err
		}
		out = dto.MapBooking(b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *ReadHandler) List(ctx context.Context, q ListBookingsQuery) ([]dto.Booking, error) {
	var out []dto.Booking
	err := uow.Run(ctx, h.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		list, err := unit.Bookings().List(ctx, property.ID(q.PropertyID))
		if err != nil {
			return err
		}
		out = make([]dto.Booking, len(list))
		for i, b := range list {
			out[i] = dto.MapBooking(b)
		}
		return nil
	})
	return out, err
}
