package bookings

import (
	"context"

	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/domain/booking"
)

type ConfirmBookingCommand struct {
	BookingID string
	support.Idempotency
}

func (ConfirmBookingCommand) Key() string { return "booking.confirm" }

func (ConfirmBookingCommand) ResultPrototype() any { return &dto.BookingResult{} }

type CancelBookingCommand struct {
	BookingID string
	Reason    string
	support.Idempotency
}

func (CancelBookingCommand) Key() string { return "booking.cancel" }

func (CancelBookingCommand) ResultPrototype() any { return &dto.BookingResult{} }

type CompleteBookingCommand struct {
	BookingID string
	support.Idempotency
}

func (CompleteBookingCommand) Key() string { return "booking.complete" }

func (CompleteBookingCommand) ResultPrototype() any { return &dto.BookingResult{} }

// TransitionHandler moves bookings through their lifecycle and refreshes the
// property status afterwards.
type TransitionHandler struct {
	support.Base
}

func (h *TransitionHandler) Confirm(ctx context.Context, cmd ConfirmBookingCommand) (*dto.BookingResult, error) {
	return h.apply(ctx, cmd.BookingID, func(b *booking.Booking) error {
		return b.Confirm(h.Now())
	})
}

func (h *TransitionHandler) Cancel(ctx context.Context, cmd CancelBookingCommand) (*dto.BookingResult, error) {
	return h.apply(ctx, cmd.BookingID, func(b *booking.Booking) error {
		return b.Cancel(cmd.Reason, h.Now())
	})
}

func (h *TransitionHandler) Complete(ctx context.Context, cmd CompleteBookingCommand) (*dto.BookingResult, error) {
	return h.apply(ctx, cmd.BookingID, func(b *booking.Booking) error {
		return b.Complete(h.Now())
	})
}

func (h *TransitionHandler) apply(ctx context.Context, id string, fn func(b *booking.Booking) error) (*dto.BookingResult, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return nil, err
	}
	found, err := unit.Bookings().ByID(ctx, booking.ID(id))
	if err != nil {
		return nil, err
	}
	p, err := support.LockProperty(ctx, unit, found.PropertyID)
	if err != nil {
		return nil, err
	}
	// Re-read under the lock; the first read only located the property.
	b, err := unit.Bookings().ByID(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	snap, err := support.LoadSnapshot(ctx, unit, p.ID)
	if err != nil {
		return nil, err
	}
	if _, err := h.Refresh(ctx, unit, p, snap); err != nil {
		return nil, err
	}
	if err := h.Persist(ctx, unit, b, p); err != nil {
		return nil, err
	}
	return &dto.BookingResult{Booking: dto.MapBooking(b), Property: dto.MapPropertyView(p, p.Status, nil)}, nil
}
