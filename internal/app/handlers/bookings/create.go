package bookings

import (
	"context"
	"time"

	"hostdesk/internal/app/commands"
	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/app/middleware"
	"hostdesk/internal/domain/availability"
	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/fault"
)

var errPropertyRequired = fault.Validation("bookings: property id is required")

type CreateBookingCommand struct {
	PropertyID    string
	GuestName     string
	GuestEmail    string
	GuestPhone    string
	CheckIn       time.Time
	CheckOut      time.Time
	Adults        int
	Children      int
	PaymentStatus string
	Notes         string
	support.Idempotency
}

func (CreateBookingCommand) Key() string { return "booking.create" }

func (CreateBookingCommand) ResultPrototype() any { return &dto.BookingResult{} }

func (c CreateBookingCommand) Validate() error {
	if c.PropertyID == "" {
		return errPropertyRequired
	}
	return nil
}

type CreateBookingHandler struct {
	support.Base
}

// Handle rejects the booking when anything already holds part of its stay.
func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.BookingResult, error) {
	payment, err := booking.ParsePaymentStatus(cmd.PaymentStatus)
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
	b, err := booking.New(booking.CreateParams{
		ID:            booking.ID(h.ID()),
		PropertyID:    p.ID,
		Guest:         booking.Guest{Name: cmd.GuestName, Email: cmd.GuestEmail, Phone: cmd.GuestPhone},
		CheckIn:       cmd.CheckIn,
		CheckOut:      cmd.CheckOut,
		Adults:        cmd.Adults,
		Children:      cmd.Children,
		MaxGuests:     p.MaxGuests,
		PaymentStatus: payment,
		Notes:         cmd.Notes,
		CreatedAt:     h.Now(),
	})
	if err != nil {
		return nil, err
	}
	snap, err := support.LoadSnapshot(ctx, unit, p.ID)
	if err != nil {
		return nil, err
	}
	if conflicts := availability.CheckConflict(snap, b.Stay, ""); len(conflicts) > 0 {
		return nil, &availability.ConflictError{Conflicts: conflicts}
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	snap.Bookings = append(snap.Bookings, b)
	if _, err := h.Refresh(ctx, unit, p, snap); err != nil {
		return nil, err
	}
	if err := h.Persist(ctx, unit, b, p); err != nil {
		return nil, err
	}
	return &dto.BookingResult{Booking: dto.MapBooking(b), Property: dto.MapPropertyView(p, p.Status, nil)}, nil
}

var (
	_ commands.Handler[CreateBookingCommand, *dto.BookingResult] = (*CreateBookingHandler)(nil)
	_ middleware.IdempotentCommand                              = CreateBookingCommand{}
)
