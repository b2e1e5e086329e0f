package booking

import (
	"context"
	"strings"
	"time"

	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/daterange"
	"hostdesk/internal/domain/shared/events"
	"hostdesk/internal/domain/shared/fault"
)

var (
	ErrNotFound          = fault.NotFound("booking: not found")
	ErrInvalidStay       = fault.Validation("booking: check-out must be after check-in")
	ErrGuestNameRequired = fault.Validation("booking: guest name is required")
	ErrInvalidGuests     = fault.Validation("booking: guest count must be between 1 and the property capacity")
	ErrInvalidPayment    = fault.Validation("booking: unknown payment status")
	ErrInvalidState      = fault.InvalidOperation("booking: invalid state transition")
	ErrConcurrentUpdate  = fault.New(fault.KindConflict, "booking: concurrent update detected")
)

type ID string

type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "Unpaid"
	PaymentPartial  PaymentStatus = "Partial"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentRefunded PaymentStatus = "Refunded"
)

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	if raw == "" {
		return PaymentUnpaid, nil
	}
	for _, s := range []PaymentStatus{PaymentUnpaid, PaymentPartial, PaymentPaid, PaymentRefunded} {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	return "", ErrInvalidPayment
}

type Guest struct {
	Name  string
	Email string
	Phone string
}

type Booking struct {
	ID                 ID
	PropertyID         property.ID
	Guest              Guest
	Stay               daterange.DateRange
	Adults             int
	Children           int
	Status             Status
	PaymentStatus      PaymentStatus
	Notes              string
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
	events.Recorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Booking, error)
	Save(ctx context.Context, b *Booking) error
	// List returns bookings of one property, or of every property when id is empty.
	List(ctx context.Context, propertyID property.ID) ([]*Booking, error)
	DeleteByProperty(ctx context.Context, propertyID property.ID) error
}

type CreateParams struct {
	ID            ID
	PropertyID    property.ID
	Guest         Guest
	CheckIn       time.Time
	CheckOut      time.Time
	Adults        int
	Children      int
	MaxGuests     int
	PaymentStatus PaymentStatus
	Notes         string
	CreatedAt     time.Time
}

func New(params CreateParams) (*Booking, error) {
	stay, err := daterange.New(params.CheckIn, params.CheckOut)
	if err != nil {
		return nil, ErrInvalidStay
	}
	guest := Guest{
		Name:  strings.TrimSpace(params.Guest.Name),
		Email: strings.TrimSpace(params.Guest.Email),
		Phone: strings.TrimSpace(params.Guest.Phone),
	}
	if guest.Name == "" {
		return nil, ErrGuestNameRequired
	}
	count := params.Adults + params.Children
	if params.Adults < 0 || params.Children < 0 || count < 1 || count > params.MaxGuests {
		return nil, ErrInvalidGuests
	}
	payment := params.PaymentStatus
	if payment == "" {
		payment = PaymentUnpaid
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:            params.ID,
		PropertyID:    params.PropertyID,
		Guest:         guest,
		Stay:          stay,
		Adults:        params.Adults,
		Children:      params.Children,
		Status:        StatusPending,
		PaymentStatus: payment,
		Notes:         strings.TrimSpace(params.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(Created{BookingID: b.ID, PropertyID: b.PropertyID, CheckIn: stay.Start, CheckOut: stay.End, GuestName: guest.Name, At: now})
	return b, nil
}

func (b *Booking) GuestCount() int {
	return b.Adults + b.Children
}

// Occupies reports whether the booking makes the property Occupied during its stay.
func (b *Booking) Occupies() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// Blocks reports whether the booking still holds its dates against new commitments.
func (b *Booking) Blocks() bool {
	return b.Status != StatusCancelled
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(Confirmed{BookingID: b.ID, PropertyID: b.PropertyID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Cancel(reason string, now time.Time) error {
	if !b.Occupies() {
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.CancellationReason = strings.TrimSpace(reason)
	b.UpdatedAt = now.UTC()
	b.Record(Cancelled{BookingID: b.ID, PropertyID: b.PropertyID, Reason: b.CancellationReason, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(Completed{BookingID: b.ID, PropertyID: b.PropertyID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Clone() *Booking {
	out := *b
	out.Recorder = events.Recorder{}
	return &out
}
