package gorm

import (
	"time"

	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/daterange"
	"hostdesk/internal/domain/shared/money"
	"hostdesk/internal/domain/tasks"
)

const (
	cleaningTable    = "cleaning_tasks"
	maintenanceTable = "maintenance_tasks"
)

type propertyModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	Name               string    `gorm:"column:name"`
	Location           string    `gorm:"column:location"`
	RateAmount         int64     `gorm:"column:rate_amount"`
	RateCurrency       string    `gorm:"column:rate_currency;size:3"`
	Bedrooms           int       `gorm:"column:bedrooms"`
	Bathrooms          int       `gorm:"column:bathrooms"`
	MaxGuests          int       `gorm:"column:max_guests"`
	Status             string    `gorm:"column:status"`
	StatusSource       string    `gorm:"column:status_source"`
	IsActivelyListed   bool      `gorm:"column:is_actively_listed"`
	ListedOn           []string  `gorm:"column:listed_on;type:text;serializer:json"`
	AutoListWhenVacant bool      `gorm:"column:auto_list_when_vacant"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
	Version            int64     `gorm:"column:version"`
}

func (propertyModel) TableName() string { return "properties" }

func toPropertyModel(p *property.Property) propertyModel {
	listed := make([]string, 0, len(p.ListedOn))
	for _, platform := range p.ListedOn {
		listed = append(listed, string(platform))
	}
	return propertyModel{
		ID:                 string(p.ID),
		Name:               p.Name,
		Location:           p.Location,
		RateAmount:         p.DailyRate.Amount,
		RateCurrency:       p.DailyRate.Currency,
		Bedrooms:           p.Bedrooms,
		Bathrooms:          p.Bathrooms,
		MaxGuests:          p.MaxGuests,
		Status:             string(p.Status),
		StatusSource:       string(p.StatusSource),
		IsActivelyListed:   p.IsActivelyListed,
		ListedOn:           listed,
		AutoListWhenVacant: p.AutoListWhenVacant,
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
		Version:            p.Version,
	}
}

func toDomainProperty(m propertyModel) *property.Property {
	listed := make([]property.Platform, 0, len(m.ListedOn))
	for _, name := range m.ListedOn {
		listed = append(listed, property.Platform(name))
	}
	return &property.Property{
		ID:                 property.ID(m.ID),
		Name:               m.Name,
		Location:           m.Location,
		DailyRate:          money.Money{Amount: m.RateAmount, Currency: m.RateCurrency},
		Bedrooms:           m.Bedrooms,
		Bathrooms:          m.Bathrooms,
		MaxGuests:          m.MaxGuests,
		Status:             property.Status(m.Status),
		StatusSource:       property.StatusSource(m.StatusSource),
		IsActivelyListed:   m.IsActivelyListed,
		ListedOn:           listed,
		AutoListWhenVacant: m.AutoListWhenVacant,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
		Version:            m.Version,
	}
}

type bookingModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	PropertyID         string    `gorm:"column:property_id;index"`
	GuestName          string    `gorm:"column:guest_name"`
	GuestEmail         *string   `gorm:"column:guest_email"`
	GuestPhone         *string   `gorm:"column:guest_phone"`
	CheckIn            time.Time `gorm:"column:check_in"`
	CheckOut           time.Time `gorm:"column:check_out"`
	Adults             int       `gorm:"column:adults"`
	Children           int       `gorm:"column:children"`
	Status             string    `gorm:"column:status"`
	PaymentStatus      string    `gorm:"column:payment_status"`
	Notes              *string   `gorm:"column:notes"`
	CancellationReason *string   `gorm:"column:cancellation_reason"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
	Version            int64     `gorm:"column:version"`
}

func (bookingModel) TableName() string { return "bookings" }

func toBookingModel(b *booking.Booking) bookingModel {
	return bookingModel{
		ID:                 string(b.ID),
		PropertyID:         string(b.PropertyID),
		GuestName:          b.Guest.Name,
		GuestEmail:         optional(b.Guest.Email),
		GuestPhone:         optional(b.Guest.Phone),
		CheckIn:            b.Stay.Start.UTC(),
		CheckOut:           b.Stay.End.UTC(),
		Adults:             b.Adults,
		Children:           b.Children,
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		Notes:              optional(b.Notes),
		CancellationReason: optional(b.CancellationReason),
		CreatedAt:          b.CreatedAt.UTC(),
		UpdatedAt:          b.UpdatedAt.UTC(),
		Version:            b.Version,
	}
}

func toDomainBooking(m bookingModel) *booking.Booking {
	return &booking.Booking{
		ID:         booking.ID(m.ID),
		PropertyID: property.ID(m.PropertyID),
		Guest: booking.Guest{
			Name:  m.GuestName,
			Email: deref(m.GuestEmail),
			Phone: deref(m.GuestPhone),
		},
		Stay:               daterange.DateRange{Start: m.CheckIn.UTC(), End: m.CheckOut.UTC()},
		Adults:             m.Adults,
		Children:           m.Children,
		Status:             booking.Status(m.Status),
		PaymentStatus:      booking.PaymentStatus(m.PaymentStatus),
		Notes:              deref(m.Notes),
		CancellationReason: deref(m.CancellationReason),
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
		Version:            m.Version,
	}
}

// taskModel backs both task tables; the repository picks the table.
type taskModel struct {
	ID              string    `gorm:"column:id;primaryKey"`
	PropertyID      string    `gorm:"column:property_id;index"`
	StartsAt        time.Time `gorm:"column:starts_at"`
	EndsAt          time.Time `gorm:"column:ends_at"`
	Staff           string    `gorm:"column:staff"`
	Status          string    `gorm:"column:status"`
	Notes           string    `gorm:"column:notes"`
	Description     string    `gorm:"column:description"`
	Priority        string    `gorm:"column:priority"`
	Kind            string    `gorm:"column:kind"`
	ConflictFlagged bool      `gorm:"column:conflict_flagged"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
	Version         int64     `gorm:"column:version"`
}

func toTaskModel(t *tasks.Task) taskModel {
	return taskModel{
		ID:              string(t.ID),
		PropertyID:      string(t.PropertyID),
		StartsAt:        t.Window.Start.UTC(),
		EndsAt:          t.Window.End.UTC(),
		Staff:           t.Staff,
		Status:          string(t.Status),
		Notes:           t.Notes,
		Description:     t.Description,
		Priority:        string(t.Priority),
		Kind:            string(t.Kind),
		ConflictFlagged: t.ConflictFlagged,
		CreatedAt:       t.CreatedAt.UTC(),
		UpdatedAt:       t.UpdatedAt.UTC(),
		Version:         t.Version,
	}
}

func toDomainTask(m taskModel, typ tasks.Type) *tasks.Task {
	return &tasks.Task{
		ID:              tasks.ID(m.ID),
		Type:            typ,
		PropertyID:      property.ID(m.PropertyID),
		Window:          daterange.DateRange{Start: m.StartsAt.UTC(), End: m.EndsAt.UTC()},
		Staff:           m.Staff,
		Status:          tasks.Status(m.Status),
		Notes:           m.Notes,
		Description:     m.Description,
		Priority:        tasks.Priority(m.Priority),
		Kind:            tasks.Kind(m.Kind),
		ConflictFlagged: m.ConflictFlagged,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
		Version:         m.Version,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
