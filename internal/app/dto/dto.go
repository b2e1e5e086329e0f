package dto

import (
	"time"

	"hostdesk/internal/domain/availability"
	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/calendar"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/tasks"
)

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stored  string `json:"stored"`
	Derived string `json:"derived"`
	Source  string `json:"source"`
}

type Property struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Location           string    `json:"location"`
	DailyRate          Money     `json:"dailyRate"`
	Bedrooms           int       `json:"bedrooms"`
	Bathrooms          int       `json:"bathrooms"`
	MaxGuests          int       `json:"maxGuests"`
	Status             string    `json:"status"`
	DerivedStatus      string    `json:"derivedStatus,omitempty"`
	StatusSource       string    `json:"statusSource"`
	IsActivelyListed   bool      `json:"isActivelyListed"`
	ListedOn           []string  `json:"listedOn"`
	AutoListWhenVacant bool      `json:"autoListWhenVacant"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	Version            int64     `json:"version"`
	Warnings           []Warning `json:"warnings,omitempty"`
}

func MapProperty(p *property.Property) Property {
	listed := make([]string, len(p.ListedOn))
	for i, pl := range p.ListedOn {
		listed[i] = string(pl)
	}
	return Property{
		ID:                 string(p.ID),
		Name:               p.Name,
		Location:           p.Location,
		DailyRate:          Money{Amount: p.DailyRate.Amount, Currency: p.DailyRate.Currency},
		Bedrooms:           p.Bedrooms,
		Bathrooms:          p.Bathrooms,
		MaxGuests:          p.MaxGuests,
		Status:             string(p.Status),
		StatusSource:       string(p.StatusSource),
		IsActivelyListed:   p.IsActivelyListed,
		ListedOn:           listed,
		AutoListWhenVacant: p.AutoListWhenVacant,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
		Version:            p.Version,
	}
}

// MapPropertyView adds the derived status and any integrity warning.
func MapPropertyView(p *property.Property, derived property.Status, warning *availability.IntegrityWarning) Property {
	out := MapProperty(p)
	out.DerivedStatus = string(derived)
	if warning != nil {
		out.Warnings = []Warning{MapWarning(*warning)}
	}
	return out
}

func MapWarning(w availability.IntegrityWarning) Warning {
	return Warning{
		Code:    "integrity",
		Message: w.Message(),
		Stored:  string(w.Stored),
		Derived: string(w.Derived),
		Source:  string(w.Source),
	}
}

type Guest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Booking struct {
	ID                 string    `json:"id"`
	PropertyID         string    `json:"propertyId"`
	Guest              Guest     `json:"guest"`
	CheckIn            time.Time `json:"checkIn"`
	CheckOut           time.Time `json:"checkOut"`
	Adults             int       `json:"adults"`
	Children           int       `json:"children"`
	Status             string    `json:"status"`
	PaymentStatus      string    `json:"paymentStatus"`
	Notes              string    `json:"notes,omitempty"`
	CancellationReason string    `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	Version            int64     `json:"version"`
}

func MapBooking(b *booking.Booking) Booking {
	return Booking{
		ID:                 string(b.ID),
		PropertyID:         string(b.PropertyID),
		Guest:              Guest{Name: b.Guest.Name, Email: b.Guest.Email, Phone: b.Guest.Phone},
		CheckIn:            b.Stay.Start,
		CheckOut:           b.Stay.End,
		Adults:             b.Adults,
		Children:           b.Children,
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
		Version:            b.Version,
	}
}

type Task struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	PropertyID      string    `json:"propertyId"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Staff           string    `json:"staff,omitempty"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	Description     string    `json:"description,omitempty"`
	Priority        string    `json:"priority,omitempty"`
	Kind            string    `json:"kind,omitempty"`
	ConflictFlagged bool      `json:"conflictFlagged"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Version         int64     `json:"version"`
}

func MapTask(t *tasks.Task) Task {
	return Task{
		ID:              string(t.ID),
		Type:            string(t.Type),
		PropertyID:      string(t.PropertyID),
		Start:           t.Window.Start,
		End:             t.Window.End,
		Staff:           t.Staff,
		Status:          string(t.Status),
		Notes:           t.Notes,
		Description:     t.Description,
		Priority:        string(t.Priority),
		Kind:            string(t.Kind),
		ConflictFlagged: t.ConflictFlagged,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		Version:         t.Version,
	}
}

type Conflict struct {
	Kind  string    `json:"kind"`
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Title string    `json:"title"`
}

func MapConflicts(in []availability.Conflict) []Conflict {
	out := make([]Conflict, len(in))
	for i, c := range in {
		out[i] = Conflict{Kind: string(c.Kind), ID: c.ID, Start: c.Interval.Start, End: c.Interval.End, Title: c.Title}
	}
	return out
}

type StayDetails struct {
	BookingID     string `json:"bookingId"`
	GuestName     string `json:"guestName"`
	Adults        int    `json:"adults"`
	Children      int    `json:"children"`
	PaymentStatus string `json:"paymentStatus"`
	BookingStatus string `json:"bookingStatus"`
}

type CleaningDetails struct {
	TaskID string `json:"taskId"`
	Staff  string `json:"staff,omitempty"`
	Notes  string `json:"notes,omitempty"`
	Status string `json:"status"`
}

type MaintenanceDetails struct {
	TaskID      string `json:"taskId"`
	Staff       string `json:"staff,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
}

type CalendarEvent struct {
	ID          string              `json:"id"`
	Type        string              `json:"type"`
	PropertyID  string              `json:"propertyId"`
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	AllDay      bool                `json:"allDay"`
	Title       string              `json:"title"`
	Editable    bool                `json:"editable"`
	Stay        *StayDetails        `json:"stay,omitempty"`
	Cleaning    *CleaningDetails    `json:"cleaning,omitempty"`
	Maintenance *MaintenanceDetails `json:"maintenance,omitempty"`
}

func MapEvent(e calendar.Event) CalendarEvent {
	out := CalendarEvent{
		ID:         e.ID,
		Type:       string(e.Kind),
		PropertyID: string(e.PropertyID),
		Start:      e.Start,
		End:        e.End,
		AllDay:     e.AllDay,
		Title:      e.Title,
		Editable:   e.Kind.Editable(),
	}
	switch p := e.Payload.(type) {
	case calendar.StayPayload:
		out.Stay = &StayDetails{
			BookingID:     string(p.BookingID),
			GuestName:     p.GuestName,
			Adults:        p.Adults,
			Children:      p.Children,
			PaymentStatus: string(p.PaymentStatus),
			BookingStatus: string(p.BookingStatus),
		}
	case calendar.CleaningPayload:
		out.Cleaning = &CleaningDetails{TaskID: string(p.TaskID), Staff: p.Staff, Notes: p.Notes, Status: string(p.Status)}
	case calendar.MaintenancePayload:
		out.Maintenance = &MaintenanceDetails{
			TaskID:      string(p.TaskID),
			Staff:       p.Staff,
			Description: p.Description,
			Priority:    string(p.Priority),
			Kind:        string(p.Kind),
			Status:      string(p.Status),
		}
	}
	return out
}

type Calendar struct {
	PropertyID string          `json:"propertyId,omitempty"`
	From       *time.Time      `json:"from,omitempty"`
	To         *time.Time      `json:"to,omitempty"`
	Events     []CalendarEvent `json:"events"`
}

// BookingResult is returned by booking mutations together with the property
// state they produced.
type BookingResult struct {
	Booking  Booking  `json:"booking"`
	Property Property `json:"property"`
}

type TaskResult struct {
	Task      Task       `json:"task"`
	Property  Property   `json:"property"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

type ReconcileEntry struct {
	PropertyID string   `json:"propertyId"`
	Stored     string   `json:"stored"`
	Derived    string   `json:"derived"`
	Corrected  bool     `json:"corrected"`
	AutoListed bool     `json:"autoListed"`
	Warning    *Warning `json:"warning,omitempty"`
}

type ReconcileReport struct {
	Checked   int              `json:"checked"`
	Corrected int              `json:"corrected"`
	Entries   []ReconcileEntry `json:"entries"`
}

type DeleteResult struct {
	PropertyID string `json:"propertyId"`
	Cascade    bool   `json:"cascade"`
	Bookings   int    `json:"bookings"`
	Tasks      int    `json:"tasks"`
}
