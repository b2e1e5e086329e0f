package calendar

import (
	"context"
	"strings"
	"time"

	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/app/uow"
	"hostdesk/internal/domain/availability"
	domaincalendar "hostdesk/internal/domain/calendar"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/daterange"
	"hostdesk/internal/domain/shared/fault"
)

var errInvalidInterval = fault.Validation("calendar: end must be after start")

// GetCalendarQuery lists events of one property, or of the portfolio when
// PropertyID is empty.
type GetCalendarQuery struct {
	PropertyID string
	Type       string
	From       time.Time
	To         time.Time
}

func (GetCalendarQuery) Key() string { return "calendar.get" }

type CheckConflictsQuery struct {
	PropertyID       string
	Start            time.Time
	End              time.Time
	ExcludingEventID string
}

func (CheckConflictsQuery) Key() string { return "calendar.check_conflicts" }

// FeedQuery returns what an iCalendar export needs for one property.
type FeedQuery struct {
	PropertyID string
}

func (FeedQuery) Key() string { return "calendar.feed" }

type Feed struct {
	Property dto.Property
	Events   []dto.CalendarEvent
}

type Handler struct {
	support.Base
	Factory uow.Factory
}

func (h *Handler) Calendar(ctx context.Context, q GetCalendarQuery) (*dto.Calendar, error) {
	kind, err := domaincalendar.ParseKind(q.Type)
	if err != nil {
		return nil, err
	}
	filter := domaincalendar.Filter{PropertyID: property.ID(q.PropertyID), Kind: kind, From: q.From.UTC(), To: q.To.UTC()}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	out := &dto.Calendar{PropertyID: q.PropertyID, Events: []dto.CalendarEvent{}}
	if !filter.From.IsZero() {
		out.From = &filter.From
	}
	if !filter.To.IsZero() {
		out.To = &filter.To
	}
	err = uow.Run(ctx, h.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		src, err := h.source(ctx, unit, filter.PropertyID)
		if err != nil {
			return err
		}
		for evt := range domaincalendar.Aggregate(src, filter) {
			out.Events = append(out.Events, dto.MapEvent(evt))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Conflicts runs the conflict scan without writing anything.
func (h *Handler) Conflicts(ctx context.Context, q CheckConflictsQuery) ([]dto.Conflict, error) {
	interval, err := daterange.New(q.Start, q.End)
	if err != nil {
		return nil, errInvalidInterval
	}
	var out []dto.Conflict
	err = uow.Run(ctx, h.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		id := property.ID(q.PropertyID)
		if _, err := unit.Properties().ByID(ctx, id); err != nil {
			return err
		}
		snap, err := support.LoadSnapshot(ctx, unit, id)
		if err != nil {
			return err
		}
		out = dto.MapConflicts(availability.CheckConflict(snap, interval, commitmentID(q.ExcludingEventID)))
		return nil
	})
	return out, err
}

func (h *Handler) Feed(ctx context.Context, q FeedQuery) (*Feed, error) {
	var out Feed
	err := uow.Run(ctx, h.Factory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		p, err := unit.Properties().ByID(ctx, property.ID(q.PropertyID))
		if err != nil {
			return err
		}
		src, err := h.source(ctx, unit, p.ID)
		if err != nil {
			return err
		}
		for evt := range domaincalendar.Aggregate(src, domaincalendar.Filter{PropertyID: p.ID}) {
			out.Events = append(out.Events, dto.MapEvent(evt))
		}
		out.Property = dto.MapProperty(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *Handler) source(ctx context.Context, unit uow.UnitOfWork, id property.ID) (domaincalendar.Source, error) {
	if id != "" {
		if _, err := unit.Properties().ByID(ctx, id); err != nil {
			return domaincalendar.Source{}, err
		}
	}
	var (
		src domaincalendar.Source
		err error
	)
	if src.Bookings, err = unit.Bookings().List(ctx, id); err != nil {
		return src, err
	}
	if src.Cleaning, err = unit.Cleaning().List(ctx, id); err != nil {
		return src, err
	}
	if src.Maintenance, err = unit.Maintenance().List(ctx, id); err != nil {
		return src, err
	}
	return src, nil
}

// commitmentID maps a stay event id back to its booking.
func commitmentID(eventID string) string {
	for _, suffix := range []string{":check_in", ":check_out"} {
		if trimmed, ok := strings.CutSuffix(eventID, suffix); ok {
			return trimmed
		}
	}
	return eventID
}
