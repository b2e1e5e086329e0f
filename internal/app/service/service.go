// Package service assembles the command and query buses from the handlers.
package service

import (
	"context"
	"log/slog"
	"time"

	"hostdesk/internal/app/commands"
	"hostdesk/internal/app/handlers/bookings"
	appcalendar "hostdesk/internal/app/handlers/calendar"
	"hostdesk/internal/app/handlers/properties"
	"hostdesk/internal/app/handlers/support"
	apptasks "hostdesk/internal/app/handlers/tasks"
	"hostdesk/internal/app/middleware"
	"hostdesk/internal/app/outbox"
	"hostdesk/internal/app/queries"
	"hostdesk/internal/app/uow"
	"hostdesk/internal/domain/property"
)

type Deps struct {
	Factory         uow.Factory
	Idempotency     middleware.IdempotencyStore
	IdempotencyTTL  time.Duration
	Catalog         property.Catalog
	DefaultCurrency string
	Clock           func() time.Time
	NewID           func() string
	Encoder         outbox.EventEncoder
	Logger          *slog.Logger
}

type Service struct {
	Commands commands.Bus
	Queries  queries.Bus
	Catalog  property.Catalog
}

func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.DefaultCurrency == "" {
		d.DefaultCurrency = "USD"
	}
	base := support.Base{
		Catalog: d.Catalog,
		Clock:   d.Clock,
		NewID:   d.NewID,
		Encoder: d.Encoder,
		Logger:  d.Logger,
	}

	cmdRouter := commands.NewRouter()
	handle(cmdRouter, (&properties.CreatePropertyHandler{Base: base, DefaultCurrency: d.DefaultCurrency}).Handle)
	handle(cmdRouter, (&properties.SetStatusHandler{Base: base}).Handle)
	handle(cmdRouter, (&properties.DeletePropertyHandler{Base: base}).Handle)
	handle(cmdRouter, (&properties.ReconcileHandler{Base: base}).Handle)

	listing := &properties.ListingHandler{Base: base}
	handle(cmdRouter, listing.UpdateListing)
	handle(cmdRouter, listing.TogglePlatform)
	handle(cmdRouter, listing.SelectAll)
	handle(cmdRouter, listing.DeselectAll)

	handle(cmdRouter, (&bookings.CreateBookingHandler{Base: base}).Handle)
	bookingTransitions := &bookings.TransitionHandler{Base: base}
	handle(cmdRouter, bookingTransitions.Confirm)
	handle(cmdRouter, bookingTransitions.Cancel)
	handle(cmdRouter, bookingTransitions.Complete)

	taskCreate := &apptasks.CreateHandler{Base: base}
	handle(cmdRouter, taskCreate.Cleaning)
	handle(cmdRouter, taskCreate.Maintenance)
	taskTransitions := &apptasks.TransitionHandler{Base: base}
	handle(cmdRouter, taskTransitions.Transition)
	handle(cmdRouter, taskTransitions.Reschedule)

	mws := []middleware.CommandMiddleware{
		middleware.Logging(d.Logger),
		middleware.Validation(middleware.SelfValidator{}),
	}
	if d.Idempotency != nil {
		mws = append(mws, middleware.Idempotency(d.Idempotency, d.IdempotencyTTL))
	}
	mws = append(mws, middleware.Transaction(d.Factory, nil), middleware.OutboxFlush())

	queryRouter := queries.NewRouter()
	propertyReads := &properties.ReadHandler{Base: base, Factory: d.Factory}
	ask(queryRouter, propertyReads.Get)
	ask(queryRouter, propertyReads.List)
	bookingReads := &bookings.ReadHandler{Factory: d.Factory}
	ask(queryRouter, bookingReads.Get)
	ask(queryRouter, bookingReads.List)
	cal := &appcalendar.Handler{Base: base, Factory: d.Factory}
	ask(queryRouter, cal.Calendar)
	ask(queryRouter, cal.Conflicts)
	ask(queryRouter, cal.Feed)

	return &Service{
		Commands: middleware.ChainCommands(cmdRouter, mws...),
		Queries: middleware.ChainQueries(queryRouter,
			middleware.QueryLogging(d.Logger),
			middleware.QueryValidation(middleware.SelfValidator{}),
		),
		Catalog: d.Catalog,
	}
}

func handle[C commands.Command, R any](r *commands.Router, fn func(context.Context, C) (R, error)) {
	commands.Register[C, R](r, commands.HandlerFunc[C, R](fn))
}

func ask[Q queries.Query, R any](r *queries.Router, fn func(context.Context, Q) (R, error)) {
	queries.Register[Q, R](r, queries.HandlerFunc[Q, R](fn))
}
