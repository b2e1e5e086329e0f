package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hostdesk/internal/app/commands"
	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/bookings"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type guestRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type createBookingRequest struct {
	PropertyID    string       `json:"propertyId" binding:"required"`
	Guest         guestRequest `json:"guest"`
	CheckIn       Date         `json:"checkIn"`
	CheckOut      Date         `json:"checkOut"`
	Adults        int          `json:"adults"`
	Children      int          `json:"children"`
	PaymentStatus string       `json:"paymentStatus"`
	Notes         string       `json:"notes"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := bookings.CreateBookingCommand{
		PropertyID:    req.PropertyID,
		GuestName:     req.Guest.Name,
		GuestEmail:    req.Guest.Email,
		GuestPhone:    req.Guest.Phone,
		CheckIn:       req.CheckIn.Time,
		CheckOut:      req.CheckOut.Time,
		Adults:        req.Adults,
		Children:      req.Children,
		PaymentStatus: req.PaymentStatus,
		Notes:         req.Notes,
		Idempotency:   support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	result, err := commands.Dispatch[bookings.CreateBookingCommand, *dto.BookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// List requires ?propertyId= so a single call never scans the portfolio.
func (h BookingHandler) List(c *gin.Context) {
	propertyID := c.Query("propertyId")
	if propertyID == "" {
		badRequest(c, "propertyId is required")
		return
	}
	result, err := queries.Ask[bookings.ListBookingsQuery, []dto.Booking](c.Request.Context(), h.Queries, bookings.ListBookingsQuery{PropertyID: propertyID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result == nil {
		result = []dto.Booking{}
	}
	c.JSON(http.StatusOK, gin.H{"bookings": result})
}

func (h BookingHandler) Get(c *gin.Context) {
	result, err := queries.Ask[bookings.GetBookingQuery, *dto.Booking](c.Request.Context(), h.Queries, bookings.GetBookingQuery{BookingID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	cmd := bookings.ConfirmBookingCommand{
		BookingID:   c.Param("id"),
		Idempotency: support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	h.respond(c, func() (*dto.BookingResult, error) {
		return commands.Dispatch[bookings.ConfirmBookingCommand, *dto.BookingResult](c.Request.Context(), h.Commands, cmd)
	})
}

// Cancel accepts an empty body.
func (h BookingHandler) Cancel(c *gin.Context) {
	var req cancelBookingRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	cmd := bookings.CancelBookingCommand{
		BookingID:   c.Param("id"),
		Reason:      req.Reason,
		Idempotency: support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	h.respond(c, func() (*dto.BookingResult, error) {
		return commands.Dispatch[bookings.CancelBookingCommand, *dto.BookingResult](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Complete(c *gin.Context) {
	cmd := bookings.CompleteBookingCommand{
		BookingID:   c.Param("id"),
		Idempotency: support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	h.respond(c, func() (*dto.BookingResult, error) {
		return commands.Dispatch[bookings.CompleteBookingCommand, *dto.BookingResult](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) respond(c *gin.Context, fn func() (*dto.BookingResult, error)) {
	result, err := fn()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
