package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hostdesk/internal/app/commands"
	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/properties"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/app/queries"
)

type PropertyHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type moneyRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createPropertyRequest struct {
	Name               string       `json:"name" binding:"required"`
	Location           string       `json:"location"`
	DailyRate          moneyRequest `json:"dailyRate"`
	Bedrooms           int          `json:"bedrooms"`
	Bathrooms          int          `json:"bathrooms"`
	MaxGuests          int          `json:"maxGuests"`
	AutoListWhenVacant bool         `json:"autoListWhenVacant"`
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type updateListingRequest struct {
	IsActivelyListed   *bool     `json:"isActivelyListed"`
	ListedOn           *[]string `json:"listedOn"`
	AutoListWhenVacant *bool     `json:"autoListWhenVacant"`
}

func (h PropertyHandler) Create(c *gin.Context) {
	var req createPropertyRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := properties.CreatePropertyCommand{
		Name:               req.Name,
		Location:           req.Location,
		DailyRate:          req.DailyRate.Amount,
		Currency:           req.DailyRate.Currency,
		Bedrooms:           req.Bedrooms,
		Bathrooms:          req.Bathrooms,
		MaxGuests:          req.MaxGuests,
		AutoListWhenVacant: req.AutoListWhenVacant,
		Idempotency:        support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	result, err := commands.Dispatch[properties.CreatePropertyCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h PropertyHandler) List(c *gin.Context) {
	result, err := queries.Ask[properties.ListPropertiesQuery, []dto.Property](c.Request.Context(), h.Queries, properties.ListPropertiesQuery{})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result == nil {
		result = []dto.Property{}
	}
	c.JSON(http.StatusOK, gin.H{"properties": result})
}

func (h PropertyHandler) Get(c *gin.Context) {
	result, err := queries.Ask[properties.GetPropertyQuery, *dto.Property](c.Request.Context(), h.Queries, properties.GetPropertyQuery{PropertyID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) Delete(c *gin.Context) {
	cascade, ok := queryBool(c, "cascade")
	if !ok {
		badRequest(c, "cascade must be true or false")
		return
	}
	cmd := properties.DeletePropertyCommand{
		PropertyID:  c.Param("id"),
		Cascade:     cascade,
		Idempotency: support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	result, err := commands.Dispatch[properties.DeletePropertyCommand, *dto.DeleteResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SetStatus is the manual override; the response carries the integrity
// warning when the calendar disagrees.
func (h PropertyHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := properties.SetStatusCommand{
		PropertyID:  c.Param("id"),
		Status:      req.Status,
		Idempotency: support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	result, err := commands.Dispatch[properties.SetStatusCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) UpdateListing(c *gin.Context) {
	var req updateListingRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := properties.UpdateListingCommand{
		PropertyID:         c.Param("id"),
		IsActivelyListed:   req.IsActivelyListed,
		ListedOn:           req.ListedOn,
		AutoListWhenVacant: req.AutoListWhenVacant,
		Idempotency:        support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	h.respondProperty(c, func() (*dto.Property, error) {
		return commands.Dispatch[properties.UpdateListingCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	})
}

func (h PropertyHandler) TogglePlatform(c *gin.Context) {
	cmd := properties.TogglePlatformCommand{
		PropertyID:  c.Param("id"),
		Platform:    c.Param("platform"),
		Idempotency: support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	h.respondProperty(c, func() (*dto.Property, error) {
		return commands.Dispatch[properties.TogglePlatformCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	})
}

func (h PropertyHandler) SelectAll(c *gin.Context) {
	cmd := properties.SelectAllPlatformsCommand{
		PropertyID:  c.Param("id"),
		Idempotency: support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	h.respondProperty(c, func() (*dto.Property, error) {
		return commands.Dispatch[properties.SelectAllPlatformsCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	})
}

func (h PropertyHandler) DeselectAll(c *gin.Context) {
	cmd := properties.DeselectAllPlatformsCommand{
		PropertyID:  c.Param("id"),
		Idempotency: support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	h.respondProperty(c, func() (*dto.Property, error) {
		return commands.Dispatch[properties.DeselectAllPlatformsCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	})
}

func (h PropertyHandler) Reconcile(c *gin.Context) {
	force, ok := queryBool(c, "force")
	if !ok {
		badRequest(c, "force must be true or false")
		return
	}
	cmd := properties.ReconcileCommand{
		PropertyID:  c.Param("id"),
		Force:       force,
		Idempotency: support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	result, err := commands.Dispatch[properties.ReconcileCommand, *dto.ReconcileReport](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) respondProperty(c *gin.Context, fn func() (*dto.Property, error)) {
	result, err := fn()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PropertyHTTP = PropertyHandler{}
