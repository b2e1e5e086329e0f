package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hostdesk/internal/app/commands"
	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/support"
	apptasks "hostdesk/internal/app/handlers/tasks"
	domaintasks "hostdesk/internal/domain/tasks"
)

// TaskHandler serves one task type; the router mounts one per type.
type TaskHandler struct {
	Type     domaintasks.Type
	Commands commands.Bus
	Logger   *slog.Logger
}

type createTaskRequest struct {
	PropertyID    string `json:"propertyId" binding:"required"`
	Start         Date   `json:"start"`
	End           Date   `json:"end"`
	Staff         string `json:"staff"`
	Notes         string `json:"notes"`
	Description   string `json:"description"`
	Priority      string `json:"priority"`
	Kind          string `json:"kind"`
	AllowConflict bool   `json:"allowConflict"`
}

type rescheduleTaskRequest struct {
	Start         Date `json:"start"`
	End           Date `json:"end"`
	AllowConflict bool `json:"allowConflict"`
}

func (h TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	idem := support.Idempotency{IdempotencyToken: idempotencyKey(c)}
	var (
		result *dto.TaskResult
		err    error
	)
	switch h.Type {
	case domaintasks.TypeMaintenance:
		result, err = commands.Dispatch[apptasks.CreateMaintenanceTaskCommand, *dto.TaskResult](c.Request.Context(), h.Commands, apptasks.CreateMaintenanceTaskCommand{
			PropertyID:    req.PropertyID,
			Start:         req.Start.Time,
			End:           req.End.Time,
			Staff:         req.Staff,
			Description:   req.Description,
			Priority:      req.Priority,
			Kind:          req.Kind,
			AllowConflict: req.AllowConflict,
			Idempotency:   idem,
		})
	default:
		result, err = commands.Dispatch[apptasks.CreateCleaningTaskCommand, *dto.TaskResult](c.Request.Context(), h.Commands, apptasks.CreateCleaningTaskCommand{
			PropertyID:    req.PropertyID,
			Start:         req.Start.Time,
			End:           req.End.Time,
			Staff:         req.Staff,
			Notes:         req.Notes,
			AllowConflict: req.AllowConflict,
			Idempotency:   idem,
		})
	}
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h TaskHandler) Transition(c *gin.Context) {
	cmd := apptasks.TransitionTaskCommand{
		Type:        h.Type,
		TaskID:      c.Param("id"),
		Action:      apptasks.Action(c.Param("action")),
		Idempotency: support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	result, err := commands.Dispatch[apptasks.TransitionTaskCommand, *dto.TaskResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h TaskHandler) Reschedule(c *gin.Context) {
	var req rescheduleTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := apptasks.RescheduleTaskCommand{
		Type:          h.Type,
		TaskID:        c.Param("id"),
		Start:         req.Start.Time,
		End:           req.End.Time,
		AllowConflict: req.AllowConflict,
		Idempotency:   support.Idempotency{IdempotencyToken: idempotencyKey(c)},
	}
	result, err := commands.Dispatch[apptasks.RescheduleTaskCommand, *dto.TaskResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ TaskHTTP = TaskHandler{}
