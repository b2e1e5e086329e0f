package ginserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"hostdesk/internal/app/dto"
	"hostdesk/internal/domain/availability"
	"hostdesk/internal/domain/shared/fault"
)

const idempotencyHeader = "Idempotency-Key"

// statusFor maps an error class to its HTTP status.
func statusFor(err error) int {
	switch fault.KindOf(err) {
	case fault.KindValidation:
		return http.StatusUnprocessableEntity
	case fault.KindConflict, fault.KindInvalidOperation:
		return http.StatusConflict
	case fault.KindNotFound:
		return http.StatusNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if kind := fault.KindOf(err); kind != fault.KindUnknown {
		body["kind"] = string(kind)
	}
	var conflict *availability.ConflictError
	if errors.As(err, &conflict) {
		body["conflicts"] = dto.MapConflicts(conflict.Conflicts)
	}
	if status >= http.StatusInternalServerError && logger != nil {
		logger.ErrorContext(c.Request.Context(), "request failed",
			slog.Int("status", status),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()))
	}
	c.AbortWithStatusJSON(status, body)
}

// bindJSON reports malformed bodies as 400; domain validation later maps to 422.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "malformed"})
		return false
	}
	return true
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "kind": "malformed"})
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(idempotencyHeader))
}

// Date accepts RFC 3339 timestamps and plain YYYY-MM-DD dates, both read as UTC.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, ok := parseFlexibleTime(s)
	if !ok {
		return errors.New("time must be RFC 3339 or YYYY-MM-DD")
	}
	d.Time = t
	return nil
}

func parseFlexibleTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// queryTime reads an optional time parameter; ok is false when present but invalid.
func queryTime(c *gin.Context, name string) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, true
	}
	return parseFlexibleTime(raw)
}

func queryBool(c *gin.Context, name string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(c.Query(name))) {
	case "", "0", "false", "no":
		return false, true
	case "1", "true", "yes":
		return true, true
	}
	return false, false
}
