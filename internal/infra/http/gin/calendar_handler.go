package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"hostdesk/internal/app/dto"
	appcalendar "hostdesk/internal/app/handlers/calendar"
	"hostdesk/internal/app/queries"
	"hostdesk/internal/infra/feeds"
)

type CalendarHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
	Clock   func() time.Time
}

type conflictsRequest struct {
	Start            Date   `json:"start"`
	End              Date   `json:"end"`
	ExcludingEventID string `json:"excludingEventId"`
}

func (h CalendarHandler) Property(c *gin.Context) {
	h.calendar(c, c.Param("id"))
}

func (h CalendarHandler) Portfolio(c *gin.Context) {
	h.calendar(c, c.Query("propertyId"))
}

func (h CalendarHandler) calendar(c *gin.Context, propertyID string) {
	from, ok := queryTime(c, "from")
	if !ok {
		badRequest(c, "from must be RFC 3339 or YYYY-MM-DD")
		return
	}
	to, ok := queryTime(c, "to")
	if !ok {
		badRequest(c, "to must be RFC 3339 or YYYY-MM-DD")
		return
	}
	q := appcalendar.GetCalendarQuery{
		PropertyID: propertyID,
		Type:       c.Query("type"),
		From:       from,
		To:         to,
	}
	result, err := queries.Ask[appcalendar.GetCalendarQuery, *dto.Calendar](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Feed renders the property calendar as iCalendar on demand.
func (h CalendarHandler) Feed(c *gin.Context) {
	feed, err := queries.Ask[appcalendar.FeedQuery, *appcalendar.Feed](c.Request.Context(), h.Queries, appcalendar.FeedQuery{PropertyID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Data(http.StatusOK, feeds.ContentType, feeds.Render(feed, h.now()))
}

func (h CalendarHandler) Conflicts(c *gin.Context) {
	var req conflictsRequest
	if !bindJSON(c, &req) {
		return
	}
	q := appcalendar.CheckConflictsQuery{
		PropertyID:       c.Param("id"),
		Start:            req.Start.Time,
		End:              req.End.Time,
		ExcludingEventID: req.ExcludingEventID,
	}
	result, err := queries.Ask[appcalendar.CheckConflictsQuery, []dto.Conflict](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result == nil {
		result = []dto.Conflict{}
	}
	c.JSON(http.StatusOK, gin.H{"hasConflicts": len(result) > 0, "conflicts": result})
}

func (h CalendarHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

var _ CalendarHTTP = CalendarHandler{}
