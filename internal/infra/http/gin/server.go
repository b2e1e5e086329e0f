package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"hostdesk/internal/infra/config"
	"hostdesk/internal/infra/obs"
)

type PropertyHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Delete(c *gin.Context)
	SetStatus(c *gin.Context)
	UpdateListing(c *gin.Context)
	TogglePlatform(c *gin.Context)
	SelectAll(c *gin.Context)
	DeselectAll(c *gin.Context)
	Reconcile(c *gin.Context)
}

type BookingHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
	Complete(c *gin.Context)
}

type TaskHTTP interface {
	Create(c *gin.Context)
	Transition(c *gin.Context)
	Reschedule(c *gin.Context)
}

type CalendarHTTP interface {
	Property(c *gin.Context)
	Portfolio(c *gin.Context)
	Feed(c *gin.Context)
	Conflicts(c *gin.Context)
}

type Handlers struct {
	Properties  PropertyHTTP
	Bookings    BookingHTTP
	Cleaning    TaskHTTP
	Maintenance TaskHTTP
	Calendar    CalendarHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", idempotencyHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Properties != nil {
		props := api.Group("/properties")
		props.POST("", h.Properties.Create)
		props.GET("", h.Properties.List)
		props.GET("/:id", h.Properties.Get)
		props.DELETE("/:id", h.Properties.Delete)
		props.PATCH("/:id", h.Properties.SetStatus)
		props.PATCH("/:id/listing", h.Properties.UpdateListing)
		props.POST("/:id/listing/platforms/:platform/toggle", h.Properties.TogglePlatform)
		props.POST("/:id/listing/select-all", h.Properties.SelectAll)
		props.POST("/:id/listing/deselect-all", h.Properties.DeselectAll)
		props.POST("/:id/reconcile", h.Properties.Reconcile)
	}
	if h.Calendar != nil {
		api.GET("/calendar", h.Calendar.Portfolio)
		api.GET("/properties/:id/calendar", h.Calendar.Property)
		api.GET("/properties/:id/calendar.ics", h.Calendar.Feed)
		api.POST("/properties/:id/conflicts", h.Calendar.Conflicts)
	}
	if h.Bookings != nil {
		api.POST("/bookings", h.Bookings.Create)
		api.GET("/bookings", h.Bookings.List)
		api.GET("/bookings/:id", h.Bookings.Get)
		api.POST("/bookings/:id/confirm", h.Bookings.Confirm)
		api.POST("/bookings/:id/cancel", h.Bookings.Cancel)
		api.POST("/bookings/:id/complete", h.Bookings.Complete)
	}
	registerTasks(api.Group("/cleaning-tasks"), h.Cleaning)
	registerTasks(api.Group("/maintenance-tasks"), h.Maintenance)
	return router
}

func registerTasks(group *gin.RouterGroup, h TaskHTTP) {
	if h == nil {
		return
	}
	group.POST("", h.Create)
	group.PATCH("/:id", h.Reschedule)
	group.POST("/:id/:action", h.Transition)
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
