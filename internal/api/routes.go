package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// RegisterRoutes registers every API route on e.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", h.HandleHealth)

	e.GET("/drones", h.HandleListDrones)
	e.POST("/motion", h.HandleMotion)

	tl := e.Group("/timelines")
	tl.GET("", h.HandleListTimelines)
	tl.GET("/:uuid", h.HandleGetTimeline)
	tl.POST("/:uuid/drop", h.HandleDrop)
	tl.PUT("/:uuid/keyframes/:frame", h.HandlePutKeyframe)
	tl.PATCH("/:uuid/keyframes/:frame", h.HandlePatchKeyframe)
	tl.DELETE("/:uuid/keyframes/:frame", h.HandleDeleteKeyframe)
	tl.POST("/:uuid/keyframes/:frame/move", h.HandleMoveKeyframe)

	e.POST("/playback", h.HandlePlayback)
	e.GET("/ws/playback", NewPlaybackFeed(h).HandleWebSocket)
}

// SetupMiddleware configures error rendering, request logging and recovery.
func SetupMiddleware(e *echo.Echo, log zerolog.Logger) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogMethod:  true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Debug()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).
				Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
}

// NewServer builds an echo instance serving h.
func NewServer(h *Handler, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 10 * time.Second
	SetupMiddleware(e, log)
	RegisterRoutes(e, h)
	return e
}
