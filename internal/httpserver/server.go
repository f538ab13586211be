package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chadiek/interview-agent/internal/session"
	"github.com/chadiek/interview-agent/internal/transport"
)

// New creates the configured Echo server with the interview routes.
func New(h *transport.Handler, registry *session.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/stats", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]int{"active_sessions": registry.Len()})
	})

	e.GET("/ws/interview", h.ServeWS)

	return e
}
