package server

import (
	"net/http"
	"time"

	"github.com/berfenger/pzem2mqtt/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const healthCheckTimeout = 10 * time.Second

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/version", s.VersionHandler)

	return e
}

// HealthCheckHandler asks the master actor for an aggregated health check.
// 200 when every actor answered healthy, 503 otherwise.
func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, healthCheckTimeout).Result()
	if err == nil {
		if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
			return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
		}
	}
	return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
}

func (s *Server) VersionHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"version":  versioninfo.Short(),
		"revision": versioninfo.Revision,
	})
}
