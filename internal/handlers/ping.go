package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/feishubridge/internal/healthcheck"
)

type PingHandler struct {
	logger  *slog.Logger
	checker healthcheck.Checker
}

func NewPingHandler(log *slog.Logger, checker healthcheck.Checker) *PingHandler {
	return &PingHandler{
		logger:  log.With(slog.String("handler", "ping")),
		checker: checker,
	}
}

func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.PingHead)
	e.GET("/health", h.Health)
}

func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *PingHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// HealthResponse lists account readiness checks.
type HealthResponse struct {
	Status string                    `json:"status"`
	Checks []healthcheck.CheckResult `json:"checks"`
}

func (h *PingHandler) Health(c echo.Context) error {
	checks := []healthcheck.CheckResult{}
	if h.checker != nil {
		checks = h.checker.ListChecks(c.Request().Context())
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status: healthcheck.Overall(checks),
		Checks: checks,
	})
}
