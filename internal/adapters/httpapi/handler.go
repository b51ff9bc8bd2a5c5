package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bandScalper/internal/ports"
)

type handler struct {
	ctrl   Controller
	logger ports.Logger
}

type controlResponse struct {
	Running bool   `json:"running"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/status", h.Status)
	e.POST("/stop", h.Stop)
	e.POST("/start", h.Start)
	e.GET("/healthz", h.Health)
}

// Status returns the latest committed state.
func (h *handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.ctrl.Status())
}

// Stop asks the loop to stop after its current cycle.
func (h *handler) Stop(c echo.Context) error {
	h.ctrl.Stop()
	h.logger.Info(c.Request().Context(), "Stop requested via HTTP")
	return c.JSON(http.StatusOK, controlResponse{Running: false, Message: "stopping after the current cycle"})
}

// Start restarts a stopped or halted loop.
func (h *handler) Start(c echo.Context) error {
	if err := h.ctrl.Resume(); err != nil {
		h.logger.Warn(c.Request().Context(), "Start via HTTP rejected", map[string]interface{}{"error": err.Error()})
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	}
	h.logger.Info(c.Request().Context(), "Start requested via HTTP")
	return c.JSON(http.StatusOK, controlResponse{Running: h.ctrl.Status().Running, Message: "evaluation loop running"})
}

// Health reports liveness plus whether the loop is running.
func (h *handler) Health(c echo.Context) error {
	st := h.ctrl.Status()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"running": st.Running,
	})
}
