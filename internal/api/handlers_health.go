// handlers_health.go - Health and maintenance handlers
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HandleHealth returns server health status
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleCleanup sweeps stale partitions and reports the result in plain text.
func (h *Handler) HandleCleanup(c echo.Context) error {
	res, err := h.sweeper.Sweep(c.Request().Context())
	if err != nil {
		return NewInternalError("cleanup failed", err)
	}
	msg := fmt.Sprintf("Cleanup complete: removed %d of %d partitions.", len(res.Removed), res.Scanned)
	if len(res.Failed) > 0 {
		msg += fmt.Sprintf(" %d could not be removed.", len(res.Failed))
	}
	return c.String(http.StatusOK, msg)
}
