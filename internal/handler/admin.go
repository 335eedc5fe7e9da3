package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/cinegate/theatre-booking/internal/repository"
)

// AdminHandler exposes the operational endpoints: triggering a
// reconciler pass on demand and hard-deleting orders.
type AdminHandler struct {
	Orders *repository.OrderRepo
}

// NewAdminHandler constructs an AdminHandler; Orders must be non-nil.
func NewAdminHandler(orders *repository.OrderRepo) *AdminHandler {
	if orders == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Orders: orders}
}

// TriggerCleanup handles POST /v1/admin/reservations/cleanup.  It runs
// one expire+purge pass immediately, without waiting for the next
// scheduled sweep, and reports how many orders were processed.
func (h *AdminHandler) TriggerCleanup(c echo.Context) error {
	n, err := h.Orders.Cleanup(c.Request().Context())
	if err != nil {
		logrus.WithError(err).Error("manual cleanup failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cleanup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"cancelled_orders": n})
}

// DeleteOrder handles DELETE /v1/admin/orders/:id.  It removes the
// order and everything it owns in one transaction.  204 on success.
func (h *AdminHandler) DeleteOrder(c echo.Context) error {
	orderID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	if err := h.Orders.Delete(c.Request().Context(), orderID); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete order"})
	}
	return c.NoContent(http.StatusNoContent)
}
