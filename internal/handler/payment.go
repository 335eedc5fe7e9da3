package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/cinegate/theatre-booking/internal/model"
	"github.com/cinegate/theatre-booking/internal/repository"
	"github.com/cinegate/theatre-booking/internal/service"
)

// PaymentHandler resolves payment outcomes for pending orders.  The
// simulated gateway reports its outcome in the request body; the
// handler's job is the state transition, the hold bookkeeping and the
// confirmation side effect.
type PaymentHandler struct {
	Orders   *repository.OrderRepo
	Notifier *service.Notifier
}

// NewPaymentHandler constructs a PaymentHandler; Orders must be
// non-nil.  Notifier may be nil, which disables confirmations.
func NewPaymentHandler(orders *repository.OrderRepo, notifier *service.Notifier) *PaymentHandler {
	if orders == nil {
		panic("nil repository passed to NewPaymentHandler")
	}
	return &PaymentHandler{Orders: orders, Notifier: notifier}
}

type processPaymentReq struct {
	PaymentMethod string `json:"payment_method"`
	Success       bool   `json:"success"`
}

// ProcessPayment handles POST /v1/orders/:id/payment.
//
// The transition rules: an order must exist and still be pending.  A
// hold that has already lapsed is force-cancelled first and the call
// fails as expired; the client then sees the same outcome the sweep
// would have produced.  A success outcome completes the order and
// keeps the seats sold; a failure outcome fails the order and releases
// them.  Both writes carry a status guard so a concurrent transition
// surfaces as a definite "not pending" answer instead of a lost update.
func (h *PaymentHandler) ProcessPayment(c echo.Context) error {
	orderID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var req processPaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment method is required"})
	}
	ctx := c.Request().Context()

	order, err := h.Orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if order.Status == model.StatusPending && order.ReservationExpiresAt != nil &&
		time.Now().UTC().After(order.ReservationExpiresAt.UTC()) {
		if err := h.Orders.ForceCancel(ctx, orderID); err != nil {
			var np *repository.NotPendingError
			if !errors.As(err, &np) {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel expired order"})
			}
			// A concurrent writer resolved the order first; fall through to
			// report whichever status it settled on.
			order.Status = np.Status
		} else {
			order.Status = model.StatusCancelled
		}
		if order.Status == model.StatusCancelled {
			return c.JSON(http.StatusBadRequest, paymentResult(false, "order reservation has expired", orderID))
		}
	}

	if order.Status != model.StatusPending {
		msg := fmt.Sprintf("order is not pending (current status: %s)", order.Status)
		return c.JSON(http.StatusBadRequest, paymentResult(false, msg, orderID))
	}

	if req.Success {
		err = h.Orders.MarkCompleted(ctx, orderID)
	} else {
		err = h.Orders.MarkFailed(ctx, orderID)
	}
	if err != nil {
		var np *repository.NotPendingError
		switch {
		case errors.As(err, &np):
			return c.JSON(http.StatusBadRequest, paymentResult(false, np.Error(), orderID))
		case errors.Is(err, repository.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to process payment"})
		}
	}

	// A declined payment is a business failure: the order is settled as
	// failed and the seats are released, but the outcome reported to the
	// caller is a 400 with success=false.
	if !req.Success {
		return c.JSON(http.StatusBadRequest, paymentResult(false, "payment failed, seats released", orderID))
	}

	if h.Notifier != nil {
		// Detached from the request: the confirmation must never block or
		// fail the payment response.
		go func(id uint64) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.Notifier.SendBookingConfirmation(ctx, id); err != nil {
				logrus.WithField("order_id", id).WithError(err).Error("booking confirmation failed")
			}
		}(orderID)
	}
	return c.JSON(http.StatusOK, paymentResult(true, "payment completed", orderID))
}

func paymentResult(success bool, message string, orderID uint64) echo.Map {
	return echo.Map{"success": success, "message": message, "order_id": orderID}
}

// timeRemainingSeconds converts a hold deadline into whole seconds
// remaining, clamped at zero.  A nil deadline stays nil so the client
// can tell "no hold" apart from "hold just ran out".
func timeRemainingSeconds(expiresAt *time.Time, now time.Time) *int64 {
	if expiresAt == nil {
		return nil
	}
	secs := int64(expiresAt.Sub(now) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &secs
}

// PaymentStatus handles GET /v1/orders/:id/payment-status.  Read-only.
func (h *PaymentHandler) PaymentStatus(c echo.Context) error {
	orderID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	order, err := h.Orders.GetByID(c.Request().Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":         order.Status,
		"expires_at":     order.ReservationExpiresAt,
		"time_remaining": timeRemainingSeconds(order.ReservationExpiresAt, time.Now().UTC()),
	})
}
