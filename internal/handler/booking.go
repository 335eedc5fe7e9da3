package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinegate/theatre-booking/internal/config"
	"github.com/cinegate/theatre-booking/internal/model"
	"github.com/cinegate/theatre-booking/internal/repository"
)

// BookingHandler groups the repositories needed to create, list and
// cancel orders on behalf of customers.  All methods assume JWT
// authentication and role validation have already run; they may still
// return 401 when the user id cannot be extracted from the context.
type BookingHandler struct {
	Cfg       config.Config
	Orders    *repository.OrderRepo
	Showtimes *repository.ShowtimeRepo
}

// NewBookingHandler constructs a BookingHandler.  All dependencies
// must be non-nil.
func NewBookingHandler(cfg config.Config, orders *repository.OrderRepo, showtimes *repository.ShowtimeRepo) *BookingHandler {
	if orders == nil || showtimes == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Cfg: cfg, Orders: orders, Showtimes: showtimes}
}

type createOrderReq struct {
	TotalPrice    float64                     `json:"total_price"`
	PaymentMethod string                      `json:"payment_method"`
	DiscountID    *uint64                     `json:"discount_id"`
	Tickets       []repository.TicketRequest  `json:"tickets"`
	Products      []repository.ProductRequest `json:"products"`
}

type orderResp struct {
	ID                   uint64     `json:"id"`
	UserID               uint64     `json:"user_id"`
	TotalPrice           float64    `json:"total_price"`
	PaymentMethod        string     `json:"payment_method"`
	Status               string     `json:"status"`
	ReservationExpiresAt *time.Time `json:"reservation_expires_at,omitempty"`
	OrderedAt            time.Time  `json:"ordered_at"`
}

// CreateOrder handles POST /v1/orders.  It books seats and concession
// products in one atomic write and returns 201 with the pending order
// holding its seats until the reservation deadline.  Both the ticket
// and the product list may be empty; an order with neither is rejected.
func (h *BookingHandler) CreateOrder(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_method is required"})
	}
	if req.TotalPrice < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_price must not be negative"})
	}
	if len(req.Tickets) == 0 && len(req.Products) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order must contain tickets or products"})
	}
	if err := repository.ValidateTicketRequests(req.Tickets); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	for _, p := range req.Products {
		if p.ProductID == 0 || p.Quantity == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product line"})
		}
	}

	ctx := c.Request().Context()

	// Resolve each referenced showtime once up front so a typo'd id
	// surfaces as 404 instead of a foreign-key failure mid-transaction.
	seen := make(map[uint64]struct{}, len(req.Tickets))
	for _, t := range req.Tickets {
		if _, ok := seen[t.ShowtimeID]; ok {
			continue
		}
		seen[t.ShowtimeID] = struct{}{}
		if _, err := h.Showtimes.GetByID(ctx, t.ShowtimeID); err != nil {
			if errors.Is(err, repository.ErrShowtimeNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}

	order := &model.Order{
		UserID:        userID,
		TotalPrice:    req.TotalPrice,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		DiscountID:    req.DiscountID,
	}
	expiresAt := time.Now().UTC().Add(h.Cfg.ReservationTTL)
	if err := h.Orders.Create(ctx, order, req.Tickets, req.Products, expiresAt); err != nil {
		switch {
		case errors.Is(err, repository.ErrSeatReserved):
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		case errors.Is(err, repository.ErrDuplicateSeat):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
		}
	}
	return c.JSON(http.StatusCreated, orderResp{
		ID:                   order.ID,
		UserID:               order.UserID,
		TotalPrice:           order.TotalPrice,
		PaymentMethod:        order.PaymentMethod,
		Status:               order.Status,
		ReservationExpiresAt: order.ReservationExpiresAt,
		OrderedAt:            order.OrderedAt,
	})
}

// ListMyOrders handles GET /v1/my-orders.  It returns every order the
// current user has placed, newest first, enriched with showtime, seat
// and product detail.  An empty history yields an empty array.
func (h *BookingHandler) ListMyOrders(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Orders.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load orders"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// CancelOrder handles POST /v1/orders/:id/cancel.  Owners may cancel
// their own orders up to the pre-show cutoff; admins may cancel any
// order.  Rows are released, not deleted; the reconciler purges them.
func (h *BookingHandler) CancelOrder(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	isAdmin := getRole(c) == model.RoleAdmin

	err = h.Orders.Cancel(c.Request().Context(), orderID, userID, isAdmin, h.Cfg.CancelCutoff)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not own this order"})
		case errors.Is(err, repository.ErrAlreadyCancelled),
			errors.Is(err, repository.ErrCancelFailedOrder),
			errors.Is(err, repository.ErrTooLateToCancel):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"success":  false,
				"message":  err.Error(),
				"order_id": orderID,
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel order"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"message":  "order cancelled",
		"order_id": orderID,
	})
}
