// Package router wires handlers and middleware to routes.  Groups are
// laid out by audience: public routes, authenticated customer routes
// and admin-only operational routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinegate/theatre-booking/internal/handler"
	"github.com/cinegate/theatre-booking/internal/middleware"
	"github.com/cinegate/theatre-booking/internal/model"
)

// Handlers carries every handler the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	Seats   *handler.SeatHandler
	Booking *handler.BookingHandler
	Payment *handler.PaymentHandler
	Admin   *handler.AdminHandler
}

// Middlewares carries the optional cross-cutting middleware applied to
// selected routes.  Either may be nil, in which case the route simply
// goes unprotected by that concern.
type Middlewares struct {
	RateLimit echo.MiddlewareFunc // applied to order and payment writes
	SeatCache echo.MiddlewareFunc // applied to the public seat listing
}

// Register mounts every route on the Echo instance.
func Register(e *echo.Echo, h Handlers, mw Middlewares, jwtSecret string) {
	e.GET("/healthz", handler.Health)

	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// Public browse: guests check the seat map before registering.
	if mw.SeatCache != nil {
		e.GET("/v1/showtimes/:id/seats", h.Seats.SeatsForShowtime, mw.SeatCache)
	} else {
		e.GET("/v1/showtimes/:id/seats", h.Seats.SeatsForShowtime)
	}

	var limit []echo.MiddlewareFunc
	if mw.RateLimit != nil {
		limit = append(limit, mw.RateLimit)
	}

	// Customer routes.  Admins pass the same gate so they can operate on
	// any order through the shared cancel endpoint.
	customer := e.Group("/v1")
	customer.Use(middleware.JWTAuth(jwtSecret))
	customer.Use(middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))
	customer.POST("/orders", h.Booking.CreateOrder, limit...)
	customer.GET("/my-orders", h.Booking.ListMyOrders)
	customer.POST("/orders/:id/payment", h.Payment.ProcessPayment, limit...)
	customer.GET("/orders/:id/payment-status", h.Payment.PaymentStatus)
	customer.POST("/orders/:id/cancel", h.Booking.CancelOrder)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.POST("/reservations/cleanup", h.Admin.TriggerCleanup)
	admin.DELETE("/orders/:id", h.Admin.DeleteOrder)
}
