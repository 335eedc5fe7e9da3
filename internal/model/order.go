package model

import "time"

// Order statuses.  An order starts as pending and moves to exactly one
// terminal status: completed (paid), failed (payment declined) or
// cancelled (expired hold or user cancellation).  Terminal statuses are
// absorbing; no operation may overwrite one with another.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// IsTerminal reports whether a status permits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Order represents one booking transaction.  It owns its tickets and
// product lines: they are created with it in a single transaction and
// deleted with it when the reconciler purges a cancelled order.
//
// Fields:
//  ID                   – primary key identifier.
//  UserID               – user who placed the order.
//  TotalPrice           – total price for tickets and products.
//  PaymentMethod        – payment method chosen at creation.
//  Status               – pending, completed, failed or cancelled.
//  ReservationExpiresAt – hold deadline; non-nil only while the order is
//                         pending with a live seat hold, cleared on any
//                         terminal transition.
//  PaidAt               – when payment completed (nil until then).
//  DiscountID           – optional discount applied to the order.
//  OrderedAt            – when the order was placed.
type Order struct {
	ID                   uint64     // orders.id
	UserID               uint64     // orders.user_id
	TotalPrice           float64    // orders.total_price
	PaymentMethod        string     // orders.payment_method
	Status               string     // orders.status
	ReservationExpiresAt *time.Time // orders.reservation_expires_at (nullable)
	PaidAt               *time.Time // orders.paid_at (nullable)
	DiscountID           *uint64    // orders.discount_id (nullable)
	OrderedAt            time.Time  // orders.ordered_at
}

// Ticket is one seat held or purchased within an order for a showtime.
// While IsReserved is true the (showtime, seat) pair is taken; the
// database enforces at most one live ticket per pair.  ReservedUntil
// mirrors the order-level hold at seat granularity and is cleared on
// payment success (the seat stays sold) as well as on release.
//
// Fields:
//  ID            – primary key identifier.
//  OrderID       – owning order; tickets cascade with the order lifecycle.
//  ShowtimeID    – showtime the seat is booked for.
//  SeatID        – seat being booked.
//  IsReserved    – true while the seat is held or sold.
//  ReservedUntil – hold deadline at the seat level (nullable).
type Ticket struct {
	ID            uint64     // tickets.id
	OrderID       uint64     // tickets.order_id
	ShowtimeID    uint64     // tickets.showtime_id
	SeatID        uint64     // tickets.seat_id
	IsReserved    bool       // tickets.is_reserved
	ReservedUntil *time.Time // tickets.reserved_until (nullable)
}

// OrderProduct is a concession line item on an order.  The pair
// (OrderID, ProductID) is the composite key.
type OrderProduct struct {
	OrderID   uint64 // order_product_details.order_id
	ProductID uint64 // order_product_details.product_id
	Quantity  uint32 // order_product_details.quantity
}
