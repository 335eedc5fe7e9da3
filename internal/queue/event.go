// Package queue defines message payloads exchanged over the message broker.
package queue

// ProductLine is one concession line carried in a booking confirmation.
type ProductLine struct {
	Name     string  `json:"name"`
	Quantity uint32  `json:"quantity"`
	Price    float64 `json:"price"`
}

// BookingConfirmedEvent is published when an order's payment completes.
// It carries enough information for downstream consumers to notify the
// customer or feed analytics without querying the primary database.
type BookingConfirmedEvent struct {
	OrderID       uint64        `json:"order_id"`
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email"`
	MovieTitle    string        `json:"movie_title"`
	CinemaName    string        `json:"cinema_name"`
	CinemaAddress string        `json:"cinema_address"`
	RoomName      string        `json:"room_name"`
	ShowTime      string        `json:"show_time"`
	TicketPrice   float64       `json:"ticket_price"`
	Seats         []string      `json:"seats"`
	Products      []ProductLine `json:"products"`
	TotalPrice    float64       `json:"total_price"`
	ConfirmedAt   string        `json:"confirmed_at"`
}
