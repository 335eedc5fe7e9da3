package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ConfirmationDetail is everything the booking-confirmed notification
// needs, assembled at publish time so downstream consumers never query
// the primary database.
type ConfirmationDetail struct {
	OrderID       uint64
	CustomerName  string
	CustomerEmail string
	MovieTitle    string
	CinemaName    string
	CinemaAddress string
	RoomName      string
	ShowTime      time.Time
	TicketPrice   float64
	SeatNumbers   []string
	Products      []OrderProductLine
	TotalPrice    float64
}

// ConfirmationDetail gathers notification data for a completed order.
// Missing collaborator rows (a deleted movie, a user without a name)
// degrade to zero values rather than failing: the notification is
// best-effort by design.  Returns ErrOrderNotFound when the order
// itself is gone.
func (r *OrderRepo) ConfirmationDetail(ctx context.Context, orderID uint64) (ConfirmationDetail, error) {
	var d ConfirmationDetail
	var fullName, email sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT o.id, o.total_price, u.email, u.full_name
		 FROM orders o JOIN users u ON u.id = o.user_id
		 WHERE o.id = ?`, orderID,
	).Scan(&d.OrderID, &d.TotalPrice, &email, &fullName)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrOrderNotFound
	}
	if err != nil {
		return d, err
	}
	d.CustomerEmail = email.String
	d.CustomerName = fullName.String
	if d.CustomerName == "" {
		d.CustomerName = d.CustomerEmail
	}

	// All tickets on an order share one showtime in practice; take the
	// screening context from the first and collect every seat number.
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.seat_number, st.show_time, st.price, m.title, rm.name, c.name, c.address
		 FROM tickets t
		 JOIN seats s ON s.id = t.seat_id
		 JOIN showtimes st ON st.id = t.showtime_id
		 LEFT JOIN movies m ON m.id = st.movie_id
		 LEFT JOIN rooms rm ON rm.id = st.room_id
		 LEFT JOIN cinemas c ON c.id = rm.cinema_id
		 WHERE t.order_id = ?
		 ORDER BY s.seat_number`, orderID)
	if err != nil {
		return d, err
	}
	defer rows.Close()
	for rows.Next() {
		var seatNumber string
		var showTime time.Time
		var price float64
		var movie, room, cinema, address sql.NullString
		if err := rows.Scan(&seatNumber, &showTime, &price, &movie, &room, &cinema, &address); err != nil {
			return d, err
		}
		d.SeatNumbers = append(d.SeatNumbers, seatNumber)
		d.ShowTime = showTime.UTC()
		d.TicketPrice = price
		d.MovieTitle = movie.String
		d.RoomName = room.String
		d.CinemaName = cinema.String
		d.CinemaAddress = address.String
	}
	if err := rows.Err(); err != nil {
		return d, err
	}

	prodRows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.price, pd.quantity
		 FROM order_product_details pd JOIN products p ON p.id = pd.product_id
		 WHERE pd.order_id = ?`, orderID)
	if err != nil {
		return d, err
	}
	defer prodRows.Close()
	for prodRows.Next() {
		var line OrderProductLine
		if err := prodRows.Scan(&line.ProductID, &line.ProductName, &line.Price, &line.Quantity); err != nil {
			return d, err
		}
		d.Products = append(d.Products, line)
	}
	return d, prodRows.Err()
}
