package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/cinegate/theatre-booking/internal/model"
)

// OrderRepo provides persistence for orders and the rows they own:
// tickets and product line items.  Every multi-row mutation runs inside
// a single transaction opened by the method itself, so callers never
// observe a partially applied order.  All timestamps are UTC.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle for callers that need to compose
// their own transactions across repositories.
func (r *OrderRepo) DB() *sql.DB { return r.db }

// TicketRequest is one (showtime, seat) pair requested in an order.
type TicketRequest struct {
	ShowtimeID uint64 `json:"showtime_id"`
	SeatID     uint64 `json:"seat_id"`
}

// ProductRequest is one concession line requested in an order.
type ProductRequest struct {
	ProductID uint64 `json:"product_id"`
	Quantity  uint32 `json:"quantity"`
}

// ValidateTicketRequests rejects requests that name the same
// (showtime, seat) pair more than once.  The duplicate check is pure
// input validation; contention between separate requests is handled by
// the existence check and the unique key at insert time.
func ValidateTicketRequests(tickets []TicketRequest) error {
	seen := make(map[TicketRequest]struct{}, len(tickets))
	for _, t := range tickets {
		if t.ShowtimeID == 0 || t.SeatID == 0 {
			return fmt.Errorf("invalid ticket: showtime %d seat %d", t.ShowtimeID, t.SeatID)
		}
		if _, ok := seen[t]; ok {
			return fmt.Errorf("%w: seat %d for showtime %d", ErrDuplicateSeat, t.SeatID, t.ShowtimeID)
		}
		seen[t] = struct{}{}
	}
	return nil
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (1062), which the live-ticket unique key raises when two transactions
// race for the same seat.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// Create inserts an order together with its tickets and product lines
// in one transaction.  The order is stored as pending with the given
// hold deadline, and every ticket is inserted live (is_reserved=1,
// active=1) with the same deadline.
//
// The per-pair existence check is the friendly fast path: it turns the
// common conflict into ErrSeatReserved before any write happens.  The
// authoritative guard is the unique key on (showtime_id, seat_id,
// active); if a concurrent transaction wins the race between our check
// and our insert, the insert fails with a duplicate-key error which is
// translated to the same ErrSeatReserved.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order, tickets []TicketRequest, products []ProductRequest, expiresAt time.Time) error {
	if err := ValidateTicketRequests(tickets); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, t := range tickets {
		var existing uint64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM tickets WHERE showtime_id = ? AND seat_id = ? AND is_reserved = 1 LIMIT 1`,
			t.ShowtimeID, t.SeatID,
		).Scan(&existing)
		switch {
		case err == nil:
			return fmt.Errorf("%w: seat %d for showtime %d", ErrSeatReserved, t.SeatID, t.ShowtimeID)
		case errors.Is(err, sql.ErrNoRows):
			// free, keep going
		default:
			return err
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, total_price, payment_method, status, reservation_expires_at, discount_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.UserID, o.TotalPrice, o.PaymentMethod, model.StatusPending, expiresAt.UTC(), o.DiscountID,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)

	if len(products) > 0 {
		q := `INSERT INTO order_product_details (order_id, product_id, quantity) VALUES `
		args := make([]interface{}, 0, len(products)*3)
		for i, p := range products {
			if i > 0 {
				q += ","
			}
			q += "(?, ?, ?)"
			args = append(args, o.ID, p.ProductID, p.Quantity)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}

	if len(tickets) > 0 {
		q := `INSERT INTO tickets (order_id, showtime_id, seat_id, is_reserved, active, reserved_until) VALUES `
		args := make([]interface{}, 0, len(tickets)*4)
		for i, t := range tickets {
			if i > 0 {
				q += ","
			}
			q += "(?, ?, ?, 1, 1, ?)"
			args = append(args, o.ID, t.ShowtimeID, t.SeatID, expiresAt.UTC())
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("%w: lost the race for a requested seat", ErrSeatReserved)
			}
			return err
		}
	}

	// Read back DB defaults (status, ordered_at) so the response carries
	// what was actually stored.
	if err := tx.QueryRowContext(ctx,
		`SELECT status, reservation_expires_at, ordered_at FROM orders WHERE id = ?`, o.ID,
	).Scan(&o.Status, &o.ReservationExpiresAt, &o.OrderedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID fetches a single order.  Returns ErrOrderNotFound when no row
// exists.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	var o model.Order
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, total_price, payment_method, status,
		        reservation_expires_at, paid_at, discount_id, ordered_at
		 FROM orders WHERE id = ?`, id,
	).Scan(&o.ID, &o.UserID, &o.TotalPrice, &o.PaymentMethod, &o.Status,
		&o.ReservationExpiresAt, &o.PaidAt, &o.DiscountID, &o.OrderedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrOrderNotFound
	}
	return o, err
}

// MarkCompleted transitions a pending order to completed: paid_at is
// stamped, the hold deadline is cleared, and the tickets keep
// is_reserved=1 (the seats are now sold) but lose their reserved_until.
// The status guard in the UPDATE makes the transition race-safe: if
// another writer got there first, zero rows change and the current
// status is reported via NotPendingError.
func (r *OrderRepo) MarkCompleted(ctx context.Context, orderID uint64) error {
	return r.transition(ctx, orderID, func(tx *sql.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx,
			`UPDATE orders SET status = ?, paid_at = UTC_TIMESTAMP(), reservation_expires_at = NULL
			 WHERE id = ? AND status = ?`,
			model.StatusCompleted, orderID, model.StatusPending)
	}, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE tickets SET reserved_until = NULL WHERE order_id = ?`, orderID)
		return err
	})
}

// MarkFailed transitions a pending order to failed and releases every
// ticket so the seats return to the available pool.
func (r *OrderRepo) MarkFailed(ctx context.Context, orderID uint64) error {
	return r.transition(ctx, orderID, func(tx *sql.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx,
			`UPDATE orders SET status = ?, reservation_expires_at = NULL
			 WHERE id = ? AND status = ?`,
			model.StatusFailed, orderID, model.StatusPending)
	}, releaseTickets(ctx, orderID))
}

// ForceCancel transitions a pending order to cancelled and releases its
// tickets.  It is used when an expired hold is discovered during a
// payment attempt and by the reconciler's expire sweep.
func (r *OrderRepo) ForceCancel(ctx context.Context, orderID uint64) error {
	return r.transition(ctx, orderID, func(tx *sql.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx,
			`UPDATE orders SET status = ?, reservation_expires_at = NULL
			 WHERE id = ? AND status = ?`,
			model.StatusCancelled, orderID, model.StatusPending)
	}, releaseTickets(ctx, orderID))
}

// releaseTickets clears the live flag and hold deadline on all of an
// order's tickets.  Setting active to NULL frees the unique key slot
// for the (showtime, seat) pair.
func releaseTickets(ctx context.Context, orderID uint64) func(tx *sql.Tx) error {
	return func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE tickets SET is_reserved = 0, active = NULL, reserved_until = NULL WHERE order_id = ?`,
			orderID)
		return err
	}
}

// transition runs a guarded order UPDATE plus a ticket follow-up in one
// transaction.  When the guard matches no row it distinguishes a
// missing order from one already in a terminal state.
func (r *OrderRepo) transition(ctx context.Context, orderID uint64, update func(tx *sql.Tx) (sql.Result, error), thenTickets func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := update(tx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, orderID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		return &NotPendingError{Status: status}
	}
	if err := thenTickets(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Cancel performs a user-initiated cancellation.  Ownership is enforced
// unless bypassOwner is set (admin routes clear it before calling).
// The order row is locked for the duration of the transaction so the
// status checks and the update cannot interleave with the reconciler or
// a concurrent payment.  Rows are not deleted here; purging cancelled
// orders is the reconciler's job.
func (r *OrderRepo) Cancel(ctx context.Context, orderID, userID uint64, bypassOwner bool, cutoff time.Duration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var ownerID uint64
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, status FROM orders WHERE id = ? FOR UPDATE`, orderID,
	).Scan(&ownerID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if !bypassOwner && ownerID != userID {
		return ErrForbidden
	}
	switch status {
	case model.StatusCancelled:
		return ErrAlreadyCancelled
	case model.StatusFailed:
		return ErrCancelFailedOrder
	}

	// The pre-show cutoff only applies when the order actually holds
	// seats; a products-only order can be cancelled any time.
	var startTime sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT st.show_time FROM tickets t
		 JOIN showtimes st ON st.id = t.showtime_id
		 WHERE t.order_id = ? LIMIT 1`, orderID,
	).Scan(&startTime)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if startTime.Valid {
		if !time.Now().UTC().Before(startTime.Time.Add(-cutoff)) {
			return ErrTooLateToCancel
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, reservation_expires_at = NULL WHERE id = ?`,
		model.StatusCancelled, orderID,
	); err != nil {
		return err
	}
	if err := releaseTickets(ctx, orderID)(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes an order and everything it owns.  Child rows go first
// to satisfy foreign keys.  Used by the admin delete endpoint; the
// reconciler's purge sweep shares the same deletion order.
func (r *OrderRepo) Delete(ctx context.Context, orderID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := deleteOrderTx(ctx, tx, orderID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// deleteOrderTx deletes tickets, then product lines, then the order row
// itself, within the caller's transaction.
func deleteOrderTx(ctx context.Context, tx *sql.Tx, orderID uint64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE order_id = ?`, orderID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_product_details WHERE order_id = ?`, orderID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// OrderSeat is one booked seat in a user-facing order listing.
type OrderSeat struct {
	SeatID     uint64 `json:"seat_id"`
	SeatNumber string `json:"seat_number"`
}

// OrderProductLine is one concession line in a user-facing order listing.
type OrderProductLine struct {
	ProductID   uint64  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    uint32  `json:"quantity"`
}

// OrderDetail is an order enriched with movie, cinema, room and line
// item information for display to the owning user.
type OrderDetail struct {
	ID                   uint64             `json:"id"`
	TotalPrice           float64            `json:"total_price"`
	PaymentMethod        string             `json:"payment_method"`
	Status               string             `json:"status"`
	ReservationExpiresAt *time.Time         `json:"reservation_expires_at,omitempty"`
	PaidAt               *time.Time         `json:"paid_at,omitempty"`
	OrderedAt            time.Time          `json:"ordered_at"`
	MovieTitle           *string            `json:"movie_title,omitempty"`
	CinemaName           *string            `json:"cinema_name,omitempty"`
	RoomName             *string            `json:"room_name,omitempty"`
	ShowTime             *time.Time         `json:"show_time,omitempty"`
	Seats                []OrderSeat        `json:"seats"`
	Products             []OrderProductLine `json:"products"`
}

// ListByUser returns all orders placed by the given user, newest first,
// each with its showtime context, seats and product lines.  The order
// rows come from a plain single-table query; showtime context, seats
// and products are each fetched with one IN query, so nothing here
// groups over join-derived columns (ONLY_FULL_GROUP_BY rejects that).
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]OrderDetail, error) {
	const q = `SELECT id, total_price, payment_method, status,
	                  reservation_expires_at, paid_at, ordered_at
	           FROM orders
	           WHERE user_id = ?
	           ORDER BY ordered_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]OrderDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var d OrderDetail
		if err := rows.Scan(&d.ID, &d.TotalPrice, &d.PaymentMethod, &d.Status,
			&d.ReservationExpiresAt, &d.PaidAt, &d.OrderedAt); err != nil {
			return nil, err
		}
		d.Seats = []OrderSeat{}
		d.Products = []OrderProductLine{}
		index[d.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}

	ids := make([]interface{}, 0, len(details))
	ph := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
		ph = append(ph, "?")
	}
	in := strings.Join(ph, ",")

	// Screening context rides on the tickets.  All tickets of an order
	// share one showtime in practice; the first row per order wins.
	ctxRows, err := r.db.QueryContext(ctx,
		`SELECT t.order_id, st.show_time, m.title, rm.name, c.name
		 FROM tickets t
		 JOIN showtimes st ON st.id = t.showtime_id
		 LEFT JOIN movies m ON m.id = st.movie_id
		 LEFT JOIN rooms rm ON rm.id = st.room_id
		 LEFT JOIN cinemas c ON c.id = rm.cinema_id
		 WHERE t.order_id IN (`+in+`) ORDER BY t.order_id, t.id`, ids...)
	if err != nil {
		return nil, err
	}
	defer ctxRows.Close()
	for ctxRows.Next() {
		var oid uint64
		var showTime time.Time
		var movie, room, cinema sql.NullString
		if err := ctxRows.Scan(&oid, &showTime, &movie, &room, &cinema); err != nil {
			return nil, err
		}
		i, ok := index[oid]
		if !ok || details[i].ShowTime != nil {
			continue
		}
		st := showTime.UTC()
		details[i].ShowTime = &st
		if movie.Valid {
			details[i].MovieTitle = &movie.String
		}
		if room.Valid {
			details[i].RoomName = &room.String
		}
		if cinema.Valid {
			details[i].CinemaName = &cinema.String
		}
	}
	if err := ctxRows.Err(); err != nil {
		return nil, err
	}

	seatRows, err := r.db.QueryContext(ctx,
		`SELECT t.order_id, s.id, s.seat_number
		 FROM tickets t JOIN seats s ON s.id = t.seat_id
		 WHERE t.order_id IN (`+in+`) ORDER BY t.order_id, s.seat_number`, ids...)
	if err != nil {
		return nil, err
	}
	defer seatRows.Close()
	for seatRows.Next() {
		var oid uint64
		var seat OrderSeat
		if err := seatRows.Scan(&oid, &seat.SeatID, &seat.SeatNumber); err != nil {
			return nil, err
		}
		if i, ok := index[oid]; ok {
			details[i].Seats = append(details[i].Seats, seat)
		}
	}
	if err := seatRows.Err(); err != nil {
		return nil, err
	}

	prodRows, err := r.db.QueryContext(ctx,
		`SELECT d.order_id, p.id, p.name, p.price, d.quantity
		 FROM order_product_details d JOIN products p ON p.id = d.product_id
		 WHERE d.order_id IN (`+in+`) ORDER BY d.order_id, p.id`, ids...)
	if err != nil {
		return nil, err
	}
	defer prodRows.Close()
	for prodRows.Next() {
		var oid uint64
		var line OrderProductLine
		if err := prodRows.Scan(&oid, &line.ProductID, &line.ProductName, &line.Price, &line.Quantity); err != nil {
			return nil, err
		}
		if i, ok := index[oid]; ok {
			details[i].Products = append(details[i].Products, line)
		}
	}
	if err := prodRows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
