package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/cinegate/theatre-booking/internal/model"
)

func newMockRepo(t *testing.T) (*OrderRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewOrderRepo(db), mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateRejectsOccupiedSeat(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tickets WHERE showtime_id = \? AND seat_id = \? AND is_reserved = 1`).
		WithArgs(1, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(99))
	mock.ExpectRollback()

	order := &model.Order{UserID: 42, TotalPrice: 10, PaymentMethod: "card"}
	err := repo.Create(context.Background(), order,
		[]TicketRequest{{ShowtimeID: 1, SeatID: 7}}, nil, time.Now().Add(5*time.Minute))
	if !errors.Is(err, ErrSeatReserved) {
		t.Fatalf("err = %v, want ErrSeatReserved", err)
	}
	expectMet(t, mock)
}

func TestCreateTranslatesInsertRaceToSeatReserved(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	// The fast-path check sees the seat free, then a concurrent insert
	// wins and the unique key fires 1062 on our insert.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tickets WHERE showtime_id = \? AND seat_id = \?`).
		WithArgs(1, 7).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO orders`).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectExec(`INSERT INTO tickets`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	order := &model.Order{UserID: 42, TotalPrice: 10, PaymentMethod: "card"}
	err := repo.Create(context.Background(), order,
		[]TicketRequest{{ShowtimeID: 1, SeatID: 7}}, nil, time.Now().Add(5*time.Minute))
	if !errors.Is(err, ErrSeatReserved) {
		t.Fatalf("err = %v, want ErrSeatReserved", err)
	}
	expectMet(t, mock)
}

func TestListByUserQueriesPerTable(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	ordered := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	show := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)

	// The order rows come from a single-table query with no joins and no
	// GROUP BY; showtime context, seats and products follow as one IN
	// query each.
	mock.ExpectQuery(`(?s)SELECT id, total_price, payment_method, status,\s+reservation_expires_at, paid_at, ordered_at\s+FROM orders\s+WHERE user_id = \?\s+ORDER BY ordered_at DESC`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "total_price", "payment_method", "status",
			"reservation_expires_at", "paid_at", "ordered_at",
		}).
			AddRow(1, 25.5, "card", "completed", nil, ordered, ordered).
			AddRow(2, 6.0, "cash", "pending", ordered.Add(5*time.Minute), nil, ordered))
	mock.ExpectQuery(`(?s)SELECT t\.order_id, st\.show_time, m\.title, rm\.name, c\.name\s+FROM tickets t`).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "show_time", "title", "room", "cinema"}).
			AddRow(1, show, "Heat", "R1", "Downtown").
			AddRow(1, show, "Heat", "R1", "Downtown"))
	mock.ExpectQuery(`(?s)SELECT t\.order_id, s\.id, s\.seat_number\s+FROM tickets t JOIN seats s`).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "seat_id", "seat_number"}).
			AddRow(1, 11, "A1").
			AddRow(1, 12, "A2"))
	mock.ExpectQuery(`(?s)SELECT d\.order_id, p\.id, p\.name, p\.price, d\.quantity\s+FROM order_product_details d`).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "name", "price", "quantity"}).
			AddRow(2, 5, "Popcorn", 6.0, 1))

	details, err := repo.ListByUser(context.Background(), 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("got %d orders, want 2", len(details))
	}
	first := details[0]
	if first.ID != 1 || first.ShowTime == nil || !first.ShowTime.Equal(show) {
		t.Fatalf("order 1 showtime context not assembled: %+v", first)
	}
	if first.MovieTitle == nil || *first.MovieTitle != "Heat" {
		t.Fatalf("order 1 movie = %v, want Heat", first.MovieTitle)
	}
	if len(first.Seats) != 2 || first.Seats[0].SeatNumber != "A1" {
		t.Fatalf("order 1 seats = %+v", first.Seats)
	}
	second := details[1]
	if second.ShowTime != nil {
		t.Fatal("products-only order should have no showtime context")
	}
	if len(second.Products) != 1 || second.Products[0].ProductName != "Popcorn" {
		t.Fatalf("order 2 products = %+v", second.Products)
	}
	expectMet(t, mock)
}

func TestExpireDueOrdersSkipsSettledOrders(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id FROM orders WHERE status = 'pending' AND reservation_expires_at <`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	// Order 1 expires cleanly.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders SET status = \?, reservation_expires_at = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tickets SET is_reserved = 0, active = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Order 2 was paid between the select and the cancel: the guard
	// matches no row and the sweep moves on without counting it.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders SET status = \?, reservation_expires_at = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM orders WHERE id = \?`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))
	mock.ExpectRollback()

	n, err := repo.ExpireDueOrders(context.Background())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired count = %d, want 1", n)
	}
	expectMet(t, mock)
}

func TestPurgeCancelledIsIdempotent(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	// First pass deletes the one cancelled order, children first.
	mock.ExpectQuery(`SELECT id FROM orders WHERE status = 'cancelled'`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM tickets WHERE order_id = \?`).
		WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM order_product_details WHERE order_id = \?`).
		WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM orders WHERE id = \?`).
		WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := repo.PurgeCancelled(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("first purge = (%d, %v), want (1, nil)", n, err)
	}

	// Second pass finds nothing left to do.
	mock.ExpectQuery(`SELECT id FROM orders WHERE status = 'cancelled'`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	n, err = repo.PurgeCancelled(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second purge = (%d, %v), want (0, nil)", n, err)
	}
	expectMet(t, mock)
}
