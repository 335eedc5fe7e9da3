package repository // repository defines data access for seats

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cinegate/theatre-booking/internal/model"
)

// SeatRepo provides read access to the seating chart.  Seat rows are
// static per room; the reserved flag is always computed against live
// tickets for a specific showtime.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// ListForShowtime returns every seat in the showtime's room annotated
// with whether a live ticket holds it for that showtime.  An unknown
// showtime yields an empty list, not an error: there are simply no
// seats to show.
func (r *SeatRepo) ListForShowtime(ctx context.Context, showtimeID uint64) ([]model.SeatAvailability, error) {
	var roomID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT room_id FROM showtimes WHERE id = ?`, showtimeID,
	).Scan(&roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return []model.SeatAvailability{}, nil
	}
	if err != nil {
		return nil, err
	}

	// The LEFT JOIN leaves t.id NULL for free seats; EXISTS-style
	// matching on (showtime, seat, live) rides the uq_live_seat index.
	const q = `SELECT s.id, s.room_id, s.seat_number, t.id IS NOT NULL
	           FROM seats s
	           LEFT JOIN tickets t
	             ON t.seat_id = s.id AND t.showtime_id = ? AND t.is_reserved = 1
	           WHERE s.room_id = ?
	           ORDER BY s.seat_number`
	rows, err := r.db.QueryContext(ctx, q, showtimeID, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]model.SeatAvailability, 0)
	for rows.Next() {
		var sa model.SeatAvailability
		if err := rows.Scan(&sa.ID, &sa.RoomID, &sa.SeatNumber, &sa.IsReserved); err != nil {
			return nil, err
		}
		seats = append(seats, sa)
	}
	return seats, rows.Err()
}
