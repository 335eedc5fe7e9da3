package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cinegate/theatre-booking/internal/model"
)

// ShowtimeRepo provides read-only access to showtimes.  The core never
// writes them; it needs the room for seat listings, the start time for
// the cancellation cutoff and the price for order validation.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

// GetByID fetches one showtime.  Returns ErrShowtimeNotFound when no
// row exists.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (model.Showtime, error) {
	var st model.Showtime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, movie_id, room_id, show_time, price FROM showtimes WHERE id = ?`, id,
	).Scan(&st.ID, &st.MovieID, &st.RoomID, &st.ShowTime, &st.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return st, ErrShowtimeNotFound
	}
	st.ShowTime = st.ShowTime.UTC()
	return st, err
}
