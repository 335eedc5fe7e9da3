package model

import "time"

// Showtime is a movie screening in a room at a point in time.  The core
// treats showtimes as read-only: it resolves the room for seat listings
// and the start time for the cancellation cutoff.
type Showtime struct {
	ID       uint64    // showtimes.id
	MovieID  uint64    // showtimes.movie_id
	RoomID   uint64    // showtimes.room_id
	ShowTime time.Time // showtimes.show_time (UTC)
	Price    float64   // showtimes.price
}
