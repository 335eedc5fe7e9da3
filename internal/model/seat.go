package model

// Seat describes a physical seat in a room.  Whether a seat is taken is
// never stored here: it is derived per showtime from live tickets.
type Seat struct {
	ID         uint64 // seats.id
	RoomID     uint64 // seats.room_id
	SeatNumber string // seats.seat_number (e.g. "A1")
}

// SeatAvailability is a seat annotated with its reservation state for
// one specific showtime.
type SeatAvailability struct {
	Seat
	IsReserved bool
}
