package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinegate/theatre-booking/internal/repository"
)

// SeatHandler serves the public seating chart.
type SeatHandler struct {
	Seats *repository.SeatRepo
}

// seatResp is the wire shape of one seat in the availability listing.
type seatResp struct {
	ID         uint64 `json:"id"`
	SeatNumber string `json:"seat_number"`
	IsReserved bool   `json:"is_reserved"`
}

// NewSeatHandler constructs a SeatHandler; Seats must be non-nil.
func NewSeatHandler(seats *repository.SeatRepo) *SeatHandler {
	if seats == nil {
		panic("nil repository passed to NewSeatHandler")
	}
	return &SeatHandler{Seats: seats}
}

// SeatsForShowtime handles GET /v1/showtimes/:id/seats.  It returns
// every seat in the showtime's room with its reservation flag.  An
// unknown showtime yields 200 with an empty list rather than 404: the
// caller asked what seats there are to show, and the answer is none.
func (h *SeatHandler) SeatsForShowtime(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	seats, err := h.Seats.ListForShowtime(c.Request().Context(), showtimeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	items := make([]seatResp, 0, len(seats))
	for _, s := range seats {
		items = append(items, seatResp{ID: s.ID, SeatNumber: s.SeatNumber, IsReserved: s.IsReserved})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
