package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

// ReservationHandler exposes seat reservation endpoints.
type ReservationHandler struct {
	Reservations *service.ReservationService
}

func NewReservationHandler(reservations *service.ReservationService) *ReservationHandler {
	if reservations == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: reservations}
}

type reserveReq struct {
	EventID uint64 `json:"event_id"`
	Seats   uint32 `json:"seats"`
}

// Create handles POST /v1/reservations.  The reservation is confirmed
// immediately when the debit succeeds; there is no hold window.
func (h *ReservationHandler) Create(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, err := h.Reservations.Reserve(c.Request().Context(), p, req.EventID, req.Seats)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListMy handles GET /v1/reservations/my and returns the caller's upcoming
// reservations with event details.
func (h *ReservationHandler) ListMy(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Reservations.ListUpcoming(c.Request().Context(), p)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": items})
}

// Cancel handles DELETE /v1/reservations/:id.  Seats return to the event's
// available pool in the same transaction that removes the reservation.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Reservations.Cancel(c.Request().Context(), p, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
