package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

// PaymentHandler exposes payment endpoints.
type PaymentHandler struct {
	Payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	if payments == nil {
		panic("nil service passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: payments}
}

type payReq struct {
	ReservationID uint64 `json:"reservation_id"`
	PaymentMethod string `json:"payment_method"`
}

// Create handles POST /v1/payments.  A reservation that does not exist or
// belongs to someone else is reported as 400 rather than 404/403 so the
// response does not leak which reservation ids exist.  A payment still
// pending after the processor timeout answers 202.
func (h *PaymentHandler) Create(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req payReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	pay, err := h.Payments.Pay(c.Request().Context(), p, req.ReservationID, req.PaymentMethod)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) || errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation"})
		}
		return writeServiceError(c, err)
	}
	if pay.Status == model.PaymentPending {
		return c.JSON(http.StatusAccepted, pay)
	}
	return c.JSON(http.StatusCreated, pay)
}

// Get handles GET /v1/payments/:id.
func (h *PaymentHandler) Get(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	pay, err := h.Payments.Get(c.Request().Context(), p, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, pay)
}

// Refund handles POST /v1/payments/:id/refund (admin only).
func (h *PaymentHandler) Refund(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	pay, err := h.Payments.Refund(c.Request().Context(), p, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, pay)
}
