// Package handler defines the HTTP layer: request binding, principal
// extraction and translation of service errors to status codes.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/repository"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// principalFrom builds the caller's identity from the claims JWTAuth stored
// in the context.
func principalFrom(c echo.Context) (service.Principal, error) {
	uid, err := getUserID(c)
	if err != nil {
		return service.Principal{}, err
	}
	role, _ := c.Get("role").(string)
	return service.Principal{UserID: uid, Admin: role == "ADMIN"}, nil
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// writeServiceError maps service and repository errors onto HTTP responses.
// Handlers with endpoint-specific mappings check their cases before
// falling through to this.
func writeServiceError(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "field": ve.Field, "message": ve.Message})
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrReservationNotFound),
		errors.Is(err, repository.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrInsufficientSeats):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "not enough available seats"})
	case errors.Is(err, service.ErrPastEvent):
		return c.JSON(http.StatusConflict, echo.Map{"error": "event already started"})
	case errors.Is(err, service.ErrInvalidPrice):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid price"})
	case errors.Is(err, repository.ErrCapacityBelowReserved):
		return c.JSON(http.StatusConflict, echo.Map{"error": "total seats below reserved count"})
	case errors.Is(err, repository.ErrAlreadyPaid):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation already paid"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflicting payment state"})
	case errors.Is(err, repository.ErrBusy):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, retry later"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
