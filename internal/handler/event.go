package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticket-reservation/internal/repository"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

// EventHandler exposes event CRUD and discovery endpoints.
type EventHandler struct {
	Events *service.EventService
}

func NewEventHandler(events *service.EventService) *EventHandler {
	if events == nil {
		panic("nil service passed to NewEventHandler")
	}
	return &EventHandler{Events: events}
}

type createEventReq struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Location    string          `json:"location"`
	TotalSeats  uint32          `json:"total_seats"`
	Price       decimal.Decimal `json:"price"`
}

type updateEventReq struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Date        *time.Time       `json:"date"`
	Location    *string          `json:"location"`
	TotalSeats  *uint32          `json:"total_seats"`
	Price       *decimal.Decimal `json:"price"`
}

// Create handles POST /v1/events.
func (h *EventHandler) Create(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ev, err := h.Events.Create(c.Request().Context(), p, service.CreateEventParams{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		TotalSeats:  req.TotalSeats,
		Price:       req.Price,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// List handles GET /v1/events.
func (h *EventHandler) List(c echo.Context) error {
	events, err := h.Events.List(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ev, err := h.Events.Get(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Search handles GET /v1/events/search with q, location, from, to, page
// and page_size query parameters.
func (h *EventHandler) Search(c echo.Context) error {
	q := repository.EventSearchQuery{
		Text:     c.QueryParam("q"),
		Location: c.QueryParam("location"),
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from, want RFC3339"})
		}
		q.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to, want RFC3339"})
		}
		q.To = t
	}
	if v := c.QueryParam("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Page = n
		}
	}
	if v := c.QueryParam("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.PageSize = n
		}
	}

	events, total, err := h.Events.Search(c.Request().Context(), q)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events, "total": total})
}

// Update handles PUT/PATCH /v1/events/:id.  Resizes that would drop total
// seats below the reserved count are rejected; nothing changes in that
// case.
func (h *EventHandler) Update(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req updateEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ev, err := h.Events.Update(c.Request().Context(), p, id, service.UpdateEventParams{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		TotalSeats:  req.TotalSeats,
		Price:       req.Price,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Delete handles DELETE /v1/events/:id.
func (h *EventHandler) Delete(c echo.Context) error {
	p, err := principalFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	if err := h.Events.Delete(c.Request().Context(), p, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
