// Package router wires handlers to routes and applies the middleware
// chain for each route group.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticket-reservation/internal/config"
	"github.com/iliyamo/event-ticket-reservation/internal/handler"
	"github.com/iliyamo/event-ticket-reservation/internal/middleware"
)

// Handlers aggregates the handler set the router wires up.
type Handlers struct {
	Auth         *handler.AuthHandler
	Events       *handler.EventHandler
	Reservations *handler.ReservationHandler
	Payments     *handler.PaymentHandler
}

// Register sets up the full route table.
//
//	public:     health, metrics, event browsing and search, auth
//	protected:  reservations, payments, profile (JWT, USER or ADMIN role)
//
// Mutating endpoints additionally pass the Redis token-bucket limiter;
// with rate limiting disabled or Redis absent the limiter is a no-op.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	limit := middleware.NewTokenBucket(rlCfg, rdb)

	// Auth endpoints that establish or exchange a session.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register, limit)
	auth.POST("/login", h.Auth.Login, limit)
	auth.POST("/refresh", h.Auth.Refresh, limit)

	// Unauthenticated event browsing.
	e.GET("/v1/events", h.Events.List)
	e.GET("/v1/events/search", h.Events.Search)
	e.GET("/v1/events/:id", h.Events.Get)

	// Everything below requires a valid access token.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole("USER", "ADMIN"))

	v1.GET("/me", h.Auth.Me)
	v1.POST("/auth/logout", h.Auth.Logout)

	v1.POST("/events", h.Events.Create, limit)
	v1.PUT("/events/:id", h.Events.Update, limit)
	v1.PATCH("/events/:id", h.Events.Update, limit)
	v1.DELETE("/events/:id", h.Events.Delete, limit)

	v1.POST("/reservations", h.Reservations.Create, limit)
	v1.GET("/reservations/my", h.Reservations.ListMy)
	v1.DELETE("/reservations/:id", h.Reservations.Cancel, limit)
	v1.DELETE("/reservations/:id/cancel", h.Reservations.Cancel, limit)

	v1.POST("/payments", h.Payments.Create, limit)
	v1.GET("/payments/:id", h.Payments.Get)
	v1.POST("/payments/:id/refund", h.Payments.Refund, limit)
}
