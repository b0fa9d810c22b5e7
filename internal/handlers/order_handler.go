package handlers

import (
	"mythmanga/internal/logger"
	"mythmanga/internal/middleware"
	"mythmanga/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for order history.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the order routes. ClientIdentity and AuthOptional
// must run first.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Post("/reconcile", h.HandleReconcile)
}

// HandleGetOrders returns the caller's orders, newest first. Guests and record
// store outages get the client's local list; the "source" field says which.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	history, err := h.service.History(c.UserContext(), middleware.UserID(c), middleware.ClientID(c))
	if err != nil {
		logger.Get().Error("Error reading order history", zap.String("client_id", middleware.ClientID(c)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
		})
	}
	return c.JSON(history)
}

// HandleReconcile reports local orders missing from the record store and,
// with ?repair=true, inserts them. Repair requires a signed-in caller.
func (h *OrderHandler) HandleReconcile(c *fiber.Ctx) error {
	repair := c.QueryBool("repair", false)
	if repair && middleware.UserID(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Sign in to repair orders",
		})
	}
	report, err := h.service.Reconcile(c.UserContext(), middleware.ClientID(c), repair)
	if err != nil {
		logger.Get().Error("Error reconciling orders", zap.String("client_id", middleware.ClientID(c)), zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Could not reach the order store",
		})
	}
	return c.JSON(report)
}
