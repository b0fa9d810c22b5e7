package handlers

import (
	"errors"

	"mythmanga/internal/logger"
	"mythmanga/internal/middleware"
	"mythmanga/internal/repositories"
	"mythmanga/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CartHandler manages the client's cart. Routes expect ClientIdentity upstream.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

func NewCartHandler(service *services.CartService, validate *validator.Validate) *CartHandler {
	return &CartHandler{service: service, validate: validate}
}

func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Delete("/", h.HandleClearCart)
}

func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.Get(c.UserContext(), middleware.ClientID(c))
	if err != nil {
		logger.Get().Error("Error reading cart", zap.String("client_id", middleware.ClientID(c)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not read cart",
		})
	}
	return c.JSON(fiber.Map{
		"cart":     cart,
		"subtotal": cart.Subtotal(),
	})
}

func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req services.AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	cart, err := h.service.AddItem(c.UserContext(), middleware.ClientID(c), req)
	switch {
	case errors.Is(err, repositories.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Product not found",
		})
	case errors.Is(err, services.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Not enough stock",
			"error":   err.Error(),
		})
	case err != nil:
		logger.Get().Error("Error adding cart item", zap.String("product_id", req.ProductID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update cart",
		})
	}

	return c.JSON(fiber.Map{
		"cart":     cart,
		"subtotal": cart.Subtotal(),
	})
}

func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	if err := h.service.Clear(c.UserContext(), middleware.ClientID(c)); err != nil {
		logger.Get().Error("Error clearing cart", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not clear cart",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
