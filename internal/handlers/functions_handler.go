package handlers

import (
	"crypto/subtle"

	"mythmanga/internal/gateway"
	"mythmanga/internal/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// FunctionsHandler hosts the order-creation and signature-verification
// procedures the checkout calls remotely.
type FunctionsHandler struct {
	upstream *gateway.Upstream
	apiKey   string
	validate *validator.Validate
}

func NewFunctionsHandler(upstream *gateway.Upstream, apiKey string, validate *validator.Validate) *FunctionsHandler {
	return &FunctionsHandler{upstream: upstream, apiKey: apiKey, validate: validate}
}

// RegisterRoutes mounts the procedures under router, normally /functions/v1.
func (h *FunctionsHandler) RegisterRoutes(router fiber.Router) {
	router.Use(h.requireAPIKey)
	router.Post("/create-payment-order", h.HandleCreatePaymentOrder)
	router.Post("/verify-payment", h.HandleVerifyPayment)
}

func (h *FunctionsHandler) requireAPIKey(c *fiber.Ctx) error {
	if h.apiKey == "" {
		return c.Next()
	}
	if subtle.ConstantTimeCompare([]byte(c.Get("apikey")), []byte(h.apiKey)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid API key",
		})
	}
	return c.Next()
}

func (h *FunctionsHandler) HandleCreatePaymentOrder(c *fiber.Ctx) error {
	var req gateway.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amount and currency are required"})
	}
	if !h.upstream.Configured() {
		logger.Get().Error("Gateway credentials not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Gateway credentials not configured"})
	}

	order, err := h.upstream.CreateOrder(c.UserContext(), req, c.Get(gateway.IdempotencyKeyHeader))
	if err != nil {
		logger.Get().Error("Gateway order creation failed", zap.Int64("amount", req.Amount), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create gateway order"})
	}

	logger.Get().Info("Gateway order created", zap.String("gateway_order_id", order.ID), zap.Int64("amount", order.Amount))
	return c.JSON(order)
}

// HandleVerifyPayment answers 400 with verified=false on a signature mismatch.
func (h *FunctionsHandler) HandleVerifyPayment(c *fiber.Ctx) error {
	var req gateway.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Order ID, Payment ID, and Signature are required"})
	}
	if h.upstream.Secret() == "" {
		logger.Get().Error("Gateway key secret not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Gateway credentials not configured"})
	}

	if !gateway.VerifySignature(h.upstream.Secret(), req.OrderID, req.PaymentID, req.Signature) {
		logger.Get().Warn("Payment verification failed", zap.String("order_id", req.OrderID), zap.String("payment_id", req.PaymentID))
		return c.Status(fiber.StatusBadRequest).JSON(gateway.VerifyResponse{
			Verified: false,
			Message:  "Payment verification failed",
		})
	}

	return c.JSON(gateway.VerifyResponse{
		Verified: true,
		Message:  "Payment verified successfully",
	})
}
