package handlers

import (
	"mythmanga/internal/logger"
	"mythmanga/internal/middleware"
	"mythmanga/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CouponHandler previews a coupon against the client's current cart.
type CouponHandler struct {
	coupons  *services.CouponService
	carts    *services.CartService
	settings *services.SettingsService
}

func NewCouponHandler(coupons *services.CouponService, carts *services.CartService, settings *services.SettingsService) *CouponHandler {
	return &CouponHandler{coupons: coupons, carts: carts, settings: settings}
}

func (h *CouponHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/coupons/validate", h.HandleValidate)
}

type validateCouponRequest struct {
	Code string `json:"code"`
}

// HandleValidate always answers 200 with the coupon verdict; a rejected coupon
// is a result, not an error.
func (h *CouponHandler) HandleValidate(c *fiber.Ctx) error {
	var req validateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	ctx := c.UserContext()
	cart, err := h.carts.Get(ctx, middleware.ClientID(c))
	if err != nil {
		logger.Get().Error("Error reading cart for coupon", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not read cart",
		})
	}

	snapshot := h.settings.Snapshot(ctx)
	subtotal := cart.Subtotal()
	result, err := h.coupons.Apply(ctx, req.Code, subtotal, snapshot.CouponsEnabled)
	if err != nil {
		logger.Get().Error("Error checking coupon", zap.String("code", req.Code), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not check coupon",
		})
	}

	return c.JSON(fiber.Map{
		"coupon":  result,
		"pricing": services.ComputeTotal(subtotal, snapshot.FreeShippingThreshold, snapshot.ShippingCharge, result.Discount),
	})
}
