package handlers

import (
	"mythmanga/internal/middleware"
	"mythmanga/internal/models"
	"mythmanga/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler exposes the checkout state machine as a multi-request flow:
// submit, then one of the dialog callbacks for hosted-gateway attempts.
type CheckoutHandler struct {
	checkout *services.CheckoutService
	settings *services.SettingsService
}

func NewCheckoutHandler(checkout *services.CheckoutService, settings *services.SettingsService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, settings: settings}
}

// RegisterRoutes mounts the routes under /checkout. The dialog callback URLs
// handed to the browser must match the /:id/* routes here.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	checkoutRoutes := router.Group("/checkout")
	checkoutRoutes.Get("/methods", h.HandleMethods)
	checkoutRoutes.Post("/", h.HandleSubmit)
	checkoutRoutes.Get("/:id", h.HandleGetAttempt)
	checkoutRoutes.Post("/:id/payment", h.HandlePayment)
	checkoutRoutes.Post("/:id/failure", h.HandleFailure)
	checkoutRoutes.Post("/:id/dismiss", h.HandleDismiss)
}

type submitRequest struct {
	Method     models.PaymentMethod `json:"method"`
	Form       models.CheckoutForm  `json:"form"`
	CouponCode string               `json:"coupon_code"`
}

type failureRequest struct {
	Reason string `json:"reason"`
}

// HandleMethods lists the payment methods the current settings allow.
func (h *CheckoutHandler) HandleMethods(c *fiber.Ctx) error {
	snapshot := h.settings.Snapshot(c.UserContext())
	return c.JSON(fiber.Map{
		"methods":                 services.AvailableMethods(snapshot),
		"free_shipping_threshold": snapshot.FreeShippingThreshold,
		"shipping_charge":         snapshot.ShippingCharge,
		"coupons_enabled":         snapshot.CouponsEnabled,
	})
}

func (h *CheckoutHandler) HandleSubmit(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	ctx := c.UserContext()
	result, err := h.checkout.Submit(ctx, services.SubmitCommand{
		ClientID:   middleware.ClientID(c),
		Identity:   middleware.UserID(c),
		Method:     req.Method,
		Form:       req.Form,
		CouponCode: req.CouponCode,
		Settings:   h.settings.Snapshot(ctx),
	})
	if err != nil {
		return checkoutFailed(c, err, result)
	}

	status := fiber.StatusOK
	if result.Order != nil {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result)
}

func (h *CheckoutHandler) HandleGetAttempt(c *fiber.Ctx) error {
	attempt, err := h.ownAttempt(c)
	if err != nil {
		return checkoutFailed(c, err, nil)
	}
	return c.JSON(attempt)
}

func (h *CheckoutHandler) HandlePayment(c *fiber.Ctx) error {
	var payment services.PaymentResult
	if err := c.BodyParser(&payment); err != nil {
		return badBody(c, err)
	}
	if _, err := h.ownAttempt(c); err != nil {
		return checkoutFailed(c, err, nil)
	}

	result, err := h.checkout.CompletePayment(c.UserContext(), c.Params("id"), payment)
	if err != nil {
		return checkoutFailed(c, err, result)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *CheckoutHandler) HandleFailure(c *fiber.Ctx) error {
	var req failureRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
	}
	if _, err := h.ownAttempt(c); err != nil {
		return checkoutFailed(c, err, nil)
	}

	result, err := h.checkout.FailPayment(c.UserContext(), c.Params("id"), req.Reason)
	if err != nil {
		return checkoutFailed(c, err, result)
	}
	return c.JSON(result)
}

func (h *CheckoutHandler) HandleDismiss(c *fiber.Ctx) error {
	if _, err := h.ownAttempt(c); err != nil {
		return checkoutFailed(c, err, nil)
	}

	result, err := h.checkout.CancelPayment(c.UserContext(), c.Params("id"))
	if err != nil {
		return checkoutFailed(c, err, result)
	}
	return c.JSON(result)
}

// ownAttempt loads the attempt named in the path; another client's attempt is
// reported as not found.
func (h *CheckoutHandler) ownAttempt(c *fiber.Ctx) (*models.CheckoutAttempt, error) {
	attempt, err := h.checkout.GetAttempt(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if attempt.ClientID != middleware.ClientID(c) {
		return nil, &services.CheckoutError{Kind: services.KindNotFound, Message: "checkout not found"}
	}
	return attempt, nil
}
