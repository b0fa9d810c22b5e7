package handlers

import (
	"errors"
	"fmt"

	"mythmanga/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// validationFailed answers 400 with one message per failed field.
func validationFailed(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

var checkoutStatus = map[services.ErrorKind]int{
	services.KindConfiguration:      fiber.StatusServiceUnavailable,
	services.KindValidation:         fiber.StatusBadRequest,
	services.KindUnauthorized:       fiber.StatusUnauthorized,
	services.KindPaymentFailed:      fiber.StatusPaymentRequired,
	services.KindVerificationFailed: fiber.StatusPaymentRequired,
	services.KindPersistenceFailed:  fiber.StatusInternalServerError,
	services.KindAttemptClosed:      fiber.StatusConflict,
	services.KindNotFound:           fiber.StatusNotFound,
	services.KindInternal:           fiber.StatusInternalServerError,
}

// checkoutFailed maps a checkout error to its status. result, when present,
// carries the attempt state the client should render.
func checkoutFailed(c *fiber.Ctx, err error, result *services.CheckoutResult) error {
	var cerr *services.CheckoutError
	if !errors.As(err, &cerr) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Checkout failed",
		})
	}

	status, ok := checkoutStatus[cerr.Kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}

	body := fiber.Map{
		"kind":    cerr.Kind,
		"message": cerr.Message,
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string, len(validationErrors))
		for _, e := range validationErrors {
			fields[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		body["errors"] = fields
	}
	if result != nil && result.Attempt != nil {
		body["attempt"] = result.Attempt
	}
	return c.Status(status).JSON(body)
}
