package middleware

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const (
	// ClientIDHeader identifies the browser a cart and fallback order list belong to.
	ClientIDHeader = "X-Client-ID"
	LocalClientID  = "client_id"
)

const clientIDRules = "required,min=8,max=128,clientid"

var clientIDValidate = newClientIDValidator()

func newClientIDValidator() *validator.Validate {
	v := validator.New()
	// clientid allows ASCII letters, digits, '-' and '_'.
	_ = v.RegisterValidation("clientid", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			default:
				return false
			}
		}
		return true
	})
	return v
}

// ClientIdentity requires a well-formed X-Client-ID header.
func ClientIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(ClientIDHeader)
		if err := clientIDValidate.Var(id, clientIDRules); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "X-Client-ID header is required (8-128 letters, digits, '-' or '_')",
			})
		}
		c.Locals(LocalClientID, id)
		return c.Next()
	}
}

// ClientID returns the id stored by ClientIdentity.
func ClientID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalClientID).(string)
	return id
}
