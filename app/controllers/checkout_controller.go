package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/thamyind/litstore/internal/pkg/checkout"
)

// CheckoutController exposes the storefront checkout endpoints. The builder is
// injected so tests can point it at a fake payment API.
type CheckoutController struct {
	builder *checkout.Builder
}

func NewCheckoutController(builder *checkout.Builder) *CheckoutController {
	return &CheckoutController{builder: builder}
}

type digitalCheckoutRequest struct {
	Amount     int64  `json:"amount"`
	WithUpsell bool   `json:"withUpsell"`
	Email      string `json:"email"`
}

type physicalCheckoutRequest struct {
	Items []checkout.CartItem `json:"items"`
}

// HandleCreateCheckout creates a pay-what-you-want checkout session for the
// digital EP and returns its session id for the client-side redirect.
func (cc *CheckoutController) HandleCreateCheckout(c *fiber.Ctx) error {
	var req digitalCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	session, err := cc.builder.CreateDigitalCheckout(c.UserContext(), req.Amount, req.WithUpsell, req.Email)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(fiber.Map{"id": session.ID})
}

// HandleCreatePhysicalCheckout creates a merch checkout session with shipping
// collection and returns the hosted checkout URL.
func (cc *CheckoutController) HandleCreatePhysicalCheckout(c *fiber.Ctx) error {
	var req physicalCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	session, err := cc.builder.CreatePhysicalCheckout(c.UserContext(), req.Items)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(fiber.Map{"url": session.URL})
}

// checkoutError maps builder errors onto HTTP statuses. Validation failures
// are the caller's fault; everything else is ours or Stripe's.
func checkoutError(c *fiber.Ctx, err error) error {
	if errors.Is(err, checkout.ErrValidation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	fiberlog.Errorf("[Checkout] session creation failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create checkout session"})
}
