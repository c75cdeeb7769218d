package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/thamyind/litstore/internal/pkg/checkout"
	"github.com/thamyind/litstore/internal/pkg/fulfillment"
)

// webhookTimeout bounds one fulfillment run. Stripe retries on timeout, and
// every step downstream is idempotent, so cutting a slow run short is safe.
const webhookTimeout = 15 * time.Second

// WebhookController receives payment provider callbacks. Signature
// verification happens here, over the raw body, before anything else touches
// the payload.
type WebhookController struct {
	service        *fulfillment.Service
	endpointSecret string
}

func NewWebhookController(service *fulfillment.Service, endpointSecret string) *WebhookController {
	return &WebhookController{service: service, endpointSecret: endpointSecret}
}

// HandleStripeWebhook verifies and processes one Stripe event. A bad
// signature is a 400 so the sender sees the rejection; a processing failure
// is a 500 so Stripe redelivers.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	// BodyRaw may be reused by fiber after the handler returns; copy before
	// the payload outlives the request.
	raw := make([]byte, len(c.BodyRaw()))
	copy(raw, c.BodyRaw())

	event, err := checkout.VerifyEvent(raw, c.Get("stripe-signature"), wc.endpointSecret)
	if err != nil {
		if !errors.Is(err, checkout.ErrSignature) {
			fiberlog.Errorf("[Webhook] verification failed unexpectedly: %v", err)
		}
		return c.Status(fiber.StatusBadRequest).SendString("Webhook Error: " + err.Error())
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	if err := wc.service.ProcessEvent(ctx, event); err != nil {
		fiberlog.Errorf("[Webhook] processing event %s failed: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event processing failed"})
	}
	return c.JSON(fiber.Map{"received": true})
}
