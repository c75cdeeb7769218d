package router

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/thamyind/litstore/app/controllers"
	"github.com/thamyind/litstore/internal/pkg/checkout"
	"github.com/thamyind/litstore/internal/pkg/database"
	"github.com/thamyind/litstore/internal/pkg/delivery"
	"github.com/thamyind/litstore/internal/pkg/env"
	"github.com/thamyind/litstore/internal/pkg/fulfillment"
	"github.com/thamyind/litstore/internal/pkg/identity"
)

type ApiRouter struct {
	checkout  *controllers.CheckoutController
	webhook   *controllers.WebhookController
	delivery  *controllers.DeliveryController
	dashboard *controllers.DashboardController
	lead      *controllers.LeadController
	admin     *controllers.AdminController
}

// NewApiRouter builds every controller with its real collaborators. Stripe,
// storage and Clerk credentials are all required: each one backs an endpoint
// the storefront cannot function without.
func NewApiRouter() (*ApiRouter, error) {
	builder, err := checkout.NewBuilderFromEnv()
	if err != nil {
		return nil, err
	}

	webhookSecret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	if webhookSecret == "" {
		return nil, fmt.Errorf("%w: STRIPE_WEBHOOK_SECRET not set", checkout.ErrConfiguration)
	}

	signer, err := delivery.NewSignerFromEnv(context.Background())
	if err != nil {
		return nil, err
	}

	clerk, err := identity.NewClerkClientFromEnv()
	if err != nil {
		return nil, err
	}

	service := fulfillment.NewServiceFromDB(database.GetDB(), builder.Client(), identity.NewResolver(clerk))
	repo := service.Repo()
	deliveryService := delivery.NewService(repo, signer)

	return &ApiRouter{
		checkout:  controllers.NewCheckoutController(builder),
		webhook:   controllers.NewWebhookController(service, webhookSecret),
		delivery:  controllers.NewDeliveryController(deliveryService, builder.Client()),
		dashboard: controllers.NewDashboardController(repo),
		lead:      controllers.NewLeadController(),
		admin:     controllers.NewAdminController(repo),
	}, nil
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	// The webhook endpoint is excluded from rate limiting: the payment
	// provider batches redeliveries and must never be throttled into a
	// retry loop.
	app.Post("/api/webhooks/stripe", h.webhook.HandleStripeWebhook)

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		Storage:    newLimiterStorage(),
	}))

	api.Post("/checkout", h.checkout.HandleCreateCheckout)
	api.Post("/checkout/physical", h.checkout.HandleCreatePhysicalCheckout)

	api.Post("/downloads", h.delivery.HandleGetDownloadURL)
	api.Get("/streams", h.delivery.HandleGetStreamURLs)
	api.Get("/sessions/verify", h.delivery.HandleVerifySession)

	api.Post("/leads", h.lead.HandleCaptureLead)
	api.Post("/plays", h.dashboard.HandleTrackPlay)
	api.Get("/me/purchases", h.dashboard.HandleListPurchases)
	api.Get("/me/orders", h.dashboard.HandleListOrders)

	api.Get("/admin/stats", h.admin.HandleGetStats)
}

// newLimiterStorage backs the rate limiter with Redis so counters survive
// restarts and are shared between instances.
func newLimiterStorage() fiber.Storage {
	port, err := strconv.Atoi(env.GetEnv("CACHE_PORT", "6379"))
	if err != nil {
		port = 6379
	}
	return redisstorage.New(redisstorage.Config{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     port,
		Database: 1,
	})
}
