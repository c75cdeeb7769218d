package checkout

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/thamyind/litstore/internal/pkg/env"
)

// minimumDigitalAmount is the lowest accepted pay-what-you-want price in
// minor currency units ($1.00).
const minimumDigitalAmount = 100

// upsellAmount is the fixed presale upsell price ($9.00).
const upsellAmount = 900

// Flat-rate shipping options offered on physical checkouts.
const (
	standardShippingAmount = 599
	expressShippingAmount  = 1499
)

// shippingCountries is the fixed set of countries we ship merch to.
var shippingCountries = []string{"US", "CA", "GB", "AU", "DE", "FR", "NL", "BE", "AT", "CH"}

// CartItem is one entry of a physical merch cart as submitted by the store UI.
type CartItem struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Price    int64  `json:"price" validate:"gt=0"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
	Variant  string `json:"variant"`
	Image    string `json:"image"`
}

// Builder constructs hosted checkout sessions. It performs no database
// writes; the outcome is only a redirect target.
type Builder struct {
	client          *StripeClient
	baseProductID   string
	upsellProductID string
	siteURL         string
	validate        *validator.Validate
}

// NewBuilder creates a checkout builder with an injected Stripe client.
func NewBuilder(client *StripeClient, baseProductID, upsellProductID, siteURL string) *Builder {
	return &Builder{
		client:          client,
		baseProductID:   baseProductID,
		upsellProductID: upsellProductID,
		siteURL:         strings.TrimSuffix(siteURL, "/"),
		validate:        validator.New(),
	}
}

// NewBuilderFromEnv wires a builder from environment configuration. A missing
// Stripe secret is a configuration error: we refuse to build sessions rather
// than attempt an unauthenticated call.
func NewBuilderFromEnv() (*Builder, error) {
	secret := env.GetEnv("STRIPE_SECRET_KEY", "")
	if secret == "" {
		return nil, fmt.Errorf("%w: STRIPE_SECRET_KEY not set", ErrConfiguration)
	}
	client := NewStripeClient(http.DefaultClient, secret, env.GetEnv("STRIPE_API_BASE", ""))
	return NewBuilder(
		client,
		env.GetEnv("STRIPE_PRODUCT_LIT", ""),
		env.GetEnv("STRIPE_PRODUCT_SOURCE", ""),
		env.GetEnv("SITE_URL", "http://localhost:8888"),
	), nil
}

// Client returns the underlying Stripe client for read-side callers that
// need session lookups.
func (b *Builder) Client() *StripeClient {
	return b.client
}

// CreateDigitalCheckout builds a pay-what-you-want checkout for the digital
// EP, optionally with the fixed-price presale upsell as a second line item.
func (b *Builder) CreateDigitalCheckout(ctx context.Context, amount int64, withUpsell bool, email string) (*Session, error) {
	if amount < minimumDigitalAmount {
		return nil, fmt.Errorf("%w: invalid amount, minimum is $1.00", ErrValidation)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if err := b.validate.Var(email, "email"); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}

	params := url.Values{}
	params.Set("mode", "payment")
	params.Set("customer_email", email)
	params.Set("line_items[0][price_data][currency]", "usd")
	params.Set("line_items[0][price_data][product]", b.baseProductID)
	params.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amount, 10))
	params.Set("line_items[0][quantity]", "1")

	products := "LIT"
	if withUpsell {
		products = "LIT,THE_SOURCE"
		params.Set("line_items[1][price_data][currency]", "usd")
		params.Set("line_items[1][price_data][product]", b.upsellProductID)
		params.Set("line_items[1][price_data][unit_amount]", strconv.Itoa(upsellAmount))
		params.Set("line_items[1][quantity]", "1")
	}

	// The webhook handler branches on this metadata instead of re-deriving
	// purchase intent from line items.
	params.Set("metadata[products]", products)
	params.Set("metadata[lit_amount]", strconv.FormatInt(amount, 10))
	params.Set("success_url", b.siteURL+"/success?session_id={CHECKOUT_SESSION_ID}")
	params.Set("cancel_url", b.siteURL+"/")

	return b.client.CreateSession(ctx, params)
}

// CreatePhysicalCheckout builds a merch checkout with shipping collection and
// flat-rate shipping options. Merch metadata travels on the line items so the
// webhook handler needs no catalog lookup for physical orders.
func (b *Builder) CreatePhysicalCheckout(ctx context.Context, items []CartItem) (*Session, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items in cart", ErrValidation)
	}
	for _, item := range items {
		if err := b.validate.Struct(item); err != nil {
			return nil, fmt.Errorf("%w: invalid cart item %q", ErrValidation, item.ID)
		}
	}

	params := url.Values{}
	params.Set("mode", "payment")
	params.Set("metadata[order_type]", "physical")

	for i, item := range items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		params.Set(prefix+"[price_data][currency]", "usd")
		params.Set(prefix+"[price_data][product_data][name]", item.Name)
		if item.Variant != "" {
			params.Set(prefix+"[price_data][product_data][description]", "Size: "+item.Variant)
		}
		if item.Image != "" {
			params.Set(prefix+"[price_data][product_data][images][0]", item.Image)
		}
		params.Set(prefix+"[price_data][product_data][metadata][product_id]", item.ID)
		params.Set(prefix+"[price_data][product_data][metadata][variant]", item.Variant)
		params.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.Price, 10))
		params.Set(prefix+"[quantity]", strconv.FormatInt(item.Quantity, 10))
	}

	for i, country := range shippingCountries {
		params.Set(fmt.Sprintf("shipping_address_collection[allowed_countries][%d]", i), country)
	}

	addShippingOption(params, 0, standardShippingAmount, "Standard Shipping", 5, 10)
	addShippingOption(params, 1, expressShippingAmount, "Express Shipping", 2, 4)

	params.Set("success_url", b.siteURL+"/success.html?session_id={CHECKOUT_SESSION_ID}&type=physical")
	params.Set("cancel_url", b.siteURL+"/physical.html")

	return b.client.CreateSession(ctx, params)
}

func addShippingOption(params url.Values, idx int, amount int64, name string, minDays, maxDays int) {
	prefix := fmt.Sprintf("shipping_options[%d][shipping_rate_data]", idx)
	params.Set(prefix+"[type]", "fixed_amount")
	params.Set(prefix+"[fixed_amount][amount]", strconv.FormatInt(amount, 10))
	params.Set(prefix+"[fixed_amount][currency]", "usd")
	params.Set(prefix+"[display_name]", name)
	params.Set(prefix+"[delivery_estimate][minimum][unit]", "business_day")
	params.Set(prefix+"[delivery_estimate][minimum][value]", strconv.Itoa(minDays))
	params.Set(prefix+"[delivery_estimate][maximum][unit]", "business_day")
	params.Set(prefix+"[delivery_estimate][maximum][value]", strconv.Itoa(maxDays))
}
