package checkout

import (
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// VerifyEvent authenticates an inbound webhook delivery against the raw
// request body. The body must be the exact bytes Stripe signed; re-serialized
// JSON changes byte layout and breaks the HMAC.
func VerifyEvent(rawBody []byte, signatureHeader, endpointSecret string) (*stripe.Event, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, fmt.Errorf("%w: missing Stripe-Signature header", ErrSignature)
	}
	if strings.TrimSpace(endpointSecret) == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrSignature)
	}

	// The event's pinned API version follows the webhook endpoint config, not
	// this module's SDK version; a mismatch is not an authentication failure.
	event, err := webhook.ConstructEventWithOptions(rawBody, signatureHeader, endpointSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return &event, nil
}
