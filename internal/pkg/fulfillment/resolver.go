package fulfillment

import (
	"context"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/thamyind/litstore/app/models"
	"github.com/thamyind/litstore/internal/pkg/checkout"
)

// LineItemLister fetches the purchased line items of a checkout session.
// Satisfied by checkout.StripeClient.
type LineItemLister interface {
	ListLineItems(ctx context.Context, sessionID string) ([]checkout.LineItem, error)
}

// Resolve turns a verified, completed checkout session into a FulfillmentPlan.
// The order-type branch rides on metadata set at checkout time, so no intent
// needs to be re-derived here.
func (s *Service) Resolve(ctx context.Context, session *checkout.Session) (*FulfillmentPlan, error) {
	if session == nil || session.ID == "" {
		return nil, fmt.Errorf("checkout session is empty")
	}

	email := strings.TrimSpace(session.CustomerDetails.Email)
	if email == "" {
		email = strings.TrimSpace(session.CustomerEmail)
	}
	name := strings.TrimSpace(session.CustomerDetails.Name)

	if session.Metadata["order_type"] == "physical" {
		draft, err := s.buildOrderDraft(ctx, session)
		if err != nil {
			return nil, err
		}
		return &FulfillmentPlan{
			Kind:           PlanPhysical,
			PurchaserEmail: email,
			PurchaserName:  name,
			Order:          draft,
		}, nil
	}

	products, err := s.resolveDigitalProducts(ctx, session)
	if err != nil {
		return nil, err
	}
	return &FulfillmentPlan{
		Kind:           PlanDigital,
		PurchaserEmail: email,
		PurchaserName:  name,
		Products:       products,
	}, nil
}

// resolveDigitalProducts maps the session's line items onto the internal
// catalog. Unresolvable external ids are dropped with a warning so a
// partially-resolvable session still grants whatever did resolve; duplicate
// ids collapse because digital access is a boolean per product, not a
// quantity.
func (s *Service) resolveDigitalProducts(ctx context.Context, session *checkout.Session) ([]models.Product, error) {
	items, err := s.sessionLineItems(ctx, session)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(items))
	stripeIDs := make([]string, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.Price.Product)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		stripeIDs = append(stripeIDs, id)
	}

	products, err := s.repo.FindProductsByStripeIDs(stripeIDs)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	resolved := make(map[string]struct{}, len(products))
	for _, p := range products {
		resolved[p.StripeProductID] = struct{}{}
	}
	for _, id := range stripeIDs {
		if _, ok := resolved[id]; !ok {
			// Tolerated, not fatal: unknown or legacy product ids must not
			// fail the whole webhook. Worth alerting on if it persists.
			fiberlog.Warnf("[Fulfillment] session %s: no catalog product for stripe id %s, dropping", session.ID, id)
		}
	}
	return products, nil
}

// buildOrderDraft assembles a physical order draft purely from session data;
// merch metadata travels with the line items, so no catalog lookup is needed.
func (s *Service) buildOrderDraft(ctx context.Context, session *checkout.Session) (*PhysicalOrderDraft, error) {
	items, err := s.sessionLineItems(ctx, session)
	if err != nil {
		return nil, err
	}

	draft := &PhysicalOrderDraft{
		StripePaymentID: session.PaymentIntent,
		TotalAmount:     session.AmountTotal,
	}
	if draft.StripePaymentID == "" {
		draft.StripePaymentID = session.ID
	}
	if shipping := session.ShippingDetails; shipping != nil {
		draft.ShipName = shipping.Name
		draft.ShipLine1 = shipping.Address.Line1
		draft.ShipLine2 = shipping.Address.Line2
		draft.ShipCity = shipping.Address.City
		draft.ShipState = shipping.Address.State
		draft.ShipPostalCode = shipping.Address.PostalCode
		draft.ShipCountry = shipping.Address.Country
	}

	for _, item := range items {
		productRef := strings.TrimSpace(item.Price.Metadata["product_id"])
		if productRef == "" {
			productRef = strings.TrimSpace(item.Price.Product)
		}
		draft.Items = append(draft.Items, OrderItemDraft{
			ProductRef:  productRef,
			ProductName: item.Description,
			Variant:     item.Price.Metadata["variant"],
			Quantity:    item.Quantity,
			UnitPrice:   item.Price.UnitAmount,
		})
	}
	return draft, nil
}

// sessionLineItems prefers line items already expanded on the session and
// falls back to fetching the full list from the provider.
func (s *Service) sessionLineItems(ctx context.Context, session *checkout.Session) ([]checkout.LineItem, error) {
	if session.LineItems != nil && len(session.LineItems.Data) > 0 {
		return session.LineItems.Data, nil
	}
	if s.lineItems == nil {
		return nil, fmt.Errorf("no line item source for session %s", session.ID)
	}
	items, err := s.lineItems.ListLineItems(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	return items, nil
}
