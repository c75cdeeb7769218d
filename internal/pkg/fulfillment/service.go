package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/thamyind/litstore/app/models"
	"github.com/thamyind/litstore/internal/pkg/checkout"
	"github.com/thamyind/litstore/internal/pkg/crm"
	"github.com/thamyind/litstore/internal/pkg/identity"
	"github.com/thamyind/litstore/internal/pkg/mail"
	"gorm.io/gorm"
)

const webhookProvider = "stripe"

// IdentityResolver finds or creates durable user identities. Satisfied by
// identity.Resolver; tests substitute a fake.
type IdentityResolver interface {
	ResolveOrCreate(ctx context.Context, email, displayName string) (*identity.User, error)
}

// Service runs the purchase-to-access pipeline for verified payment events.
type Service struct {
	repo      Repository
	lineItems LineItemLister
	identity  IdentityResolver
}

// NewService creates a fulfillment service from injected collaborators.
func NewService(repo Repository, lineItems LineItemLister, resolver IdentityResolver) *Service {
	return &Service{repo: repo, lineItems: lineItems, identity: resolver}
}

// NewServiceFromDB creates a fulfillment service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, lineItems LineItemLister, resolver IdentityResolver) *Service {
	return NewService(NewRepository(db), lineItems, resolver)
}

// Repo exposes the repository for read-side handlers (dashboard, delivery).
func (s *Service) Repo() Repository {
	return s.repo
}

// ProcessEvent handles one verified webhook event. Only
// checkout.session.completed is fulfilled; every other type is acknowledged
// and ignored so the provider does not build up a retry backlog. Critical
// steps (identity, grant/order) return errors that propagate to a non-2xx
// response; best-effort steps (profile, CRM, mail) are fenced and can never
// fail the webhook.
func (s *Service) ProcessEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	if event.Type != "checkout.session.completed" {
		fiberlog.Infof("[Fulfillment] ignoring event type %s", event.Type)
		return nil
	}

	created, stored, err := s.repo.CreateWebhookEventIfNotExists(&models.WebhookEvent{
		Provider:        webhookProvider,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(event.Data.Raw),
		SignatureValid:  true,
	})
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		// True duplicate of an already-fulfilled delivery.
		fiberlog.Infof("[Fulfillment] duplicate delivery of event %s, skipping", event.ID)
		return nil
	}

	processErr := s.fulfill(ctx, event)
	s.markProcessed(stored.ID, processErr)
	return processErr
}

func (s *Service) fulfill(ctx context.Context, event *stripe.Event) error {
	var session checkout.Session
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("decode checkout.session: %w", err)
	}

	if session.PaymentStatus != "" && session.PaymentStatus != "paid" {
		fiberlog.Infof("[Fulfillment] session %s not paid (%s), skipping", session.ID, session.PaymentStatus)
		return nil
	}

	plan, err := s.Resolve(ctx, &session)
	if err != nil {
		return err
	}
	if plan.PurchaserEmail == "" {
		fiberlog.Warnf("[Fulfillment] session %s carries no purchaser email, cannot fulfill", session.ID)
		return nil
	}

	user, err := s.identity.ResolveOrCreate(ctx, plan.PurchaserEmail, plan.PurchaserName)
	if err != nil {
		return fmt.Errorf("resolve identity for %s: %w", plan.PurchaserEmail, err)
	}

	switch plan.Kind {
	case PlanDigital:
		if err := s.fulfillDigital(ctx, user, plan); err != nil {
			return err
		}
	case PlanPhysical:
		if err := s.fulfillPhysical(ctx, user, plan); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown plan kind %q", plan.Kind)
	}

	s.bestEffort("profile upsert", func() error {
		fullName := plan.PurchaserName
		if fullName == "" {
			fullName = user.FullName()
		}
		return s.repo.UpsertProfile(user.ID, plan.PurchaserEmail, fullName)
	})

	return nil
}

func (s *Service) fulfillDigital(ctx context.Context, user *identity.User, plan *FulfillmentPlan) error {
	if len(plan.Products) == 0 {
		fiberlog.Warnf("[Fulfillment] digital purchase by %s resolved to zero products", plan.PurchaserEmail)
		return nil
	}

	productIDs := make([]string, 0, len(plan.Products))
	names := make([]string, 0, len(plan.Products))
	for _, p := range plan.Products {
		productIDs = append(productIDs, p.ID)
		names = append(names, p.Name)
	}
	if err := s.repo.GrantAccess(user.ID, productIDs); err != nil {
		return fmt.Errorf("grant access: %w", err)
	}
	fiberlog.Infof("[Fulfillment] granted %s access to: %s", plan.PurchaserEmail, strings.Join(names, ", "))

	tags := []string{"LIT-Purchased"}
	for _, p := range plan.Products {
		if strings.Contains(strings.ToUpper(p.Name), "SOURCE") {
			tags = append(tags, "Source-Purchased")
			break
		}
	}
	s.bestEffort("crm sync", func() error {
		crm.SyncTags(ctx, plan.PurchaserEmail, tags, "LIT Checkout Success")
		return nil
	})
	s.bestEffort("confirmation mail", func() error {
		return mail.SendPurchaseConfirmation(plan.PurchaserEmail, names)
	})
	return nil
}

func (s *Service) fulfillPhysical(ctx context.Context, user *identity.User, plan *FulfillmentPlan) error {
	order, orderCreated, err := s.repo.CreateOrder(user.ID, plan.Order)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	if !orderCreated {
		fiberlog.Infof("[Fulfillment] order for payment %s already exists (%s), no-op", plan.Order.StripePaymentID, order.ID)
		return nil
	}
	fiberlog.Infof("[Fulfillment] created order %s for %s (%d items, total %d)",
		order.ID, plan.PurchaserEmail, len(order.OrderItems), order.TotalAmount)

	s.bestEffort("crm sync", func() error {
		crm.SyncTags(ctx, plan.PurchaserEmail, []string{"Merch-Purchased"}, "Merch Checkout Success")
		return nil
	})
	s.bestEffort("confirmation mail", func() error {
		itemNames := make([]string, 0, len(order.OrderItems))
		for _, item := range order.OrderItems {
			itemNames = append(itemNames, item.ProductName)
		}
		return mail.SendPurchaseConfirmation(plan.PurchaserEmail, itemNames)
	})
	return nil
}

// bestEffort fences a non-critical side effect: the error is logged and
// swallowed so the webhook response stays 2xx. The split between awaited
// critical steps and fenced best-effort steps is deliberate and visible here
// rather than implicit in unawaited calls.
func (s *Service) bestEffort(name string, fn func() error) {
	if err := fn(); err != nil {
		fiberlog.Errorf("[Fulfillment] best-effort step %s failed: %v", name, err)
	}
}

func (s *Service) markProcessed(eventRowID uint, processErr error) {
	msg := ""
	if processErr != nil {
		msg = processErr.Error()
	}
	if err := s.repo.MarkWebhookProcessed(eventRowID, msg); err != nil {
		fiberlog.Errorf("[Fulfillment] failed to mark webhook event %d processed: %v", eventRowID, err)
	}
}
