package fulfillment

import "github.com/thamyind/litstore/app/models"

// PlanKind tags a FulfillmentPlan variant.
type PlanKind string

const (
	PlanDigital  PlanKind = "digital"
	PlanPhysical PlanKind = "physical"
)

// FulfillmentPlan is the resolved outcome of one completed checkout session.
// Exactly one of Products (digital) or Order (physical) is populated,
// selected by Kind; the webhook pipeline dispatches on the tag instead of
// threading nested conditionals through one handler.
type FulfillmentPlan struct {
	Kind           PlanKind
	PurchaserEmail string
	PurchaserName  string

	// Digital: internal catalog products to grant access to, already deduped.
	Products []models.Product

	// Physical: order draft built entirely from session data.
	Order *PhysicalOrderDraft
}

// PhysicalOrderDraft carries everything needed to persist a merch order.
type PhysicalOrderDraft struct {
	StripePaymentID string
	TotalAmount     int64
	ShipName        string
	ShipLine1       string
	ShipLine2       string
	ShipCity        string
	ShipState       string
	ShipPostalCode  string
	ShipCountry     string
	Items           []OrderItemDraft
}

// OrderItemDraft is one line of a physical order draft. ProductRef may be an
// external catalog id or free text when no id was available.
type OrderItemDraft struct {
	ProductRef  string
	ProductName string
	Variant     string
	Quantity    int64
	UnitPrice   int64
}

// AdminStats is the rollup served to the admin dashboard.
type AdminStats struct {
	Plays     []models.TrackPlay   `json:"plays"`
	Users     []models.Profile     `json:"users"`
	Purchases []models.AccessGrant `json:"purchases"`
}
