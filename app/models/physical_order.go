package models

import "time"

// Order status values. Transitions are unidirectional:
// pending -> processing -> shipped -> delivered. Status advancement is done by
// fulfillment operators, not by this service.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
)

// PhysicalOrder is one completed checkout of tangible goods. StripePaymentID
// is unique so that a duplicate webhook delivery for the same checkout can
// never create a second order row.
type PhysicalOrder struct {
	ID              string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string     `gorm:"type:varchar(64);not null;index" json:"user_id"`
	StripePaymentID string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripe_payment_id"`
	TotalAmount     int64      `gorm:"not null" json:"total_amount"`
	ShipName        string     `gorm:"type:varchar(200)" json:"ship_name"`
	ShipLine1       string     `gorm:"type:varchar(255)" json:"ship_line1"`
	ShipLine2       string     `gorm:"type:varchar(255)" json:"ship_line2"`
	ShipCity        string     `gorm:"type:varchar(100)" json:"ship_city"`
	ShipState       string     `gorm:"type:varchar(100)" json:"ship_state"`
	ShipPostalCode  string     `gorm:"type:varchar(20)" json:"ship_postal_code"`
	ShipCountry     string     `gorm:"type:varchar(2)" json:"ship_country"`
	OrderStatus     string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"order_status"`
	TrackingNumber  *string    `gorm:"type:varchar(100);default:null" json:"tracking_number,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID" json:"order_items,omitempty"`
}

func (PhysicalOrder) TableName() string {
	return "physical_orders"
}

// OrderItem is one line under a PhysicalOrder. ProductRef may be an external
// catalog id or a free-text description when the catalog lookup failed; rows
// are written once and never mutated.
type OrderItem struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID     string `gorm:"type:varchar(36);not null;index" json:"order_id"`
	ProductRef  string `gorm:"type:varchar(191)" json:"product_ref"`
	ProductName string `gorm:"type:varchar(200);not null" json:"product_name"`
	Variant     string `gorm:"type:varchar(100)" json:"variant"`
	Quantity    int64  `gorm:"not null" json:"quantity"`
	UnitPrice   int64  `gorm:"not null" json:"unit_price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
