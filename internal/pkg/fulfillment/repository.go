package fulfillment

import (
	"context"
	"errors"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/thamyind/litstore/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the fulfillment service.
type Repository interface {
	FindProductsByStripeIDs(stripeProductIDs []string) ([]models.Product, error)
	GrantAccess(userID string, productIDs []string) error
	CreateOrder(userID string, draft *PhysicalOrderDraft) (*models.PhysicalOrder, bool, error)
	UpsertProfile(id, email, fullName string) error
	HasAccess(ctx context.Context, userID, productID string) (bool, error)
	ListPurchases(userID string) ([]models.Product, error)
	ListOrders(userID string) ([]models.PhysicalOrder, error)
	CreateTrackPlay(play *models.TrackPlay) error
	AdminStats() (*AdminStats, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a fulfillment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindProductsByStripeIDs(stripeProductIDs []string) ([]models.Product, error) {
	if len(stripeProductIDs) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.Where("stripe_product_id IN ?", stripeProductIDs).Find(&products).Error
	return products, err
}

// GrantAccess upserts one grant per product. Conflicts on the
// (user_id, product_id) key are success, not error; this is what makes
// repeated webhook delivery for the same purchase safe.
func (r *gormRepository) GrantAccess(userID string, productIDs []string) error {
	if userID == "" {
		return errors.New("user_id is required")
	}
	for _, productID := range productIDs {
		grant := &models.AccessGrant{
			ID:        uuid.NewString(),
			UserID:    userID,
			ProductID: productID,
		}
		if err := r.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "product_id"},
			},
			DoNothing: true,
		}).Create(grant).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateOrder persists an order and its items. The unique stripe_payment_id
// makes a duplicate delivery a no-op: the existing order is returned with
// created=false. Item insertion failure after the order row committed keeps
// the order in place; a partially-itemized order is recoverable by an
// operator, a silently dropped purchase is not.
func (r *gormRepository) CreateOrder(userID string, draft *PhysicalOrderDraft) (*models.PhysicalOrder, bool, error) {
	if userID == "" || draft == nil {
		return nil, false, errors.New("user_id and order draft are required")
	}

	order := &models.PhysicalOrder{
		ID:              uuid.NewString(),
		UserID:          userID,
		StripePaymentID: draft.StripePaymentID,
		TotalAmount:     draft.TotalAmount,
		ShipName:        draft.ShipName,
		ShipLine1:       draft.ShipLine1,
		ShipLine2:       draft.ShipLine2,
		ShipCity:        draft.ShipCity,
		ShipState:       draft.ShipState,
		ShipPostalCode:  draft.ShipPostalCode,
		ShipCountry:     draft.ShipCountry,
		OrderStatus:     models.OrderStatusPending,
	}

	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_payment_id"}},
		DoNothing: true,
	}).Create(order)
	if tx.Error != nil {
		return nil, false, tx.Error
	}
	if tx.RowsAffected == 0 {
		var existing models.PhysicalOrder
		if err := r.db.Preload("OrderItems").
			Where("stripe_payment_id = ?", draft.StripePaymentID).
			First(&existing).Error; err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}

	for _, item := range draft.Items {
		row := &models.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			ProductRef:  item.ProductRef,
			ProductName: item.ProductName,
			Variant:     item.Variant,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
		if err := r.db.Create(row).Error; err != nil {
			fiberlog.Errorf("[Fulfillment] order %s committed but item %q failed: %v", order.ID, item.ProductName, err)
			continue
		}
		order.OrderItems = append(order.OrderItems, *row)
	}
	return order, true, nil
}

func (r *gormRepository) UpsertProfile(id, email, fullName string) error {
	if id == "" {
		return errors.New("profile id is required")
	}
	profile := &models.Profile{
		ID:       id,
		Email:    email,
		FullName: fullName,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email",
			"full_name",
			"updated_at",
		}),
	}).Create(profile).Error
}

func (r *gormRepository) HasAccess(ctx context.Context, userID, productID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AccessGrant{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRepository) ListPurchases(userID string) ([]models.Product, error) {
	var grants []models.AccessGrant
	err := r.db.Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	products := make([]models.Product, 0, len(grants))
	for _, grant := range grants {
		if grant.Product != nil {
			products = append(products, *grant.Product)
		}
	}
	return products, nil
}

func (r *gormRepository) ListOrders(userID string) ([]models.PhysicalOrder, error) {
	var orders []models.PhysicalOrder
	err := r.db.Preload("OrderItems").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *gormRepository) CreateTrackPlay(play *models.TrackPlay) error {
	return r.db.Create(play).Error
}

func (r *gormRepository) AdminStats() (*AdminStats, error) {
	stats := &AdminStats{}
	if err := r.db.Order("played_at DESC").Limit(500).Find(&stats.Plays).Error; err != nil {
		return nil, err
	}
	if err := r.db.Order("created_at DESC").Find(&stats.Users).Error; err != nil {
		return nil, err
	}
	if err := r.db.Preload("Product").Order("created_at DESC").Find(&stats.Purchases).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
