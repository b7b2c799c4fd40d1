package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
)

// Repository reads the radar and executes the claim write. Claim is the only
// place courier_id is ever set; the conditional update is what guarantees
// at-most-one winner.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListClaimable(ctx context.Context, marketID uuid.UUID, limit int) ([]models.Order, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// Claim assigns the courier and advances the order in one conditional
	// update. Returns false when another courier got there first or the
	// order left the claimable state.
	Claim(ctx context.Context, orderID, courierID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a dispatch repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListClaimable(ctx context.Context, marketID uuid.UUID, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("market_id = ?", marketID).
		Where("status = ?", enums.OrderStatusReadyToPickup).
		Where("shipping_method = ?", enums.ShippingMethodCourier).
		Where("courier_id IS NULL").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Claim(ctx context.Context, orderID, courierID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND courier_id IS NULL", orderID, enums.OrderStatusReadyToPickup).
		Updates(map[string]any{
			"courier_id":      courierID,
			"status":          enums.OrderStatusPickingUp,
			"shipping_status": enums.ShippingStatusCourierOnWay,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
