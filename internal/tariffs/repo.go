package tariffs

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
)

// Repository persists shipping rates keyed by district name.
type Repository interface {
	Upsert(ctx context.Context, rate *models.ShippingRate) error
	FindByDistrict(ctx context.Context, districtName string) (*models.ShippingRate, error)
	List(ctx context.Context) ([]models.ShippingRate, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tariff repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Upsert(ctx context.Context, rate *models.ShippingRate) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "district_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"base_fare", "base_distance_km", "price_per_km",
				"multi_stop_fee", "surge_fee", "app_fee_percent",
				"buyer_service_fee", "seller_admin_fee_percent", "updated_at",
			}),
		}).
		Create(rate).Error
}

func (r *repository) FindByDistrict(ctx context.Context, districtName string) (*models.ShippingRate, error) {
	var rate models.ShippingRate
	err := r.db.WithContext(ctx).
		Where("district_name = ?", districtName).
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) List(ctx context.Context) ([]models.ShippingRate, error) {
	var rates []models.ShippingRate
	err := r.db.WithContext(ctx).
		Order("district_name ASC").
		Find(&rates).Error
	return rates, err
}
