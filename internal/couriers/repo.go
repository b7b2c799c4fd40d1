package couriers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
)

// Repository persists courier profiles.
type Repository interface {
	Create(ctx context.Context, profile *models.CourierProfile) error
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.CourierProfile, error)
	UpdatePosition(ctx context.Context, userID uuid.UUID, lat, lng float64, seenAt time.Time) error
	SetActive(ctx context.Context, userID uuid.UUID, active bool) error
	SetVerified(ctx context.Context, userID uuid.UUID, verified bool) error
	// ListEligible returns active, verified couriers registered to the market.
	ListEligible(ctx context.Context, marketID uuid.UUID) ([]models.CourierProfile, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a courier repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, profile *models.CourierProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.CourierProfile, error) {
	var profile models.CourierProfile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) UpdatePosition(ctx context.Context, userID uuid.UUID, lat, lng float64, seenAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.CourierProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"latitude":     lat,
			"longitude":    lng,
			"last_seen_at": seenAt,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.CourierProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"is_active":  active,
			"updated_at": time.Now(),
		}).Error
}

func (r *repository) ListEligible(ctx context.Context, marketID uuid.UUID) ([]models.CourierProfile, error) {
	var rows []models.CourierProfile
	err := r.db.WithContext(ctx).
		Where("market_id = ? AND is_active = ? AND is_verified = ?", marketID, true, true).
		Order("user_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) SetVerified(ctx context.Context, userID uuid.UUID, verified bool) error {
	return r.db.WithContext(ctx).
		Model(&models.CourierProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"is_verified": verified,
			"updated_at":  time.Now(),
		}).Error
}
