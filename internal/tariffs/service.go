package tariffs

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
)

// Service manages the per-district tariff table. Checkout reads it exactly
// once, at order creation; nothing downstream ever consults it again.
type Service interface {
	Upsert(ctx context.Context, input UpsertInput) (*models.ShippingRate, error)
	GetByDistrict(ctx context.Context, districtName string) (*models.ShippingRate, error)
	List(ctx context.Context) ([]models.ShippingRate, error)
}

// UpsertInput carries one district's rate configuration.
type UpsertInput struct {
	DistrictName      string  `json:"district_name" validate:"required"`
	BaseFare          int64   `json:"base_fare" validate:"gte=0"`
	BaseDistanceKm    float64 `json:"base_distance_km" validate:"gte=0"`
	PricePerKm        int64   `json:"price_per_km" validate:"gte=0"`
	MultiStopFee      int64   `json:"multi_stop_fee" validate:"gte=0"`
	SurgeFee          int64   `json:"surge_fee" validate:"gte=0"`
	AppFeePercent     float64 `json:"app_fee_percent" validate:"gte=0,lte=100"`
	BuyerServiceFee   int64   `json:"buyer_service_fee" validate:"gte=0"`
	SellerAdminFeePct float64 `json:"seller_admin_fee_percent" validate:"gte=0,lte=100"`
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds a tariff service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tariff repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Upsert(ctx context.Context, input UpsertInput) (*models.ShippingRate, error) {
	district := strings.TrimSpace(input.DistrictName)
	if district == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "district name required")
	}
	if input.BaseDistanceKm < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base distance must be non-negative")
	}
	if input.AppFeePercent < 0 || input.AppFeePercent > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "app fee percent outside [0,100]")
	}
	if input.SellerAdminFeePct < 0 || input.SellerAdminFeePct > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller admin fee percent outside [0,100]")
	}
	if input.BaseFare < 0 || input.PricePerKm < 0 || input.MultiStopFee < 0 || input.SurgeFee < 0 || input.BuyerServiceFee < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee amounts must be non-negative")
	}

	rate := &models.ShippingRate{
		DistrictName:      district,
		BaseFare:          input.BaseFare,
		BaseDistanceKm:    input.BaseDistanceKm,
		PricePerKm:        input.PricePerKm,
		MultiStopFee:      input.MultiStopFee,
		SurgeFee:          input.SurgeFee,
		AppFeePercent:     input.AppFeePercent,
		BuyerServiceFee:   input.BuyerServiceFee,
		SellerAdminFeePct: input.SellerAdminFeePct,
	}
	if err := s.repo.Upsert(ctx, rate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert shipping rate")
	}
	s.logg.Info(s.logg.WithField(ctx, "district", district), "shipping rate upserted")
	return rate, nil
}

// GetByDistrict fails closed: a district without a configured rate cannot be
// priced, so callers surface the error instead of guessing a fare.
func (s *service) GetByDistrict(ctx context.Context, districtName string) (*models.ShippingRate, error) {
	district := strings.TrimSpace(districtName)
	if district == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "district name required")
	}
	rate, err := s.repo.FindByDistrict(ctx, district)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeTariffMissing, "no shipping rate configured for district").
				WithDetails(map[string]string{"district_name": district})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping rate")
	}
	return rate, nil
}

func (s *service) List(ctx context.Context) ([]models.ShippingRate, error) {
	rates, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipping rates")
	}
	return rates, nil
}
