package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	"github.com/aryasetiadi/lokapasar-backend/pkg/pagination"
)

// Repository manages order persistence. UpdateStatus is the compare-and-set
// primitive every transition rides on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// UpdateStatus applies the transition only if the stored status still
	// equals from. Returns false when zero rows were affected.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, shipping enums.ShippingStatus, extra map[string]any) (bool, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListByMarket(ctx context.Context, marketID uuid.UUID, status enums.OrderStatus, params pagination.Params) ([]models.Order, error)
	ListExpiredPickups(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
}
