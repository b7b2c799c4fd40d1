package checkout

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aryasetiadi/lokapasar-backend/internal/pricing"
	"github.com/aryasetiadi/lokapasar-backend/pkg/config"
	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type tariffLookup interface {
	GetByDistrict(ctx context.Context, districtName string) (*models.ShippingRate, error)
}

type walletLedger interface {
	DebitInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int64, kind enums.WalletLogType, description string, orderID *uuid.UUID) error
}

type orderWriter interface {
	Create(ctx context.Context, order *models.Order) error
}

// ItemInput is one product line in a checkout request.
type ItemInput struct {
	MerchantID      uuid.UUID `json:"merchant_id" validate:"required"`
	ProductID       uuid.UUID `json:"product_id" validate:"required"`
	ProductName     string    `json:"product_name" validate:"required"`
	Quantity        int       `json:"quantity" validate:"gt=0"`
	PriceAtPurchase int64     `json:"price_at_purchase" validate:"gt=0"`
}

// Input is a checkout request. DistanceKm comes from the client-side route
// estimate; the tariff decides what it costs.
type Input struct {
	CustomerID     uuid.UUID
	MarketID       uuid.UUID
	ShippingMethod enums.ShippingMethod
	PaymentMethod  enums.PaymentMethod
	DistrictName   string
	Address        string
	DistanceKm     float64
	IsSurge        bool
	UseBalance     int64
	Items          []ItemInput
}

// Service turns a cart into an order with every money field frozen.
type Service interface {
	Checkout(ctx context.Context, input Input) (*models.Order, error)
}

type service struct {
	tariffs tariffLookup
	wallet  walletLedger
	orders  orderWriter
	tx      txRunner
	outbox  outboxPublisher
	cfg     config.CheckoutConfig
	logg    *logger.Logger
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService builds a checkout service with the required dependencies.
func NewService(tariffs tariffLookup, wallet walletLedger, orders orderWriter, tx txRunner, ob outboxPublisher, cfg config.CheckoutConfig, logg *logger.Logger) (Service, error) {
	if tariffs == nil {
		return nil, fmt.Errorf("tariff lookup required")
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order writer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tariffs: tariffs,
		wallet:  wallet,
		orders:  orders,
		tx:      tx,
		outbox:  ob,
		cfg:     cfg,
		logg:    logg,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (s *service) Checkout(ctx context.Context, input Input) (*models.Order, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	subtotal := int64(0)
	merchants := map[uuid.UUID]struct{}{}
	for _, item := range input.Items {
		subtotal += int64(item.Quantity) * item.PriceAtPurchase
		merchants[item.MerchantID] = struct{}{}
	}

	isPickup := input.ShippingMethod == enums.ShippingMethodPickup

	// Pickup orders carry no logistics money at all: the breakdown freezes
	// to zero and the merchant keeps the full subtotal at settlement.
	var fees pricing.FeeBreakdown
	var sellerAdminFee int64
	if !isPickup {
		tariff, err := s.tariffs.GetByDistrict(ctx, input.DistrictName)
		if err != nil {
			return nil, err
		}
		fees, err = pricing.Compute(pricing.ComputeInput{
			Tariff:            *tariff,
			DistanceKm:        input.DistanceKm,
			MerchantStopCount: len(merchants),
			IsPickup:          false,
			IsSurge:           input.IsSurge,
		})
		if err != nil {
			return nil, err
		}
		sellerAdminFee = pricing.SellerAdminFee(subtotal, tariff.SellerAdminFeePct)
	}

	grandTotal := subtotal + fees.BuyerOngkir + fees.ServiceFee
	usedBalance := input.UseBalance
	if usedBalance > grandTotal {
		usedBalance = grandTotal
	}

	var cashback int64
	if isPickup && input.PaymentMethod == enums.PaymentMethodOnline && len(s.cfg.CashbackPercents) > 0 {
		percent := s.cfg.CashbackPercents[s.intn(len(s.cfg.CashbackPercents))]
		cashback = pricing.CashbackAmount(subtotal, percent)
	}

	now := s.now()
	status := enums.OrderStatusUnpaid
	if input.PaymentMethod == enums.PaymentMethodCOD {
		// nothing to wait for, the merchant can start right away
		status = enums.OrderStatusProcessing
	}

	order := &models.Order{
		ID:                  uuid.New(),
		Status:              status,
		ShippingStatus:      enums.ShippingStatusPending,
		MarketID:            input.MarketID,
		CustomerID:          input.CustomerID,
		ShippingMethod:      input.ShippingMethod,
		PaymentMethod:       input.PaymentMethod,
		DistrictName:        strings.TrimSpace(input.DistrictName),
		TotalPrice:          grandTotal - usedBalance,
		ShippingCost:        fees.BuyerOngkir,
		ServiceFee:          fees.ServiceFee,
		SystemFee:           fees.PlatformMargin + sellerAdminFee,
		CourierEarningTotal: fees.CourierNet,
		CashbackAmount:      cashback,
		UsedBalance:         usedBalance,
	}
	if status == enums.OrderStatusProcessing {
		order.ShippingStatus = enums.ShippingStatusConfirmed
	}
	if addr := strings.TrimSpace(input.Address); addr != "" {
		order.Address = &addr
	}
	if isPickup {
		code := s.pickupCode()
		expiry := now.Add(s.cfg.PickupWindow)
		order.PickupCode = &code
		order.PickupExpiredAt = &expiry
	}
	for _, item := range input.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			MerchantID:      item.MerchantID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if usedBalance > 0 {
			err := s.wallet.DebitInTx(ctx, tx, input.CustomerID, usedBalance,
				enums.WalletLogTypeBalancePayment, "balance applied at checkout", &order.ID)
			if err != nil {
				return err
			}
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: enums.ActorRoleCustomer.String()},
			Data: payloads.OrderCreatedEvent{
				OrderID:        order.ID,
				MarketID:       order.MarketID,
				CustomerID:     order.CustomerID,
				ShippingMethod: order.ShippingMethod,
				PaymentMethod:  order.PaymentMethod,
				TotalPrice:     order.TotalPrice,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(logCtx, "checkout accepted")
	return order, nil
}

func (s *service) validate(input Input) error {
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.MarketID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "market id required")
	}
	if !input.ShippingMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping method")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	for _, item := range input.Items {
		if item.MerchantID == uuid.Nil || item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item merchant and product required")
		}
		if item.Quantity <= 0 || item.PriceAtPurchase <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity and price must be positive")
		}
	}
	if input.UseBalance < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "used balance cannot be negative")
	}
	if input.ShippingMethod == enums.ShippingMethodCourier {
		if strings.TrimSpace(input.DistrictName) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "district required for courier delivery")
		}
		if strings.TrimSpace(input.Address) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "address required for courier delivery")
		}
		if input.DistanceKm < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "distance cannot be negative")
		}
	}
	return nil
}

func (s *service) pickupCode() string {
	length := s.cfg.PickupCodeLength
	if length <= 0 {
		length = 6
	}
	digits := make([]byte, length)
	for i := range digits {
		digits[i] = byte('0' + s.intn(10))
	}
	return string(digits)
}

func (s *service) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
