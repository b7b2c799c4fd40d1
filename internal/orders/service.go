package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox/payloads"
	"github.com/aryasetiadi/lokapasar-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// WalletLedger is the settlement surface the orders service needs. Credits
// must append to the ledger and update the cached balance inside the
// caller's transaction.
type WalletLedger interface {
	CreditInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int64, kind enums.WalletLogType, description string, orderID *uuid.UUID) error
}

// Service drives the order state machine.
type Service interface {
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	VerifyPickup(ctx context.Context, input VerifyPickupInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListMarketOrders(ctx context.Context, marketID uuid.UUID, status enums.OrderStatus, params pagination.Params) ([]models.Order, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	wallet WalletLedger
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, wallet WalletLedger, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: ob,
		wallet: wallet,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	rows, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return rows, nil
}

func (s *service) ListMarketOrders(ctx context.Context, marketID uuid.UUID, status enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	if marketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "market id required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	rows, err := s.repo.ListByMarket(ctx, marketID, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list market orders")
	}
	return rows, nil
}

// Transition moves an order along one edge of the state machine. The guard
// runs against a fresh read, then the write is a compare-and-set on the
// status column; losing the race returns a conflict and the caller re-reads.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if guardErr := GuardTransition(order, input.ActorRole, input.Target); guardErr != nil {
			return guardErr
		}

		updated, err := s.applyTransition(ctx, tx, repo, order, input)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, input TransitionInput) (*models.Order, error) {
	now := s.now()
	from := order.Status
	shipping := DeriveShippingStatus(input.Target, order.ShippingMethod)

	extra := map[string]any{}
	switch input.Target {
	case enums.OrderStatusCompleted:
		extra["completed_at"] = now
	case enums.OrderStatusCancelled:
		extra["cancelled_at"] = now
	}

	applied, err := repo.UpdateStatus(ctx, order.ID, from, input.Target, shipping, extra)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !applied {
		// someone else moved the order between our read and write
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order state changed, re-read and retry")
	}

	order.Status = input.Target
	order.ShippingStatus = shipping
	switch input.Target {
	case enums.OrderStatusCompleted:
		order.CompletedAt = &now
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
	}

	actor := &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole.String()}
	stateEvent := outbox.DomainEvent{
		EventType:     enums.EventOrderStateChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.OrderStateChangedEvent{
			OrderID:    order.ID,
			MarketID:   order.MarketID,
			FromStatus: from,
			ToStatus:   input.Target,
			ActorRole:  input.ActorRole,
		},
	}
	if err := s.outbox.Emit(ctx, tx, stateEvent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit state change")
	}

	switch input.Target {
	case enums.OrderStatusReadyToPickup:
		if !order.IsSelfPickup() {
			// courier alarm fan-out rides on this event
			readyEvent := outbox.DomainEvent{
				EventType:     enums.EventOrderReady,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         actor,
				Data: payloads.OrderReadyEvent{
					OrderID:      order.ID,
					MarketID:     order.MarketID,
					DistrictName: order.DistrictName,
					CourierFee:   order.CourierEarningTotal,
				},
			}
			if err := s.outbox.Emit(ctx, tx, readyEvent); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order ready")
			}
		}

	case enums.OrderStatusCancelled:
		if err := s.onCancelled(ctx, tx, order, from, input, actor, now); err != nil {
			return nil, err
		}

	case enums.OrderStatusCompleted:
		if err := s.settle(ctx, tx, order, actor, now); err != nil {
			// A completed order that failed to settle is a money
			// inconsistency; surface it loudly and roll everything back.
			s.logg.Error(ctx, "settlement failed for completed order", err)
			return nil, err
		}
	}

	return order, nil
}

func (s *service) onCancelled(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus, input TransitionInput, actor *outbox.ActorRef, now time.Time) error {
	// Balance spent at checkout comes back when a paid order dies.
	if order.UsedBalance > 0 {
		err := s.wallet.CreditInTx(ctx, tx, order.CustomerID, order.UsedBalance,
			enums.WalletLogTypeBalanceRefund, "balance refund for cancelled order", &order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund used balance")
		}
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.OrderCancelledEvent{
			OrderID:     order.ID,
			MarketID:    order.MarketID,
			FromStatus:  from,
			CancelledAt: now,
			Reason:      input.Reason,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order cancelled")
	}
	return nil
}

// settle moves the frozen money amounts into wallets. Runs inside the same
// transaction as the COMPLETED transition: either both land or neither does.
func (s *service) settle(ctx context.Context, tx *gorm.DB, order *models.Order, actor *outbox.ActorRef, now time.Time) error {
	var merchantTotal int64
	for merchantID, amount := range merchantPayouts(order) {
		if amount <= 0 {
			continue
		}
		err := s.wallet.CreditInTx(ctx, tx, merchantID, amount,
			enums.WalletLogTypeMerchantPayout, "merchant payout for completed order", &order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit merchant payout")
		}
		merchantTotal += amount
	}

	var courierPayout int64
	if order.CourierID != nil && order.CourierEarningTotal > 0 {
		courierPayout = order.CourierEarningTotal
		err := s.wallet.CreditInTx(ctx, tx, *order.CourierID, courierPayout,
			enums.WalletLogTypeCourierPayout, "courier payout for delivered order", &order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit courier payout")
		}
	}

	var cashback int64
	if order.IsSelfPickup() && order.PaymentMethod == enums.PaymentMethodOnline && order.CashbackAmount > 0 {
		cashback = order.CashbackAmount
		err := s.wallet.CreditInTx(ctx, tx, order.CustomerID, cashback,
			enums.WalletLogTypeCashbackCredit, "pickup cashback", &order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit cashback")
		}
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.OrderCompletedEvent{
			OrderID:        order.ID,
			MarketID:       order.MarketID,
			CustomerID:     order.CustomerID,
			MerchantPayout: merchantTotal,
			CourierPayout:  courierPayout,
			Cashback:       cashback,
			CompletedAt:    now,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order completed")
	}
	return nil
}

// VerifyPickup completes a self-pickup order after checking the PIN and the
// pickup window. Expired codes fail closed; the expiry sweep, not this path,
// decides what happens to the order afterwards.
func (s *service) VerifyPickup(ctx context.Context, input VerifyPickupInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.MerchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "merchant identity missing")
	}
	if input.Code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup code required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if !order.IsSelfPickup() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not self-pickup")
		}
		if !merchantOnOrder(order, input.MerchantID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to merchant")
		}
		if order.PickupCode == nil || *order.PickupCode != input.Code {
			return pkgerrors.New(pkgerrors.CodeValidation, "pickup code mismatch")
		}
		if order.PickupExpiredAt != nil && s.now().After(*order.PickupExpiredAt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup code expired")
		}
		if guardErr := GuardTransition(order, enums.ActorRoleMerchant, enums.OrderStatusCompleted); guardErr != nil {
			return guardErr
		}

		updated, err := s.applyTransition(ctx, tx, repo, order, TransitionInput{
			OrderID:   order.ID,
			ActorID:   input.MerchantID,
			ActorRole: enums.ActorRoleMerchant,
			Target:    enums.OrderStatusCompleted,
		})
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func merchantOnOrder(order *models.Order, merchantID uuid.UUID) bool {
	for _, item := range order.Items {
		if item.MerchantID == merchantID {
			return true
		}
	}
	return false
}
