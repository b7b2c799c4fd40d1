package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox"
	"github.com/aryasetiadi/lokapasar-backend/pkg/pagination"
)

type fakeOrderRepo struct {
	order      *models.Order
	casOK      bool
	casFrom    enums.OrderStatus
	casTo      enums.OrderStatus
	casExtra   map[string]any
	casUpdated bool
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error { return nil }

func (f *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.order
	return &copied, nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, shipping enums.ShippingStatus, extra map[string]any) (bool, error) {
	f.casUpdated = true
	f.casFrom = from
	f.casTo = to
	f.casExtra = extra
	if !f.casOK {
		return false, nil
	}
	f.order.Status = to
	f.order.ShippingStatus = shipping
	return true, nil
}

func (f *fakeOrderRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) ListByMarket(ctx context.Context, marketID uuid.UUID, status enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) ListExpiredPickups(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	return nil, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) eventTypes() []enums.OutboxEventType {
	types := make([]enums.OutboxEventType, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.EventType)
	}
	return types
}

type creditCall struct {
	userID uuid.UUID
	amount int64
	kind   enums.WalletLogType
}

type fakeLedger struct {
	credits []creditCall
}

func (f *fakeLedger) CreditInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int64, kind enums.WalletLogType, description string, orderID *uuid.UUID) error {
	f.credits = append(f.credits, creditCall{userID: userID, amount: amount, kind: kind})
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, repo *fakeOrderRepo) (Service, *fakeOutbox, *fakeLedger) {
	t.Helper()
	ob := &fakeOutbox{}
	ledger := &fakeLedger{}
	svc, err := NewService(repo, fakeTxRunner{}, ob, ledger, testLogger())
	require.NoError(t, err)
	return svc, ob, ledger
}

func TestTransitionMerchantPacks(t *testing.T) {
	order := courierOrder(enums.OrderStatusProcessing)
	repo := &fakeOrderRepo{order: order, casOK: true}
	svc, ob, ledger := newTestService(t, repo)

	updated, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   order.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleMerchant,
		Target:    enums.OrderStatusPacking,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPacking, updated.Status)
	assert.Equal(t, enums.ShippingStatusConfirmed, updated.ShippingStatus)
	assert.Equal(t, enums.OrderStatusProcessing, repo.casFrom)
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderStateChanged}, ob.eventTypes())
	assert.Empty(t, ledger.credits)
}

func TestTransitionLostRaceReturnsConflict(t *testing.T) {
	order := courierOrder(enums.OrderStatusProcessing)
	repo := &fakeOrderRepo{order: order, casOK: false}
	svc, ob, _ := newTestService(t, repo)

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   order.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleMerchant,
		Target:    enums.OrderStatusPacking,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
	assert.True(t, repo.casUpdated)
	assert.Empty(t, ob.events)
}

func TestTransitionGuardRejectsWrongRole(t *testing.T) {
	order := courierOrder(enums.OrderStatusPacking)
	repo := &fakeOrderRepo{order: order, casOK: true}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   order.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleCourier,
		Target:    enums.OrderStatusReadyToPickup,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
	assert.False(t, repo.casUpdated)
}

func TestTransitionReadyEmitsRadarEvent(t *testing.T) {
	order := courierOrder(enums.OrderStatusPacking)
	order.CourierEarningTotal = 9600
	repo := &fakeOrderRepo{order: order, casOK: true}
	svc, ob, _ := newTestService(t, repo)

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   order.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleMerchant,
		Target:    enums.OrderStatusReadyToPickup,
	})
	require.NoError(t, err)
	assert.Equal(t, []enums.OutboxEventType{
		enums.EventOrderStateChanged,
		enums.EventOrderReady,
	}, ob.eventTypes())
}

func TestTransitionReadyPickupOrderSkipsRadarEvent(t *testing.T) {
	order := pickupOrder(enums.OrderStatusPacking)
	repo := &fakeOrderRepo{order: order, casOK: true}
	svc, ob, _ := newTestService(t, repo)

	updated, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   order.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleMerchant,
		Target:    enums.OrderStatusReadyToPickup,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ShippingStatusPickupWaiting, updated.ShippingStatus)
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderStateChanged}, ob.eventTypes())
}

func TestTransitionCancelRefundsUsedBalance(t *testing.T) {
	order := courierOrder(enums.OrderStatusProcessing)
	order.CustomerID = uuid.New()
	order.UsedBalance = 15000
	repo := &fakeOrderRepo{order: order, casOK: true}
	svc, ob, ledger := newTestService(t, repo)

	updated, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   order.ID,
		ActorID:   order.CustomerID,
		ActorRole: enums.ActorRoleCustomer,
		Target:    enums.OrderStatusCancelled,
		Reason:    "changed my mind",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CancelledAt)

	require.Len(t, ledger.credits, 1)
	assert.Equal(t, order.CustomerID, ledger.credits[0].userID)
	assert.Equal(t, int64(15000), ledger.credits[0].amount)
	assert.Equal(t, enums.WalletLogTypeBalanceRefund, ledger.credits[0].kind)

	assert.Equal(t, []enums.OutboxEventType{
		enums.EventOrderStateChanged,
		enums.EventOrderCancelled,
	}, ob.eventTypes())
}

func TestTransitionCancelWithoutBalanceSkipsLedger(t *testing.T) {
	order := courierOrder(enums.OrderStatusUnpaid)
	order.CustomerID = uuid.New()
	repo := &fakeOrderRepo{order: order, casOK: true}
	svc, _, ledger := newTestService(t, repo)

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   order.ID,
		ActorID:   order.CustomerID,
		ActorRole: enums.ActorRoleCustomer,
		Target:    enums.OrderStatusCancelled,
	})
	require.NoError(t, err)
	assert.Empty(t, ledger.credits)
}

func TestTransitionCompleteSettlesPayouts(t *testing.T) {
	merchantID := uuid.New()
	courierID := uuid.New()

	order := courierOrder(enums.OrderStatusShipping)
	order.CustomerID = uuid.New()
	order.CourierID = &courierID
	order.CourierEarningTotal = 9600
	// delivery margin 2400 + service fee 2000 + admin fee 1000
	order.ShippingCost = 12000
	order.ServiceFee = 2000
	order.SystemFee = 5400
	order.Items = []models.OrderItem{
		{MerchantID: merchantID, Quantity: 2, PriceAtPurchase: 25000},
	}
	order.TotalPrice = 64000

	repo := &fakeOrderRepo{order: order, casOK: true}
	svc, ob, ledger := newTestService(t, repo)

	updated, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:   order.ID,
		ActorID:   courierID,
		ActorRole: enums.ActorRoleCourier,
		Target:    enums.OrderStatusCompleted,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)

	byUser := map[uuid.UUID]creditCall{}
	for _, c := range ledger.credits {
		byUser[c.userID] = c
	}
	require.Len(t, byUser, 2)
	assert.Equal(t, int64(49000), byUser[merchantID].amount) // 50000 - admin fee 1000
	assert.Equal(t, enums.WalletLogTypeMerchantPayout, byUser[merchantID].kind)
	assert.Equal(t, int64(9600), byUser[courierID].amount)
	assert.Equal(t, enums.WalletLogTypeCourierPayout, byUser[courierID].kind)

	assert.Equal(t, []enums.OutboxEventType{
		enums.EventOrderStateChanged,
		enums.EventOrderCompleted,
	}, ob.eventTypes())
}

func TestVerifyPickupCompletesAndPaysCashback(t *testing.T) {
	merchantID := uuid.New()
	code := "482913"
	expires := time.Now().Add(2 * time.Hour)

	order := pickupOrder(enums.OrderStatusReadyToPickup)
	order.CustomerID = uuid.New()
	order.PaymentMethod = enums.PaymentMethodOnline
	order.PickupCode = &code
	order.PickupExpiredAt = &expires
	order.CashbackAmount = 2000
	order.Items = []models.OrderItem{
		{MerchantID: merchantID, Quantity: 1, PriceAtPurchase: 50000},
	}
	order.TotalPrice = 50000

	repo := &fakeOrderRepo{order: order, casOK: true}
	svc, _, ledger := newTestService(t, repo)

	updated, err := svc.VerifyPickup(context.Background(), VerifyPickupInput{
		OrderID:    order.ID,
		MerchantID: merchantID,
		Code:       code,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, updated.Status)
	assert.Equal(t, enums.ShippingStatusPickedUp, updated.ShippingStatus)

	kinds := map[enums.WalletLogType]int64{}
	for _, c := range ledger.credits {
		kinds[c.kind] = c.amount
	}
	assert.Equal(t, int64(50000), kinds[enums.WalletLogTypeMerchantPayout])
	assert.Equal(t, int64(2000), kinds[enums.WalletLogTypeCashbackCredit])
}

func TestVerifyPickupRejectsWrongCode(t *testing.T) {
	merchantID := uuid.New()
	code := "482913"
	expires := time.Now().Add(2 * time.Hour)

	order := pickupOrder(enums.OrderStatusReadyToPickup)
	order.PickupCode = &code
	order.PickupExpiredAt = &expires
	order.Items = []models.OrderItem{{MerchantID: merchantID, Quantity: 1, PriceAtPurchase: 1000}}

	repo := &fakeOrderRepo{order: order, casOK: true}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.VerifyPickup(context.Background(), VerifyPickupInput{
		OrderID:    order.ID,
		MerchantID: merchantID,
		Code:       "000000",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
	assert.False(t, repo.casUpdated)
}

func TestVerifyPickupRejectsExpiredCode(t *testing.T) {
	merchantID := uuid.New()
	code := "482913"
	expired := time.Now().Add(-time.Minute)

	order := pickupOrder(enums.OrderStatusReadyToPickup)
	order.PickupCode = &code
	order.PickupExpiredAt = &expired
	order.Items = []models.OrderItem{{MerchantID: merchantID, Quantity: 1, PriceAtPurchase: 1000}}

	repo := &fakeOrderRepo{order: order, casOK: true}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.VerifyPickup(context.Background(), VerifyPickupInput{
		OrderID:    order.ID,
		MerchantID: merchantID,
		Code:       code,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestVerifyPickupRejectsForeignMerchant(t *testing.T) {
	code := "482913"
	expires := time.Now().Add(time.Hour)

	order := pickupOrder(enums.OrderStatusReadyToPickup)
	order.PickupCode = &code
	order.PickupExpiredAt = &expires
	order.Items = []models.OrderItem{{MerchantID: uuid.New(), Quantity: 1, PriceAtPurchase: 1000}}

	repo := &fakeOrderRepo{order: order, casOK: true}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.VerifyPickup(context.Background(), VerifyPickupInput{
		OrderID:    order.ID,
		MerchantID: uuid.New(),
		Code:       code,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestGetUnknownOrder(t *testing.T) {
	repo := &fakeOrderRepo{}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
