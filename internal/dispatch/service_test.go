package dispatch

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aryasetiadi/lokapasar-backend/pkg/config"
	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
	"github.com/aryasetiadi/lokapasar-backend/pkg/metrics"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox"
)

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeDirectory struct {
	profiles map[uuid.UUID]*models.CourierProfile
}

func (f *fakeDirectory) ProfileByUser(ctx context.Context, userID uuid.UUID) (*models.CourierProfile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return profile, nil
}

type fakeLimiter struct {
	allowed bool
	calls   int
}

func (f *fakeLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	f.calls++
	return f.allowed, int64(f.calls), nil
}

func newDispatchTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE orders (
		id text PRIMARY KEY,
		status text NOT NULL,
		shipping_status text NOT NULL,
		market_id text NOT NULL,
		customer_id text NOT NULL,
		courier_id text,
		shipping_method text NOT NULL,
		payment_method text NOT NULL,
		district_name text NOT NULL,
		address text,
		pickup_code text,
		pickup_expired_at datetime,
		total_price integer NOT NULL,
		shipping_cost integer NOT NULL DEFAULT 0,
		service_fee integer NOT NULL DEFAULT 0,
		system_fee integer NOT NULL DEFAULT 0,
		courier_earning_total integer NOT NULL DEFAULT 0,
		cashback_amount integer NOT NULL DEFAULT 0,
		used_balance integer NOT NULL DEFAULT 0,
		completed_at datetime,
		cancelled_at datetime,
		created_at datetime,
		updated_at datetime
	)`).Error)
	require.NoError(t, conn.Exec(`CREATE TABLE order_items (
		id text PRIMARY KEY,
		order_id text NOT NULL,
		merchant_id text NOT NULL,
		product_id text NOT NULL,
		product_name text NOT NULL,
		quantity integer NOT NULL,
		price_at_purchase integer NOT NULL,
		created_at datetime
	)`).Error)
	return conn
}

type dispatchFixture struct {
	db       *gorm.DB
	repo     Repository
	svc      Service
	outbox   *fakeOutbox
	limiter  *fakeLimiter
	dir      *fakeDirectory
	marketID uuid.UUID
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	db := newDispatchTestDB(t)
	repo := NewRepository(db)
	ob := &fakeOutbox{}
	limiter := &fakeLimiter{allowed: true}
	dir := &fakeDirectory{profiles: map[uuid.UUID]*models.CourierProfile{}}
	cfg := config.DispatchConfig{
		RadarPageSize:   20,
		ClaimRateLimit:  30,
		ClaimRateWindow: time.Minute,
	}

	svc, err := NewService(repo, dir, sqliteTxRunner{db: db}, ob, limiter,
		metrics.NewDispatchMetrics(nil), cfg,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)

	return &dispatchFixture{
		db:       db,
		repo:     repo,
		svc:      svc,
		outbox:   ob,
		limiter:  limiter,
		dir:      dir,
		marketID: uuid.New(),
	}
}

func (fx *dispatchFixture) addCourier(t *testing.T, marketID uuid.UUID, active, verified bool) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	fx.dir.profiles[userID] = &models.CourierProfile{
		ID:         uuid.New(),
		UserID:     userID,
		MarketID:   marketID,
		IsActive:   active,
		IsVerified: verified,
	}
	return userID
}

func (fx *dispatchFixture) addOrder(t *testing.T, mutate func(*models.Order)) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:             uuid.New(),
		Status:         enums.OrderStatusReadyToPickup,
		ShippingStatus: enums.ShippingStatusReady,
		MarketID:       fx.marketID,
		CustomerID:     uuid.New(),
		ShippingMethod: enums.ShippingMethodCourier,
		PaymentMethod:  enums.PaymentMethodOnline,
		DistrictName:   "Coblong",
		TotalPrice:     64000,
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, fx.db.Create(order).Error)
	return order
}

func TestRadarListsOnlyClaimableOrdersInMarket(t *testing.T) {
	fx := newDispatchFixture(t)
	courier := fx.addCourier(t, fx.marketID, true, true)

	claimable := fx.addOrder(t, nil)
	fx.addOrder(t, func(o *models.Order) { o.ShippingMethod = enums.ShippingMethodPickup; o.ShippingStatus = enums.ShippingStatusPickupWaiting })
	fx.addOrder(t, func(o *models.Order) { o.Status = enums.OrderStatusPacking; o.ShippingStatus = enums.ShippingStatusConfirmed })
	fx.addOrder(t, func(o *models.Order) { o.MarketID = uuid.New() })
	taken := uuid.New()
	fx.addOrder(t, func(o *models.Order) {
		o.Status = enums.OrderStatusPickingUp
		o.ShippingStatus = enums.ShippingStatusCourierOnWay
		o.CourierID = &taken
	})

	rows, err := fx.svc.Radar(context.Background(), courier)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, claimable.ID, rows[0].ID)
}

func TestRadarListsNewestFirst(t *testing.T) {
	fx := newDispatchFixture(t)
	courier := fx.addCourier(t, fx.marketID, true, true)

	older := fx.addOrder(t, func(o *models.Order) { o.CreatedAt = time.Now().Add(-time.Hour) })
	newer := fx.addOrder(t, func(o *models.Order) { o.CreatedAt = time.Now() })

	rows, err := fx.svc.Radar(context.Background(), courier)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
}

func TestRadarRequiresEligibleProfile(t *testing.T) {
	fx := newDispatchFixture(t)

	unverified := fx.addCourier(t, fx.marketID, true, false)
	_, err := fx.svc.Radar(context.Background(), unverified)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())

	_, err = fx.svc.Radar(context.Background(), uuid.New()) // no profile at all
	require.Error(t, err)
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestClaimWinnerTakesOrder(t *testing.T) {
	fx := newDispatchFixture(t)
	courier := fx.addCourier(t, fx.marketID, true, true)
	order := fx.addOrder(t, nil)

	claimed, err := fx.svc.Claim(context.Background(), ClaimInput{
		OrderID:       order.ID,
		CourierUserID: courier,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPickingUp, claimed.Status)
	assert.Equal(t, enums.ShippingStatusCourierOnWay, claimed.ShippingStatus)
	require.NotNil(t, claimed.CourierID)
	assert.Equal(t, courier, *claimed.CourierID)

	require.Len(t, fx.outbox.events, 2)
	assert.Equal(t, enums.EventOrderClaimed, fx.outbox.events[0].EventType)
	assert.Equal(t, enums.EventOrderStateChanged, fx.outbox.events[1].EventType)
}

func TestClaimAtMostOneWinner(t *testing.T) {
	fx := newDispatchFixture(t)
	first := fx.addCourier(t, fx.marketID, true, true)
	second := fx.addCourier(t, fx.marketID, true, true)
	order := fx.addOrder(t, nil)

	_, err := fx.svc.Claim(context.Background(), ClaimInput{OrderID: order.ID, CourierUserID: first})
	require.NoError(t, err)

	_, err = fx.svc.Claim(context.Background(), ClaimInput{OrderID: order.ID, CourierUserID: second})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	// the stored ownership never flips
	stored, err := fx.repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CourierID)
	assert.Equal(t, first, *stored.CourierID)
}

func TestClaimConditionalUpdateRace(t *testing.T) {
	// exercises the repository primitive directly: both writers passed the
	// same snapshot check, only one row update may land
	fx := newDispatchFixture(t)
	order := fx.addOrder(t, nil)
	ctx := context.Background()

	wonA, err := fx.repo.Claim(ctx, order.ID, uuid.New())
	require.NoError(t, err)
	wonB, err := fx.repo.Claim(ctx, order.ID, uuid.New())
	require.NoError(t, err)

	assert.True(t, wonA)
	assert.False(t, wonB)
}

func TestClaimRejectsForeignMarket(t *testing.T) {
	fx := newDispatchFixture(t)
	courier := fx.addCourier(t, uuid.New(), true, true) // different market
	order := fx.addOrder(t, nil)

	_, err := fx.svc.Claim(context.Background(), ClaimInput{OrderID: order.ID, CourierUserID: courier})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestClaimRejectsPickupOrder(t *testing.T) {
	fx := newDispatchFixture(t)
	courier := fx.addCourier(t, fx.marketID, true, true)
	order := fx.addOrder(t, func(o *models.Order) {
		o.ShippingMethod = enums.ShippingMethodPickup
		o.ShippingStatus = enums.ShippingStatusPickupWaiting
	})

	_, err := fx.svc.Claim(context.Background(), ClaimInput{OrderID: order.ID, CourierUserID: courier})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestClaimRateLimited(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.limiter.allowed = false
	courier := fx.addCourier(t, fx.marketID, true, true)
	order := fx.addOrder(t, nil)

	_, err := fx.svc.Claim(context.Background(), ClaimInput{OrderID: order.ID, CourierUserID: courier})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeRateLimit, appErr.Code())
}
