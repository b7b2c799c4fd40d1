package couriers

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
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
)

type fakePresence struct {
	online map[string]time.Duration
}

func (f *fakePresence) MarkCourierOnline(ctx context.Context, courierID string, ttl time.Duration) error {
	f.online[courierID] = ttl
	return nil
}

func (f *fakePresence) IsCourierOnline(ctx context.Context, courierID string) (bool, error) {
	_, ok := f.online[courierID]
	return ok, nil
}

func newCourierTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE courier_profiles (
		id text PRIMARY KEY,
		user_id text NOT NULL UNIQUE,
		market_id text NOT NULL,
		is_active boolean NOT NULL DEFAULT false,
		is_verified boolean NOT NULL DEFAULT false,
		latitude real NOT NULL DEFAULT 0,
		longitude real NOT NULL DEFAULT 0,
		last_seen_at datetime,
		created_at datetime,
		updated_at datetime
	)`).Error)
	return conn
}

func newCourierFixture(t *testing.T) (Service, *fakePresence) {
	t.Helper()
	presence := &fakePresence{online: map[string]time.Duration{}}
	svc, err := NewService(
		NewRepository(newCourierTestDB(t)),
		presence,
		config.DispatchConfig{HeartbeatTTL: 90 * time.Second},
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	)
	require.NoError(t, err)
	return svc, presence
}

func TestRegisterAndDuplicate(t *testing.T) {
	svc, _ := newCourierFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	profile, err := svc.Register(ctx, RegisterInput{UserID: userID, MarketID: uuid.New()})
	require.NoError(t, err)
	assert.False(t, profile.IsActive)
	assert.False(t, profile.IsVerified)

	_, err = svc.Register(ctx, RegisterInput{UserID: userID, MarketID: uuid.New()})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestHeartbeatUpdatesPositionAndPresence(t *testing.T) {
	svc, presence := newCourierFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Register(ctx, RegisterInput{UserID: userID, MarketID: uuid.New()})
	require.NoError(t, err)

	err = svc.Heartbeat(ctx, HeartbeatInput{
		CourierUserID: userID,
		Latitude:      -6.8915,
		Longitude:     107.6107,
	})
	require.NoError(t, err)

	profile, err := svc.ProfileByUser(ctx, userID)
	require.NoError(t, err)
	assert.InDelta(t, -6.8915, profile.Latitude, 1e-9)
	assert.InDelta(t, 107.6107, profile.Longitude, 1e-9)
	require.NotNil(t, profile.LastSeenAt)

	assert.Equal(t, 90*time.Second, presence.online[userID.String()])
	online, err := svc.IsOnline(ctx, userID)
	require.NoError(t, err)
	assert.True(t, online)
}

func TestHeartbeatWithoutProfile(t *testing.T) {
	svc, _ := newCourierFixture(t)

	err := svc.Heartbeat(context.Background(), HeartbeatInput{
		CourierUserID: uuid.New(),
		Latitude:      0,
		Longitude:     0,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestHeartbeatRejectsBadCoordinates(t *testing.T) {
	svc, _ := newCourierFixture(t)

	err := svc.Heartbeat(context.Background(), HeartbeatInput{
		CourierUserID: uuid.New(),
		Latitude:      91,
		Longitude:     0,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestSetActiveRequiresVerification(t *testing.T) {
	svc, _ := newCourierFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Register(ctx, RegisterInput{UserID: userID, MarketID: uuid.New()})
	require.NoError(t, err)

	_, err = svc.SetActive(ctx, userID, true)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())

	_, err = svc.Verify(ctx, userID, true)
	require.NoError(t, err)

	profile, err := svc.SetActive(ctx, userID, true)
	require.NoError(t, err)
	assert.True(t, profile.IsActive)
}

func TestEligibleInMarketFiltersPresence(t *testing.T) {
	svc, presence := newCourierFixture(t)
	ctx := context.Background()
	marketID := uuid.New()

	online := uuid.New()
	stale := uuid.New()
	otherMarket := uuid.New()
	for _, userID := range []uuid.UUID{online, stale} {
		_, err := svc.Register(ctx, RegisterInput{UserID: userID, MarketID: marketID})
		require.NoError(t, err)
		_, err = svc.Verify(ctx, userID, true)
		require.NoError(t, err)
		_, err = svc.SetActive(ctx, userID, true)
		require.NoError(t, err)
	}
	_, err := svc.Register(ctx, RegisterInput{UserID: otherMarket, MarketID: uuid.New()})
	require.NoError(t, err)

	presence.online[online.String()] = 90 * time.Second

	eligible, err := svc.EligibleInMarket(ctx, marketID)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, online, eligible[0].UserID)
}

func TestUnverifyPullsCourierOffline(t *testing.T) {
	svc, _ := newCourierFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Register(ctx, RegisterInput{UserID: userID, MarketID: uuid.New()})
	require.NoError(t, err)
	_, err = svc.Verify(ctx, userID, true)
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, userID, true)
	require.NoError(t, err)

	profile, err := svc.Verify(ctx, userID, false)
	require.NoError(t, err)
	assert.False(t, profile.IsVerified)
	assert.False(t, profile.IsActive)

	stored, err := svc.ProfileByUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}
