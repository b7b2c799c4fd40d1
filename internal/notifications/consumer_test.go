package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox/payloads"
)

type fakeInbox struct {
	pushed []PushInput
}

func (f *fakeInbox) Push(ctx context.Context, input PushInput) (*models.Notification, error) {
	f.pushed = append(f.pushed, input)
	return &models.Notification{ID: uuid.New()}, nil
}

type fakeOrderReader struct {
	order *models.Order
}

func (f *fakeOrderReader) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return f.order, nil
}

type fakeCourierDir struct {
	profiles []models.CourierProfile
}

func (f *fakeCourierDir) EligibleInMarket(ctx context.Context, marketID uuid.UUID) ([]models.CourierProfile, error) {
	return f.profiles, nil
}

func newTestConsumer(inbox *fakeInbox, orders *fakeOrderReader, couriers *fakeCourierDir) *Consumer {
	return &Consumer{
		inbox:    inbox,
		orders:   orders,
		couriers: couriers,
		logg:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func mustEnvelope(t *testing.T, actor *outbox.ActorRef, data any) outbox.PayloadEnvelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Actor:      actor,
		Data:       raw,
	}
}

func TestOrderReadyAlarmsEachEligibleCourier(t *testing.T) {
	courierA := uuid.New()
	courierB := uuid.New()
	inbox := &fakeInbox{}
	consumer := newTestConsumer(inbox, &fakeOrderReader{}, &fakeCourierDir{
		profiles: []models.CourierProfile{
			{UserID: courierA},
			{UserID: courierB},
		},
	})

	orderID := uuid.New()
	envelope := mustEnvelope(t, nil, payloads.OrderReadyEvent{
		OrderID:      orderID,
		MarketID:     uuid.New(),
		DistrictName: "Coblong",
		CourierFee:   12000,
	})
	require.NoError(t, consumer.handle(context.Background(), enums.EventOrderReady, envelope, context.Background()))

	require.Len(t, inbox.pushed, 2)
	recipients := []uuid.UUID{inbox.pushed[0].RecipientID, inbox.pushed[1].RecipientID}
	assert.ElementsMatch(t, []uuid.UUID{courierA, courierB}, recipients)
	for _, push := range inbox.pushed {
		assert.Equal(t, enums.NotificationKindOrderReady, push.Kind)
		require.NotNil(t, push.OrderID)
		assert.Equal(t, orderID, *push.OrderID)
	}
}

func TestOrderCreatedNotifiesDistinctMerchants(t *testing.T) {
	merchant := uuid.New()
	otherMerchant := uuid.New()
	order := &models.Order{
		ID: uuid.New(),
		Items: []models.OrderItem{
			{MerchantID: merchant},
			{MerchantID: merchant},
			{MerchantID: otherMerchant},
		},
	}
	inbox := &fakeInbox{}
	consumer := newTestConsumer(inbox, &fakeOrderReader{order: order}, &fakeCourierDir{})

	envelope := mustEnvelope(t, nil, payloads.OrderCreatedEvent{
		OrderID:    order.ID,
		MarketID:   uuid.New(),
		TotalPrice: 50000,
	})
	require.NoError(t, consumer.handle(context.Background(), enums.EventOrderCreated, envelope, context.Background()))

	require.Len(t, inbox.pushed, 2)
	recipients := []uuid.UUID{inbox.pushed[0].RecipientID, inbox.pushed[1].RecipientID}
	assert.ElementsMatch(t, []uuid.UUID{merchant, otherMerchant}, recipients)
	assert.Equal(t, enums.NotificationKindNewOrder, inbox.pushed[0].Kind)
}

func TestOrderCancelledByCustomerSkipsCustomer(t *testing.T) {
	customerID := uuid.New()
	merchantID := uuid.New()
	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Items:      []models.OrderItem{{MerchantID: merchantID}},
	}
	inbox := &fakeInbox{}
	consumer := newTestConsumer(inbox, &fakeOrderReader{order: order}, &fakeCourierDir{})

	actor := &outbox.ActorRef{UserID: customerID, Role: string(enums.ActorRoleCustomer)}
	envelope := mustEnvelope(t, actor, payloads.OrderCancelledEvent{
		OrderID:  order.ID,
		MarketID: uuid.New(),
		Reason:   "changed my mind",
	})
	require.NoError(t, consumer.handle(context.Background(), enums.EventOrderCancelled, envelope, context.Background()))

	require.Len(t, inbox.pushed, 1)
	assert.Equal(t, merchantID, inbox.pushed[0].RecipientID)
	assert.Contains(t, inbox.pushed[0].Message, "changed my mind")
}

func TestOrderCompletedWithCashbackPushesTwice(t *testing.T) {
	customerID := uuid.New()
	inbox := &fakeInbox{}
	consumer := newTestConsumer(inbox, &fakeOrderReader{}, &fakeCourierDir{})

	envelope := mustEnvelope(t, nil, payloads.OrderCompletedEvent{
		OrderID:    uuid.New(),
		MarketID:   uuid.New(),
		CustomerID: customerID,
		Cashback:   1500,
	})
	require.NoError(t, consumer.handle(context.Background(), enums.EventOrderCompleted, envelope, context.Background()))

	require.Len(t, inbox.pushed, 2)
	assert.Equal(t, enums.NotificationKindOrderCompleted, inbox.pushed[0].Kind)
	assert.Equal(t, enums.NotificationKindCashback, inbox.pushed[1].Kind)
	for _, push := range inbox.pushed {
		assert.Equal(t, customerID, push.RecipientID)
	}
}

func TestWithdrawalRejectedMentionsRefund(t *testing.T) {
	userID := uuid.New()
	inbox := &fakeInbox{}
	consumer := newTestConsumer(inbox, &fakeOrderReader{}, &fakeCourierDir{})

	envelope := mustEnvelope(t, nil, payloads.WithdrawalResolvedEvent{
		WithdrawalID: uuid.New(),
		UserID:       userID,
		Amount:       25000,
		Status:       enums.WithdrawalStatusRejected,
	})
	require.NoError(t, consumer.handle(context.Background(), enums.EventWithdrawalResolved, envelope, context.Background()))

	require.Len(t, inbox.pushed, 1)
	assert.Equal(t, enums.NotificationKindWithdrawal, inbox.pushed[0].Kind)
	assert.Contains(t, inbox.pushed[0].Message, "back in your wallet")
}

func TestUnknownEventIsIgnored(t *testing.T) {
	inbox := &fakeInbox{}
	consumer := newTestConsumer(inbox, &fakeOrderReader{}, &fakeCourierDir{})

	envelope := mustEnvelope(t, nil, map[string]string{})
	require.NoError(t, consumer.handle(context.Background(), enums.EventWalletDebited, envelope, context.Background()))
	assert.Empty(t, inbox.pushed)
}
