package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox/idempotency"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type pusher interface {
	Push(ctx context.Context, input PushInput) (*models.Notification, error)
}

type orderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type courierDirectory interface {
	EligibleInMarket(ctx context.Context, marketID uuid.UUID) ([]models.CourierProfile, error)
}

// Consumer turns published domain events into inbox rows for the actors who
// care about them.
type Consumer struct {
	inbox         pusher
	orders        orderReader
	couriers      courierDirectory
	subscriptions []*pubsub.Subscriber
	idempotency   *idempotency.Manager
	logg          *logger.Logger
}

// NewConsumer builds the order event consumer. Subscriptions may span the
// orders and wallet topics; all feed the same handler.
func NewConsumer(inbox pusher, orders orderReader, couriers courierDirectory, manager *idempotency.Manager, logg *logger.Logger, subscriptions ...*pubsub.Subscriber) (*Consumer, error) {
	if inbox == nil {
		return nil, fmt.Errorf("notification service required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if couriers == nil {
		return nil, fmt.Errorf("courier directory required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	subs := make([]*pubsub.Subscriber, 0, len(subscriptions))
	for _, sub := range subscriptions {
		if sub != nil {
			subs = append(subs, sub)
		}
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("at least one subscription required")
	}
	return &Consumer{
		inbox:         inbox,
		orders:        orders,
		couriers:      couriers,
		subscriptions: subs,
		idempotency:   manager,
		logg:          logg,
	}, nil
}

// Run starts a receive loop per subscription until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	errCh := make(chan error, len(c.subscriptions))
	for _, sub := range c.subscriptions {
		sub := sub
		go func() {
			errCh <- sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
				result := c.process(ctx, msg)
				if result.nack {
					msg.Nack()
					return
				}
				msg.Ack()
			})
		}()
	}

	for range c.subscriptions {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return ctx.Err()
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope, logCtx context.Context) error {
	switch eventType {
	case enums.EventOrderCreated:
		return c.onOrderCreated(ctx, envelope, logCtx)
	case enums.EventOrderReady:
		return c.onOrderReady(ctx, envelope, logCtx)
	case enums.EventOrderClaimed:
		return c.onOrderClaimed(ctx, envelope, logCtx)
	case enums.EventOrderCancelled:
		return c.onOrderCancelled(ctx, envelope, logCtx)
	case enums.EventOrderCompleted:
		return c.onOrderCompleted(ctx, envelope, logCtx)
	case enums.EventWithdrawalRequested:
		return c.onWithdrawalRequested(ctx, envelope)
	case enums.EventWithdrawalResolved:
		return c.onWithdrawalResolved(ctx, envelope)
	default:
		c.logg.Info(logCtx, "event not handled")
		return nil
	}
}

func (c *Consumer) onOrderCreated(ctx context.Context, envelope outbox.PayloadEnvelope, logCtx context.Context) error {
	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return err
	}
	merchants, err := c.orderMerchants(ctx, payload.OrderID)
	if err != nil {
		return err
	}
	for _, merchantID := range merchants {
		if err := c.push(ctx, PushInput{
			RecipientID: merchantID,
			Kind:        enums.NotificationKindNewOrder,
			Title:       "New order",
			Message:     fmt.Sprintf("You have a new order worth %d.", payload.TotalPrice),
			OrderID:     &payload.OrderID,
			MarketID:    &payload.MarketID,
		}); err != nil {
			return err
		}
	}
	c.logg.Info(logCtx, "merchants notified of new order")
	return nil
}

// onOrderReady alarms every eligible online courier in the order's market.
// At-least-once delivery is fine here; the inbox tolerates duplicates across
// retries because the processed mark covers the whole fan-out.
func (c *Consumer) onOrderReady(ctx context.Context, envelope outbox.PayloadEnvelope, logCtx context.Context) error {
	var payload payloads.OrderReadyEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return err
	}
	couriers, err := c.couriers.EligibleInMarket(ctx, payload.MarketID)
	if err != nil {
		return err
	}
	for _, courier := range couriers {
		if err := c.push(ctx, PushInput{
			RecipientID: courier.UserID,
			Kind:        enums.NotificationKindOrderReady,
			Title:       "Order ready for pickup",
			Message:     fmt.Sprintf("A delivery in %s pays %d. First to claim wins.", payload.DistrictName, payload.CourierFee),
			OrderID:     &payload.OrderID,
			MarketID:    &payload.MarketID,
		}); err != nil {
			return err
		}
	}
	c.logg.Info(c.logg.WithField(logCtx, "courier_count", len(couriers)), "couriers alarmed for ready order")
	return nil
}

func (c *Consumer) onOrderClaimed(ctx context.Context, envelope outbox.PayloadEnvelope, logCtx context.Context) error {
	var payload payloads.OrderClaimedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return err
	}
	order, err := c.orders.FindByID(ctx, payload.OrderID)
	if err != nil {
		return err
	}
	if err := c.push(ctx, PushInput{
		RecipientID: order.CustomerID,
		Kind:        enums.NotificationKindOrderClaimed,
		Title:       "Courier on the way",
		Message:     "A courier claimed your order and is heading to the market.",
		OrderID:     &payload.OrderID,
		MarketID:    &payload.MarketID,
	}); err != nil {
		return err
	}
	for _, merchantID := range distinctMerchants(order) {
		if err := c.push(ctx, PushInput{
			RecipientID: merchantID,
			Kind:        enums.NotificationKindOrderClaimed,
			Title:       "Courier assigned",
			Message:     "A courier claimed this order and will pick it up shortly.",
			OrderID:     &payload.OrderID,
			MarketID:    &payload.MarketID,
		}); err != nil {
			return err
		}
	}
	c.logg.Info(logCtx, "claim notifications sent")
	return nil
}

// onOrderCancelled notifies the counterparty of whoever cancelled. When the
// actor is unknown both sides hear about it.
func (c *Consumer) onOrderCancelled(ctx context.Context, envelope outbox.PayloadEnvelope, logCtx context.Context) error {
	var payload payloads.OrderCancelledEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return err
	}
	order, err := c.orders.FindByID(ctx, payload.OrderID)
	if err != nil {
		return err
	}

	actorRole := ""
	if envelope.Actor != nil {
		actorRole = envelope.Actor.Role
	}
	message := "The order was cancelled."
	if payload.Reason != "" {
		message = fmt.Sprintf("The order was cancelled: %s", payload.Reason)
	}

	if actorRole != string(enums.ActorRoleCustomer) {
		if err := c.push(ctx, PushInput{
			RecipientID: order.CustomerID,
			Kind:        enums.NotificationKindOrderCancelled,
			Title:       "Order cancelled",
			Message:     message,
			OrderID:     &payload.OrderID,
			MarketID:    &payload.MarketID,
		}); err != nil {
			return err
		}
	}
	if actorRole != string(enums.ActorRoleMerchant) {
		for _, merchantID := range distinctMerchants(order) {
			if err := c.push(ctx, PushInput{
				RecipientID: merchantID,
				Kind:        enums.NotificationKindOrderCancelled,
				Title:       "Order cancelled",
				Message:     message,
				OrderID:     &payload.OrderID,
				MarketID:    &payload.MarketID,
			}); err != nil {
				return err
			}
		}
	}
	c.logg.Info(logCtx, "cancellation notifications sent")
	return nil
}

func (c *Consumer) onOrderCompleted(ctx context.Context, envelope outbox.PayloadEnvelope, logCtx context.Context) error {
	var payload payloads.OrderCompletedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return err
	}
	if err := c.push(ctx, PushInput{
		RecipientID: payload.CustomerID,
		Kind:        enums.NotificationKindOrderCompleted,
		Title:       "Order completed",
		Message:     "Your order is done. Thanks for shopping at the market.",
		OrderID:     &payload.OrderID,
		MarketID:    &payload.MarketID,
	}); err != nil {
		return err
	}
	if payload.Cashback > 0 {
		if err := c.push(ctx, PushInput{
			RecipientID: payload.CustomerID,
			Kind:        enums.NotificationKindCashback,
			Title:       "Cashback credited",
			Message:     fmt.Sprintf("You earned %d cashback on this order.", payload.Cashback),
			OrderID:     &payload.OrderID,
			MarketID:    &payload.MarketID,
		}); err != nil {
			return err
		}
	}
	c.logg.Info(logCtx, "completion notifications sent")
	return nil
}

func (c *Consumer) onWithdrawalRequested(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.WithdrawalRequestedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return err
	}
	return c.push(ctx, PushInput{
		RecipientID: payload.UserID,
		Kind:        enums.NotificationKindWithdrawal,
		Title:       "Withdrawal requested",
		Message:     fmt.Sprintf("Your withdrawal of %d is pending review.", payload.Amount),
	})
}

func (c *Consumer) onWithdrawalResolved(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.WithdrawalResolvedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return err
	}
	message := fmt.Sprintf("Your withdrawal of %d was completed.", payload.Amount)
	if payload.Status == enums.WithdrawalStatusRejected {
		message = fmt.Sprintf("Your withdrawal of %d was rejected. The funds are back in your wallet.", payload.Amount)
	}
	return c.push(ctx, PushInput{
		RecipientID: payload.UserID,
		Kind:        enums.NotificationKindWithdrawal,
		Title:       "Withdrawal resolved",
		Message:     message,
	})
}

func (c *Consumer) push(ctx context.Context, input PushInput) error {
	_, err := c.inbox.Push(ctx, input)
	return err
}

func (c *Consumer) orderMerchants(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	order, err := c.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return distinctMerchants(order), nil
}

func distinctMerchants(order *models.Order) []uuid.UUID {
	if order == nil {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(order.Items))
	out := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		if _, ok := seen[item.MerchantID]; ok {
			continue
		}
		seen[item.MerchantID] = struct{}{}
		out = append(out, item.MerchantID)
	}
	return out
}
