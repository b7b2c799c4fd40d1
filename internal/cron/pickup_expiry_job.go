package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox/payloads"
)

const defaultSweepLimit = 100

type expiredPickupReader interface {
	ListExpiredPickups(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
}

type dedupedEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PickupExpiryJobParams configure the pickup window sweep.
type PickupExpiryJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Orders expiredPickupReader
	Outbox dedupedEmitter
	Limit  int
}

// NewPickupExpiryJob builds the cron job that flags self-pickup orders whose
// window has lapsed. Expired orders stay in ready_to_pickup; the sweep only
// surfaces them for operators, who decide whether to cancel.
func NewPickupExpiryJob(params PickupExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("expired pickup reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	return &pickupExpiryJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		limit:  limit,
		now:    time.Now,
	}, nil
}

type pickupExpiryJob struct {
	logg   *logger.Logger
	db     txRunner
	orders expiredPickupReader
	outbox dedupedEmitter
	limit  int
	now    func() time.Time
}

func (j *pickupExpiryJob) Name() string { return "pickup-expiry" }

func (j *pickupExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	expired, err := j.orders.ListExpiredPickups(ctx, now, j.limit)
	if err != nil {
		return fmt.Errorf("query expired pickups: %w", err)
	}
	var errs []error
	flagged := 0
	for _, order := range expired {
		if err := j.flagOrder(ctx, order, now); err != nil {
			errs = append(errs, fmt.Errorf("flag order %s: %w", order.ID, err))
			continue
		}
		flagged++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"flagged": flagged})
	j.logg.Info(logCtx, "pickup expiry sweep complete")
	return multierr.Combine(errs...)
}

func (j *pickupExpiryJob) flagOrder(ctx context.Context, order models.Order, now time.Time) error {
	expiredAt := now
	if order.PickupExpiredAt != nil {
		expiredAt = order.PickupExpiredAt.UTC()
	}
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		event := outbox.DomainEvent{
			EventType:     enums.EventPickupExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.PickupExpiredEvent{
				OrderID:   order.ID,
				MarketID:  order.MarketID,
				ExpiredAt: expiredAt,
			},
		}
		return j.outbox.EmitIfNotExists(ctx, tx, event)
	})
}
