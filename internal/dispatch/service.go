package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aryasetiadi/lokapasar-backend/pkg/config"
	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
	"github.com/aryasetiadi/lokapasar-backend/pkg/metrics"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// CourierDirectory resolves a courier's dispatch eligibility profile.
type CourierDirectory interface {
	ProfileByUser(ctx context.Context, userID uuid.UUID) (*models.CourierProfile, error)
}

// ClaimInput identifies one claim attempt.
type ClaimInput struct {
	OrderID       uuid.UUID
	CourierUserID uuid.UUID
}

// Service is the dispatch engine: the radar listing plus the claim race.
type Service interface {
	Radar(ctx context.Context, courierUserID uuid.UUID) ([]models.Order, error)
	Claim(ctx context.Context, input ClaimInput) (*models.Order, error)
}

type service struct {
	repo     Repository
	couriers CourierDirectory
	tx       txRunner
	outbox   outboxPublisher
	limiter  rateLimiter
	metrics  *metrics.DispatchMetrics
	cfg      config.DispatchConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the dispatch engine with the required dependencies.
func NewService(repo Repository, couriers CourierDirectory, tx txRunner, ob outboxPublisher, limiter rateLimiter, dm *metrics.DispatchMetrics, cfg config.DispatchConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if couriers == nil {
		return nil, fmt.Errorf("courier directory required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		couriers: couriers,
		tx:       tx,
		outbox:   ob,
		limiter:  limiter,
		metrics:  dm,
		cfg:      cfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Radar lists claimable orders in the courier's market, newest first. The
// listing is a snapshot; every entry may already be gone by the time the
// courier taps it, which is why Claim re-checks everything.
func (s *service) Radar(ctx context.Context, courierUserID uuid.UUID) ([]models.Order, error) {
	profile, err := s.eligibleProfile(ctx, courierUserID)
	if err != nil {
		return nil, err
	}

	limit := s.cfg.RadarPageSize
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.repo.ListClaimable(ctx, profile.MarketID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list claimable orders")
	}
	return rows, nil
}

// Claim races for the order. The winner is decided by a single conditional
// update on (status, courier_id); everyone else gets a conflict and refreshes
// their radar.
func (s *service) Claim(ctx context.Context, input ClaimInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	if s.cfg.ClaimRateLimit > 0 {
		scope := "claim:" + input.CourierUserID.String()
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, scope, int64(s.cfg.ClaimRateLimit), s.cfg.ClaimRateWindow)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim rate limit")
		}
		if !allowed {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many claim attempts")
		}
	}

	profile, err := s.eligibleProfile(ctx, input.CourierUserID)
	if err != nil {
		return nil, err
	}

	var result *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.IsSelfPickup() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "self-pickup orders are not dispatched")
		}
		if !profile.Eligible(order.MarketID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "courier not eligible for this market")
		}
		if order.Status != enums.OrderStatusReadyToPickup || order.CourierID != nil {
			s.metrics.IncClaimLost()
			return pkgerrors.New(pkgerrors.CodeConflict, "order no longer claimable")
		}

		won, err := repo.Claim(ctx, order.ID, input.CourierUserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order")
		}
		if !won {
			s.metrics.IncClaimLost()
			return pkgerrors.New(pkgerrors.CodeConflict, "another courier claimed the order first")
		}
		s.metrics.IncClaimWon()

		now := s.now()
		courierID := input.CourierUserID
		order.Status = enums.OrderStatusPickingUp
		order.ShippingStatus = enums.ShippingStatusCourierOnWay
		order.CourierID = &courierID

		actor := &outbox.ActorRef{UserID: input.CourierUserID, Role: enums.ActorRoleCourier.String()}
		events := []outbox.DomainEvent{
			{
				EventType:     enums.EventOrderClaimed,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         actor,
				Data: payloads.OrderClaimedEvent{
					OrderID:   order.ID,
					MarketID:  order.MarketID,
					CourierID: input.CourierUserID,
					ClaimedAt: now,
				},
			},
			{
				EventType:     enums.EventOrderStateChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         actor,
				Data: payloads.OrderStateChangedEvent{
					OrderID:    order.ID,
					MarketID:   order.MarketID,
					FromStatus: enums.OrderStatusReadyToPickup,
					ToStatus:   enums.OrderStatusPickingUp,
					ActorRole:  enums.ActorRoleCourier,
				},
			},
		}
		for _, event := range events {
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit claim event")
			}
		}

		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   result.ID.String(),
		"courier_id": input.CourierUserID.String(),
	})
	s.logg.Info(logCtx, "order claimed")
	return result, nil
}

func (s *service) eligibleProfile(ctx context.Context, courierUserID uuid.UUID) (*models.CourierProfile, error) {
	if courierUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	profile, err := s.couriers.ProfileByUser(ctx, courierUserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "no courier profile")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load courier profile")
	}
	if !profile.IsActive || !profile.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "courier not active or not verified")
	}
	return profile, nil
}
