package couriers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aryasetiadi/lokapasar-backend/pkg/config"
	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
)

type presenceStore interface {
	MarkCourierOnline(ctx context.Context, courierID string, ttl time.Duration) error
	IsCourierOnline(ctx context.Context, courierID string) (bool, error)
}

// HeartbeatInput carries one position ping from a courier device.
type HeartbeatInput struct {
	CourierUserID uuid.UUID
	Latitude      float64
	Longitude     float64
}

// RegisterInput creates a courier profile awaiting admin verification.
type RegisterInput struct {
	UserID   uuid.UUID
	MarketID uuid.UUID
}

// Service manages courier profiles: registration, the heartbeat that keeps a
// courier visible to dispatch, the active toggle and admin verification.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.CourierProfile, error)
	ProfileByUser(ctx context.Context, userID uuid.UUID) (*models.CourierProfile, error)
	Heartbeat(ctx context.Context, input HeartbeatInput) error
	SetActive(ctx context.Context, userID uuid.UUID, active bool) (*models.CourierProfile, error)
	Verify(ctx context.Context, userID uuid.UUID, verified bool) (*models.CourierProfile, error)
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
	EligibleInMarket(ctx context.Context, marketID uuid.UUID) ([]models.CourierProfile, error)
}

type service struct {
	repo     Repository
	presence presenceStore
	cfg      config.DispatchConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a courier profile service.
func NewService(repo Repository, presence presenceStore, cfg config.DispatchConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("courier repository required")
	}
	if presence == nil {
		return nil, fmt.Errorf("presence store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		presence: presence,
		cfg:      cfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.CourierProfile, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.MarketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "market id required")
	}

	if _, err := s.repo.FindByUser(ctx, input.UserID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "courier profile already exists")
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load courier profile")
	}

	profile := &models.CourierProfile{
		ID:       uuid.New(),
		UserID:   input.UserID,
		MarketID: input.MarketID,
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create courier profile")
	}
	return profile, nil
}

func (s *service) ProfileByUser(ctx context.Context, userID uuid.UUID) (*models.CourierProfile, error) {
	return s.repo.FindByUser(ctx, userID)
}

// Heartbeat refreshes both the persisted position and the redis presence key.
// Dispatch reads presence from redis only; a courier whose key expired is
// offline no matter what the row says.
func (s *service) Heartbeat(ctx context.Context, input HeartbeatInput) error {
	if input.CourierUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}

	now := s.now()
	if err := s.repo.UpdatePosition(ctx, input.CourierUserID, input.Latitude, input.Longitude, now); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeForbidden, "no courier profile")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update courier position")
	}

	ttl := s.cfg.HeartbeatTTL
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	if err := s.presence.MarkCourierOnline(ctx, input.CourierUserID.String(), ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh courier presence")
	}
	return nil
}

func (s *service) SetActive(ctx context.Context, userID uuid.UUID, active bool) (*models.CourierProfile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	profile, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "courier profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load courier profile")
	}
	if active && !profile.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "unverified couriers cannot go active")
	}

	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle courier active")
	}
	profile.IsActive = active
	return profile, nil
}

func (s *service) Verify(ctx context.Context, userID uuid.UUID, verified bool) (*models.CourierProfile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	profile, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "courier profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load courier profile")
	}

	if err := s.repo.SetVerified(ctx, userID, verified); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set courier verification")
	}
	profile.IsVerified = verified
	if !verified && profile.IsActive {
		// pulling verification also pulls the courier off the radar
		if err := s.repo.SetActive(ctx, userID, false); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate courier")
		}
		profile.IsActive = false
	}
	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "courier verification updated")
	return profile, nil
}

// EligibleInMarket lists the couriers a ready order should alarm. Presence is
// checked per courier so expired heartbeats drop out of the fan-out.
func (s *service) EligibleInMarket(ctx context.Context, marketID uuid.UUID) ([]models.CourierProfile, error) {
	if marketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "market id required")
	}
	rows, err := s.repo.ListEligible(ctx, marketID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list eligible couriers")
	}
	eligible := rows[:0]
	for _, profile := range rows {
		online, err := s.presence.IsCourierOnline(ctx, profile.UserID.String())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read courier presence")
		}
		if online {
			eligible = append(eligible, profile)
		}
	}
	return eligible, nil
}

func (s *service) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	online, err := s.presence.IsCourierOnline(ctx, userID.String())
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read courier presence")
	}
	return online, nil
}
