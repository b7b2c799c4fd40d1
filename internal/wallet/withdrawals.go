package wallet

import (
	"context"
	"fmt"
	"strings"
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

// WithdrawalService handles payout requests. The wallet is debited
// optimistically when the request is created; an admin rejection credits the
// exact same amount back via a withdrawal_reversal entry.
type WithdrawalService interface {
	Request(ctx context.Context, input WithdrawalRequestInput) (*models.Withdrawal, error)
	Resolve(ctx context.Context, input WithdrawalResolveInput) (*models.Withdrawal, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Withdrawal, error)
	ListPending(ctx context.Context, limit int) ([]models.Withdrawal, error)
}

// WithdrawalRequestInput carries a new payout request.
type WithdrawalRequestInput struct {
	UserID        uuid.UUID
	Amount        int64
	BankName      string `validate:"required"`
	AccountNumber string `validate:"required"`
	AccountName   string `validate:"required"`
}

// WithdrawalResolveInput carries an admin decision.
type WithdrawalResolveInput struct {
	WithdrawalID uuid.UUID
	AdminID      uuid.UUID
	Approve      bool
}

type withdrawalService struct {
	repo   Repository
	ledger Service
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewWithdrawalService builds a withdrawal service on top of the ledger.
func NewWithdrawalService(repo Repository, ledger Service, tx txRunner, ob outboxPublisher, logg *logger.Logger) (WithdrawalService, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("wallet ledger required")
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
	return &withdrawalService{
		repo:   repo,
		ledger: ledger,
		tx:     tx,
		outbox: ob,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *withdrawalService) Request(ctx context.Context, input WithdrawalRequestInput) (*models.Withdrawal, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(input.BankName) == "" || strings.TrimSpace(input.AccountNumber) == "" || strings.TrimSpace(input.AccountName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank account details required")
	}

	withdrawal := &models.Withdrawal{
		ID:            uuid.New(),
		UserID:        input.UserID,
		Amount:        input.Amount,
		Status:        enums.WithdrawalStatusPending,
		BankName:      strings.TrimSpace(input.BankName),
		AccountNumber: strings.TrimSpace(input.AccountNumber),
		AccountName:   strings.TrimSpace(input.AccountName),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// debit first: an uncovered request must never create a row
		err := s.ledger.DebitInTx(ctx, tx, input.UserID, input.Amount,
			enums.WalletLogTypeWithdrawalDebit, "withdrawal request hold", nil)
		if err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).CreateWithdrawal(ctx, withdrawal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventWithdrawalRequested,
			AggregateType: enums.AggregateWithdrawal,
			AggregateID:   withdrawal.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID},
			Data: payloads.WithdrawalRequestedEvent{
				WithdrawalID: withdrawal.ID,
				UserID:       input.UserID,
				Amount:       input.Amount,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit withdrawal requested")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return withdrawal, nil
}

func (s *withdrawalService) Resolve(ctx context.Context, input WithdrawalResolveInput) (*models.Withdrawal, error) {
	if input.WithdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	target := enums.WithdrawalStatusCompleted
	if !input.Approve {
		target = enums.WithdrawalStatusRejected
	}

	var result *models.Withdrawal
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		withdrawal, err := repo.FindWithdrawal(ctx, input.WithdrawalID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
		}
		if withdrawal.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal already resolved")
		}

		now := s.now()
		ok, err := repo.ResolveWithdrawal(ctx, withdrawal.ID, target, input.AdminID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve withdrawal")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "withdrawal resolved concurrently")
		}

		if target == enums.WithdrawalStatusRejected {
			// the reversal must restore exactly what the request debited
			err := s.ledger.CreditInTx(ctx, tx, withdrawal.UserID, withdrawal.Amount,
				enums.WalletLogTypeWithdrawalReversal, "withdrawal rejected, hold returned", nil)
			if err != nil {
				return err
			}
		}

		withdrawal.Status = target
		withdrawal.ResolvedBy = &input.AdminID
		withdrawal.ResolvedAt = &now

		event := outbox.DomainEvent{
			EventType:     enums.EventWithdrawalResolved,
			AggregateType: enums.AggregateWithdrawal,
			AggregateID:   withdrawal.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.AdminID, Role: enums.ActorRoleAdmin.String()},
			Data: payloads.WithdrawalResolvedEvent{
				WithdrawalID: withdrawal.ID,
				UserID:       withdrawal.UserID,
				Amount:       withdrawal.Amount,
				Status:       target,
				ResolvedBy:   input.AdminID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit withdrawal resolved")
		}

		result = withdrawal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *withdrawalService) Get(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	withdrawal, err := s.repo.FindWithdrawal(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
	}
	return withdrawal, nil
}

func (s *withdrawalService) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Withdrawal, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListWithdrawalsByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawals")
	}
	return rows, nil
}

func (s *withdrawalService) ListPending(ctx context.Context, limit int) ([]models.Withdrawal, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	rows, err := s.repo.ListPendingWithdrawals(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending withdrawals")
	}
	return rows, nil
}
