package wallet

import (
	"context"
	"fmt"

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

// Service is the wallet ledger. Every balance change appends a log entry and
// updates the cached balance in one transaction; debits are conditional on
// sufficient funds and fail closed.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	Logs(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletLog, error)

	Credit(ctx context.Context, input MovementInput) error
	Debit(ctx context.Context, input MovementInput) error
	// CreditInTx and DebitInTx run inside a caller-owned transaction so
	// settlement and checkout can couple ledger writes to their own CAS.
	CreditInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int64, kind enums.WalletLogType, description string, orderID *uuid.UUID) error
	DebitInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int64, kind enums.WalletLogType, description string, orderID *uuid.UUID) error

	// Replay recomputes the balance from the full log, ignoring the cache.
	Replay(ctx context.Context, userID uuid.UUID) (int64, error)
	// Repair overwrites a drifted cached balance with the replayed value.
	Repair(ctx context.Context, userID uuid.UUID) (*RepairResult, error)
	RepairAll(ctx context.Context, pageSize int) (int, error)
}

// MovementInput describes one standalone ledger movement.
type MovementInput struct {
	UserID      uuid.UUID
	Amount      int64
	Kind        enums.WalletLogType
	Description string
	OrderID     *uuid.UUID
}

// RepairResult reports what a cache repair found.
type RepairResult struct {
	UserID   uuid.UUID
	Cached   int64
	Replayed int64
	Drifted  bool
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
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
	return &service{repo: repo, tx: tx, outbox: ob, logg: logg}, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	wallet, err := s.repo.GetWallet(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// no movements yet, the wallet materializes on first use
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet.Balance, nil
}

func (s *service) Logs(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletLog, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	logs, err := s.repo.ListLogs(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet logs")
	}
	return logs, nil
}

func (s *service) Credit(ctx context.Context, input MovementInput) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.CreditInTx(ctx, tx, input.UserID, input.Amount, input.Kind, input.Description, input.OrderID)
	})
}

func (s *service) Debit(ctx context.Context, input MovementInput) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.DebitInTx(ctx, tx, input.UserID, input.Amount, input.Kind, input.Description, input.OrderID)
	})
}

func (s *service) CreditInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int64, kind enums.WalletLogType, description string, orderID *uuid.UUID) error {
	if err := validateMovement(userID, amount, kind); err != nil {
		return err
	}
	if kind.IsDebit() {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit with debit log type")
	}

	repo := s.repo.WithTx(tx)
	if err := repo.EnsureWallet(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure wallet")
	}
	if err := repo.AddBalance(ctx, userID, amount); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit balance")
	}
	return s.appendMovement(ctx, tx, repo, userID, amount, kind, description, orderID, enums.EventWalletCredited)
}

func (s *service) DebitInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int64, kind enums.WalletLogType, description string, orderID *uuid.UUID) error {
	if err := validateMovement(userID, amount, kind); err != nil {
		return err
	}
	if !kind.IsDebit() {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit with credit log type")
	}

	repo := s.repo.WithTx(tx)
	if err := repo.EnsureWallet(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure wallet")
	}
	ok, err := repo.DebitBalance(ctx, userID, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit balance")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance does not cover debit").
			WithDetails(map[string]any{"amount": amount})
	}
	return s.appendMovement(ctx, tx, repo, userID, amount, kind, description, orderID, enums.EventWalletDebited)
}

func (s *service) appendMovement(ctx context.Context, tx *gorm.DB, repo Repository, userID uuid.UUID, amount int64, kind enums.WalletLogType, description string, orderID *uuid.UUID, eventType enums.OutboxEventType) error {
	wallet, err := repo.GetWallet(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read balance after movement")
	}

	entry := &models.WalletLog{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         kind,
		Amount:       amount,
		BalanceAfter: wallet.Balance,
		Description:  description,
		OrderID:      orderID,
	}
	if err := repo.AppendLog(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append wallet log")
	}

	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateWallet,
		AggregateID:   userID,
		Version:       1,
		Data: payloads.WalletMovementEvent{
			UserID:       userID,
			Type:         kind,
			Amount:       amount,
			BalanceAfter: wallet.Balance,
			OrderID:      orderID,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit wallet movement")
	}
	return nil
}

func (s *service) Replay(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	total, err := s.repo.SumSignedAmounts(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replay wallet log")
	}
	return total, nil
}

func (s *service) Repair(ctx context.Context, userID uuid.UUID) (*RepairResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var result *RepairResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.GetWallet(ctx, userID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				result = &RepairResult{UserID: userID}
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
		}

		replayed, err := repo.SumSignedAmounts(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replay wallet log")
		}

		result = &RepairResult{
			UserID:   userID,
			Cached:   wallet.Balance,
			Replayed: replayed,
			Drifted:  wallet.Balance != replayed,
		}
		if !result.Drifted {
			return nil
		}
		if err := repo.SetBalance(ctx, userID, replayed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "repair cached balance")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Drifted {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":  userID.String(),
			"cached":   result.Cached,
			"replayed": result.Replayed,
		})
		s.logg.Warn(logCtx, "wallet balance drift repaired")
	}
	return result, nil
}

func (s *service) RepairAll(ctx context.Context, pageSize int) (int, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	var repaired int
	for offset := 0; ; offset += pageSize {
		ids, err := s.repo.ListWalletUserIDs(ctx, pageSize, offset)
		if err != nil {
			return repaired, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallets")
		}
		if len(ids) == 0 {
			return repaired, nil
		}
		for _, id := range ids {
			result, err := s.Repair(ctx, id)
			if err != nil {
				return repaired, err
			}
			if result.Drifted {
				repaired++
			}
		}
	}
}

func validateMovement(userID uuid.UUID, amount int64, kind enums.WalletLogType) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet log type")
	}
	return nil
}
