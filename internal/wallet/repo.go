package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	"github.com/aryasetiadi/lokapasar-backend/pkg/pagination"
)

// Repository persists wallets, the append-only ledger and withdrawal
// requests. Balance mutations are conditional updates on the cached row;
// callers never read-modify-write the balance in application code.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	EnsureWallet(ctx context.Context, userID uuid.UUID) error
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	// AddBalance applies a positive or negative delta unconditionally.
	AddBalance(ctx context.Context, userID uuid.UUID, delta int64) error
	// DebitBalance subtracts amount only when the balance covers it.
	// Returns false when the conditional update matched no row.
	DebitBalance(ctx context.Context, userID uuid.UUID, amount int64) (bool, error)
	SetBalance(ctx context.Context, userID uuid.UUID, balance int64) error

	AppendLog(ctx context.Context, log *models.WalletLog) error
	ListLogs(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletLog, error)
	SumSignedAmounts(ctx context.Context, userID uuid.UUID) (int64, error)
	ListWalletUserIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error)

	CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error
	FindWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	// ResolveWithdrawal flips a pending request to the target status.
	// Returns false when the request was already resolved.
	ResolveWithdrawal(ctx context.Context, id uuid.UUID, status enums.WithdrawalStatus, resolvedBy uuid.UUID, resolvedAt time.Time) (bool, error)
	ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Withdrawal, error)
	ListPendingWithdrawals(ctx context.Context, limit int) ([]models.Withdrawal, error)
}

var debitLogTypes = []enums.WalletLogType{
	enums.WalletLogTypeBalancePayment,
	enums.WalletLogTypeWithdrawalDebit,
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wallet repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Wallet{UserID: userID}).Error
}

func (r *repository) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) AddBalance(ctx context.Context, userID uuid.UUID, delta int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DebitBalance(ctx context.Context, userID uuid.UUID, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetBalance(ctx context.Context, userID uuid.UUID, balance int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"balance":    balance,
			"updated_at": time.Now(),
		}).Error
}

func (r *repository) AppendLog(ctx context.Context, log *models.WalletLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) ListLogs(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletLog, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var logs []models.WalletLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repository) SumSignedAmounts(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).
		Model(&models.WalletLog{}).
		Select("SUM(CASE WHEN type IN ? THEN -amount ELSE amount END)", debitLogTypes).
		Where("user_id = ?", userID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *repository) ListWalletUserIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Order("user_id ASC").
		Limit(limit).
		Offset(offset).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *repository) CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *repository) FindWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&withdrawal).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *repository) ResolveWithdrawal(ctx context.Context, id uuid.UUID, status enums.WithdrawalStatus, resolvedBy uuid.UUID, resolvedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", id, enums.WithdrawalStatusPending).
		Updates(map[string]any{
			"status":      status,
			"resolved_by": resolvedBy,
			"resolved_at": resolvedAt,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Withdrawal, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Withdrawal
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListPendingWithdrawals(ctx context.Context, limit int) ([]models.Withdrawal, error) {
	var rows []models.Withdrawal
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.WithdrawalStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
