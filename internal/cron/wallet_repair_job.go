package cron

import (
	"context"
	"fmt"

	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
)

const defaultRepairPageSize = 200

// balanceRepairer replays wallet logs and rewrites drifted cached balances.
type balanceRepairer interface {
	RepairAll(ctx context.Context, pageSize int) (int, error)
}

// WalletRepairJobParams configure the wallet balance repair sweep.
type WalletRepairJobParams struct {
	Logger   *logger.Logger
	Wallet   balanceRepairer
	PageSize int
}

// NewWalletRepairJob builds the cron job that reconciles cached wallet
// balances against the ledger.
func NewWalletRepairJob(params WalletRepairJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = defaultRepairPageSize
	}
	return &walletRepairJob{
		logg:     params.Logger,
		wallet:   params.Wallet,
		pageSize: pageSize,
	}, nil
}

type walletRepairJob struct {
	logg     *logger.Logger
	wallet   balanceRepairer
	pageSize int
}

func (j *walletRepairJob) Name() string { return "wallet-repair" }

func (j *walletRepairJob) Run(ctx context.Context) error {
	repaired, err := j.wallet.RepairAll(ctx, j.pageSize)
	if err != nil {
		return fmt.Errorf("repair wallet balances: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"repaired": repaired})
	j.logg.Info(logCtx, "wallet repair sweep complete")
	return nil
}
