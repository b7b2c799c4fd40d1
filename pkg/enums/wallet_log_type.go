package enums

import "fmt"

// WalletLogType classifies the balance-affecting events recorded in the
// wallet ledger.
type WalletLogType string

const (
	WalletLogTypeCashbackCredit     WalletLogType = "cashback_credit"
	WalletLogTypeBalancePayment     WalletLogType = "balance_payment"
	WalletLogTypeMerchantPayout     WalletLogType = "merchant_payout"
	WalletLogTypeCourierPayout      WalletLogType = "courier_payout"
	WalletLogTypeWithdrawalDebit    WalletLogType = "withdrawal_debit"
	WalletLogTypeWithdrawalReversal WalletLogType = "withdrawal_reversal"
	WalletLogTypeBalanceRefund      WalletLogType = "balance_refund"
	WalletLogTypeManualAdjustment   WalletLogType = "manual_adjustment"
)

var validWalletLogTypes = []WalletLogType{
	WalletLogTypeCashbackCredit,
	WalletLogTypeBalancePayment,
	WalletLogTypeMerchantPayout,
	WalletLogTypeCourierPayout,
	WalletLogTypeWithdrawalDebit,
	WalletLogTypeWithdrawalReversal,
	WalletLogTypeBalanceRefund,
	WalletLogTypeManualAdjustment,
}

// String implements fmt.Stringer.
func (t WalletLogType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known WalletLogType.
func (t WalletLogType) IsValid() bool {
	for _, candidate := range validWalletLogTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsDebit reports whether entries of this type decrease the balance.
func (t WalletLogType) IsDebit() bool {
	switch t {
	case WalletLogTypeBalancePayment, WalletLogTypeWithdrawalDebit:
		return true
	default:
		return false
	}
}

// ParseWalletLogType converts raw input into a WalletLogType.
func ParseWalletLogType(value string) (WalletLogType, error) {
	for _, candidate := range validWalletLogTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet log type %q", value)
}
