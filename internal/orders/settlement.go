package orders

import (
	"sort"

	"github.com/google/uuid"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
)

// Settlement amounts are derived exclusively from the money fields frozen on
// the order at checkout. The tariff table may have changed since; it is
// never consulted here.

// sellerAdminFeeFromFrozen recovers the seller admin fee from the frozen
// breakdown: system_fee holds delivery margin plus admin fee, and delivery
// margin equals (shipping_cost - courier_earning_total) + service_fee.
func sellerAdminFeeFromFrozen(o *models.Order) int64 {
	fee := o.SystemFee - (o.ShippingCost - o.CourierEarningTotal) - o.ServiceFee
	if fee < 0 {
		return 0
	}
	return fee
}

// merchantPayouts splits subtotal-minus-admin-fee across the merchants on the
// order, proportional to each merchant's item subtotal. Rounding remainder
// lands one rupiah at a time on merchants in id order so the payouts always
// sum to exactly subtotal minus admin fee.
func merchantPayouts(o *models.Order) map[uuid.UUID]int64 {
	subtotals := make(map[uuid.UUID]int64)
	var subtotal int64
	for _, item := range o.Items {
		subtotals[item.MerchantID] += item.Subtotal()
		subtotal += item.Subtotal()
	}
	if subtotal <= 0 {
		return nil
	}

	adminFee := sellerAdminFeeFromFrozen(o)
	if adminFee > subtotal {
		adminFee = subtotal
	}

	ids := make([]uuid.UUID, 0, len(subtotals))
	for id := range subtotals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	payouts := make(map[uuid.UUID]int64, len(ids))
	var allocated int64
	for _, id := range ids {
		share := adminFee * subtotals[id] / subtotal
		payouts[id] = subtotals[id] - share
		allocated += share
	}
	// distribute the integer-division remainder
	for remainder := adminFee - allocated; remainder > 0; remainder-- {
		payouts[ids[int(remainder)%len(ids)]]--
	}
	return payouts
}
