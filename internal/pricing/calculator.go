package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
)

// FeeBreakdown is the monetary split derived from a tariff at checkout. All
// amounts are whole rupiah. The breakdown is frozen onto the order row;
// dispatch and settlement read those frozen fields and never call Compute
// again for the same order.
type FeeBreakdown struct {
	DistanceFare        int64
	MultiStopFee        int64
	SurgeFee            int64
	BuyerOngkir         int64
	ServiceFee          int64
	GrandTotalToBuyer   int64
	PlatformCutFromFare int64
	PlatformMargin      int64
	CourierNet          int64
}

// ComputeInput carries everything the calculator needs. Distance is supplied
// by the caller; the calculator never derives it from coordinates.
type ComputeInput struct {
	Tariff            models.ShippingRate
	DistanceKm        float64
	MerchantStopCount int
	IsPickup          bool
	IsSurge           bool
}

// Compute derives the fee breakdown for one order. Pure and deterministic:
// identical inputs always yield identical output. Intermediate math stays in
// decimal; rounding to whole rupiah happens once per output field.
func Compute(in ComputeInput) (FeeBreakdown, error) {
	if in.DistanceKm < 0 {
		return FeeBreakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "distance must be non-negative")
	}
	if in.Tariff.AppFeePercent < 0 || in.Tariff.AppFeePercent > 100 {
		return FeeBreakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "app fee percent out of range")
	}

	// Self-pickup carries no delivery fare at all.
	if in.IsPickup {
		return FeeBreakdown{}, nil
	}

	baseFare := decimal.NewFromInt(in.Tariff.BaseFare)
	distanceFare := baseFare
	if in.DistanceKm > in.Tariff.BaseDistanceKm {
		extraKm := decimal.NewFromFloat(in.DistanceKm - in.Tariff.BaseDistanceKm)
		distanceFare = baseFare.Add(extraKm.Mul(decimal.NewFromInt(in.Tariff.PricePerKm)))
	}

	extraStops := in.MerchantStopCount - 1
	if extraStops < 0 {
		extraStops = 0
	}
	multiStop := decimal.NewFromInt(int64(extraStops)).Mul(decimal.NewFromInt(in.Tariff.MultiStopFee))

	surge := decimal.Zero
	if in.IsSurge {
		surge = decimal.NewFromInt(in.Tariff.SurgeFee)
	}

	buyerOngkir := distanceFare.Add(multiStop).Add(surge)
	platformCut := distanceFare.Mul(decimal.NewFromFloat(in.Tariff.AppFeePercent)).Div(decimal.NewFromInt(100))
	// Courier keeps the full multi-stop surcharge; surge is platform revenue.
	courierNet := distanceFare.Sub(platformCut).Add(multiStop)
	serviceFee := decimal.NewFromInt(in.Tariff.BuyerServiceFee)
	grandTotal := buyerOngkir.Add(serviceFee)
	platformMargin := platformCut.Add(serviceFee).Add(surge)

	return FeeBreakdown{
		DistanceFare:        roundRupiah(distanceFare),
		MultiStopFee:        roundRupiah(multiStop),
		SurgeFee:            roundRupiah(surge),
		BuyerOngkir:         roundRupiah(buyerOngkir),
		ServiceFee:          roundRupiah(serviceFee),
		GrandTotalToBuyer:   roundRupiah(grandTotal),
		PlatformCutFromFare: roundRupiah(platformCut),
		PlatformMargin:      roundRupiah(platformMargin),
		CourierNet:          roundRupiah(courierNet),
	}, nil
}

// CashbackAmount applies a drawn percentage to the product subtotal, rounded
// once to whole rupiah.
func CashbackAmount(subtotal int64, percent int) int64 {
	if subtotal <= 0 || percent <= 0 {
		return 0
	}
	return roundRupiah(decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(decimal.NewFromInt(100)))
}

// SellerAdminFee takes the platform's percentage of the merchant subtotal.
func SellerAdminFee(subtotal int64, percent float64) int64 {
	if subtotal <= 0 || percent <= 0 {
		return 0
	}
	return roundRupiah(decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromFloat(percent)).
		Div(decimal.NewFromInt(100)))
}

func roundRupiah(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
