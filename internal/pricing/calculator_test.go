package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
)

func baseTariff() models.ShippingRate {
	return models.ShippingRate{
		DistrictName:    "Gubeng",
		BaseFare:        8000,
		BaseDistanceKm:  3,
		PricePerKm:      2000,
		MultiStopFee:    3000,
		SurgeFee:        5000,
		AppFeePercent:   20,
		BuyerServiceFee: 2000,
	}
}

func TestComputeSingleStopDelivery(t *testing.T) {
	got, err := Compute(ComputeInput{
		Tariff:            baseTariff(),
		DistanceKm:        5,
		MerchantStopCount: 1,
	})
	require.NoError(t, err)

	require.Equal(t, int64(12000), got.DistanceFare) // 8000 + 2km * 2000
	require.Equal(t, int64(12000), got.BuyerOngkir)
	require.Equal(t, int64(2400), got.PlatformCutFromFare)
	require.Equal(t, int64(9600), got.CourierNet)
	require.Equal(t, int64(2000), got.ServiceFee)
	require.Equal(t, int64(14000), got.GrandTotalToBuyer)
	require.Equal(t, int64(4400), got.PlatformMargin)
}

func TestComputeMultiStopDelivery(t *testing.T) {
	got, err := Compute(ComputeInput{
		Tariff:            baseTariff(),
		DistanceKm:        5,
		MerchantStopCount: 2,
	})
	require.NoError(t, err)

	require.Equal(t, int64(15000), got.BuyerOngkir)
	require.Equal(t, int64(12600), got.CourierNet) // multi-stop fee flows to the courier
	require.Equal(t, int64(17000), got.GrandTotalToBuyer)
}

func TestComputeSurgeIsPlatformRevenue(t *testing.T) {
	got, err := Compute(ComputeInput{
		Tariff:            baseTariff(),
		DistanceKm:        5,
		MerchantStopCount: 1,
		IsSurge:           true,
	})
	require.NoError(t, err)

	require.Equal(t, int64(17000), got.BuyerOngkir)
	require.Equal(t, int64(9600), got.CourierNet) // surge never reaches the courier
	require.Equal(t, int64(9400), got.PlatformMargin)
}

func TestComputePickupIsAllZero(t *testing.T) {
	got, err := Compute(ComputeInput{
		Tariff:            baseTariff(),
		DistanceKm:        5,
		MerchantStopCount: 3,
		IsPickup:          true,
		IsSurge:           true,
	})
	require.NoError(t, err)
	require.Equal(t, FeeBreakdown{}, got)
}

func TestComputeWithinBaseDistanceUsesBaseFare(t *testing.T) {
	got, err := Compute(ComputeInput{
		Tariff:            baseTariff(),
		DistanceKm:        2.5,
		MerchantStopCount: 1,
	})
	require.NoError(t, err)
	require.Equal(t, int64(8000), got.DistanceFare)
}

func TestComputeIsDeterministic(t *testing.T) {
	in := ComputeInput{
		Tariff:            baseTariff(),
		DistanceKm:        7.3,
		MerchantStopCount: 2,
		IsSurge:           true,
	}
	first, err := Compute(in)
	require.NoError(t, err)
	second, err := Compute(in)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestComputeNonNegativeOutputs(t *testing.T) {
	distances := []float64{0, 0.5, 3, 10, 42.7}
	for _, km := range distances {
		got, err := Compute(ComputeInput{
			Tariff:            baseTariff(),
			DistanceKm:        km,
			MerchantStopCount: 1,
		})
		require.NoError(t, err)
		require.GreaterOrEqual(t, got.CourierNet, int64(0), "distance %v", km)
		require.GreaterOrEqual(t, got.PlatformMargin, int64(0), "distance %v", km)
	}
}

func TestComputeRejectsNegativeDistance(t *testing.T) {
	_, err := Compute(ComputeInput{Tariff: baseTariff(), DistanceKm: -1})
	require.Error(t, err)
}

func TestComputeRoundsOnceAtTheEnd(t *testing.T) {
	tariff := baseTariff()
	tariff.AppFeePercent = 15 // 12100 * 0.15 = 1815, no rounding ambiguity
	got, err := Compute(ComputeInput{
		Tariff:            tariff,
		DistanceKm:        3.05,
		MerchantStopCount: 1,
	})
	require.NoError(t, err)
	// fare = 8000 + 0.05*2000 = 8100; cut = 1215; net = 6885
	require.Equal(t, int64(8100), got.DistanceFare)
	require.Equal(t, int64(1215), got.PlatformCutFromFare)
	require.Equal(t, int64(6885), got.CourierNet)
}

func TestCashbackAmount(t *testing.T) {
	require.Equal(t, int64(4000), CashbackAmount(100000, 4))
	require.Equal(t, int64(0), CashbackAmount(0, 4))
	require.Equal(t, int64(0), CashbackAmount(100000, 0))
	require.Equal(t, int64(38), CashbackAmount(1250, 3)) // 37.5 rounds up
}

func TestSellerAdminFee(t *testing.T) {
	require.Equal(t, int64(5000), SellerAdminFee(100000, 5))
	require.Equal(t, int64(0), SellerAdminFee(100000, 0))
}
