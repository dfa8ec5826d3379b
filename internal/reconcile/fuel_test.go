package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceFuel(t *testing.T) {
	tanks := []TankMovement{
		{TankID: 1, Product: "PMS", StartVolume: d("20000"), EndVolume: d("19800")},
		{TankID: 2, Product: "AGO", StartVolume: d("15000"), EndVolume: d("14900")},
	}
	pumps := []PumpDispense{
		{PumpID: 1, Product: "PMS", Liters: d("150")},
		{PumpID: 2, Product: "PMS", Liters: d("45")},
		{PumpID: 3, Product: "AGO", Liters: d("60")},
	}

	total, perProduct := BalanceFuel(tanks, pumps, d("20"))

	assertDecimal(t, "-300", total.TankVolumeChange)
	assertDecimal(t, "255", total.LitersDispensed)
	assertDecimal(t, "-45", total.Variance)
	assert.True(t, total.Warning)

	require.Len(t, perProduct, 2)
	assert.Equal(t, "AGO", perProduct[0].Product)
	assertDecimal(t, "-40", perProduct[0].Variance)
	assert.True(t, perProduct[0].Warning)
	assert.Equal(t, "PMS", perProduct[1].Product)
	assertDecimal(t, "-5", perProduct[1].Variance)
	assert.False(t, perProduct[1].Warning)
}

func TestBalanceFuelEmpty(t *testing.T) {
	total, perProduct := BalanceFuel(nil, nil, d("10"))
	assertDecimal(t, "0", total.Variance)
	assert.False(t, total.Warning)
	assert.Empty(t, perProduct)
}

func TestOffloadCalculations(t *testing.T) {
	assertDecimal(t, "-120", OffloadVariance(d("33000"), d("32880")))
	assertDecimal(t, "33010", MeasuredDelivery(d("4000"), d("36900"), d("110")))
}
