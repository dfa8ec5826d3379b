package shiftclose

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline-erp/pumpline/internal/reconcile"
)

func TestPumpEntryDerivations(t *testing.T) {
	p := PumpEntry{StartElectric: dec("12000.0"), EndElectric: dec("12150.0"), UnitPrice: dec("150.0"), StartCash: dec("100"), EndCash: dec("400")}
	assert.True(t, p.Liters().Equal(dec("150")))
	assert.True(t, p.SalesValue().Equal(dec("22500")))
	assert.True(t, p.CashDelta().Equal(dec("300")))
	assert.True(t, p.ManualLiters().IsZero())
	assert.False(t, p.Rollback())

	p.EndElectric = dec("11990")
	assert.True(t, p.Rollback())
}

func TestSummarizeIncludesNonFuelSales(t *testing.T) {
	draft := Draft{
		Context: ClosingContext{NonFuelSales: []NonFuelSale{{IslandID: 1, Description: "Oil", Value: dec("500")}}},
		Pumps: []PumpEntry{
			{PumpID: 1, IslandID: 1, Product: "PMS", UnitPrice: dec("100"), StartElectric: dec("0"), EndElectric: dec("10")},
		},
		Collections: []CollectionEntry{{IslandID: 1, Amounts: reconcile.Collection{Cash: dec("1500")}}},
	}
	sum := draft.Summarize(dec("5"))
	require.Len(t, sum.Islands, 1)
	is := sum.Islands[0]
	assert.True(t, is.FuelSales.Equal(dec("1000")))
	assert.True(t, is.NonFuelSales.Equal(dec("500")))
	assert.True(t, is.Expected.Equal(dec("1500")))
	assert.True(t, is.Variance.IsZero())
	assert.True(t, sum.TotalExpected.Equal(dec("1500")))
}

func TestSummarizeWarnings(t *testing.T) {
	draft := Draft{
		Pumps: []PumpEntry{
			{PumpID: 1, Name: "P1", Product: "AGO", StartElectric: dec("100"), EndElectric: dec("90")},
			{PumpID: 2, Name: "P2", Product: "AGO", StartElectric: dec("0"), EndElectric: dec("100")},
		},
		Tanks: []TankEntry{
			{TankID: 1, Product: "AGO", EndDip: dec("1"), StartVolume: dec("1000"), EndVolume: dec("950")},
		},
	}
	sum := draft.Summarize(dec("5"))
	require.Len(t, sum.Warnings, 2)
	assert.Contains(t, sum.Warnings[0], "Meter rollback on P1")
	assert.Contains(t, sum.Warnings[1], "AGO")
}

func TestBuildPayloadSkipsUncaptured(t *testing.T) {
	draft := Draft{
		ShiftID: 3,
		Pumps: []PumpEntry{
			{PumpID: 1, IslandID: 1, UnitPrice: dec("2"), StartElectric: dec("10"), EndElectric: dec("15")},
			{PumpID: 2, IslandID: 1, UnitPrice: dec("2"), StartElectric: dec("10")},
		},
		Tanks:       []TankEntry{{TankID: 1}, {TankID: 2, EndDip: dec("3")}},
		Collections: []CollectionEntry{{IslandID: 1, Amounts: reconcile.Collection{Cash: dec("9")}}},
	}
	at := time.Date(2026, 1, 1, 8, 0, 0, 0, time.FixedZone("EAT", 3*3600))
	p := BuildPayload(draft, dec("5"), at)
	assert.Equal(t, int64(3), p.ShiftID)
	assert.Equal(t, time.UTC, p.ClosedAt.Location())
	require.Len(t, p.PumpReadings, 1)
	assert.True(t, p.PumpReadings[0].SalesValue.Equal(dec("10")))
	require.Len(t, p.TankReadings, 1)
	assert.Equal(t, int64(2), p.TankReadings[0].TankID)
	require.Len(t, p.Collections, 1)
	assert.True(t, p.Collections[0].Variance.Equal(dec("-1")))
	assert.True(t, p.Totals.VariancePercentage.Equal(dec("-10")))
}
