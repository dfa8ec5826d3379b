// Package reconcile holds the pure arithmetic behind shift closing and fuel
// offload reconciliation. All values are decimals; nothing here performs I/O.
package reconcile

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LitersDispensed returns end - start for a pump meter.
func LitersDispensed(start, end decimal.Decimal) decimal.Decimal {
	return end.Sub(start)
}

// SalesValue prices the dispensed volume.
func SalesValue(liters, unitPrice decimal.Decimal) decimal.Decimal {
	return liters.Mul(unitPrice)
}

// Collection holds the amounts collected on an island, by payment method.
// Zero-valued fields count as nothing collected.
type Collection struct {
	Cash        decimal.Decimal `json:"cash"`
	MobileMoney decimal.Decimal `json:"mobile_money"`
	Visa        decimal.Decimal `json:"visa"`
	Mastercard  decimal.Decimal `json:"mastercard"`
	Debt        decimal.Decimal `json:"debt"`
	Other       decimal.Decimal `json:"other"`
}

// TotalCollected sums every payment method.
func TotalCollected(c Collection) decimal.Decimal {
	return decimal.Sum(c.Cash, c.MobileMoney, c.Visa, c.Mastercard, c.Debt, c.Other)
}

// IsZero reports whether nothing was collected.
func (c Collection) IsZero() bool {
	return TotalCollected(c).IsZero()
}

// PumpSale is the priced output of one pump attributed to an island.
type PumpSale struct {
	IslandID   int64
	SalesValue decimal.Decimal
}

// NonFuelSale is a shop or lubricant sale booked against an island.
type NonFuelSale struct {
	IslandID int64
	Value    decimal.Decimal
}

// ExpectedCollection sums pump sales and non-fuel sales mapped to islandID.
func ExpectedCollection(islandID int64, pumps []PumpSale, nonFuel []NonFuelSale) decimal.Decimal {
	total := decimal.Zero
	for _, p := range pumps {
		if p.IslandID == islandID {
			total = total.Add(p.SalesValue)
		}
	}
	for _, s := range nonFuel {
		if s.IslandID == islandID {
			total = total.Add(s.Value)
		}
	}
	return total
}

// Variance returns actual - expected.
func Variance(expected, actual decimal.Decimal) decimal.Decimal {
	return actual.Sub(expected)
}

// VariancePercentage returns ((actual - expected) / expected) * 100, or zero
// when expected is zero.
func VariancePercentage(expected, actual decimal.Decimal) decimal.Decimal {
	if expected.IsZero() {
		return decimal.Zero
	}
	return actual.Sub(expected).Div(expected).Mul(hundred)
}
