package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TankMovement is the start/end volume of one tank over a shift.
type TankMovement struct {
	TankID      int64
	Product     string
	StartVolume decimal.Decimal
	EndVolume   decimal.Decimal
}

// VolumeChange returns end - start; negative when fuel left the tank.
func (m TankMovement) VolumeChange() decimal.Decimal {
	return m.EndVolume.Sub(m.StartVolume)
}

// PumpDispense is the dispensed volume of one pump.
type PumpDispense struct {
	PumpID  int64
	Product string
	Liters  decimal.Decimal
}

// FuelBalance compares tank movement with pump output for one product, or
// for all products when Product is empty.
type FuelBalance struct {
	Product          string
	TankVolumeChange decimal.Decimal
	LitersDispensed  decimal.Decimal
	Variance         decimal.Decimal
	Warning          bool
}

// FuelVariance returns tankVolumeChange + litersDispensed. A balanced shift
// is close to zero: the tanks lose what the pumps sell.
func FuelVariance(tankVolumeChange, litersDispensed decimal.Decimal) decimal.Decimal {
	return tankVolumeChange.Add(litersDispensed)
}

// BalanceFuel computes the overall balance followed by one balance per
// product, sorted by product name. Warning is set when the magnitude of the
// variance exceeds tolerance.
func BalanceFuel(tanks []TankMovement, pumps []PumpDispense, tolerance decimal.Decimal) (FuelBalance, []FuelBalance) {
	type acc struct {
		change decimal.Decimal
		liters decimal.Decimal
	}
	byProduct := make(map[string]*acc)
	get := func(product string) *acc {
		a, ok := byProduct[product]
		if !ok {
			a = &acc{}
			byProduct[product] = a
		}
		return a
	}
	var total acc
	for _, t := range tanks {
		change := t.VolumeChange()
		total.change = total.change.Add(change)
		a := get(t.Product)
		a.change = a.change.Add(change)
	}
	for _, p := range pumps {
		total.liters = total.liters.Add(p.Liters)
		a := get(p.Product)
		a.liters = a.liters.Add(p.Liters)
	}

	build := func(product string, a acc) FuelBalance {
		v := FuelVariance(a.change, a.liters)
		return FuelBalance{
			Product:          product,
			TankVolumeChange: a.change,
			LitersDispensed:  a.liters,
			Variance:         v,
			Warning:          v.Abs().GreaterThan(tolerance),
		}
	}

	products := make([]string, 0, len(byProduct))
	for p := range byProduct {
		products = append(products, p)
	}
	sort.Strings(products)
	perProduct := make([]FuelBalance, 0, len(products))
	for _, p := range products {
		perProduct = append(perProduct, build(p, *byProduct[p]))
	}
	return build("", total), perProduct
}

// OffloadVariance returns actual - expected delivered quantity.
func OffloadVariance(expected, actual decimal.Decimal) decimal.Decimal {
	return actual.Sub(expected)
}

// MeasuredDelivery estimates the delivered volume from tank readings: the
// rise in tank volume plus whatever the pumps sold while offloading.
func MeasuredDelivery(preVolume, postVolume, dispensedDuring decimal.Decimal) decimal.Decimal {
	return postVolume.Sub(preVolume).Add(dispensedDuring)
}
