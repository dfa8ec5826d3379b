package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestLitersAndSalesValue(t *testing.T) {
	liters := LitersDispensed(d("12000.0"), d("12150.0"))
	assertDecimal(t, "150", liters)
	assertDecimal(t, "22500", SalesValue(liters, d("150.0")))
}

func TestSalesValueScalesWithPrice(t *testing.T) {
	cases := []struct{ start, end, price string }{
		{"0", "0", "150"},
		{"100.5", "250.25", "99.99"},
		{"500", "1500", "0.01"},
	}
	for _, tc := range cases {
		liters := LitersDispensed(d(tc.start), d(tc.end))
		assertDecimal(t, d(tc.end).Sub(d(tc.start)).String(), liters)
		single := SalesValue(liters, d(tc.price))
		doubled := SalesValue(liters, d(tc.price).Mul(decimal.NewFromInt(2)))
		assertDecimal(t, single.Mul(decimal.NewFromInt(2)).String(), doubled)
	}
}

func TestTotalCollected(t *testing.T) {
	c := Collection{Cash: d("20000"), MobileMoney: d("10000"), Debt: d("1000")}
	assertDecimal(t, "31000", TotalCollected(c))

	reordered := Collection{Debt: d("1000"), Cash: d("20000"), MobileMoney: d("10000"), Visa: decimal.Zero}
	assert.True(t, TotalCollected(c).Equal(TotalCollected(reordered)))

	all := Collection{Cash: d("1"), MobileMoney: d("2"), Visa: d("3"), Mastercard: d("4"), Debt: d("5"), Other: d("6")}
	assertDecimal(t, "21", TotalCollected(all))

	assert.True(t, Collection{}.IsZero())
	assertDecimal(t, "0", TotalCollected(Collection{}))
}

func TestExpectedCollection(t *testing.T) {
	pumps := []PumpSale{
		{IslandID: 1, SalesValue: d("22500.0")},
		{IslandID: 1, SalesValue: d("9000.0")},
		{IslandID: 2, SalesValue: d("4000")},
	}
	assertDecimal(t, "31500", ExpectedCollection(1, pumps, nil))

	nonFuel := []NonFuelSale{{IslandID: 2, Value: d("650")}, {IslandID: 3, Value: d("10")}}
	assertDecimal(t, "4650", ExpectedCollection(2, pumps, nonFuel))
	assertDecimal(t, "0", ExpectedCollection(9, pumps, nonFuel))
}

func TestVariancePercentage(t *testing.T) {
	assertDecimal(t, "10", VariancePercentage(d("100"), d("110")))
	for _, actual := range []string{"0", "1", "-5", "123456.78"} {
		assertDecimal(t, "0", VariancePercentage(decimal.Zero, d(actual)))
	}
}

func TestIslandVarianceScenario(t *testing.T) {
	expected := ExpectedCollection(1, []PumpSale{
		{IslandID: 1, SalesValue: SalesValue(LitersDispensed(d("12000.0"), d("12150.0")), d("150.0"))},
		{IslandID: 1, SalesValue: d("9000.0")},
	}, nil)
	actual := TotalCollected(Collection{Cash: d("20000"), MobileMoney: d("10000"), Debt: d("1000")})

	assertDecimal(t, "31500", expected)
	assertDecimal(t, "31000", actual)
	assertDecimal(t, "-500", Variance(expected, actual))
	assertDecimal(t, "-1.59", VariancePercentage(expected, actual).Round(2))
}
