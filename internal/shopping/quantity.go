package shopping

import (
	"github.com/shopspring/decimal"
)

const (
	sumPlaces     = 4
	persistPlaces = 2
)

var minAmount = decimal.New(1, -persistPlaces)

// addAmount accumulates v into total, rounding to keep float drift out of
// running sums.
func addAmount(total decimal.Decimal, v float64) decimal.Decimal {
	return total.Add(decimal.NewFromFloat(v)).Round(sumPlaces)
}

// persistable rounds a sum to the precision stored on list items.
func persistable(d decimal.Decimal) float64 {
	f, _ := d.Round(persistPlaces).Float64()
	return f
}

// ScaleAmount returns amount * to/from rounded to two places and clamped to
// a minimum of 0.01.
func ScaleAmount(amount, from, to float64) float64 {
	v := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(to)).
		Div(decimal.NewFromFloat(from)).
		Round(persistPlaces)
	if v.LessThan(minAmount) {
		v = minAmount
	}
	f, _ := v.Float64()
	return f
}
