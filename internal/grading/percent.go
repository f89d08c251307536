package grading

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Percentage returns part/whole*100 rounded half-up to two places.
// A zero or negative whole yields 0.
func Percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	p := decimal.NewFromInt(int64(part)).
		Mul(hundred).
		DivRound(decimal.NewFromInt(int64(whole)), 2)
	f, _ := p.Float64()
	return f
}
