// Package money holds presentation rounding for monetary and unit values.
package money

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Round rounds the exact binary value of v to the given number of decimal
// places, breaking exact ties to even. 2.675 is stored just below the tie and
// rounds to 2.67; 6.25 is an exact tie and rounds to 6.2.
func Round(v float64, places int32) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', int(places), 64), 64)
	if err != nil {
		return v
	}
	if r == 0 {
		return 0
	}
	return r
}

// NearestTen rounds x to a multiple of ten as floor((x+5)/10)*10.
func NearestTen(x float64) float64 {
	return decimal.NewFromFloat(x).Add(decimal.NewFromInt(5)).
		Div(decimal.NewFromInt(10)).Floor().
		Mul(decimal.NewFromInt(10)).InexactFloat64()
}
