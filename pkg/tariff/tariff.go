// Package tariff converts electricity bill amounts into consumed units using a
// tiered piecewise-linear schedule.
package tariff

import (
	"errors"
	"fmt"
	"math"
)

// Tier is one bracket of a schedule. A bill b with Lower < b <= Upper is
// converted as Offset + (b-Lower)/Rate.
type Tier struct {
	Lower  float64 `json:"lower" yaml:"lower"`
	Upper  float64 `json:"upper" yaml:"upper"` // math.Inf(1) for the last tier
	Rate   float64 `json:"rate" yaml:"rate"`   // money per unit
	Offset float64 `json:"offset" yaml:"offset"`
}

// Schedule is an ordered list of contiguous tiers.
type Schedule []Tier

// Default is the household schedule the tracker ships with.
var Default = Schedule{
	{Lower: 0, Upper: 471, Rate: 4.71, Offset: 0},
	{Lower: 471, Upper: 3087, Rate: 10.29, Offset: 100},
	{Lower: 3087, Upper: 7275, Rate: 14.55, Offset: 200},
	{Lower: 7275, Upper: math.Inf(1), Rate: 16.64, Offset: 500},
}

// Validate checks that tiers are contiguous, increasing and have positive rates.
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return errors.New("schedule has no tiers")
	}
	for i, t := range s {
		if t.Rate <= 0 {
			return fmt.Errorf("tier %d: rate must be positive", i)
		}
		if t.Upper <= t.Lower {
			return fmt.Errorf("tier %d: upper bound %.2f not above lower bound %.2f", i, t.Upper, t.Lower)
		}
		if i > 0 && t.Lower != s[i-1].Upper {
			return fmt.Errorf("tier %d: lower bound %.2f does not continue previous upper bound %.2f", i, t.Lower, s[i-1].Upper)
		}
	}
	if !math.IsInf(s[len(s)-1].Upper, 1) {
		return errors.New("last tier must be unbounded")
	}
	return nil
}

// UnitsForBill converts a bill amount to units. Amounts at a tier's upper bound
// belong to that tier. Negative amounts fall into the first tier and yield a
// negative result; callers validate input.
func (s Schedule) UnitsForBill(bill float64) float64 {
	for _, t := range s {
		if bill <= t.Upper {
			return t.Offset + (bill-t.Lower)/t.Rate
		}
	}
	last := s[len(s)-1]
	return last.Offset + (bill-last.Lower)/last.Rate
}

// UnitsForBill converts bill with the Default schedule.
func UnitsForBill(bill float64) float64 {
	return Default.UnitsForBill(bill)
}
