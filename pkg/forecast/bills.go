package forecast

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rmax-ai/wattwise/pkg/errs"
	"github.com/rmax-ai/wattwise/pkg/money"
	"github.com/rmax-ai/wattwise/pkg/tariff"
)

// SampleSize is the number of monthly bills a prediction is fitted on.
const SampleSize = 3

const msgSampleSize = "Please provide exactly 3 months of bill data"

// Predictor extrapolates the next monthly bill from the last three.
type Predictor struct {
	Schedule tariff.Schedule
	Now      func() time.Time
}

// NewPredictor returns a Predictor using the default tariff and wall clock.
func NewPredictor() *Predictor {
	return &Predictor{Schedule: tariff.Default, Now: time.Now}
}

// Predict fits a line through (1,b1),(2,b2),(3,b3) and evaluates it at month 4.
// A negative extrapolation is reported by magnitude rather than rejected.
func (p *Predictor) Predict(bills []float64) (Prediction, error) {
	if err := ValidateBills(bills); err != nil {
		return Prediction{}, err
	}

	points := make([]Point, len(bills))
	for i, b := range bills {
		points[i] = Point{X: float64(i + 1), Y: b}
	}

	line, err := FitLine(points)
	if err != nil {
		return Prediction{}, err
	}

	predicted := math.Abs(line.At(float64(len(bills) + 1)))

	schedule := p.Schedule
	if len(schedule) == 0 {
		schedule = tariff.Default
	}

	prevUnits := make([]float64, len(bills))
	for i, b := range bills {
		prevUnits[i] = money.Round(schedule.UnitsForBill(b), 2)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	previous := make([]float64, len(bills))
	copy(previous, bills)

	return Prediction{
		PredictedBill:  money.Round(predicted, 2),
		PredictedUnits: money.Round(schedule.UnitsForBill(predicted), 2),
		RoundedBill:    money.Round(money.NearestTen(predicted), 2),
		PreviousBills:  previous,
		PreviousUnits:  prevUnits,
		MonthNames:     MonthNames(now()),
	}, nil
}

// ValidateBills checks the sample size and that every bill is a finite,
// non-negative amount.
func ValidateBills(bills []float64) error {
	if len(bills) != SampleSize {
		return errs.Validation("bills", msgSampleSize)
	}
	for _, b := range bills {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return errs.Validation("bills", "Bill values must be finite numbers")
		}
		if b < 0 {
			return errs.Validation("bills", "Bill values must not be negative")
		}
	}
	return nil
}

// ParseBills decodes JSON bill values given either as numbers or numeric strings.
func ParseBills(raw []json.RawMessage) ([]float64, error) {
	if len(raw) != SampleSize {
		return nil, errs.Validation("bills", msgSampleSize)
	}

	bills := make([]float64, len(raw))
	for i, r := range raw {
		v, err := parseAmount(r)
		if err != nil {
			return nil, err
		}
		bills[i] = v
	}
	return bills, ValidateBills(bills)
}

func parseAmount(raw json.RawMessage) (float64, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, errs.Validation("bills", "could not convert "+string(raw)+" to float")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errs.Validation("bills", "could not convert string to float: '"+s+"'")
	}
	return v, nil
}

// MonthNames labels the three months before now (oldest first) followed by
// now's month. It walks back one day from each month start, so it never
// skips a month regardless of the current day.
func MonthNames(now time.Time) []string {
	names := make([]string, 0, SampleSize+1)
	cursor := now
	for i := 0; i < SampleSize; i++ {
		start := time.Date(cursor.Year(), cursor.Month(), 1, 0, 0, 0, 0, cursor.Location())
		cursor = start.AddDate(0, 0, -1)
		names = append(names, cursor.Month().String())
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return append(names, now.Month().String())
}
