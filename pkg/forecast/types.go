package forecast

// Point is a single (x, y) observation fed to the line fit.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line is the result of an ordinary-least-squares fit y = Intercept + Slope*x.
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// Prediction is the extrapolated fourth month of a three-month bill sample.
type Prediction struct {
	PredictedBill  float64   `json:"predicted_bill"`
	PredictedUnits float64   `json:"predicted_units"`
	RoundedBill    float64   `json:"rounded_bill"`
	PreviousBills  []float64 `json:"previous_bills"`
	PreviousUnits  []float64 `json:"previous_units"`
	MonthNames     []string  `json:"month_names"`
}
