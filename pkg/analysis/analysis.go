// Package analysis derives usage, cost and savings reports from an
// appliance listing.
package analysis

import (
	"errors"
	"sort"

	"github.com/rmax-ai/wattwise/pkg/errs"
	"github.com/rmax-ai/wattwise/pkg/forecast"
	"github.com/rmax-ai/wattwise/pkg/ledger"
	"github.com/rmax-ai/wattwise/pkg/money"
)

const msgNoData = "No appliances data available"

// ReducedHours is how many daily hours the savings report assumes can be cut.
const ReducedHours = 2

type UsageEntry struct {
	Name       string  `json:"name"`
	Hours      int     `json:"hours"`
	Percentage float64 `json:"percentage"`
	UsageLevel string  `json:"usage_level"`
}

// HoursReport is the share of total daily hours per appliance.
type HoursReport struct {
	TotalHours int          `json:"total_hours"`
	Appliances []UsageEntry `json:"appliances"`
}

type CostEntry struct {
	Name       string  `json:"name"`
	Hours      int     `json:"hours"`
	Cost       float64 `json:"cost"`
	Percentage float64 `json:"percentage"`
}

// Regression is the least-squares fit of cost against hours.
type Regression struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

type CostAnalysis struct {
	TotalCost  float64     `json:"total_cost"`
	Appliances []CostEntry `json:"appliances"`
	Regression *Regression `json:"regression,omitempty"`
}

type SavingsEntry struct {
	Name       string  `json:"name"`
	Hours      int     `json:"hours"`
	UsageLevel string  `json:"usage_level"`
	Savings    float64 `json:"savings"`
}

type SavingsReport struct {
	Appliances   []SavingsEntry `json:"appliances"`
	TotalSavings float64        `json:"total_savings"`
}

// Analyzer computes reports using the rates in its RateBook.
type Analyzer struct {
	rates *RateBook
}

// New returns an Analyzer. A nil book uses the default tables.
func New(rates *RateBook) *Analyzer {
	if rates == nil {
		rates = NewRateBook(DefaultTables())
	}
	return &Analyzer{rates: rates}
}

// Rates returns the analyzer's rate book.
func (a *Analyzer) Rates() *RateBook {
	return a.rates
}

func (a *Analyzer) Hours(entries []ledger.Entry) (HoursReport, error) {
	if len(entries) == 0 {
		return HoursReport{}, errs.EmptyState(msgNoData)
	}

	total := 0
	for _, e := range entries {
		total += e.Hours
	}

	report := HoursReport{TotalHours: total, Appliances: make([]UsageEntry, 0, len(entries))}
	for _, e := range entries {
		report.Appliances = append(report.Appliances, UsageEntry{
			Name:       e.Name,
			Hours:      e.Hours,
			Percentage: money.Round(percent(float64(e.Hours), float64(total)), 1),
			UsageLevel: usageLevel(e.Hours),
		})
	}
	return report, nil
}

func (a *Analyzer) Cost(entries []ledger.Entry) (CostAnalysis, error) {
	if len(entries) == 0 {
		return CostAnalysis{}, errs.EmptyState(msgNoData)
	}
	table := a.rates.Load().Cost

	costs := make([]float64, len(entries))
	points := make([]forecast.Point, len(entries))
	var total float64
	for i, e := range entries {
		costs[i] = table.Rate(e.Name) * float64(e.Hours)
		points[i] = forecast.Point{X: float64(e.Hours), Y: costs[i]}
		total += costs[i]
	}

	result := CostAnalysis{TotalCost: money.Round(total, 2), Appliances: make([]CostEntry, 0, len(entries))}
	for i, e := range entries {
		result.Appliances = append(result.Appliances, CostEntry{
			Name:       e.Name,
			Hours:      e.Hours,
			Cost:       money.Round(costs[i], 2),
			Percentage: money.Round(percent(costs[i], total), 1),
		})
	}

	if len(entries) > 1 {
		line, err := forecast.FitLine(points)
		switch {
		case errors.Is(err, forecast.ErrNoVariation):
			// All hours equal: flat line through the mean cost.
			result.Regression = &Regression{Slope: 0, Intercept: forecast.MeanY(points)}
		case err != nil:
			return CostAnalysis{}, err
		default:
			result.Regression = &Regression{Slope: line.Slope, Intercept: line.Intercept}
		}
	}
	return result, nil
}

func (a *Analyzer) Savings(entries []ledger.Entry) (SavingsReport, error) {
	if len(entries) == 0 {
		return SavingsReport{}, errs.EmptyState(msgNoData)
	}
	table := a.rates.Load().Savings

	sorted := append([]ledger.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Hours > sorted[j].Hours })

	report := SavingsReport{Appliances: make([]SavingsEntry, 0, len(sorted))}
	var total float64
	for _, e := range sorted {
		rate := table.Rate(e.Name)
		current := rate * float64(e.Hours)
		reduced := rate * float64(max(0, e.Hours-ReducedHours))
		savings := current - reduced

		entry := SavingsEntry{Name: e.Name, Hours: e.Hours, UsageLevel: savingsLevel(e.Hours)}
		if e.Hours > ReducedHours {
			entry.Savings = money.Round(savings, 2)
			total += savings
		}
		report.Appliances = append(report.Appliances, entry)
	}
	report.TotalSavings = money.Round(total, 2)
	return report, nil
}

func percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}

func usageLevel(hours int) string {
	switch {
	case hours > 8:
		return "high"
	case hours > 4:
		return "moderate"
	default:
		return "efficient"
	}
}

func savingsLevel(hours int) string {
	switch {
	case hours > 8:
		return "very_high"
	case hours > 4:
		return "high"
	default:
		return "normal"
	}
}
