package analysis

import (
	"fmt"
	"sync/atomic"
)

// RateTable maps appliance names to an hourly base cost. Lookups of unknown
// names fall back to Default.
type RateTable struct {
	Rates   map[string]float64 `json:"rates" yaml:"rates"`
	Default float64            `json:"default" yaml:"default"`
}

// Rate returns the hourly cost for name.
func (t RateTable) Rate(name string) float64 {
	if r, ok := t.Rates[name]; ok {
		return r
	}
	return t.Default
}

// Validate rejects negative rates.
func (t RateTable) Validate() error {
	if t.Default < 0 {
		return fmt.Errorf("default rate must not be negative, got %v", t.Default)
	}
	for name, r := range t.Rates {
		if r < 0 {
			return fmt.Errorf("rate for %q must not be negative, got %v", name, r)
		}
	}
	return nil
}

// DefaultCostTable is used by the cost analysis.
func DefaultCostTable() RateTable {
	return RateTable{
		Rates: map[string]float64{
			"Fan":             0.45,
			"Air Conditioner": 7,
			"Refrigerator":    1.5,
			"TV":              0.80,
			"Washing Machine": 4,
			"LED":             0.50,
		},
		Default: 0.65,
	}
}

// DefaultSavingsTable is used by the savings report. It is priced
// independently of the cost table.
func DefaultSavingsTable() RateTable {
	return RateTable{
		Rates: map[string]float64{
			"Fan":             2,
			"Air Conditioner": 15,
			"Refrigerator":    4,
			"TV":              3,
			"Washing Machine": 5,
		},
		Default: 5,
	}
}

// Tables bundles the two rate tables.
type Tables struct {
	Cost    RateTable `json:"cost" yaml:"cost"`
	Savings RateTable `json:"savings" yaml:"savings"`
}

// DefaultTables returns the built-in cost and savings tables.
func DefaultTables() Tables {
	return Tables{Cost: DefaultCostTable(), Savings: DefaultSavingsTable()}
}

// RateBook holds the active Tables and allows them to be swapped while
// reports are being computed.
type RateBook struct {
	current atomic.Pointer[Tables]
}

// NewRateBook returns a RateBook seeded with t.
func NewRateBook(t Tables) *RateBook {
	b := &RateBook{}
	b.Store(t)
	return b
}

// Load returns the active tables.
func (b *RateBook) Load() Tables {
	return *b.current.Load()
}

// Store replaces the active tables.
func (b *RateBook) Store(t Tables) {
	b.current.Store(&t)
}
