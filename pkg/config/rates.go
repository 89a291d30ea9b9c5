// Package config loads the base-cost rate tables from a YAML file and
// watches it for changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/wattwise/pkg/analysis"
)

// ratesFile mirrors the on-disk layout. Omitted sections keep their defaults.
type ratesFile struct {
	Cost    *tableFile `yaml:"cost"`
	Savings *tableFile `yaml:"savings"`
}

type tableFile struct {
	Default *float64           `yaml:"default"`
	Rates   map[string]float64 `yaml:"rates"`
	// Replace drops the built-in rates instead of merging over them.
	Replace bool `yaml:"replace"`
}

// LoadRates reads path and returns the built-in tables overlaid with its contents.
func LoadRates(path string) (analysis.Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis.Tables{}, fmt.Errorf("failed to read rates file: %w", err)
	}
	return ParseRates(data)
}

// ParseRates decodes a YAML rates document. Unknown keys are rejected.
func ParseRates(data []byte) (analysis.Tables, error) {
	var f ratesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return analysis.Tables{}, fmt.Errorf("failed to parse rates file: %w", err)
	}

	tables := analysis.DefaultTables()
	tables.Cost = overlay(tables.Cost, f.Cost)
	tables.Savings = overlay(tables.Savings, f.Savings)

	if err := tables.Cost.Validate(); err != nil {
		return analysis.Tables{}, fmt.Errorf("cost table: %w", err)
	}
	if err := tables.Savings.Validate(); err != nil {
		return analysis.Tables{}, fmt.Errorf("savings table: %w", err)
	}
	return tables, nil
}

func overlay(base analysis.RateTable, f *tableFile) analysis.RateTable {
	if f == nil {
		return base
	}
	out := analysis.RateTable{Default: base.Default, Rates: make(map[string]float64)}
	if !f.Replace {
		for k, v := range base.Rates {
			out.Rates[k] = v
		}
	}
	for k, v := range f.Rates {
		out.Rates[k] = v
	}
	if f.Default != nil {
		out.Default = *f.Default
	}
	return out
}
