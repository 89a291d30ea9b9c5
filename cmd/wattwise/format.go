package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rmax-ai/wattwise/pkg/client"
	"github.com/rmax-ai/wattwise/pkg/ledger"
)

const rule = "----------------------------------------"

func money(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func printAppliances(w io.Writer, entries []client.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No appliances tracked.")
		return
	}
	fmt.Fprintf(w, "%-20s  %8s\n", "Appliance", "Hours/day")
	fmt.Fprintln(w, rule)
	total := 0
	for _, e := range entries {
		fmt.Fprintf(w, "%-20s  %8d\n", e.Name, e.Hours)
		total += e.Hours
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total: %d hours/day (%d appliances)\n", total, len(entries))
}

func printPrediction(w io.Writer, p client.Prediction) {
	for i, bill := range p.PreviousBills {
		month := ""
		if i < len(p.MonthNames) {
			month = p.MonthNames[i]
		}
		units := 0.0
		if i < len(p.PreviousUnits) {
			units = p.PreviousUnits[i]
		}
		fmt.Fprintf(w, "%-10s  %12s  %10s kWh\n", month, money(bill), money(units))
	}
	fmt.Fprintln(w, rule)
	next := ""
	if len(p.MonthNames) > len(p.PreviousBills) {
		next = p.MonthNames[len(p.PreviousBills)]
	}
	fmt.Fprintf(w, "%-10s  %12s  %10s kWh  (about %s)\n", next, money(p.PredictedBill), money(p.PredictedUnits), humanize.Commaf(p.RoundedBill))
}

func printHours(w io.Writer, r client.HoursReport) {
	fmt.Fprintf(w, "%-20s  %6s  %7s  %s\n", "Appliance", "Hours", "Share", "Usage")
	fmt.Fprintln(w, rule)
	for _, e := range r.Appliances {
		fmt.Fprintf(w, "%-20s  %6d  %6.1f%%  %s\n", e.Name, e.Hours, e.Percentage, e.UsageLevel)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total: %d hours/day\n", r.TotalHours)
}

func printCost(w io.Writer, r client.CostAnalysis) {
	fmt.Fprintf(w, "%-20s  %6s  %10s  %7s\n", "Appliance", "Hours", "Cost/day", "Share")
	fmt.Fprintln(w, rule)
	for _, e := range r.Appliances {
		fmt.Fprintf(w, "%-20s  %6d  %10s  %6.1f%%\n", e.Name, e.Hours, money(e.Cost), e.Percentage)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total: %s per day\n", money(r.TotalCost))
	if r.Regression != nil {
		fmt.Fprintf(w, "Trend: cost = %.4f × hours + %.4f\n", r.Regression.Slope, r.Regression.Intercept)
	}
}

func printSavings(w io.Writer, r client.SavingsReport) {
	fmt.Fprintf(w, "%-20s  %6s  %-8s  %12s\n", "Appliance", "Hours", "Usage", "Savings/mo")
	fmt.Fprintln(w, rule)
	for _, e := range r.Appliances {
		fmt.Fprintf(w, "%-20s  %6d  %-8s  %12s\n", e.Name, e.Hours, e.UsageLevel, money(e.Savings))
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Potential savings: %s per month\n", money(r.TotalSavings))
}

func printEvents(w io.Writer, events []client.Event, now time.Time) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events recorded.")
		return
	}
	for _, e := range events {
		action := strings.TrimPrefix(string(e.EventType), "appliance_")
		detail := e.Name
		if e.EventType == ledger.EventTypeApplianceAdded {
			detail = fmt.Sprintf("%s = %d h/day", e.Name, e.Hours)
		}
		fmt.Fprintf(w, "%-16s  %-8s  %s\n", humanize.RelTime(e.TsEvent, now, "ago", "from now"), action, detail)
	}
}
