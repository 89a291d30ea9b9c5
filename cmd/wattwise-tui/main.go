package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rmax-ai/wattwise/pkg/client"
	"github.com/rmax-ai/wattwise/pkg/ledger"
)

const (
	defaultDaemonURL = "http://127.0.0.1:5000"
	pollRate         = 2 * time.Second
	fetchTimeout     = time.Second
	maxEvents        = 20
	viewportHeight   = 12
	barWidth         = 30
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(48)

	eventTimeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(10)
	addedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Width(10)
	removedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Width(10)

	levelStyles = map[string]lipgloss.Style{
		"very_high": lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		"high":      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"normal":    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

// fetcher is the part of the SDK the dashboard polls.
type fetcher interface {
	Report(ctx context.Context) (client.HoursReport, error)
	Savings(ctx context.Context) (client.SavingsReport, error)
	GetEvents(ctx context.Context, limit int) ([]client.Event, error)
}

type tickMsg time.Time

type dataMsg struct {
	report  client.HoursReport
	savings client.SavingsReport
	events  []client.Event
	empty   bool
	err     error
}

type model struct {
	api      fetcher
	spinner  spinner.Model
	viewport viewport.Model
	report   client.HoursReport
	savings  client.SavingsReport
	events   []client.Event
	empty    bool
	err      error
	ready    bool
}

func initialModel(api fetcher) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		api:      api,
		spinner:  s,
		viewport: newViewport(100),
	}
}

func newViewport(width int) viewport.Model {
	vp := viewport.New(width, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)
	return vp
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchData(m.api),
		tick(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, fetchData(m.api)
		}
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, fetchData(m.api), tick())

	case dataMsg:
		m.err = msg.err
		if msg.err == nil {
			m.report = msg.report
			m.savings = msg.savings
			m.events = msg.events
			m.empty = msg.empty
			m.updateViewportContent()
		}
		m.ready = true

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}

	return m, tea.Batch(cmds...)
}

func (m *model) updateViewportContent() {
	var sb strings.Builder
	for _, e := range m.events {
		ts := eventTimeStyle.Render(e.TsEvent.Local().Format("15:04:05"))
		if e.EventType == ledger.EventTypeApplianceAdded {
			fmt.Fprintf(&sb, "%s %s %s = %d h/day\n", ts, addedStyle.Render("added"), e.Name, e.Hours)
		} else {
			fmt.Fprintf(&sb, "%s %s %s\n", ts, removedStyle.Render("removed"), e.Name)
		}
	}
	m.viewport.SetContent(sb.String())
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Connecting...", m.spinner.View())
	}

	var usage strings.Builder
	usage.WriteString(titleStyle.Render("Daily Usage") + "\n\n")
	if m.empty {
		usage.WriteString(subtleStyle.Render("No appliances tracked."))
	}
	for _, e := range m.report.Appliances {
		fmt.Fprintf(&usage, "%-14s %s %2dh\n", truncate(e.Name, 14), bar(e.Percentage), e.Hours)
	}

	var savings strings.Builder
	savings.WriteString(titleStyle.Render("Savings at 2h/day") + "\n\n")
	for _, e := range m.savings.Appliances {
		style, ok := levelStyles[e.UsageLevel]
		if !ok {
			style = subtleStyle
		}
		fmt.Fprintf(&savings, "%-14s %s %8.2f\n", truncate(e.Name, 14), style.Width(10).Render(e.UsageLevel), e.Savings)
	}
	if !m.empty {
		fmt.Fprintf(&savings, "\nTotal: %.2f / month", m.savings.TotalSavings)
	}

	topPane := lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Render(usage.String()),
		paneStyle.Render(savings.String()),
	)

	header := headerStyle.Render(fmt.Sprintf("%s Ledger Activity", m.spinner.View()))

	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("Online • %d Appliances • %d h/day", len(m.report.Appliances), m.report.TotalHours))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\nPress r to refresh, q to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, m.viewport.View(), footer)
}

func bar(percent float64) string {
	n := int(percent / 100 * barWidth)
	if n < 0 {
		n = 0
	}
	if n > barWidth {
		n = barWidth
	}
	return barStyle.Render(strings.Repeat("█", n)) + strings.Repeat("·", barWidth-n)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Commands

func fetchData(api fetcher) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		events, err := api.GetEvents(ctx, maxEvents)
		if err != nil {
			return dataMsg{err: err}
		}

		report, err := api.Report(ctx)
		if isEmptyLedger(err) {
			return dataMsg{events: events, empty: true}
		}
		if err != nil {
			return dataMsg{err: err}
		}

		savings, err := api.Savings(ctx)
		if err != nil {
			return dataMsg{err: err}
		}

		return dataMsg{report: report, savings: savings, events: events}
	}
}

// isEmptyLedger reports the daemon's 400 for reports over no appliances.
func isEmptyLedger(err error) bool {
	var apiErr *client.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 400
}

func tick() tea.Cmd {
	return tea.Tick(pollRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func main() {
	url := flag.String("url", envOrDefault("WATTWISE_URL", defaultDaemonURL), "wattwise-d base URL")
	flag.Parse()

	p := tea.NewProgram(initialModel(client.NewClient(*url)), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
