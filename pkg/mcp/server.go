package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rmax-ai/wattwise/pkg/client"
	"github.com/rmax-ai/wattwise/pkg/ledger"
)

const appliancesURI = "wattwise://appliances"

// Server exposes the wattwise daemon through the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"wattwise",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		appliancesURI,
		"Appliance Ledger",
		mcp.WithResourceDescription("Tracked appliances and their daily usage hours"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadAppliances)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"list_appliances",
		mcp.WithDescription("List tracked appliances with their daily usage hours."),
	), s.handleListAppliances)

	s.mcpServer.AddTool(mcp.NewTool(
		"add_appliance",
		mcp.WithDescription("Add an appliance or update its daily usage hours."),
		mcp.WithString("appliance", mcp.Required(), mcp.Description("Appliance name (e.g., 'Fan')")),
		mcp.WithNumber("hours", mcp.Required(), mcp.Description("Hours used per day, 0 to 24")),
	), s.handleAddAppliance)

	s.mcpServer.AddTool(mcp.NewTool(
		"remove_appliance",
		mcp.WithDescription("Stop tracking an appliance."),
		mcp.WithString("appliance", mcp.Required(), mcp.Description("Appliance name")),
	), s.handleRemoveAppliance)

	s.mcpServer.AddTool(mcp.NewTool(
		"predict_bill",
		mcp.WithDescription("Forecast next month's electricity bill from the last three bills, oldest first."),
		mcp.WithArray("bills", mcp.Required(),
			mcp.Description("Three monthly bill amounts"),
			mcp.Items(map[string]any{"type": "number"}),
		),
	), s.handlePredictBill)

	s.mcpServer.AddTool(mcp.NewTool(
		"usage_report",
		mcp.WithDescription("Share of total daily hours per appliance."),
	), s.handleUsageReport)

	s.mcpServer.AddTool(mcp.NewTool(
		"cost_analysis",
		mcp.WithDescription("Estimated daily cost per appliance with a usage-to-cost trend line."),
	), s.handleCostAnalysis)

	s.mcpServer.AddTool(mcp.NewTool(
		"savings_report",
		mcp.WithDescription("Potential monthly savings from cutting each appliance to two hours a day."),
	), s.handleSavingsReport)

	s.mcpServer.AddTool(mcp.NewTool(
		"ask_energy_assistant",
		mcp.WithDescription("Ask the energy assistant a question."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to ask")),
		mcp.WithString("conversation_id", mcp.Description("Conversation to continue (default: shared)")),
	), s.handleAskAssistant)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"energy-advisor",
		mcp.WithPromptDescription("Explains the wattwise tools and how bills and appliance hours relate"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadAppliances(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := s.apiClient.Appliances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch appliances: %w", err)
	}

	data, err := json.MarshalIndent(ledger.Listing(entries), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal appliances: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleListAppliances(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.apiClient.Appliances(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(formatEntries(entries)), nil
}

func (s *Server) handleAddAppliance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := mcp.ParseString(request, "appliance", "")
	hours := mcp.ParseFloat64(request, "hours", -1)
	if hours != float64(int(hours)) {
		return mcp.NewToolResultError("Hours must be a whole number"), nil
	}

	entries, err := s.apiClient.AddAppliance(ctx, name, int(hours))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(formatEntries(entries)), nil
}

func (s *Server) handleRemoveAppliance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.apiClient.RemoveAppliance(ctx, mcp.ParseString(request, "appliance", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(formatEntries(entries)), nil
}

func (s *Server) handlePredictBill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, _ := request.GetArguments()["bills"].([]any)
	bills := make([]float64, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return mcp.NewToolResultError("All bills must be valid numbers"), nil
		}
		bills = append(bills, f)
	}

	p, err := s.apiClient.Predict(ctx, bills)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	msg := fmt.Sprintf("Predicted bill: %.2f (about %.0f)\nPredicted units: %.2f kWh",
		p.PredictedBill, p.RoundedBill, p.PredictedUnits)
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) handleUsageReport(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := s.apiClient.Report(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return jsonResult(r)
}

func (s *Server) handleCostAnalysis(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := s.apiClient.Analysis(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return jsonResult(r)
}

func (s *Server) handleSavingsReport(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := s.apiClient.Savings(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return jsonResult(r)
}

func (s *Server) handleAskAssistant(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question := mcp.ParseString(request, "question", "")
	convID := mcp.ParseString(request, "conversation_id", "")

	reply, err := s.apiClient.Ask(ctx, convID, question)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(reply.Response), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "energy-advisor" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are helping a household understand and reduce its electricity use with wattwise.

Concepts:
- Appliance ledger: each tracked appliance has a whole number of hours used per day (0 to 24).
- Bill prediction: the last three monthly bills, oldest first, are converted to kWh with a tiered tariff and extrapolated one month ahead.
- Cost analysis: estimated daily cost per appliance from a per-hour rate table.
- Savings report: what each appliance could save per month if cut to two hours a day.

Use list_appliances before giving advice about specific appliances.
Use predict_bill when the user shares recent bills.
`

	return mcp.NewGetPromptResult(
		"energy-advisor",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}

func formatEntries(entries []client.Entry) string {
	if len(entries) == 0 {
		return "No appliances tracked."
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s: %d h/day\n", e.Name, e.Hours)
	}
	return b.String()
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
