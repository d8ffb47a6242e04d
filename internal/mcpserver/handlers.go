package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *BankClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *BankClient) *Handlers {
	return &Handlers{client: client}
}

// HandleEvaluateTransaction submits a transaction for evaluation.
func (h *Handlers) HandleEvaluateTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	amount := req.GetFloat("amount", 0)
	if amount <= 0 {
		return mcp.NewToolResultError("amount is required and must be positive"), nil
	}

	body := map[string]any{
		"user_id":             userID,
		"amount":              amount,
		"location_permission": true,
	}
	if v := req.GetString("merchant_category", ""); v != "" {
		body["merchant_category"] = v
	}
	if v := req.GetString("scenario", ""); v != "" {
		body["scenario"] = v
	}
	if v := req.GetString("currency", ""); v != "" {
		body["currency"] = v
	}

	raw, err := h.client.EvaluateTransaction(ctx, body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Evaluation failed: %v", err)), nil
	}

	text, err := formatEvaluation(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse evaluation: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetUserHistory returns a user's transaction history and stats.
func (h *Handlers) HandleGetUserHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	raw, err := h.client.GetUserHistory(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get history: %v", err)), nil
	}

	text, err := formatHistory(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse history: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetAuditLog returns the most recent evaluations.
func (h *Handlers) HandleGetAuditLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)

	raw, err := h.client.GetAuditLog(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get audit log: %v", err)), nil
	}

	text, err := formatAuditLog(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse audit log: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetPolicy returns the active thresholds.
func (h *Handlers) HandleGetPolicy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetPolicy(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get policy: %v", err)), nil
	}

	text, err := formatPolicy(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse policy: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleUpdatePolicy changes the thresholds.
func (h *Handlers) HandleUpdatePolicy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	var review, block *float64
	if v, ok := args["review_cutoff"].(float64); ok {
		review = &v
	}
	if v, ok := args["block_cutoff"].(float64); ok {
		block = &v
	}
	if review == nil && block == nil {
		return mcp.NewToolResultError("provide review_cutoff, block_cutoff, or both"), nil
	}

	raw, err := h.client.UpdatePolicy(ctx, review, block)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Policy update failed: %v", err)), nil
	}

	text, err := formatPolicy(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse policy: %v", err)), nil
	}

	return mcp.NewToolResultText("Policy updated.\n" + text), nil
}

// --- Formatting helpers ---

func formatEvaluation(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Decision: %s (risk level %s)\n", getString(m, "decision"), getString(m, "risk_level"))
	if v, ok := getFloat(m, "risk_score"); ok {
		fmt.Fprintf(&sb, "Risk score: %.1f / 100\n", v)
	}
	fmt.Fprintf(&sb, "Transaction ID: %s\n", getString(m, "transaction_id"))

	if comps, ok := m["component_risks"].(map[string]any); ok && len(comps) > 0 {
		sb.WriteString("\nRisk breakdown:\n")
		keys := make([]string, 0, len(comps))
		for k := range comps {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v, ok := comps[k].(float64); ok {
				fmt.Fprintf(&sb, "  %-20s %.1f\n", k, v)
			}
		}
	}

	if alert, ok := m["fraud_ring_alert"].(map[string]any); ok {
		sb.WriteString("\nFraud ring alert:\n")
		if v, ok := getFloat(alert, "suspicion_score"); ok {
			fmt.Fprintf(&sb, "  Suspicion: %.0f\n", v)
		}
		if msg := getString(alert, "message"); msg != "" {
			fmt.Fprintf(&sb, "  %s\n", msg)
		}
	}

	if cfs, ok := m["counterfactuals"].([]any); ok && len(cfs) > 0 {
		sb.WriteString("\nSuggestions:\n")
		for _, c := range cfs {
			cf, ok := c.(map[string]any)
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "  - %s\n", getString(cf, "suggestion"))
		}
	}

	if churn, ok := m["churn_impact"].(map[string]any); ok {
		if p := getString(churn, "churn_probability"); p != "" {
			fmt.Fprintf(&sb, "\nChurn probability: %s", p)
			if v, ok := getFloat(churn, "revenue_at_risk"); ok && v > 0 {
				fmt.Fprintf(&sb, " (revenue at risk: %.1f)", v)
			}
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}

func formatHistory(raw json.RawMessage) (string, error) {
	var resp struct {
		UserID       string           `json:"user_id"`
		Transactions []map[string]any `json:"transactions"`
		Stats        map[string]any   `json:"stats"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "History for %s:\n", resp.UserID)

	if resp.Stats != nil {
		if v, ok := getFloat(resp.Stats, "count"); ok {
			fmt.Fprintf(&sb, "  Transactions: %.0f\n", v)
		}
		if v, ok := getFloat(resp.Stats, "average_amount"); ok && v > 0 {
			fmt.Fprintf(&sb, "  Average amount: %.2f\n", v)
		}
		approved, _ := getFloat(resp.Stats, "approved")
		declined, _ := getFloat(resp.Stats, "declined")
		pending, _ := getFloat(resp.Stats, "pending_review")
		fmt.Fprintf(&sb, "  Approved: %.0f | Declined: %.0f | Pending review: %.0f\n", approved, declined, pending)
	}

	if len(resp.Transactions) == 0 {
		sb.WriteString("\nNo transactions recorded.")
		return sb.String(), nil
	}

	sb.WriteString("\nRecent transactions:\n")
	for i, tx := range resp.Transactions {
		amount, _ := getFloat(tx, "amount")
		score, _ := getFloat(tx, "risk_score")
		fmt.Fprintf(&sb, "%d. %s | %.2f %s | score %.1f | %s\n",
			i+1, getString(tx, "id", "transaction_id"), amount,
			getString(tx, "currency"), score, getString(tx, "decision"))
	}
	return sb.String(), nil
}

func formatAuditLog(raw json.RawMessage) (string, error) {
	var resp struct {
		Entries []map[string]any `json:"entries"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	if len(resp.Entries) == 0 {
		return "Audit log is empty.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Last %d evaluation(s), newest first:\n\n", len(resp.Entries))
	for i, e := range resp.Entries {
		amount, _ := getFloat(e, "amount")
		score, _ := getFloat(e, "risk_score")
		fmt.Fprintf(&sb, "%d. %s | user %s | %.2f | score %.1f | %s",
			i+1, getString(e, "transaction_id"), getString(e, "user_id"),
			amount, score, getString(e, "decision"))
		if s := getString(e, "scenario"); s != "" && s != "normal" {
			fmt.Fprintf(&sb, " [%s]", s)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func formatPolicy(raw json.RawMessage) (string, error) {
	var resp struct {
		Policy map[string]any `json:"policy"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if resp.Policy == nil {
		return "", fmt.Errorf("unexpected policy response format")
	}

	review, _ := getFloat(resp.Policy, "review_cutoff")
	block, _ := getFloat(resp.Policy, "block_cutoff")

	var sb strings.Builder
	sb.WriteString("Decision policy:\n")
	fmt.Fprintf(&sb, "  Review cutoff: %.1f (scores at or above go to manual review)\n", review)
	fmt.Fprintf(&sb, "  Block cutoff:  %.1f (scores at or above are declined)\n", block)
	return sb.String(), nil
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}

// getFloat extracts a float64 value from a map, trying multiple key names.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
