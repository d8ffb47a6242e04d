package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Trace Bank MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolEvaluateTransaction = mcp.NewTool("evaluate_transaction",
	mcp.WithDescription(
		"Submit a transaction for fraud risk evaluation. "+
			"Returns the decision (APPROVED, PENDING_REVIEW or DECLINED), the risk score, "+
			"a per-signal risk breakdown, and plain-language suggestions for lowering the score."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("The user making the transaction (e.g. 'user_001')")),
	mcp.WithNumber("amount",
		mcp.Required(),
		mcp.Description("Transaction amount, must be positive")),
	mcp.WithString("merchant_category",
		mcp.Description("Merchant category (e.g. 'groceries', 'electronics', 'gambling'). Defaults to 'retail'.")),
	mcp.WithString("scenario",
		mcp.Description("Simulation scenario: 'normal' (default), 'fraud_ring', or 'behavioral_anomaly'"),
		mcp.Enum("normal", "fraud_ring", "behavioral_anomaly")),
	mcp.WithString("currency",
		mcp.Description("ISO currency code. Defaults to the server's configured currency.")),
)

var ToolGetUserHistory = mcp.NewTool("get_user_history",
	mcp.WithDescription(
		"Get a user's recent transaction history with summary statistics: "+
			"transaction count, average amount, and the approved/declined/review split."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("The user to look up (e.g. 'user_001')")),
)

var ToolGetAuditLog = mcp.NewTool("get_audit_log",
	mcp.WithDescription(
		"Browse the most recent evaluated transactions across all users, newest first. "+
			"Useful for spotting decision patterns or reviewing recent declines."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of entries to return (default 20, max 100)")),
)

var ToolGetPolicy = mcp.NewTool("get_policy",
	mcp.WithDescription(
		"Get the active decision policy thresholds: the review cutoff (scores at or above "+
			"go to manual review) and the block cutoff (scores at or above are declined)."),
)

var ToolUpdatePolicy = mcp.NewTool("update_policy",
	mcp.WithDescription(
		"Update the decision policy thresholds. Takes effect immediately for all new evaluations. "+
			"The review cutoff must stay below the block cutoff and both must be within 0-100."),
	mcp.WithNumber("review_cutoff",
		mcp.Description("Scores at or above this go to manual review. Omit to keep the current value.")),
	mcp.WithNumber("block_cutoff",
		mcp.Description("Scores at or above this are declined. Omit to keep the current value.")),
)
