package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Trace Bank tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("tracebank", "0.1.0")
	client := NewBankClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolEvaluateTransaction, h.HandleEvaluateTransaction)
	s.AddTool(ToolGetUserHistory, h.HandleGetUserHistory)
	s.AddTool(ToolGetAuditLog, h.HandleGetAuditLog)
	s.AddTool(ToolGetPolicy, h.HandleGetPolicy)
	s.AddTool(ToolUpdatePolicy, h.HandleUpdatePolicy)

	return s
}
