package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/issuedesk/issuedesk/internal/auth"
	"github.com/issuedesk/issuedesk/internal/issues"
	"github.com/issuedesk/issuedesk/internal/models"
	"github.com/issuedesk/issuedesk/internal/store"
)

// Server wraps the issuedesk service layer and exposes it as MCP tools.
// All mutating tools act as the configured identity.
type Server struct {
	svc      *issues.Service
	store    store.Store
	identity string
}

// NewServer creates the MCP server wrapper. identity is the email the
// tools act as; it may be empty, in which case callers are anonymous.
func NewServer(svc *issues.Service, st store.Store, identity string) *Server {
	return &Server{svc: svc, store: st, identity: identity}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("issuedesk", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.getIssueTool())
	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.updateIssueTool())
	srv.AddTool(s.assignIssueTool())
	srv.AddTool(s.issueStatsTool())
	srv.AddTool(s.listUsersTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// caller resolves the configured identity against the user store. An
// unknown or empty identity degrades to the anonymous caller.
func (s *Server) caller(ctx context.Context) auth.Caller {
	c, err := auth.ResolveEmail(ctx, s.store, s.identity)
	if err != nil {
		return auth.Anonymous
	}
	return c
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// issuedesk_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issuedesk_list_issues",
		mcp.WithDescription("List issues as a JSON page. Each issue has id, title, description, status (OPEN/IN_PROGRESS/CLOSED), assignee, and timestamps. The page object carries totalCount, totalPages, hasNextPage, and hasPreviousPage."),
		mcp.WithString("status", mcp.Description("Status filter: OPEN, IN_PROGRESS, CLOSED. Anything else lists all issues.")),
		mcp.WithString("page", mcp.Description("Page number, 1-based (default 1)")),
		mcp.WithString("limit", mcp.Description("Page size (default 10)")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := issues.ListFilter{Status: request.GetString("status", "")}
	page := issues.PageRequest{
		Page:  atoiDefault(request.GetString("page", ""), 1),
		Limit: atoiDefault(request.GetString("limit", ""), issues.DefaultPageSize),
	}

	result, err := s.svc.List(ctx, filter, page)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issues: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// issuedesk_get_issue
func (s *Server) getIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issuedesk_get_issue",
		mcp.WithDescription("Get a single issue by its numeric ID, including author and assignee details."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Numeric issue ID")),
	)
	return tool, s.handleGetIssue
}

func (s *Server) handleGetIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, res := s.requireIssueID(request)
	if res != nil {
		return res, nil
	}

	issue, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.Marshal(issue)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issue: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// issuedesk_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issuedesk_create_issue",
		mcp.WithDescription("Create a new issue owned by the configured identity. Returns the created issue as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title (1-255 characters)")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Issue description")),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	description, err := request.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: description"), nil
	}

	issue, err := s.svc.Create(ctx, s.caller(ctx), issues.CreateInput{
		Title:       title,
		Description: description,
	})
	if err != nil {
		return mcp.NewToolResultError(toolError("create issue", err)), nil
	}

	data, err := json.Marshal(issue)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issue: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// issuedesk_update_issue
func (s *Server) updateIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issuedesk_update_issue",
		mcp.WithDescription("Update an issue's title, description, or status. Only the issue's author may update it. Returns the updated issue as JSON."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Numeric issue ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("status", mcp.Description("New status: OPEN, IN_PROGRESS, CLOSED")),
	)
	return tool, s.handleUpdateIssue
}

func (s *Server) handleUpdateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, res := s.requireIssueID(request)
	if res != nil {
		return res, nil
	}

	caller := s.caller(ctx)
	current, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	input := issues.UpdateInput{
		Title:       current.Title,
		Description: current.Description,
	}
	updated := false
	if title := request.GetString("title", ""); title != "" {
		input.Title = title
		updated = true
	}
	if desc := request.GetString("description", ""); desc != "" {
		input.Description = desc
		updated = true
	}
	if status := request.GetString("status", ""); status != "" {
		st := models.IssueStatus(status)
		input.Status = &st
		updated = true
	}
	if !updated {
		return mcp.NewToolResultError("no fields provided to update; specify at least one of: title, description, status"), nil
	}

	issue, err := s.svc.Update(ctx, caller, id, input)
	if err != nil {
		return mcp.NewToolResultError(toolError("update issue", err)), nil
	}

	data, err := json.Marshal(issue)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issue: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// issuedesk_assign_issue
func (s *Server) assignIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issuedesk_assign_issue",
		mcp.WithDescription("Assign an issue to a user, or clear the assignment when no assignee is given. Returns the updated issue as JSON."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Numeric issue ID")),
		mcp.WithString("assignee", mcp.Description("Email of the user to assign; omit to unassign")),
	)
	return tool, s.handleAssignIssue
}

func (s *Server) handleAssignIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, res := s.requireIssueID(request)
	if res != nil {
		return res, nil
	}

	input := issues.AssignInput{}
	if email := request.GetString("assignee", ""); email != "" {
		user, err := s.store.GetUserByEmail(ctx, email)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("user not found: %s", email)), nil
		}
		input.AssigneeID = &user.ID
	}

	issue, err := s.svc.Assign(ctx, s.caller(ctx), id, input)
	if err != nil {
		return mcp.NewToolResultError(toolError("assign issue", err)), nil
	}

	data, err := json.Marshal(issue)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issue: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// issuedesk_issue_stats
func (s *Server) issueStatsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issuedesk_issue_stats",
		mcp.WithDescription("Get issue counts by status: open, inProgress, closed, and total."),
	)
	return tool, s.handleIssueStats
}

func (s *Server) handleIssueStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compute stats: %v", err)), nil
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// issuedesk_list_users
func (s *Server) listUsersTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issuedesk_list_users",
		mcp.WithDescription("List all registered users with id, email, and name. Useful for picking an assignee."),
	)
	return tool, s.handleListUsers
}

func (s *Server) handleListUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list users: %v", err)), nil
	}

	type userOut struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		CreatedAt string `json:"createdAt"`
	}
	out := make([]userOut, len(users))
	for i, u := range users {
		out[i] = userOut{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			CreatedAt: u.CreatedAt.Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal users: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// requireIssueID extracts and parses the issue_id parameter. The second
// return value is non-nil when the request should fail.
func (s *Server) requireIssueID(request mcp.CallToolRequest) (int64, *mcp.CallToolResult) {
	raw, err := request.RequireString("issue_id")
	if err != nil {
		return 0, mcp.NewToolResultError("missing required parameter: issue_id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, mcp.NewToolResultError(fmt.Sprintf("invalid issue_id: %s", raw))
	}
	return id, nil
}

// toolError renders a service error, surfacing field violations when present.
func toolError(op string, err error) string {
	if fields := issues.FieldsOf(err); len(fields) > 0 {
		msg := fmt.Sprintf("failed to %s:", op)
		for _, f := range fields {
			msg += fmt.Sprintf(" %s: %s;", f.Field, f.Message)
		}
		return msg
	}
	return fmt.Sprintf("failed to %s: %v", op, err)
}

// atoiDefault parses n, falling back when empty or malformed.
func atoiDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
