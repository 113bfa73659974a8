package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tazhate/pillbot/internal/api"
)

const (
	serverName    = "pillbot"
	serverVersion = "1.0.0"
)

// Server exposes the reminder API as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	client    *Client
}

func NewServer(client *Client) *Server {
	s := &Server{client: client}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("pillbot_list_reminders",
			mcp.WithDescription("List all reminders with their schedule summary and next run"),
		),
		s.handleListReminders,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("pillbot_add_reminder",
			mcp.WithDescription("Add a recurring reminder. Kinds: once, weekly, monthly, days_of_month, last_day_of_month"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Reminder title")),
			mcp.WithString("kind", mcp.Required(), mcp.Description("Recurrence kind"),
				mcp.Enum("once", "weekly", "monthly", "days_of_month", "last_day_of_month")),
			mcp.WithString("time", mcp.Required(), mcp.Description("Time of day, HH:MM")),
			mcp.WithString("date", mcp.Description("Date for kind once, YYYY-MM-DD")),
			mcp.WithString("weekdays", mcp.Description("Comma separated weekdays for kind weekly, e.g. mon,wed,fri")),
			mcp.WithString("days", mcp.Description("Comma separated days of month for kind days_of_month, e.g. 1,15")),
			mcp.WithString("halt_unit", mcp.Description("Skip every Nth week or month: week or month")),
			mcp.WithNumber("halt_nth", mcp.Description("N for halt_unit, at least 2")),
		),
		s.handleAddReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("pillbot_set_reminder_enabled",
			mcp.WithDescription("Enable or disable a reminder"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
			mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("true to enable, false to disable")),
		),
		s.handleSetEnabled,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("pillbot_delete_reminder",
			mcp.WithDescription("Delete a reminder permanently"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleDeleteReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("pillbot_upcoming_occurrences",
			mcp.WithDescription("Next occurrences of one reminder"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
			mcp.WithNumber("count", mcp.Description("How many occurrences (default 10)")),
		),
		s.handleUpcoming,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("pillbot_schedule_preview",
			mcp.WithDescription("Merged upcoming notifications across all reminders"),
			mcp.WithNumber("limit", mcp.Description("Maximum entries (default: the configured total limit)")),
		),
		s.handleSchedule,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("pillbot_pending_notifications",
			mcp.WithDescription("Notifications currently scheduled for delivery"),
		),
		s.handlePending,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("pillbot_reset_schedule",
			mcp.WithDescription("Clear pending notifications and schedule the next batch"),
		),
		s.handleReset,
	)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleListReminders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reminders, err := s.client.ListReminders(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reminders: %v", err)), nil
	}
	if len(reminders) == 0 {
		return mcp.NewToolResultText("No reminders found."), nil
	}
	return jsonResult(reminders)
}

func (s *Server) handleAddReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := api.ReminderRequest{
		Name: req.GetString("name", ""),
		Kind: req.GetString("kind", ""),
		Time: req.GetString("time", ""),
		Date: req.GetString("date", ""),
	}

	if weekdays := req.GetString("weekdays", ""); weekdays != "" {
		body.Weekdays = splitList(weekdays)
	}
	if days := req.GetString("days", ""); days != "" {
		for _, part := range splitList(days) {
			d, err := strconv.Atoi(part)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid day of month %q", part)), nil
			}
			body.Days = append(body.Days, d)
		}
	}
	if unit := req.GetString("halt_unit", ""); unit != "" {
		body.Halt = &api.HaltRequest{Unit: unit, Nth: int(req.GetFloat("halt_nth", 0))}
	}

	created, err := s.client.CreateReminder(ctx, body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add reminder: %v", err)), nil
	}
	return jsonResult(created)
}

func (s *Server) handleSetEnabled(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	updated, err := s.client.SetEnabled(ctx, id, req.GetBool("enabled", true))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update reminder: %v", err)), nil
	}
	return jsonResult(updated)
}

func (s *Server) handleDeleteReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	if err := s.client.DeleteReminder(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete reminder: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reminder %s deleted.", id)), nil
}

func (s *Server) handleUpcoming(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	times, err := s.client.Upcoming(ctx, id, int(req.GetFloat("count", 10)))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get occurrences: %v", err)), nil
	}
	if len(times) == 0 {
		return mcp.NewToolResultText("No upcoming occurrences."), nil
	}
	return jsonResult(times)
}

func (s *Server) handleSchedule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.client.Schedule(ctx, int(req.GetFloat("limit", 0)))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get schedule: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("Nothing scheduled."), nil
	}
	return jsonResult(entries)
}

func (s *Server) handlePending(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	triggers, err := s.client.Pending(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list pending notifications: %v", err)), nil
	}
	if len(triggers) == 0 {
		return mcp.NewToolResultText("No pending notifications."), nil
	}
	return jsonResult(triggers)
}

func (s *Server) handleReset(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.client.Reset(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reset schedule: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Scheduled %d notifications.", n)), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
