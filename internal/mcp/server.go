// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the straywatch dashboard as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/straywatch/straywatch/internal/core"
	"github.com/straywatch/straywatch/internal/observability"
)

// Server wraps a viewing session and exposes it as MCP tools. get_alert
// performs one poll cycle of that session; get_summary and list_detections
// read the log without consuming a count change, so an urgent change is
// still reported by the next get_alert.
type Server struct {
	server  *gomcp.Server
	metrics *observability.Metrics

	mu   sync.Mutex // guards view
	view *core.View
}

// NewServer creates a new MCP server over view. metrics may be nil.
func NewServer(view *core.View, metrics *observability.Metrics, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		view:    view,
		metrics: metrics,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "straywatch", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type getSummaryInput struct{}

type summaryOutput struct {
	HasData      bool   `json:"has_data"`
	LatestCount  int    `json:"latest_count"`
	LatestTime   string `json:"latest_time,omitempty"`
	LatestSource string `json:"latest_source,omitempty"`
	MaxCount     int    `json:"max_count"`
	Total        int    `json:"total"`
	Observations int    `json:"observations"`
	Tier         string `json:"tier,omitempty"`
	SessionMax   int    `json:"session_max"`
	Alert        string `json:"alert"`
	Message      string `json:"message"`
	Stale        bool   `json:"stale"`
	Error        string `json:"error,omitempty"`
	SkippedRows  int    `json:"skipped_rows"`
}

type getAlertInput struct{}

type alertOutput struct {
	Alert   string `json:"alert"`
	Message string `json:"message"`
	Changed bool   `json:"changed"`
	Stale   bool   `json:"stale"`
}

type listDetectionsInput struct {
	MinCount *int `json:"min_count,omitempty" jsonschema:"minimum count to include (default 1)"`
	Limit    int  `json:"limit,omitempty" jsonschema:"maximum number of rows, newest first (default all)"`
}

type detectionOutput struct {
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
	Source    string `json:"source,omitempty"`
}

type listDetectionsOutput struct {
	Detections []detectionOutput `json:"detections"`
	Count      int               `json:"count"`
	Stale      bool              `json:"stale"`
}

type getMetricsInput struct{}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_summary",
		Description: "Read the observation log and return the latest count, max, total, status tier (Safe, Caution, Critical, Danger) and alert banner.",
	}, s.handleGetSummary)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alert",
		Description: "Poll the observation log and return the alert state (no_data, normal, informational, urgent). Urgent means the count changed since the previous poll.",
	}, s.handleGetAlert)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_detections",
		Description: "List observations with at least min_count objects, newest first.",
	}, s.handleListDetections)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Return process counters: frames, appends, polls, stale polls, skipped rows and alerts.",
	}, s.handleGetMetrics)
}

// --- Tool handlers ---

func (s *Server) poll(ctx context.Context, advance bool) core.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var frame core.Frame
	if advance {
		frame = s.view.Poll(ctx)
	} else {
		frame = s.view.Peek(ctx)
	}
	if s.metrics != nil {
		s.metrics.RecordPoll(frame)
	}
	return frame
}

func (s *Server) handleGetSummary(ctx context.Context, _ *gomcp.CallToolRequest, _ getSummaryInput) (*gomcp.CallToolResult, summaryOutput, error) {
	frame := s.poll(ctx, false)
	if frame.Stale && !frame.HasData {
		return errorResult(fmt.Sprintf("reading observation log: %s", frame.Err)), summaryOutput{}, nil
	}

	out := summaryOutput{
		HasData:     frame.HasData,
		SessionMax:  frame.SessionMax,
		Alert:       string(frame.Alert),
		Message:     frame.Message,
		Stale:       frame.Stale,
		SkippedRows: len(frame.Skipped),
	}
	if frame.Err != nil {
		out.Error = frame.Err.Error()
	}
	if frame.HasData {
		latest := frame.Summary.Latest
		out.LatestCount = latest.Count
		out.LatestTime = latest.Timestamp.Format(time.RFC3339)
		out.LatestSource = latest.Source
		out.MaxCount = frame.Summary.MaxCount
		out.Total = frame.Summary.Total
		out.Observations = frame.Summary.Observations
		out.Tier = string(frame.Summary.Tier)
	}
	return nil, out, nil
}

func (s *Server) handleGetAlert(ctx context.Context, _ *gomcp.CallToolRequest, _ getAlertInput) (*gomcp.CallToolResult, alertOutput, error) {
	frame := s.poll(ctx, true)
	out := alertOutput{
		Alert:   string(frame.Alert),
		Message: frame.Message,
		Changed: frame.Changed,
		Stale:   frame.Stale,
	}
	return nil, out, nil
}

func (s *Server) handleListDetections(ctx context.Context, _ *gomcp.CallToolRequest, input listDetectionsInput) (*gomcp.CallToolResult, listDetectionsOutput, error) {
	minCount := 1
	if input.MinCount != nil {
		minCount = *input.MinCount
	}
	if minCount < 0 {
		return errorResult("min_count must be non-negative"), listDetectionsOutput{}, nil
	}
	if input.Limit < 0 {
		return errorResult("limit must be non-negative"), listDetectionsOutput{}, nil
	}

	frame := s.poll(ctx, false)
	rows := core.FilterMinCount(frame.Series, minCount, input.Limit)

	out := listDetectionsOutput{
		Detections: make([]detectionOutput, len(rows)),
		Count:      len(rows),
		Stale:      frame.Stale,
	}
	for i, o := range rows {
		out.Detections[i] = detectionOutput{
			Timestamp: o.Timestamp.Format(time.RFC3339),
			Count:     o.Count,
			Source:    o.Source,
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, _ getMetricsInput) (*gomcp.CallToolResult, observability.MetricsSnapshot, error) {
	if s.metrics == nil {
		return errorResult("metrics not available"), observability.MetricsSnapshot{}, nil
	}
	return nil, s.metrics.Snapshot(), nil
}

// --- Helpers ---

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
