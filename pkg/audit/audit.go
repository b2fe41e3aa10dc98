// Package audit records the MCP tool calls made against the platform.
package audit

import (
	"context"
	"time"
)

// Logger defines the interface for audit logging.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Query retrieves audit events matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Close releases resources.
	Close() error
}

// Event is one tool call.
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	DurationMS   int64          `json:"duration_ms"`
	ToolName     string         `json:"tool_name"`
	Question     string         `json:"question,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// QueryFilter defines criteria for querying audit events.
type QueryFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	ToolName  string
	Question  string
	Success   *bool
	Limit     int
	Offset    int
}

// Matches reports whether e passes every set criterion. Limit and Offset
// are not considered.
func (f QueryFilter) Matches(e Event) bool {
	switch {
	case f.StartTime != nil && e.Timestamp.Before(*f.StartTime):
		return false
	case f.EndTime != nil && e.Timestamp.After(*f.EndTime):
		return false
	case f.ToolName != "" && e.ToolName != f.ToolName:
		return false
	case f.Question != "" && e.Question != f.Question:
		return false
	case f.Success != nil && e.Success != *f.Success:
		return false
	}
	return true
}
