package platform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Info contains information about the platform deployment.
type Info struct {
	Name          string        `json:"name"`
	Version       string        `json:"version"`
	Description   string        `json:"description,omitempty"`
	Platform      string        `json:"platform"`
	Questions     int           `json:"questions"`
	RecordClasses []RecordClass `json:"record_classes"`
	Plugins       []string      `json:"plugins"`
	Features      Features      `json:"features"`
}

// RecordClass summarizes one record class of the model.
type RecordClass struct {
	Name       string   `json:"name"`
	PrimaryKey []string `json:"primary_key"`
	Filters    []string `json:"filters,omitempty"`
	Reporters  []string `json:"reporters,omitempty"`
}

// Features describes enabled platform features.
type Features struct {
	AnswerStore string `json:"answer_store"`
	LoginCheck  bool   `json:"login_check"`
	Audit       bool   `json:"audit"`
}

// platformInfoInput is empty since this tool has no parameters.
type platformInfoInput struct{}

// registerInfoTool registers the platform_info tool with the MCP server.
func (p *Platform) registerInfoTool() {
	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        "platform_info",
		Description: p.buildInfoToolDescription(),
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ platformInfoInput) (*mcp.CallToolResult, any, error) {
		return p.handleInfo(ctx, req)
	})
}

// buildInfoToolDescription builds a dynamic tool description based on configuration.
func (p *Platform) buildInfoToolDescription() string {
	base := "Get information about this WDK answer service"
	if p.config.Server.Name != "" && p.config.Server.Name != "wdk-server" {
		base = fmt.Sprintf("Get information about %s", p.config.Server.Name)
	}
	return base + ", including its record classes, plugins and answer store. " +
		"Call this first, then list_questions to see what can be run."
}

// buildInfo collects the deployment summary.
func (p *Platform) buildInfo() Info {
	classes := p.model.RecordClasses()
	info := Info{
		Name:          p.config.Server.Name,
		Version:       p.config.Server.Version,
		Description:   p.config.Server.Description,
		Platform:      p.platform.Name(),
		Questions:     len(p.model.Questions()),
		RecordClasses: make([]RecordClass, 0, len(classes)),
		Plugins:       p.plugins.Names(),
		Features: Features{
			AnswerStore: p.config.Answers.Store,
			LoginCheck:  p.login != nil,
			Audit:       p.auditLog != nil,
		},
	}
	for _, rc := range classes {
		summary := RecordClass{Name: rc.FullName, PrimaryKey: rc.PrimaryKeyColumns()}
		for _, f := range rc.Filters() {
			summary.Filters = append(summary.Filters, f.Name)
		}
		for _, r := range rc.Reporters() {
			summary.Reporters = append(summary.Reporters, r.Name)
		}
		info.RecordClasses = append(info.RecordClasses, summary)
	}
	return info
}

// handleInfo handles the platform_info tool call.
func (p *Platform) handleInfo(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, any, error) {
	return jsonResult(p.buildInfo())
}

// jsonResult renders v as the text content of a tool result.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// errorResult reports err inside the tool result.
func errorResult(err error) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{ //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError, not as Go errors
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + err.Error()},
		},
		IsError: true,
	}, nil, nil
}
