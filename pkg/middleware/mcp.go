// Package middleware provides MCP protocol-level middleware for the
// platform's tool calls.
package middleware

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const methodToolsCall = "tools/call"

// toolCall is the name and decoded arguments of a tools/call request.
type toolCall struct {
	Name      string
	Arguments map[string]any
}

// Question returns the question argument, if the tool takes one.
func (c toolCall) Question() string {
	q, _ := c.Arguments["question"].(string)
	return q
}

// extractToolCall extracts the tool name and arguments from a tools/call
// request.
func extractToolCall(req mcp.Request) (toolCall, error) {
	if req == nil {
		return toolCall{}, errors.New("missing request")
	}
	params := req.GetParams()
	if params == nil {
		return toolCall{}, errors.New("missing params")
	}

	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok {
		return toolCall{}, fmt.Errorf("unexpected params type: %T", params)
	}
	// A typed nil pointer passes the assertion.
	if callParams == nil {
		return toolCall{}, errors.New("missing params")
	}
	if callParams.Name == "" {
		return toolCall{}, errors.New("missing tool name")
	}

	return toolCall{Name: callParams.Name, Arguments: extractArgumentsMap(callParams)}, nil
}

func extractArgumentsMap(params *mcp.CallToolParamsRaw) map[string]any {
	if params == nil || len(params.Arguments) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return nil
	}
	return args
}

// callOutcome reports whether a tool call succeeded and its error text.
// Tool errors travel as IsError results with the message as text.
func callOutcome(result mcp.Result, err error) (bool, string) {
	if err != nil {
		return false, err.Error()
	}
	callResult, ok := result.(*mcp.CallToolResult)
	if !ok || callResult == nil || !callResult.IsError {
		return true, ""
	}
	if len(callResult.Content) > 0 {
		if text, ok := callResult.Content[0].(*mcp.TextContent); ok {
			return false, text.Text
		}
	}
	return false, ""
}
