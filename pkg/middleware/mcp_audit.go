package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/EuPathDB/WSF/pkg/audit"
)

// MCPAuditMiddleware creates MCP protocol-level middleware that records
// every tools/call request in logger. Events are written asynchronously so
// a slow store does not delay the response.
func MCPAuditMiddleware(logger audit.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			call, callErr := extractToolCall(req)
			start := time.Now()
			result, err := next(ctx, method, req)
			if callErr != nil {
				return result, err
			}

			success, msg := callOutcome(result, err)
			event := audit.NewEvent(call.Name).
				WithQuestion(call.Question()).
				WithParameters(call.Arguments).
				WithResult(success, msg, time.Since(start).Milliseconds())
			event.Timestamp = start

			go func() {
				if err := logger.Log(context.Background(), *event); err != nil {
					slog.Warn("recording audit event", "tool", event.ToolName, "error", err)
				}
			}()

			return result, err
		}
	}
}
