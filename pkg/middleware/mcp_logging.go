package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPLoggingMiddleware creates MCP protocol-level middleware that logs each
// tools/call request with its duration and outcome. Failed calls are
// logged at warn level.
func MCPLoggingMiddleware(logger *slog.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			start := time.Now()
			result, err := next(ctx, method, req)

			call, callErr := extractToolCall(req)
			if callErr != nil {
				logger.WarnContext(ctx, "malformed tool call", "error", callErr)
				return result, err
			}

			attrs := []any{"tool", call.Name, "duration", time.Since(start)}
			if q := call.Question(); q != "" {
				attrs = append(attrs, "question", q)
			}
			if success, msg := callOutcome(result, err); !success {
				logger.WarnContext(ctx, "tool call failed", append(attrs, "error", msg)...)
			} else {
				logger.DebugContext(ctx, "tool call", attrs...)
			}
			return result, err
		}
	}
}
