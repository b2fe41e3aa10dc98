package wsf

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/EuPathDB/WSF/pkg/query"
)

// Executor validates requests and invokes registered plugins.
type Executor struct {
	registry  *Registry
	projectID string
}

// NewExecutor creates an executor. projectID is sent with requests made
// through InvokePlugin.
func NewExecutor(registry *Registry, projectID string) *Executor {
	return &Executor{registry: registry, projectID: projectID}
}

// Registry returns the plugin registry.
func (e *Executor) Registry() *Registry { return e.registry }

// Execute runs the named plugin: required params and columns are checked,
// then the plugin's own validation, then the invocation.
func (e *Executor) Execute(ctx context.Context, name string, req *Request) (*Response, error) {
	p, err := e.registry.Get(name)
	if err != nil {
		return nil, ModelError(name, "no such plugin", err)
	}
	if req.Params == nil {
		req.Params = map[string]string{}
	}

	invocationID := uuid.NewString()
	slog.Info("invoking plugin",
		"plugin", name,
		"project_id", req.ProjectID,
		"invocation_id", invocationID)

	if err := validateRequest(name, p, req); err != nil {
		return nil, err
	}
	if err := p.ValidateParameters(req); err != nil {
		return nil, err
	}

	started := time.Now()
	resp := &Response{}
	if err := p.Invoke(ctx, req, resp); err != nil {
		slog.Warn("plugin failed",
			"plugin", name,
			"invocation_id", invocationID,
			"error", err)
		return nil, err
	}
	for i, row := range resp.Rows {
		if len(row) != len(req.OrderedColumns) {
			return nil, ModelError(name,
				fmt.Sprintf("row %d has %d values, %d columns were requested", i, len(row), len(req.OrderedColumns)), nil)
		}
	}

	slog.Debug("plugin finished",
		"plugin", name,
		"invocation_id", invocationID,
		"rows", len(resp.Rows),
		"signal", resp.Signal,
		"duration", time.Since(started))
	return resp, nil
}

// InvokePlugin runs a plugin for a plugin-backed query.
func (e *Executor) InvokePlugin(ctx context.Context, plugin string, params map[string]string, columns []string) ([][]string, string, error) {
	resp, err := e.Execute(ctx, plugin, &Request{
		ProjectID:      e.projectID,
		Params:         params,
		OrderedColumns: columns,
	})
	if err != nil {
		return nil, "", err
	}
	return resp.Rows, resp.Message, nil
}

// Verify interface compliance.
var _ query.PluginInvoker = (*Executor)(nil)
