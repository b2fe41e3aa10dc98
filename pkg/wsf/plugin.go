// Package wsf runs analysis plugins on behalf of plugin-backed queries. A
// plugin receives named parameters and the columns the caller wants, and
// answers with rows in that column order plus an optional message and
// signal. Plugins are created by name from an explicit registry.
package wsf

import (
	"context"
	"fmt"
	"strings"
)

// Request is one plugin invocation.
type Request struct {
	// ProjectID identifies the calling project.
	ProjectID string `json:"project_id"`

	// Params holds the parameter values by name.
	Params map[string]string `json:"params"`

	// OrderedColumns is the column order the caller expects in each row.
	OrderedColumns []string `json:"ordered_columns"`

	// Context carries caller-supplied settings such as a config directory.
	Context map[string]string `json:"context,omitempty"`
}

// ColumnIndex returns the position of column in OrderedColumns, or -1.
func (r *Request) ColumnIndex(column string) int {
	for i, c := range r.OrderedColumns {
		if strings.EqualFold(c, column) {
			return i
		}
	}
	return -1
}

// Response collects the result of a plugin invocation.
type Response struct {
	// Rows are in the request's column order.
	Rows [][]string `json:"rows"`

	// Message is free text for the caller. Federated plugins report
	// per-project counts here as "project:count,...".
	Message string `json:"message,omitempty"`

	// Signal is the exit code of an invoked program, or a plugin-defined
	// code. Zero means success.
	Signal int `json:"signal"`
}

// AddRow appends a row. It must have one value per requested column.
func (r *Response) AddRow(row []string) {
	r.Rows = append(r.Rows, row)
}

// Plugin is an analysis program reachable through the service.
type Plugin interface {
	// RequiredParameterNames lists the params every request must carry.
	RequiredParameterNames() []string

	// Columns lists the columns the plugin produces.
	Columns() []string

	// ValidateParameters checks the request before invocation. Invalid
	// input is reported as a UserError.
	ValidateParameters(req *Request) error

	// Invoke runs the plugin and fills resp.
	Invoke(ctx context.Context, req *Request, resp *Response) error
}

// validateRequest checks required params and columns.
func validateRequest(name string, p Plugin, req *Request) error {
	for _, param := range p.RequiredParameterNames() {
		if _, ok := req.Params[param]; !ok {
			return UserError(name, fmt.Sprintf("the required parameter is missing: %s", param))
		}
	}
	for _, col := range p.Columns() {
		if req.ColumnIndex(col) < 0 {
			return UserError(name, fmt.Sprintf("the required column is missing: %s", col))
		}
	}
	return nil
}
