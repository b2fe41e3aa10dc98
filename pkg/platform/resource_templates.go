package platform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/yosida95/uritemplate/v3"

	"github.com/EuPathDB/WSF/pkg/api"
)

// Resource template URI patterns.
const (
	answerTemplateURI   = "answer://{checksum}"
	questionTemplateURI = "question://{name}"
)

// registerResourceTemplates registers all MCP resource templates.
func (p *Platform) registerResourceTemplates() {
	p.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: answerTemplateURI,
		Name:        "Saved Answer",
		Description: "A saved answer keyed by the checksum of its id query instance",
		MIMEType:    "application/json",
	}, p.handleAnswerResource)

	p.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: questionTemplateURI,
		Name:        "Question",
		Description: "Question definition with parameters, attributes, filters and reporters",
		MIMEType:    "application/json",
	}, p.handleQuestionResource)
}

// parseTemplateVars extracts named variables from a URI using a URI template.
// Returns a map of variable names to their values, or an error if the URI
// doesn't match the template.
func parseTemplateVars(templateStr, uri string) (map[string]string, error) {
	tmpl, err := uritemplate.New(templateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", templateStr, err)
	}

	match := tmpl.Match(uri)
	if match == nil {
		return nil, fmt.Errorf("uri %q does not match template %q", uri, templateStr)
	}

	result := make(map[string]string)
	for _, name := range tmpl.Varnames() {
		result[name] = match.Get(name).String()
	}
	return result, nil
}

// handleAnswerResource returns a saved answer.
func (p *Platform) handleAnswerResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(answerTemplateURI, uri)
	if err != nil {
		return nil, err
	}

	a, err := p.answers.Factory.GetAnswer(ctx, vars["checksum"])
	if err != nil {
		return nil, fmt.Errorf("reading answer: %w", err)
	}
	if a == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	return jsonResource(uri, a)
}

// handleQuestionResource returns a question description.
func (p *Platform) handleQuestionResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(questionTemplateURI, uri)
	if err != nil {
		return nil, err
	}

	q, err := p.model.Question(vars["name"])
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	return jsonResource(uri, api.DescribeQuestion(q, true))
}

// jsonResource renders v as the content of uri.
func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
