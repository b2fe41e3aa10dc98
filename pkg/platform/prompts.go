package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/EuPathDB/WSF/pkg/api"
	"github.com/EuPathDB/WSF/pkg/prompts"
)

const promptExploreQuestion = "explore_question"

// registerPrompts registers the built-in prompt and those loaded from the
// configured prompts directory.
func (p *Platform) registerPrompts(loaded *prompts.Manager) {
	p.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        promptExploreQuestion,
		Title:       "Explore Question",
		Description: "Guides running a question of the model: its parameters, then a first page of results.",
		Arguments: []*mcp.PromptArgument{
			{Name: "question", Description: "Full question name, e.g. GeneQuestions.ByOrganism", Required: true},
		},
	}, p.handleExploreQuestion)

	for _, prompt := range loaded.All() {
		content := prompt.Content
		p.mcpServer.AddPrompt(&mcp.Prompt{
			Name:        prompt.Name,
			Description: prompt.Description,
		}, func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return userPrompt(content), nil
		})
	}
}

func (p *Platform) handleExploreQuestion(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := req.Params.Arguments["question"]
	q, err := p.model.Question(name)
	if err != nil {
		return nil, fmt.Errorf("unknown question %q: %w", name, err)
	}
	summary := api.DescribeQuestion(q, true)

	var b strings.Builder
	fmt.Fprintf(&b, "Explore the question %s", summary.Name)
	if summary.DisplayName != "" {
		fmt.Fprintf(&b, " (%s)", summary.DisplayName)
	}
	fmt.Fprintf(&b, ", which returns %s records.\n\n", summary.RecordClass)

	if len(summary.Params) == 0 {
		b.WriteString("It takes no parameters.\n")
	} else {
		b.WriteString("Parameters:\n")
		for _, param := range summary.Params {
			fmt.Fprintf(&b, "- %s (%s)", param.Name, param.Type)
			if param.Prompt != "" {
				fmt.Fprintf(&b, ": %s", param.Prompt)
			}
			if len(param.Terms) > 0 {
				fmt.Fprintf(&b, "; terms %s", strings.Join(param.Terms, ", "))
				if param.MultiPick {
					b.WriteString(", comma separated for several")
				}
			}
			if param.Default != "" {
				fmt.Fprintf(&b, "; default %s", param.Default)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nAsk for any parameter values you cannot infer, then call %s with start 1 and end 20. ", toolRunQuestion)
	fmt.Fprintf(&b, "Report the result size and summarize the page by its %s attributes.",
		strings.Join(summary.SummaryAttributes, ", "))
	if len(summary.Filters) > 0 {
		fmt.Fprintf(&b, " The filters %s can narrow the answer.", strings.Join(summary.Filters, ", "))
	}
	if len(summary.Reporters) > 0 {
		fmt.Fprintf(&b, " For a full download use %s with one of the reporters %s.",
			toolCreateReport, strings.Join(summary.Reporters, ", "))
	}

	result := userPrompt(b.String())
	result.Description = "Explore " + summary.Name
	return result, nil
}

func userPrompt(text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}
}
