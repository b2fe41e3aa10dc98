package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/EuPathDB/WSF/pkg/answer"
	"github.com/EuPathDB/WSF/pkg/api"
	"github.com/EuPathDB/WSF/pkg/audit"
	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/wsf"
)

// Tool names.
const (
	toolListQuestions    = "list_questions"
	toolDescribeQuestion = "describe_question"
	toolRunQuestion      = "run_question"
	toolRunStep          = "run_step"
	toolGetRecord        = "get_record"
	toolCreateReport     = "create_report"
	toolGetAnswer        = "get_answer"
	toolListAnswers      = "list_answers"
	toolListPlugins      = "list_plugins"
	toolInvokePlugin     = "invoke_plugin"
	toolListAuditEvents  = "list_audit_events"
)

// maxReportBytes bounds the text a report tool call returns.
const maxReportBytes = 1 << 20

type listQuestionsInput struct {
	RecordClass string `json:"record_class,omitempty"`
}

type describeQuestionInput struct {
	Question string `json:"question"`
}

type runQuestionInput struct {
	Question   string            `json:"question"`
	Params     map[string]string `json:"params,omitempty"`
	Sorting    []model.SortSpec  `json:"sorting,omitempty"`
	Filter     string            `json:"filter,omitempty"`
	Attributes []string          `json:"attributes,omitempty"`
	Start      int               `json:"start,omitempty"`
	End        int               `json:"end,omitempty"`
	Save       bool              `json:"save,omitempty"`
}

func (in runQuestionInput) request() api.AnswerRequest {
	return api.AnswerRequest{
		Params:     in.Params,
		Sorting:    in.Sorting,
		Filter:     in.Filter,
		Attributes: in.Attributes,
		Start:      in.Start,
		End:        in.End,
		Save:       in.Save,
	}
}

// stepOperand is one question run inside a run_step call.
type stepOperand struct {
	Question string            `json:"question"`
	Params   map[string]string `json:"params,omitempty"`
}

func (o *stepOperand) step() *answer.Step {
	if o == nil {
		return nil
	}
	return &answer.Step{Question: o.Question, Params: o.Params}
}

// runStepInput is either a boolean of left and right or a transform
// question fed by inputs. Operands are single questions; nested steps go
// through the REST endpoint.
type runStepInput struct {
	Operator   string                 `json:"operator,omitempty"`
	Left       *stepOperand           `json:"left,omitempty"`
	Right      *stepOperand           `json:"right,omitempty"`
	Question   string                 `json:"question,omitempty"`
	Params     map[string]string      `json:"params,omitempty"`
	Inputs     map[string]stepOperand `json:"inputs,omitempty"`
	Sorting    []model.SortSpec       `json:"sorting,omitempty"`
	Filter     string                 `json:"filter,omitempty"`
	Attributes []string               `json:"attributes,omitempty"`
	Start      int                    `json:"start,omitempty"`
	End        int                    `json:"end,omitempty"`
	Save       bool                   `json:"save,omitempty"`
}

func (in runStepInput) request() api.StepRequest {
	step := &answer.Step{
		Operator: in.Operator,
		Left:     in.Left.step(),
		Right:    in.Right.step(),
		Question: in.Question,
		Params:   in.Params,
	}
	if len(in.Inputs) > 0 {
		step.Inputs = make(map[string]*answer.Step, len(in.Inputs))
		for name, o := range in.Inputs {
			step.Inputs[name] = o.step()
		}
	}
	return api.StepRequest{
		AnswerRequest: api.AnswerRequest{
			Sorting:    in.Sorting,
			Filter:     in.Filter,
			Attributes: in.Attributes,
			Start:      in.Start,
			End:        in.End,
			Save:       in.Save,
		},
		Step: step,
	}
}

type getRecordInput struct {
	RecordClass string            `json:"record_class"`
	Key         map[string]string `json:"key"`
}

type createReportInput struct {
	Question string            `json:"question"`
	Reporter string            `json:"reporter"`
	Params   map[string]string `json:"params,omitempty"`
	Sorting  []model.SortSpec  `json:"sorting,omitempty"`
	Filter   string            `json:"filter,omitempty"`
	Start    int               `json:"start,omitempty"`
	End      int               `json:"end,omitempty"`
	Config   map[string]string `json:"config,omitempty"`
}

type getAnswerInput struct {
	Checksum string `json:"checksum"`
}

type listAnswersInput struct {
	Question string `json:"question,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

type listPluginsInput struct{}

type pluginSummary struct {
	Name           string   `json:"name"`
	Columns        []string `json:"columns"`
	RequiredParams []string `json:"required_params,omitempty"`
}

type listAuditEventsInput struct {
	Tool     string `json:"tool,omitempty"`
	Question string `json:"question,omitempty"`
	Failed   bool   `json:"failed,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

type invokePluginInput struct {
	Plugin  string            `json:"plugin"`
	Params  map[string]string `json:"params,omitempty"`
	Columns []string          `json:"columns,omitempty"`
}

// registerTools registers the question, answer and plugin tools.
func (p *Platform) registerTools() {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}

	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        toolListQuestions,
		Title:       "List Questions",
		Description: "Lists the questions of the loaded model with their parameters. Optionally restrict to one record class.",
		Annotations: readOnly,
	}, p.handleListQuestions)

	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        toolDescribeQuestion,
		Title:       "Describe Question",
		Description: "Describes one question: parameters, attributes, filters, reporters and default sorting.",
		Annotations: readOnly,
	}, p.handleDescribeQuestion)

	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:  toolRunQuestion,
		Title: "Run Question",
		Description: "Runs a question and returns one page of records with their summary attributes. " +
			"start and end are the 1-based inclusive record window. Set save to persist the answer.",
	}, p.handleRunQuestion)

	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:  toolRunStep,
		Title: "Run Step",
		Description: "Combines two questions with AND, OR or NOT (left minus right), or runs a transform " +
			"question over the answers given in inputs, and returns one page of records.",
	}, p.handleRunStep)

	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        toolGetRecord,
		Title:       "Get Record",
		Description: "Looks up one record of a record class by its primary key columns.",
		Annotations: readOnly,
	}, p.handleGetRecord)

	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:  toolCreateReport,
		Title: "Create Report",
		Description: "Formats a question's answer with one of its record class reporters. " +
			"Without start and end the whole answer is reported.",
		Annotations: readOnly,
	}, p.handleCreateReport)

	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        toolGetAnswer,
		Title:       "Get Answer",
		Description: "Returns a saved answer by the checksum of its id query instance.",
		Annotations: readOnly,
	}, p.handleGetAnswer)

	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        toolListAnswers,
		Title:       "List Answers",
		Description: "Lists saved answers, newest first.",
		Annotations: readOnly,
	}, p.handleListAnswers)

	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        toolListPlugins,
		Title:       "List Plugins",
		Description: "Lists the registered WSF plugins with their columns and required parameters.",
		Annotations: readOnly,
	}, p.handleListPlugins)

	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:  toolInvokePlugin,
		Title: "Invoke Plugin",
		Description: "Invokes a WSF plugin directly and returns its rows, message and signal. " +
			"columns defaults to every column the plugin produces.",
	}, p.handleInvokePlugin)

	if p.auditLog != nil {
		mcp.AddTool(p.mcpServer, &mcp.Tool{
			Name:        toolListAuditEvents,
			Title:       "List Audit Events",
			Description: "Lists recorded tool calls, newest first. Set failed to see only calls that returned an error.",
			Annotations: readOnly,
		}, p.handleListAuditEvents)
	}
}

func (p *Platform) handleListQuestions(_ context.Context, _ *mcp.CallToolRequest, input listQuestionsInput) (*mcp.CallToolResult, any, error) {
	questions := make([]api.QuestionSummary, 0)
	for _, q := range p.model.Questions() {
		if input.RecordClass != "" && q.RecordClass.FullName != input.RecordClass {
			continue
		}
		questions = append(questions, api.DescribeQuestion(q, false))
	}
	return jsonResult(map[string]any{
		"questions": questions,
		"total":     len(questions),
	})
}

func (p *Platform) handleDescribeQuestion(_ context.Context, _ *mcp.CallToolRequest, input describeQuestionInput) (*mcp.CallToolResult, any, error) {
	q, err := p.model.Question(input.Question)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(api.DescribeQuestion(q, true))
}

func (p *Platform) handleRunQuestion(ctx context.Context, _ *mcp.CallToolRequest, input runQuestionInput) (*mcp.CallToolResult, any, error) {
	page, err := p.runner().Run(ctx, input.Question, input.request())
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(page)
}

func (p *Platform) handleRunStep(ctx context.Context, _ *mcp.CallToolRequest, input runStepInput) (*mcp.CallToolResult, any, error) {
	page, err := p.runner().RunStep(ctx, input.request())
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(page)
}

func (p *Platform) handleGetRecord(ctx context.Context, _ *mcp.CallToolRequest, input getRecordInput) (*mcp.CallToolResult, any, error) {
	record, err := p.runner().Record(ctx, input.RecordClass, input.Key)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(record)
}

func (p *Platform) handleCreateReport(ctx context.Context, _ *mcp.CallToolRequest, input createReportInput) (*mcp.CallToolResult, any, error) {
	av, err := p.runner().MakeAnswerValue(input.Question, api.AnswerRequest{
		Params:  input.Params,
		Sorting: input.Sorting,
		Filter:  input.Filter,
	})
	if err != nil {
		return errorResult(err)
	}

	var reporter answer.Reporter
	if input.Start != 0 || input.End != 0 {
		start, end := input.Start, input.End
		if start == 0 {
			start = 1
		}
		if end == 0 {
			end = start
		}
		reporter, err = av.CreateReportRange(ctx, input.Reporter, input.Config, start, end)
	} else {
		reporter, err = av.CreateReport(ctx, input.Reporter, input.Config)
	}
	if err != nil {
		return errorResult(err)
	}

	var buf bytes.Buffer
	if err := reporter.Write(ctx, &buf); err != nil {
		return errorResult(err)
	}
	if buf.Len() > maxReportBytes {
		return errorResult(fmt.Errorf("report is %d bytes, limit is %d: narrow the range", buf.Len(), maxReportBytes))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: buf.String()},
		},
	}, nil, nil
}

func (p *Platform) handleGetAnswer(ctx context.Context, _ *mcp.CallToolRequest, input getAnswerInput) (*mcp.CallToolResult, any, error) {
	a, err := p.answers.Factory.GetAnswer(ctx, input.Checksum)
	if err != nil {
		return errorResult(err)
	}
	if a == nil {
		return errorResult(fmt.Errorf("answer not found: %s", input.Checksum))
	}
	return jsonResult(a)
}

func (p *Platform) handleListAnswers(ctx context.Context, _ *mcp.CallToolRequest, input listAnswersInput) (*mcp.CallToolResult, any, error) {
	lister, ok := p.answers.Factory.(answer.Lister)
	if !ok {
		return errorResult(errors.New("the answer store cannot list answers"))
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	answers, err := lister.ListAnswers(ctx, answer.ListFilter{
		QuestionName: input.Question,
		Limit:        limit,
		Offset:       input.Offset,
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{
		"answers": answers,
		"limit":   limit,
		"offset":  input.Offset,
	})
}

func (p *Platform) handleListPlugins(_ context.Context, _ *mcp.CallToolRequest, _ listPluginsInput) (*mcp.CallToolResult, any, error) {
	names := p.plugins.Names()
	plugins := make([]pluginSummary, 0, len(names))
	for _, name := range names {
		plugin, err := p.plugins.Get(name)
		if err != nil {
			return errorResult(err)
		}
		plugins = append(plugins, pluginSummary{
			Name:           name,
			Columns:        plugin.Columns(),
			RequiredParams: plugin.RequiredParameterNames(),
		})
	}
	return jsonResult(plugins)
}

func (p *Platform) handleInvokePlugin(ctx context.Context, _ *mcp.CallToolRequest, input invokePluginInput) (*mcp.CallToolResult, any, error) {
	columns := input.Columns
	if len(columns) == 0 {
		plugin, err := p.plugins.Get(input.Plugin)
		if err != nil {
			return errorResult(err)
		}
		columns = plugin.Columns()
	}
	resp, err := p.executor.Execute(ctx, input.Plugin, &wsf.Request{
		ProjectID:      p.config.Plugins.ProjectID,
		Params:         input.Params,
		OrderedColumns: columns,
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{
		"columns": columns,
		"rows":    resp.Rows,
		"message": resp.Message,
		"signal":  resp.Signal,
	})
}

func (p *Platform) handleListAuditEvents(ctx context.Context, _ *mcp.CallToolRequest, input listAuditEventsInput) (*mcp.CallToolResult, any, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	filter := audit.QueryFilter{
		ToolName: input.Tool,
		Question: input.Question,
		Limit:    limit,
		Offset:   input.Offset,
	}
	if input.Failed {
		success := false
		filter.Success = &success
	}
	events, err := p.auditLog.Query(ctx, filter)
	if err != nil {
		return errorResult(err)
	}
	if events == nil {
		events = []audit.Event{}
	}
	return jsonResult(map[string]any{
		"events": events,
		"limit":  limit,
		"offset": input.Offset,
	})
}
