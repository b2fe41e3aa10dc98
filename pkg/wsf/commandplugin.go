package wsf

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// KindCommand is the plugin kind of CommandPlugin.
const KindCommand = "command"

// messagePrefix marks a leading output line carrying the result message.
const messagePrefix = "#"

// CommandPlugin runs an external program. Parameters are passed as
// "<prefix>name value" argument pairs in name order. The program prints
// one tab-delimited row per line in the configured column order; an
// optional first line starting with "#" is the result message.
type CommandPlugin struct {
	name   string
	config CommandConfig
	run    func(ctx context.Context, argv []string, cfg CommandConfig) (*CommandResult, error)
}

// NewCommandPlugin creates a command plugin.
func NewCommandPlugin(name string, cfg CommandConfig) *CommandPlugin {
	return &CommandPlugin{name: name, config: cfg, run: runConfigured}
}

// CommandFactory creates a CommandPlugin from a configuration map.
func CommandFactory(name string, cfg map[string]any) (Plugin, error) {
	c, err := ParseCommandConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewCommandPlugin(name, c), nil
}

func runConfigured(ctx context.Context, argv []string, cfg CommandConfig) (*CommandResult, error) {
	return RunCommand(ctx, argv, cfg.Timeout)
}

// RequiredParameterNames returns the configured required params.
func (c *CommandPlugin) RequiredParameterNames() []string { return c.config.RequiredParams }

// Columns returns the configured output columns.
func (c *CommandPlugin) Columns() []string { return c.config.Columns }

// ValidateParameters rejects values that cannot travel as one argument.
func (c *CommandPlugin) ValidateParameters(req *Request) error {
	for name, v := range req.Params {
		if strings.ContainsAny(v, "\x00\n\r") {
			return UserError(c.name, fmt.Sprintf("parameter %s contains a control character", name))
		}
		if c.config.ParamPrefix != "" && strings.HasPrefix(v, c.config.ParamPrefix) && !isNumber(v) {
			return UserError(c.name, fmt.Sprintf("parameter %s may not start with %q", name, c.config.ParamPrefix))
		}
	}
	return nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// argv builds the command line for req.
func (c *CommandPlugin) argv(req *Request) []string {
	names := make([]string, 0, len(req.Params))
	for n := range req.Params {
		names = append(names, n)
	}
	sort.Strings(names)

	argv := append([]string{}, c.config.Command...)
	for _, n := range names {
		argv = append(argv, c.config.ParamPrefix+n, req.Params[n])
	}
	return argv
}

// Invoke runs the program and parses its output into resp.
func (c *CommandPlugin) Invoke(ctx context.Context, req *Request, resp *Response) error {
	result, err := c.run(ctx, c.argv(req), c.config)
	if result != nil {
		resp.Signal = result.ExitCode
	}
	var exitErr *ExitError
	switch {
	case errors.Is(err, ErrTimeout):
		return ModelError(c.name, "program did not finish in time", err)
	case errors.As(err, &exitErr):
		resp.Signal = exitErr.Code
		return ModelError(c.name, "program failed", err)
	case err != nil:
		return ModelError(c.name, "program could not run", err)
	}

	message, rows, err := c.parse(result.Stdout)
	if err != nil {
		return err
	}
	resp.Message = message

	order := make([]int, len(req.OrderedColumns))
	for i, col := range req.OrderedColumns {
		order[i] = -1
		for j, own := range c.config.Columns {
			if strings.EqualFold(own, col) {
				order[i] = j
				break
			}
		}
		if order[i] < 0 {
			return UserError(c.name, fmt.Sprintf("column %s is not produced", col))
		}
	}
	for _, row := range rows {
		out := make([]string, len(order))
		for i, j := range order {
			out[i] = row[j]
		}
		resp.AddRow(out)
	}
	return nil
}

// parse splits program output into the message and rows of configured
// width.
func (c *CommandPlugin) parse(stdout string) (string, [][]string, error) {
	var (
		message string
		rows    [][]string
		first   = true
	)
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if first && strings.HasPrefix(line, messagePrefix) {
			message = strings.TrimSpace(strings.TrimPrefix(line, messagePrefix))
			first = false
			continue
		}
		first = false
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(c.config.Columns) {
			return "", nil, ModelError(c.name,
				fmt.Sprintf("output row %d has %d fields, %d columns are configured", len(rows)+1, len(fields), len(c.config.Columns)), nil)
		}
		rows = append(rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return "", nil, ModelError(c.name, "reading program output", err)
	}
	return message, rows, nil
}

// Verify interface compliance.
var _ Plugin = (*CommandPlugin)(nil)
