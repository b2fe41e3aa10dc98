package wsf

import (
	"fmt"
	"time"
)

const defaultCommandTimeout = 5 * time.Minute

// CommandConfig configures a command plugin.
type CommandConfig struct {
	// Command is the program and its fixed leading arguments.
	Command []string

	// Timeout bounds one run. Zero waits indefinitely.
	Timeout time.Duration

	// Columns are the tab-delimited fields the program prints, in order.
	Columns []string

	// RequiredParams must be present in every request.
	RequiredParams []string

	// ParamPrefix precedes each parameter name on the command line.
	ParamPrefix string
}

// ParseCommandConfig parses a command plugin configuration map.
func ParseCommandConfig(cfg map[string]any) (CommandConfig, error) {
	c := CommandConfig{
		Timeout:     defaultCommandTimeout,
		ParamPrefix: "-",
	}

	c.Command = getStringSlice(cfg, "command")
	if len(c.Command) == 0 {
		return c, fmt.Errorf("command is required")
	}
	c.Columns = getStringSlice(cfg, "columns")
	if len(c.Columns) == 0 {
		return c, fmt.Errorf("columns are required")
	}
	c.RequiredParams = getStringSlice(cfg, "required_params")
	if v, ok := cfg["param_prefix"].(string); ok {
		c.ParamPrefix = v
	}

	timeout, set, err := getDuration(cfg, "timeout")
	if err != nil {
		return c, fmt.Errorf("invalid timeout: %w", err)
	}
	if set {
		c.Timeout = timeout
	}
	return c, nil
}

// getStringSlice extracts a list of strings. A single string becomes a
// one-element list.
func getStringSlice(cfg map[string]any, key string) []string {
	switch v := cfg[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// getDuration extracts a duration given as a string or as seconds.
func getDuration(cfg map[string]any, key string) (time.Duration, bool, error) {
	switch v := cfg[key].(type) {
	case string:
		d, err := time.ParseDuration(v)
		return d, err == nil, err
	case time.Duration:
		return v, true, nil
	case int:
		return time.Duration(v) * time.Second, true, nil
	case float64:
		return time.Duration(v * float64(time.Second)), true, nil
	default:
		return 0, false, nil
	}
}
