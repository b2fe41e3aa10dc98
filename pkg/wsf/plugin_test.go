package wsf

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlugin = "blast"

// fakeRun records the command line and returns canned output.
type fakeRun struct {
	argv   []string
	result *CommandResult
	err    error
}

func (f *fakeRun) run(_ context.Context, argv []string, _ CommandConfig) (*CommandResult, error) {
	f.argv = argv
	return f.result, f.err
}

func newTestCommandPlugin(f *fakeRun) *CommandPlugin {
	p := NewCommandPlugin(testPlugin, CommandConfig{
		Command:        []string{"/opt/wsf/blast.sh", "--tab"},
		Columns:        []string{"gene_id", "project_id", "score"},
		RequiredParams: []string{"sequence"},
		ParamPrefix:    "-",
		Timeout:        time.Minute,
	})
	p.run = f.run
	return p
}

func newTestExecutor(t *testing.T, p Plugin) *Executor {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register(testPlugin, p))
	return NewExecutor(r, "PlasmoDB")
}

func TestCommandPlugin_ReordersColumns(t *testing.T) {
	f := &fakeRun{result: &CommandResult{
		Stdout: "# PlasmoDB:2,ToxoDB:1\nPF1\tPlasmoDB\t0.9\nPF2\tPlasmoDB\t0.5\nTG1\tToxoDB\t0.1\n",
	}}
	e := newTestExecutor(t, newTestCommandPlugin(f))

	resp, err := e.Execute(context.Background(), testPlugin, &Request{
		Params:         map[string]string{"sequence": "ACGT", "evalue": "-5"},
		OrderedColumns: []string{"score", "gene_id", "project_id"},
	})
	require.NoError(t, err)
	assert.Equal(t, "PlasmoDB:2,ToxoDB:1", resp.Message)
	assert.Equal(t, [][]string{
		{"0.9", "PF1", "PlasmoDB"},
		{"0.5", "PF2", "PlasmoDB"},
		{"0.1", "TG1", "ToxoDB"},
	}, resp.Rows)
	assert.Equal(t, []string{"/opt/wsf/blast.sh", "--tab", "-evalue", "-5", "-sequence", "ACGT"}, f.argv)
}

func TestCommandPlugin_NoMessage(t *testing.T) {
	f := &fakeRun{result: &CommandResult{Stdout: "PF1\tPlasmoDB\t1\n\n"}}
	e := newTestExecutor(t, newTestCommandPlugin(f))

	rows, message, err := e.InvokePlugin(context.Background(), testPlugin,
		map[string]string{"sequence": "ACGT"}, []string{"gene_id", "project_id", "score"})
	require.NoError(t, err)
	assert.Empty(t, message)
	assert.Equal(t, [][]string{{"PF1", "PlasmoDB", "1"}}, rows)
}

func TestCommandPlugin_Failures(t *testing.T) {
	columns := []string{"gene_id", "project_id", "score"}
	params := map[string]string{"sequence": "ACGT"}

	tests := []struct {
		name  string
		run   *fakeRun
		check func(t *testing.T, err error)
	}{
		{
			name: "timeout",
			run:  &fakeRun{result: &CommandResult{ExitCode: -1}, err: ErrTimeout},
			check: func(t *testing.T, err error) {
				assert.True(t, IsModelError(err))
				assert.ErrorIs(t, err, ErrTimeout)
			},
		},
		{
			name: "nonzero exit",
			run:  &fakeRun{result: &CommandResult{ExitCode: 2}, err: &ExitError{Code: 2, Stderr: "no db"}},
			check: func(t *testing.T, err error) {
				assert.True(t, IsModelError(err))
				assert.NotErrorIs(t, err, ErrTimeout)
				assert.Contains(t, err.Error(), "no db")
			},
		},
		{
			name: "narrow row",
			run:  &fakeRun{result: &CommandResult{Stdout: "PF1\tPlasmoDB\n"}},
			check: func(t *testing.T, err error) {
				assert.True(t, IsModelError(err))
				assert.Contains(t, err.Error(), "has 2 fields")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExecutor(t, newTestCommandPlugin(tt.run))
			_, _, err := e.InvokePlugin(context.Background(), testPlugin, params, columns)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestExecute_Validation(t *testing.T) {
	f := &fakeRun{result: &CommandResult{}}
	e := newTestExecutor(t, newTestCommandPlugin(f))
	ctx := context.Background()

	_, err := e.Execute(ctx, testPlugin, &Request{OrderedColumns: []string{"gene_id", "project_id", "score"}})
	assert.True(t, IsUserError(err))
	assert.Contains(t, err.Error(), "required parameter is missing: sequence")

	_, err = e.Execute(ctx, testPlugin, &Request{
		Params:         map[string]string{"sequence": "ACGT"},
		OrderedColumns: []string{"gene_id"},
	})
	assert.True(t, IsUserError(err))
	assert.Contains(t, err.Error(), "required column is missing: project_id")

	_, err = e.Execute(ctx, testPlugin, &Request{
		Params:         map[string]string{"sequence": "-rf"},
		OrderedColumns: []string{"gene_id", "project_id", "score"},
	})
	assert.True(t, IsUserError(err))

	_, err = e.Execute(ctx, testPlugin, &Request{
		Params:         map[string]string{"sequence": "AC\nGT"},
		OrderedColumns: []string{"gene_id", "project_id", "score"},
	})
	assert.True(t, IsUserError(err))
	assert.Nil(t, f.argv, "nothing runs when validation fails")

	_, err = e.Execute(ctx, "missing", &Request{})
	assert.True(t, IsModelError(err))
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

// widthPlugin returns rows narrower than requested.
type widthPlugin struct{}

func (widthPlugin) RequiredParameterNames() []string    { return nil }
func (widthPlugin) Columns() []string                   { return []string{"a"} }
func (widthPlugin) ValidateParameters(_ *Request) error { return nil }
func (widthPlugin) Invoke(_ context.Context, _ *Request, resp *Response) error {
	resp.AddRow([]string{"only"})
	return nil
}

func TestExecute_RowWidthChecked(t *testing.T) {
	e := newTestExecutor(t, widthPlugin{})
	_, err := e.Execute(context.Background(), testPlugin, &Request{OrderedColumns: []string{"a", "b"}})
	require.Error(t, err)
	assert.True(t, IsModelError(err))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltinFactories(r)

	err := r.CreateAndRegister(Config{
		Kind: KindCommand,
		Name: testPlugin,
		Config: map[string]any{
			"command":         []any{"/opt/wsf/blast.sh"},
			"columns":         []any{"gene_id", "score"},
			"required_params": "sequence",
			"timeout":         "90s",
		},
	})
	require.NoError(t, err)

	p, err := r.Get(testPlugin)
	require.NoError(t, err)
	cp, ok := p.(*CommandPlugin)
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, cp.config.Timeout)
	assert.Equal(t, []string{"sequence"}, cp.RequiredParameterNames())
	assert.Equal(t, []string{"gene_id", "score"}, cp.Columns())

	assert.Error(t, r.Register(testPlugin, cp), "names are unique")
	assert.Error(t, r.Register("", cp))
	assert.Error(t, r.CreateAndRegister(Config{Kind: "soap", Name: "x"}))
	assert.Error(t, r.CreateAndRegister(Config{Kind: KindCommand, Name: "bad", Config: map[string]any{}}))
	assert.Equal(t, []string{testPlugin}, r.Names())

	_, err = r.Get("nope")
	assert.True(t, errors.Is(err, ErrPluginNotFound))
}

func TestParseCommandConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     map[string]any
		timeout time.Duration
		wantErr bool
	}{
		{"defaults", map[string]any{"command": "run.sh", "columns": []any{"a"}}, defaultCommandTimeout, false},
		{"seconds", map[string]any{"command": "run.sh", "columns": []any{"a"}, "timeout": 30}, 30 * time.Second, false},
		{"no wait", map[string]any{"command": "run.sh", "columns": []any{"a"}, "timeout": "0s"}, 0, false},
		{"bad timeout", map[string]any{"command": "run.sh", "columns": []any{"a"}, "timeout": "soon"}, 0, true},
		{"no command", map[string]any{"columns": []any{"a"}}, 0, true},
		{"no columns", map[string]any{"command": "run.sh"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCommandConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.timeout, c.Timeout)
		})
	}
}

func TestErrorKinds(t *testing.T) {
	u := UserError(testPlugin, "bad")
	assert.Equal(t, "plugin blast: user error: bad", u.Error())
	wrapped := ModelError(testPlugin, "broken", ErrTimeout)
	assert.Equal(t, "plugin blast: model error: broken: command timed out", wrapped.Error())
	assert.False(t, IsUserError(wrapped))
	assert.False(t, IsModelError(errors.New("plain")))
}
