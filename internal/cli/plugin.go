package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EuPathDB/WSF/pkg/wsf"
)

// PluginOptions holds flags for the plugin command.
type PluginOptions struct {
	*RootOptions
	Columns []string
}

// NewPluginCommand creates the plugin command.
func NewPluginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PluginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plugin <name> [name=value ...]",
		Short: "Invoke a configured plugin and print its rows",
		Long: `Invoke a plugin the way a process query does and print its rows
tab-delimited in the requested column order. The plugin message is
printed to stderr.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			p, err := openPlatform(opts.RootOptions)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			columns := opts.Columns
			if len(columns) == 0 {
				plugin, err := p.Plugins().Get(args[0])
				if err != nil {
					return err
				}
				columns = plugin.Columns()
			}

			resp, err := p.Executor().Execute(cmd.Context(), args[0], &wsf.Request{
				ProjectID:      p.Config().Plugins.ProjectID,
				Params:         params,
				OrderedColumns: columns,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return writeJSON(out, map[string]any{
					"columns": columns,
					"rows":    resp.Rows,
					"message": resp.Message,
					"signal":  resp.Signal,
				})
			}
			for _, row := range resp.Rows {
				if _, err := fmt.Fprintln(out, strings.Join(row, "\t")); err != nil {
					return err
				}
			}
			if resp.Message != "" {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), resp.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "columns to return, in order (default: all)")
	return cmd
}
