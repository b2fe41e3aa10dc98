package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EuPathDB/WSF/pkg/answer"
	"github.com/EuPathDB/WSF/pkg/platform"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	AnswerOptions
	Properties []string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{AnswerOptions: AnswerOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "report <reporter> <question> [name=value ...]",
		Short: "Format an answer with one of its record class reporters",
		Long: `Format an answer with a reporter of the question's record class.

Without --start and --end the whole answer is reported. Reporter
properties are given with --property key=value.`,
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			properties, err := parseParams(opts.Properties)
			if err != nil {
				return fmt.Errorf("parsing reporter properties: %w", err)
			}
			ctx := cmd.Context()
			reporterName := args[0]

			// The page flags select the report range, not the answer page.
			start, end := opts.Start, opts.End
			opts.Start, opts.End = 0, 0

			return withAnswer(ctx, &opts.AnswerOptions, args[1:], func(_ *platform.Platform, av *answer.AnswerValue) error {
				var reporter answer.Reporter
				if start != 0 || end != 0 {
					if start == 0 {
						start = 1
					}
					if end == 0 {
						end = start
					}
					reporter, err = av.CreateReportRange(ctx, reporterName, properties, start, end)
				} else {
					reporter, err = av.CreateReport(ctx, reporterName, properties)
				}
				if err != nil {
					return err
				}
				return reporter.Write(ctx, cmd.OutOrStdout())
			})
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringArrayVar(&opts.Properties, "property", nil, "reporter property key=value (repeatable)")
	return cmd
}
