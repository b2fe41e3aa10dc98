package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EuPathDB/WSF/pkg/answer"
	"github.com/EuPathDB/WSF/pkg/api"
	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/platform"
)

// AnswerOptions holds the flags that select a page of an answer.
type AnswerOptions struct {
	*RootOptions
	Start      int
	End        int
	Sort       []string
	Filter     string
	Attributes []string
}

func (o *AnswerOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.Start, "start", 0, "first record of the page (1-based)")
	cmd.Flags().IntVar(&o.End, "end", 0, "last record of the page (inclusive)")
	cmd.Flags().StringSliceVar(&o.Sort, "sort", nil, "sort attribute, optionally suffixed :desc (repeatable)")
	cmd.Flags().StringVar(&o.Filter, "filter", "", "record class filter to apply")
	cmd.Flags().StringSliceVar(&o.Attributes, "attributes", nil, "summary attributes to show")
}

// request builds the answer request from the flags and name=value args.
func (o *AnswerOptions) request(args []string) (api.AnswerRequest, error) {
	params, err := parseParams(args)
	if err != nil {
		return api.AnswerRequest{}, err
	}
	req := api.AnswerRequest{
		Params:     params,
		Filter:     o.Filter,
		Attributes: o.Attributes,
		Start:      o.Start,
		End:        o.End,
	}
	for _, s := range o.Sort {
		spec := model.SortSpec{Attribute: s, Ascending: true}
		if name, dir, ok := strings.Cut(s, ":"); ok {
			spec.Attribute = name
			switch strings.ToLower(dir) {
			case "asc":
			case "desc":
				spec.Ascending = false
			default:
				return api.AnswerRequest{}, fmt.Errorf("invalid sort direction %q in %q", dir, s)
			}
		}
		req.Sorting = append(req.Sorting, spec)
	}
	return req, nil
}

// parseParams parses name=value arguments.
func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: want name=value", arg)
		}
		params[name] = value
	}
	return params, nil
}

// withAnswer opens the platform, builds the answer value for the question
// in args[0] and calls fn with it.
func withAnswer(ctx context.Context, opts *AnswerOptions, args []string,
	fn func(p *platform.Platform, av *answer.AnswerValue) error,
) error {
	req, err := opts.request(args[1:])
	if err != nil {
		return err
	}
	p, err := openPlatform(opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	runner := &api.Runner{Model: p.Model(), Answers: p.Answers()}
	av, err := runner.MakeAnswerValue(args[0], req)
	if err != nil {
		return err
	}
	return fn(p, av)
}

// printer renders an answer page as text.
type printer func(av *answer.AnswerValue, ctx context.Context) (string, error)

func newPrintCommand(rootOpts *RootOptions, use, short string, print printer) *cobra.Command {
	opts := &AnswerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:          use + " <question> [name=value ...]",
		Short:        short,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withAnswer(ctx, opts, args, func(_ *platform.Platform, av *answer.AnswerValue) error {
				return writePage(ctx, cmd.OutOrStdout(), opts.Format, av, print)
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func writePage(ctx context.Context, w io.Writer, format string, av *answer.AnswerValue, print printer) error {
	if format == "json" {
		page, err := api.BuildPage(ctx, av)
		if err != nil {
			return err
		}
		return writeJSON(w, page)
	}
	text, err := print(av, ctx)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	return newPrintCommand(rootOpts, "summary",
		"Print one page of an answer with its summary attributes",
		(*answer.AnswerValue).PrintAsSummary)
}

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	return newPrintCommand(rootOpts, "records",
		"Print every attribute of each record on one page",
		(*answer.AnswerValue).PrintAsRecords)
}

// NewTableCommand creates the table command.
func NewTableCommand(rootOpts *RootOptions) *cobra.Command {
	return newPrintCommand(rootOpts, "table",
		"Print one page as a tab-delimited table of summary attributes",
		(*answer.AnswerValue).PrintAsTable)
}

// NewChecksumCommand creates the checksum command.
func NewChecksumCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnswerOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:          "checksum <question> [name=value ...]",
		Short:        "Print the checksum of the question's id query instance",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAnswer(cmd.Context(), opts, args, func(_ *platform.Platform, av *answer.AnswerValue) error {
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), map[string]string{
						"question": av.Question().FullName,
						"checksum": av.Checksum(),
					})
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), av.Checksum())
				return err
			})
		},
	}
}
