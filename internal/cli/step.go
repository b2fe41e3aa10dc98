package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/EuPathDB/WSF/pkg/answer"
	"github.com/EuPathDB/WSF/pkg/api"
)

// NewStepCommand creates the step command. The step is read as JSON from
// the file argument, or from stdin when it is "-".
func NewStepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnswerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "step <file|->",
		Short: "Print one page of a boolean or transform step",
		Long: `Print one page of the answer of a step read as JSON.

A boolean step combines two steps:
  {"operator": "NOT", "left": {"question": "GeneQuestions.All"},
   "right": {"question": "GeneQuestions.ByOrganism", "params": {"organism": "tgon"}}}

A transform step feeds other steps into the answer params of its question:
  {"question": "GeneQuestions.SameChromosome", "inputs": {"input": {"question": "GeneQuestions.All"}}}`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			step, err := readStep(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			req, err := opts.request(nil)
			if err != nil {
				return err
			}
			p, err := openPlatform(opts.RootOptions)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			runner := &api.Runner{Model: p.Model(), Answers: p.Answers()}
			av, err := runner.MakeStepAnswerValue(api.StepRequest{AnswerRequest: req, Step: step})
			if err != nil {
				return err
			}
			return writePage(ctx, cmd.OutOrStdout(), opts.Format, av, (*answer.AnswerValue).PrintAsSummary)
		},
	}
	opts.bind(cmd)
	return cmd
}

func readStep(stdin io.Reader, path string) (*answer.Step, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // path is given by the operator
	}
	if err != nil {
		return nil, fmt.Errorf("reading step: %w", err)
	}
	var step answer.Step
	if err := json.Unmarshal(data, &step); err != nil {
		return nil, fmt.Errorf("parsing step: %w", err)
	}
	return &step, nil
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "record <record class> column=value ...",
		Short:        "Print the attributes of one record looked up by primary key",
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			p, err := openPlatform(rootOpts)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			runner := &api.Runner{Model: p.Model(), Answers: p.Answers()}
			rec, err := runner.Record(cmd.Context(), args[0], key)
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			names := make([]string, 0, len(rec.Attributes))
			for name := range rec.Attributes {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, rec.Attributes[name]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
