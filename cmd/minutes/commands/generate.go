package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/strrl/minutes-workspace/internal/workspace"
)

// NewGenerateCommand creates the generate command
func NewGenerateCommand(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "generate <file>",
		Short: "Generate minutes from a document without the TUI",
		Long: `Upload a meeting document to the minutes service and print the minutes.

Use --output json to keep the result for a later critique round.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			session := workspace.New(opts.client, opts.logger)
			if err := session.SelectFile(args[0]); err != nil {
				return err
			}
			if err := session.Generate(cmd.Context()); err != nil {
				return err
			}

			st := session.State()
			if len(st.Critiques) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Crítica sugerida: %s\n", st.Draft)
			}
			return writeMinutes(cmd.OutOrStdout(), output, st)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text, json or yaml")
	return cmd
}
