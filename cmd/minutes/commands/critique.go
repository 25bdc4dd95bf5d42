package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/strrl/minutes-workspace/internal/workspace"
	"github.com/strrl/minutes-workspace/pkg/models"
)

// NewCritiqueCommand creates the critique command
func NewCritiqueCommand(opts *globalOptions) *cobra.Command {
	var (
		minutesPath string
		critique    string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "critique <file> --minutes <minutes.json> --critique <text>",
		Short: "Send one critique for previously generated minutes",
		Long: `Send the original document, a critique and the current minutes to the
minutes service and print the revised minutes.

The minutes file is the JSON printed by "minutes generate --output json".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			current, critiques, err := readMinutes(minutesPath)
			if err != nil {
				return err
			}

			session := workspace.New(opts.client, opts.logger)
			if err := session.SelectFile(args[0]); err != nil {
				return err
			}
			if err := session.Resume(current, critiques); err != nil {
				return err
			}
			session.SetDraft(critique)

			notice, err := session.SubmitCritique(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), notice)
			return writeMinutes(cmd.OutOrStdout(), output, session.State())
		},
	}

	cmd.Flags().StringVarP(&minutesPath, "minutes", "m", "", "JSON file with the current minutes")
	cmd.Flags().StringVarP(&critique, "critique", "c", "", "critique text")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text, json or yaml")
	_ = cmd.MarkFlagRequired("minutes")
	_ = cmd.MarkFlagRequired("critique")

	return cmd
}

// readMinutes loads minutes and, when present, the critique log written by
// the json output.
func readMinutes(path string) (models.MinutesDocument, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.MinutesDocument{}, nil, fmt.Errorf("failed to read minutes: %w", err)
	}

	var doc models.MinutesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.MinutesDocument{}, nil, fmt.Errorf("failed to parse minutes %s: %w", path, err)
	}
	var log struct {
		Critiques []string `json:"critiques"`
	}
	if err := json.Unmarshal(data, &log); err != nil {
		return models.MinutesDocument{}, nil, fmt.Errorf("failed to parse minutes %s: %w", path, err)
	}
	return doc, log.Critiques, nil
}
