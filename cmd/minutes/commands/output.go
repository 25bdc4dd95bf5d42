package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/strrl/minutes-workspace/internal/view"
	"github.com/strrl/minutes-workspace/internal/workspace"
	"github.com/strrl/minutes-workspace/pkg/models"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"

	textWidth = 100
)

// minutesOutput is what json and yaml output print: the minutes as the
// service returned them plus the critique log.
type minutesOutput struct {
	models.MinutesDocument `yaml:",inline"`
	Critiques              []string `json:"critiques,omitempty" yaml:"critiques,omitempty"`
}

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

func writeMinutes(w io.Writer, format string, st workspace.State) error {
	if st.Minutes == nil {
		return fmt.Errorf("no minutes to print")
	}

	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(minutesOutput{MinutesDocument: *st.Minutes, Critiques: st.Critiques})
	case outputYAML:
		out, err := yaml.Marshal(minutesOutput{MinutesDocument: *st.Minutes, Critiques: st.Critiques})
		if err != nil {
			return fmt.Errorf("failed to encode minutes: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		_, err := fmt.Fprintln(w, view.Minutes(*st.Minutes, st.Critiques, textWidth))
		return err
	}
}
