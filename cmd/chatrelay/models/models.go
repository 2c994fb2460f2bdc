// Package modelscmder provides the models command, which shows how model
// identifiers are resolved to backend families.
package modelscmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/cliui"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider"
)

const modelsLongDesc string = `Show the model family resolution table.

Model identifiers are matched case-insensitively against each pattern in
order; the first match decides the family. Use "models resolve" to check a
specific identifier.

Examples:
  chatrelay models
  chatrelay models resolve anthropic.claude-3-haiku-20240307-v1:0`

const modelsShortDesc string = "Show the model family resolution table"

func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: modelsShortDesc,
		Long:  modelsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printTable(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.AddCommand(newResolveCmd())

	return cmd
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <model>...",
		Short: "Resolve model identifiers to their family",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolve(cmd.OutOrStdout(), args)
		},
	}
}

func printTable(w io.Writer) {
	for i, rule := range provider.FamilyTable() {
		fmt.Fprintf(w, "%2d  %-16s %s\n",
			i+1,
			cliui.KeyStyle.Render(rule.Pattern),
			cliui.ValueStyle.Render(string(rule.Family)),
		)
	}
}

// resolve prints one line per model and fails if any is unsupported.
func resolve(w io.Writer, models []string) error {
	var unsupported int
	for _, model := range models {
		family, prov, err := provider.ForModel(model)
		if err != nil {
			unsupported++
			fmt.Fprintf(w, "%s %s %s\n", cliui.FailMark, model, cliui.DimStyle.Render(err.Error()))
			continue
		}
		fmt.Fprintf(w, "%s %s %s %s\n",
			cliui.SuccessMark,
			model,
			cliui.ValueStyle.Render(string(family)),
			cliui.DimStyle.Render(fmt.Sprintf("(max_tokens ≤ %d)", prov.MaxTokensLimit())),
		)
	}

	if unsupported > 0 {
		return fmt.Errorf("%d of %d models unsupported", unsupported, len(models))
	}
	return nil
}
