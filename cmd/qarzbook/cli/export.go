package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/qarzbook/qarzbook/internal/reports"
)

func newExportCommand() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger with its reports",
		Long:  `Render the ledger, the report bundle and the discrepancy findings as JSON, or the summary as CSV.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := reports.ParseFormat(format)
			if err != nil {
				return fmt.Errorf("export: %w (use json or csv)", err)
			}
			rt, err := openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			data, err := rt.Reports.Export(parsed)
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				defer f.Close()
				w = f
			}
			_, err = w.Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", reports.FormatJSON, "export format: json or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}
