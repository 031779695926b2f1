package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"winewarden/internal/report"
)

var (
	reportInput string
	reportJSON  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a session report",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportInput, "input", "", "session report JSON file (required)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "re-emit the report as raw JSON instead of a human summary")
	reportCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	rep, err := report.Load(reportInput)
	if err != nil {
		return err
	}
	if reportJSON {
		return report.RenderJSON(os.Stdout, rep)
	}
	report.RenderHuman(os.Stdout, rep)
	return nil
}
