package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amosWeiskopf/corpuscrawl/pkg/analyzer"
	"github.com/amosWeiskopf/corpuscrawl/pkg/reporter"
	"github.com/amosWeiskopf/corpuscrawl/pkg/store"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [CORPUS]",
		Short: "Summarise a stored corpus",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}
	cmd.Flags().String("format", "json", "Report format (json, markdown)")
	cmd.Flags().String("output", "", "Output file for report")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	records, err := store.LoadJSON(args[0])
	if err != nil {
		return err
	}

	report, err := reporter.Render(analyzer.New().Analyze(records), format)
	if err != nil {
		return fmt.Errorf("report generation failed: %w", err)
	}

	if output == "" {
		fmt.Fprintln(cmd.OutOrStdout(), report)
		return nil
	}
	if err := os.WriteFile(output, []byte(report), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s\n", output)
	return nil
}
