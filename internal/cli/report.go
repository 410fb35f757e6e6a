package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tylerhall7/gradbot/internal/models"
)

var reportComment string

var reportCmd = &cobra.Command{
	Use:   "report <question>",
	Short: "Report a question the assistant handled badly",
	Long: `Flag a question for review by the chatbot maintainers. Reports start
in "pending" status; a reviewer moves them to "reviewed" or "resolved".

Examples:
  gradbot report "What is the thesis page limit?" --comment "Answer cited the 2019 handbook"
  gradbot report list`,
	Args: cobra.ExactArgs(1),
	RunE: runReportAdd,
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your reported questions",
	RunE:  runReportList,
}

func init() {
	reportCmd.Flags().StringVar(&reportComment, "comment", "", "why this question needs review")
	reportCmd.AddCommand(reportListCmd)
}

func runReportAdd(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := context.Background()

	report, err := dbClient.InsertReport(ctx, cfg.UserID, args[0], models.StrPtr(reportComment))
	if err != nil {
		return fmt.Errorf("submit report: %w", err)
	}
	fmt.Printf("Report submitted (%s).\n", recordIDLabel(report.ID))
	return nil
}

func runReportList(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := context.Background()

	reports, err := dbClient.ListReports(ctx, cfg.UserID)
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}

	if len(reports) == 0 {
		fmt.Println("No reported questions.")
		return nil
	}

	fmt.Printf("Reported questions (%d):\n\n", len(reports))
	for _, report := range reports {
		fmt.Printf("- [%s] %s\n", report.Status, report.Question)
		if verbose && report.Comment != nil && *report.Comment != "" {
			fmt.Printf("  %s\n", *report.Comment)
		}
	}
	return nil
}
