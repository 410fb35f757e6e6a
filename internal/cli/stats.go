package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tylerhall7/gradbot/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage counters",
	Long: `Show the four usage counters scoped to your user: questions asked
today, questions asked in total, reported questions and notes.`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := context.Background()

	agg := stats.New(dbClient, nil, cfg.UserID, logger)
	if err := agg.Refresh(ctx); err != nil {
		return fmt.Errorf("load stats: %w", err)
	}

	counters := agg.Snapshot()
	fmt.Println("Quick Stats")
	fmt.Printf("  Questions Today:   %d\n", counters.QuestionsToday)
	fmt.Printf("  Questions Total:   %d\n", counters.QuestionsTotal)
	fmt.Printf("  Reports Submitted: %d\n", counters.Reports)
	fmt.Printf("  Notes Created:     %d\n", counters.Notes)
	return nil
}
