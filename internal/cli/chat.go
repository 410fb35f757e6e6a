package cli

import (
	"context"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/tylerhall7/gradbot/internal/db"
	"github.com/tylerhall7/gradbot/internal/feedback"
	"github.com/tylerhall7/gradbot/internal/stats"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session about graduate procedures.

Inside the session:
  enter        send your question
  /good <n>    give positive feedback on transcript entry n
  /bad <n>     give negative feedback on transcript entry n
  /clear       start a new conversation (history is kept)
  /quit        leave the session`,
	RunE: runChat,
}

// liveFeed adapts the database client's live queries to the aggregator's
// change-feed interface.
type liveFeed struct {
	db *db.Client
}

func (f liveFeed) Watch(ctx context.Context, table string) (stats.Subscription, error) {
	return f.db.Watch(ctx, table)
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key configured: run `gradbot config set-key`")
	}

	store := newStore()
	workflow := feedback.NewWorkflow(dbClient, ragClient, cfg.UserID, logger)

	// The update callback runs on aggregator goroutines; Send is safe there.
	var program *tea.Program
	agg := stats.New(dbClient, liveFeed{dbClient}, cfg.UserID, logger,
		stats.WithOnUpdate(func(c stats.Counters) {
			if program != nil {
				program.Send(statsMsg(c))
			}
		}))

	program = tea.NewProgram(newChatModel(store, workflow, agg))

	if err := agg.Subscribe(context.Background()); err != nil {
		logger.Warn("live stats unavailable", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = agg.Close(ctx)
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat ui: %w", err)
	}

	// Session timing summary, for the log only.
	for op, s := range collector.Snapshot().Operations {
		logger.Info("session timing", "op", op, "count", s.Count, "avg_ms", s.AvgTimeMs)
	}
	return nil
}
