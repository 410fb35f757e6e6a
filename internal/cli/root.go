// Package cli provides the command-line interface for gradbot.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tylerhall7/gradbot/internal/chat"
	"github.com/tylerhall7/gradbot/internal/config"
	"github.com/tylerhall7/gradbot/internal/db"
	"github.com/tylerhall7/gradbot/internal/metrics"
	"github.com/tylerhall7/gradbot/internal/ragapi"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and shared clients
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	dbClient   *db.Client
	ragClient  *ragapi.Client
	collector  *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gradbot",
	Short: "Chat assistant for UALR graduate procedures",
	Long: `Gradbot answers questions about UALR graduate procedures from the
terminal. Questions go to a retrieval-augmented backend; conversations,
feedback, notes and reported questions are stored per user in SurrealDB.

Run "gradbot config set-key" once to store your query API key, then
"gradbot chat" for an interactive session or "gradbot ask" for a one-shot
question.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsBackends(cmd) {
			return nil
		}

		cfg = config.Load()

		// The chat TUI owns the terminal, so its diagnostics go to file only.
		if cmd.Name() == "chat" {
			logger, logCleanup = config.SetupFileLogger(cfg.LogFile, cfg.LogLevel)
		} else {
			logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		}

		collector = metrics.NewCollector()
		ragClient = ragapi.New(cfg.BackendURL, cfg.BackendTimeout, ragapi.WithMetrics(collector))

		ctx := context.Background()
		var err error
		dbClient, err = db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// needsBackends reports whether a command requires the database connection.
// Credential management and introspection commands run without one.
func needsBackends(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "version", "help", "completion", "config":
			return false
		}
	}
	return true
}

// newStore builds a conversation store wired to the shared clients, with the
// credential injected from the resolved configuration.
func newStore() *chat.Store {
	return chat.NewStore(dbClient, ragClient, chat.Options{
		UserID: cfg.UserID,
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
		K:      cfg.TopK,
		Logger: logger,
	})
}

// requireUser fails fast with a hint when no user identity is configured.
func requireUser() error {
	if !cfg.Authenticated() {
		return fmt.Errorf("no user configured: run `gradbot config set-user <id>` or set GRADBOT_USER_ID")
	}
	return nil
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
}
