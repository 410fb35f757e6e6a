package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tylerhall7/gradbot/internal/chat"
)

var askShowSources bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the answer",
	Long: `Ask a one-shot question about graduate procedures.

The question and the answer are stored as a new conversation, so the
exchange also appears in "gradbot history".

Examples:
  gradbot ask "What is the application deadline?"
  gradbot ask "How many credit hours does the MSc require?" --sources`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "show retrieved source documents")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store := newStore()
	entry, err := store.SubmitQuestion(ctx, args[0])
	switch {
	case errors.Is(err, chat.ErrEmptyQuestion):
		return fmt.Errorf("question is empty")
	case errors.Is(err, chat.ErrNoCredential):
		return fmt.Errorf("no API key configured: run `gradbot config set-key`")
	case errors.Is(err, chat.ErrNotAuthenticated):
		return requireUser()
	case err != nil:
		return err
	}

	fmt.Println(entry.Text)

	if entry.ModelUsed != "" && verbose {
		fmt.Printf("\n(model: %s)\n", entry.ModelUsed)
	}

	if askShowSources && len(entry.RetrievedDocs) > 0 {
		fmt.Printf("\nSources (%d):\n", len(entry.RetrievedDocs))
		for i, doc := range entry.RetrievedDocs {
			fmt.Printf("  %d. %s\n", i+1, docLabel(doc))
		}
	}

	return nil
}

// docLabel picks a displayable name out of an opaque document reference.
func docLabel(doc map[string]any) string {
	for _, key := range []string{"title", "source", "name", "id"} {
		if v, ok := doc[key].(string); ok && v != "" {
			return v
		}
	}
	return fmt.Sprintf("%v", doc)
}
