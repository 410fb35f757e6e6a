package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/tylerhall7/gradbot/internal/models"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List conversations or show a transcript",
	Long: `List stored conversations, most recently updated first, or print one
conversation's transcript.

Examples:
  gradbot history
  gradbot history show 0tko1s2lqxeok3vs84dj`,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print a conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <conversation-id>",
	Short: "Delete a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

// conversationRecordID accepts both "conversation:id" and bare "id" forms.
func conversationRecordID(arg string) surrealmodels.RecordID {
	id := strings.TrimPrefix(arg, "conversation:")
	return surrealmodels.RecordID{Table: "conversation", ID: id}
}

func recordIDLabel(id surrealmodels.RecordID) string {
	if s, err := models.RecordIDString(id); err == nil {
		return s
	}
	return fmt.Sprintf("%v", id.ID)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := context.Background()

	conversations, err := dbClient.ListConversations(ctx, cfg.UserID)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	if len(conversations) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}

	fmt.Printf("Conversations (%d):\n\n", len(conversations))
	for _, conv := range conversations {
		fmt.Printf("- %s  %s\n", recordIDLabel(conv.ID), conv.Title)
		if verbose {
			fmt.Printf("  updated %s\n", conv.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := context.Background()

	id := conversationRecordID(args[0])
	conv, err := dbClient.GetConversation(ctx, cfg.UserID, id)
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return fmt.Errorf("conversation %s not found", args[0])
	}

	messages, err := dbClient.ListMessages(ctx, cfg.UserID, conv.ID)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	fmt.Printf("%s\n\n", conv.Title)
	for _, msg := range messages {
		speaker := "Advisor"
		if msg.IsUserMessage {
			speaker = "You"
		}
		fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Local().Format("15:04"), speaker, msg.Content)
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := context.Background()

	id := conversationRecordID(args[0])
	conv, err := dbClient.GetConversation(ctx, cfg.UserID, id)
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return fmt.Errorf("conversation %s not found", args[0])
	}

	if err := dbClient.DeleteConversation(ctx, conv.ID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	fmt.Printf("Deleted conversation %q.\n", conv.Title)
	return nil
}
