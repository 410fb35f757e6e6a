package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/tylerhall7/gradbot/internal/models"
)

var (
	noteContent string
	noteTitle   string
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage personal notes",
	Long: `Create, list, edit and delete notes. Notes are independent of
conversations.

Examples:
  gradbot notes add "Thesis defense checklist" --content "Book room, email committee"
  gradbot notes
  gradbot notes edit h9q0... --content "Updated checklist"
  gradbot notes delete h9q0...`,
	RunE: runNotesList,
}

var notesAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotesAdd,
}

var notesEditCmd = &cobra.Command{
	Use:   "edit <note-id>",
	Short: "Update a note's title or content",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotesEdit,
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <note-id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotesDelete,
}

func init() {
	notesAddCmd.Flags().StringVar(&noteContent, "content", "", "note content")
	notesEditCmd.Flags().StringVar(&noteTitle, "title", "", "new title")
	notesEditCmd.Flags().StringVar(&noteContent, "content", "", "new content")

	notesCmd.AddCommand(notesAddCmd)
	notesCmd.AddCommand(notesEditCmd)
	notesCmd.AddCommand(notesDeleteCmd)
}

func noteRecordID(arg string) surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: "note", ID: strings.TrimPrefix(arg, "note:")}
}

func runNotesList(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := context.Background()

	notes, err := dbClient.ListNotes(ctx, cfg.UserID)
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}

	if len(notes) == 0 {
		fmt.Println("No notes yet.")
		return nil
	}

	fmt.Printf("Notes (%d):\n\n", len(notes))
	for _, note := range notes {
		fmt.Printf("- %s  %s\n", recordIDLabel(note.ID), note.Title)
		if verbose && note.Content != nil && *note.Content != "" {
			fmt.Printf("  %s\n", *note.Content)
		}
	}
	return nil
}

func runNotesAdd(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := context.Background()

	note, err := dbClient.CreateNote(ctx, cfg.UserID, args[0], models.StrPtr(noteContent))
	if err != nil {
		return fmt.Errorf("save note: %w", err)
	}
	fmt.Printf("Note saved (%s).\n", recordIDLabel(note.ID))
	return nil
}

func runNotesEdit(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	if noteTitle == "" && noteContent == "" {
		return fmt.Errorf("nothing to update: pass --title and/or --content")
	}
	ctx := context.Background()

	id := noteRecordID(args[0])

	// Fetch current values so a partial edit doesn't blank the other field.
	existing, err := dbClient.ListNotes(ctx, cfg.UserID)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	var current *models.Note
	for i := range existing {
		if existing[i].ID == id {
			current = &existing[i]
			break
		}
	}
	if current == nil {
		return fmt.Errorf("note %s not found", args[0])
	}

	title := current.Title
	if noteTitle != "" {
		title = noteTitle
	}
	content := current.Content
	if noteContent != "" {
		content = models.StrPtr(noteContent)
	}

	if _, err := dbClient.UpdateNote(ctx, id, title, content); err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	fmt.Println("Note updated.")
	return nil
}

func runNotesDelete(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx := context.Background()

	if err := dbClient.DeleteNote(ctx, noteRecordID(args[0])); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	fmt.Println("Note deleted.")
	return nil
}
