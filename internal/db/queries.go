package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/tylerhall7/gradbot/internal/models"
)

// first unwraps the single-row result of a statement, or errors when the
// statement produced nothing.
func first[T any](results *[]surrealdb.QueryResult[[]T], op string) (*T, error) {
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("%s: no result returned", op)
	}
	return &(*results)[0].Result[0], nil
}

// rows unwraps a multi-row result, mapping "no rows" to an empty slice.
func rows[T any](results *[]surrealdb.QueryResult[[]T]) []T {
	if results == nil || len(*results) == 0 {
		return []T{}
	}
	return (*results)[0].Result
}

type countRow struct {
	C int `json:"c"`
}

// count unwraps a `SELECT count() AS c ... GROUP ALL` result. An empty result
// set means zero matching rows.
func count(results *[]surrealdb.QueryResult[[]countRow]) int {
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0
	}
	return (*results)[0].Result[0].C
}

// ----------------------------------------------------------------------------
// Conversations
// ----------------------------------------------------------------------------

// CreateConversation inserts a new conversation for the user.
func (c *Client) CreateConversation(ctx context.Context, userID, title string) (*models.Conversation, error) {
	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, `
		CREATE conversation SET user_id = $user_id, title = $title RETURN AFTER
	`, map[string]any{"user_id": userID, "title": title})
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return first(results, "create conversation")
}

// ListConversations returns the user's conversations, most recently updated
// first.
func (c *Client) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, `
		SELECT * FROM conversation WHERE user_id = $user_id ORDER BY updated_at DESC
	`, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return rows(results), nil
}

// GetConversation fetches one conversation, scoped to the owning user.
// Returns nil when not found.
func (c *Client) GetConversation(ctx context.Context, userID string, id surrealmodels.RecordID) (*models.Conversation, error) {
	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, `
		SELECT * FROM conversation WHERE id = $id AND user_id = $user_id
	`, map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	found := rows(results)
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// TouchConversation bumps a conversation's updated_at to the server's
// time::now(), so it never moves backwards.
func (c *Client) TouchConversation(ctx context.Context, id surrealmodels.RecordID) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE $id SET updated_at = time::now()
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// RenameConversation updates a conversation title and bumps updated_at.
func (c *Client) RenameConversation(ctx context.Context, id surrealmodels.RecordID, title string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE $id SET title = $title, updated_at = time::now()
	`, map[string]any{"id": id, "title": title})
	if err != nil {
		return fmt.Errorf("rename conversation: %w", err)
	}
	return nil
}

// DeleteConversation removes a conversation and its messages. Feedback rows
// keep their snapshot copies and survive with a dangling link.
func (c *Client) DeleteConversation(ctx context.Context, id surrealmodels.RecordID) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE message WHERE conversation = $id;
		DELETE $id;
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Messages
// ----------------------------------------------------------------------------

// AppendMessage inserts a message and touches the owning conversation's
// updated_at. The touch uses time::now(), so updated_at never moves backwards.
func (c *Client) AppendMessage(ctx context.Context, msg models.NewMessage) (*models.Message, error) {
	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		CREATE message SET
			conversation = $conversation,
			user_id = $user_id,
			content = $content,
			is_user_message = $is_user_message,
			model_used = $model_used,
			retrieved_docs = $retrieved_docs
		RETURN AFTER
	`, map[string]any{
		"conversation":    msg.Conversation,
		"user_id":         msg.UserID,
		"content":         msg.Content,
		"is_user_message": msg.IsUserMessage,
		"model_used":      msg.ModelUsed,
		"retrieved_docs":  msg.RetrievedDocs,
	})
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	created, err := first(results, "append message")
	if err != nil {
		return nil, err
	}

	if err := c.TouchConversation(ctx, msg.Conversation); err != nil {
		return nil, err
	}

	return created, nil
}

// ListMessages returns a conversation's messages in creation order.
func (c *Client) ListMessages(ctx context.Context, userID string, conversationID surrealmodels.RecordID) ([]models.Message, error) {
	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		SELECT * FROM message
		WHERE conversation = $conversation AND user_id = $user_id
		ORDER BY created_at ASC
	`, map[string]any{"conversation": conversationID, "user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return rows(results), nil
}

// CountUserMessages counts the user's own (non-bot) messages, optionally
// restricted to [since, until).
func (c *Client) CountUserMessages(ctx context.Context, userID string, since, until *time.Time) (int, error) {
	sql := `SELECT count() AS c FROM message WHERE user_id = $user_id AND is_user_message = true`
	vars := map[string]any{"user_id": userID}
	if since != nil {
		sql += ` AND created_at >= $since`
		vars["since"] = *since
	}
	if until != nil {
		sql += ` AND created_at < $until`
		vars["until"] = *until
	}
	sql += ` GROUP ALL`

	results, err := surrealdb.Query[[]countRow](ctx, c.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("count user messages: %w", err)
	}
	return count(results), nil
}

// ----------------------------------------------------------------------------
// Feedback
// ----------------------------------------------------------------------------

// InsertFeedback stores a single feedback record.
func (c *Client) InsertFeedback(ctx context.Context, fb models.NewFeedback) (*models.Feedback, error) {
	results, err := surrealdb.Query[[]models.Feedback](ctx, c.db, `
		CREATE feedback SET
			user_id = $user_id,
			message = $message,
			conversation = $conversation,
			feedback_type = $feedback_type,
			user_query = $user_query,
			bot_response = $bot_response,
			thumbs_up_reason = $thumbs_up_reason,
			thumbs_down_reason = $thumbs_down_reason,
			corrected_question = $corrected_question,
			correct_answer = $correct_answer,
			model_used = $model_used,
			retrieved_docs = $retrieved_docs
		RETURN AFTER
	`, map[string]any{
		"user_id":            fb.UserID,
		"message":            fb.Message,
		"conversation":       fb.Conversation,
		"feedback_type":      fb.FeedbackType,
		"user_query":         fb.UserQuery,
		"bot_response":       fb.BotResponse,
		"thumbs_up_reason":   fb.ThumbsUpReason,
		"thumbs_down_reason": fb.ThumbsDownReason,
		"corrected_question": fb.CorrectedQuestion,
		"correct_answer":     fb.CorrectAnswer,
		"model_used":         fb.ModelUsed,
		"retrieved_docs":     fb.RetrievedDocs,
	})
	if err != nil {
		return nil, fmt.Errorf("insert feedback: %w", err)
	}
	return first(results, "insert feedback")
}

// ----------------------------------------------------------------------------
// Notes
// ----------------------------------------------------------------------------

// CreateNote inserts a note for the user.
func (c *Client) CreateNote(ctx context.Context, userID, title string, content *string) (*models.Note, error) {
	results, err := surrealdb.Query[[]models.Note](ctx, c.db, `
		CREATE note SET user_id = $user_id, title = $title, content = $content RETURN AFTER
	`, map[string]any{"user_id": userID, "title": title, "content": content})
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return first(results, "create note")
}

// ListNotes returns the user's notes, newest first.
func (c *Client) ListNotes(ctx context.Context, userID string) ([]models.Note, error) {
	results, err := surrealdb.Query[[]models.Note](ctx, c.db, `
		SELECT * FROM note WHERE user_id = $user_id ORDER BY created_at DESC
	`, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return rows(results), nil
}

// UpdateNote rewrites a note's title/content and bumps updated_at.
func (c *Client) UpdateNote(ctx context.Context, id surrealmodels.RecordID, title string, content *string) (*models.Note, error) {
	results, err := surrealdb.Query[[]models.Note](ctx, c.db, `
		UPDATE $id SET title = $title, content = $content, updated_at = time::now() RETURN AFTER
	`, map[string]any{"id": id, "title": title, "content": content})
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return first(results, "update note")
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, id surrealmodels.RecordID) error {
	if _, err := surrealdb.Query[any](ctx, c.db, `DELETE $id`, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// CountNotes counts the user's notes.
func (c *Client) CountNotes(ctx context.Context, userID string) (int, error) {
	results, err := surrealdb.Query[[]countRow](ctx, c.db, `
		SELECT count() AS c FROM note WHERE user_id = $user_id GROUP ALL
	`, map[string]any{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count(results), nil
}

// ----------------------------------------------------------------------------
// Reported questions
// ----------------------------------------------------------------------------

// InsertReport stores a reported question with pending status.
func (c *Client) InsertReport(ctx context.Context, userID, question string, comment *string) (*models.ReportedQuestion, error) {
	results, err := surrealdb.Query[[]models.ReportedQuestion](ctx, c.db, `
		CREATE reported_question SET user_id = $user_id, question = $question, comment = $comment
		RETURN AFTER
	`, map[string]any{"user_id": userID, "question": question, "comment": comment})
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	return first(results, "insert report")
}

// ListReports returns the user's reported questions, newest first.
func (c *Client) ListReports(ctx context.Context, userID string) ([]models.ReportedQuestion, error) {
	results, err := surrealdb.Query[[]models.ReportedQuestion](ctx, c.db, `
		SELECT * FROM reported_question WHERE user_id = $user_id ORDER BY created_at DESC
	`, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return rows(results), nil
}

// UpdateReportStatus advances a report's review status. Exposed for the
// reviewer tooling; the chat client never calls it.
func (c *Client) UpdateReportStatus(ctx context.Context, id surrealmodels.RecordID, status string) error {
	switch status {
	case models.ReportPending, models.ReportReviewed, models.ReportResolved:
	default:
		return fmt.Errorf("update report status: invalid status %q", status)
	}

	if _, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE $id SET status = $status
	`, map[string]any{"id": id, "status": status}); err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	return nil
}

// CountReports counts the user's reported questions.
func (c *Client) CountReports(ctx context.Context, userID string) (int, error) {
	results, err := surrealdb.Query[[]countRow](ctx, c.db, `
		SELECT count() AS c FROM reported_question WHERE user_id = $user_id GROUP ALL
	`, map[string]any{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return count(results), nil
}
