// Package models defines the record types persisted for the gradbot chat
// assistant: conversations, messages, feedback, notes and reported questions.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Feedback polarity values as stored in the feedback table and forwarded to
// the remote feedback endpoint.
const (
	FeedbackThumbsUp   = "thumbs_up"
	FeedbackThumbsDown = "thumbs_down"
)

// Report lifecycle states. Only an external reviewer moves a report past
// pending.
const (
	ReportPending  = "pending"
	ReportReviewed = "reviewed"
	ReportResolved = "resolved"
)

// RetrievedDoc is an opaque document reference returned by the retrieval
// backend. The shape is owned by the remote service, so it stays schemaless.
type RetrievedDoc map[string]any

// Conversation is a persistent chat session. UpdatedAt is touched on every
// message insertion and is monotonically non-decreasing.
type Conversation struct {
	ID        surrealmodels.RecordID `json:"id"`
	UserID    string                 `json:"user_id"`
	Title     string                 `json:"title"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Message is a single transcript entry within a conversation. Messages are
// immutable once created and ordered by CreatedAt ascending.
type Message struct {
	ID            surrealmodels.RecordID `json:"id"`
	Conversation  surrealmodels.RecordID `json:"conversation"`
	UserID        string                 `json:"user_id"`
	Content       string                 `json:"content"`
	IsUserMessage bool                   `json:"is_user_message"`
	ModelUsed     *string                `json:"model_used,omitempty"`
	RetrievedDocs []RetrievedDoc         `json:"retrieved_docs,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewMessage is the insert payload for a message.
type NewMessage struct {
	Conversation  surrealmodels.RecordID
	UserID        string
	Content       string
	IsUserMessage bool
	ModelUsed     *string
	RetrievedDocs []RetrievedDoc
}

// Feedback is a user's judgment on a bot message, created exactly once per
// submission and never mutated. It snapshots the query/response pair so the
// record stays meaningful even if the conversation is later deleted.
type Feedback struct {
	ID                surrealmodels.RecordID  `json:"id"`
	UserID            string                  `json:"user_id"`
	Message           *surrealmodels.RecordID `json:"message,omitempty"`
	Conversation      *surrealmodels.RecordID `json:"conversation,omitempty"`
	FeedbackType      string                  `json:"feedback_type"`
	UserQuery         string                  `json:"user_query"`
	BotResponse       string                  `json:"bot_response"`
	ThumbsUpReason    *string                 `json:"thumbs_up_reason,omitempty"`
	ThumbsDownReason  *string                 `json:"thumbs_down_reason,omitempty"`
	CorrectedQuestion *string                 `json:"corrected_question,omitempty"`
	CorrectAnswer     *string                 `json:"correct_answer,omitempty"`
	ModelUsed         *string                 `json:"model_used,omitempty"`
	RetrievedDocs     []RetrievedDoc          `json:"retrieved_docs,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
}

// NewFeedback is the insert payload for a feedback record.
type NewFeedback struct {
	UserID            string
	Message           *surrealmodels.RecordID
	Conversation      *surrealmodels.RecordID
	FeedbackType      string
	UserQuery         string
	BotResponse       string
	ThumbsUpReason    *string
	ThumbsDownReason  *string
	CorrectedQuestion *string
	CorrectAnswer     *string
	ModelUsed         *string
	RetrievedDocs     []RetrievedDoc
}

// Note is a free-form user note, independent of conversations.
type Note struct {
	ID        surrealmodels.RecordID `json:"id"`
	UserID    string                 `json:"user_id"`
	Title     string                 `json:"title"`
	Content   *string                `json:"content,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// ReportedQuestion is a question flagged by the user for review.
type ReportedQuestion struct {
	ID        surrealmodels.RecordID `json:"id"`
	UserID    string                 `json:"user_id"`
	Question  string                 `json:"question"`
	Comment   *string                `json:"comment,omitempty"`
	Status    string                 `json:"status"`
	CreatedAt time.Time              `json:"created_at"`
}
