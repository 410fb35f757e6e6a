// Package feedback captures a user's judgment on a bot message and persists
// a single feedback record, optionally forwarding it to the remote backend.
package feedback

import (
	"context"
	"errors"
	"log/slog"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/tylerhall7/gradbot/internal/chat"
	"github.com/tylerhall7/gradbot/internal/models"
	"github.com/tylerhall7/gradbot/internal/ragapi"
)

// Polarity is the judgment attached to a feedback submission, fixed at
// collection start.
type Polarity string

const (
	Positive Polarity = models.FeedbackThumbsUp
	Negative Polarity = models.FeedbackThumbsDown
)

// ErrNotFound means the target bot message or its triggering user message
// could not be resolved. The flow fails closed: no affordance, no record.
var ErrNotFound = errors.New("feedback target not found")

// Persistence is the slice of the database client the workflow needs.
type Persistence interface {
	InsertFeedback(ctx context.Context, fb models.NewFeedback) (*models.Feedback, error)
}

// Forwarder mirrors the feedback to the remote backend, best-effort.
type Forwarder interface {
	SubmitFeedback(ctx context.Context, req ragapi.FeedbackRequest) error
}

// Draft holds everything captured when feedback collection begins. The
// query/response pair is snapshotted here so later transcript changes can't
// alter the record.
type Draft struct {
	Polarity      Polarity
	UserQuery     string
	BotResponse   string
	ModelUsed     string
	RetrievedDocs []models.RetrievedDoc

	SourceEntryID string
	Message       *surrealmodels.RecordID
	Conversation  *surrealmodels.RecordID
}

// Workflow builds and persists feedback records for one user session.
type Workflow struct {
	persist   Persistence
	forwarder Forwarder
	logger    *slog.Logger
	userID    string
}

// NewWorkflow creates a feedback workflow. forwarder may be nil to skip
// remote mirroring.
func NewWorkflow(persist Persistence, forwarder Forwarder, userID string, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		persist:   persist,
		forwarder: forwarder,
		logger:    logger,
		userID:    userID,
	}
}

// Begin resolves the target bot entry and its triggering user entry in the
// transcript and returns a draft with the polarity fixed. The user entry is
// resolved by the bot entry's reply reference, falling back to the entry
// immediately before it. conversation links the record to the active
// conversation and may be nil. Returns ErrNotFound when the target is
// missing, is a user message, is the greeting, or no triggering user entry
// resolves.
func (w *Workflow) Begin(transcript []chat.Entry, entryID string, polarity Polarity, conversation *surrealmodels.RecordID) (*Draft, error) {
	targetIdx := -1
	for i := range transcript {
		if transcript[i].ID == entryID {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return nil, ErrNotFound
	}

	target := transcript[targetIdx]
	if target.IsUser {
		return nil, ErrNotFound
	}

	var asked *chat.Entry
	if target.InReplyTo != "" {
		for i := range transcript {
			if transcript[i].ID == target.InReplyTo && transcript[i].IsUser {
				asked = &transcript[i]
				break
			}
		}
	}
	if asked == nil && targetIdx > 0 && transcript[targetIdx-1].IsUser {
		asked = &transcript[targetIdx-1]
	}
	if asked == nil {
		// The greeting lands here: no reply reference and nothing before it.
		return nil, ErrNotFound
	}

	return &Draft{
		Polarity:      polarity,
		UserQuery:     asked.Text,
		BotResponse:   target.Text,
		ModelUsed:     target.ModelUsed,
		RetrievedDocs: target.RetrievedDocs,
		SourceEntryID: target.ID,
		Message:       target.PersistedID,
		Conversation:  conversation,
	}, nil
}

// Submit persists the feedback record built from the draft plus the collected
// free-text fields. Correction fields are only meaningful for negative
// polarity and are dropped otherwise. A persistence error is returned so the
// collection affordance can stay open for retry; remote forwarding failure is
// only logged.
func (w *Workflow) Submit(ctx context.Context, draft *Draft, comment, correctedQuestion, correctAnswer string) error {
	record := models.NewFeedback{
		UserID:        w.userID,
		Message:       draft.Message,
		Conversation:  draft.Conversation,
		FeedbackType:  string(draft.Polarity),
		UserQuery:     draft.UserQuery,
		BotResponse:   draft.BotResponse,
		ModelUsed:     models.StrPtr(draft.ModelUsed),
		RetrievedDocs: draft.RetrievedDocs,
	}

	switch draft.Polarity {
	case Positive:
		record.ThumbsUpReason = models.StrPtr(comment)
	case Negative:
		record.ThumbsDownReason = models.StrPtr(comment)
		record.CorrectedQuestion = models.StrPtr(correctedQuestion)
		record.CorrectAnswer = models.StrPtr(correctAnswer)
	}

	if _, err := w.persist.InsertFeedback(ctx, record); err != nil {
		w.logger.Error("failed to persist feedback", "error", err)
		return err
	}

	w.forward(ctx, draft, record)
	return nil
}

// forward mirrors the record to the remote feedback endpoint. Failures never
// affect the submission result.
func (w *Workflow) forward(ctx context.Context, draft *Draft, record models.NewFeedback) {
	if w.forwarder == nil {
		return
	}

	req := ragapi.FeedbackRequest{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Query:           record.UserQuery,
		Response:        record.BotResponse,
		FeedbackType:    record.FeedbackType,
		ModelUsed:       draft.ModelUsed,
		RetrievedDocs:   record.RetrievedDocs,
		SourceMessageID: draft.SourceEntryID,
	}
	if record.ThumbsUpReason != nil {
		req.ThumbsUpReason = *record.ThumbsUpReason
	}
	if record.ThumbsDownReason != nil {
		req.ThumbsDownReason = *record.ThumbsDownReason
	}
	if record.CorrectedQuestion != nil {
		req.CorrectedQuestion = *record.CorrectedQuestion
	}
	if record.CorrectAnswer != nil {
		req.CorrectAnswer = *record.CorrectAnswer
	}

	if err := w.forwarder.SubmitFeedback(ctx, req); err != nil {
		w.logger.Warn("failed to forward feedback to backend", "error", err)
	}
}
