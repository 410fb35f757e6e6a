// Package chat implements the conversation store: the authoritative in-memory
// transcript, the active conversation, and the coordination between the
// persistence client and the remote query backend.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/tylerhall7/gradbot/internal/models"
	"github.com/tylerhall7/gradbot/internal/ragapi"
)

// Greeting is the static opening message. It is never persisted and never
// eligible for feedback.
const Greeting = "Hello! I'm here to help answer questions about UALR graduate procedures. What would you like to know?"

// apologyText is appended when the remote query fails. The failure is
// terminal for that request; the user must resubmit.
const apologyText = "Sorry, I encountered an error processing your request. Please try again."

// titleMaxRunes bounds conversation titles derived from the first question.
const titleMaxRunes = 50

// Submission rejections. These surface as user-facing notices; no network
// call has happened when they are returned.
var (
	ErrEmptyQuestion    = errors.New("question is empty")
	ErrNoCredential     = errors.New("no API key configured")
	ErrNotAuthenticated = errors.New("no authenticated user")
	ErrBusy             = errors.New("a question is already in flight")
)

// State is the store lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateAwaitingResponse
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateAwaitingResponse:
		return "awaiting_response"
	default:
		return "unknown"
	}
}

// Entry is one transcript line. Bot entries keep an explicit reference to the
// user entry that triggered them, so feedback never depends on slice
// adjacency.
type Entry struct {
	ID            string
	Text          string
	IsUser        bool
	Timestamp     time.Time
	ModelUsed     string
	RetrievedDocs []models.RetrievedDoc

	// InReplyTo is the local id of the triggering user entry; empty for user
	// entries and the greeting.
	InReplyTo string

	// PersistedID is set once the matching row exists in the database.
	PersistedID *surrealmodels.RecordID
}

// Persistence is the slice of the database client the store needs.
type Persistence interface {
	CreateConversation(ctx context.Context, userID, title string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, msg models.NewMessage) (*models.Message, error)
	ListMessages(ctx context.Context, userID string, conversationID surrealmodels.RecordID) ([]models.Message, error)
}

// Querier issues the remote question-answering call.
type Querier interface {
	Query(ctx context.Context, req ragapi.QueryRequest) (*ragapi.QueryResponse, error)
}

// Options configures a Store. The credential is injected here explicitly
// rather than read from ambient storage.
type Options struct {
	UserID string
	APIKey string
	Model  string
	K      int
	Logger *slog.Logger
}

// Store owns the transcript and the active conversation id for one session.
// All exported methods are safe for concurrent use, though submissions are
// serialized: only one question may be in flight.
type Store struct {
	persist Persistence
	querier Querier
	logger  *slog.Logger

	userID string
	apiKey string
	model  string
	k      int

	mu      sync.Mutex
	state   State
	entries []Entry
	active  *models.Conversation
}

// NewStore creates a conversation store seeded with the greeting. The store
// starts Uninitialized until a user identity is present.
func NewStore(persist Persistence, querier Querier, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	k := opts.K
	if k <= 0 {
		k = ragapi.DefaultK
	}

	state := StateUninitialized
	if opts.UserID != "" {
		state = StateReady
	}

	return &Store{
		persist: persist,
		querier: querier,
		logger:  logger,
		userID:  opts.UserID,
		apiKey:  opts.APIKey,
		model:   opts.Model,
		k:       k,
		state:   state,
		entries: []Entry{greetingEntry()},
	}
}

func greetingEntry() Entry {
	return Entry{
		ID:        uuid.NewString(),
		Text:      Greeting,
		IsUser:    false,
		Timestamp: time.Now(),
	}
}

// DeriveTitle builds a conversation title from the first question: the first
// 50 characters, with an ellipsis when truncated.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxRunes {
		return text
	}
	return string(runes[:titleMaxRunes]) + "..."
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the current transcript.
func (s *Store) Transcript() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// ActiveConversation returns the active conversation, or nil when the next
// question will start a new one.
func (s *Store) ActiveConversation() *models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	conv := *s.active
	return &conv
}

// SubmitQuestion runs the full submission flow: local append, conversation
// creation, user-message persistence, remote query, bot-message append and
// persistence. Remote failure is absorbed into an apology entry and is not
// returned as an error; only local validation errors propagate. The returned
// entry is the appended bot entry (answer or apology).
func (s *Store) SubmitQuestion(ctx context.Context, text string) (*Entry, error) {
	question := strings.TrimSpace(text)

	s.mu.Lock()
	switch {
	case question == "":
		s.mu.Unlock()
		return nil, ErrEmptyQuestion
	case s.apiKey == "":
		s.mu.Unlock()
		return nil, ErrNoCredential
	case s.userID == "" || s.state == StateUninitialized:
		s.mu.Unlock()
		return nil, ErrNotAuthenticated
	case s.state == StateAwaitingResponse:
		s.mu.Unlock()
		return nil, ErrBusy
	}

	s.state = StateAwaitingResponse

	// The transcript reflects the question before any network round-trip.
	userEntry := Entry{
		ID:        uuid.NewString(),
		Text:      question,
		IsUser:    true,
		Timestamp: time.Now(),
	}
	s.entries = append(s.entries, userEntry)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = StateReady
		s.mu.Unlock()
	}()

	conv := s.ensureConversation(ctx, question)
	if conv != nil {
		s.persistEntry(ctx, conv, &userEntry)
	}

	resp, err := s.querier.Query(ctx, ragapi.QueryRequest{
		Query:  question,
		APIKey: s.apiKey,
		K:      s.k,
		Model:  s.model,
	})

	var botEntry Entry
	if err != nil {
		s.logger.Error("remote query failed", "error", err)
		botEntry = Entry{
			ID:        uuid.NewString(),
			Text:      apologyText,
			IsUser:    false,
			Timestamp: time.Now(),
			InReplyTo: userEntry.ID,
		}
	} else {
		botEntry = Entry{
			ID:            uuid.NewString(),
			Text:          resp.Response,
			IsUser:        false,
			Timestamp:     time.Now(),
			ModelUsed:     resp.ModelUsed,
			RetrievedDocs: resp.RetrievedDocs,
			InReplyTo:     userEntry.ID,
		}
	}

	s.mu.Lock()
	s.entries = append(s.entries, botEntry)
	s.mu.Unlock()

	if conv != nil {
		s.persistEntry(ctx, conv, &botEntry)
	}

	return &botEntry, nil
}

// ensureConversation returns the active conversation, creating one titled
// after the first question when none is active. Creation failure is logged
// and the session continues unpersisted.
func (s *Store) ensureConversation(ctx context.Context, question string) *models.Conversation {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active != nil {
		return active
	}

	conv, err := s.persist.CreateConversation(ctx, s.userID, DeriveTitle(question))
	if err != nil {
		s.logger.Warn("failed to create conversation, continuing unpersisted", "error", err)
		return nil
	}

	s.mu.Lock()
	s.active = conv
	s.mu.Unlock()
	return conv
}

// persistEntry stores one transcript entry as a message row, best-effort. On
// success the entry's PersistedID is recorded in the transcript.
func (s *Store) persistEntry(ctx context.Context, conv *models.Conversation, entry *Entry) {
	msg, err := s.persist.AppendMessage(ctx, models.NewMessage{
		Conversation:  conv.ID,
		UserID:        s.userID,
		Content:       entry.Text,
		IsUserMessage: entry.IsUser,
		ModelUsed:     models.StrPtr(entry.ModelUsed),
		RetrievedDocs: entry.RetrievedDocs,
	})
	if err != nil {
		// Display already happened; persistence is a background side-effect.
		s.logger.Warn("failed to persist message", "error", err, "is_user", entry.IsUser)
		return
	}

	entry.PersistedID = &msg.ID

	s.mu.Lock()
	for i := range s.entries {
		if s.entries[i].ID == entry.ID {
			s.entries[i].PersistedID = &msg.ID
			break
		}
	}
	s.mu.Unlock()
}

// ClearConversation drops the active conversation id and resets the
// transcript to the greeting. Persisted history is untouched; the next
// question starts a new conversation.
func (s *Store) ClearConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
	s.entries = []Entry{greetingEntry()}
	if s.state == StateAwaitingResponse {
		s.state = StateReady
	}
}

// ResumeConversation makes conv the active conversation and loads its
// persisted transcript.
func (s *Store) ResumeConversation(ctx context.Context, conv models.Conversation) error {
	s.mu.Lock()
	s.active = &conv
	s.mu.Unlock()
	return s.LoadHistory(ctx)
}

// LoadHistory replaces the transcript with the active conversation's
// persisted messages. With no active conversation or no stored rows the
// greeting is kept. Reply references are re-derived from message order since
// the rows don't carry them.
func (s *Store) LoadHistory(ctx context.Context) error {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active == nil {
		return nil
	}

	msgs, err := s.persist.ListMessages(ctx, s.userID, active.ID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	entries := make([]Entry, 0, len(msgs))
	lastUserID := ""
	for _, msg := range msgs {
		entry := Entry{
			ID:            uuid.NewString(),
			Text:          msg.Content,
			IsUser:        msg.IsUserMessage,
			Timestamp:     msg.CreatedAt,
			RetrievedDocs: msg.RetrievedDocs,
			PersistedID:   &msg.ID,
		}
		if msg.ModelUsed != nil {
			entry.ModelUsed = *msg.ModelUsed
		}
		if msg.IsUserMessage {
			lastUserID = entry.ID
		} else {
			entry.InReplyTo = lastUserID
		}
		entries = append(entries, entry)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}
