// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tylerhall7/gradbot/internal/models"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

// uniqueUser returns a user id no other test shares, so row counts don't
// interfere across tests.
func uniqueUser(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestCreateConversation(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("create-conv")

	conv, err := testDB.CreateConversation(ctx, user, "How do I graduate?")
	require.NoError(t, err)

	assert.Equal(t, user, conv.UserID)
	assert.Equal(t, "How do I graduate?", conv.Title)
	assert.Equal(t, "conversation", conv.ID.Table)
	assert.False(t, conv.CreatedAt.IsZero())
	assert.False(t, conv.UpdatedAt.IsZero())
}

func TestListConversationsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("list-conv")

	older, err := testDB.CreateConversation(ctx, user, "older")
	require.NoError(t, err)
	newer, err := testDB.CreateConversation(ctx, user, "newer")
	require.NoError(t, err)

	// Touching the older conversation moves it back to the front.
	_, err = testDB.AppendMessage(ctx, models.NewMessage{
		Conversation:  older.ID,
		UserID:        user,
		Content:       "bump",
		IsUserMessage: true,
	})
	require.NoError(t, err)

	convs, err := testDB.ListConversations(ctx, user)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, older.ID, convs[0].ID)
	assert.Equal(t, newer.ID, convs[1].ID)
}

func TestGetConversationScopedToUser(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("get-conv")

	conv, err := testDB.CreateConversation(ctx, user, "mine")
	require.NoError(t, err)

	found, err := testDB.GetConversation(ctx, user, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "mine", found.Title)

	other, err := testDB.GetConversation(ctx, "someone-else", conv.ID)
	require.NoError(t, err)
	assert.Nil(t, other, "another user must not see the conversation")
}

func TestRenameConversation(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("rename-conv")

	conv, err := testDB.CreateConversation(ctx, user, "before")
	require.NoError(t, err)

	require.NoError(t, testDB.RenameConversation(ctx, conv.ID, "after"))

	found, err := testDB.GetConversation(ctx, user, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "after", found.Title)
	assert.True(t, !found.UpdatedAt.Before(conv.UpdatedAt))
}

func TestAppendAndListMessagesInCreationOrder(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("msg-order")

	conv, err := testDB.CreateConversation(ctx, user, "ordering")
	require.NoError(t, err)

	contents := []string{"q1", "a1", "q2", "a2"}
	for i, content := range contents {
		_, err := testDB.AppendMessage(ctx, models.NewMessage{
			Conversation:  conv.ID,
			UserID:        user,
			Content:       content,
			IsUserMessage: i%2 == 0,
		})
		require.NoError(t, err)
	}

	msgs, err := testDB.ListMessages(ctx, user, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, len(contents))
	for i, msg := range msgs {
		assert.Equal(t, contents[i], msg.Content)
		assert.Equal(t, i%2 == 0, msg.IsUserMessage)
		if i > 0 {
			assert.True(t, !msg.CreatedAt.Before(msgs[i-1].CreatedAt),
				"messages must come back in creation order")
		}
	}
}

func TestAppendMessageTouchesConversation(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("msg-touch")

	conv, err := testDB.CreateConversation(ctx, user, "touch")
	require.NoError(t, err)

	model := "gemini-2.0-flash-lite"
	msg, err := testDB.AppendMessage(ctx, models.NewMessage{
		Conversation:  conv.ID,
		UserID:        user,
		Content:       "an answer",
		IsUserMessage: false,
		ModelUsed:     &model,
		RetrievedDocs: []models.RetrievedDoc{{"source": "handbook.pdf", "page": float64(3)}},
	})
	require.NoError(t, err)
	require.NotNil(t, msg.ModelUsed)
	assert.Equal(t, model, *msg.ModelUsed)
	require.Len(t, msg.RetrievedDocs, 1)

	after, err := testDB.GetConversation(ctx, user, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.True(t, !after.UpdatedAt.Before(conv.UpdatedAt),
		"updated_at never moves backwards")
}

func TestCountUserMessages(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("msg-count")

	conv, err := testDB.CreateConversation(ctx, user, "counting")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := testDB.AppendMessage(ctx, models.NewMessage{
			Conversation:  conv.ID,
			UserID:        user,
			Content:       fmt.Sprintf("q%d", i),
			IsUserMessage: true,
		})
		require.NoError(t, err)
	}
	// Bot replies don't count as questions.
	_, err = testDB.AppendMessage(ctx, models.NewMessage{
		Conversation:  conv.ID,
		UserID:        user,
		Content:       "a1",
		IsUserMessage: false,
	})
	require.NoError(t, err)

	total, err := testDB.CountUserMessages(ctx, user, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	since := time.Now().Add(-time.Hour)
	until := time.Now().Add(time.Hour)
	today, err := testDB.CountUserMessages(ctx, user, &since, &until)
	require.NoError(t, err)
	assert.Equal(t, 3, today)

	past := time.Now().Add(-2 * time.Hour)
	pastEnd := time.Now().Add(-time.Hour)
	none, err := testDB.CountUserMessages(ctx, user, &past, &pastEnd)
	require.NoError(t, err)
	assert.Equal(t, 0, none)
}

func TestDeleteConversationRemovesMessages(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("del-conv")

	conv, err := testDB.CreateConversation(ctx, user, "doomed")
	require.NoError(t, err)
	_, err = testDB.AppendMessage(ctx, models.NewMessage{
		Conversation:  conv.ID,
		UserID:        user,
		Content:       "q1",
		IsUserMessage: true,
	})
	require.NoError(t, err)

	require.NoError(t, testDB.DeleteConversation(ctx, conv.ID))

	found, err := testDB.GetConversation(ctx, user, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	msgs, err := testDB.ListMessages(ctx, user, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestInsertFeedback(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("feedback")

	reason := "answer cited the wrong catalog year"
	corrected := "Which catalog year applies to me?"
	fb, err := testDB.InsertFeedback(ctx, models.NewFeedback{
		UserID:            user,
		FeedbackType:      models.FeedbackThumbsDown,
		UserQuery:         "catalog year?",
		BotResponse:       "2019 catalog",
		ThumbsDownReason:  &reason,
		CorrectedQuestion: &corrected,
	})
	require.NoError(t, err)

	assert.Equal(t, models.FeedbackThumbsDown, fb.FeedbackType)
	assert.Equal(t, "catalog year?", fb.UserQuery)
	require.NotNil(t, fb.ThumbsDownReason)
	assert.Equal(t, reason, *fb.ThumbsDownReason)
	assert.False(t, fb.CreatedAt.IsZero())
}

func TestInsertFeedbackRejectsUnknownType(t *testing.T) {
	ctx := context.Background()

	_, err := testDB.InsertFeedback(ctx, models.NewFeedback{
		UserID:       uniqueUser("feedback-bad"),
		FeedbackType: "shrug",
		UserQuery:    "q",
		BotResponse:  "a",
	})
	assert.Error(t, err, "schema assertion rejects unknown feedback types")
}

func TestNotesLifecycle(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("notes")

	content := "GA applications open in March"
	note, err := testDB.CreateNote(ctx, user, "Assistantships", &content)
	require.NoError(t, err)
	assert.Equal(t, "Assistantships", note.Title)
	require.NotNil(t, note.Content)

	newContent := "GA applications open March 1st"
	updated, err := testDB.UpdateNote(ctx, note.ID, "Assistantships 2026", &newContent)
	require.NoError(t, err)
	assert.Equal(t, "Assistantships 2026", updated.Title)
	require.NotNil(t, updated.Content)
	assert.Equal(t, newContent, *updated.Content)

	notes, err := testDB.ListNotes(ctx, user)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	n, err := testDB.CountNotes(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, testDB.DeleteNote(ctx, note.ID))
	n, err = testDB.CountNotes(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReportsLifecycle(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("reports")

	comment := "bot kept citing the undergraduate catalog"
	report, err := testDB.InsertReport(ctx, user, "transfer credit limits?", &comment)
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, report.Status, "new reports start pending")

	require.NoError(t, testDB.UpdateReportStatus(ctx, report.ID, models.ReportReviewed))

	reports, err := testDB.ListReports(ctx, user)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, models.ReportReviewed, reports[0].Status)

	err = testDB.UpdateReportStatus(ctx, report.ID, "nonsense")
	assert.Error(t, err)

	n, err := testDB.CountReports(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWatchDeliversChangeTicks(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("watch")

	sub, err := testDB.Watch(ctx, "note")
	require.NoError(t, err)
	defer sub.Close(ctx)

	_, err = testDB.CreateNote(ctx, user, "watched", nil)
	require.NoError(t, err)

	select {
	case <-sub.Events():
	case <-time.After(10 * time.Second):
		t.Fatal("no change tick after insert")
	}
}

func TestWipeData(t *testing.T) {
	ctx := context.Background()
	user := uniqueUser("wipe")

	_, err := testDB.CreateNote(ctx, user, "to be wiped", nil)
	require.NoError(t, err)

	require.NoError(t, testDB.WipeData(ctx))

	n, err := testDB.CountNotes(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
