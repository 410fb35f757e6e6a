package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/tylerhall7/gradbot/internal/chat"
	"github.com/tylerhall7/gradbot/internal/feedback"
	"github.com/tylerhall7/gradbot/internal/stats"
)

// chatTheme holds the color scheme for the chat display.
type chatTheme struct {
	User   lipgloss.Color
	Bot    lipgloss.Color
	Accent lipgloss.Color
	Error  lipgloss.Color
	Hint   lipgloss.Color
}

// defaultChatTheme provides default colors.
var defaultChatTheme = chatTheme{
	User:   lipgloss.Color("#5FAFD7"), // light blue
	Bot:    lipgloss.Color("#00D787"), // green
	Accent: lipgloss.Color("#AF87FF"), // purple
	Error:  lipgloss.Color("#FF005F"), // red
	Hint:   lipgloss.Color("#6C6C6C"), // dim gray
}

func (t chatTheme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t chatTheme) botStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Bot).Bold(true)
}

func (t chatTheme) accentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent)
}

func (t chatTheme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error)
}

func (t chatTheme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// chatMode tracks what the single input line currently collects.
type chatMode int

const (
	modeInput chatMode = iota
	modeComment
	modeCorrectQuestion
	modeCorrectAnswer
)

type (
	// answerMsg carries the bot entry (answer or apology) for a submission.
	answerMsg struct {
		entry *chat.Entry
		err   error
	}

	// statsMsg carries refreshed counters, from the aggregator callback or a
	// one-shot refresh.
	statsMsg stats.Counters

	// healthMsg reports the result of the startup backend pre-warm.
	healthMsg struct {
		err error
	}

	// feedbackSavedMsg reports the result of a feedback submission.
	feedbackSavedMsg struct {
		err error
	}
)

// chatModel is the bubbletea model for the interactive session.
type chatModel struct {
	store    *chat.Store
	workflow *feedback.Workflow
	agg      *stats.Aggregator

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model

	theme  chatTheme
	width  int
	height int

	mode     chatMode
	awaiting bool
	status   string
	counters stats.Counters

	// Captured feedback state, kept between retries.
	draft         *feedback.Draft
	comment       string
	correctedQ    string
	correctAnswer string
}

// newChatModel creates a chat model over already-connected clients.
func newChatModel(store *chat.Store, workflow *feedback.Workflow, agg *stats.Aggregator) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Ask about graduate procedures (/help for commands)"
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.Focus()

	vp := viewport.New()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return chatModel{
		store:    store,
		workflow: workflow,
		agg:      agg,
		viewport: vp,
		input:    ta,
		spin:     sp,
		theme:    defaultChatTheme,
	}
}

// Init pre-warms the backend and computes the first stats snapshot.
func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		healthCmd(),
		refreshStatsCmd(m.agg),
		textarea.Blink,
	)
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(max(msg.Height-6, 3))
		m.input.SetWidth(msg.Width - 2)
		m.syncTranscript()
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.mode != modeInput {
				m.resetFeedback()
				m.status = "Feedback cancelled."
				return m, nil
			}
		case "enter":
			return m.handleEnter()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if !m.awaiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		m.syncTranscript()
		return m, cmd

	case answerMsg:
		m.awaiting = false
		if msg.err != nil {
			m.status = submissionNotice(msg.err)
		} else {
			m.status = fmt.Sprintf("Use /good %d or /bad %d to rate this answer.",
				len(m.store.Transcript())-1, len(m.store.Transcript())-1)
		}
		m.syncTranscript()
		m.viewport.GotoBottom()
		return m, refreshStatsCmd(m.agg)

	case statsMsg:
		m.counters = stats.Counters(msg)
		return m, nil

	case healthMsg:
		if msg.err != nil {
			logger.Warn("backend pre-warm failed", "error", msg.err)
		} else {
			logger.Debug("backend pre-warm ok")
		}
		return m, nil

	case feedbackSavedMsg:
		if msg.err != nil {
			// Keep the draft so enter retries the submission.
			m.status = "Could not save feedback. Press enter to retry, esc to cancel."
			return m, nil
		}
		m.resetFeedback()
		m.status = "Thanks for the feedback!"
		return m, nil
	}

	return m, nil
}

// handleEnter interprets the input line according to the current mode.
func (m chatModel) handleEnter() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())

	switch m.mode {
	case modeInput:
		if text == "" {
			return m, nil
		}
		if strings.HasPrefix(text, "/") {
			m.input.Reset()
			return m.handleCommand(text)
		}
		if m.awaiting {
			m.status = "Still waiting on the previous answer."
			return m, nil
		}
		m.input.Reset()
		m.awaiting = true
		m.status = ""
		return m, tea.Batch(submitCmd(m.store, text), m.spin.Tick)

	case modeComment:
		if text == "" {
			if m.comment == "" {
				m.status = "A short comment is required."
				return m, nil
			}
			// A failed save leaves the comment in place; bare enter retries.
			return m, submitFeedbackCmd(m.workflow, m.draft, m.comment, "", "")
		}
		m.comment = text
		m.input.Reset()
		if m.draft != nil && m.draft.Polarity == feedback.Negative {
			m.mode = modeCorrectQuestion
			m.status = "How should the question have been phrased? (optional, enter to skip)"
			return m, nil
		}
		return m, submitFeedbackCmd(m.workflow, m.draft, m.comment, "", "")

	case modeCorrectQuestion:
		m.correctedQ = text
		m.input.Reset()
		m.mode = modeCorrectAnswer
		m.status = "What would the correct answer be? (optional, enter to skip)"
		return m, nil

	case modeCorrectAnswer:
		if text != "" {
			m.correctAnswer = text
		}
		m.input.Reset()
		return m, submitFeedbackCmd(m.workflow, m.draft, m.comment, m.correctedQ, m.correctAnswer)
	}

	return m, nil
}

// handleCommand dispatches slash commands from the input line.
func (m chatModel) handleCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)

	switch fields[0] {
	case "/quit", "/exit":
		return m, tea.Quit

	case "/clear":
		if m.awaiting {
			m.status = "Still waiting on the previous answer."
			return m, nil
		}
		m.store.ClearConversation()
		m.status = "Started a new conversation. Previous one stays in history."
		m.syncTranscript()
		m.viewport.GotoBottom()
		return m, nil

	case "/help":
		m.status = "/good <n> and /bad <n> rate entry n, /clear starts over, /quit leaves."
		return m, nil

	case "/good", "/bad":
		return m.beginFeedback(fields)

	default:
		m.status = fmt.Sprintf("Unknown command %q. Try /help.", fields[0])
		return m, nil
	}
}

// beginFeedback resolves the target entry and opens the comment prompt. An
// unresolvable target shows nothing beyond a status note.
func (m chatModel) beginFeedback(fields []string) (tea.Model, tea.Cmd) {
	if len(fields) < 2 {
		m.status = fmt.Sprintf("Usage: %s <entry number>", fields[0])
		return m, nil
	}
	idx, err := strconv.Atoi(fields[1])
	transcript := m.store.Transcript()
	if err != nil || idx < 0 || idx >= len(transcript) {
		m.status = "No such transcript entry."
		return m, nil
	}

	polarity := feedback.Positive
	if fields[0] == "/bad" {
		polarity = feedback.Negative
	}

	conv := m.store.ActiveConversation()
	draft := (*feedback.Draft)(nil)
	if conv != nil {
		draft, err = m.workflow.Begin(transcript, transcript[idx].ID, polarity, &conv.ID)
	} else {
		draft, err = m.workflow.Begin(transcript, transcript[idx].ID, polarity, nil)
	}
	if err != nil {
		if errors.Is(err, feedback.ErrNotFound) {
			m.status = "That entry can't be rated."
		} else {
			m.status = "Could not start feedback."
			logger.Error("feedback begin failed", "error", err)
		}
		return m, nil
	}

	m.draft = draft
	m.comment = ""
	m.correctedQ = ""
	m.correctAnswer = ""
	m.mode = modeComment
	if polarity == feedback.Positive {
		m.status = "What did you like about this answer?"
	} else {
		m.status = "What was wrong with this answer?"
	}
	return m, nil
}

func (m *chatModel) resetFeedback() {
	m.draft = nil
	m.comment = ""
	m.correctedQ = ""
	m.correctAnswer = ""
	m.mode = modeInput
	m.input.Reset()
}

// syncTranscript re-renders the transcript into the viewport.
func (m *chatModel) syncTranscript() {
	m.viewport.SetContent(m.renderTranscript())
}

// renderTranscript builds the numbered transcript view.
func (m *chatModel) renderTranscript() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	body := lipgloss.NewStyle().Width(width - 2)

	var b strings.Builder
	for i, entry := range m.store.Transcript() {
		var label string
		if entry.IsUser {
			label = m.theme.userStyle().Render(fmt.Sprintf("[%d] You", i))
		} else {
			label = m.theme.botStyle().Render(fmt.Sprintf("[%d] Advisor", i))
		}
		b.WriteString(label)
		if entry.ModelUsed != "" {
			b.WriteString(m.theme.hintStyle().Render("  " + entry.ModelUsed))
		}
		b.WriteString("\n")
		b.WriteString(body.Render(entry.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}

// View renders the chat display.
func (m chatModel) View() tea.View {
	var b strings.Builder

	b.WriteString(m.theme.accentStyle().Render("Gradbot — UALR Graduate Procedures"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.awaiting {
		b.WriteString(m.spin.View())
		b.WriteString(m.theme.hintStyle().Render(" thinking..."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	statsLine := fmt.Sprintf("Today %d · Total %d · Reports %d · Notes %d",
		m.counters.QuestionsToday, m.counters.QuestionsTotal,
		m.counters.Reports, m.counters.Notes)
	b.WriteString(m.theme.hintStyle().Render(statsLine))
	if m.status != "" {
		b.WriteString("  ")
		b.WriteString(m.theme.accentStyle().Render(m.status))
	}
	b.WriteString("\n")

	return tea.NewView(b.String())
}

// submissionNotice maps submission rejections to user-facing text.
func submissionNotice(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyQuestion):
		return "Type a question first."
	case errors.Is(err, chat.ErrNoCredential):
		return "No API key configured. Run `gradbot config set-key` first."
	case errors.Is(err, chat.ErrNotAuthenticated):
		return "No user configured. Run `gradbot config set-user <id>` first."
	case errors.Is(err, chat.ErrBusy):
		return "Still waiting on the previous answer."
	default:
		return "Something went wrong. Check the log for details."
	}
}

// submitCmd runs the full question flow off the UI goroutine.
func submitCmd(store *chat.Store, text string) tea.Cmd {
	return func() tea.Msg {
		entry, err := store.SubmitQuestion(context.Background(), text)
		return answerMsg{entry: entry, err: err}
	}
}

// submitFeedbackCmd persists and forwards a completed feedback draft.
func submitFeedbackCmd(w *feedback.Workflow, draft *feedback.Draft, comment, correctedQ, correctAnswer string) tea.Cmd {
	return func() tea.Msg {
		if draft == nil {
			return feedbackSavedMsg{err: feedback.ErrNotFound}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return feedbackSavedMsg{err: w.Submit(ctx, draft, comment, correctedQ, correctAnswer)}
	}
}

// refreshStatsCmd recomputes the counters once.
func refreshStatsCmd(agg *stats.Aggregator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = agg.Refresh(ctx)
		return statsMsg(agg.Snapshot())
	}
}

// healthCmd pre-warms the remote backend so the first question doesn't pay
// the cold-start penalty.
func healthCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return healthMsg{err: ragClient.Health(ctx)}
	}
}
