package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zatekoja/feediq/internal/intake"
	apperrors "github.com/zatekoja/feediq/pkg/errors"
)

type handledMsg struct {
	err error
}

type closedMsg struct{}

// ChatModel drives one intake session from the keyboard. Buttons map to keys:
// y/n at the greeting, arrows or digits to pick stars, enter to confirm.
type ChatModel struct {
	ctx     context.Context
	session *intake.Session
	closed  <-chan struct{}

	input    textinput.Model
	snapshot intake.Snapshot
	cursor   int
	errText  string
	width    int
	styles   Styles
}

// NewChatModel wraps session. closed must be signalled once the session
// closes, typically from an intake.WithOnClose hook.
func NewChatModel(ctx context.Context, session *intake.Session, closed <-chan struct{}) ChatModel {
	in := textinput.New()
	in.CharLimit = 1000
	in.Width = 60

	m := ChatModel{
		ctx:      ctx,
		session:  session,
		closed:   closed,
		input:    in,
		snapshot: session.Snapshot(),
		styles:   DefaultStyles(),
	}
	m.syncInput()
	return m
}

// Init starts waiting for the session to close.
func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(waitForClose(m.closed), textinput.Blink)
}

// Snapshot returns the last rendered session state.
func (m ChatModel) Snapshot() intake.Snapshot {
	return m.snapshot
}

// Update handles messages.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case closedMsg:
		m.snapshot = m.session.Snapshot()
		return m, tea.Quit

	case handledMsg:
		m.errText = ""
		if msg.err != nil {
			var appErr *apperrors.AppError
			if !errors.As(msg.err, &appErr) || appErr.Type != apperrors.ErrorTypeValidation {
				m.errText = msg.err.Error()
			}
		}
		previous := m.snapshot.State
		m.snapshot = m.session.Snapshot()
		if m.snapshot.State != previous {
			m.input.Reset()
		}
		m.syncInput()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInput(msg)
}

func (m ChatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "esc" {
		m.session.Close()
		m.snapshot = m.session.Snapshot()
		return m, tea.Quit
	}

	switch m.snapshot.State {
	case intake.StateGreeting:
		switch key {
		case "y", "Y", "enter":
			return m, m.send(intake.Accept())
		case "n", "N":
			return m, m.send(intake.Decline())
		}
		return m, nil

	case intake.StateAskName, intake.StateAskEmail, intake.StateAskComment:
		if key == "enter" {
			return m, m.send(intake.Answer(m.input.Value()))
		}
		return m.updateInput(msg)

	case intake.StateAskRating:
		switch key {
		case "left", "h", "down", "j":
			return m.moveCursor(m.cursor - 1)
		case "right", "l", "up", "k":
			return m.moveCursor(m.cursor + 1)
		case "1", "2", "3", "4", "5":
			return m.moveCursor(int(key[0] - '0'))
		case "enter", " ":
			return m, m.send(intake.Rate(m.cursor))
		}
		return m, nil

	case intake.StateSubmitting:
		if key == "q" || key == "enter" {
			return m, m.send(intake.CloseInput())
		}
	}
	return m, nil
}

func (m ChatModel) moveCursor(rating int) (tea.Model, tea.Cmd) {
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	m.cursor = rating
	return m, m.send(intake.Hover(rating))
}

func (m ChatModel) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m ChatModel) send(in intake.Input) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		_, err := session.Handle(ctx, in)
		return handledMsg{err: err}
	}
}

func (m *ChatModel) syncInput() {
	switch m.snapshot.State {
	case intake.StateAskName:
		m.input.Placeholder = "Your name"
	case intake.StateAskEmail:
		m.input.Placeholder = "you@example.com (enter to skip)"
	case intake.StateAskComment:
		m.input.Placeholder = "Tell us what you think"
	default:
		m.input.Blur()
		return
	}
	m.input.Focus()
}

func waitForClose(closed <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-closed
		return closedMsg{}
	}
}

// View renders the transcript and the control for the current step.
func (m ChatModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("FeedIQ"))
	b.WriteString("\n\n")

	for _, line := range m.snapshot.Transcript {
		if line.Role == intake.RoleUser {
			b.WriteString(m.styles.User.Render("you › " + line.Content))
		} else {
			b.WriteString(m.styles.Bot.Render("bot › " + line.Content))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if notice := m.renderNotice(); notice != "" {
		b.WriteString(notice)
		b.WriteString("\n\n")
	}
	if m.errText != "" {
		b.WriteString(m.styles.Warning.Render(m.errText))
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderControl())
	b.WriteString("\n")

	frame := m.styles.Frame
	if m.width > 4 {
		frame = frame.Width(m.width - 4)
	}
	return frame.Render(b.String())
}

func (m ChatModel) renderNotice() string {
	n := m.snapshot.Notice
	switch n.Signal {
	case intake.SignalSaved:
		return m.styles.Saved.Render("✓ " + n.Message)
	case intake.SignalUrgent:
		return m.styles.Urgent.Render("! " + n.Message)
	case intake.SignalFailed:
		return m.styles.Urgent.Render("✗ " + n.Message)
	case intake.SignalRejected:
		if m.snapshot.State == intake.StateClosed || m.snapshot.State == intake.StateSubmitting {
			return ""
		}
		return m.styles.Warning.Render(n.Message)
	}
	return ""
}

func (m ChatModel) renderControl() string {
	switch m.snapshot.State {
	case intake.StateGreeting:
		return m.styles.Prompt.Render("[y] Yes, sure   [n] No thanks") + "\n" +
			m.styles.Help.Render("esc to leave")

	case intake.StateAskName, intake.StateAskEmail, intake.StateAskComment:
		return m.input.View() + "\n" + m.styles.Help.Render("enter to send · esc to leave")

	case intake.StateAskRating:
		return m.renderStars() + "\n" + m.styles.Help.Render("←/→ or 1-5 to choose · enter to rate")

	case intake.StateSubmitting:
		return m.styles.Help.Render("closing shortly · q to close now")
	}
	return m.styles.Help.Render("conversation closed")
}

func (m ChatModel) renderStars() string {
	rating := m.snapshot.HoverRating
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		if i <= rating {
			b.WriteString(m.styles.Star.Render("★"))
		} else {
			b.WriteString(m.styles.Empty.Render("☆"))
		}
		b.WriteString(" ")
	}
	return fmt.Sprintf("%s %s", b.String(), m.styles.Prompt.Render(m.snapshot.HoverLabel))
}
