package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aaryapoyrekar/isro-bot/internal/config"
	"github.com/aaryapoyrekar/isro-bot/internal/domain"
)

// AnswerPort is the TUI-facing subset of the RAG service. Respond never
// returns an error; failures arrive as user-safe answer text.
type AnswerPort interface {
	Respond(ctx context.Context, knowledgeText, query string, cfg config.Retrieval) domain.AnswerResult
}

// turn is one question/answer exchange in the transcript.
type turn struct {
	question string
	answer   string
	meta     *domain.AnswerMetadata
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	service   AnswerPort
	knowledge string
	cfg       config.Retrieval
	input     textinput.Model
	viewport  viewport.Model
	turns     []turn
	status    string
	ready     bool
}

// New creates a new chat model instance.
func New(service AnswerPort, knowledge string, cfg config.Retrieval) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about ISRO missions, satellites, launch vehicles..."
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:   service,
		knowledge: knowledge,
		cfg:       cfg,
		input:     ti,
		viewport:  vp,
		status:    "Knowledge base loaded. Type a question and press Enter.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around transcript and query boxes
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 1
		totalFooterLines := 1
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.status = "Thinking..."
				res := m.service.Respond(context.Background(), m.knowledge, q, m.cfg)
				m.turns = append(m.turns, turn{question: q, answer: res.Answer, meta: res.Metadata})
				m.status = fmt.Sprintf("Answered %q", q)
				m.input.Reset()
				m.viewport.SetContent(m.renderTranscript())
				m.viewport.GotoBottom()
				return m, nil
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("ISRO Knowledge Bot")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "No questions asked yet."
	}
	var sb strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(questionStyle.Render("You: " + t.question))
		sb.WriteString("\n")
		sb.WriteString(t.answer)
		if t.meta != nil {
			sb.WriteString("\n")
			sb.WriteString(metaStyle.Render(fmt.Sprintf("retrieved %d/%d chunks in %dms",
				t.meta.ChunksRetrieved, t.meta.ChunksTotal, t.meta.ElapsedMS)))
		}
	}
	return sb.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	metaStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
