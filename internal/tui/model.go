package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/service"
)

// Asker is the TUI-facing subset of the question answering service.
type Asker interface {
	Ask(ctx context.Context, question string) (*service.Outcome, error)
}

type answerMsg struct {
	outcome *service.Outcome
	err     error
}

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	asker    Asker
	timeout  time.Duration
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	history  []*service.Outcome
	status   string
	cursor   int
	ready    bool
	waiting  bool
}

// New creates a chat model. Each question is bounded by timeout when it is positive.
func New(asker Asker, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{asker: asker, timeout: timeout, input: ti, viewport: vp, spinner: sp, status: "Ready. Up/Down browse earlier answers."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if m.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.timeout)
			defer cancel()
		}
		out, err := m.asker.Ask(ctx, q)
		return answerMsg{outcome: out, err: err}
	}
}

// Update handles key, window and answer events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case answerMsg:
		m.waiting = false
		if msg.outcome != nil {
			m.history = append(m.history, msg.outcome)
			m.cursor = len(m.history) - 1
		}
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Answered from %d source(s)", len(msg.outcome.Sources))
		}
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.waiting = true
			m.status = fmt.Sprintf("Asking %q", q)
			m.input.SetValue("")
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case "up":
			if len(m.history) > 0 {
				m.cursor = (m.cursor - 1 + len(m.history)) % len(m.history)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "down":
			if len(m.history) > 0 {
				m.cursor = (m.cursor + 1) % len(m.history)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout and the selected exchange.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document Q&A")
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.waiting {
		status = m.spinner.View() + " " + status
	}
	status = statusStyle.Render(status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrent() string {
	if len(m.history) == 0 {
		return "No questions yet."
	}
	return renderOutcome(m.history[m.cursor], m.cursor+1, len(m.history))
}

func renderOutcome(o *service.Outcome, n, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d/%d: %s\n\n", n, total, o.Question)
	if o.Failure != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Failed (%s): %s", o.Failure.Kind, o.Failure.Message)))
		b.WriteString("\n")
	} else {
		b.WriteString(highlightBestSentence(o.Answer, o.Question))
		b.WriteString("\n")
	}
	if len(o.Sources) > 0 {
		b.WriteString("\n")
		b.WriteString(sourceStyle.Render("Sources: " + strings.Join(o.Sources, ", ")))
	}
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	wordRe         = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// highlightBestSentence marks the answer sentence sharing the most words with
// the question. Everything else in text is left as it was.
func highlightBestSentence(text, query string) string {
	qTokens := toTokenSet(query)
	if strings.TrimSpace(text) == "" || len(qTokens) == 0 {
		return text
	}
	best, bestScore := [2]int{}, 0
	for _, span := range sentenceSpans(text) {
		if score := overlap(qTokens, text[span[0]:span[1]]); score > bestScore {
			best, bestScore = span, score
		}
	}
	if bestScore == 0 {
		return text
	}
	return text[:best[0]] + highlightStyle.Render(text[best[0]:best[1]]) + text[best[1]:]
}

// sentenceSpans splits text at '.', '!' or '?' followed by whitespace or the
// end of text, so decimals like 5.7 stay whole. Spans exclude the surrounding
// whitespace; a trailing fragment without punctuation is its own span.
func sentenceSpans(text string) [][2]int {
	var spans [][2]int
	start := 0
	add := func(end int) {
		seg := text[start:end]
		lead := len(seg) - len(strings.TrimLeftFunc(seg, unicode.IsSpace))
		trimmed := strings.TrimSpace(seg)
		if trimmed != "" {
			spans = append(spans, [2]int{start + lead, start + lead + len(trimmed)})
		}
		start = end
	}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			j := i + 1
			for j < len(text) && strings.IndexByte(".!?", text[j]) >= 0 {
				j++
			}
			if j == len(text) || unicode.IsSpace(rune(text[j])) {
				add(j)
			}
			i = j - 1
		}
	}
	if start < len(text) {
		add(len(text))
	}
	return spans
}

func toTokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func overlap(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	for t := range toTokenSet(sentence) {
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
