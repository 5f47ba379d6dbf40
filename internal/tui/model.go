// Package tui is the terminal chat front end: a message viewport on the left,
// projects and files of the selected project on the right.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"sparky/internal/app"
	"sparky/internal/chat"
	"sparky/internal/project"
	"sparky/internal/settings"
)

const (
	sidebarWidth = 34
	eventBuffer  = 256
)

// eventMsg wakes the model after the controller changed state.
type eventMsg app.Event

type Model struct {
	ctrl   *app.Controller
	events chan app.Event

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	messages []chat.Message
	projects []project.Project
	selected string
	typing   bool
	preview  *project.File
	notice   string
	err      error
}

// New wires the model to ctrl. Controller events are buffered and drained
// by the tea runtime, so timers never wait on rendering.
func New(ctrl *app.Controller) Model {
	ti := textinput.New()
	ti.Placeholder = "Describe what to build... (Enter to send, /help for commands)"
	ti.Prompt = "│ "
	ti.CharLimit = 2048
	ti.Width = 80
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	events := make(chan app.Event, eventBuffer)
	m := Model{
		ctrl:     ctrl,
		events:   events,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		renderer: newRenderer(80),
	}
	ctrl.Subscribe(func(ev app.Event) {
		select {
		case events <- ev:
		default:
			// the next drained event resyncs everything anyway
		}
	})
	m.sync()
	return m
}

func newRenderer(width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

func waitForEvent(ch <-chan app.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if msg.Type == tea.KeyEsc && m.preview != nil {
				m.preview = nil
				m.refreshViewport()
				return m, nil
			}
			return m, tea.Quit
		case tea.KeyEnter:
			m.submit(m.input.Value())
			m.input.Reset()
			return m, nil
		case tea.KeyTab:
			m.cycleProject()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case eventMsg:
		m.sync()
		cmds = append(cmds, waitForEvent(m.events))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var tiCmd, vpCmd tea.Cmd
	m.input, tiCmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, tiCmd, vpCmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height

	chatWidth := width - sidebarWidth - 4
	if chatWidth < 20 {
		chatWidth = 20
	}
	vpHeight := height - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = chatWidth
	m.viewport.Height = vpHeight
	m.input.Width = width - 4
	m.renderer = newRenderer(chatWidth - 4)
	m.ready = true
	m.refreshViewport()
}

// sync pulls the controller state; events only say that something changed.
func (m *Model) sync() {
	m.messages = m.ctrl.Messages()
	m.projects = m.ctrl.Projects()
	m.typing = m.ctrl.Typing()
	m.selected = ""
	if sel, ok := m.ctrl.SelectedProject(); ok {
		m.selected = sel.ID
	}
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if m.preview != nil {
		m.viewport.SetContent(m.renderPreview(*m.preview))
		m.viewport.GotoTop()
		return
	}
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m *Model) submit(raw string) {
	input := strings.TrimSpace(raw)
	m.notice, m.err = "", nil
	if input == "" {
		return
	}
	if strings.HasPrefix(input, "/") {
		m.runCommand(input)
		m.sync()
		return
	}
	m.preview = nil
	m.ctrl.Send(raw)
	m.sync()
}

func (m *Model) runCommand(input string) {
	cmd, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "help":
		m.notice = "/select <id>  /file <name>  /new <name>  /apikey <key>  Tab: next project  Esc: close file"
	case "select":
		if err := m.ctrl.SelectProject(arg); err != nil {
			m.err = fmt.Errorf("project %q not found", arg)
		}
	case "file":
		sel, ok := m.ctrl.SelectedProject()
		if !ok {
			m.err = fmt.Errorf("no project selected")
			return
		}
		f, err := m.ctrl.File(sel.ID, arg)
		if err != nil {
			m.err = fmt.Errorf("file %q not found in %s", arg, sel.Name)
			return
		}
		m.preview = &f
	case "new":
		p, err := m.ctrl.CreateProject(arg, "")
		if err != nil {
			m.err = err
			return
		}
		m.notice = "Created " + p.Name
	case "apikey":
		if err := m.ctrl.SetAPIKey(context.Background(), arg); err != nil {
			m.err = err
			return
		}
		m.notice = "API key: " + settings.Mask(m.ctrl.APIKey())
	default:
		m.err = fmt.Errorf("unknown command /%s", cmd)
	}
}

func (m *Model) cycleProject() {
	if len(m.projects) == 0 {
		return
	}
	next := 0
	for i, p := range m.projects {
		if p.ID == m.selected {
			next = (i + 1) % len(m.projects)
			break
		}
	}
	_ = m.ctrl.SelectProject(m.projects[next].ID)
	m.sync()
}

func (m Model) renderMarkdown(s string) string {
	if m.renderer == nil {
		return s
	}
	out, err := m.renderer.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) renderHistory() string {
	var sb strings.Builder
	for _, msg := range m.messages {
		stamp := timeStyle.Render(msg.Timestamp.Local().Format("15:04"))
		if msg.Type == chat.TypeUser {
			sb.WriteString(userStyle.Render("You") + " " + stamp + "\n")
			sb.WriteString(msg.Content + "\n\n")
			continue
		}
		sb.WriteString(assistantStyle.Render("Sparky") + " " + stamp + "\n")
		sb.WriteString(m.renderMarkdown(msg.Content) + "\n\n")
	}
	return sb.String()
}

func (m Model) renderPreview(f project.File) string {
	header := titleStyle.Render(f.Name) + " " + dimStyle.Render("("+f.Type+", Esc to close)")
	return header + "\n\n" + m.renderMarkdown("```"+codeLang(f.Type)+"\n"+f.Content+"\n```")
}

func codeLang(fileType string) string {
	switch fileType {
	case "javascript":
		return "jsx"
	case "markdown":
		return "md"
	default:
		return fileType
	}
}

func (m Model) renderSidebar() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Projects") + "\n")
	var sel *project.Project
	for i := range m.projects {
		p := &m.projects[i]
		name := p.Name
		if p.ID == m.selected {
			sel = p
			name = selectedStyle.Render("▶ " + name)
		} else {
			name = "  " + name
		}
		sb.WriteString(name + "\n    " + statusBadge(p.Status) + "\n")
	}

	if sel != nil {
		sb.WriteString("\n" + titleStyle.Render("Files") + "\n")
		if len(sel.Files) == 0 {
			sb.WriteString(dimStyle.Render("  (empty)") + "\n")
		}
		writeTree(&sb, project.Tree(*sel).Children, "  ")
	}
	return sidebarStyle.Width(sidebarWidth).Render(strings.TrimRight(sb.String(), "\n"))
}

func writeTree(sb *strings.Builder, nodes []*project.FileNode, indent string) {
	for _, n := range nodes {
		if n.Type == "directory" {
			sb.WriteString(indent + n.Name + "/\n")
			writeTree(sb, n.Children, indent+"  ")
			continue
		}
		sb.WriteString(indent + n.Name + "\n")
	}
}

func (m Model) View() string {
	header := titleStyle.Render("⚡ Sparky") + dimStyle.Render("  AI development assistant")

	status := ""
	switch {
	case m.err != nil:
		status = errorStyle.Render(m.err.Error())
	case m.typing:
		status = m.spinner.View() + " Sparky is thinking..."
	case m.notice != "":
		status = dimStyle.Render(m.notice)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), " ", m.renderSidebar())
	return lipgloss.JoinVertical(lipgloss.Left, header, body, status, m.input.View())
}

// Run blocks until the user quits.
func Run(ctrl *app.Controller) error {
	p := tea.NewProgram(New(ctrl), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
