// Package tui is the console practice interface. It only calls the runner's
// documented operations and renders the events it receives.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwtutor/internal/input"
	"github.com/ColonelBlimp/cwtutor/internal/keyer"
	"github.com/ColonelBlimp/cwtutor/internal/morse"
	"github.com/ColonelBlimp/cwtutor/internal/practice"
	"github.com/ColonelBlimp/cwtutor/internal/profile"
	"github.com/ColonelBlimp/cwtutor/internal/report"
	"github.com/ColonelBlimp/cwtutor/internal/trainer"
)

const maxEcho = 48

// Engine is the part of the runner the interface drives.
type Engine interface {
	Start(ctx context.Context, src practice.Source) (practice.Target, error)
	Finish(ctx context.Context) (practice.Summary, error)
	Abort(ctx context.Context) error
}

// Paddle sends synthesized elements.
type Paddle interface {
	Dit() bool
	Dah() bool
	Cancel()
}

// Options wires the interface to the engine.
type Options struct {
	Engine Engine
	Queue  *input.Queue
	// Paddle enables paddle mode, nil for typing only
	Paddle   Paddle
	Table    *morse.Table
	Profile  string
	Settings profile.Settings
	Source   practice.Source
	// LoadPassage opens a passage file and remembers it in the profile
	LoadPassage func(path string) (practice.Source, error)
	// Scores reads the profile's lifetime statistics
	Scores func() (profile.Scores, error)
	Logger *zap.Logger
}

// EventMsg carries a runner event into the program.
type EventMsg struct {
	Event trainer.Event
}

// Forward returns a runner callback that sends events to p.
func Forward(p *tea.Program) trainer.Callback {
	return func(ev trainer.Event) {
		p.Send(EventMsg{Event: ev})
	}
}

type startedMsg struct{ err error }

type finishedMsg struct{ err error }

type abortedMsg struct{ err error }

type scoresMsg struct {
	scores profile.Scores
	err    error
}

type passageMsg struct {
	src  practice.Source
	path string
	err  error
}

type mode int

const (
	modeTyping mode = iota
	modePaddle
)

func (m mode) String() string {
	if m == modePaddle {
		return "paddle"
	}
	return "typing"
}

type screen int

const (
	screenPractice screen = iota
	screenStats
	screenOpen
)

type result int

const (
	pending result = iota
	hit
	miss
)

// Model implements tea.Model.
type Model struct {
	opts   Options
	ctx    context.Context
	keys   keyMap
	help   help.Model
	styles styles
	logger *zap.Logger

	width  int
	height int
	mode   mode
	screen screen
	source practice.Source

	target     practice.Target
	results    []result
	cursor     int
	running    bool
	progress   practice.Progress
	summary    *practice.Summary
	echo       []string
	keying     string
	keyerState keyer.State

	status    string
	statusErr bool

	stats table.Model
	path  textinput.Model
}

// New creates the model. ctx bounds every engine call.
func New(ctx context.Context, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Table == nil {
		opts.Table = morse.Default()
	}
	pal, ok := LookupPalette(opts.Settings.Palette)
	if !ok && opts.Settings.Palette != "" {
		logger.Warn("unknown palette, using default", zap.String("palette", opts.Settings.Palette))
	}
	if opts.Settings.ReverseColors {
		pal = pal.Reversed()
	}

	ti := textinput.New()
	ti.Placeholder = "path to a text file"
	ti.Prompt = "open: "
	ti.SetValue(opts.Settings.LastLoadedFile)

	return &Model{
		opts:   opts,
		ctx:    ctx,
		keys:   newKeyMap(opts.Settings.KeyBindings, opts.Settings.SwapPaddle),
		help:   help.New(),
		styles: newStyles(pal),
		logger: logger,
		source: opts.Source,
		path:   ti,
		stats:  table.New(table.WithColumns(statsColumns()), table.WithFocused(true)),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.stats.SetHeight(max(3, msg.Height-6))
		return m, nil
	case EventMsg:
		m.handleEvent(msg.Event)
		return m, nil
	case startedMsg:
		if msg.err != nil {
			m.setError("cannot start: %v", msg.err)
		}
		return m, nil
	case finishedMsg:
		if msg.err != nil {
			m.setError("finish: %v", msg.err)
		}
		return m, nil
	case abortedMsg:
		if msg.err != nil {
			m.setError("abort: %v", msg.err)
		}
		return m, nil
	case scoresMsg:
		if msg.err != nil {
			m.setError("stats: %v", msg.err)
			return m, nil
		}
		m.stats.SetRows(statsRows(msg.scores))
		m.screen = screenStats
		return m, nil
	case passageMsg:
		if msg.err != nil {
			m.setError("open %s: %v", msg.path, msg.err)
			return m, nil
		}
		m.source = msg.src
		m.setStatus("passage %s loaded, enter to start", msg.path)
		return m, nil
	case tea.KeyMsg:
		switch m.screen {
		case screenOpen:
			return m.updateOpen(msg)
		case screenStats:
			return m.updateStats(msg)
		default:
			return m.updatePractice(msg)
		}
	}
	return m, nil
}

func (m *Model) updatePractice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.NewRound):
		return m, m.startCmd()
	case key.Matches(msg, m.keys.Abort):
		if m.opts.Paddle != nil {
			m.opts.Paddle.Cancel()
		}
		return m, m.abortCmd()
	case key.Matches(msg, m.keys.Finish):
		if !m.running {
			return m, nil
		}
		return m, m.finishCmd()
	case key.Matches(msg, m.keys.Mode):
		if m.opts.Paddle == nil {
			m.setStatus("paddle mode is not available")
			return m, nil
		}
		if m.mode == modeTyping {
			m.mode = modePaddle
		} else {
			m.mode = modeTyping
		}
		return m, nil
	case key.Matches(msg, m.keys.Open):
		if m.opts.LoadPassage == nil {
			return m, nil
		}
		m.screen = screenOpen
		return m, m.path.Focus()
	case key.Matches(msg, m.keys.Groups):
		m.source = practice.GroupSource{Groups: m.opts.Settings.PracticeGroups, Length: m.opts.Settings.SampleLength}
		m.setStatus("practising groups %s", strings.Join(m.opts.Settings.PracticeGroups, ", "))
		return m, nil
	case key.Matches(msg, m.keys.Stats):
		return m, m.scoresCmd()
	}

	if m.mode == modePaddle {
		switch {
		case key.Matches(msg, m.keys.Dit):
			m.opts.Paddle.Dit()
		case key.Matches(msg, m.keys.Dah):
			m.opts.Paddle.Dah()
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeySpace:
		m.push(" ")
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.push(string(r))
		}
	}
	return m, nil
}

func (m *Model) updateOpen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.path.Blur()
		m.screen = screenPractice
		return m, nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.path.Value())
		m.path.Blur()
		m.screen = screenPractice
		if path == "" {
			return m, nil
		}
		load := m.opts.LoadPassage
		return m, func() tea.Msg {
			src, err := load(path)
			return passageMsg{src: src, path: path, err: err}
		}
	}
	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func (m *Model) updateStats(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Abort), key.Matches(msg, m.keys.Stats):
		m.screen = screenPractice
		return m, nil
	}
	var cmd tea.Cmd
	m.stats, cmd = m.stats.Update(msg)
	return m, cmd
}

func (m *Model) push(char string) {
	if m.opts.Queue == nil {
		return
	}
	if !m.opts.Queue.Push(input.Event{Kind: input.Typed, Char: char}) {
		m.logger.Warn("input queue full, dropped typed character", zap.String("char", char))
	}
}

func (m *Model) handleEvent(ev trainer.Event) {
	switch ev.Kind {
	case trainer.SessionStarted:
		m.target = ev.Target
		m.results = make([]result, len(ev.Target.Tokens))
		m.cursor = 0
		for m.cursor < len(m.target.Tokens) && m.target.Tokens[m.cursor] == " " {
			m.cursor++
		}
		m.running = true
		m.summary = nil
		m.progress = practice.Progress{}
		m.echo = nil
		m.keying = ""
		m.status, m.statusErr = "", false
	case trainer.ProgressUpdated:
		if m.cursor < len(m.results) {
			if ev.Progress.Correct {
				m.results[m.cursor] = hit
			} else {
				m.results[m.cursor] = miss
			}
		}
		m.cursor = ev.Progress.Index
		m.progress = ev.Progress
	case trainer.SessionFinished:
		m.running = false
		m.summary = ev.Summary
	case trainer.SessionAborted:
		m.running = false
		m.summary = nil
		m.keying = ""
		m.setStatus("round aborted, enter for a new one")
	case trainer.ElementKeyed:
		m.keying += ev.Symbols
	case trainer.CharacterDecoded:
		m.keying = ""
		m.addEcho(ev.Char)
	case trainer.WordSeparator:
		m.addEcho(" ")
	case trainer.DecodeFailed:
		m.keying = ""
		m.addEcho("?")
	case trainer.KeyerStateChanged:
		m.keyerState = ev.KeyerState
	case trainer.Failed:
		m.setError("%v", ev.Err)
	}
}

func (m *Model) addEcho(s string) {
	m.echo = append(m.echo, s)
	if len(m.echo) > maxEcho {
		m.echo = m.echo[len(m.echo)-maxEcho:]
	}
}

func (m *Model) setStatus(format string, args ...any) {
	m.status, m.statusErr = fmt.Sprintf(format, args...), false
}

func (m *Model) setError(format string, args ...any) {
	m.status, m.statusErr = fmt.Sprintf(format, args...), true
	m.logger.Warn("tui error", zap.String("message", m.status))
}

func (m *Model) startCmd() tea.Cmd {
	ctx, eng, src := m.ctx, m.opts.Engine, m.source
	return func() tea.Msg {
		_, err := eng.Start(ctx, src)
		return startedMsg{err: err}
	}
}

func (m *Model) finishCmd() tea.Cmd {
	ctx, eng := m.ctx, m.opts.Engine
	return func() tea.Msg {
		_, err := eng.Finish(ctx)
		return finishedMsg{err: err}
	}
}

func (m *Model) abortCmd() tea.Cmd {
	ctx, eng := m.ctx, m.opts.Engine
	return func() tea.Msg {
		return abortedMsg{err: eng.Abort(ctx)}
	}
}

func (m *Model) scoresCmd() tea.Cmd {
	load := m.opts.Scores
	if load == nil {
		return nil
	}
	return func() tea.Msg {
		s, err := load()
		return scoresMsg{scores: s, err: err}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.screen {
	case screenStats:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.styles.title.Render("Lifetime accuracy"),
			m.stats.View(),
			m.styles.muted.Render("esc to return"))
	case screenOpen:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.styles.title.Render("Open passage"),
			m.path.View(),
			m.styles.muted.Render("enter to load, esc to cancel"))
	default:
		body = m.practiceView()
	}
	if m.width == 0 || m.height == 0 {
		return body
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body,
		lipgloss.WithWhitespaceBackground(m.styles.base.GetBackground()))
}

func (m *Model) practiceView() string {
	s := m.styles
	lines := []string{
		s.title.Render(fmt.Sprintf("CW Tutor · %s · %s · %d WPM", m.opts.Profile, m.mode, m.opts.Settings.WPM)),
		"",
	}

	if len(m.target.Tokens) == 0 {
		lines = append(lines, s.muted.Render("press enter to start a round"))
	} else {
		lines = append(lines, m.renderTarget())
	}
	lines = append(lines, "", s.base.Render("> "+strings.Join(m.echo, "")+m.keying))

	if m.running {
		hint := ""
		if m.cursor < len(m.target.Tokens) {
			tok := m.target.Tokens[m.cursor]
			if sym, ok := m.opts.Table.Symbols(tok); ok {
				hint = fmt.Sprintf("next %s %s", displayToken(tok), sym)
			}
		}
		lines = append(lines, s.muted.Render(fmt.Sprintf("%s  accuracy %.1f%%  %.1f WPM  %s",
			hint, m.progress.Accuracy, m.progress.WPM, m.keyerState)))
	}

	if m.summary != nil {
		lines = append(lines, "", s.panel.Render(strings.Join(report.SummaryLines(*m.summary), "\n")))
	}
	if m.status != "" {
		st := s.muted
		if m.statusErr {
			st = s.err
		}
		lines = append(lines, "", st.Render(m.status))
	}
	lines = append(lines, "", m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderTarget colours each token by its result and wraps at the usable width.
func (m *Model) renderTarget() string {
	limit := m.width * 3 / 4
	if limit < 20 {
		limit = 60
	}

	var out strings.Builder
	width := 0
	for i, tok := range m.target.Tokens {
		text := displayToken(tok)
		w := runewidth.StringWidth(text)
		if tok == " " && width+w >= limit {
			out.WriteString("\n")
			width = 0
			continue
		}
		st := m.styles.pending
		switch {
		case m.results[i] == hit:
			st = m.styles.correct
		case m.results[i] == miss:
			st = m.styles.incorrect
		case m.running && i == m.cursor:
			st = m.styles.current
		}
		out.WriteString(st.Render(text))
		width += w
	}
	return out.String()
}

func displayToken(tok string) string {
	if runewidth.StringWidth(tok) > 1 {
		return "<" + tok + ">"
	}
	return tok
}

func statsColumns() []table.Column {
	return []table.Column{
		{Title: "Char", Width: 6},
		{Title: "Accuracy", Width: 9},
		{Title: "Correct", Width: 8},
		{Title: "Incorrect", Width: 9},
	}
}

func statsRows(s profile.Scores) []table.Row {
	stats := s.Stats()
	rows := make([]table.Row, 0, len(stats))
	for _, tok := range stats.Weakest() {
		cs := stats[tok]
		rows = append(rows, table.Row{
			displayToken(tok),
			fmt.Sprintf("%.1f%%", practice.Accuracy(cs.Correct, cs.Incorrect)),
			fmt.Sprintf("%d", cs.Correct),
			fmt.Sprintf("%d", cs.Incorrect),
		})
	}
	return rows
}
