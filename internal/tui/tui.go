// Package tui is the interactive minutes workspace: pick a document,
// generate minutes, then refine them with critiques.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/strrl/minutes-workspace/internal/config"
	"github.com/strrl/minutes-workspace/internal/view"
	"github.com/strrl/minutes-workspace/internal/workspace"
)

const (
	appTitle = "Elaboración de actas de reunión"

	// filepicker reserves this many rows below the listing when it sizes
	// itself from a WindowSizeMsg.
	pickerMarginBottom = 5

	draftHeight = 4

	// Rows around the viewport in the review stage: header, banner, notice,
	// draft label, draft border, status and help.
	reviewChrome = 12
	// Rows around the picker in the upload stage.
	uploadChrome = 10
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("63")).
			Padding(0, 1)

	cardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	draftStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	draftFocusedStyle = draftStyle.Copy().
				BorderForeground(lipgloss.Color("212"))
)

// Options configures Run.
type Options struct {
	Service  workspace.Service
	Logger   zerolog.Logger
	StartDir string
	// File is selected before the program starts when set.
	File string
}

type model struct {
	ctx     context.Context
	service workspace.Service
	session *workspace.Session
	logger  zerolog.Logger

	startDir string
	picker   filepicker.Model
	draft    textarea.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap
	loading  *LoadingIndicator

	notice  workspace.Notice
	editing bool
	ready   bool
	width   int
	height  int
}

func initialModel(ctx context.Context, opts Options) model {
	logger := opts.Logger.With().Str("component", "tui").Logger()

	draft := textarea.New()
	draft.Placeholder = "Escribe aquí tu crítica del acta..."
	draft.ShowLineNumbers = false
	draft.CharLimit = 0
	draft.SetHeight(draftHeight)

	m := model{
		ctx:      ctx,
		service:  opts.Service,
		session:  workspace.New(opts.Service, opts.Logger),
		logger:   logger,
		startDir: opts.StartDir,
		draft:    draft,
		viewport: viewport.New(80, 20),
		help:     help.New(),
		keys:     defaultKeyMap(),
		loading:  NewLoadingIndicator(""),
	}
	m.picker = newPicker(opts.StartDir)
	m.updateKeys()
	return m
}

func newPicker(dir string) filepicker.Model {
	fp := filepicker.New()
	fp.AllowedTypes = config.AllowedExtensions
	if dir != "" {
		fp.CurrentDirectory = dir
	}
	return fp
}

func (m model) Init() tea.Cmd {
	return m.picker.Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, m.resize()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.updateKeys()
		if m.session.Stage() == workspace.StageUpload {
			return m.updateUpload(msg)
		}
		return m.updateReview(msg)

	case GenerationFinishedMsg:
		err := m.session.FinishGeneration(msg.Result, msg.Err)
		if err != nil {
			m.logger.Debug().Str("request_id", msg.RequestID).Err(err).Msg("generation failed")
		} else {
			m.draft.SetValue(m.session.Draft())
		}
		m.notice = workspace.NoticeNone
		m.refreshContent()
		return m, nil

	case CritiqueFinishedMsg:
		notice, err := m.session.FinishCritique(msg.Result, msg.Err)
		if err != nil {
			m.logger.Debug().Str("request_id", msg.RequestID).Err(err).Msg("critique failed")
		} else {
			m.draft.SetValue(m.session.Draft())
		}
		m.notice = notice
		m.refreshContent()
		return m, nil

	case RefreshRequestedMsg:
		m.picker = newPicker(m.startDir)
		return m, tea.Batch(m.picker.Init(), m.resizePicker())

	case TickMsg:
		if m.busy() {
			m.loading.Tick()
			return m, tickCmd()
		}
		return m, nil
	}

	// Directory listings and cursor blinks.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	cmds = append(cmds, cmd)
	m.draft, cmd = m.draft.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Generate):
		st := m.session.State()
		if st.Generating || st.File == nil {
			return m, nil
		}
		req, err := m.session.BeginGeneration()
		if err != nil {
			return m, nil
		}
		m.notice = workspace.NoticeNone
		m.loading.SetMessage("Generando acta...")
		m.updateKeys()
		return m, tea.Batch(generateCmd(m.ctx, m.service, req), tickCmd())
	}

	if m.session.State().Generating {
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		if err := m.session.SelectFile(path); err != nil {
			m.logger.Warn().Err(err).Str("path", path).Msg("could not select file")
		}
		m.notice = workspace.NoticeNone
		m.updateKeys()
	}
	return m, cmd
}

func (m model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Critique) {
		return m.submitCritique()
	}

	if m.editing {
		if key.Matches(msg, m.keys.Done) {
			m.editing = false
			m.draft.Blur()
			m.updateKeys()
			return m, nil
		}
		var cmd tea.Cmd
		m.draft, cmd = m.draft.Update(msg)
		m.session.SetDraft(m.draft.Value())
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Edit):
		m.editing = true
		m.updateKeys()
		return m, m.draft.Focus()

	case key.Matches(msg, m.keys.Save):
		m.notice = m.session.Save()
		return m, nil

	case key.Matches(msg, m.keys.Restart):
		if m.busy() {
			return m, nil
		}
		refresh := m.session.Restart()
		m.draft.Reset()
		m.draft.Blur()
		m.editing = false
		m.notice = workspace.NoticeNone
		m.viewport.SetContent("")
		m.viewport.GotoTop()
		m.updateKeys()
		return m, refreshCmd(refresh)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) submitCritique() (tea.Model, tea.Cmd) {
	if m.session.State().SendingCritique {
		return m, nil
	}
	m.session.SetDraft(m.draft.Value())
	req, err := m.session.BeginCritique()
	if err != nil {
		return m, nil
	}
	m.notice = workspace.NoticeNone
	m.loading.SetMessage("Procesando crítica...")
	m.updateKeys()
	return m, tea.Batch(critiqueCmd(m.ctx, m.service, req), tickCmd())
}

func (m model) busy() bool {
	st := m.session.State()
	return st.Generating || st.SendingCritique
}

// updateKeys enables the bindings that apply to the current stage so the
// help line only lists what works. Generate and Critique stay bound while
// their request is in flight so a repeated press is swallowed.
func (m *model) updateKeys() {
	st := m.session.State()
	upload := m.session.Stage() == workspace.StageUpload

	m.keys.Pick.SetEnabled(upload && !st.Generating)
	m.keys.Generate.SetEnabled(upload)
	m.keys.Scroll.SetEnabled(!upload && !m.editing)
	m.keys.Edit.SetEnabled(!upload && !m.editing)
	m.keys.Done.SetEnabled(!upload && m.editing)
	m.keys.Critique.SetEnabled(!upload)
	m.keys.Save.SetEnabled(!upload && !m.editing)
	m.keys.Restart.SetEnabled(!upload && !m.editing && !st.SendingCritique)
	m.keys.Quit.SetEnabled(!m.editing)
}

func (m *model) resize() tea.Cmd {
	m.help.Width = m.width

	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-reviewChrome-draftHeight, 3)
	m.draft.SetWidth(max(m.width-2, 10))
	m.refreshContent()

	return m.resizePicker()
}

// resizePicker sizes the picker through its own WindowSizeMsg handling,
// which also recomputes the visible window of entries.
func (m *model) resizePicker() tea.Cmd {
	if !m.ready {
		return nil
	}
	height := max(m.height-uploadChrome, 3)
	m.picker.Height = height
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(tea.WindowSizeMsg{Width: m.width, Height: height + pickerMarginBottom})
	return cmd
}

func (m *model) refreshContent() {
	m.updateKeys()
	st := m.session.State()
	if st.Minutes == nil {
		return
	}
	m.viewport.SetContent(view.Minutes(*st.Minutes, st.Critiques, m.viewport.Width))
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render(appTitle) + "\n")

	if msg := m.session.ErrorMessage(); msg != "" {
		s.WriteString(errorStyle.Width(max(m.width-4, 10)).Render("Error\n"+msg) + "\n")
	}
	if m.notice != workspace.NoticeNone {
		s.WriteString(noticeStyle.Render(string(m.notice)) + "\n")
	}
	s.WriteString("\n")

	if m.session.Stage() == workspace.StageUpload {
		s.WriteString(m.renderUpload())
	} else {
		s.WriteString(m.renderReview())
	}

	s.WriteString("\n" + m.help.View(m.keys))
	return s.String()
}

func (m model) renderUpload() string {
	var s strings.Builder
	st := m.session.State()

	s.WriteString(cardTitleStyle.Render("Generar Acta") + "\n")
	s.WriteString(dimStyle.Render("Selecciona el documento (.pdf o .txt):") + "\n")
	s.WriteString(m.picker.View() + "\n")

	if st.File != nil {
		s.WriteString("Documento: " + st.File.Name + "\n")
	} else {
		s.WriteString(dimStyle.Render("Ningún documento seleccionado") + "\n")
	}

	if st.Generating {
		s.WriteString(m.loading.View() + "\n")
	}
	return s.String()
}

func (m model) renderReview() string {
	var s strings.Builder
	st := m.session.State()

	s.WriteString(m.viewport.View() + "\n")
	s.WriteString(cardTitleStyle.Render("Crítica") + "\n")

	box := draftStyle
	if m.editing {
		box = draftFocusedStyle
	}
	s.WriteString(box.Render(m.draft.View()) + "\n")

	if st.SendingCritique {
		s.WriteString(m.loading.View() + "\n")
	}
	return s.String()
}

// Run starts the workspace TUI and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := initialModel(ctx, opts)
	if opts.File != "" {
		if err := m.session.SelectFile(opts.File); err != nil {
			return err
		}
		m.updateKeys()
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
