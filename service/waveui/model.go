package waveui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brojonat/waveportal/service/feed"
	"github.com/brojonat/waveportal/service/wave"
)

// TimeFormat is how wave timestamps are rendered.
const TimeFormat = "Mon Jan 02 2006 15:04:05 MST"

const maxMessageLength = 4096

// statusFadeDelay is how long a log record stays on the status line.
const statusFadeDelay = 8 * time.Second

// Feed is the part of the wave feed controller the TUI drives.
type Feed interface {
	State() feed.State
	Changes() <-chan struct{}
	ConnectWallet(ctx context.Context)
	FetchAllWaves(ctx context.Context)
	SubmitWave(ctx context.Context, message string)
	SetDraft(ctx context.Context, text string)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
	bioStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	buttonStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("252"))
	alertStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("94")).
			Background(lipgloss.Color("230"))
	waveStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("63")).
			PaddingLeft(1).
			MarginTop(1)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// changedMsg reports that the controller state changed.
type changedMsg struct{}

// alertMsg carries a controller alert.
type alertMsg struct {
	message string
}

// statusFadeMsg clears the status line if nothing newer replaced it.
type statusFadeMsg struct {
	seq int
}

// submitDoneMsg reports that a submission finished, successfully or not.
type submitDoneMsg struct{}

// draftSavedMsg reports that the controller holds text as its draft.
type draftSavedMsg struct {
	text string
}

// Model is the bubbletea model for the wave portal.
type Model struct {
	ctx     context.Context
	feed    Feed
	alerter *Alerter
	keys    KeyMap

	state   feed.State
	alert   string
	sending int

	// At most one draft save is in flight; edits made meanwhile are sent
	// when it returns.
	savingDraft bool

	status      string
	statusLevel slog.Level
	statusSeq   int

	draft  textarea.Model
	list   viewport.Model
	ready  bool
	width  int
	height int
}

// NewModel creates a Model over f. Alerts raised through alerter are shown
// until dismissed. ctx bounds every controller call the model makes.
func NewModel(ctx context.Context, f Feed, alerter *Alerter) Model {
	state := f.State()

	draft := textarea.New()
	draft.Placeholder = "Type your message here"
	draft.ShowLineNumbers = false
	draft.CharLimit = maxMessageLength
	draft.SetHeight(3)
	draft.SetValue(state.Draft)

	model := Model{
		ctx:     ctx,
		feed:    f,
		alerter: alerter,
		keys:    DefaultKeyMap,
		state:   state,
		draft:   draft,
	}
	model.syncFocus()
	return model
}

// Init implements tea.Model. Starts listening for controller changes and
// alerts.
func (model Model) Init() tea.Cmd {
	return tea.Batch(
		listenForChanges(model.feed.Changes()),
		listenForAlerts(model.alerter.alerts()),
		textarea.Blink,
	)
}

// listenForChanges returns a tea.Cmd that blocks until the controller
// signals a change.
func listenForChanges(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// listenForAlerts returns a tea.Cmd that blocks until an alert arrives.
func listenForAlerts(alerts <-chan string) tea.Cmd {
	if alerts == nil {
		return nil
	}
	return func() tea.Msg {
		message, ok := <-alerts
		if !ok {
			return nil
		}
		return alertMsg{message: message}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.draft.SetWidth(message.Width - 2)
		if !model.ready {
			model.list = viewport.New(message.Width, 0)
			model.ready = true
		}
		model.layout()
		return model, nil

	case changedMsg:
		model.state = model.feed.State()
		focusCmd := model.syncFocus()
		model.layout()
		return model, tea.Batch(listenForChanges(model.feed.Changes()), focusCmd)

	case alertMsg:
		model.alert = message.message
		model.layout()
		return model, listenForAlerts(model.alerter.alerts())

	case statusMsg:
		model.status = message.summary
		model.statusLevel = message.level
		model.statusSeq++
		seq := model.statusSeq
		model.layout()
		return model, tea.Tick(statusFadeDelay, func(time.Time) tea.Msg {
			return statusFadeMsg{seq: seq}
		})

	case statusFadeMsg:
		if message.seq == model.statusSeq {
			model.status = ""
			model.layout()
		}
		return model, nil

	case submitDoneMsg:
		if model.sending > 0 {
			model.sending--
		}
		return model, nil

	case draftSavedMsg:
		model.savingDraft = false
		if latest := model.draft.Value(); latest != message.text {
			cmd := model.saveDraft(latest)
			return model, cmd
		}
		return model, nil

	case tea.KeyMsg:
		return model.handleKey(message)
	}

	if model.draft.Focused() {
		var cmd tea.Cmd
		model.draft, cmd = model.draft.Update(message)
		return model, cmd
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Dismiss):
		model.alert = ""
		model.layout()
		return model, nil

	case key.Matches(message, model.keys.Send):
		model.sending++
		return model, model.submit(model.draft.Value())

	case key.Matches(message, model.keys.Refresh):
		return model, func() tea.Msg {
			model.feed.FetchAllWaves(model.ctx)
			return nil
		}

	case key.Matches(message, model.keys.PageUp):
		model.list.HalfViewUp()
		return model, nil

	case key.Matches(message, model.keys.PageDown):
		model.list.HalfViewDown()
		return model, nil
	}

	if !model.state.Connected() {
		if key.Matches(message, model.keys.Connect) {
			return model, func() tea.Msg {
				model.feed.ConnectWallet(model.ctx)
				return nil
			}
		}
		return model, nil
	}

	before := model.draft.Value()
	var cmd tea.Cmd
	model.draft, cmd = model.draft.Update(message)
	if after := model.draft.Value(); after != before && !model.savingDraft {
		cmd = tea.Batch(cmd, model.saveDraft(after))
	}
	return model, cmd
}

func (model Model) submit(message string) tea.Cmd {
	return func() tea.Msg {
		model.feed.SubmitWave(model.ctx, message)
		return submitDoneMsg{}
	}
}

// saveDraft marks a save in flight and returns the command performing it.
func (model *Model) saveDraft(text string) tea.Cmd {
	model.savingDraft = true
	ctx, f := model.ctx, model.feed
	return func() tea.Msg {
		f.SetDraft(ctx, text)
		return draftSavedMsg{text: text}
	}
}

// layout sizes the wave list to the space left under the top section and
// refreshes its content.
func (model *Model) layout() {
	if !model.ready {
		return
	}
	model.list.Width = model.width
	model.list.Height = max(model.height-lipgloss.Height(model.renderTop())-lipgloss.Height(model.renderHelp()), 1)
	model.list.SetContent(model.renderWaves())
}

// syncFocus focuses the draft textarea once a wallet is connected.
func (model *Model) syncFocus() tea.Cmd {
	if model.state.Connected() {
		if !model.draft.Focused() {
			return model.draft.Focus()
		}
		return nil
	}
	model.draft.Blur()
	return nil
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}
	return model.renderTop() + "\n" + model.list.View() + "\n" + model.renderHelp()
}

func (model Model) renderStatus() string {
	if model.status == "" {
		return ""
	}
	if model.statusLevel >= slog.LevelWarn {
		return errorStyle.Render(model.status) + "\n"
	}
	return infoStyle.Render(model.status) + "\n"
}

func (model Model) renderTop() string {
	var b strings.Builder

	b.WriteString(headerStyle.Width(model.width).Render("👋 WELCOME!"))
	b.WriteString("\n")
	b.WriteString(bioStyle.Render("Connect your Ethereum wallet and send me a 👋 (wave) ✨"))
	b.WriteString("\n")

	if model.alert != "" {
		b.WriteString("\n")
		b.WriteString(alertStyle.Render(model.alert))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(buttonStyle.Render("Wave at Me"))
	if model.sending > 0 {
		b.WriteString(fmt.Sprintf("  sending %d...", model.sending))
	}
	b.WriteString("\n\n")

	if model.state.Connected() {
		b.WriteString(buttonStyle.Render("Wallet Connected"))
		b.WriteString("  " + model.state.Account)
		b.WriteString("\n\n")
		b.WriteString(model.draft.View())
	} else {
		b.WriteString(buttonStyle.Render("Connect Wallet"))
	}

	return b.String()
}

func (model Model) renderWaves() string {
	if !model.state.Connected() {
		return ""
	}

	var b strings.Builder
	for _, w := range wave.Display(model.state.Waves) {
		b.WriteString(waveStyle.Render(fmt.Sprintf(
			"Address: %s\nTime: %s\nMessage: %s",
			w.Address, w.Timestamp.Format(TimeFormat), w.Message,
		)))
		b.WriteString("\n")
	}
	return b.String()
}

func (model Model) renderHelp() string {
	bindings := []key.Binding{model.keys.Send, model.keys.Refresh}
	if !model.state.Connected() {
		bindings = append([]key.Binding{model.keys.Connect}, bindings...)
	}
	if model.alert != "" {
		bindings = append(bindings, model.keys.Dismiss)
	}
	bindings = append(bindings, model.keys.Quit)

	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return model.renderStatus() + helpStyle.Render(strings.Join(parts, " • "))
}
