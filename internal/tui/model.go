// Package tui is the terminal expense browser. It renders the list state
// machine and turns key presses into list intents.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/service"
	"github.com/Veraticus/spent/internal/tui/themes"
	"github.com/Veraticus/spent/internal/viewmodel"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ListController is the list state machine as the browser drives it.
type ListController interface {
	State() viewmodel.ListState
	Watch(ctx context.Context) <-chan viewmodel.ListState
	Effects() <-chan viewmodel.ListEffect
	DeleteExpense(ctx context.Context, expense model.Expense)
	UpdateSortMode(ctx context.Context, mode model.SortMode)
	UpdateDateRange(dateRange model.DateRange) error
	RemoveDateRange() error
	DownloadData(ctx context.Context, format service.ExportFormat)
	DeleteAllExpenses(ctx context.Context)
}

// Model holds the browser state.
type Model struct {
	ctx              context.Context
	machine          ListController
	states           <-chan viewmodel.ListState
	effects          <-chan viewmodel.ListEffect
	now              func() time.Time
	theme            themes.Theme
	statusStyle      lipgloss.Style
	state            viewmodel.ListState
	help             help.Model
	keymap           KeyMap
	status           string
	width            int
	height           int
	cursor           int
	confirmDeleteAll bool
	quitting         bool
}

// New creates a browser over machine. States are watched until ctx is done.
func New(ctx context.Context, machine ListController, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	h := help.New()
	h.ShowAll = cfg.ShowHelp
	h.Width = cfg.Width

	return Model{
		ctx:     ctx,
		machine: machine,
		states:  machine.Watch(ctx),
		effects: machine.Effects(),
		now:     cfg.Now,
		theme:   cfg.Theme,
		state:   machine.State(),
		help:    h,
		keymap:  DefaultKeyMap(),
		width:   cfg.Width,
		height:  cfg.Height,
	}
}

// Init starts listening to the machine.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForState(m.states), waitForEffect(m.effects))
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case stateMsg:
		m.state = msg.state
		m.clampCursor()
		return m, waitForState(m.states)

	case effectMsg:
		m.status, m.statusStyle = m.describeEffect(msg.effect)
		return m, waitForEffect(m.effects)

	case streamClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case errorMsg:
		m.status = fmt.Sprintf("%s: %v", msg.context, msg.err)
		m.statusStyle = m.theme.StatusError

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.ForceQuit) {
		m.quitting = true
		return m, tea.Quit
	}

	if m.confirmDeleteAll {
		switch {
		case key.Matches(msg, m.keymap.Confirm):
			m.confirmDeleteAll = false
			m.setStatus("Deleting all expenses...", m.theme.StatusInfo)
			return m, m.deleteAll()
		case key.Matches(msg, m.keymap.Cancel):
			m.confirmDeleteAll = false
			m.setStatus("", m.theme.StatusInfo)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.state.Expenses)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keymap.Home):
		m.cursor = 0

	case key.Matches(msg, m.keymap.End):
		m.cursor = max(len(m.state.Expenses)-1, 0)

	case key.Matches(msg, m.keymap.Delete):
		if e, ok := m.selected(); ok {
			return m, m.deleteExpense(e)
		}

	case key.Matches(msg, m.keymap.DeleteAll):
		if len(m.state.Expenses) > 0 {
			m.confirmDeleteAll = true
			m.setStatus("Delete all expenses? (y/n)", m.theme.StatusWarning)
		}

	case key.Matches(msg, m.keymap.ToggleSort):
		return m, m.updateSortMode(m.state.SortMode.Toggle())

	case key.Matches(msg, m.keymap.ExportCSV):
		m.setStatus("Exporting CSV...", m.theme.StatusInfo)
		return m, m.download(service.ExportCSV)

	case key.Matches(msg, m.keymap.ExportDB):
		m.setStatus("Exporting database...", m.theme.StatusInfo)
		return m, m.download(service.ExportDB)

	case key.Matches(msg, m.keymap.FilterMonth):
		return m, m.filterMonth(model.MonthRange(m.now()))

	case key.Matches(msg, m.keymap.ClearFilter):
		if m.state.IsFilterEnabled {
			return m, m.clearFilter()
		}

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

func (m *Model) setStatus(text string, style lipgloss.Style) {
	m.status = text
	m.statusStyle = style
}

// selected returns the expense under the cursor.
func (m Model) selected() (model.Expense, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Expenses) {
		return model.Expense{}, false
	}
	return m.state.Expenses[m.cursor], true
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.state.Expenses) {
		m.cursor = len(m.state.Expenses) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) describeEffect(e viewmodel.ListEffect) (string, lipgloss.Style) {
	switch e.Kind {
	case viewmodel.DeletedSuccess:
		return "Expense deleted", m.theme.StatusSuccess
	case viewmodel.DeletedFailure:
		return "Could not delete expense", m.theme.StatusError
	case viewmodel.DownloadSuccess:
		return "Exported to " + e.Path, m.theme.StatusSuccess
	case viewmodel.DownloadFailure:
		return "Export failed", m.theme.StatusError
	case viewmodel.AllDeletedSuccess:
		return "All expenses deleted", m.theme.StatusSuccess
	case viewmodel.AllDeletedFailure:
		return "Could not delete all expenses", m.theme.StatusError
	case viewmodel.SortModeSaveFailed:
		return "Could not save sort order", m.theme.StatusWarning
	default:
		return string(e.Kind), m.theme.StatusInfo
	}
}
