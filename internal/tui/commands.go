package tui

import (
	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/service"
	"github.com/Veraticus/spent/internal/viewmodel"
	tea "github.com/charmbracelet/bubbletea"
)

// waitForState delivers the next state published by the machine.
func waitForState(states <-chan viewmodel.ListState) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-states
		if !ok {
			return streamClosedMsg{}
		}
		return stateMsg{state: s}
	}
}

// waitForEffect delivers the next one-shot outcome.
func waitForEffect(effects <-chan viewmodel.ListEffect) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-effects
		if !ok {
			return nil
		}
		return effectMsg{effect: e}
	}
}

// The machine reports outcomes through its effect queue, so intent commands
// return no message of their own unless the request itself is rejected.

func (m Model) deleteExpense(e model.Expense) tea.Cmd {
	ctx, machine := m.ctx, m.machine
	return func() tea.Msg {
		machine.DeleteExpense(ctx, e)
		return nil
	}
}

func (m Model) deleteAll() tea.Cmd {
	ctx, machine := m.ctx, m.machine
	return func() tea.Msg {
		machine.DeleteAllExpenses(ctx)
		return nil
	}
}

func (m Model) updateSortMode(mode model.SortMode) tea.Cmd {
	ctx, machine := m.ctx, m.machine
	return func() tea.Msg {
		machine.UpdateSortMode(ctx, mode)
		return nil
	}
}

func (m Model) download(format service.ExportFormat) tea.Cmd {
	ctx, machine := m.ctx, m.machine
	return func() tea.Msg {
		machine.DownloadData(ctx, format)
		return nil
	}
}

func (m Model) filterMonth(r model.DateRange) tea.Cmd {
	machine := m.machine
	return func() tea.Msg {
		if err := machine.UpdateDateRange(r); err != nil {
			return errorMsg{err: err, context: "Could not filter expenses"}
		}
		return nil
	}
}

func (m Model) clearFilter() tea.Cmd {
	machine := m.machine
	return func() tea.Msg {
		if err := machine.RemoveDateRange(); err != nil {
			return errorMsg{err: err, context: "Could not clear filter"}
		}
		return nil
	}
}
