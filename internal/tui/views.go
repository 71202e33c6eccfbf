package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/tui/themes"
	"github.com/charmbracelet/lipgloss"
)

const (
	dateWidth     = 6
	categoryWidth = 16
	amountWidth   = 14
	minTitleWidth = 10
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.renderList(bodyHeight),
		footer,
	)
}

func (m Model) renderHeader() string {
	order := "Newest first"
	if m.state.SortMode == model.SortByDateAscending {
		order = "Oldest first"
	}

	scope := "All expenses"
	if m.state.IsFilterEnabled && m.state.DateRange != nil {
		r := m.state.DateRange
		scope = fmt.Sprintf("%s – %s", r.Start.Format("02.01.2006"), r.End.Format("02.01.2006"))
	}

	subtitle := fmt.Sprintf("%s · %s · %d shown", order, scope, len(m.state.Expenses))
	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("spent"),
		m.theme.Subtitle.Render(subtitle),
	)
}

func (m Model) renderFooter() string {
	status := ""
	if m.status != "" {
		status = m.statusStyle.Render(m.status)
	}
	return lipgloss.JoinVertical(lipgloss.Left, status, m.help.View(m.keymap))
}

// renderList draws the month groups and keeps the cursor row on screen.
func (m Model) renderList(height int) string {
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)

	if m.state.IsLoading && len(m.state.Expenses) == 0 {
		return muted.Render("Loading expenses...")
	}
	if len(m.state.Expenses) == 0 {
		if m.state.IsFilterEnabled {
			return muted.Render("No expenses in this period.")
		}
		return muted.Render("No expenses yet.")
	}

	var (
		lines      []string
		cursorLine int
		index      int
	)
	for i, g := range m.state.Groups() {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, m.theme.MonthHeader.Render(g.Title)+"  "+m.theme.MonthTotal.Render(FormatTotals(g.Totals)))
		for _, e := range g.Expenses {
			if index == m.cursor {
				cursorLine = len(lines)
			}
			lines = append(lines, m.renderRow(e, index == m.cursor))
			index++
		}
	}

	if height < 1 {
		height = 1
	}
	offset := 0
	if cursorLine >= height {
		offset = cursorLine - height + 1
	}
	end := min(offset+height, len(lines))
	return strings.Join(lines[offset:end], "\n")
}

func (m Model) renderRow(e model.Expense, selected bool) string {
	titleWidth := m.width - dateWidth - categoryWidth - amountWidth - 9
	if titleWidth < minTitleWidth {
		titleWidth = minTitleWidth
	}

	row := fmt.Sprintf("%s %-*s  %s  %-*s  %*s",
		themes.GetCategoryIcon(e.Category),
		dateWidth, e.Date.Format("02 Jan"),
		padRight(truncate(e.Title, titleWidth), titleWidth),
		categoryWidth, truncate(string(e.Category), categoryWidth),
		amountWidth, FormatAmount(e.Amount, e.Currency),
	)

	if selected {
		return m.theme.Selected.Render(row)
	}
	return m.theme.Normal.Render(row)
}

// truncate shortens s to at most width runes, marking the cut with "…".
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

func padRight(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
