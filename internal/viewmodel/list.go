package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/service"
)

// ListState is what the expense list renders.
type ListState struct {
	DateRange       *model.DateRange
	SortMode        model.SortMode
	Expenses        []model.Expense
	IsFilterEnabled bool
	IsLoading       bool
}

// Groups splits the visible expenses into month sections.
func (s ListState) Groups() []model.MonthGroup {
	return model.GroupByMonth(s.Expenses)
}

// ListEffectKind names a one-shot outcome of a list operation.
type ListEffectKind string

// List effects.
const (
	DeletedSuccess     ListEffectKind = "DeletedSuccess"
	DeletedFailure     ListEffectKind = "DeletedFailure"
	DownloadSuccess    ListEffectKind = "DownloadSuccess"
	DownloadFailure    ListEffectKind = "DownloadFailure"
	AllDeletedSuccess  ListEffectKind = "AllDeletedSuccess"
	AllDeletedFailure  ListEffectKind = "AllDeletedFailure"
	SortModeSaveFailed ListEffectKind = "SortModeSaveFailed"
)

// ListEffect is a one-shot outcome. Path is set for successful downloads.
type ListEffect struct {
	Kind ListEffectKind
	Path string
}

// ListRepository is what the list machine needs from the expense repository.
type ListRepository interface {
	FetchAll(ctx context.Context, dateRange *model.DateRange) (service.Subscription[[]model.Expense], error)
	Delete(ctx context.Context, expense model.Expense) (bool, error)
	DeleteAll(ctx context.Context) (bool, error)
}

// SortModeStore persists the sort mode and streams changes to it.
type SortModeStore interface {
	SaveSortMode(ctx context.Context, mode model.SortMode) error
	WatchSortMode(ctx context.Context) (service.Subscription[model.SortMode], error)
}

// ErrNoExporter is reported when a download is requested without an exporter.
var ErrNoExporter = errors.New("no exporter configured")

// ListMachine keeps the visible expense list in sync with storage and brokers
// delete, sort, filter and export requests.
type ListMachine struct {
	repo      ListRepository
	prefs     SortModeStore
	exporter  service.Exporter
	container *Container[ListState, ListEffect]
	ctx       context.Context
	cancel    context.CancelFunc

	// guarded by mu
	expenseSub service.Subscription[[]model.Expense]
	sortSub    service.Subscription[model.SortMode]
	dateRange  *model.DateRange
	mode       model.SortMode
	raw        []model.Expense
	generation uint64
	rowsLoaded bool
	sortLoaded bool
	mu         sync.Mutex

	wg sync.WaitGroup
}

// NewListMachine subscribes to the persisted sort mode and the unfiltered
// expense stream. Both subscriptions live until Close or until ctx is done.
func NewListMachine(ctx context.Context, repo ListRepository, prefs SortModeStore, exporter service.Exporter) (*ListMachine, error) {
	ctx, cancel := context.WithCancel(ctx)
	m := &ListMachine{
		repo:     repo,
		prefs:    prefs,
		exporter: exporter,
		ctx:      ctx,
		cancel:   cancel,
		mode:     model.DefaultSortMode,
		container: NewContainer[ListState, ListEffect](ListState{
			SortMode:  model.DefaultSortMode,
			IsLoading: true,
		}),
	}

	sortSub, err := prefs.WatchSortMode(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch sort mode: %w", err)
	}
	m.sortSub = sortSub
	m.wg.Add(1)
	go m.consumeSortMode(sortSub)

	m.mu.Lock()
	err = m.subscribeLocked(nil)
	m.mu.Unlock()
	if err != nil {
		m.Close()
		return nil, err
	}

	return m, nil
}

// State returns the current list state.
func (m *ListMachine) State() ListState {
	return m.container.State()
}

// Watch streams list states until ctx is done or the machine is closed.
func (m *ListMachine) Watch(ctx context.Context) <-chan ListState {
	return m.container.Watch(ctx)
}

// Effects returns the one-shot outcome queue.
func (m *ListMachine) Effects() <-chan ListEffect {
	return m.container.Effects()
}

// DeleteExpense soft-deletes an expense and reports the outcome as an effect.
func (m *ListMachine) DeleteExpense(ctx context.Context, expense model.Expense) {
	ok, err := m.repo.Delete(ctx, expense)
	if err != nil {
		slog.Error("Failed to delete expense", "id", expense.ID, "error", err)
	}
	if ok && err == nil {
		m.container.Post(ListEffect{Kind: DeletedSuccess})
		return
	}
	m.container.Post(ListEffect{Kind: DeletedFailure})
}

// UpdateSortMode re-sorts immediately and persists the mode. The persisted
// value wins once its stream re-emits.
func (m *ListMachine) UpdateSortMode(ctx context.Context, mode model.SortMode) {
	m.mu.Lock()
	m.mode = mode
	m.publishLocked()
	m.mu.Unlock()

	if err := m.prefs.SaveSortMode(ctx, mode); err != nil {
		slog.Error("Failed to save sort mode", "mode", mode, "error", err)
		m.container.Post(ListEffect{Kind: SortModeSaveFailed})
	}
}

// UpdateDateRange replaces any active filter with dateRange.
func (m *ListMachine) UpdateDateRange(dateRange model.DateRange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribeLocked(&dateRange)
}

// RemoveDateRange drops the active filter.
func (m *ListMachine) RemoveDateRange() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribeLocked(nil)
}

// DownloadData exports the stored data and reports the outcome as an effect.
func (m *ListMachine) DownloadData(ctx context.Context, format service.ExportFormat) {
	if m.exporter == nil {
		slog.Error("Failed to export expenses", "format", format, "error", ErrNoExporter)
		m.container.Post(ListEffect{Kind: DownloadFailure})
		return
	}

	path, err := m.exporter.Export(ctx, format)
	if err != nil {
		slog.Error("Failed to export expenses", "format", format, "error", err)
		m.container.Post(ListEffect{Kind: DownloadFailure})
		return
	}
	m.container.Post(ListEffect{Kind: DownloadSuccess, Path: path})
}

// DeleteAllExpenses truncates storage. Success is only reported after a
// follow-up read finds no rows.
func (m *ListMachine) DeleteAllExpenses(ctx context.Context) {
	ok, err := m.repo.DeleteAll(ctx)
	if err != nil {
		slog.Error("Failed to delete all expenses", "error", err)
	}
	if ok && err == nil {
		m.container.Post(ListEffect{Kind: AllDeletedSuccess})
		return
	}
	m.container.Post(ListEffect{Kind: AllDeletedFailure})
}

// Close cancels both subscriptions and ends all watches. No state is emitted
// afterwards.
func (m *ListMachine) Close() {
	m.cancel()

	m.mu.Lock()
	m.generation++
	if m.expenseSub != nil {
		m.expenseSub.Close()
		m.expenseSub = nil
	}
	if m.sortSub != nil {
		m.sortSub.Close()
		m.sortSub = nil
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.container.Close()
}

// subscribeLocked swaps the expense subscription for one filtered by
// dateRange. The old subscription is torn down first; snapshots it still
// delivers are dropped by generation.
func (m *ListMachine) subscribeLocked(dateRange *model.DateRange) error {
	if m.ctx.Err() != nil {
		return m.ctx.Err()
	}

	if m.expenseSub != nil {
		m.expenseSub.Close()
		m.expenseSub = nil
	}
	m.generation++
	gen := m.generation

	sub, err := m.repo.FetchAll(m.ctx, dateRange)
	if err != nil {
		return fmt.Errorf("failed to fetch expenses: %w", err)
	}

	m.expenseSub = sub
	m.dateRange = dateRange
	m.rowsLoaded = false
	m.container.Reduce(func(s ListState) ListState {
		s.DateRange = dateRange
		s.IsFilterEnabled = dateRange != nil
		s.IsLoading = true
		return s
	})

	m.wg.Add(1)
	go m.consumeExpenses(gen, sub)
	return nil
}

func (m *ListMachine) consumeExpenses(gen uint64, sub service.Subscription[[]model.Expense]) {
	defer m.wg.Done()
	for rows := range sub.C() {
		m.mu.Lock()
		if gen == m.generation {
			m.raw = rows
			m.rowsLoaded = true
			m.publishLocked()
		}
		m.mu.Unlock()
	}
}

func (m *ListMachine) consumeSortMode(sub service.Subscription[model.SortMode]) {
	defer m.wg.Done()
	for mode := range sub.C() {
		m.mu.Lock()
		if m.ctx.Err() == nil && (!m.sortLoaded || mode != m.mode) {
			m.mode = mode
			m.sortLoaded = true
			m.publishLocked()
		}
		m.mu.Unlock()
	}
}

// publishLocked recomputes the visible list from the held rows. The list
// stays loading until both the rows and the stored sort mode have arrived.
func (m *ListMachine) publishLocked() {
	visible := DeriveExpenses(m.raw, m.mode, m.dateRange)
	mode, dateRange := m.mode, m.dateRange
	loading := !m.rowsLoaded || !m.sortLoaded
	m.container.Reduce(func(s ListState) ListState {
		s.Expenses = visible
		s.SortMode = mode
		s.DateRange = dateRange
		s.IsFilterEnabled = dateRange != nil
		s.IsLoading = loading
		return s
	})
}

// DeriveExpenses is the visible list for the given rows: soft-deleted rows are
// dropped, the date range is applied when set, and the result is sorted by
// date. The input slice is not modified.
func DeriveExpenses(rows []model.Expense, mode model.SortMode, dateRange *model.DateRange) []model.Expense {
	visible := make([]model.Expense, 0, len(rows))
	for _, e := range rows {
		if !e.IsVisible() {
			continue
		}
		if dateRange != nil && !dateRange.Contains(e.Date) {
			continue
		}
		visible = append(visible, e)
	}
	model.SortExpenses(visible, mode)
	return visible
}
