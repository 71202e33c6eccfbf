package viewmodel

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/spent/internal/model"
	"github.com/shopspring/decimal"
)

// Draft is an expense being edited together with the amount text as typed.
type Draft struct {
	AmountInput string
	model.Expense
}

// NewDraft returns a blank draft dated now.
func NewDraft(now time.Time) Draft {
	return Draft{Expense: model.NewExpense(now)}
}

// DraftFrom loads an existing expense into a draft.
func DraftFrom(e model.Expense) Draft {
	return Draft{Expense: e, AmountInput: e.Amount.String()}
}

// ToExpense converts the draft back into an expense. An amount that does not
// parse is stored as zero.
func (d Draft) ToExpense() model.Expense {
	e := d.Expense
	amount, err := ParseAmount(d.AmountInput)
	if err != nil {
		amount = decimal.Zero
	}
	e.Amount = amount.Round(maxFractionDigits)
	return e
}

// DetailState is everything the edit form renders.
type DetailState struct {
	TitleError        TitleError
	AmountError       AmountError
	Draft             Draft
	IsSaveEnabled     bool
	HasEditingStarted bool
	IsSaved           bool
}

// NeedsDiscardConfirmation reports whether leaving the form would lose edits.
func (s DetailState) NeedsDiscardConfirmation() bool {
	return s.HasEditingStarted && !s.IsSaved
}

// DetailEffect is a one-shot signal from the detail machine.
type DetailEffect string

// Detail effects.
const (
	NavigateBack DetailEffect = "NavigateBack"
)

// ExpenseSaver persists a finished draft.
type ExpenseSaver interface {
	Add(ctx context.Context, expense model.Expense) error
}

// DetailMachine owns one draft and its validation.
type DetailMachine struct {
	saver     ExpenseSaver
	container *Container[DetailState, DetailEffect]
}

// DetailOption configures a DetailMachine.
type DetailOption func(*detailConfig)

type detailConfig struct {
	now func() time.Time
}

// WithDetailClock sets the clock used to date blank drafts.
func WithDetailClock(now func() time.Time) DetailOption {
	return func(c *detailConfig) {
		c.now = now
	}
}

// NewDetailMachine starts editing existing, or a blank draft when existing is
// nil.
func NewDetailMachine(saver ExpenseSaver, existing *model.Expense, opts ...DetailOption) *DetailMachine {
	cfg := detailConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	var state DetailState
	if existing != nil {
		state = validated(DetailState{Draft: DraftFrom(*existing)})
	} else {
		state = DetailState{Draft: NewDraft(cfg.now())}
	}

	return &DetailMachine{
		saver:     saver,
		container: NewContainer[DetailState, DetailEffect](state),
	}
}

// State returns the current form state.
func (m *DetailMachine) State() DetailState {
	return m.container.State()
}

// Watch streams form states until ctx is done.
func (m *DetailMachine) Watch(ctx context.Context) <-chan DetailState {
	return m.container.Watch(ctx)
}

// Effects returns the one-shot effect queue.
func (m *DetailMachine) Effects() <-chan DetailEffect {
	return m.container.Effects()
}

// OnExpenseUpdated replaces the draft and revalidates it. Storage is not
// touched. Updates after a save are ignored.
func (m *DetailMachine) OnExpenseUpdated(draft Draft) DetailState {
	return m.container.Reduce(func(s DetailState) DetailState {
		if s.IsSaved {
			return s
		}
		s.Draft = draft
		s.HasEditingStarted = true
		return validated(s)
	})
}

// OnAmountInput applies typed amount text if it passes the input filter and
// reports whether it was accepted.
func (m *DetailMachine) OnAmountInput(input string) bool {
	if !AcceptAmountInput(input) {
		return false
	}
	draft := m.State().Draft
	draft.AmountInput = input
	m.OnExpenseUpdated(draft)
	return true
}

// OnSaveButtonClicked hands the draft to the repository and signals
// NavigateBack. It does not check IsSaveEnabled; the form is expected to. A
// failed write is logged and not retried.
func (m *DetailMachine) OnSaveButtonClicked(ctx context.Context) {
	var (
		draft   Draft
		already bool
	)
	m.container.Reduce(func(s DetailState) DetailState {
		draft, already = s.Draft, s.IsSaved
		s.IsSaved = true
		return s
	})
	if already {
		slog.Debug("Ignoring repeated save", "id", draft.ID)
		return
	}

	if err := m.saver.Add(ctx, draft.ToExpense()); err != nil {
		slog.Error("Failed to save expense", "id", draft.ID, "error", err)
	}
	m.container.Post(NavigateBack)
}

// Close releases watchers and the effect queue.
func (m *DetailMachine) Close() {
	m.container.Close()
}

func validated(s DetailState) DetailState {
	s.TitleError = ValidateTitle(s.Draft.Title)
	s.AmountError = ValidateAmount(s.Draft.AmountInput)
	s.IsSaveEnabled = s.TitleError == TitleOK &&
		s.AmountError == AmountOK &&
		ValidateDate(s.Draft.Date)
	return s
}
