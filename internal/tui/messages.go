package tui

import "github.com/Veraticus/spent/internal/viewmodel"

// stateMsg carries a new list state from the machine.
type stateMsg struct {
	state viewmodel.ListState
}

// effectMsg carries a one-shot outcome from the machine.
type effectMsg struct {
	effect viewmodel.ListEffect
}

// streamClosedMsg reports that the machine stopped publishing.
type streamClosedMsg struct{}

// errorMsg reports a failed request that produced no effect.
type errorMsg struct {
	err     error
	context string
}
