package domain

import (
	"fmt"
	"slices"
	"time"
)

// StatusEntry is one element of an append-only status history.
type StatusEntry[S ~string] struct {
	Status    S         `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusMachine is an explicit current-state -> allowed-next-states table.
type StatusMachine[S ~string] struct {
	transitions map[S][]S
}

// NewStatusMachine builds a machine from the table. Every state must appear as a key,
// terminal states with an empty slice.
func NewStatusMachine[S ~string](table map[S][]S) StatusMachine[S] {
	return StatusMachine[S]{transitions: table}
}

// Known reports whether s is a recognised state.
func (m StatusMachine[S]) Known(s S) bool {
	_, ok := m.transitions[s]
	return ok
}

// Next returns the states reachable from s in one step.
func (m StatusMachine[S]) Next(s S) []S {
	return slices.Clone(m.transitions[s])
}

// CanTransition reports whether from -> to is in the table.
func (m StatusMachine[S]) CanTransition(from, to S) bool {
	return slices.Contains(m.transitions[from], to)
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From    string
	To      string
	Unknown bool
}

func (e *TransitionError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("unrecognised status %q", e.To)
	}
	return fmt.Sprintf("transition %q -> %q not allowed", e.From, e.To)
}

// transition validates next against m and, when it differs from *current, applies it and
// appends a history entry. Re-applying the current status is a no-op and reports false.
func transition[S ~string](m StatusMachine[S], current *S, history *[]StatusEntry[S], next S, at time.Time) (bool, error) {
	if !m.Known(next) {
		return false, &TransitionError{From: string(*current), To: string(next), Unknown: true}
	}
	if *current == next {
		return false, nil
	}
	if !m.CanTransition(*current, next) {
		return false, &TransitionError{From: string(*current), To: string(next)}
	}
	*current = next
	*history = append(*history, StatusEntry[S]{Status: next, Timestamp: at})
	return true, nil
}
