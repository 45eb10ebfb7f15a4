// Package accumulator folds a generation event stream into reviewable state:
// the cases received so far, the progress log, and the per-category failures.
// It is the client-side counterpart of a session run, kept separate from
// transport so both the CLI and tests can drive it directly.
package accumulator

import (
	"sync"

	"github.com/testgenius/testgenius/internal/stream"
	"github.com/testgenius/testgenius/internal/testcase"
)

// CategoryError records one failed category.
type CategoryError struct {
	Category string
	Message  string
}

// Accumulator collects the output of one generation run. Methods are safe
// for concurrent use; Apply is typically called from the stream reader
// goroutine while the UI reads snapshots.
type Accumulator struct {
	mu       sync.RWMutex
	cases    []testcase.TestCase
	progress []string
	errors   []CategoryError
	done     bool
	doneMsg  string
}

// New creates an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Apply folds one event into the state. Events arriving after done are
// ignored; the stream contract says none should.
func (a *Accumulator) Apply(ev *stream.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done {
		return
	}

	switch ev.Type {
	case stream.EventTypeProgress:
		if ev.Progress != "" {
			a.progress = append(a.progress, ev.Progress)
		}
	case stream.EventTypeCases:
		a.cases = append(a.cases, ev.Cases...)
		if ev.Progress != "" {
			a.progress = append(a.progress, ev.Progress)
		}
	case stream.EventTypeError:
		a.errors = append(a.errors, CategoryError{Category: ev.CaseType, Message: ev.Error})
	case stream.EventTypeDone:
		a.done = true
		a.doneMsg = ev.Message
	}
}

// Cases returns a copy of the accumulated cases in arrival order.
func (a *Accumulator) Cases() []testcase.TestCase {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]testcase.TestCase, len(a.cases))
	copy(out, a.cases)
	return out
}

// Progress returns a copy of the progress messages in arrival order.
func (a *Accumulator) Progress() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.progress))
	copy(out, a.progress)
	return out
}

// Errors returns a copy of the per-category failures.
func (a *Accumulator) Errors() []CategoryError {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]CategoryError, len(a.errors))
	copy(out, a.errors)
	return out
}

// Done reports whether the terminal event arrived, and its message.
func (a *Accumulator) Done() (bool, string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.done, a.doneMsg
}

// Len returns the number of accumulated cases.
func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cases)
}

// Delete removes one case before upload. It matches by id first; when the
// id is empty or unknown it falls back to the position, mirroring how the
// review UI addresses unsaved cases. Returns false when nothing matched.
func (a *Accumulator) Delete(id string, index int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id != "" {
		for i := range a.cases {
			if a.cases[i].ID == id {
				a.cases = append(a.cases[:i], a.cases[i+1:]...)
				return true
			}
		}
	}
	if index >= 0 && index < len(a.cases) {
		a.cases = append(a.cases[:index], a.cases[index+1:]...)
		return true
	}
	return false
}
