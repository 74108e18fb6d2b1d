package controller

import (
	"errors"
	"time"

	"respondo/internal/types"
)

// State is a controller state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateResult
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateResult:
		return "result"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a cycle.
func (s State) Terminal() bool {
	return s == StateResult || s == StateError
}

var (
	// ErrCycleInProgress is returned when a cycle is requested while one is loading.
	ErrCycleInProgress = errors.New("a cycle is already in progress")
	// ErrInvalidTransition is returned by Retry outside Result and Error.
	ErrInvalidTransition = errors.New("retry is only available after a result or an error")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("controller is closed")
)

// Outcome is what a finished cycle renders.
type Outcome struct {
	CycleID        string
	State          State // StateResult or StateError
	Reply          string
	ProcessingTime *float64
	Elapsed        time.Duration
	Messages       []types.MessageRecord // sorted by timestamp
	Err            *types.Error
	CopyErr        error // clipboard failure; the cycle still succeeds
}

// Transition is emitted on every state change. Outcome is set when To is terminal.
type Transition struct {
	From       State
	To         State
	CycleID    string
	Generation uint64
	Outcome    *Outcome
}

// Tick is one elapsed-time update of a loading cycle.
type Tick struct {
	CycleID    string
	Generation uint64
	Elapsed    time.Duration
}

// Observer receives controller events. OnElapsed runs on the ticker goroutine and
// must not block.
type Observer interface {
	OnTransition(Transition)
	OnElapsed(Tick)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Transition func(Transition)
	Elapsed    func(Tick)
}

func (f ObserverFuncs) OnTransition(t Transition) {
	if f.Transition != nil {
		f.Transition(t)
	}
}

func (f ObserverFuncs) OnElapsed(t Tick) {
	if f.Elapsed != nil {
		f.Elapsed(t)
	}
}

// MultiObserver fans events out to several observers in order. Nil entries are skipped.
func MultiObserver(observers ...Observer) Observer {
	var list multiObserver
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) OnTransition(t Transition) {
	for _, o := range m {
		o.OnTransition(t)
	}
}

func (m multiObserver) OnElapsed(t Tick) {
	for _, o := range m {
		o.OnElapsed(t)
	}
}
