package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/basepilot/internal/domain"
	"github.com/bft-labs/basepilot/internal/ports"
)

// State represents the lifecycle state of a control loop.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateRunning
	StateDeinitializing
	StateClosed
	StateErrored
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateRunning:
		return "Running"
	case StateDeinitializing:
		return "Deinitializing"
	case StateClosed:
		return "Closed"
	case StateErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateErrored
}

// transitions lists the allowed successor states.
var transitions = map[State][]State{
	StateIdle:           {StateConnecting},
	StateConnecting:     {StateRunning, StateErrored},
	StateRunning:        {StateDeinitializing, StateErrored},
	StateDeinitializing: {StateClosed, StateErrored},
}

// Lifecycle manages the state machine of a control loop.
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	cancel       context.CancelFunc
	cancelled    bool
	logger       ports.Logger
	eventEmitter EventEmitter
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// NewLifecycle creates a new lifecycle manager in StateIdle.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        StateIdle,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns an error wrapping domain.ErrInvalidTransition if the transition
// is not valid.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	if !allowed(oldState, newState) {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, oldState, newState)
	}

	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)

	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SetCancel stores the cancel function used by Cancel. If Cancel was
// already called, cancel runs immediately.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	l.cancel = cancel
	cancelled := l.cancelled
	l.mu.Unlock()

	if cancelled && cancel != nil {
		cancel()
	}
}

// Cancel requests a graceful stop. The loop observes it at the next tick
// boundary.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	l.cancelled = true
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
