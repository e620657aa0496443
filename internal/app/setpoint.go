package app

import (
	"fmt"
	"sync"

	"github.com/bft-labs/basepilot/internal/domain"
	"github.com/bft-labs/basepilot/internal/ports"
)

// Setpoint holds the target velocity. It is shared between the control
// loop and whatever steers it (keyboard, config reload).
type Setpoint struct {
	mu     sync.RWMutex
	target domain.Velocity
}

var _ ports.Setpoint = (*Setpoint)(nil)

// NewSetpoint returns a setpoint starting at target. Non-finite
// components are replaced with zero.
func NewSetpoint(target domain.Velocity) *Setpoint {
	if !target.Finite() {
		target = domain.Velocity{}
	}
	return &Setpoint{target: target}
}

// Target returns the current target velocity.
func (s *Setpoint) Target() domain.Velocity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// Set replaces the target velocity.
func (s *Setpoint) Set(target domain.Velocity) error {
	if !target.Finite() {
		return fmt.Errorf("%w: non-finite velocity %+v", domain.ErrInvalidConfig, target)
	}
	s.mu.Lock()
	s.target = target
	s.mu.Unlock()
	return nil
}
