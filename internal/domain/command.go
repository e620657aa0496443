package domain

import (
	"fmt"
	"math"
	"strings"
)

// Velocity is a desired base velocity. Linear components are in m/s along
// the robot's X (forward) and Y (left) axes; AngularZ is in rad/s.
type Velocity struct {
	LinearX  float32
	LinearY  float32
	AngularZ float32
}

// IsZero reports whether every component is zero.
func (v Velocity) IsZero() bool {
	return v.LinearX == 0 && v.LinearY == 0 && v.AngularZ == 0
}

// Finite reports whether every component is a finite number.
func (v Velocity) Finite() bool {
	for _, c := range []float32{v.LinearX, v.LinearY, v.AngularZ} {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Command is a downlink command. The concrete variants are MotionCommand,
// InitializeCommand and ReportFrequencyCommand.
type Command interface {
	// Sequence returns the per-session sequence number of the command.
	Sequence() uint64
	isCommand()
}

// MotionCommand asks the base to move at Velocity.
type MotionCommand struct {
	Seq      uint64
	Velocity Velocity
}

func (c MotionCommand) Sequence() uint64 { return c.Seq }
func (MotionCommand) isCommand()         {}

// InitializeCommand acquires (Enable) or releases API control of the base.
// Releasing control is the deinitialize command.
type InitializeCommand struct {
	Seq    uint64
	Enable bool
}

func (c InitializeCommand) Sequence() uint64 { return c.Seq }
func (InitializeCommand) isCommand()         {}

// ReportFrequencyCommand sets how often the robot publishes status.
type ReportFrequencyCommand struct {
	Seq       uint64
	Frequency ReportFrequency
}

func (c ReportFrequencyCommand) Sequence() uint64 { return c.Seq }
func (ReportFrequencyCommand) isCommand()         {}

// ReportFrequency is the status publication rate requested from the robot.
type ReportFrequency int32

const (
	ReportFrequencyDefault ReportFrequency = iota
	ReportFrequency1Hz
	ReportFrequency10Hz
	ReportFrequency50Hz
	ReportFrequency100Hz
)

var reportFrequencyNames = map[ReportFrequency]string{
	ReportFrequencyDefault: "default",
	ReportFrequency1Hz:     "1hz",
	ReportFrequency10Hz:    "10hz",
	ReportFrequency50Hz:    "50hz",
	ReportFrequency100Hz:   "100hz",
}

// String returns the lower-case name used in configuration.
func (f ReportFrequency) String() string {
	if name, ok := reportFrequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("ReportFrequency(%d)", int32(f))
}

// ParseReportFrequency parses names like "50hz" or "50Hz".
func ParseReportFrequency(s string) (ReportFrequency, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range reportFrequencyNames {
		if name == s {
			return f, nil
		}
	}
	return ReportFrequencyDefault, fmt.Errorf("%w: unknown report frequency %q", ErrInvalidConfig, s)
}

// Sequencer hands out strictly increasing sequence numbers starting at 1.
// It belongs to a single session and is not safe for concurrent use.
type Sequencer struct {
	last uint64
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	s.last++
	return s.last
}

// Last returns the most recently issued sequence number, or 0.
func (s *Sequencer) Last() uint64 {
	return s.last
}
