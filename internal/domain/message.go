package domain

// Envelope holds the fields every uplink message carries.
type Envelope struct {
	// SessionID identifies this client's session on the robot.
	SessionID uint32

	// ProtocolMajorVersion is the robot's API major version.
	ProtocolMajorVersion uint32

	// TimestampMicros is the robot's source timestamp in unix microseconds.
	// Zero means the robot did not stamp the frame.
	TimestampMicros uint64

	// AckSequence is the sequence number of the last command the robot
	// processed. Zero when unknown.
	AckSequence uint64
}

// Message is an uplink message. The concrete variants are StatusMessage,
// LogMessage and UnknownMessage; decoding always yields exactly one of them.
type Message interface {
	Header() Envelope
	isMessage()
}

// StatusMessage carries a base status report.
type StatusMessage struct {
	Envelope
	Status BaseStatus
	// Log is an optional log line sent alongside the status.
	Log string
}

func (m StatusMessage) Header() Envelope { return m.Envelope }
func (StatusMessage) isMessage()         {}

// LogMessage carries a log line from the robot without a status.
type LogMessage struct {
	Envelope
	Text string
}

func (m LogMessage) Header() Envelope { return m.Envelope }
func (LogMessage) isMessage()         {}

// UnknownMessage is any uplink envelope without a recognised payload.
type UnknownMessage struct {
	Envelope
	// Fields lists the top-level field numbers that were not understood.
	Fields []int32
}

func (m UnknownMessage) Header() Envelope { return m.Envelope }
func (UnknownMessage) isMessage()         {}

// BaseStatus is the robot base's status report.
type BaseStatus struct {
	// SessionHolder is the session currently holding API control.
	SessionHolder uint32

	// APIControlInitialized reports whether API control is enabled.
	APIControlInitialized bool

	// ParkingStop is set while the base is parked or emergency-stopped.
	ParkingStop *ParkingStop

	// Odometry is the robot's estimated odometry, when reported.
	Odometry *EstimatedOdometry
}

// ParkingStop describes why the base refuses to move.
type ParkingStop struct {
	Reason string
}

// EstimatedOdometry is odometry as it appears on the wire.
type EstimatedOdometry struct {
	SpeedX float32
	SpeedY float32
	SpeedZ float32
	PosX   float32
	PosY   float32
	PosYaw float32
}

// ControlState describes this session's authority over the base.
type ControlState int

const (
	// ControlUninitialized means API control is not enabled on the robot.
	ControlUninitialized ControlState = iota
	// ControlNotHeld means API control is enabled but another session holds
	// it, or the base is parked.
	ControlNotHeld
	// ControlCanMove means this session holds control and the base may move.
	ControlCanMove
)

// String returns a human-readable representation of the state.
func (s ControlState) String() string {
	switch s {
	case ControlUninitialized:
		return "Uninitialized"
	case ControlNotHeld:
		return "NotHeld"
	case ControlCanMove:
		return "CanMove"
	default:
		return "Unknown"
	}
}

// ControlStateFor derives the control state of session sessionID.
func (s BaseStatus) ControlStateFor(sessionID uint32) ControlState {
	switch {
	case !s.APIControlInitialized:
		return ControlUninitialized
	case s.ParkingStop == nil && s.SessionHolder == sessionID:
		return ControlCanMove
	default:
		return ControlNotHeld
	}
}
