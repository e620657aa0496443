package domain

import "time"

// OdometrySnapshot is the robot's reported pose and velocity at a point in
// time. Timestamps are non-decreasing across the accepted snapshots of a
// session.
type OdometrySnapshot struct {
	// Sequence is the command sequence the robot acknowledged with this report.
	Sequence uint64

	// SessionID is the robot-assigned session of the report.
	SessionID uint32

	// Timestamp is the source timestamp (UTC).
	Timestamp time.Time

	// X and Y are the position in metres; Heading is the yaw in radians.
	X       float64
	Y       float64
	Heading float64

	// LinearX and LinearY are in m/s; AngularZ is in rad/s.
	LinearX  float64
	LinearY  float64
	AngularZ float64

	// Control is this session's authority at the time of the report.
	Control ControlState

	// EmergencyStop is true while the base reports a parking stop.
	EmergencyStop bool
}

// SnapshotFromStatus builds a snapshot from a status message. It returns
// false when the status carries no odometry.
func SnapshotFromStatus(m StatusMessage, ts time.Time) (OdometrySnapshot, bool) {
	odo := m.Status.Odometry
	if odo == nil {
		return OdometrySnapshot{}, false
	}
	return OdometrySnapshot{
		Sequence:      m.AckSequence,
		SessionID:     m.SessionID,
		Timestamp:     ts.UTC(),
		X:             float64(odo.PosX),
		Y:             float64(odo.PosY),
		Heading:       float64(odo.PosYaw),
		LinearX:       float64(odo.SpeedX),
		LinearY:       float64(odo.SpeedY),
		AngularZ:      float64(odo.SpeedZ),
		Control:       m.Status.ControlStateFor(m.SessionID),
		EmergencyStop: m.Status.ParkingStop != nil,
	}, true
}
