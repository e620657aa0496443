package protocol

import (
	"fmt"

	"github.com/bft-labs/basepilot/internal/domain"
)

// Encode translates a downlink command into an ApiDown frame.
// It is pure and deterministic: equal commands yield identical frames.
func Encode(cmd domain.Command) (domain.Frame, error) {
	var b []byte

	switch c := cmd.(type) {
	case domain.MotionCommand:
		if !c.Velocity.Finite() {
			return nil, fmt.Errorf("%w: command %d: non-finite velocity", domain.ErrEncode, c.Seq)
		}
		speed := appendFloatField(nil, xyzSpeedX, c.Velocity.LinearX)
		speed = appendFloatField(speed, xyzSpeedY, c.Velocity.LinearY)
		speed = appendFloatField(speed, xyzSpeedZ, c.Velocity.AngularZ)
		move := appendBytes(nil, moveXYZSpeed, speed)
		base := appendBytes(nil, baseSimpleMove, move)
		b = appendBytes(b, downBaseCommand, base)

	case domain.InitializeCommand:
		base := appendBool(nil, baseAPIControlInitialize, c.Enable)
		b = appendBytes(b, downBaseCommand, base)

	case domain.ReportFrequencyCommand:
		b = appendVarint(b, downSetReportFrequency, uint64(int64(c.Frequency)))

	default:
		return nil, fmt.Errorf("%w: unsupported command %T", domain.ErrEncode, cmd)
	}

	b = appendVarintField(b, downSequence, cmd.Sequence())
	return domain.Frame(b), nil
}

// EncodeUplink builds an ApiUp frame from a message. The simulator uses it
// to answer commands; tests use it to mirror the robot's framing. An
// UnknownMessage is written as its envelope alone; its Fields are not.
func EncodeUplink(msg domain.Message) (domain.Frame, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", domain.ErrEncode)
	}

	env := msg.Header()
	b := appendVarintField(nil, upSessionID, uint64(env.SessionID))
	b = appendVarintField(b, upProtocolMajorVersion, uint64(env.ProtocolMajorVersion))

	switch m := msg.(type) {
	case domain.StatusMessage:
		if m.Log != "" {
			b = appendBytes(b, upLog, []byte(m.Log))
		}
		b = appendBytes(b, upBaseStatus, encodeBaseStatus(m.Status))
	case domain.LogMessage:
		b = appendBytes(b, upLog, []byte(m.Text))
	case domain.UnknownMessage:
	default:
		return nil, fmt.Errorf("%w: unsupported message %T", domain.ErrEncode, msg)
	}

	b = appendVarintField(b, upTimestampMicros, env.TimestampMicros)
	b = appendVarintField(b, upAckSequence, env.AckSequence)
	return domain.Frame(b), nil
}

func encodeBaseStatus(s domain.BaseStatus) []byte {
	b := appendVarintField(nil, statusSessionHolder, uint64(s.SessionHolder))
	if s.APIControlInitialized {
		b = appendBool(b, statusAPIControlInitialized, true)
	}
	if s.ParkingStop != nil {
		var detail []byte
		if s.ParkingStop.Reason != "" {
			detail = appendBytes(nil, parkingReason, []byte(s.ParkingStop.Reason))
		}
		b = appendBytes(b, statusParkingStop, detail)
	}
	if odo := s.Odometry; odo != nil {
		o := appendFloatField(nil, odoSpeedX, odo.SpeedX)
		o = appendFloatField(o, odoSpeedY, odo.SpeedY)
		o = appendFloatField(o, odoSpeedZ, odo.SpeedZ)
		o = appendFloatField(o, odoPosX, odo.PosX)
		o = appendFloatField(o, odoPosY, odo.PosY)
		o = appendFloatField(o, odoPosYaw, odo.PosYaw)
		b = appendBytes(b, statusOdometry, o)
	}
	return b
}
