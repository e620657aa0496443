package protocol

import (
	"errors"
	"fmt"

	"github.com/bft-labs/basepilot/internal/domain"
)

var errNoCommand = errors.New("no command in frame")

// Decode parses an ApiUp frame into exactly one message variant:
// StatusMessage when a base status is present, LogMessage when only a log
// line is present, UnknownMessage otherwise. Malformed or truncated frames
// fail with domain.ErrDecode.
func Decode(frame domain.Frame) (domain.Message, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: empty frame", domain.ErrDecode)
	}

	var (
		env     domain.Envelope
		status  *domain.BaseStatus
		logText string
		hasLog  bool
		unknown []int32
	)

	err := walk(frame, func(f field) error {
		switch f.num {
		case upSessionID:
			v, err := f.varint()
			env.SessionID = uint32(v)
			return err
		case upProtocolMajorVersion:
			v, err := f.varint()
			env.ProtocolMajorVersion = uint32(v)
			return err
		case upLog:
			v, err := f.bytes()
			logText, hasLog = string(v), true
			return err
		case upBaseStatus:
			v, err := f.bytes()
			if err != nil {
				return err
			}
			s, err := decodeBaseStatus(v)
			if err != nil {
				return fmt.Errorf("base_status: %w", err)
			}
			status = &s
		case upTimestampMicros:
			v, err := f.varint()
			env.TimestampMicros = v
			return err
		case upAckSequence:
			v, err := f.varint()
			env.AckSequence = v
			return err
		default:
			unknown = append(unknown, int32(f.num))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}

	switch {
	case status != nil:
		return domain.StatusMessage{Envelope: env, Status: *status, Log: logText}, nil
	case hasLog:
		return domain.LogMessage{Envelope: env, Text: logText}, nil
	default:
		return domain.UnknownMessage{Envelope: env, Fields: unknown}, nil
	}
}

func decodeBaseStatus(msg []byte) (domain.BaseStatus, error) {
	var s domain.BaseStatus
	err := walk(msg, func(f field) error {
		switch f.num {
		case statusSessionHolder:
			v, err := f.varint()
			s.SessionHolder = uint32(v)
			return err
		case statusAPIControlInitialized:
			v, err := f.varint()
			s.APIControlInitialized = v != 0
			return err
		case statusParkingStop:
			v, err := f.bytes()
			if err != nil {
				return err
			}
			p, err := decodeParkingStop(v)
			if err != nil {
				return fmt.Errorf("parking_stop_detail: %w", err)
			}
			s.ParkingStop = &p
		case statusOdometry:
			v, err := f.bytes()
			if err != nil {
				return err
			}
			o, err := decodeOdometry(v)
			if err != nil {
				return fmt.Errorf("estimated_odometry: %w", err)
			}
			s.Odometry = &o
		}
		return nil
	})
	return s, err
}

func decodeParkingStop(msg []byte) (domain.ParkingStop, error) {
	var p domain.ParkingStop
	err := walk(msg, func(f field) error {
		if f.num == parkingReason {
			v, err := f.bytes()
			p.Reason = string(v)
			return err
		}
		return nil
	})
	return p, err
}

func decodeOdometry(msg []byte) (domain.EstimatedOdometry, error) {
	var o domain.EstimatedOdometry
	targets := map[int32]*float32{
		int32(odoSpeedX): &o.SpeedX,
		int32(odoSpeedY): &o.SpeedY,
		int32(odoSpeedZ): &o.SpeedZ,
		int32(odoPosX):   &o.PosX,
		int32(odoPosY):   &o.PosY,
		int32(odoPosYaw): &o.PosYaw,
	}
	err := walk(msg, func(f field) error {
		dst, ok := targets[int32(f.num)]
		if !ok {
			return nil
		}
		v, err := f.float()
		*dst = v
		return err
	})
	return o, err
}

// DecodeCommand parses an ApiDown frame back into a command.
func DecodeCommand(frame domain.Frame) (domain.Command, error) {
	var (
		cmd domain.Command
		seq uint64
	)

	err := walk(frame, func(f field) error {
		switch f.num {
		case downBaseCommand:
			v, err := f.bytes()
			if err != nil {
				return err
			}
			c, err := decodeBaseCommand(v)
			if err != nil {
				return fmt.Errorf("base_command: %w", err)
			}
			cmd = c
		case downSetReportFrequency:
			v, err := f.varint()
			if err != nil {
				return err
			}
			cmd = domain.ReportFrequencyCommand{Frequency: domain.ReportFrequency(int32(v))}
		case downSequence:
			v, err := f.varint()
			seq = v
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	if cmd == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, errNoCommand)
	}

	switch c := cmd.(type) {
	case domain.MotionCommand:
		c.Seq = seq
		return c, nil
	case domain.InitializeCommand:
		c.Seq = seq
		return c, nil
	case domain.ReportFrequencyCommand:
		c.Seq = seq
		return c, nil
	}
	return cmd, nil
}

func decodeBaseCommand(msg []byte) (domain.Command, error) {
	var cmd domain.Command
	err := walk(msg, func(f field) error {
		switch f.num {
		case baseAPIControlInitialize:
			v, err := f.varint()
			cmd = domain.InitializeCommand{Enable: v != 0}
			return err
		case baseSimpleMove:
			v, err := f.bytes()
			if err != nil {
				return err
			}
			vel, err := decodeSimpleMove(v)
			cmd = domain.MotionCommand{Velocity: vel}
			return err
		}
		return nil
	})
	if err == nil && cmd == nil {
		err = errNoCommand
	}
	return cmd, err
}

func decodeSimpleMove(msg []byte) (domain.Velocity, error) {
	var vel domain.Velocity
	err := walk(msg, func(f field) error {
		if f.num != moveXYZSpeed {
			return nil
		}
		speed, err := f.bytes()
		if err != nil {
			return err
		}
		return walk(speed, func(s field) error {
			var dst *float32
			switch s.num {
			case xyzSpeedX:
				dst = &vel.LinearX
			case xyzSpeedY:
				dst = &vel.LinearY
			case xyzSpeedZ:
				dst = &vel.AngularZ
			default:
				return nil
			}
			v, err := s.float()
			*dst = v
			return err
		})
	})
	return vel, err
}
