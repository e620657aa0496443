package protocol

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// AcceptedMajorVersion is the protocol major version this client speaks.
const AcceptedMajorVersion uint32 = 1

// ApiDown
const (
	downBaseCommand        protowire.Number = 1
	downSetReportFrequency protowire.Number = 2
	downSequence           protowire.Number = 15
)

// BaseCommand
const (
	baseAPIControlInitialize protowire.Number = 1
	baseSimpleMove           protowire.Number = 2
)

// SimpleBaseMoveCommand
const moveXYZSpeed protowire.Number = 1

// XyzSpeed
const (
	xyzSpeedX protowire.Number = 1
	xyzSpeedY protowire.Number = 2
	xyzSpeedZ protowire.Number = 3
)

// ApiUp
const (
	upSessionID            protowire.Number = 1
	upProtocolMajorVersion protowire.Number = 2
	upLog                  protowire.Number = 3
	upBaseStatus           protowire.Number = 4
	upTimestampMicros      protowire.Number = 5
	upAckSequence          protowire.Number = 6
)

// BaseStatus
const (
	statusSessionHolder         protowire.Number = 1
	statusAPIControlInitialized protowire.Number = 2
	statusParkingStop           protowire.Number = 3
	statusOdometry              protowire.Number = 4
)

// ParkingStopDetail
const parkingReason protowire.Number = 1

// EstimatedOdometry
const (
	odoSpeedX protowire.Number = 1
	odoSpeedY protowire.Number = 2
	odoSpeedZ protowire.Number = 3
	odoPosX   protowire.Number = 4
	odoPosY   protowire.Number = 5
	odoPosYaw protowire.Number = 6
)

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// Scalar fields outside a oneof follow proto3 and are omitted when zero.

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	return appendVarint(b, num, v)
}

func appendFloatField(b []byte, num protowire.Number, v float32) []byte {
	if math.Float32bits(v) == 0 {
		return b
	}
	return appendFloat(b, num, v)
}

// field is one decoded wire field. Scalars land in v, length-delimited
// payloads in b.
type field struct {
	num protowire.Number
	typ protowire.Type
	v   uint64
	b   []byte
}

// walk calls fn for every top-level field of msg in wire order.
func walk(msg []byte, fn func(f field) error) error {
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return protowire.ParseError(n)
		}
		msg = msg[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(msg)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(msg)
			f.v = uint64(v)
		case protowire.Fixed64Type:
			f.v, n = protowire.ConsumeFixed64(msg)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(msg)
		default:
			n = protowire.ConsumeFieldValue(num, typ, msg)
		}
		if n < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		msg = msg[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) expect(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("field %d: wire type %d, want %d", f.num, f.typ, typ)
	}
	return nil
}

func (f field) float() (float32, error) {
	if err := f.expect(protowire.Fixed32Type); err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(f.v)), nil
}

func (f field) varint() (uint64, error) {
	if err := f.expect(protowire.VarintType); err != nil {
		return 0, err
	}
	return f.v, nil
}

func (f field) bytes() ([]byte, error) {
	if err := f.expect(protowire.BytesType); err != nil {
		return nil, err
	}
	return f.b, nil
}
