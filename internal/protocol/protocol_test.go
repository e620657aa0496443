package protocol

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/basepilot/internal/domain"
)

func TestEncode_GoldenFrames(t *testing.T) {
	tests := []struct {
		name string
		cmd  domain.Command
		want []byte
	}{
		{
			name: "deinitialize",
			cmd:  domain.InitializeCommand{Seq: 1, Enable: false},
			want: []byte{0x0A, 0x02, 0x08, 0x00, 0x78, 0x01},
		},
		{
			name: "initialize",
			cmd:  domain.InitializeCommand{Seq: 7, Enable: true},
			want: []byte{0x0A, 0x02, 0x08, 0x01, 0x78, 0x07},
		},
		{
			name: "rotate in place",
			cmd:  domain.MotionCommand{Seq: 2, Velocity: domain.Velocity{AngularZ: 0.5}},
			want: []byte{0x0A, 0x09, 0x12, 0x07, 0x0A, 0x05, 0x1D, 0x00, 0x00, 0x00, 0x3F, 0x78, 0x02},
		},
		{
			name: "stop is an empty speed",
			cmd:  domain.MotionCommand{Seq: 3},
			want: []byte{0x0A, 0x04, 0x12, 0x02, 0x0A, 0x00, 0x78, 0x03},
		},
		{
			name: "report frequency",
			cmd:  domain.ReportFrequencyCommand{Seq: 1, Frequency: domain.ReportFrequency50Hz},
			want: []byte{0x10, 0x03, 0x78, 0x01},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, []byte(got))
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	cmd := domain.MotionCommand{Seq: 42, Velocity: domain.Velocity{LinearX: 0.1, LinearY: -0.1, AngularZ: 0.5}}

	a, err := Encode(cmd)
	require.NoError(t, err)
	b, err := Encode(cmd)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestEncode_RejectsNonFiniteVelocity(t *testing.T) {
	cmd := domain.MotionCommand{Seq: 1, Velocity: domain.Velocity{LinearX: float32(math.NaN())}}

	_, err := Encode(cmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEncode)

	_, err = Encode(nil)
	assert.ErrorIs(t, err, domain.ErrEncode)
}

func TestCommand_RoundTrip(t *testing.T) {
	cmds := []domain.Command{
		domain.MotionCommand{Seq: 1, Velocity: domain.Velocity{LinearX: 0.1, LinearY: -0.25, AngularZ: 0.5}},
		domain.MotionCommand{Seq: 2},
		domain.InitializeCommand{Seq: 3, Enable: true},
		domain.InitializeCommand{Seq: 4, Enable: false},
		domain.ReportFrequencyCommand{Seq: 5, Frequency: domain.ReportFrequency100Hz},
		domain.ReportFrequencyCommand{Seq: 6, Frequency: domain.ReportFrequencyDefault},
	}

	for _, cmd := range cmds {
		frame, err := Encode(cmd)
		require.NoError(t, err)

		got, err := DecodeCommand(frame)
		require.NoError(t, err)
		assert.Equal(t, cmd, got)
	}
}

func TestUplink_RoundTrip(t *testing.T) {
	env := domain.Envelope{SessionID: 9, ProtocolMajorVersion: 1, TimestampMicros: 1_700_000_000_123_456, AckSequence: 12}

	msgs := []domain.Message{
		domain.StatusMessage{
			Envelope: env,
			Status: domain.BaseStatus{
				SessionHolder:         9,
				APIControlInitialized: true,
				Odometry:              &domain.EstimatedOdometry{SpeedZ: 0.5, PosX: 1.25, PosY: -0.5, PosYaw: 3.0},
			},
		},
		domain.StatusMessage{
			Envelope: env,
			Log:      "motor temperature high",
			Status: domain.BaseStatus{
				SessionHolder:         3,
				APIControlInitialized: true,
				ParkingStop:           &domain.ParkingStop{Reason: "bumper"},
			},
		},
		domain.StatusMessage{Envelope: env, Status: domain.BaseStatus{ParkingStop: &domain.ParkingStop{}}},
		domain.LogMessage{Envelope: env, Text: "hello"},
		domain.LogMessage{Envelope: env},
		// Only the envelope of an unknown message is written; see
		// TestEncodeUplink_UnknownMessageDropsFields.
		domain.UnknownMessage{Envelope: env},
	}

	for _, msg := range msgs {
		frame, err := EncodeUplink(msg)
		require.NoError(t, err)

		got, err := Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, msg, got)
	}
}

func TestEncodeUplink_UnknownMessageDropsFields(t *testing.T) {
	env := domain.Envelope{SessionID: 4, AckSequence: 3}
	frame, err := EncodeUplink(domain.UnknownMessage{Envelope: env, Fields: []int32{42, 43}})
	require.NoError(t, err)

	got, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownMessage{Envelope: env}, got)
}

func TestDecode_UnknownFieldsFallBackToUnknownMessage(t *testing.T) {
	frame := appendVarint(nil, upSessionID, 4)
	frame = appendBytes(frame, 42, []byte("future payload"))
	frame = appendVarint(frame, 43, 1)

	got, err := Decode(frame)
	require.NoError(t, err)

	unknown, ok := got.(domain.UnknownMessage)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, uint32(4), unknown.SessionID)
	assert.Equal(t, []int32{42, 43}, unknown.Fields)
}

func TestDecode_MalformedFrames(t *testing.T) {
	status, err := EncodeUplink(domain.StatusMessage{
		Envelope: domain.Envelope{SessionID: 1},
		Status:   domain.BaseStatus{Odometry: &domain.EstimatedOdometry{PosX: 1}},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		frame domain.Frame
	}{
		{"empty", nil},
		{"truncated", status[:len(status)-2]},
		{"bad tag", domain.Frame{0x00}},
		{"wrong wire type for session id", appendFloat(nil, upSessionID, 1)},
		{"wrong wire type for odometry float", appendBytes(nil, upBaseStatus, appendBytes(nil, statusOdometry, appendVarint(nil, odoPosX, 1)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.frame)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrDecode), "err = %v", err)
		})
	}
}

func TestDecodeCommand_RejectsFramesWithoutCommand(t *testing.T) {
	_, err := DecodeCommand(appendVarint(nil, downSequence, 1))
	assert.ErrorIs(t, err, domain.ErrDecode)

	_, err = DecodeCommand(appendBytes(nil, downBaseCommand, nil))
	assert.ErrorIs(t, err, domain.ErrDecode)
}
