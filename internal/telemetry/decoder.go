// Package telemetry turns uplink frames into typed messages and odometry
// snapshots, enforcing non-decreasing snapshot timestamps per session.
package telemetry

import (
	"fmt"
	"math"
	"time"

	"github.com/bft-labs/basepilot/internal/domain"
	"github.com/bft-labs/basepilot/internal/protocol"
)

// Result is one decoded uplink frame.
type Result struct {
	// Message is the decoded uplink variant.
	Message domain.Message

	// Snapshot is set when Message is a status carrying odometry.
	Snapshot *domain.OdometrySnapshot
}

// Decoder decodes frames for a single session. It remembers the last
// accepted snapshot timestamp and is not safe for concurrent use.
type Decoder struct {
	now     func() time.Time
	last    time.Time
	hasLast bool
}

// NewDecoder returns a decoder that stamps unstamped frames with the wall clock.
func NewDecoder() *Decoder {
	return NewDecoderWithClock(time.Now)
}

// NewDecoderWithClock returns a decoder using now for unstamped frames.
func NewDecoderWithClock(now func() time.Time) *Decoder {
	return &Decoder{now: now}
}

// Decode parses frame. Malformed frames, and timestamps beyond the range
// of time.Time, fail with domain.ErrDecode.
//
// When the frame carries a snapshot older than the last accepted one, Decode
// returns the result together with a *domain.OutOfOrderError. The snapshot
// is not accepted and the last accepted timestamp is unchanged.
func (d *Decoder) Decode(frame domain.Frame) (Result, error) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		return Result{}, err
	}

	res := Result{Message: msg}
	status, ok := msg.(domain.StatusMessage)
	if !ok {
		return res, nil
	}

	ts, err := d.timestamp(status.Envelope)
	if err != nil {
		return Result{}, err
	}
	snap, ok := domain.SnapshotFromStatus(status, ts)
	if !ok {
		return res, nil
	}
	res.Snapshot = &snap

	if d.hasLast && snap.Timestamp.Before(d.last) {
		return res, &domain.OutOfOrderError{Last: d.last, Received: snap.Timestamp}
	}
	d.last = snap.Timestamp
	d.hasLast = true
	return res, nil
}

func (d *Decoder) timestamp(env domain.Envelope) (time.Time, error) {
	if env.TimestampMicros == 0 {
		return d.now().UTC(), nil
	}
	if env.TimestampMicros > math.MaxInt64 {
		return time.Time{}, fmt.Errorf("%w: timestamp_us %d out of range", domain.ErrDecode, env.TimestampMicros)
	}
	return time.UnixMicro(int64(env.TimestampMicros)).UTC(), nil
}
