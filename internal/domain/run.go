package domain

import "time"

// RunSummary describes one control run. It is persisted after the run ends.
type RunSummary struct {
	RunID         string            `json:"run_id"`
	Endpoint      string            `json:"endpoint"`
	SessionID     uint32            `json:"session_id"`
	StartedAt     time.Time         `json:"started_at"`
	EndedAt       time.Time         `json:"ended_at"`
	FinalState    string            `json:"final_state"`
	CommandsSent  int               `json:"commands_sent"`
	MotionsSent   int               `json:"motions_sent"`
	Snapshots     int               `json:"snapshots"`
	OutOfOrder    int               `json:"out_of_order"`
	Superseded    int               `json:"superseded"`
	Warnings      int               `json:"warnings"`
	LastSequence  uint64            `json:"last_sequence"`
	LastSnapshot  *OdometrySnapshot `json:"last_snapshot,omitempty"`
	Deinitialized bool              `json:"deinitialized"`
	Error         string            `json:"error,omitempty"`
}

// IsEmpty returns true if no run has been recorded.
func (s RunSummary) IsEmpty() bool {
	return s.RunID == ""
}

// Duration returns the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}
