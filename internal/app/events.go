package app

import "github.com/bft-labs/basepilot/internal/domain"

// Warning kinds passed to LoopEventEmitter.OnWarning.
const (
	WarnControlNotHeld    = "control_not_held"
	WarnParkingStop       = "parking_stop"
	WarnProtocolVersion   = "protocol_version"
	WarnSessionChanged    = "session_changed"
	WarnDeinitUnconfirmed = "deinit_unconfirmed"
)

// LoopEventEmitter is called for every exchange of a running loop.
type LoopEventEmitter interface {
	OnCommandSent(cmd domain.Command)
	OnSnapshot(snapshot domain.OdometrySnapshot)
	OnOutOfOrder(err *domain.OutOfOrderError)
	OnWarning(kind, detail string)
}

// Emitters fans events out to several handlers. Handlers that implement
// only one of EventEmitter and LoopEventEmitter receive only those events.
type Emitters []any

var (
	_ EventEmitter     = Emitters(nil)
	_ LoopEventEmitter = Emitters(nil)
)

func (e Emitters) OnStateChange(previous, current State, reason string) {
	for _, h := range e {
		if em, ok := h.(EventEmitter); ok {
			em.OnStateChange(previous, current, reason)
		}
	}
}

func (e Emitters) OnCommandSent(cmd domain.Command) {
	for _, h := range e {
		if em, ok := h.(LoopEventEmitter); ok {
			em.OnCommandSent(cmd)
		}
	}
}

func (e Emitters) OnSnapshot(snapshot domain.OdometrySnapshot) {
	for _, h := range e {
		if em, ok := h.(LoopEventEmitter); ok {
			em.OnSnapshot(snapshot)
		}
	}
}

func (e Emitters) OnOutOfOrder(err *domain.OutOfOrderError) {
	for _, h := range e {
		if em, ok := h.(LoopEventEmitter); ok {
			em.OnOutOfOrder(err)
		}
	}
}

func (e Emitters) OnWarning(kind, detail string) {
	for _, h := range e {
		if em, ok := h.(LoopEventEmitter); ok {
			em.OnWarning(kind, detail)
		}
	}
}
